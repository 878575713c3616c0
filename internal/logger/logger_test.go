package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"fatal":   FatalLevel,
		"":        InfoLevel,
		"verbose": InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWriterLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, WarnLevel)

	log.Info("hidden %d", 1)
	log.Warn("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown 2") {
		t.Errorf("output = %q, want warn line", out)
	}
}

func TestWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	base := NewWriterLogger(&buf, DebugLevel)
	staged := base.With("run=abc").With("ExtractText")

	staged.Debug("page %d", 3)
	if !strings.Contains(buf.String(), "[DEBUG] [run=abc ExtractText] page 3") {
		t.Errorf("output = %q, want prefixed line", buf.String())
	}

	base.SetLevel(ErrorLevel)
	buf.Reset()
	staged.Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("derived logger ignored parent level: %q", buf.String())
	}
}
