package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Level represents the logging level
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Logger is the interface every component logs through.
type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
	Fatal(format string, v ...any)
	SetLevel(level Level)
	// With returns a logger that tags every line with prefix, e.g. "run=<id>" or a stage name.
	With(prefix string) Logger
}

// LogConfig holds configuration for the logger
type LogConfig struct {
	// Output destination: "file" or "stderr"
	Output string
	// Log level: "debug", "info", "warn", "error", "fatal"
	Level string
	// FilePath for file output (only used when Output is "file")
	FilePath string
}

type standardLogger struct {
	logger *log.Logger
	level  *Level
	prefix string
}

// NewLogger creates a new logger based on the provided configuration. Empty fields fall back to
// LOG_OUTPUT, LOG_LEVEL and LOG_FILE_PATH.
func NewLogger(config LogConfig) (Logger, error) {
	output := config.Output
	if output == "" {
		output = os.Getenv("LOG_OUTPUT")
	}
	if output == "" {
		output = detectEnvironment()
	}

	var writer io.Writer
	switch output {
	case "stderr":
		writer = os.Stderr
	case "file":
		filePath := config.FilePath
		if filePath == "" {
			filePath = os.Getenv("LOG_FILE_PATH")
		}
		if filePath == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get user home directory: %w", err)
			}
			logDir := filepath.Join(homeDir, ".invoice-parser")
			if err := os.MkdirAll(logDir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
			filePath = filepath.Join(logDir, "invoice-parser.log")
		}

		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writer = file
	default:
		return nil, fmt.Errorf("invalid log output: %s (expected 'file' or 'stderr')", output)
	}

	levelStr := config.Level
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}
	return NewWriterLogger(writer, ParseLevel(levelStr)), nil
}

// NewWriterLogger logs to w with timestamps at the given minimum level.
func NewWriterLogger(w io.Writer, level Level) Logger {
	return &standardLogger{
		logger: log.New(w, "", log.LstdFlags),
		level:  &level,
	}
}

// NewNoOpLogger creates a logger that discards all output (useful for tests)
func NewNoOpLogger() Logger {
	level := FatalLevel
	return &standardLogger{
		logger: log.New(io.Discard, "", 0),
		level:  &level,
	}
}

// detectEnvironment picks stderr inside containers and a log file otherwise.
func detectEnvironment() string {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "stderr"
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "stderr"
	}
	return "file"
}

// ParseLevel converts a level name to a Level, defaulting to InfoLevel.
func ParseLevel(level string) Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// SetLevel sets the minimum log level. Loggers derived with With share the level.
func (l *standardLogger) SetLevel(level Level) {
	*l.level = level
}

func (l *standardLogger) With(prefix string) Logger {
	if l.prefix != "" {
		prefix = l.prefix + " " + prefix
	}
	return &standardLogger{logger: l.logger, level: l.level, prefix: prefix}
}

func (l *standardLogger) Debug(format string, v ...any) {
	if *l.level <= DebugLevel {
		l.log(DebugLevel, format, v...)
	}
}

func (l *standardLogger) Info(format string, v ...any) {
	if *l.level <= InfoLevel {
		l.log(InfoLevel, format, v...)
	}
}

func (l *standardLogger) Warn(format string, v ...any) {
	if *l.level <= WarnLevel {
		l.log(WarnLevel, format, v...)
	}
}

func (l *standardLogger) Error(format string, v ...any) {
	if *l.level <= ErrorLevel {
		l.log(ErrorLevel, format, v...)
	}
}

// Fatal logs a fatal message and exits
func (l *standardLogger) Fatal(format string, v ...any) {
	l.log(FatalLevel, format, v...)
	os.Exit(1)
}

func (l *standardLogger) log(level Level, format string, v ...any) {
	message := fmt.Sprintf(format, v...)
	if l.prefix != "" {
		l.logger.Printf("[%s] [%s] %s", level.String(), l.prefix, message)
		return
	}
	l.logger.Printf("[%s] %s", level.String(), message)
}
