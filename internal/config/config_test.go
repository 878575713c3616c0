package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"MERGER_STRATEGY", "GROUPING_MODE", "MAX_CONCURRENT_REQUEST", "IMAGE_TO_TEXT_MODEL"} {
		t.Setenv(key, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MergeStrategy != "classic" {
		t.Errorf("MergeStrategy = %q, want classic", cfg.MergeStrategy)
	}
	if cfg.MaxConcurrent != 10 {
		t.Errorf("MaxConcurrent = %d, want 10", cfg.MaxConcurrent)
	}
	if cfg.ExtractModel != "gpt-4.1-mini" {
		t.Errorf("ExtractModel = %q, want gpt-4.1-mini", cfg.ExtractModel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v on defaults", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv("GROUP_FORMAT", "")
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("MERGER_STRATEGY=Smart\nMAX_CONCURRENT_REQUEST=4\n"), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	// Already set variables win over the file.
	t.Setenv("MAX_CONCURRENT_REQUEST", "7")
	t.Setenv("MERGER_STRATEGY", "")
	os.Unsetenv("MERGER_STRATEGY")

	cfg, err := Load(envFile, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MergeStrategy != "smart" {
		t.Errorf("MergeStrategy = %q, want smart", cfg.MergeStrategy)
	}
	if cfg.MaxConcurrent != 7 {
		t.Errorf("MaxConcurrent = %d, want 7 from the environment", cfg.MaxConcurrent)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown strategy", func(c *Config) { c.MergeStrategy = "clever" }},
		{"unknown grouping mode", func(c *Config) { c.GroupingMode = "llm" }},
		{"unknown group format", func(c *Config) { c.GroupFormat = "merged" }},
		{"unknown render mode", func(c *Config) { c.RenderMode = "svg" }},
		{"unknown image format", func(c *Config) { c.ImageFormat = "tiff" }},
		{"zero concurrency", func(c *Config) { c.MaxConcurrent = 0 }},
		{"negative width", func(c *Config) { c.MaxImageWidth = -1 }},
		{"zero dpi", func(c *Config) { c.RenderDPI = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	cfg := Default()
	if err := cfg.RequireAPIKey(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("RequireAPIKey() error = %v, want ErrInvalidConfig", err)
	}
	cfg.OpenAIAPIKey = "sk-test"
	if err := cfg.RequireAPIKey(); err != nil {
		t.Errorf("RequireAPIKey() error = %v", err)
	}
}
