// Package config loads the invoice parser configuration from the environment and optional .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/RahulDas-dev/invoice-parser/internal/merge"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	GroupingRules    = "rules"
	GroupingProposal = "proposal"

	FormatPerPage  = "per-page"
	FormatCombined = "combined"

	RenderImage = "image"
	RenderPDF   = "pdf"
)

// Config is passed explicitly to every component that needs it.
type Config struct {
	OpenAIAPIKey   string
	ExtractModel   string
	GrouperModel   string
	FormatterModel string

	MergeStrategy string
	GroupingMode  string
	GroupFormat   string
	MaxConcurrent int

	RenderMode     string
	ImageFormat    string
	MaxImageWidth  int
	MaxImageHeight int
	RenderDPI      float64

	TokensPerSecond int
	TokenBurst      int
	MaxRetries      int

	DBPath     string
	OutputPath string

	ZoteroAPIKey    string
	ZoteroLibraryID string
}

// Default returns the configuration used when no environment variable is set.
func Default() Config {
	return Config{
		ExtractModel:    "gpt-4.1-mini",
		GrouperModel:    "o4-mini",
		FormatterModel:  "gpt-4o-mini",
		MergeStrategy:   merge.Classic.String(),
		GroupingMode:    GroupingRules,
		GroupFormat:     FormatPerPage,
		MaxConcurrent:   10,
		RenderMode:      RenderImage,
		ImageFormat:     "png",
		MaxImageWidth:   2500,
		MaxImageHeight:  2500,
		RenderDPI:       150,
		TokensPerSecond: 30000,
		TokenBurst:      60000,
		MaxRetries:      5,
	}
}

// Load reads the given .env files (missing files are skipped) and then the environment.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) (Config, error) {
	var present []string
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) > 0 {
		if err := godotenv.Load(present...); err != nil {
			return Config{}, fmt.Errorf("failed to load env files: %w", err)
		}
	}

	d := Default()
	cfg := Config{
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		ExtractModel:    getEnv("IMAGE_TO_TEXT_MODEL", d.ExtractModel),
		GrouperModel:    getEnv("PAGE_GROUPPER_MODEL", d.GrouperModel),
		FormatterModel:  getEnv("OUTPUT_FORMATOR_MODEL", d.FormatterModel),
		MergeStrategy:   strings.ToLower(getEnv("MERGER_STRATEGY", d.MergeStrategy)),
		GroupingMode:    strings.ToLower(getEnv("GROUPING_MODE", d.GroupingMode)),
		GroupFormat:     strings.ToLower(getEnv("GROUP_FORMAT", d.GroupFormat)),
		MaxConcurrent:   getEnvAsInt("MAX_CONCURRENT_REQUEST", d.MaxConcurrent),
		RenderMode:      strings.ToLower(getEnv("RENDER_MODE", d.RenderMode)),
		ImageFormat:     strings.ToLower(getEnv("IMG_SAVE_FORMAT", d.ImageFormat)),
		MaxImageWidth:   getEnvAsInt("MAX_IMG_WIDTH", d.MaxImageWidth),
		MaxImageHeight:  getEnvAsInt("MAX_IMG_HEIGHT", d.MaxImageHeight),
		RenderDPI:       getEnvAsFloat("RENDER_DPI", d.RenderDPI),
		TokensPerSecond: getEnvAsInt("TOKENS_PER_SECOND", d.TokensPerSecond),
		TokenBurst:      getEnvAsInt("TOKEN_BURST", d.TokenBurst),
		MaxRetries:      getEnvAsInt("MAX_RETRIES", d.MaxRetries),
		DBPath:          getEnv("INVOICE_PARSER_DB_PATH", ""),
		OutputPath:      getEnv("OUTPUT_PATH", ""),
		ZoteroAPIKey:    getEnv("ZOTERO_API_KEY", ""),
		ZoteroLibraryID: getEnv("ZOTERO_LIBRARY_ID", ""),
	}
	return cfg, nil
}

// Validate rejects values no component can run with. An unknown merge strategy is fatal here
// rather than at merge time.
func (c Config) Validate() error {
	if _, err := merge.ParseKind(c.MergeStrategy); err != nil {
		return fmt.Errorf("%w: MERGER_STRATEGY: %v", ErrInvalidConfig, err)
	}
	if err := oneOf("GROUPING_MODE", c.GroupingMode, GroupingRules, GroupingProposal); err != nil {
		return err
	}
	if err := oneOf("GROUP_FORMAT", c.GroupFormat, FormatPerPage, FormatCombined); err != nil {
		return err
	}
	if err := oneOf("RENDER_MODE", c.RenderMode, RenderImage, RenderPDF); err != nil {
		return err
	}
	if err := oneOf("IMG_SAVE_FORMAT", c.ImageFormat, "png", "jpeg", "jpg"); err != nil {
		return err
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("%w: MAX_CONCURRENT_REQUEST must be positive, got %d", ErrInvalidConfig, c.MaxConcurrent)
	}
	if c.MaxImageWidth <= 0 || c.MaxImageHeight <= 0 {
		return fmt.Errorf("%w: MAX_IMG_WIDTH and MAX_IMG_HEIGHT must be positive", ErrInvalidConfig)
	}
	if c.RenderDPI <= 0 {
		return fmt.Errorf("%w: RENDER_DPI must be positive", ErrInvalidConfig)
	}
	if c.TokensPerSecond <= 0 || c.TokenBurst <= 0 {
		return fmt.Errorf("%w: TOKENS_PER_SECOND and TOKEN_BURST must be positive", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: MAX_RETRIES must not be negative", ErrInvalidConfig)
	}
	return nil
}

// RequireAPIKey reports a configuration error when no OpenAI key is set.
func (c Config) RequireAPIKey() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY is required", ErrInvalidConfig)
	}
	return nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s=%q (expected one of %s)", ErrInvalidConfig, key, value, strings.Join(allowed, ", "))
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
