package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RahulDas-dev/invoice-parser/internal/config"
	"github.com/RahulDas-dev/invoice-parser/internal/logger"
)

var (
	envFile      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "invoice-parser",
	Short: "Extract structured invoices from PDFs and images",
	Long: `invoice-parser transcribes every page of a document with a vision model, groups the
pages into invoices and merges each group into one structured invoice record.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "path to a .env file (skipped when missing)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", formatJSON, "output format: json or yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup loads and validates the configuration and builds the stderr logger shared by commands.
func setup() (config.Config, logger.Logger, error) {
	log, err := logger.NewLogger(logger.LogConfig{Output: "stderr", Level: logLevel})
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}
