package main

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/RahulDas-dev/invoice-parser/internal/config"
	"github.com/RahulDas-dev/invoice-parser/internal/logger"
	"github.com/RahulDas-dev/invoice-parser/server"
)

func main() {
	// Initialize logger with default configuration
	log, err := logger.NewLogger(logger.LogConfig{})
	if err != nil {
		panic(err)
	}

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: %v", err)
	}

	log.Info("Starting invoice-parser MCP server")

	srv, store, err := server.CreateServer(cfg, log)
	if err != nil {
		log.Fatal("Failed to create server: %v", err)
	}
	defer store.Close()

	err = srv.Run(context.Background(), &mcp.StdioTransport{})
	if err != nil {
		log.Fatal("Server failed: %v", err)
	}
}
