package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/RahulDas-dev/invoice-parser/internal/config"
	"github.com/RahulDas-dev/invoice-parser/internal/documents"
	"github.com/RahulDas-dev/invoice-parser/internal/logger"
	"github.com/RahulDas-dev/invoice-parser/internal/operations"
	"github.com/RahulDas-dev/invoice-parser/internal/storage"
	"github.com/RahulDas-dev/invoice-parser/resources"
	"github.com/RahulDas-dev/invoice-parser/tools"
)

// resourceTemplates are the invoice:// URIs served by the resource handler.
var resourceTemplates = []mcp.ResourceTemplate{
	{
		URITemplate: "invoice://{documentId}",
		Name:        "invoice-document",
		Description: "Summary of a parsed document: route, counts and available resources",
	},
	{
		URITemplate: "invoice://{documentId}/invoices",
		Name:        "invoice-list",
		Description: "All invoices extracted from the document",
	},
	{
		URITemplate: "invoice://{documentId}/invoices/{invoiceIndex}",
		Name:        "invoice",
		Description: "A specific invoice from the document (0-indexed)",
	},
	{
		URITemplate: "invoice://{documentId}/groups",
		Name:        "invoice-groups",
		Description: "Page groups, one per invoice, with the authoritative page for each field",
	},
	{
		URITemplate: "invoice://{documentId}/pages",
		Name:        "invoice-pages",
		Description: "Transcribed text and metadata of every page",
	},
	{
		URITemplate: "invoice://{documentId}/pages/{pageIndex}",
		Name:        "invoice-page",
		Description: "A specific page of the document (1-indexed)",
	},
	{
		URITemplate: "invoice://{documentId}/tokens",
		Name:        "invoice-tokens",
		Description: "Model token usage of the run",
	},
}

func CreateServer(cfg config.Config, log logger.Logger) (*mcp.Server, storage.Store, error) {
	server := mcp.NewServer(&mcp.Implementation{Name: "invoice-parser", Version: "v0.1.0"}, nil)

	store, err := initializeStorage(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	controller, err := operations.NewController(cfg, log)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	creds := documents.ZoteroCredentials{APIKey: cfg.ZoteroAPIKey, LibraryID: cfg.ZoteroLibraryID}

	mcp.AddTool(server, tools.InvoiceParseTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.InvoiceParseQuery) (*mcp.CallToolResult, *tools.InvoiceParseResponse, error) {
		return tools.InvoiceParseToolHandler(ctx, req, query, controller, creds, store, log)
	})

	mcp.AddTool(server, tools.InvoiceExportTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.InvoiceExportQuery) (*mcp.CallToolResult, *tools.InvoiceExportResponse, error) {
		return tools.InvoiceExportToolHandler(ctx, req, query, cfg.OutputPath, store, log)
	})

	mcp.AddTool(server, tools.PageGroupTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.PageGroupQuery) (*mcp.CallToolResult, *tools.PageGroupResponse, error) {
		return tools.PageGroupToolHandler(ctx, req, query, log)
	})

	mcp.AddTool(server, tools.ZoteroInvoiceSearchTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.ZoteroInvoiceSearchQuery) (*mcp.CallToolResult, *tools.ZoteroInvoiceSearchResponse, error) {
		return tools.ZoteroInvoiceSearchToolHandler(ctx, req, query, creds, store, log)
	})

	invoiceResourceHandler := resources.NewInvoiceResourceHandler(store)
	for _, tmpl := range resourceTemplates {
		tmpl.MIMEType = "application/json"
		server.AddResourceTemplate(&tmpl, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return invoiceResourceHandler.ReadResource(ctx, req.Params.URI)
		})
	}

	return server, store, nil
}

// initializeStorage creates and initializes the storage backend
func initializeStorage(cfg config.Config, log logger.Logger) (storage.Store, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		// Default to ~/.invoice-parser/invoices.db
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dbDir := filepath.Join(homeDir, ".invoice-parser")
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dbPath = filepath.Join(dbDir, "invoices.db")
	}

	log.Info("Initializing SQLite database at: %s", dbPath)

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite store: %w", err)
	}

	return store, nil
}

// OpenStore opens the store configured by cfg. The CLI uses it for commands that only read
// stored runs.
func OpenStore(cfg config.Config, log logger.Logger) (storage.Store, error) {
	return initializeStorage(cfg, log)
}
