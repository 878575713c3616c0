package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/RahulDas-dev/invoice-parser/internal/export"
	"github.com/RahulDas-dev/invoice-parser/internal/logger"
	"github.com/RahulDas-dev/invoice-parser/internal/storage"
	"github.com/RahulDas-dev/invoice-parser/models"
)

type InvoiceExportQuery struct {
	DocumentIDs []string `json:"document_ids,omitempty"`
	OutputPath  string   `json:"output_path,omitempty"` // .xlsx file; defaults to a timestamped file in the output directory
}

type InvoiceExportResponse struct {
	Path          string   `json:"path"`
	DocumentCount int      `json:"document_count"`
	InvoiceCount  int      `json:"invoice_count"`
	Missing       []string `json:"missing,omitempty"`
}

func InvoiceExportTool() *mcp.Tool {
	inputschema, err := jsonschema.For[InvoiceExportQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "invoice-export",
		Description: "Export stored invoices to an XLSX workbook with Invoices, Items and Tokens sheets. If document_ids are specified, exports only those documents; otherwise exports every stored document. Documents must have been parsed with invoice-parse first.",
		InputSchema: inputschema,
	}
}

func InvoiceExportToolHandler(ctx context.Context, req *mcp.CallToolRequest, query InvoiceExportQuery, outputDir string, store storage.Store, log logger.Logger) (*mcp.CallToolResult, *InvoiceExportResponse, error) {
	log.Info("invoice-export tool called")

	documentIDs := query.DocumentIDs
	if len(documentIDs) == 0 {
		docInfos, err := store.ListDocuments(ctx)
		if err != nil {
			log.Error("Failed to list documents: %v", err)
			return nil, nil, fmt.Errorf("failed to list documents: %w", err)
		}
		for _, docInfo := range docInfos {
			documentIDs = append(documentIDs, docInfo.DocumentID)
		}
		log.Info("Exporting all %d stored documents", len(documentIDs))
	}

	var invoices []models.Invoice
	var tokens []models.TokenCount
	var missing []string
	for _, docID := range documentIDs {
		docInvoices, err := store.GetInvoices(ctx, docID)
		if err != nil {
			log.Warn("Skipping document %s: %v", docID, err)
			missing = append(missing, docID)
			continue
		}
		docTokens, err := store.GetTokens(ctx, docID)
		if err != nil {
			log.Warn("No token usage for document %s: %v", docID, err)
		}
		invoices = append(invoices, docInvoices...)
		tokens = append(tokens, docTokens...)
	}

	path := query.OutputPath
	if path == "" {
		if outputDir == "" {
			outputDir = "."
		}
		path = filepath.Join(outputDir, fmt.Sprintf("invoices-%s.xlsx", time.Now().Format("20060102-150405")))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := export.WriteInvoices(f, invoices, tokens); err != nil {
		log.Error("Failed to write workbook: %v", err)
		return nil, nil, err
	}

	log.Info("Exported %d invoices to %s", len(invoices), path)

	return nil, &InvoiceExportResponse{
		Path:          path,
		DocumentCount: len(documentIDs) - len(missing),
		InvoiceCount:  len(invoices),
		Missing:       missing,
	}, nil
}
