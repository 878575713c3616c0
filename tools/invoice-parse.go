package tools

import (
	"context"
	"errors"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/RahulDas-dev/invoice-parser/internal/documents"
	"github.com/RahulDas-dev/invoice-parser/internal/logger"
	"github.com/RahulDas-dev/invoice-parser/internal/operations"
	"github.com/RahulDas-dev/invoice-parser/internal/storage"
	"github.com/RahulDas-dev/invoice-parser/models"
)

type InvoiceParseQuery struct {
	ZoteroID string `json:"zotero_id,omitempty"`
	URL      string `json:"url,omitempty"`
	Path     string `json:"path,omitempty"`
	RawData  []byte `json:"raw_data,omitempty"`
	Force    bool   `json:"force,omitempty"`
}

type InvoiceParseResponse struct {
	DocumentID    string   `json:"document_id"`
	ResourcePaths []string `json:"resource_paths"`
	Route         string   `json:"route"`
	PageCount     int      `json:"page_count"`
	GroupCount    int      `json:"group_count"`
	InvoiceCount  int      `json:"invoice_count"`
	// InvoiceNumbers lists the published invoices in order; empty numbers are kept as "".
	InvoiceNumbers []string `json:"invoice_numbers,omitempty"`
	Message        string   `json:"message,omitempty"`
}

func InvoiceParseTool() *mcp.Tool {
	inputschema, err := jsonschema.For[InvoiceParseQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "invoice-parse",
		Description: "Extract structured invoices from a PDF or image (Zotero attachment key, URL, local path or raw bytes). Pages are transcribed with a vision model, grouped into invoices and merged. Results are cached by document; set force to re-run. Returns resource paths for the invoices, groups, pages and token usage.",
		InputSchema: inputschema,
	}
}

func InvoiceParseToolHandler(
	ctx context.Context,
	req *mcp.CallToolRequest,
	query InvoiceParseQuery,
	runner operations.Runner,
	creds documents.ZoteroCredentials,
	store storage.Store,
	log logger.Logger,
) (*mcp.CallToolResult, *InvoiceParseResponse, error) {
	log.Info("invoice-parse tool called")

	if query.ZoteroID == "" && query.URL == "" && query.Path == "" && query.RawData == nil {
		return nil, nil, errors.New("one of zotero_id, url, path or raw_data is required")
	}

	parseReq := operations.ParseRequest{
		Source:  models.SourceInfo{ZoteroID: query.ZoteroID, URL: query.URL, Path: query.Path},
		RawData: query.RawData,
		Force:   query.Force,
	}
	docID, result, err := operations.GetOrParseInvoices(ctx, parseReq, creds, runner, store, log)
	if err != nil {
		log.Error("invoice-parse tool failed: %v", err)
		return nil, nil, err
	}

	response := &InvoiceParseResponse{
		DocumentID:    docID,
		ResourcePaths: storage.CalculateResourcePaths(docID, result),
		Route:         result.Route,
		PageCount:     len(result.Pages),
		GroupCount:    len(result.Groups),
		InvoiceCount:  len(result.Invoices),
		Message:       result.Error,
	}
	for _, inv := range result.Invoices {
		response.InvoiceNumbers = append(response.InvoiceNumbers, inv.InvoiceNumber)
	}

	return nil, response, nil
}
