package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/RahulDas-dev/invoice-parser/internal/storage"
)

const scheme = "invoice://"

// InvoiceResourceHandler handles resource requests for stored invoice runs
type InvoiceResourceHandler struct {
	store storage.Store
}

// NewInvoiceResourceHandler creates a new invoice resource handler
func NewInvoiceResourceHandler(store storage.Store) *InvoiceResourceHandler {
	return &InvoiceResourceHandler{store: store}
}

// ListResources returns the top-level resources of every stored document
func (h *InvoiceResourceHandler) ListResources(ctx context.Context) ([]*mcp.Resource, error) {
	docs, err := h.store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	var resources []*mcp.Resource
	for _, doc := range docs {
		resources = append(resources,
			&mcp.Resource{
				URI:         scheme + doc.DocumentID,
				Name:        doc.DocumentID,
				Description: fmt.Sprintf("Invoice run %s: %d invoices from %d pages (%s)", doc.RunID, doc.InvoiceCount, doc.PageCount, doc.Route),
				MIMEType:    "application/json",
			},
			&mcp.Resource{
				URI:         scheme + doc.DocumentID + "/invoices",
				Name:        doc.DocumentID + " (Invoices)",
				Description: "All invoices extracted from the document",
				MIMEType:    "application/json",
			},
		)
	}

	return resources, nil
}

// ReadResource reads a specific resource by URI
func (h *InvoiceResourceHandler) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	// Parse URI: invoice://doc_id/resource_type/optional_index
	if !strings.HasPrefix(uri, scheme) {
		return nil, fmt.Errorf("invalid URI scheme, expected %s", scheme)
	}

	parts := strings.Split(strings.TrimPrefix(uri, scheme), "/")
	docID := parts[0]
	if docID == "" {
		return nil, fmt.Errorf("invalid URI, missing document ID")
	}

	resourceType := ""
	index := -1
	if len(parts) > 1 {
		resourceType = parts[1]
	}
	if len(parts) > 2 {
		var err error
		index, err = strconv.Atoi(parts[2])
		if err != nil || index < 0 {
			return nil, fmt.Errorf("invalid index: %s", parts[2])
		}
	}
	if len(parts) > 3 {
		return nil, fmt.Errorf("invalid URI: %s", uri)
	}

	var value any
	var err error

	switch resourceType {
	case "":
		value, err = h.getDocumentSummary(ctx, docID)
	case "invoices":
		if index >= 0 {
			value, err = h.store.GetInvoice(ctx, docID, index)
		} else {
			value, err = h.store.GetInvoices(ctx, docID)
		}
	case "pages":
		if index >= 0 {
			value, err = h.store.GetPage(ctx, docID, index)
		} else {
			value, err = h.store.GetPages(ctx, docID)
		}
	case "groups":
		value, err = h.store.GetGroups(ctx, docID)
	case "tokens":
		value, err = h.getTokens(ctx, docID)
	default:
		return nil, fmt.Errorf("unknown resource type: %s", resourceType)
	}

	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", resourceType, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}

func (h *InvoiceResourceHandler) getDocumentSummary(ctx context.Context, docID string) (map[string]any, error) {
	run, err := h.store.GetRun(ctx, docID)
	if err != nil {
		return nil, err
	}

	numbers := make([]string, len(run.Invoices))
	for i, inv := range run.Invoices {
		numbers[i] = inv.InvoiceNumber
	}

	summary := map[string]any{
		"document_id":         docID,
		"run_id":              run.RunID,
		"route":               run.Route,
		"page_count":          len(run.Pages),
		"group_count":         len(run.Groups),
		"invoice_count":       len(run.Invoices),
		"invoice_numbers":     numbers,
		"available_resources": storage.CalculateResourcePaths(docID, run),
	}
	if run.Error != "" {
		summary["error"] = run.Error
	}
	return summary, nil
}

func (h *InvoiceResourceHandler) getTokens(ctx context.Context, docID string) (map[string]any, error) {
	tokens, err := h.store.GetTokens(ctx, docID)
	if err != nil {
		return nil, err
	}

	var request, response int64
	for _, t := range tokens {
		request += t.RequestTokens
		response += t.ResponseTokens
	}

	return map[string]any{
		"entries":         tokens,
		"request_tokens":  request,
		"response_tokens": response,
	}, nil
}
