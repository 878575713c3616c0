package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/RahulDas-dev/invoice-parser/internal/documents"
	"github.com/RahulDas-dev/invoice-parser/internal/logger"
	"github.com/RahulDas-dev/invoice-parser/internal/operations"
	"github.com/RahulDas-dev/invoice-parser/internal/storage"
)

type ZoteroInvoiceSearchQuery struct {
	Query      string   `json:"query,omitempty"`      // Quick search text (searches title, creator, year)
	Tags       []string `json:"tags,omitempty"`       // Filter by tags
	Collection string   `json:"collection,omitempty"` // Filter by collection key (optional)
	Limit      int      `json:"limit,omitempty"`      // Max results (default 25)
	Sort       string   `json:"sort,omitempty"`       // Sort field (default "dateModified")
}

type ZoteroInvoiceSearchResponse struct {
	Items []ZoteroItemResult `json:"items"`
	Count int                `json:"count"`
}

type ZoteroItemResult struct {
	Key         string           `json:"key"`
	Title       string           `json:"title"`
	ItemType    string           `json:"item_type"`
	Date        string           `json:"date,omitempty"`
	Attachments []AttachmentInfo `json:"attachments,omitempty"`
}

type AttachmentInfo struct {
	Key         string `json:"key"` // Use this as zotero_id in invoice-parse
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	LinkMode    string `json:"link_mode"`
	// DocumentID is set when the attachment has already been parsed.
	DocumentID string `json:"document_id,omitempty"`
}

func ZoteroInvoiceSearchTool() *mcp.Tool {
	inputschema, err := jsonschema.For[ZoteroInvoiceSearchQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "zotero-invoice-search",
		Description: "Search a Zotero library for invoice documents. Returns items that have PDF or image attachments. Use the attachment keys with invoice-parse; attachments that were already parsed carry their document_id.",
		InputSchema: inputschema,
	}
}

func ZoteroInvoiceSearchToolHandler(ctx context.Context, req *mcp.CallToolRequest, query ZoteroInvoiceSearchQuery, creds documents.ZoteroCredentials, store storage.Store, log logger.Logger) (*mcp.CallToolResult, *ZoteroInvoiceSearchResponse, error) {
	log.Info("zotero-invoice-search tool called")

	if creds.APIKey == "" {
		return nil, nil, fmt.Errorf("ZOTERO_API_KEY environment variable not set")
	}
	if creds.LibraryID == "" {
		return nil, nil, fmt.Errorf("ZOTERO_LIBRARY_ID environment variable not set")
	}

	searchParams := operations.ZoteroSearchParams{
		Query:      query.Query,
		Tags:       query.Tags,
		Collection: query.Collection,
		Limit:      query.Limit,
		Sort:       query.Sort,
	}

	items, err := operations.SearchZoteroInvoices(ctx, creds.APIKey, creds.LibraryID, searchParams, log)
	if err != nil {
		return nil, nil, err
	}

	// Map already parsed attachments to their stored documents
	parsed := make(map[string]string)
	docInfos, err := store.ListDocuments(ctx)
	if err != nil {
		log.Error("Failed to list stored documents: %v", err)
	}
	for _, doc := range docInfos {
		if key, ok := strings.CutPrefix(doc.DocumentID, "zotero_"); ok {
			parsed[key] = doc.DocumentID
		}
	}

	results := make([]ZoteroItemResult, len(items))
	for i, item := range items {
		results[i] = ZoteroItemResult{
			Key:      item.Key,
			Title:    item.Title,
			ItemType: item.ItemType,
			Date:     item.Date,
		}
		for _, att := range item.Attachments {
			results[i].Attachments = append(results[i].Attachments, AttachmentInfo{
				Key:         att.Key,
				Filename:    att.Filename,
				ContentType: att.ContentType,
				LinkMode:    att.LinkMode,
				DocumentID:  parsed[att.Key],
			})
		}
	}

	return nil, &ZoteroInvoiceSearchResponse{Items: results, Count: len(results)}, nil
}
