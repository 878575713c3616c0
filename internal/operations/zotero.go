package operations

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Epistemic-Technology/zotero/zotero"

	"github.com/RahulDas-dev/invoice-parser/internal/logger"
)

// ZoteroSearchParams contains parameters for finding invoice documents in a Zotero library.
type ZoteroSearchParams struct {
	Query      string   // Quick search text (searches title, creator, year)
	Tags       []string // Filter by tags, e.g. "invoice" or "vendor:acme"
	Collection string   // Filter by collection key (optional)
	Limit      int      // Max results (default 25)
	Sort       string   // Sort field (default "dateModified")
}

// ZoteroItemResult represents a Zotero item with the attachments the parser can read.
type ZoteroItemResult struct {
	Key         string
	Title       string
	ItemType    string
	Date        string
	Attachments []AttachmentInfo
}

// AttachmentInfo contains information about a file attached to a Zotero item.
type AttachmentInfo struct {
	Key         string // Use this as zotero_id in invoice-parse
	Filename    string
	ContentType string // MIME type (e.g., "application/pdf")
	LinkMode    string // imported_file, imported_url, linked_file, linked_url
}

// parseableTypes are the attachment content types the renderer accepts.
var parseableTypes = []string{"application/pdf", "image/png", "image/jpeg"}

// IsParseable reports whether the attachment can be sent to invoice-parse.
func (a AttachmentInfo) IsParseable() bool {
	if slices.Contains(parseableTypes, strings.ToLower(a.ContentType)) {
		return true
	}
	name := strings.ToLower(a.Filename)
	return strings.HasSuffix(name, ".pdf") || strings.HasSuffix(name, ".png") ||
		strings.HasSuffix(name, ".jpg") || strings.HasSuffix(name, ".jpeg")
}

// SearchZoteroInvoices searches a Zotero library and returns the matching items together with
// their parseable attachments. Items without a parseable attachment are dropped.
func SearchZoteroInvoices(ctx context.Context, apiKey, libraryID string, params ZoteroSearchParams, log logger.Logger) ([]ZoteroItemResult, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Zotero API key is required")
	}
	if libraryID == "" {
		return nil, fmt.Errorf("Zotero library ID is required")
	}

	client := zotero.NewClient(libraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(apiKey))

	queryParams := &zotero.QueryParams{
		Q:        params.Query,
		QMode:    "titleCreatorYear",
		Tag:      params.Tags,
		ItemType: []string{"-attachment"},
		Limit:    params.Limit,
		Sort:     params.Sort,
	}
	if queryParams.Limit == 0 {
		queryParams.Limit = 25
	}
	if queryParams.Sort == "" {
		queryParams.Sort = "dateModified"
	}

	var items []zotero.Item
	var err error
	if params.Collection != "" {
		items, err = client.CollectionItems(ctx, params.Collection, queryParams)
		if err != nil {
			log.Error("Failed to search collection %s: %v", params.Collection, err)
			return nil, fmt.Errorf("failed to search collection %s: %w", params.Collection, err)
		}
	} else {
		items, err = client.Items(ctx, queryParams)
		if err != nil {
			log.Error("Failed to search Zotero library: %v", err)
			return nil, fmt.Errorf("failed to search Zotero library: %w", err)
		}
	}

	log.Info("Found %d items in Zotero library", len(items))

	results := make([]ZoteroItemResult, 0, len(items))
	for _, item := range items {
		if item.Data.ItemType == "attachment" {
			continue
		}

		children, err := client.Children(ctx, item.Key, nil)
		if err != nil {
			log.Error("Failed to retrieve children for item %s: %v", item.Key, err)
			continue
		}

		result := ZoteroItemResult{
			Key:      item.Key,
			Title:    item.Data.Title,
			ItemType: item.Data.ItemType,
			Date:     item.Data.DateAdded,
		}
		for _, child := range children {
			if child.Data.ItemType != "attachment" {
				continue
			}
			attachment := AttachmentInfo{
				Key:         child.Key,
				Filename:    child.Data.Filename,
				ContentType: child.Data.ContentType,
				LinkMode:    child.Data.LinkMode,
			}
			if attachment.IsParseable() {
				result.Attachments = append(result.Attachments, attachment)
			}
		}
		if len(result.Attachments) == 0 {
			log.Debug("Skipping item %s: no parseable attachment", item.Key)
			continue
		}

		results = append(results, result)
	}

	log.Info("Returning %d items with parseable attachments", len(results))

	return results, nil
}
