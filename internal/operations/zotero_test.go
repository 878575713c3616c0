package operations

import (
	"context"
	"os"
	"testing"

	"github.com/RahulDas-dev/invoice-parser/internal/logger"
)

// getZoteroCredentials retrieves Zotero credentials from environment.
// Skips the test if credentials are not available.
func getZoteroCredentials(t *testing.T) (apiKey, libraryID string) {
	apiKey = os.Getenv("ZOTERO_API_KEY")
	libraryID = os.Getenv("ZOTERO_LIBRARY_ID")

	if apiKey == "" || libraryID == "" {
		t.Skip("ZOTERO_API_KEY and ZOTERO_LIBRARY_ID not set, skipping integration test")
	}

	return apiKey, libraryID
}

func TestSearchZoteroInvoices_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	apiKey, libraryID := getZoteroCredentials(t)
	ctx := context.Background()
	log := logger.NewNoOpLogger()

	tests := []struct {
		name   string
		params ZoteroSearchParams
	}{
		{
			name:   "Basic search with limit",
			params: ZoteroSearchParams{Limit: 5},
		},
		{
			name:   "Search by tag",
			params: ZoteroSearchParams{Tags: []string{"invoice"}, Limit: 5},
		},
		{
			name:   "Search with sort",
			params: ZoteroSearchParams{Limit: 5, Sort: "title"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := SearchZoteroInvoices(ctx, apiKey, libraryID, tt.params, log)
			if err != nil {
				t.Fatalf("SearchZoteroInvoices failed: %v", err)
			}

			t.Logf("Found %d items", len(results))

			for i, item := range results {
				if item.Key == "" {
					t.Errorf("Item %d has empty Key", i)
				}
				if len(item.Attachments) == 0 {
					t.Errorf("Item %d returned without parseable attachments", i)
				}
				for j, att := range item.Attachments {
					if !att.IsParseable() {
						t.Errorf("Item %d attachment %d (%s) is not parseable", i, j, att.ContentType)
					}
				}
			}
		})
	}
}

func TestSearchZoteroInvoices_MissingCredentials(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNoOpLogger()

	tests := []struct {
		name      string
		apiKey    string
		libraryID string
		wantError string
	}{
		{
			name:      "Missing API key",
			apiKey:    "",
			libraryID: "12345",
			wantError: "Zotero API key is required",
		},
		{
			name:      "Missing library ID",
			apiKey:    "test-key",
			libraryID: "",
			wantError: "Zotero library ID is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SearchZoteroInvoices(ctx, tt.apiKey, tt.libraryID, ZoteroSearchParams{Limit: 5}, log)
			if err == nil {
				t.Fatal("Expected error but got none")
			}

			if err.Error() != tt.wantError {
				t.Errorf("Expected error %q, got %q", tt.wantError, err.Error())
			}
		})
	}
}

func TestAttachmentIsParseable(t *testing.T) {
	tests := []struct {
		name string
		att  AttachmentInfo
		want bool
	}{
		{"pdf content type", AttachmentInfo{ContentType: "application/pdf"}, true},
		{"upper-case content type", AttachmentInfo{ContentType: "IMAGE/PNG"}, true},
		{"jpeg by file name", AttachmentInfo{Filename: "scan.JPG"}, true},
		{"html snapshot", AttachmentInfo{ContentType: "text/html", Filename: "page.html"}, false},
		{"empty", AttachmentInfo{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.att.IsParseable(); got != tt.want {
				t.Errorf("IsParseable() = %v, want %v", got, tt.want)
			}
		})
	}
}
