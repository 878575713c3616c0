package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/RahulDas-dev/invoice-parser/models"
)

// ErrNotFound is returned when a document, page, group or invoice is not stored.
var ErrNotFound = errors.New("not found")

// Store defines the interface for storing and retrieving finished document runs
type Store interface {
	// StoreRun stores a finished run under docID, replacing any earlier run of the same document
	StoreRun(ctx context.Context, docID string, result *models.RunResult, sourceInfo *models.SourceInfo) error

	// GetRun retrieves the full stored run for a document
	GetRun(ctx context.Context, docID string) (*models.RunResult, error)

	// GetPages retrieves all page records for a document in page order
	GetPages(ctx context.Context, docID string) ([]models.PageRecord, error)

	// GetPage retrieves a page by its 1-based page index
	GetPage(ctx context.Context, docID string, pageIndex int) (*models.PageRecord, error)

	// GetGroups retrieves the page groups of a document
	GetGroups(ctx context.Context, docID string) ([]models.PageGroup, error)

	// GetInvoices retrieves the published invoices of a document
	GetInvoices(ctx context.Context, docID string) ([]models.Invoice, error)

	// GetInvoice retrieves a specific invoice by index (0-indexed)
	GetInvoice(ctx context.Context, docID string, invoiceIndex int) (*models.Invoice, error)

	// GetTokens retrieves the token ledger of a document's run
	GetTokens(ctx context.Context, docID string) ([]models.TokenCount, error)

	// ListDocuments returns all stored documents, newest first
	ListDocuments(ctx context.Context) ([]models.DocumentInfo, error)

	// DeleteDocument removes a document and all associated data
	DeleteDocument(ctx context.Context, docID string) error

	// Close closes the database connection
	Close() error
}

// GenerateDocumentID derives a stable document ID from where the document came from. Local files
// and raw uploads are content addressed so the same bytes always map to the same ID.
func GenerateDocumentID(sourceInfo *models.SourceInfo, data []byte) string {
	if sourceInfo != nil && sourceInfo.ZoteroID != "" {
		return "zotero_" + sourceInfo.ZoteroID
	}
	if sourceInfo != nil && sourceInfo.URL != "" {
		return "url_" + shortHash([]byte(sourceInfo.URL))
	}
	return "sha256_" + shortHash(data)
}

func shortHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:12])
}
