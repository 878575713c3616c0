package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Epistemic-Technology/zotero/zotero"

	"github.com/RahulDas-dev/invoice-parser/models"
)

const (
	TypePDF     = "pdf"
	TypePNG     = "png"
	TypeJPEG    = "jpeg"
	TypeUnknown = "unknown"
)

var ErrUnsupportedType = errors.New("unsupported document type")

// ZoteroCredentials identifies the library attachments are downloaded from.
type ZoteroCredentials struct {
	APIKey    string
	LibraryID string
}

// DetectDocumentType determines the type of document from its magic bytes.
func DetectDocumentType(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		return TypePDF
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}):
		return TypePNG
	case bytes.HasPrefix(data, []byte{0xff, 0xd8, 0xff}):
		return TypeJPEG
	default:
		return TypeUnknown
	}
}

// GetData retrieves document data from a source and detects its type. Zotero IDs take
// precedence over URLs, which take precedence over local paths.
func GetData(ctx context.Context, sourceInfo models.SourceInfo, creds ZoteroCredentials) (models.DocumentData, error) {
	var (
		data []byte
		name string
		err  error
	)

	switch {
	case sourceInfo.ZoteroID != "":
		data, err = GetFromZotero(ctx, sourceInfo.ZoteroID, creds)
		name = sourceInfo.ZoteroID
	case sourceInfo.URL != "":
		data, err = GetFromURL(ctx, sourceInfo.URL)
		name = filepath.Base(sourceInfo.URL)
	case sourceInfo.Path != "":
		data, err = os.ReadFile(sourceInfo.Path)
		name = filepath.Base(sourceInfo.Path)
	default:
		return models.DocumentData{}, errors.New("no data provided")
	}
	if err != nil {
		return models.DocumentData{}, fmt.Errorf("failed to read document: %w", err)
	}
	if len(data) == 0 {
		return models.DocumentData{}, errors.New("no data retrieved")
	}

	docType := DetectDocumentType(data)
	if docType == TypeUnknown {
		return models.DocumentData{}, fmt.Errorf("%w: %s", ErrUnsupportedType, name)
	}
	return models.DocumentData{
		Data: data,
		Type: docType,
		Name: name,
	}, nil
}

// GetFromURL fetches document data from a URL
func GetFromURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status fetching %s: %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// GetFromZotero downloads an attachment file from a Zotero library
func GetFromZotero(ctx context.Context, zoteroID string, creds ZoteroCredentials) ([]byte, error) {
	if creds.APIKey == "" || creds.LibraryID == "" {
		return nil, errors.New("ZOTERO_API_KEY and ZOTERO_LIBRARY_ID are required for Zotero sources")
	}
	client := zotero.NewClient(creds.LibraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(creds.APIKey))
	return client.File(ctx, zoteroID)
}
