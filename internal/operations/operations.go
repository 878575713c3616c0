package operations

import (
	"context"
	"errors"
	"fmt"

	"github.com/RahulDas-dev/invoice-parser/internal/documents"
	"github.com/RahulDas-dev/invoice-parser/internal/logger"
	"github.com/RahulDas-dev/invoice-parser/internal/storage"
	"github.com/RahulDas-dev/invoice-parser/internal/workflow"
	"github.com/RahulDas-dev/invoice-parser/models"
)

// Runner runs one document through the extraction workflow.
type Runner interface {
	Run(ctx context.Context, doc models.DocumentData) (*workflow.WorkflowState, error)
}

// ParseRequest names the document to parse. Exactly one of the source fields or RawData is
// expected; RawData wins when set.
type ParseRequest struct {
	Source  models.SourceInfo
	RawData []byte
	Name    string
	// Force re-runs the workflow even when a stored run exists.
	Force bool
}

// GetOrParseInvoices returns the stored run for a document if it exists, or fetches the
// document, runs the workflow and stores the outcome. This function encapsulates the common
// logic shared by the CLI and the MCP tools.
//
// Successful runs and documents without invoices are stored; failed runs are returned with
// their error and are not cached, so a later request retries them.
//
// Returns:
//   - documentID: The generated document ID
//   - result: The stored or freshly produced run
//   - error: Any error encountered; workflow.ErrNoInvoiceFound is not reported as an error
func GetOrParseInvoices(
	ctx context.Context,
	req ParseRequest,
	creds documents.ZoteroCredentials,
	runner Runner,
	store storage.Store,
	log logger.Logger,
) (string, *models.RunResult, error) {
	var data models.DocumentData
	var err error
	if req.RawData != nil {
		data = models.DocumentData{
			Data: req.RawData,
			Type: documents.DetectDocumentType(req.RawData),
			Name: req.Name,
		}
		if data.Type == documents.TypeUnknown {
			return "", nil, fmt.Errorf("%w: raw data", documents.ErrUnsupportedType)
		}
	} else {
		data, err = documents.GetData(ctx, req.Source, creds)
		if err != nil {
			return "", nil, fmt.Errorf("failed to fetch document data: %w", err)
		}
	}

	docID := storage.GenerateDocumentID(&req.Source, data.Data)

	if !req.Force {
		stored, err := store.GetRun(ctx, docID)
		switch {
		case err == nil:
			log.Info("Using stored run %s for document %s", stored.RunID, docID)
			return docID, stored, nil
		case !errors.Is(err, storage.ErrNotFound):
			return "", nil, fmt.Errorf("failed to check stored run: %w", err)
		}
	}

	st, err := runner.Run(ctx, data)
	if st == nil {
		return docID, nil, fmt.Errorf("failed to extract invoices: %w", err)
	}
	result := st.Result()
	if err != nil && !errors.Is(err, workflow.ErrNoInvoiceFound) {
		return docID, &result, fmt.Errorf("failed to extract invoices: %w", err)
	}

	if err := store.StoreRun(ctx, docID, &result, &req.Source); err != nil {
		return "", nil, fmt.Errorf("failed to store run: %w", err)
	}
	log.Info("Stored run %s for document %s: %d invoices", result.RunID, docID, len(result.Invoices))

	return docID, &result, nil
}
