package operations

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/RahulDas-dev/invoice-parser/internal/documents"
	"github.com/RahulDas-dev/invoice-parser/internal/logger"
	"github.com/RahulDas-dev/invoice-parser/internal/storage"
	"github.com/RahulDas-dev/invoice-parser/internal/workflow"
	"github.com/RahulDas-dev/invoice-parser/models"
)

type fakeRunner struct {
	calls int
	state *workflow.WorkflowState
	err   error
}

func (f *fakeRunner) Run(_ context.Context, _ models.DocumentData) (*workflow.WorkflowState, error) {
	f.calls++
	return f.state, f.err
}

func newStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "ops.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

var pdfBytes = []byte("%PDF-1.4\n% invoice fixture\n")

func TestGetOrParseInvoicesCaches(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	runner := &fakeRunner{state: &workflow.WorkflowState{
		RunID:    "run-1",
		Route:    workflow.Simple,
		Invoices: []models.Invoice{{InvoiceNumber: "INV-1", PageNo: "1"}},
	}}
	req := ParseRequest{RawData: pdfBytes, Name: "a.pdf"}

	docID, first, err := GetOrParseInvoices(ctx, req, documents.ZoteroCredentials{}, runner, store, logger.NewNoOpLogger())
	if err != nil {
		t.Fatalf("GetOrParseInvoices() error = %v", err)
	}
	if len(first.Invoices) != 1 || first.Route != "SIMPLE" {
		t.Errorf("first result = %+v, want one invoice on SIMPLE", first)
	}

	secondID, second, err := GetOrParseInvoices(ctx, req, documents.ZoteroCredentials{}, runner, store, logger.NewNoOpLogger())
	if err != nil {
		t.Fatalf("GetOrParseInvoices() second error = %v", err)
	}
	if secondID != docID {
		t.Errorf("document ID = %q, want %q", secondID, docID)
	}
	if runner.calls != 1 {
		t.Errorf("runner calls = %d, want 1", runner.calls)
	}
	if second.RunID != "run-1" || second.Invoices[0].InvoiceNumber != "INV-1" {
		t.Errorf("cached result = %+v", second)
	}

	req.Force = true
	if _, _, err := GetOrParseInvoices(ctx, req, documents.ZoteroCredentials{}, runner, store, logger.NewNoOpLogger()); err != nil {
		t.Fatalf("GetOrParseInvoices() forced error = %v", err)
	}
	if runner.calls != 2 {
		t.Errorf("runner calls after Force = %d, want 2", runner.calls)
	}
}

func TestGetOrParseInvoicesOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		runner     *fakeRunner
		data       []byte
		wantErr    bool
		wantStored bool
	}{
		{
			name: "no invoice is stored",
			runner: &fakeRunner{
				state: &workflow.WorkflowState{RunID: "r", Route: workflow.NoInvoice, Error: "Reject| no invoice found in the document"},
				err:   workflow.ErrNoInvoiceFound,
			},
			data:       pdfBytes,
			wantStored: true,
		},
		{
			name: "failed run is not stored",
			runner: &fakeRunner{
				state: &workflow.WorkflowState{RunID: "r", Error: "ExtractText| boom"},
				err:   &workflow.StageError{Stage: workflow.ExtractText, Err: errors.New("boom")},
			},
			data:    pdfBytes,
			wantErr: true,
		},
		{
			name:    "unknown raw data",
			runner:  &fakeRunner{},
			data:    []byte("plain text"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			docID, _, err := GetOrParseInvoices(ctx, ParseRequest{RawData: tt.data}, documents.ZoteroCredentials{}, tt.runner, store, logger.NewNoOpLogger())
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetOrParseInvoices() error = %v, wantErr %v", err, tt.wantErr)
			}
			docs, err := store.ListDocuments(ctx)
			if err != nil {
				t.Fatalf("ListDocuments() error = %v", err)
			}
			if stored := len(docs) == 1; stored != tt.wantStored {
				t.Errorf("stored = %v, want %v (docID %q)", stored, tt.wantStored, docID)
			}
		})
	}
}
