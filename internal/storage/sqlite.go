package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/RahulDas-dev/invoice-parser/models"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database tables if they don't exist
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		route TEXT,
		error TEXT,
		zotero_id TEXT,
		url TEXT,
		path TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS pages (
		document_id TEXT NOT NULL,
		page_index INTEGER NOT NULL,
		width INTEGER,
		height INTEGER,
		content TEXT,
		metadata TEXT,
		invoice TEXT,
		PRIMARY KEY (document_id, page_index),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS page_groups (
		document_id TEXT NOT NULL,
		group_index INTEGER NOT NULL,
		group_name TEXT NOT NULL,
		pages TEXT NOT NULL,
		details TEXT,
		unresolved INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (document_id, group_index),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS invoices (
		document_id TEXT NOT NULL,
		invoice_index INTEGER NOT NULL,
		invoice_number TEXT,
		page_no TEXT,
		total_amount REAL,
		data TEXT NOT NULL,
		PRIMARY KEY (document_id, invoice_index),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS token_usage (
		document_id TEXT NOT NULL,
		entry_index INTEGER NOT NULL,
		model_name TEXT,
		page_ref TEXT,
		request_tokens INTEGER,
		response_tokens INTEGER,
		PRIMARY KEY (document_id, entry_index),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_documents_zotero_id ON documents(zotero_id);
	CREATE INDEX IF NOT EXISTS idx_invoices_number ON invoices(invoice_number);
	`

	_, err := s.db.Exec(schema)
	return err
}

// childTables hold per-document rows. They are cleared explicitly because SQLite only enforces
// ON DELETE CASCADE when foreign keys are switched on for the connection.
var childTables = []string{"pages", "page_groups", "invoices", "token_usage"}

func clearDocument(ctx context.Context, tx *sql.Tx, docID string) error {
	for _, table := range childTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE document_id = ?", docID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// StoreRun stores a finished run under docID
func (s *SQLiteStore) StoreRun(ctx context.Context, docID string, result *models.RunResult, sourceInfo *models.SourceInfo) error {
	if sourceInfo == nil {
		sourceInfo = &models.SourceInfo{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearDocument(ctx, tx, docID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO documents (id, run_id, route, error, zotero_id, url, path)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, docID, result.RunID, result.Route, result.Error,
		sourceInfo.ZoteroID, sourceInfo.URL, sourceInfo.Path)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	// Store pages
	for _, page := range result.Pages {
		metadataJSON, err := json.Marshal(page.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata of page %d: %w", page.Index, err)
		}
		var invoiceJSON sql.NullString
		if page.Invoice != nil {
			b, err := json.Marshal(page.Invoice)
			if err != nil {
				return fmt.Errorf("failed to marshal invoice of page %d: %w", page.Index, err)
			}
			invoiceJSON = sql.NullString{String: string(b), Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO pages (document_id, page_index, width, height, content, metadata, invoice)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, docID, page.Index, page.Width, page.Height, page.Text, string(metadataJSON), invoiceJSON)
		if err != nil {
			return fmt.Errorf("failed to insert page %d: %w", page.Index, err)
		}
	}

	// Store groups
	for i, group := range result.Groups {
		pagesJSON, err := json.Marshal(group.Pages)
		if err != nil {
			return fmt.Errorf("failed to marshal pages of group %s: %w", group.Name, err)
		}
		detailsJSON, err := json.Marshal(group.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal details of group %s: %w", group.Name, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO page_groups (document_id, group_index, group_name, pages, details, unresolved)
			VALUES (?, ?, ?, ?, ?, ?)
		`, docID, i, group.Name, string(pagesJSON), string(detailsJSON), group.Unresolved)
		if err != nil {
			return fmt.Errorf("failed to insert group %d: %w", i, err)
		}
	}

	// Store invoices
	for i, inv := range result.Invoices {
		data, err := json.Marshal(inv)
		if err != nil {
			return fmt.Errorf("failed to marshal invoice %d: %w", i, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO invoices (document_id, invoice_index, invoice_number, page_no, total_amount, data)
			VALUES (?, ?, ?, ?, ?, ?)
		`, docID, i, inv.InvoiceNumber, inv.PageNo, inv.TotalAmount, string(data))
		if err != nil {
			return fmt.Errorf("failed to insert invoice %d: %w", i, err)
		}
	}

	// Store token ledger
	for i, tok := range result.Tokens {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO token_usage (document_id, entry_index, model_name, page_ref, request_tokens, response_tokens)
			VALUES (?, ?, ?, ?, ?, ?)
		`, docID, i, tok.ModelName, tok.PageRef, tok.RequestTokens, tok.ResponseTokens)
		if err != nil {
			return fmt.Errorf("failed to insert token entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetRun retrieves the full stored run for a document
func (s *SQLiteStore) GetRun(ctx context.Context, docID string) (*models.RunResult, error) {
	var result models.RunResult
	var route, runErr sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, route, error FROM documents WHERE id = ?
	`, docID).Scan(&result.RunID, &route, &runErr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", docID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	result.Route = route.String
	result.Error = runErr.String

	if result.Pages, err = s.GetPages(ctx, docID); err != nil {
		return nil, err
	}
	if result.Groups, err = s.GetGroups(ctx, docID); err != nil {
		return nil, err
	}
	if result.Invoices, err = s.GetInvoices(ctx, docID); err != nil {
		return nil, err
	}
	if result.Tokens, err = s.GetTokens(ctx, docID); err != nil {
		return nil, err
	}
	return &result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(row rowScanner) (models.PageRecord, error) {
	var page models.PageRecord
	var width, height sql.NullInt64
	var content, metadataJSON, invoiceJSON sql.NullString
	if err := row.Scan(&page.Index, &width, &height, &content, &metadataJSON, &invoiceJSON); err != nil {
		return page, err
	}
	page.Width = int(width.Int64)
	page.Height = int(height.Int64)
	page.Text = content.String
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &page.Metadata); err != nil {
			return page, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if invoiceJSON.Valid {
		var inv models.Invoice
		if err := json.Unmarshal([]byte(invoiceJSON.String), &inv); err != nil {
			return page, fmt.Errorf("failed to unmarshal page invoice: %w", err)
		}
		page.Invoice = &inv
	}
	return page, nil
}

// GetPages retrieves all page records for a document
func (s *SQLiteStore) GetPages(ctx context.Context, docID string) ([]models.PageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT page_index, width, height, content, metadata, invoice FROM pages
		WHERE document_id = ?
		ORDER BY page_index
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var pages []models.PageRecord
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, page)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pages: %w", err)
	}

	return pages, nil
}

// GetPage retrieves a page by its 1-based page index
func (s *SQLiteStore) GetPage(ctx context.Context, docID string, pageIndex int) (*models.PageRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT page_index, width, height, content, metadata, invoice FROM pages
		WHERE document_id = ? AND page_index = ?
	`, docID, pageIndex)
	page, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page %d of %s: %w", pageIndex, docID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query page: %w", err)
	}
	return &page, nil
}

// GetGroups retrieves the page groups of a document
func (s *SQLiteStore) GetGroups(ctx context.Context, docID string) ([]models.PageGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT group_name, pages, details, unresolved FROM page_groups
		WHERE document_id = ?
		ORDER BY group_index
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []models.PageGroup
	for rows.Next() {
		var group models.PageGroup
		var pagesJSON string
		var detailsJSON sql.NullString
		if err := rows.Scan(&group.Name, &pagesJSON, &detailsJSON, &group.Unresolved); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		if err := json.Unmarshal([]byte(pagesJSON), &group.Pages); err != nil {
			return nil, fmt.Errorf("failed to unmarshal group pages: %w", err)
		}
		if detailsJSON.Valid && detailsJSON.String != "" {
			if err := json.Unmarshal([]byte(detailsJSON.String), &group.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal group details: %w", err)
			}
		}
		groups = append(groups, group)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}

	return groups, nil
}

// GetInvoices retrieves the published invoices of a document
func (s *SQLiteStore) GetInvoices(ctx context.Context, docID string) ([]models.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM invoices
		WHERE document_id = ?
		ORDER BY invoice_index
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []models.Invoice
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		var inv models.Invoice
		if err := json.Unmarshal([]byte(data), &inv); err != nil {
			return nil, fmt.Errorf("failed to unmarshal invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoices: %w", err)
	}

	return invoices, nil
}

// GetInvoice retrieves a specific invoice by index (0-indexed)
func (s *SQLiteStore) GetInvoice(ctx context.Context, docID string, invoiceIndex int) (*models.Invoice, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM invoices
		WHERE document_id = ? AND invoice_index = ?
	`, docID, invoiceIndex).Scan(&data)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invoice %d of %s: %w", invoiceIndex, docID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice: %w", err)
	}

	var inv models.Invoice
	if err := json.Unmarshal([]byte(data), &inv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal invoice: %w", err)
	}
	return &inv, nil
}

// GetTokens retrieves the token ledger of a document's run
func (s *SQLiteStore) GetTokens(ctx context.Context, docID string) ([]models.TokenCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model_name, page_ref, request_tokens, response_tokens FROM token_usage
		WHERE document_id = ?
		ORDER BY entry_index
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to query token usage: %w", err)
	}
	defer rows.Close()

	var tokens []models.TokenCount
	for rows.Next() {
		var tok models.TokenCount
		if err := rows.Scan(&tok.ModelName, &tok.PageRef, &tok.RequestTokens, &tok.ResponseTokens); err != nil {
			return nil, fmt.Errorf("failed to scan token entry: %w", err)
		}
		tokens = append(tokens, tok)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating token usage: %w", err)
	}

	return tokens, nil
}

// ListDocuments returns a list of all stored documents
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]models.DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.run_id, d.route, d.zotero_id, d.url, d.path,
			(SELECT COUNT(*) FROM pages p WHERE p.document_id = d.id),
			(SELECT COUNT(*) FROM invoices i WHERE i.document_id = d.id)
		FROM documents d
		ORDER BY d.created_at DESC, d.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var documents []models.DocumentInfo
	for rows.Next() {
		var doc models.DocumentInfo
		var route, zoteroID, url, path sql.NullString
		if err := rows.Scan(&doc.DocumentID, &doc.RunID, &route, &zoteroID, &url, &path,
			&doc.PageCount, &doc.InvoiceCount); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Route = route.String
		doc.SourceInfo = models.SourceInfo{ZoteroID: zoteroID.String, URL: url.String, Path: path.String}
		documents = append(documents, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return documents, nil
}

// DeleteDocument removes a document and all associated data
func (s *SQLiteStore) DeleteDocument(ctx context.Context, docID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearDocument(ctx, tx, docID); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, docID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("document %s: %w", docID, ErrNotFound)
	}

	return tx.Commit()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)
