package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// NotAvailable is the wire sentinel the extraction and structuring models use for a missing value.
// It never survives Normalize; inside the program an absent string is "".
const NotAvailable = "NOT_AVAILABLE"

// NoInvoiceFound is emitted by the extraction model instead of a transcription when a page is not an invoice.
const NoInvoiceFound = "NO_INVOICE_FOUND"

// Invoice is one structured invoice record, either for a single page or consolidated across pages.
type Invoice struct {
	InvoiceNumber  string         `json:"invoice_number,omitempty"`
	InvoiceDate    string         `json:"invoice_date,omitempty"`
	InvoiceDueDate string         `json:"invoice_due_date,omitempty"`
	SellerDetails  CompanyDetails `json:"seller_details"`
	BuyerDetails   CompanyDetails `json:"buyer_details"`
	Items          []Item         `json:"items,omitempty"`
	TotalTax       []TaxComponent `json:"total_tax,omitempty"`
	TotalCharge    float64        `json:"total_charge,omitempty"`
	TotalDiscount  float64        `json:"total_discount,omitempty"`
	TotalAmount    float64        `json:"total_amount,omitempty"`
	AmountPaid     float64        `json:"amount_paid,omitempty"`
	AmountDue      float64        `json:"amount_due,omitempty"`
	PageNo         string         `json:"page_no,omitempty"`
}

type CompanyDetails struct {
	Name        string       `json:"name,omitempty"`
	BusinessIDs []BusinessID `json:"BIN_Details,omitempty"`
	Address     string       `json:"address,omitempty"`
	State       string       `json:"state,omitempty"`
	Country     string       `json:"country,omitempty"`
	PinCode     string       `json:"pin_code,omitempty"`
	PhoneNumber string       `json:"phone_number,omitempty"`
	Email       string       `json:"email,omitempty"`
}

// BusinessID is a business identification pair such as GSTIN, PAN or CIN.
type BusinessID struct {
	Type   string `json:"BIN_Type,omitempty"`
	Number string `json:"BIN_Number,omitempty"`
}

type Item struct {
	SerialNo      int            `json:"slno"`
	Description   string         `json:"description,omitempty"`
	InventoryFlag bool           `json:"inventory_flag"`
	Quantity      float64        `json:"quantity,omitempty"`
	UOM           string         `json:"UOM,omitempty"`
	HSNCode       string         `json:"HSN_CODE,omitempty"`
	Price         float64        `json:"price,omitempty"`
	Tax           []TaxComponent `json:"tax,omitempty"`
	Discount      float64        `json:"discount,omitempty"`
	Amount        float64        `json:"amount,omitempty"`
	Currency      string         `json:"currency,omitempty"`
}

type TaxComponent struct {
	Type   string  `json:"Tax_Type,omitempty"`
	Rate   float64 `json:"Tax_Rate,omitempty"`
	Amount float64 `json:"Tax_Amount,omitempty"`
}

// PageMetadata is the per-page evidence record parsed out of the extraction output.
// Nil pointers mean the value was not observed on the page.
type PageMetadata struct {
	InvoiceNumber      string           `json:"invoice_number,omitempty"`
	LineItemStart      *int             `json:"line_item_start_number,omitempty"`
	LineItemEnd        *int             `json:"line_item_end_number,omitempty"`
	LineItemsPresent   bool             `json:"line_items_present"`
	TotalInvoiceAmount *decimal.Decimal `json:"total_invoice_amount,omitempty"`
	SellerPresent      bool             `json:"seller_details_present"`
	BuyerPresent       bool             `json:"buyer_details_present"`

	InvoiceDatePresent    bool `json:"invoice_date_present"`
	InvoiceDueDatePresent bool `json:"invoice_due_date_present"`
	TotalTaxPresent       bool `json:"total_tax_details_present"`
	TotalChargesPresent   bool `json:"total_charges_present"`
	TotalDiscountPresent  bool `json:"total_discount_present"`
	AmountPaidPresent     bool `json:"amount_paid_present"`
	AmountDuePresent      bool `json:"amount_due_present"`

	// Extracted is set when the values came from a metadata block in the model output.
	Extracted bool `json:"extracted"`
}

// DropInvertedRange clears both line-item bounds when the start lies past the end.
func (m *PageMetadata) DropInvertedRange() {
	if m.LineItemStart != nil && m.LineItemEnd != nil && *m.LineItemStart > *m.LineItemEnd {
		m.LineItemStart, m.LineItemEnd = nil, nil
	}
}

// IsEmpty reports whether no metadata block was found for the page.
func (m PageMetadata) IsEmpty() bool {
	return !m.Extracted
}

// HasEvidence reports whether the page carries any signal the grouping engine can use.
// Auxiliary presence flags do not count.
func (m PageMetadata) HasEvidence() bool {
	return m.InvoiceNumber != "" ||
		m.LineItemStart != nil ||
		m.LineItemEnd != nil ||
		m.LineItemsPresent ||
		m.TotalInvoiceAmount != nil ||
		m.SellerPresent ||
		m.BuyerPresent
}

// PageRecord is everything known about one page during a run.
type PageRecord struct {
	Index    int          `json:"page_index"`
	Width    int          `json:"width,omitempty"`
	Height   int          `json:"height,omitempty"`
	Text     string       `json:"text_content,omitempty"`
	Metadata PageMetadata `json:"metadata"`
	Invoice  *Invoice     `json:"invoice,omitempty"`
}

// IsInvoicePage reports whether the page has text, is not a negative result and carries metadata.
func (p PageRecord) IsInvoicePage() bool {
	return p.Text != "" && !strings.Contains(p.Text, NoInvoiceFound) && !p.Metadata.IsEmpty()
}

// PageRef is the label used for a page in proposals and the token ledger.
func PageRef(index int) string {
	return fmt.Sprintf("P%d", index)
}

// PageGroup is a cluster of pages believed to form one invoice.
type PageGroup struct {
	Name       string       `json:"group_name"`
	Pages      []int        `json:"pages"`
	Details    GroupDetails `json:"details"`
	Unresolved bool         `json:"unresolved,omitempty"`
}

func (g PageGroup) Size() int { return len(g.Pages) }

func (g PageGroup) IsMultiPage() bool { return len(g.Pages) > 1 }

// PageNo renders the group's pages in the same hyphen-joined form Invoice.PageNo uses.
func (g PageGroup) PageNo() string {
	parts := make([]string, len(g.Pages))
	for i, p := range g.Pages {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, "-")
}

// GroupDetails records which page is authoritative for each invoice field. Zero means no page.
type GroupDetails struct {
	InvoiceNumber      int   `json:"invoice_number,omitempty"`
	LineItems          []int `json:"line_item_details,omitempty"`
	TotalInvoiceAmount int   `json:"total_invoice_amount,omitempty"`
	SellerDetails      int   `json:"seller_details,omitempty"`
	BuyerDetails       int   `json:"buyer_details,omitempty"`
	InvoiceDate        int   `json:"invoice_date,omitempty"`
	InvoiceDueDate     int   `json:"invoice_due_date,omitempty"`
	TotalTaxDetails    int   `json:"total_tax_details,omitempty"`
	TotalCharges       int   `json:"total_charges,omitempty"`
	TotalDiscount      int   `json:"total_discount,omitempty"`
	AmountPaid         int   `json:"amount_paid,omitempty"`
	AmountDue          int   `json:"amount_due,omitempty"`
}

// TokenCount is one model call's usage.
type TokenCount struct {
	ModelName      string `json:"model_name"`
	PageRef        string `json:"page_no"`
	RequestTokens  int64  `json:"request_tokens"`
	ResponseTokens int64  `json:"response_tokens"`
}

// RenderedPage is one page ready to send to the extraction model.
type RenderedPage struct {
	Index    int
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

type DocumentData struct {
	Data []byte
	Type string
	Name string
}

// SourceInfo contains information about where the document came from
type SourceInfo struct {
	ZoteroID string `json:"zotero_id,omitempty"`
	URL      string `json:"url,omitempty"`
	Path     string `json:"path,omitempty"`
}

// DocumentInfo contains basic information about a stored run
type DocumentInfo struct {
	DocumentID   string     `json:"document_id"`
	RunID        string     `json:"run_id"`
	Route        string     `json:"route"`
	PageCount    int        `json:"page_count"`
	InvoiceCount int        `json:"invoice_count"`
	SourceInfo   SourceInfo `json:"source_info,omitempty"`
}

// RunResult is the published outcome of one document run.
type RunResult struct {
	RunID    string       `json:"run_id"`
	Route    string       `json:"route"`
	Pages    []PageRecord `json:"pages"`
	Groups   []PageGroup  `json:"groups,omitempty"`
	Invoices []Invoice    `json:"invoices"`
	Tokens   []TokenCount `json:"tokens,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// GroupProposal is a model-suggested grouping keyed by group name.
type GroupProposal map[string]ProposedGroup

type ProposedGroup struct {
	Pages   []string       `json:"pages"`
	Details map[string]any `json:"details,omitempty"`
}

// PageExtraction is the extraction model's output for one page, split into text and metadata.
type PageExtraction struct {
	Text     string
	Metadata PageMetadata
	Usage    TokenCount
}
