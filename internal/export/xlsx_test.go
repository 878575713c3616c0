package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/RahulDas-dev/invoice-parser/models"
)

func TestWriteInvoices(t *testing.T) {
	invoices := []models.Invoice{
		{
			InvoiceNumber: "INV-1",
			InvoiceDate:   "2024-03-01",
			SellerDetails: models.CompanyDetails{
				Name:        "Acme Traders",
				BusinessIDs: []models.BusinessID{{Type: "GSTIN", Number: "29ABCDE1234F1Z5"}},
			},
			TotalTax:    []models.TaxComponent{{Type: "CGST", Amount: 9}, {Type: "SGST", Amount: 9}},
			TotalAmount: 118,
			PageNo:      "1-2",
			Items: []models.Item{
				{SerialNo: 1, Description: "Bolt", Quantity: 10, Amount: 50},
				{SerialNo: 2, Description: "Nut", Quantity: 10, Amount: 50},
			},
		},
		{InvoiceNumber: "INV-2", TotalAmount: 20, PageNo: "3"},
	}
	tokens := []models.TokenCount{{ModelName: "gpt-4.1-mini", PageRef: "P1", RequestTokens: 1200, ResponseTokens: 300}}

	var buf bytes.Buffer
	if err := WriteInvoices(&buf, invoices, tokens); err != nil {
		t.Fatalf("WriteInvoices() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	tests := []struct {
		sheet    string
		wantRows int
		cell     string
		want     string
	}{
		{InvoiceSheet, 3, "A2", "INV-1"},
		{InvoiceSheet, 3, "E2", "GSTIN: 29ABCDE1234F1Z5"},
		{InvoiceSheet, 3, "H2", "18"},
		{InvoiceSheet, 3, "N2", "1-2"},
		{InvoiceSheet, 3, "A3", "INV-2"},
		{ItemSheet, 3, "C3", "Nut"},
		{TokenSheet, 2, "C2", "1200"},
	}
	for _, tt := range tests {
		t.Run(tt.sheet+"!"+tt.cell, func(t *testing.T) {
			rows, err := f.GetRows(tt.sheet)
			if err != nil {
				t.Fatalf("GetRows(%s) error = %v", tt.sheet, err)
			}
			if len(rows) != tt.wantRows {
				t.Errorf("len(GetRows(%s)) = %d, want %d", tt.sheet, len(rows), tt.wantRows)
			}
			got, err := f.GetCellValue(tt.sheet, tt.cell)
			if err != nil {
				t.Fatalf("GetCellValue() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("GetCellValue(%s, %s) = %q, want %q", tt.sheet, tt.cell, got, tt.want)
			}
		})
	}

	if sheets := f.GetSheetList(); len(sheets) != 3 || sheets[0] != InvoiceSheet {
		t.Errorf("GetSheetList() = %v, want [Invoices Items Tokens]", sheets)
	}
}

func TestWriteInvoicesEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteInvoices(&buf, nil, nil); err != nil {
		t.Fatalf("WriteInvoices() error = %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(InvoiceSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("len(GetRows()) = %d, want header only", len(rows))
	}
}
