// Package export writes invoices and token usage to XLSX workbooks.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/RahulDas-dev/invoice-parser/models"
)

const (
	InvoiceSheet = "Invoices"
	ItemSheet    = "Items"
	TokenSheet   = "Tokens"
)

var (
	invoiceHeaders = []string{
		"Invoice Number", "Invoice Date", "Due Date", "Seller", "Seller IDs", "Buyer", "Buyer IDs",
		"Total Tax", "Total Charge", "Total Discount", "Total Amount", "Amount Paid", "Amount Due", "Pages",
	}
	itemHeaders = []string{
		"Invoice Number", "Sl No", "Description", "HSN Code", "Quantity", "UOM", "Price",
		"Tax", "Discount", "Amount", "Currency", "Inventory",
	}
	tokenHeaders = []string{"Model", "Page", "Request Tokens", "Response Tokens"}
)

// sheetWriter writes rows to one sheet, starting below the header.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
}

func newSheet(f *excelize.File, sheet string, headers []string) (*sheetWriter, error) {
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
	}
	w := &sheetWriter{f: f, sheet: sheet, row: 1}
	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := w.write(values...); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *sheetWriter) write(values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	if err := w.f.SetSheetRow(w.sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", w.row, w.sheet, err)
	}
	w.row++
	return nil
}

func businessIDs(ids []models.BusinessID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id.Type+": "+id.Number)
	}
	return strings.Join(parts, "; ")
}

func taxTotal(components []models.TaxComponent) float64 {
	var sum float64
	for _, t := range components {
		sum += t.Amount
	}
	return sum
}

// WriteInvoices writes a workbook with an invoice sheet, a line-item sheet and a token usage sheet.
func WriteInvoices(out io.Writer, invoices []models.Invoice, tokens []models.TokenCount) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", InvoiceSheet); err != nil {
		return fmt.Errorf("failed to name invoice sheet: %w", err)
	}
	invSheet, err := newSheet(f, InvoiceSheet, invoiceHeaders)
	if err != nil {
		return err
	}
	itemSheet, err := newSheet(f, ItemSheet, itemHeaders)
	if err != nil {
		return err
	}
	tokSheet, err := newSheet(f, TokenSheet, tokenHeaders)
	if err != nil {
		return err
	}

	for _, inv := range invoices {
		err := invSheet.write(
			inv.InvoiceNumber, inv.InvoiceDate, inv.InvoiceDueDate,
			inv.SellerDetails.Name, businessIDs(inv.SellerDetails.BusinessIDs),
			inv.BuyerDetails.Name, businessIDs(inv.BuyerDetails.BusinessIDs),
			taxTotal(inv.TotalTax), inv.TotalCharge, inv.TotalDiscount, inv.TotalAmount,
			inv.AmountPaid, inv.AmountDue, inv.PageNo,
		)
		if err != nil {
			return err
		}
		for _, it := range inv.Items {
			err := itemSheet.write(
				inv.InvoiceNumber, it.SerialNo, it.Description, it.HSNCode, it.Quantity, it.UOM, it.Price,
				taxTotal(it.Tax), it.Discount, it.Amount, it.Currency, it.InventoryFlag,
			)
			if err != nil {
				return err
			}
		}
	}

	for _, tok := range tokens {
		if err := tokSheet.write(tok.ModelName, tok.PageRef, tok.RequestTokens, tok.ResponseTokens); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(InvoiceSheet, "A", "C", 16)
	_ = f.SetColWidth(InvoiceSheet, "D", "G", 28)
	_ = f.SetColWidth(ItemSheet, "C", "C", 48)

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
