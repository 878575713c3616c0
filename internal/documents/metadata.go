package documents

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/RahulDas-dev/invoice-parser/models"
)

var (
	jsonBlockPattern = regexp.MustCompile("(?is)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	headingPatterns  = []*regexp.Regexp{
		regexp.MustCompile(`(?im)^\s*#+\s*structured text output\s*$\n?`),
		regexp.MustCompile(`(?im)^\s*#+\s*json output\s*$\n?`),
	}

	invoiceNumberPattern = regexp.MustCompile(`(?i)"invoice_number"\s*:\s*"([^"]*)"`)
	startPattern         = regexp.MustCompile(`(?i)"line_item_start_number"\s*:\s*"?(\d+)`)
	endPattern           = regexp.MustCompile(`(?i)"line_item_end_number"\s*:\s*"?(\d+)`)

	// quoted values run to the closing quote; bare values may hold digit-grouping commas
	totalPattern  = regexp.MustCompile(`(?i)"total_(?:invoice_)?amount"\s*:\s*(?:"([^"]*)"|((?:[^,}\n]|,\d)*))`)
	amountPattern = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?`)
)

func flagPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)"` + key + `"\s*:\s*"?(true|false)`)
}

var flagFields = []struct {
	pattern *regexp.Regexp
	set     func(*models.PageMetadata, bool)
}{
	{flagPattern("line_items_present"), func(m *models.PageMetadata, v bool) { m.LineItemsPresent = v }},
	{flagPattern("seller_details_present"), func(m *models.PageMetadata, v bool) { m.SellerPresent = v }},
	{flagPattern("buyer_details_present"), func(m *models.PageMetadata, v bool) { m.BuyerPresent = v }},
	{flagPattern("invoice_date_present"), func(m *models.PageMetadata, v bool) { m.InvoiceDatePresent = v }},
	{flagPattern("invoice_due_date_present"), func(m *models.PageMetadata, v bool) { m.InvoiceDueDatePresent = v }},
	{flagPattern("total_tax_details_present"), func(m *models.PageMetadata, v bool) { m.TotalTaxPresent = v }},
	{flagPattern("total_charges_present"), func(m *models.PageMetadata, v bool) { m.TotalChargesPresent = v }},
	{flagPattern("total_discount_present"), func(m *models.PageMetadata, v bool) { m.TotalDiscountPresent = v }},
	{flagPattern("amount_paid_present"), func(m *models.PageMetadata, v bool) { m.AmountPaidPresent = v }},
	{flagPattern("amount_due_present"), func(m *models.PageMetadata, v bool) { m.AmountDuePresent = v }},
}

// ParsePageMetadata reads the first fenced JSON block in the extraction output. The block is
// matched field by field so that slightly malformed JSON still yields what it can. Without a
// block the zero metadata is returned, with Extracted unset.
func ParsePageMetadata(output string) models.PageMetadata {
	match := jsonBlockPattern.FindStringSubmatch(output)
	if match == nil {
		return models.PageMetadata{}
	}
	block := match[1]
	meta := models.PageMetadata{Extracted: true}

	if m := invoiceNumberPattern.FindStringSubmatch(block); m != nil {
		meta.InvoiceNumber = cleanValue(m[1])
	}
	meta.LineItemStart = intField(startPattern, block)
	meta.LineItemEnd = intField(endPattern, block)
	meta.DropInvertedRange()
	if m := totalPattern.FindStringSubmatch(block); m != nil {
		meta.TotalInvoiceAmount = ParseAmount(m[1] + m[2])
	}
	for _, f := range flagFields {
		if m := f.pattern.FindStringSubmatch(block); m != nil {
			f.set(&meta, strings.EqualFold(m[1], "true"))
		}
	}
	return meta
}

// ParseAmount reads an amount such as "1,200.00", "12,34,567.00" or "₹ 450". The first number in
// the value is used. Sentinels and values without a number give nil.
func ParseAmount(raw string) *decimal.Decimal {
	v := cleanValue(raw)
	if v == "" {
		return nil
	}
	num := amountPattern.FindString(v)
	if num == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(num, ",", ""))
	if err != nil {
		return nil
	}
	return &d
}

func cleanValue(raw string) string {
	v := strings.TrimSpace(raw)
	switch strings.ToLower(v) {
	case "", "null", "none", strings.ToLower(models.NotAvailable):
		return ""
	}
	return v
}

func intField(p *regexp.Regexp, block string) *int {
	m := p.FindStringSubmatch(block)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

// StripMetadataBlock removes the JSON block and the output section headings from the extraction output.
func StripMetadataBlock(output string) string {
	cleaned := jsonBlockPattern.ReplaceAllString(output, "")
	for _, p := range headingPatterns {
		cleaned = p.ReplaceAllString(cleaned, "")
	}
	return strings.TrimSpace(cleaned)
}

// FormatPageText frames a page transcription with its page number.
func FormatPageText(index int, content string) string {
	return fmt.Sprintf("Page No %d\n\n%s", index, content)
}

// SplitExtraction separates an extraction output into framed page text and metadata.
func SplitExtraction(index int, output string) (string, models.PageMetadata) {
	return FormatPageText(index, StripMetadataBlock(output)), ParsePageMetadata(output)
}
