package workflow

import "github.com/RahulDas-dev/invoice-parser/models"

// Route is the branch taken after text extraction.
type Route int

const (
	RouteUnknown Route = iota
	NoInvoice
	Simple
	Grouped
)

func (r Route) String() string {
	switch r {
	case NoInvoice:
		return "NO_INVOICE"
	case Simple:
		return "SIMPLE"
	case Grouped:
		return "GROUPED"
	default:
		return ""
	}
}

// Classify routes a document. No valid invoice page rejects it; as many valid pages as distinct
// invoice numbers means every invoice sits on its own page; anything else needs grouping.
func Classify(pages []models.PageRecord) Route {
	valid := 0
	numbers := make(map[string]struct{})
	for _, p := range pages {
		if !p.IsInvoicePage() {
			continue
		}
		valid++
		if n := p.Metadata.InvoiceNumber; n != "" {
			numbers[n] = struct{}{}
		}
	}
	switch {
	case valid == 0:
		return NoInvoice
	case valid == len(numbers):
		return Simple
	default:
		return Grouped
	}
}

// InvoicePages returns the valid invoice pages in input order.
func InvoicePages(pages []models.PageRecord) []models.PageRecord {
	out := make([]models.PageRecord, 0, len(pages))
	for _, p := range pages {
		if p.IsInvoicePage() {
			out = append(out, p)
		}
	}
	return out
}
