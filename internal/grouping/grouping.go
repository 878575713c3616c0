// Package grouping partitions the pages of a document into invoice groups using the
// per-page metadata evidence.
//
// A page joins the group opened by the pages before it when one of these holds, checked in order:
//
//  1. its invoice number equals the group's adopted invoice number;
//  2. its first line-item number continues the group's highest line-item number;
//  3. it has line items, the previous page of the group had line items and there is no
//     comparable line-item range (weak continuity).
//
// A page that only adds a total, without a header or its own line-item range, is the last page
// of the open group. A total closes the group on that page. A line-item reset on a page with
// line items or a different invoice number starts a new group. Runs of pages without any
// evidence are collected into one unresolved group each.
package grouping

import (
	"errors"
	"fmt"

	"github.com/RahulDas-dev/invoice-parser/models"
)

var (
	ErrUnorderedPages   = errors.New("pages must be in strictly ascending page order")
	ErrInvalidPageIndex = errors.New("page indices start at 1")
)

// UnknownPrefix names groups without an invoice number.
const UnknownPrefix = "UNKNOWN_"

// Page pairs a 1-based page index with its metadata.
type Page struct {
	Index    int
	Metadata models.PageMetadata
}

type openGroup struct {
	name       string
	pages      []int
	hasRange   bool
	maxEnd     int
	lastItems  bool
	closed     bool
	unresolved bool
}

func (g *openGroup) add(index int, m models.PageMetadata) {
	g.pages = append(g.pages, index)
	if g.name == "" && m.InvoiceNumber != "" {
		g.name = m.InvoiceNumber
	}
	for _, bound := range []*int{m.LineItemStart, m.LineItemEnd} {
		if bound == nil {
			continue
		}
		if !g.hasRange || *bound > g.maxEnd {
			g.maxEnd = *bound
		}
		g.hasRange = true
	}
	g.lastItems = m.LineItemsPresent
	g.closed = m.TotalInvoiceAmount != nil
}

// links reports whether a page with metadata m continues g.
func (g *openGroup) links(m models.PageMetadata) bool {
	if m.InvoiceNumber != "" && m.InvoiceNumber == g.name {
		return true
	}
	if g.closed {
		return false
	}
	if m.InvoiceNumber != "" && g.name != "" {
		return false
	}
	ranged := m.LineItemStart != nil && g.hasRange
	if ranged && m.LineItemsPresent && *m.LineItemStart <= g.maxEnd {
		return false
	}
	if ranged && *m.LineItemStart == g.maxEnd+1 {
		return true
	}
	if m.InvoiceNumber != "" {
		return false
	}
	if m.LineItemsPresent && g.lastItems && !ranged {
		return true
	}
	// a bare summary page (total without header or line-item range) ends the open invoice
	return m.TotalInvoiceAmount != nil && m.LineItemStart == nil && !m.SellerPresent && !m.BuyerPresent
}

type grouper struct {
	meta     map[int]models.PageMetadata
	groups   []models.PageGroup
	used     map[string]int
	unknowns int
}

func (gr *grouper) flush(g *openGroup) {
	if g == nil || len(g.pages) == 0 {
		return
	}
	name := g.name
	if name == "" {
		gr.unknowns++
		name = fmt.Sprintf("%s%d", UnknownPrefix, gr.unknowns)
	}
	gr.used[name]++
	if n := gr.used[name]; n > 1 {
		name = fmt.Sprintf("%s_%d", name, n)
	}
	gr.groups = append(gr.groups, models.PageGroup{
		Name:       name,
		Pages:      g.pages,
		Details:    PopulateDetails(g.pages, gr.meta),
		Unresolved: g.unresolved,
	})
}

// Group partitions pages into invoice groups. Every input page lands in exactly one group and
// groups come back in ascending order of their first page. Pages must be 1-based and strictly
// ascending.
func Group(pages []Page) ([]models.PageGroup, error) {
	if err := checkOrder(pages); err != nil {
		return nil, err
	}
	gr := &grouper{
		meta: make(map[int]models.PageMetadata, len(pages)),
		used: make(map[string]int),
	}
	for _, p := range pages {
		gr.meta[p.Index] = p.Metadata
	}

	var cur *openGroup
	for _, p := range pages {
		m := p.Metadata
		if !m.HasEvidence() {
			if cur != nil && !cur.unresolved {
				gr.flush(cur)
				cur = nil
			}
			if cur == nil {
				cur = &openGroup{unresolved: true}
			}
			cur.pages = append(cur.pages, p.Index)
			continue
		}
		if cur != nil && !cur.unresolved && cur.links(m) {
			cur.add(p.Index, m)
			continue
		}
		gr.flush(cur)
		cur = &openGroup{}
		cur.add(p.Index, m)
	}
	gr.flush(cur)
	return gr.groups, nil
}

func checkOrder(pages []Page) error {
	if len(pages) > 0 && pages[0].Index < 1 {
		return fmt.Errorf("%w: got page %d", ErrInvalidPageIndex, pages[0].Index)
	}
	for i := 1; i < len(pages); i++ {
		if pages[i].Index <= pages[i-1].Index {
			return fmt.Errorf("%w: page %d follows page %d", ErrUnorderedPages, pages[i].Index, pages[i-1].Index)
		}
	}
	return nil
}

// PopulateDetails picks, for every invoice field, the first page in the group whose presence
// flag is set. Line-item details list every page with line items.
func PopulateDetails(pages []int, meta map[int]models.PageMetadata) models.GroupDetails {
	var d models.GroupDetails
	first := func(dst *int, ok bool, page int) {
		if ok && *dst == 0 {
			*dst = page
		}
	}
	for _, page := range pages {
		m, ok := meta[page]
		if !ok {
			continue
		}
		first(&d.InvoiceNumber, m.InvoiceNumber != "", page)
		first(&d.TotalInvoiceAmount, m.TotalInvoiceAmount != nil, page)
		first(&d.SellerDetails, m.SellerPresent, page)
		first(&d.BuyerDetails, m.BuyerPresent, page)
		first(&d.InvoiceDate, m.InvoiceDatePresent, page)
		first(&d.InvoiceDueDate, m.InvoiceDueDatePresent, page)
		first(&d.TotalTaxDetails, m.TotalTaxPresent, page)
		first(&d.TotalCharges, m.TotalChargesPresent, page)
		first(&d.TotalDiscount, m.TotalDiscountPresent, page)
		first(&d.AmountPaid, m.AmountPaidPresent, page)
		first(&d.AmountDue, m.AmountDuePresent, page)
		if m.LineItemsPresent {
			d.LineItems = append(d.LineItems, page)
		}
	}
	return d
}
