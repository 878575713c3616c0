package grouping

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/RahulDas-dev/invoice-parser/models"
)

func intPtr(v int) *int { return &v }

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func pagesOf(metas ...models.PageMetadata) []Page {
	pages := make([]Page, len(metas))
	for i, m := range metas {
		m.Extracted = true
		pages[i] = Page{Index: i + 1, Metadata: m}
	}
	return pages
}

func groupPages(groups []models.PageGroup) [][]int {
	out := make([][]int, len(groups))
	for i, g := range groups {
		out[i] = g.Pages
	}
	return out
}

func groupNames(groups []models.PageGroup) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Name
	}
	return out
}

func TestGroup(t *testing.T) {
	tests := []struct {
		name      string
		pages     []Page
		wantPages [][]int
		wantNames []string
	}{
		{
			name: "single page document",
			pages: pagesOf(
				models.PageMetadata{InvoiceNumber: "INV-1", LineItemsPresent: true, TotalInvoiceAmount: amount("10")},
			),
			wantPages: [][]int{{1}},
			wantNames: []string{"INV-1"},
		},
		{
			name: "same invoice number with increasing line items",
			pages: pagesOf(
				models.PageMetadata{InvoiceNumber: "INV-100", LineItemStart: intPtr(1), LineItemEnd: intPtr(10), LineItemsPresent: true, SellerPresent: true, BuyerPresent: true},
				models.PageMetadata{InvoiceNumber: "INV-100", LineItemStart: intPtr(11), LineItemEnd: intPtr(20), LineItemsPresent: true},
				models.PageMetadata{InvoiceNumber: "INV-100", LineItemStart: intPtr(21), LineItemEnd: intPtr(30), LineItemsPresent: true, TotalInvoiceAmount: amount("500")},
			),
			wantPages: [][]int{{1, 2, 3}},
			wantNames: []string{"INV-100"},
		},
		{
			name: "same invoice number with a total on every page",
			pages: pagesOf(
				models.PageMetadata{InvoiceNumber: "INV-100", LineItemsPresent: true, TotalInvoiceAmount: amount("500")},
				models.PageMetadata{InvoiceNumber: "INV-100", LineItemsPresent: true, TotalInvoiceAmount: amount("500")},
				models.PageMetadata{InvoiceNumber: "INV-100", LineItemsPresent: true, TotalInvoiceAmount: amount("500")},
			),
			wantPages: [][]int{{1, 2, 3}},
			wantNames: []string{"INV-100"},
		},
		{
			name: "reset without invoice numbers",
			pages: pagesOf(
				models.PageMetadata{LineItemStart: intPtr(1), LineItemEnd: intPtr(10)},
				models.PageMetadata{LineItemStart: intPtr(11), LineItemEnd: intPtr(20)},
				models.PageMetadata{LineItemStart: intPtr(1), LineItemEnd: intPtr(5), TotalInvoiceAmount: amount("200")},
			),
			wantPages: [][]int{{1, 2}, {3}},
			wantNames: []string{"UNKNOWN_1", "UNKNOWN_2"},
		},
		{
			name: "reset with line items present",
			pages: pagesOf(
				models.PageMetadata{LineItemStart: intPtr(1), LineItemEnd: intPtr(10), LineItemsPresent: true, SellerPresent: true},
				models.PageMetadata{LineItemStart: intPtr(11), LineItemEnd: intPtr(20), LineItemsPresent: true},
				models.PageMetadata{LineItemStart: intPtr(1), LineItemEnd: intPtr(4), LineItemsPresent: true, TotalInvoiceAmount: amount("200")},
			),
			wantPages: [][]int{{1, 2}, {3}},
			wantNames: []string{"UNKNOWN_1", "UNKNOWN_2"},
		},
		{
			name: "no anchors on any page",
			pages: pagesOf(
				models.PageMetadata{},
				models.PageMetadata{},
				models.PageMetadata{},
			),
			wantPages: [][]int{{1, 2, 3}},
			wantNames: []string{"UNKNOWN_1"},
		},
		{
			name: "invoice number only on the first page with weak continuity",
			pages: pagesOf(
				models.PageMetadata{InvoiceNumber: "INV-102", LineItemsPresent: true, SellerPresent: true},
				models.PageMetadata{LineItemsPresent: true},
				models.PageMetadata{LineItemsPresent: true, TotalInvoiceAmount: amount("1200")},
			),
			wantPages: [][]int{{1, 2, 3}},
			wantNames: []string{"INV-102"},
		},
		{
			name: "invoice number on the first page and a later page",
			pages: pagesOf(
				models.PageMetadata{InvoiceNumber: "INV-103", SellerPresent: true, BuyerPresent: true},
				models.PageMetadata{InvoiceNumber: "INV-103", LineItemsPresent: true, TotalInvoiceAmount: amount("80")},
			),
			wantPages: [][]int{{1, 2}},
			wantNames: []string{"INV-103"},
		},
		{
			name: "line-item continuity across a page without invoice number",
			pages: pagesOf(
				models.PageMetadata{InvoiceNumber: "INV-104", LineItemStart: intPtr(1), LineItemEnd: intPtr(8), LineItemsPresent: true},
				models.PageMetadata{LineItemStart: intPtr(9), LineItemEnd: intPtr(16), LineItemsPresent: true},
				models.PageMetadata{InvoiceNumber: "INV-104", LineItemStart: intPtr(17), LineItemEnd: intPtr(24), LineItemsPresent: true, TotalInvoiceAmount: amount("999")},
			),
			wantPages: [][]int{{1, 2, 3}},
			wantNames: []string{"INV-104"},
		},
		{
			name: "continuity without any invoice number",
			pages: pagesOf(
				models.PageMetadata{SellerPresent: true, BuyerPresent: true, LineItemStart: intPtr(1), LineItemEnd: intPtr(7), LineItemsPresent: true},
				models.PageMetadata{LineItemStart: intPtr(8), LineItemEnd: intPtr(12), LineItemsPresent: true, TotalInvoiceAmount: amount("40")},
			),
			wantPages: [][]int{{1, 2}},
			wantNames: []string{"UNKNOWN_1"},
		},
		{
			name: "two invoices back to back",
			pages: pagesOf(
				models.PageMetadata{InvoiceNumber: "INV-200", LineItemsPresent: true},
				models.PageMetadata{InvoiceNumber: "INV-200", LineItemsPresent: true, TotalInvoiceAmount: amount("10")},
				models.PageMetadata{InvoiceNumber: "INV-201", LineItemsPresent: true, TotalInvoiceAmount: amount("20")},
			),
			wantPages: [][]int{{1, 2}, {3}},
			wantNames: []string{"INV-200", "INV-201"},
		},
		{
			name: "invoice number adopted from a continuing page",
			pages: pagesOf(
				models.PageMetadata{LineItemStart: intPtr(1), LineItemEnd: intPtr(5), LineItemsPresent: true, SellerPresent: true},
				models.PageMetadata{InvoiceNumber: "INV-300", LineItemStart: intPtr(6), LineItemEnd: intPtr(9), LineItemsPresent: true, TotalInvoiceAmount: amount("75")},
			),
			wantPages: [][]int{{1, 2}},
			wantNames: []string{"INV-300"},
		},
		{
			name: "repeated invoice number without line-item ranges",
			pages: pagesOf(
				models.PageMetadata{InvoiceNumber: "INV-400", LineItemsPresent: true, SellerPresent: true},
				models.PageMetadata{InvoiceNumber: "INV-400", LineItemsPresent: true},
				models.PageMetadata{InvoiceNumber: "INV-400", LineItemsPresent: true, BuyerPresent: true, TotalInvoiceAmount: amount("300")},
			),
			wantPages: [][]int{{1, 2, 3}},
			wantNames: []string{"INV-400"},
		},
		{
			name: "trailing page continues by line items only",
			pages: pagesOf(
				models.PageMetadata{InvoiceNumber: "INV-500", LineItemStart: intPtr(1), LineItemEnd: intPtr(8), LineItemsPresent: true},
				models.PageMetadata{InvoiceNumber: "INV-500", LineItemStart: intPtr(9), LineItemEnd: intPtr(16), LineItemsPresent: true},
				models.PageMetadata{LineItemStart: intPtr(17), LineItemEnd: intPtr(24), LineItemsPresent: true, TotalInvoiceAmount: amount("640")},
			),
			wantPages: [][]int{{1, 2, 3}},
			wantNames: []string{"INV-500"},
		},
		{
			name: "blank run between two invoices",
			pages: pagesOf(
				models.PageMetadata{InvoiceNumber: "A-1", LineItemsPresent: true, TotalInvoiceAmount: amount("1")},
				models.PageMetadata{},
				models.PageMetadata{},
				models.PageMetadata{InvoiceNumber: "A-2", LineItemsPresent: true, TotalInvoiceAmount: amount("2")},
			),
			wantPages: [][]int{{1}, {2, 3}, {4}},
			wantNames: []string{"A-1", "UNKNOWN_1", "A-2"},
		},
		{
			name: "repeated invoice number after an unrelated invoice stays unique",
			pages: pagesOf(
				models.PageMetadata{InvoiceNumber: "X-1", TotalInvoiceAmount: amount("1")},
				models.PageMetadata{InvoiceNumber: "X-2", TotalInvoiceAmount: amount("2")},
				models.PageMetadata{InvoiceNumber: "X-1", TotalInvoiceAmount: amount("3")},
			),
			wantPages: [][]int{{1}, {2}, {3}},
			wantNames: []string{"X-1", "X-2", "X-1_2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, err := Group(tt.pages)
			if err != nil {
				t.Fatalf("Group() error = %v", err)
			}
			if got := groupPages(groups); !reflect.DeepEqual(got, tt.wantPages) {
				t.Errorf("Group() pages = %v, want %v", got, tt.wantPages)
			}
			if got := groupNames(groups); !reflect.DeepEqual(got, tt.wantNames) {
				t.Errorf("Group() names = %v, want %v", got, tt.wantNames)
			}
			assertPartition(t, tt.pages, groups)
		})
	}
}

// A page that restarts line-item numbering but repeats the open group's invoice number stays in
// that group: the invoice-number match outranks the reset.
func TestGroupInvoiceNumberOutranksLineItemReset(t *testing.T) {
	pages := pagesOf(
		models.PageMetadata{InvoiceNumber: "INV-1", LineItemStart: intPtr(1), LineItemEnd: intPtr(10), LineItemsPresent: true},
		models.PageMetadata{InvoiceNumber: "INV-1", LineItemStart: intPtr(1), LineItemEnd: intPtr(5), LineItemsPresent: true},
	)
	groups, err := Group(pages)
	if err != nil {
		t.Fatalf("Group() error = %v", err)
	}
	if got := groupPages(groups); !reflect.DeepEqual(got, [][]int{{1, 2}}) {
		t.Errorf("Group() pages = %v, want [[1 2]]", got)
	}

	// without the shared number the same reset splits the document
	pages[0].Metadata.InvoiceNumber, pages[1].Metadata.InvoiceNumber = "", ""
	groups, err = Group(pages)
	if err != nil {
		t.Fatalf("Group() error = %v", err)
	}
	if got := groupPages(groups); !reflect.DeepEqual(got, [][]int{{1}, {2}}) {
		t.Errorf("Group() pages without invoice numbers = %v, want [[1] [2]]", got)
	}
}

func assertPartition(t *testing.T, pages []Page, groups []models.PageGroup) {
	t.Helper()
	seen := make(map[int]int)
	for _, g := range groups {
		for _, p := range g.Pages {
			seen[p]++
		}
	}
	if len(seen) != len(pages) {
		t.Errorf("partition covers %d pages, want %d", len(seen), len(pages))
	}
	for _, p := range pages {
		if seen[p.Index] != 1 {
			t.Errorf("page %d appears %d times, want 1", p.Index, seen[p.Index])
		}
	}
}

func TestGroupPartitionTotality(t *testing.T) {
	// every combination of evidence over four pages
	variants := []models.PageMetadata{
		{},
		{InvoiceNumber: "A"},
		{InvoiceNumber: "B", TotalInvoiceAmount: amount("5")},
		{LineItemsPresent: true},
		{LineItemStart: intPtr(1), LineItemEnd: intPtr(3), LineItemsPresent: true},
		{LineItemStart: intPtr(4), LineItemEnd: intPtr(6), LineItemsPresent: true, TotalInvoiceAmount: amount("9")},
	}
	n := len(variants)
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			for c := 0; c < n; c++ {
				for d := 0; d < n; d++ {
					pages := pagesOf(variants[a], variants[b], variants[c], variants[d])
					groups, err := Group(pages)
					if err != nil {
						t.Fatalf("Group() error = %v", err)
					}
					assertPartition(t, pages, groups)
					names := make(map[string]bool)
					for _, g := range groups {
						if names[g.Name] {
							t.Fatalf("duplicate group name %q for %v", g.Name, groupPages(groups))
						}
						names[g.Name] = true
					}
				}
			}
		}
	}
}

func TestGroupUnresolved(t *testing.T) {
	groups, err := Group(pagesOf(models.PageMetadata{}, models.PageMetadata{}))
	if err != nil {
		t.Fatalf("Group() error = %v", err)
	}
	if len(groups) != 1 || !groups[0].Unresolved {
		t.Errorf("Group() = %+v, want one unresolved group", groups)
	}
}

func TestGroupEmptyInput(t *testing.T) {
	groups, err := Group(nil)
	if err != nil {
		t.Fatalf("Group() error = %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("Group(nil) = %v, want no groups", groups)
	}
}

func TestGroupRejectsUnorderedPages(t *testing.T) {
	pages := []Page{{Index: 2}, {Index: 1}}
	if _, err := Group(pages); !errors.Is(err, ErrUnorderedPages) {
		t.Errorf("Group() error = %v, want ErrUnorderedPages", err)
	}
	dup := []Page{{Index: 1}, {Index: 1}}
	if _, err := Group(dup); !errors.Is(err, ErrUnorderedPages) {
		t.Errorf("Group() error = %v, want ErrUnorderedPages", err)
	}
}

func TestGroupRejectsPageIndexBelowOne(t *testing.T) {
	for _, first := range []int{0, -3} {
		pages := []Page{{Index: first}, {Index: 1}}
		if _, err := Group(pages); !errors.Is(err, ErrInvalidPageIndex) {
			t.Errorf("Group() starting at page %d error = %v, want ErrInvalidPageIndex", first, err)
		}
	}
}

func TestPopulateDetails(t *testing.T) {
	pages := pagesOf(
		models.PageMetadata{InvoiceNumber: "INV-9", SellerPresent: true, BuyerPresent: true, InvoiceDatePresent: true, LineItemsPresent: true},
		models.PageMetadata{LineItemsPresent: true, SellerPresent: true},
		models.PageMetadata{TotalInvoiceAmount: amount("100"), TotalTaxPresent: true, AmountDuePresent: true},
	)
	groups, err := Group(pages)
	if err != nil {
		t.Fatalf("Group() error = %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("Group() returned %d groups, want 1", len(groups))
	}
	want := models.GroupDetails{
		InvoiceNumber:      1,
		LineItems:          []int{1, 2},
		TotalInvoiceAmount: 3,
		SellerDetails:      1,
		BuyerDetails:       1,
		InvoiceDate:        1,
		TotalTaxDetails:    3,
		AmountDue:          3,
	}
	if got := groups[0].Details; !reflect.DeepEqual(got, want) {
		t.Errorf("Details = %+v, want %+v", got, want)
	}
}
