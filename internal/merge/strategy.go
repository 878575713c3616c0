package merge

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/RahulDas-dev/invoice-parser/models"
)

var ErrUnknownStrategy = errors.New("unknown merge strategy")

// Kind selects a merge strategy.
type Kind int

const (
	// Classic folds in caller order.
	Classic Kind = iota
	// Smart folds the most complete record first.
	Smart
	// Details folds like Smart, then takes each field from the page the group details name.
	Details
)

var kindNames = map[Kind]string{
	Classic: "classic",
	Smart:   "smart",
	Details: "details",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a configuration value to a Kind.
func ParseKind(name string) (Kind, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == needle {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q (expected classic, smart or details)", ErrUnknownStrategy, name)
}

// Merger consolidates the partial invoices of one group. The inputs are expected in ascending
// page order.
type Merger interface {
	Merge(invoices []*models.Invoice, details models.GroupDetails) (models.Invoice, error)
	Kind() Kind
}

// New returns the Merger for k.
func New(k Kind) (Merger, error) {
	switch k {
	case Classic:
		return classicMerger{}, nil
	case Smart:
		return smartMerger{}, nil
	case Details:
		return detailsMerger{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, k)
	}
}

// NewFromName parses name and returns the matching Merger.
func NewFromName(name string) (Merger, error) {
	k, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	return New(k)
}

type classicMerger struct{}

func (classicMerger) Kind() Kind { return Classic }

func (classicMerger) Merge(invoices []*models.Invoice, _ models.GroupDetails) (models.Invoice, error) {
	return Fold(invoices)
}

type smartMerger struct{}

func (smartMerger) Kind() Kind { return Smart }

func (smartMerger) Merge(invoices []*models.Invoice, _ models.GroupDetails) (models.Invoice, error) {
	return Fold(byCompleteness(invoices))
}

// byCompleteness orders invoices by descending completeness score; ties keep caller order.
func byCompleteness(invoices []*models.Invoice) []*models.Invoice {
	if len(invoices) < 2 {
		return invoices
	}
	sorted := slices.Clone(invoices)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i] == nil || sorted[j] == nil {
			return false
		}
		return sorted[i].AvailableDetails() > sorted[j].AvailableDetails()
	})
	return sorted
}

type detailsMerger struct{}

func (detailsMerger) Kind() Kind { return Details }

func (detailsMerger) Merge(invoices []*models.Invoice, details models.GroupDetails) (models.Invoice, error) {
	base, err := Fold(byCompleteness(invoices))
	if err != nil || len(invoices) < 2 {
		return base, err
	}

	from := func(page int) *models.Invoice {
		if page == 0 {
			return nil
		}
		for _, inv := range invoices {
			if slices.Contains(PageTokens(inv.PageNo), page) {
				return inv
			}
		}
		return nil
	}

	if src := from(details.InvoiceNumber); src != nil {
		base.InvoiceNumber = Coalesce(src.InvoiceNumber, base.InvoiceNumber)
	}
	if src := from(details.InvoiceDate); src != nil {
		base.InvoiceDate = Coalesce(src.InvoiceDate, base.InvoiceDate)
	}
	if src := from(details.InvoiceDueDate); src != nil {
		base.InvoiceDueDate = Coalesce(src.InvoiceDueDate, base.InvoiceDueDate)
	}
	if src := from(details.SellerDetails); src != nil {
		base.SellerDetails = Company(src.SellerDetails, base.SellerDetails)
	}
	if src := from(details.BuyerDetails); src != nil {
		base.BuyerDetails = Company(src.BuyerDetails, base.BuyerDetails)
	}
	if src := from(details.TotalInvoiceAmount); src != nil {
		base.TotalAmount = Coalesce(src.TotalAmount, base.TotalAmount)
	}
	if src := from(details.TotalTaxDetails); src != nil && len(src.TotalTax) > 0 {
		base.TotalTax = slices.Clone(src.TotalTax)
	}
	if src := from(details.TotalCharges); src != nil {
		base.TotalCharge = Coalesce(src.TotalCharge, base.TotalCharge)
	}
	if src := from(details.TotalDiscount); src != nil {
		base.TotalDiscount = Coalesce(src.TotalDiscount, base.TotalDiscount)
	}
	if src := from(details.AmountPaid); src != nil {
		base.AmountPaid = Coalesce(src.AmountPaid, base.AmountPaid)
	}
	if src := from(details.AmountDue); src != nil {
		base.AmountDue = Coalesce(src.AmountDue, base.AmountDue)
	}
	if items := lineItemsFrom(invoices, details.LineItems); len(items) > 0 {
		base.Items = items
	}
	return base, nil
}

// lineItemsFrom collects items from the invoices covering the given pages, in input order.
func lineItemsFrom(invoices []*models.Invoice, pages []int) []models.Item {
	if len(pages) == 0 {
		return nil
	}
	var items []models.Item
	for _, inv := range invoices {
		for _, p := range PageTokens(inv.PageNo) {
			if slices.Contains(pages, p) {
				items = append(items, inv.Items...)
				break
			}
		}
	}
	return items
}
