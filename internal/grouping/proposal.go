package grouping

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/RahulDas-dev/invoice-parser/models"
)

var ErrInvalidProposal = errors.New("invalid grouping proposal")

// FromProposal converts a proposed grouping into page groups, accepting it only when it is a
// total partition of the given pages. Details the proposal leaves out, or that point outside the
// group, are filled from PopulateDetails.
func FromProposal(proposal models.GroupProposal, pages []Page) ([]models.PageGroup, error) {
	if err := checkOrder(pages); err != nil {
		return nil, err
	}
	if len(proposal) == 0 {
		return nil, fmt.Errorf("%w: no groups", ErrInvalidProposal)
	}

	meta := make(map[int]models.PageMetadata, len(pages))
	for _, p := range pages {
		meta[p.Index] = p.Metadata
	}

	owner := make(map[int]string, len(pages))
	groups := make([]models.PageGroup, 0, len(proposal))
	for name, proposed := range proposal {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: empty group name", ErrInvalidProposal)
		}
		if len(proposed.Pages) == 0 {
			return nil, fmt.Errorf("%w: group %q has no pages", ErrInvalidProposal, name)
		}
		group := models.PageGroup{Name: name, Unresolved: true}
		for _, ref := range proposed.Pages {
			idx, ok := parsePageRef(ref)
			if !ok {
				return nil, fmt.Errorf("%w: group %q has malformed page %q", ErrInvalidProposal, name, ref)
			}
			m, known := meta[idx]
			if !known {
				return nil, fmt.Errorf("%w: group %q references unknown page %d", ErrInvalidProposal, name, idx)
			}
			if prev, dup := owner[idx]; dup {
				return nil, fmt.Errorf("%w: page %d is in both %q and %q", ErrInvalidProposal, idx, prev, name)
			}
			owner[idx] = name
			group.Pages = append(group.Pages, idx)
			if m.HasEvidence() {
				group.Unresolved = false
			}
		}
		sort.Ints(group.Pages)
		group.Details = mergeDetails(parseDetails(proposed.Details, group.Pages), PopulateDetails(group.Pages, meta))
		groups = append(groups, group)
	}

	if len(owner) != len(pages) {
		var missing []int
		for _, p := range pages {
			if _, ok := owner[p.Index]; !ok {
				missing = append(missing, p.Index)
			}
		}
		return nil, fmt.Errorf("%w: pages %v are not grouped", ErrInvalidProposal, missing)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Pages[0] < groups[j].Pages[0] })
	return groups, nil
}

// parsePageRef accepts "P3", "p3", "3" and JSON numbers decoded as float64.
func parsePageRef(v any) (int, bool) {
	switch ref := v.(type) {
	case string:
		s := strings.TrimSpace(ref)
		s = strings.TrimPrefix(strings.TrimPrefix(s, "P"), "p")
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return 0, false
		}
		return n, true
	case float64:
		n := int(ref)
		if float64(n) != ref || n <= 0 {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func parseDetails(raw map[string]any, pages []int) models.GroupDetails {
	var d models.GroupDetails
	if len(raw) == 0 {
		return d
	}
	inGroup := make(map[int]bool, len(pages))
	for _, p := range pages {
		inGroup[p] = true
	}
	single := func(key string) int {
		v, ok := raw[key]
		if !ok {
			return 0
		}
		// some models answer with a one-element list
		if list, isList := v.([]any); isList && len(list) > 0 {
			v = list[0]
		}
		n, ok := parsePageRef(v)
		if !ok || !inGroup[n] {
			return 0
		}
		return n
	}

	d.InvoiceNumber = single("invoice_number")
	d.TotalInvoiceAmount = single("total_invoice_amount")
	d.SellerDetails = single("seller_details")
	d.BuyerDetails = single("buyer_details")
	d.InvoiceDate = single("invoice_date")
	d.InvoiceDueDate = single("invoice_due_date")
	d.TotalTaxDetails = single("total_tax_details")
	d.TotalCharges = single("total_charges")
	d.TotalDiscount = single("total_discount")
	d.AmountPaid = single("amount_paid")
	d.AmountDue = single("amount_due")

	if list, ok := raw["line_item_details"].([]any); ok {
		for _, v := range list {
			if n, ok := parsePageRef(v); ok && inGroup[n] {
				d.LineItems = append(d.LineItems, n)
			}
		}
		sort.Ints(d.LineItems)
	}
	return d
}

// mergeDetails keeps every page reference set in primary and fills the rest from fallback.
func mergeDetails(primary, fallback models.GroupDetails) models.GroupDetails {
	pick := func(a, b int) int {
		if a != 0 {
			return a
		}
		return b
	}
	out := models.GroupDetails{
		InvoiceNumber:      pick(primary.InvoiceNumber, fallback.InvoiceNumber),
		TotalInvoiceAmount: pick(primary.TotalInvoiceAmount, fallback.TotalInvoiceAmount),
		SellerDetails:      pick(primary.SellerDetails, fallback.SellerDetails),
		BuyerDetails:       pick(primary.BuyerDetails, fallback.BuyerDetails),
		InvoiceDate:        pick(primary.InvoiceDate, fallback.InvoiceDate),
		InvoiceDueDate:     pick(primary.InvoiceDueDate, fallback.InvoiceDueDate),
		TotalTaxDetails:    pick(primary.TotalTaxDetails, fallback.TotalTaxDetails),
		TotalCharges:       pick(primary.TotalCharges, fallback.TotalCharges),
		TotalDiscount:      pick(primary.TotalDiscount, fallback.TotalDiscount),
		AmountPaid:         pick(primary.AmountPaid, fallback.AmountPaid),
		AmountDue:          pick(primary.AmountDue, fallback.AmountDue),
		LineItems:          primary.LineItems,
	}
	if len(out.LineItems) == 0 {
		out.LineItems = fallback.LineItems
	}
	return out
}
