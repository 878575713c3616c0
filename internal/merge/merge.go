// Package merge consolidates partial extractions of one invoice into a single record.
//
// The binary merge is left-biased: a field keeps the left value unless it is absent, lists are
// concatenated, business IDs are de-duplicated by type and page references are unioned.
package merge

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/RahulDas-dev/invoice-parser/models"
)

// ErrNotInvoice is returned when a merge input is not an invoice record.
var ErrNotInvoice = errors.New("merge input is not an invoice")

// Coalesce returns a unless it is the zero value, in which case it returns b.
// Strings use "" and amounts use 0 as "absent", so a genuine zero amount loses to the right side.
func Coalesce[T comparable](a, b T) T {
	var zero T
	if a != zero {
		return a
	}
	return b
}

// Pair merges b into a, with a taking priority.
func Pair(a, b models.Invoice) models.Invoice {
	return models.Invoice{
		InvoiceNumber:  Coalesce(a.InvoiceNumber, b.InvoiceNumber),
		InvoiceDate:    Coalesce(a.InvoiceDate, b.InvoiceDate),
		InvoiceDueDate: Coalesce(a.InvoiceDueDate, b.InvoiceDueDate),
		SellerDetails:  Company(a.SellerDetails, b.SellerDetails),
		BuyerDetails:   Company(a.BuyerDetails, b.BuyerDetails),
		Items:          concat(a.Items, b.Items),
		TotalTax:       concat(a.TotalTax, b.TotalTax),
		TotalCharge:    Coalesce(a.TotalCharge, b.TotalCharge),
		TotalDiscount:  Coalesce(a.TotalDiscount, b.TotalDiscount),
		TotalAmount:    Coalesce(a.TotalAmount, b.TotalAmount),
		AmountPaid:     Coalesce(a.AmountPaid, b.AmountPaid),
		AmountDue:      Coalesce(a.AmountDue, b.AmountDue),
		PageNo:         PageNo(a.PageNo, b.PageNo),
	}
}

// Company merges two company blocks field by field with a taking priority.
func Company(a, b models.CompanyDetails) models.CompanyDetails {
	return models.CompanyDetails{
		Name:        Coalesce(a.Name, b.Name),
		BusinessIDs: businessIDs(a.BusinessIDs, b.BusinessIDs),
		Address:     Coalesce(a.Address, b.Address),
		State:       Coalesce(a.State, b.State),
		Country:     Coalesce(a.Country, b.Country),
		PinCode:     Coalesce(a.PinCode, b.PinCode),
		PhoneNumber: Coalesce(a.PhoneNumber, b.PhoneNumber),
		Email:       Coalesce(a.Email, b.Email),
	}
}

// businessIDs keeps one entry per identification type, the left entry winning.
func businessIDs(a, b []models.BusinessID) []models.BusinessID {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]models.BusinessID, 0, len(a)+len(b))
	for _, list := range [][]models.BusinessID{a, b} {
		for _, id := range list {
			if id.IsEmpty() {
				continue
			}
			key := strings.ToUpper(strings.TrimSpace(id.Type))
			if key == "" {
				key = "#" + id.Number
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, id)
		}
	}
	return out
}

func concat[T any](a, b []T) []T {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make([]T, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// PageNo unions two hyphen-joined page references, e.g. "1-2" and "3" give "1-2-3".
func PageNo(a, b string) string {
	tokens := append(pageTokens(a), pageTokens(b)...)
	if len(tokens) == 0 {
		return ""
	}
	seen := make(map[string]bool, len(tokens))
	uniq := tokens[:0]
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			uniq = append(uniq, t)
		}
	}
	sort.SliceStable(uniq, func(i, j int) bool { return lessPageToken(uniq[i], uniq[j]) })
	return strings.Join(uniq, "-")
}

func pageTokens(s string) []string {
	var out []string
	for _, t := range strings.Split(s, "-") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// PageTokens returns the page indices referenced by a page_no string, ignoring non-numeric tokens.
func PageTokens(s string) []int {
	var out []int
	for _, t := range pageTokens(s) {
		if n, err := strconv.Atoi(t); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// lessPageToken orders numeric tokens numerically and everything else lexically after them.
func lessPageToken(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

// Fold merges invoices left to right. An empty input gives an empty invoice and a single input is
// returned unchanged.
func Fold(invoices []*models.Invoice) (models.Invoice, error) {
	if err := checkInputs(invoices); err != nil {
		return models.Invoice{}, err
	}
	if len(invoices) == 0 {
		return models.Invoice{}, nil
	}
	result := *invoices[0]
	for _, inv := range invoices[1:] {
		result = Pair(result, *inv)
	}
	return result, nil
}

func checkInputs(invoices []*models.Invoice) error {
	for i, inv := range invoices {
		if inv == nil {
			return fmt.Errorf("%w: input %d is nil", ErrNotInvoice, i)
		}
	}
	return nil
}
