package models

import "strings"

// normalizeText maps the wire sentinel and blank strings to "".
func normalizeText(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, NotAvailable) {
		return ""
	}
	return s
}

// Normalize rewrites every sentinel string in the invoice to the empty string.
// It is applied once to model output, right after decoding.
func (inv *Invoice) Normalize() {
	inv.InvoiceNumber = normalizeText(inv.InvoiceNumber)
	inv.InvoiceDate = normalizeText(inv.InvoiceDate)
	inv.InvoiceDueDate = normalizeText(inv.InvoiceDueDate)
	inv.SellerDetails.Normalize()
	inv.BuyerDetails.Normalize()
	for i := range inv.Items {
		inv.Items[i].normalize()
	}
	inv.Items = compact(inv.Items, Item.IsEmpty)
	for i := range inv.TotalTax {
		inv.TotalTax[i].normalize()
	}
	inv.TotalTax = compact(inv.TotalTax, TaxComponent.IsEmpty)
}

func (c *CompanyDetails) Normalize() {
	c.Name = normalizeText(c.Name)
	c.Address = normalizeText(c.Address)
	c.State = normalizeText(c.State)
	c.Country = normalizeText(c.Country)
	c.PinCode = normalizeText(c.PinCode)
	c.PhoneNumber = normalizeText(c.PhoneNumber)
	c.Email = normalizeText(c.Email)
	for i := range c.BusinessIDs {
		c.BusinessIDs[i].Type = normalizeText(c.BusinessIDs[i].Type)
		c.BusinessIDs[i].Number = normalizeText(c.BusinessIDs[i].Number)
	}
	c.BusinessIDs = compact(c.BusinessIDs, BusinessID.IsEmpty)
}

func (it *Item) normalize() {
	it.Description = normalizeText(it.Description)
	it.UOM = normalizeText(it.UOM)
	it.HSNCode = normalizeText(it.HSNCode)
	it.Currency = normalizeText(it.Currency)
	for i := range it.Tax {
		it.Tax[i].normalize()
	}
	it.Tax = compact(it.Tax, TaxComponent.IsEmpty)
}

func (t *TaxComponent) normalize() {
	t.Type = normalizeText(t.Type)
}

func compact[T any](list []T, empty func(T) bool) []T {
	if len(list) == 0 {
		return list
	}
	out := list[:0]
	for _, v := range list {
		if !empty(v) {
			out = append(out, v)
		}
	}
	return out
}

func (b BusinessID) IsEmpty() bool {
	return b.Type == "" && b.Number == ""
}

func (t TaxComponent) IsEmpty() bool {
	return t.Type == "" && t.Rate == 0 && t.Amount == 0
}

func (it Item) IsEmpty() bool {
	return it.Description == "" && it.Quantity == 0 && it.Price == 0 && it.Amount == 0
}

func (c CompanyDetails) IsEmpty() bool {
	return c.AvailableDetails() == 0
}

// AvailableDetails counts the populated scalar fields plus non-empty business IDs.
func (c CompanyDetails) AvailableDetails() int {
	count := 0
	for _, v := range []string{c.Name, c.Address, c.State, c.Country, c.PinCode, c.PhoneNumber, c.Email} {
		if v != "" {
			count++
		}
	}
	for _, b := range c.BusinessIDs {
		if !b.IsEmpty() {
			count++
		}
	}
	return count
}

// AvailableDetails is the completeness score used to rank partial extractions of one invoice.
func (inv Invoice) AvailableDetails() int {
	count := 0
	for _, v := range []string{inv.InvoiceNumber, inv.InvoiceDate, inv.InvoiceDueDate} {
		if v != "" {
			count++
		}
	}
	count += inv.SellerDetails.AvailableDetails()
	count += inv.BuyerDetails.AvailableDetails()
	for _, it := range inv.Items {
		if !it.IsEmpty() {
			count++
		}
	}
	for _, t := range inv.TotalTax {
		if !t.IsEmpty() {
			count++
		}
	}
	for _, v := range []float64{inv.TotalCharge, inv.TotalDiscount, inv.TotalAmount, inv.AmountPaid, inv.AmountDue} {
		if v != 0 {
			count++
		}
	}
	return count
}

func (inv Invoice) IsEmpty() bool {
	return inv.AvailableDetails() == 0
}
