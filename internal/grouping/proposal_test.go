package grouping

import (
	"errors"
	"reflect"
	"testing"

	"github.com/RahulDas-dev/invoice-parser/models"
)

func TestFromProposal(t *testing.T) {
	pages := pagesOf(
		models.PageMetadata{InvoiceNumber: "INV-7", SellerPresent: true, LineItemsPresent: true},
		models.PageMetadata{LineItemsPresent: true, TotalInvoiceAmount: amount("70")},
		models.PageMetadata{InvoiceNumber: "INV-8", LineItemsPresent: true, TotalInvoiceAmount: amount("80")},
	)

	tests := []struct {
		name      string
		proposal  models.GroupProposal
		wantPages [][]int
		wantErr   bool
	}{
		{
			name: "valid partition",
			proposal: models.GroupProposal{
				"INV-8": {Pages: []string{"P3"}},
				"INV-7": {Pages: []string{"P2", "P1"}},
			},
			wantPages: [][]int{{1, 2}, {3}},
		},
		{
			name: "bare page numbers",
			proposal: models.GroupProposal{
				"INV-7": {Pages: []string{"1", "2"}},
				"INV-8": {Pages: []string{"3"}},
			},
			wantPages: [][]int{{1, 2}, {3}},
		},
		{
			name: "page left out",
			proposal: models.GroupProposal{
				"INV-7": {Pages: []string{"P1", "P2"}},
			},
			wantErr: true,
		},
		{
			name: "page in two groups",
			proposal: models.GroupProposal{
				"INV-7": {Pages: []string{"P1", "P2"}},
				"INV-8": {Pages: []string{"P2", "P3"}},
			},
			wantErr: true,
		},
		{
			name: "unknown page",
			proposal: models.GroupProposal{
				"INV-7": {Pages: []string{"P1", "P2"}},
				"INV-8": {Pages: []string{"P3", "P4"}},
			},
			wantErr: true,
		},
		{
			name: "malformed page",
			proposal: models.GroupProposal{
				"INV-7": {Pages: []string{"P1", "P2"}},
				"INV-8": {Pages: []string{"third"}},
			},
			wantErr: true,
		},
		{
			name:     "empty proposal",
			proposal: models.GroupProposal{},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, err := FromProposal(tt.proposal, pages)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidProposal) {
					t.Fatalf("FromProposal() error = %v, want ErrInvalidProposal", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromProposal() error = %v", err)
			}
			if got := groupPages(groups); !reflect.DeepEqual(got, tt.wantPages) {
				t.Errorf("FromProposal() pages = %v, want %v", got, tt.wantPages)
			}
			assertPartition(t, pages, groups)
		})
	}
}

func TestFromProposalDetails(t *testing.T) {
	pages := pagesOf(
		models.PageMetadata{InvoiceNumber: "INV-7", SellerPresent: true, LineItemsPresent: true},
		models.PageMetadata{LineItemsPresent: true, BuyerPresent: true, TotalInvoiceAmount: amount("70")},
	)
	proposal := models.GroupProposal{
		"INV-7": {
			Pages: []string{"P1", "P2"},
			Details: map[string]any{
				"invoice_number":       "P2",
				"total_invoice_amount": []any{"P2"},
				"seller_details":       "P9",
			},
		},
	}

	groups, err := FromProposal(proposal, pages)
	if err != nil {
		t.Fatalf("FromProposal() error = %v", err)
	}
	got := groups[0].Details
	if got.InvoiceNumber != 2 {
		t.Errorf("InvoiceNumber page = %d, want 2 from the proposal", got.InvoiceNumber)
	}
	if got.TotalInvoiceAmount != 2 {
		t.Errorf("TotalInvoiceAmount page = %d, want 2", got.TotalInvoiceAmount)
	}
	if got.SellerDetails != 1 {
		t.Errorf("SellerDetails page = %d, want 1 from the metadata", got.SellerDetails)
	}
	if got.BuyerDetails != 2 {
		t.Errorf("BuyerDetails page = %d, want 2 from the metadata", got.BuyerDetails)
	}
	if !reflect.DeepEqual(got.LineItems, []int{1, 2}) {
		t.Errorf("LineItems = %v, want [1 2]", got.LineItems)
	}
}
