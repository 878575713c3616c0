package tools

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/RahulDas-dev/invoice-parser/internal/documents"
	"github.com/RahulDas-dev/invoice-parser/internal/grouping"
	"github.com/RahulDas-dev/invoice-parser/internal/logger"
	"github.com/RahulDas-dev/invoice-parser/models"
)

// PageMetadataInput is the per-page evidence accepted by page-group. Amounts are plain strings
// such as "1,200.00".
type PageMetadataInput struct {
	PageIndex          int    `json:"page_index"`
	InvoiceNumber      string `json:"invoice_number,omitempty"`
	LineItemStart      *int   `json:"line_item_start_number,omitempty"`
	LineItemEnd        *int   `json:"line_item_end_number,omitempty"`
	LineItemsPresent   bool   `json:"line_items_present,omitempty"`
	TotalInvoiceAmount string `json:"total_invoice_amount,omitempty"`
	SellerPresent      bool   `json:"seller_details_present,omitempty"`
	BuyerPresent       bool   `json:"buyer_details_present,omitempty"`
}

type PageGroupQuery struct {
	Pages []PageMetadataInput `json:"pages"`
}

type PageGroupResponse struct {
	Groups []models.PageGroup `json:"groups"`
	Count  int                `json:"count"`
}

func PageGroupTool() *mcp.Tool {
	inputschema, err := jsonschema.For[PageGroupQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "page-group",
		Description: "Partition pages into invoice groups from per-page metadata (invoice number, line-item range, totals, seller/buyer presence). Pages must be listed in ascending page_index order starting at 1; an inverted line-item range is ignored. Does not call any model.",
		InputSchema: inputschema,
	}
}

// toPage converts the input the way extraction output is parsed: an inverted line-item range
// is dropped.
func (p PageMetadataInput) toPage() grouping.Page {
	meta := models.PageMetadata{
		InvoiceNumber:      p.InvoiceNumber,
		LineItemStart:      p.LineItemStart,
		LineItemEnd:        p.LineItemEnd,
		LineItemsPresent:   p.LineItemsPresent,
		TotalInvoiceAmount: documents.ParseAmount(p.TotalInvoiceAmount),
		SellerPresent:      p.SellerPresent,
		BuyerPresent:       p.BuyerPresent,
		Extracted:          true,
	}
	meta.DropInvertedRange()
	return grouping.Page{Index: p.PageIndex, Metadata: meta}
}

func PageGroupToolHandler(ctx context.Context, req *mcp.CallToolRequest, query PageGroupQuery, log logger.Logger) (*mcp.CallToolResult, *PageGroupResponse, error) {
	log.Info("page-group tool called with %d pages", len(query.Pages))

	pages := make([]grouping.Page, len(query.Pages))
	for i, p := range query.Pages {
		pages[i] = p.toPage()
	}

	groups, err := grouping.Group(pages)
	if err != nil {
		log.Error("page-group tool failed: %v", err)
		return nil, nil, fmt.Errorf("failed to group pages: %w", err)
	}

	return nil, &PageGroupResponse{Groups: groups, Count: len(groups)}, nil
}
