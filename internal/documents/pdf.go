package documents

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageSize is a page's media box in PDF points.
type PageSize struct {
	Width  float64
	Height float64
}

func readPDF(data []byte) (*model.Context, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	return ctx, nil
}

// PageCount validates the PDF and returns its number of pages.
func PageCount(data []byte) (int, error) {
	ctx, err := readPDF(data)
	if err != nil {
		return 0, err
	}
	return ctx.PageCount, nil
}

// PageSizes returns the dimensions of every page in order.
func PageSizes(data []byte) ([]PageSize, error) {
	ctx, err := readPDF(data)
	if err != nil {
		return nil, err
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}
	sizes := make([]PageSize, len(dims))
	for i, d := range dims {
		sizes[i] = PageSize{Width: d.Width, Height: d.Height}
	}
	return sizes, nil
}

// SplitPdf splits a PDF document into single-page PDFs, in page order.
func SplitPdf(data []byte) ([][]byte, error) {
	ctx, err := readPDF(data)
	if err != nil {
		return nil, err
	}
	pages := make([][]byte, 0, ctx.PageCount)
	for pageNum := 1; pageNum <= ctx.PageCount; pageNum++ {
		pageReader, err := api.ExtractPage(ctx, pageNum)
		if err != nil {
			return nil, fmt.Errorf("failed to extract page %d: %w", pageNum, err)
		}
		pageData, err := io.ReadAll(pageReader)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", pageNum, err)
		}
		pages = append(pages, pageData)
	}
	return pages, nil
}
