package documents

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

func TestSplitPdf(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.pdf"))
	if err != nil {
		t.Fatalf("Failed to list sample PDFs: %v", err)
	}

	if len(files) == 0 {
		t.Skip("No sample invoices found in testdata")
	}

	for _, filePath := range files {
		t.Run(filepath.Base(filePath), func(t *testing.T) {
			pdfBytes, err := os.ReadFile(filePath)
			if err != nil {
				t.Fatalf("Failed to read PDF file %s: %v", filePath, err)
			}

			expected, err := PageCount(pdfBytes)
			if err != nil {
				t.Fatalf("PageCount() error = %v", err)
			}

			pages, err := SplitPdf(pdfBytes)
			if err != nil {
				t.Fatalf("SplitPdf() error = %v", err)
			}
			if len(pages) != expected {
				t.Errorf("len(SplitPdf()) = %d, want %d", len(pages), expected)
			}

			for i, pageData := range pages {
				n, err := api.PageCount(bytes.NewReader(pageData), nil)
				if err != nil {
					t.Errorf("page %d is not a valid PDF: %v", i+1, err)
					continue
				}
				if n != 1 {
					t.Errorf("page %d has %d pages, want 1", i+1, n)
				}
			}

			sizes, err := PageSizes(pdfBytes)
			if err != nil {
				t.Fatalf("PageSizes() error = %v", err)
			}
			if len(sizes) != expected {
				t.Errorf("len(PageSizes()) = %d, want %d", len(sizes), expected)
			}
		})
	}
}

func TestPDFInvalidInput(t *testing.T) {
	inputs := map[string][]byte{
		"empty":   {},
		"not pdf": []byte("This is not a PDF"),
	}
	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			if _, err := SplitPdf(data); err == nil {
				t.Error("SplitPdf() error = nil, want error")
			}
			if _, err := PageCount(data); err == nil {
				t.Error("PageCount() error = nil, want error")
			}
			if _, err := PageSizes(data); err == nil {
				t.Error("PageSizes() error = nil, want error")
			}
		})
	}
}
