package documents

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"

	"github.com/RahulDas-dev/invoice-parser/internal/logger"
	"github.com/RahulDas-dev/invoice-parser/models"
)

// RenderOptions bounds and encodes page images.
type RenderOptions struct {
	DPI       float64
	MaxWidth  int
	MaxHeight int
	// Format is "png" or "jpeg".
	Format string
}

// RasterRenderer turns every page of a document into an image. PDFs are rasterised with MuPDF;
// PNG and JPEG inputs become a single page.
type RasterRenderer struct {
	opts RenderOptions
	log  logger.Logger
}

func NewRasterRenderer(opts RenderOptions, log logger.Logger) *RasterRenderer {
	if opts.Format == "jpg" {
		opts.Format = TypeJPEG
	}
	return &RasterRenderer{opts: opts, log: log}
}

// Render returns one page per document page, 1-based and in ascending order.
func (r *RasterRenderer) Render(ctx context.Context, doc models.DocumentData) ([]models.RenderedPage, error) {
	switch doc.Type {
	case TypePNG, TypeJPEG:
		img, err := imaging.Decode(bytes.NewReader(doc.Data), imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
		page, err := r.encode(1, img)
		if err != nil {
			return nil, err
		}
		return []models.RenderedPage{page}, nil
	case TypePDF:
		return r.renderPDF(ctx, doc.Data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, doc.Type)
	}
}

func (r *RasterRenderer) renderPDF(ctx context.Context, data []byte) ([]models.RenderedPage, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	count := doc.NumPage()
	if count == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}
	r.log.Info("Rendering %d pages at %.0f DPI", count, r.opts.DPI)

	pages := make([]models.RenderedPage, 0, count)
	for n := 0; n < count; n++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		img, err := doc.ImageDPI(n, r.opts.DPI)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", n+1, err)
		}
		page, err := r.encode(n+1, img)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func (r *RasterRenderer) encode(index int, img image.Image) (models.RenderedPage, error) {
	b := img.Bounds()
	if b.Dx() > r.opts.MaxWidth || b.Dy() > r.opts.MaxHeight {
		img = imaging.Fit(img, r.opts.MaxWidth, r.opts.MaxHeight, imaging.Lanczos)
		r.log.Debug("Page %d resized from %dx%d to %dx%d", index, b.Dx(), b.Dy(), img.Bounds().Dx(), img.Bounds().Dy())
	}

	format, mime := imaging.PNG, "image/png"
	if r.opts.Format == TypeJPEG {
		format, mime = imaging.JPEG, "image/jpeg"
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return models.RenderedPage{}, fmt.Errorf("failed to encode page %d: %w", index, err)
	}
	return models.RenderedPage{
		Index:    index,
		Data:     buf.Bytes(),
		MIMEType: mime,
		Width:    img.Bounds().Dx(),
		Height:   img.Bounds().Dy(),
	}, nil
}

// PDFPageRenderer sends each page to the extraction model as a single-page PDF.
type PDFPageRenderer struct {
	log logger.Logger
}

func NewPDFPageRenderer(log logger.Logger) *PDFPageRenderer {
	return &PDFPageRenderer{log: log}
}

func (r *PDFPageRenderer) Render(ctx context.Context, doc models.DocumentData) ([]models.RenderedPage, error) {
	if doc.Type != TypePDF {
		return nil, fmt.Errorf("%w: %s (pdf render mode)", ErrUnsupportedType, doc.Type)
	}
	parts, err := SplitPdf(doc.Data)
	if err != nil {
		return nil, err
	}
	sizes, err := PageSizes(doc.Data)
	if err != nil {
		r.log.Warn("Page sizes unavailable: %v", err)
	}
	r.log.Info("Split PDF into %d pages", len(parts))

	pages := make([]models.RenderedPage, len(parts))
	for i, part := range parts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := models.RenderedPage{Index: i + 1, Data: part, MIMEType: "application/pdf"}
		if i < len(sizes) {
			page.Width, page.Height = int(sizes[i].Width), int(sizes[i].Height)
		}
		pages[i] = page
	}
	return pages, nil
}
