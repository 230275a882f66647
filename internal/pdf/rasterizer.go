package pdf

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

const defaultRenderDPI = 150

// Rasterizer renders whole pages. It is used for scanned pages that carry
// neither text nor image paint operations of their own.
type Rasterizer interface {
	Open(path string) (RasterDocument, error)
}

// RasterDocument is an open document that can render its pages.
type RasterDocument interface {
	// RenderPage renders the 1-based page.
	RenderPage(page int) (image.Image, error)
	Close() error
}

// FitzRasterizer renders pages with MuPDF.
type FitzRasterizer struct {
	dpi float64
}

// NewFitzRasterizer creates a rasterizer rendering at dpi.
func NewFitzRasterizer(dpi float64) *FitzRasterizer {
	if dpi <= 0 {
		dpi = defaultRenderDPI
	}
	return &FitzRasterizer{dpi: dpi}
}

// Open opens the document at path.
func (r *FitzRasterizer) Open(path string) (RasterDocument, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open for rendering: %w", err)
	}
	return &fitzDocument{doc: doc, dpi: r.dpi}, nil
}

type fitzDocument struct {
	doc *fitz.Document
	dpi float64
}

func (d *fitzDocument) RenderPage(page int) (image.Image, error) {
	if page < 1 || page > d.doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range", page)
	}
	img, err := d.doc.ImageDPI(page-1, d.dpi)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}
