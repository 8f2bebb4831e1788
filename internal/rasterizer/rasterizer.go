// Package rasterizer renders PDF pages to JPEG images for analysis.
package rasterizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/gen2brain/go-fitz"
	"github.com/lehigh-university-libraries/pricer/internal/images"
)

const (
	// Scale is the render scale relative to the PDF's 72 DPI user space
	Scale   = 1.5
	baseDPI = 72.0
)

// ErrInvalidDocument is returned when the input cannot be read as a PDF
var ErrInvalidDocument = errors.New("invalid PDF document")

// Document yields page rasters one at a time
type Document interface {
	NumPages() int
	// Page renders page i (0-based) as a JPEG
	Page(ctx context.Context, i int) ([]byte, error)
	Close() error
}

// Rasterizer opens PDF data
type Rasterizer interface {
	Open(data []byte) (Document, error)
}

// Fitz renders with MuPDF through go-fitz
type Fitz struct {
	DPI     float64
	Quality int
}

// New returns a Fitz rasterizer at Scale and page JPEG quality
func New() *Fitz {
	return &Fitz{
		DPI:     baseDPI * Scale,
		Quality: images.PageQuality,
	}
}

func (f *Fitz) Open(data []byte) (Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidDocument)
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.NumPage() == 0 {
		doc.Close()
		return nil, fmt.Errorf("%w: PDF has no pages", ErrInvalidDocument)
	}
	return &fitzDocument{doc: doc, dpi: f.DPI, quality: f.Quality}, nil
}

type fitzDocument struct {
	doc     *fitz.Document
	dpi     float64
	quality int
}

func (d *fitzDocument) NumPages() int {
	return d.doc.NumPage()
}

func (d *fitzDocument) Page(ctx context.Context, i int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := d.doc.ImageDPI(i, d.dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", i+1, err)
	}
	data, err := images.EncodeJPEG(img, d.quality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode page %d: %w", i+1, err)
	}
	return data, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}
