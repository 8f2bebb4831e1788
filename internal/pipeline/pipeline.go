// Package pipeline turns an uploaded PDF into catalog products, one page at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/pricer/internal/catalog"
	"github.com/lehigh-university-libraries/pricer/internal/models"
	"github.com/lehigh-university-libraries/pricer/internal/rasterizer"
)

// FailureMessage is shown for any run-level failure
const FailureMessage = "Error al procesar. Verifica tu API Key o si el PDF es válido."

// ErrConfiguration wraps credential problems detected before a run starts
var ErrConfiguration = errors.New("configuration error")

// Extractor finds product candidates on a page image
type Extractor interface {
	Ready() error
	Extract(ctx context.Context, page []byte) []models.Candidate
}

// Cropper cuts a product photo out of a page image; nil means no photo
type Cropper func(page []byte, box []float64) []byte

// Sink receives each page's products as soon as the page is done
type Sink interface {
	SetFileName(name string)
	Append(products ...models.Product)
}

// Deps are the collaborators of a run
type Deps struct {
	Rasterizer rasterizer.Rasterizer
	Extractor  Extractor
	Crop       Cropper
	Catalog    Sink
	// NewID defaults to catalog.NewID
	NewID func() string
}

// Result summarizes a completed run
type Result struct {
	Pages    int
	Products int
}

// Run rasterizes pdf and processes its pages strictly in order. A page whose
// extraction fails contributes no products; an unreadable document aborts
// the run. onStatus may be nil.
func Run(ctx context.Context, deps Deps, fileName string, pdf []byte, onStatus func(models.ProcessingStatus)) (Result, error) {
	report := func(s models.ProcessingStatus) {
		if onStatus != nil {
			onStatus(s)
		}
	}
	fail := func(err error) (Result, error) {
		slog.Error("Processing failed", "file", fileName, "err", err)
		report(models.ProcessingStatus{Step: models.StepError, Message: FailureMessage})
		return Result{}, err
	}

	newID := deps.NewID
	if newID == nil {
		newID = catalog.NewID
	}

	if err := deps.Extractor.Ready(); err != nil {
		return fail(fmt.Errorf("%w: %w", ErrConfiguration, err))
	}

	report(models.ProcessingStatus{Step: models.StepReading, Message: "Convirtiendo PDF a imágenes..."})

	doc, err := deps.Rasterizer.Open(pdf)
	if err != nil {
		return fail(err)
	}
	defer doc.Close()

	// an unreadable upload must not touch the saved catalog
	deps.Catalog.SetFileName(fileName)

	total := doc.NumPages()
	result := Result{Pages: total}
	slog.Info("Processing catalog", "file", fileName, "pages", total)

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		report(models.ProcessingStatus{
			Step:     models.StepAnalyzing,
			Message:  fmt.Sprintf("Escaneando página %d/%d...", i+1, total),
			Progress: i + 1,
			Total:    total,
		})

		page, err := doc.Page(ctx, i)
		if err != nil {
			return fail(err)
		}

		candidates := deps.Extractor.Extract(ctx, page)
		products := make([]models.Product, 0, len(candidates))
		for _, c := range candidates {
			var image []byte
			if len(c.BoundingBox) == 4 {
				image = deps.Crop(page, c.BoundingBox)
			}
			products = append(products, models.Product{
				ID:            newID(),
				Name:          c.Name,
				OriginalPrice: c.OriginalPrice,
				UpdatedPrice:  c.OriginalPrice,
				Image:         image,
			})
		}

		deps.Catalog.Append(products...)
		result.Products += len(products)
		slog.Info("Page processed", "page", i+1, "total", total, "products", len(products))
	}

	report(models.ProcessingStatus{Step: models.StepComplete, Message: "Proceso finalizado."})
	return result, nil
}
