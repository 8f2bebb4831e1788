package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lehigh-university-libraries/pricer/internal/catalog"
	"github.com/lehigh-university-libraries/pricer/internal/extraction"
	"github.com/lehigh-university-libraries/pricer/internal/models"
	"github.com/lehigh-university-libraries/pricer/internal/providers"
	"github.com/lehigh-university-libraries/pricer/internal/rasterizer"
	"github.com/lehigh-university-libraries/pricer/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDoc struct {
	pages  [][]byte
	failAt int
	closed bool
}

func (d *fakeDoc) NumPages() int { return len(d.pages) }

func (d *fakeDoc) Page(_ context.Context, i int) ([]byte, error) {
	if i == d.failAt {
		return nil, errors.New("corrupt page")
	}
	return d.pages[i], nil
}

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

type fakeRasterizer struct {
	doc *fakeDoc
	err error
}

func (r *fakeRasterizer) Open([]byte) (rasterizer.Document, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.doc, nil
}

// pageProvider answers per page, keyed by the page bytes
type pageProvider struct {
	responses map[string]string
	failures  map[string]error
	credErr   error
}

func (p *pageProvider) Name() string { return "fake" }

func (p *pageProvider) CheckCredentials() error { return p.credErr }

func (p *pageProvider) ExtractText(_ context.Context, config providers.Config) (string, error) {
	key := string(config.Image)
	if err := p.failures[key]; err != nil {
		return "", err
	}
	return p.responses[key], nil
}

func newStore() *catalog.Store {
	return catalog.New(context.Background(), catalog.NewKVPersister(storage.NewMemoryStore()))
}

func fakeCrop(page []byte, box []float64) []byte {
	return []byte(fmt.Sprintf("%s-crop", page))
}

func names(products []models.Product) []string {
	var result []string
	for _, p := range products {
		result = append(result, p.Name)
	}
	return result
}

func TestFailedPageDoesNotBlockLaterPages(t *testing.T) {
	provider := &pageProvider{
		responses: map[string]string{
			"p1": `[{"name":"A","originalPrice":100000,"boundingBox":[0,0,1,1]}]`,
			"p3": "```json\n[{\"name\":\"C\",\"originalPrice\":30000,\"boundingBox\":[0,0,1,1]},{\"name\":\"D\",\"originalPrice\":40000,\"boundingBox\":[0,0,1,1]}]\n```",
		},
		failures: map[string]error{"p2": errors.New("model unavailable")},
	}
	doc := &fakeDoc{pages: [][]byte{[]byte("p1"), []byte("p2"), []byte("p3")}, failAt: -1}
	store := newStore()

	var statuses []models.ProcessingStatus
	result, err := Run(context.Background(), Deps{
		Rasterizer: &fakeRasterizer{doc: doc},
		Extractor:  extraction.NewClient(provider, "m"),
		Crop:       fakeCrop,
		Catalog:    store,
	}, "lista.pdf", []byte("%PDF"), func(s models.ProcessingStatus) {
		statuses = append(statuses, s)
	})

	require.NoError(t, err)
	assert.Equal(t, Result{Pages: 3, Products: 3}, result)
	assert.Equal(t, []string{"A", "C", "D"}, names(store.Products()))
	assert.Equal(t, "lista.pdf", store.FileName())
	assert.True(t, doc.closed)

	last := statuses[len(statuses)-1]
	assert.Equal(t, models.StepComplete, last.Step)
	assert.Equal(t, models.StepReading, statuses[0].Step)

	var progress []int
	for _, s := range statuses {
		if s.Step == models.StepAnalyzing {
			assert.Equal(t, 3, s.Total)
			progress = append(progress, s.Progress)
		}
	}
	assert.Equal(t, []int{1, 2, 3}, progress)

	for _, p := range store.Products() {
		assert.Equal(t, p.OriginalPrice, p.UpdatedPrice)
		assert.NotEmpty(t, p.Image)
	}
}

func TestMalformedBoxHasNoImage(t *testing.T) {
	provider := &pageProvider{responses: map[string]string{
		"p1": `[{"name":"A","originalPrice":1,"boundingBox":[0,0,1]},{"name":"B","originalPrice":2,"boundingBox":[0,0,1,1]}]`,
	}}
	store := newStore()

	cropped := 0
	_, err := Run(context.Background(), Deps{
		Rasterizer: &fakeRasterizer{doc: &fakeDoc{pages: [][]byte{[]byte("p1")}, failAt: -1}},
		Extractor:  extraction.NewClient(provider, "m"),
		Crop: func(page []byte, box []float64) []byte {
			cropped++
			return fakeCrop(page, box)
		},
		Catalog: store,
	}, "a.pdf", nil, nil)

	require.NoError(t, err)
	products := store.Products()
	require.Len(t, products, 2)
	assert.False(t, products[0].HasImage())
	assert.True(t, products[1].HasImage())
	assert.Equal(t, 1, cropped)
}

func TestAppendsToExistingCatalog(t *testing.T) {
	store := newStore()
	store.Append(models.Product{Name: "earlier", OriginalPrice: 5, UpdatedPrice: 7})
	before := store.Products()

	provider := &pageProvider{responses: map[string]string{"p1": `[{"name":"new","originalPrice":1,"boundingBox":[0,0,1,1]}]`}}
	_, err := Run(context.Background(), Deps{
		Rasterizer: &fakeRasterizer{doc: &fakeDoc{pages: [][]byte{[]byte("p1")}, failAt: -1}},
		Extractor:  extraction.NewClient(provider, "m"),
		Crop:       fakeCrop,
		Catalog:    store,
	}, "more.pdf", nil, nil)

	require.NoError(t, err)
	after := store.Products()
	require.Len(t, after, 2)
	assert.Equal(t, before[0], after[0])
	assert.Equal(t, "new", after[1].Name)
	assert.Equal(t, "more.pdf", store.FileName())
}

func TestMissingCredentialFailsBeforeReading(t *testing.T) {
	r := &fakeRasterizer{err: errors.New("must not be called")}
	store := newStore()

	var statuses []models.ProcessingStatus
	_, err := Run(context.Background(), Deps{
		Rasterizer: r,
		Extractor:  extraction.NewClient(&pageProvider{credErr: providers.ErrMissingCredential}, "m"),
		Crop:       fakeCrop,
		Catalog:    store,
	}, "a.pdf", nil, func(s models.ProcessingStatus) { statuses = append(statuses, s) })

	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, providers.ErrMissingCredential)
	require.Len(t, statuses, 1)
	assert.Equal(t, models.StepError, statuses[0].Step)
	assert.Empty(t, store.FileName())
}

func TestDocumentErrorsAbortRun(t *testing.T) {
	tests := []struct {
		name       string
		rasterizer *fakeRasterizer
	}{
		{
			name:       "unreadable pdf",
			rasterizer: &fakeRasterizer{err: rasterizer.ErrInvalidDocument},
		},
		{
			name:       "bad page",
			rasterizer: &fakeRasterizer{doc: &fakeDoc{pages: [][]byte{[]byte("p1"), []byte("p2")}, failAt: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &pageProvider{responses: map[string]string{"p1": `[{"name":"A","originalPrice":1,"boundingBox":[0,0,1,1]}]`}}
			var last models.ProcessingStatus
			_, err := Run(context.Background(), Deps{
				Rasterizer: tt.rasterizer,
				Extractor:  extraction.NewClient(provider, "m"),
				Crop:       fakeCrop,
				Catalog:    newStore(),
			}, "a.pdf", nil, func(s models.ProcessingStatus) { last = s })

			assert.Error(t, err)
			assert.Equal(t, models.StepError, last.Step)
			assert.Equal(t, FailureMessage, last.Message)
		})
	}
}

func TestUnreadablePDFLeavesSavedCatalogUntouched(t *testing.T) {
	kv := storage.NewMemoryStore()
	store := catalog.New(context.Background(), catalog.NewKVPersister(kv))

	_, err := Run(context.Background(), Deps{
		Rasterizer: &fakeRasterizer{err: rasterizer.ErrInvalidDocument},
		Extractor:  extraction.NewClient(&pageProvider{}, "m"),
		Crop:       fakeCrop,
		Catalog:    store,
	}, "broken.pdf", []byte("junk"), nil)

	require.ErrorIs(t, err, rasterizer.ErrInvalidDocument)
	assert.Empty(t, store.FileName())

	_, err = kv.Get(context.Background(), "pricer-products")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = kv.Get(context.Background(), "pricer-filename")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
