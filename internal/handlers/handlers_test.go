package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/pricer/internal/catalog"
	"github.com/lehigh-university-libraries/pricer/internal/models"
	"github.com/lehigh-university-libraries/pricer/internal/pipeline"
	"github.com/lehigh-university-libraries/pricer/internal/rasterizer"
	"github.com/lehigh-university-libraries/pricer/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDoc struct{ pages int }

func (d fakeDoc) NumPages() int { return d.pages }

func (d fakeDoc) Page(context.Context, int) ([]byte, error) { return []byte("page"), nil }

func (d fakeDoc) Close() error { return nil }

type fakeRasterizer struct{ pages int }

func (r fakeRasterizer) Open([]byte) (rasterizer.Document, error) {
	return fakeDoc{pages: r.pages}, nil
}

// blockingExtractor returns one product per page once release is closed
type blockingExtractor struct {
	release chan struct{}
}

func (e *blockingExtractor) Ready() error { return nil }

func (e *blockingExtractor) Extract(ctx context.Context, _ []byte) []models.Candidate {
	if e.release != nil {
		<-e.release
	}
	return []models.Candidate{{Name: "Asad", OriginalPrice: 120000}}
}

func newTestHandler(t *testing.T, products ...models.Product) (*Handler, *blockingExtractor) {
	t.Helper()
	store := catalog.New(context.Background(), catalog.NewKVPersister(storage.NewMemoryStore()))
	store.Append(products...)

	extractor := &blockingExtractor{}
	h := New(context.Background(), store, pipeline.Deps{
		Rasterizer: fakeRasterizer{pages: 2},
		Extractor:  extractor,
		Crop:       func([]byte, []float64) []byte { return nil },
	})
	return h, extractor
}

func do(t *testing.T, h *Handler, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}

func decodeCatalog(t *testing.T, rr *httptest.ResponseRecorder) CatalogView {
	t.Helper()
	var view CatalogView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	return view
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCatalogView(t *testing.T) {
	h, _ := newTestHandler(t,
		models.Product{ID: "a", Name: "Asad", OriginalPrice: 120000, UpdatedPrice: 120000, Image: []byte{0xff, 0xd8}},
		models.Product{ID: "b", Name: "Yara", OriginalPrice: 95000, UpdatedPrice: 95000},
	)

	rr := do(t, h, http.MethodGet, "/api/catalog", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	view := decodeCatalog(t, rr)
	require.Len(t, view.Products, 2)
	assert.Equal(t, "Asad", view.Products[0].Name)
	assert.True(t, strings.HasPrefix(view.Products[0].Image, "data:image/jpeg;base64,"))
	assert.Empty(t, view.Products[1].Image)
}

func TestBulkAdjust(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantPrices []int64
	}{
		{
			name:       "add",
			body:       `{"operation":"ADD","amount":1000}`,
			wantStatus: http.StatusOK,
			wantPrices: []int64{121000, 66000},
		},
		{
			name:       "percentage",
			body:       `{"operation":"PERCENTAGE","amount":10}`,
			wantStatus: http.StatusOK,
			wantPrices: []int64{132000, 71500},
		},
		{
			name:       "unknown operation",
			body:       `{"operation":"MULTIPLY","amount":2}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative amount",
			body:       `{"operation":"ADD","amount":-5}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing amount",
			body:       `{"operation":"ADD"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid json",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t,
				models.Product{ID: "a", Name: "A", OriginalPrice: 120000, UpdatedPrice: 120000},
				models.Product{ID: "b", Name: "B", OriginalPrice: 65000, UpdatedPrice: 65000},
			)

			rr := do(t, h, http.MethodPost, "/api/catalog/adjust", bytes.NewBufferString(tt.body), "application/json")
			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.wantPrices == nil {
				return
			}

			view := decodeCatalog(t, rr)
			var got []int64
			for _, p := range view.Products {
				got = append(got, p.UpdatedPrice)
			}
			assert.Equal(t, tt.wantPrices, got)
			assert.Equal(t, int64(120000), view.Products[0].OriginalPrice)
		})
	}
}

func TestSetPrice(t *testing.T) {
	h, _ := newTestHandler(t, models.Product{ID: "a", Name: "A", OriginalPrice: 100, UpdatedPrice: 100})

	rr := do(t, h, http.MethodPut, "/api/products/a/price", bytes.NewBufferString(`{"price":250}`), "application/json")
	require.Equal(t, http.StatusOK, rr.Code)
	view := decodeCatalog(t, rr)
	assert.Equal(t, int64(250), view.Products[0].UpdatedPrice)
	assert.Equal(t, int64(100), view.Products[0].OriginalPrice)

	rr = do(t, h, http.MethodPut, "/api/products/missing/price", bytes.NewBufferString(`{"price":1}`), "application/json")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodPut, "/api/products/a/price", bytes.NewBufferString(`{"price":-1}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSetImage(t *testing.T) {
	h, _ := newTestHandler(t, models.Product{ID: "a", Name: "A"})

	body, ct := multipartBody(t, "image", "photo.png", testPNG(t))
	rr := do(t, h, http.MethodPut, "/api/products/a/image", body, ct)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.NotEmpty(t, decodeCatalog(t, rr).Products[0].Image)

	body, ct = multipartBody(t, "image", "photo.png", []byte("not an image"))
	rr = do(t, h, http.MethodPut, "/api/products/a/image", body, ct)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "No se pudo actualizar la imagen.")

	body, ct = multipartBody(t, "image", "photo.png", testPNG(t))
	rr = do(t, h, http.MethodPut, "/api/products/missing/image", body, ct)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRemoveAndClear(t *testing.T) {
	h, _ := newTestHandler(t,
		models.Product{ID: "a", Name: "A"},
		models.Product{ID: "b", Name: "B"},
	)

	rr := do(t, h, http.MethodDelete, "/api/products/a", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	view := decodeCatalog(t, rr)
	require.Len(t, view.Products, 1)
	assert.Equal(t, "b", view.Products[0].ID)

	rr = do(t, h, http.MethodDelete, "/api/products/a", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodDelete, "/api/catalog", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeCatalog(t, rr).Products)
}

func TestExport(t *testing.T) {
	h, _ := newTestHandler(t, models.Product{ID: "a", Name: "Asad", OriginalPrice: 120000, UpdatedPrice: 132000})

	rr := do(t, h, http.MethodGet, "/api/export", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "Catalogo_Lattafa_PYG_Fotos.pdf")
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")))
}

func TestUpload(t *testing.T) {
	h, _ := newTestHandler(t, models.Product{ID: "existing", Name: "Existing"})

	body, ct := multipartBody(t, "file", "lista.pdf", []byte("%PDF-1.4"))
	rr := do(t, h, http.MethodPost, "/api/upload", body, ct)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	h.Wait()

	rr = do(t, h, http.MethodGet, "/api/catalog", nil, "")
	view := decodeCatalog(t, rr)
	assert.Equal(t, "lista.pdf", view.FileName)
	require.Len(t, view.Products, 3)
	assert.Equal(t, "existing", view.Products[0].ID)
	assert.Equal(t, "Asad", view.Products[1].Name)

	rr = do(t, h, http.MethodGet, "/api/status", nil, "")
	var status models.ProcessingStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.Equal(t, models.StepComplete, status.Step)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	h, _ := newTestHandler(t)

	body, ct := multipartBody(t, "file", "lista.xlsx", []byte("data"))
	rr := do(t, h, http.MethodPost, "/api/upload", body, ct)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUploadSizeLimit(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		wantStatus int
	}{
		{name: "below limit", size: 15, wantStatus: http.StatusAccepted},
		{name: "exactly at limit", size: 16, wantStatus: http.StatusAccepted},
		{name: "over limit", size: 17, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t)
			h.maxUpload = 16

			body, ct := multipartBody(t, "file", "lista.pdf", bytes.Repeat([]byte("x"), tt.size))
			rr := do(t, h, http.MethodPost, "/api/upload", body, ct)
			h.Wait()
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
		})
	}
}

func TestBusyWhileProcessing(t *testing.T) {
	h, extractor := newTestHandler(t, models.Product{ID: "a", Name: "A", OriginalPrice: 100, UpdatedPrice: 100})
	extractor.release = make(chan struct{})

	body, ct := multipartBody(t, "file", "lista.pdf", []byte("%PDF-1.4"))
	rr := do(t, h, http.MethodPost, "/api/upload", body, ct)
	require.Equal(t, http.StatusAccepted, rr.Code)

	body, ct = multipartBody(t, "file", "otra.pdf", []byte("%PDF-1.4"))
	rr = do(t, h, http.MethodPost, "/api/upload", body, ct)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/catalog/adjust", bytes.NewBufferString(`{"operation":"ADD","amount":1}`), "application/json")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, http.MethodDelete, "/api/catalog", nil, "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	close(extractor.release)
	h.Wait()

	rr = do(t, h, http.MethodDelete, "/api/catalog", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHealthcheckAndStatic(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := do(t, h, http.MethodGet, "/healthcheck", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())

	rr = do(t, h, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Cargar Catálogo PDF")
}
