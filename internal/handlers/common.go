package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/lehigh-university-libraries/pricer/internal/catalog"
	"github.com/lehigh-university-libraries/pricer/internal/models"
	"github.com/lehigh-university-libraries/pricer/internal/pipeline"
)

// Handler serves the catalog editor
type Handler struct {
	store *catalog.Store
	deps  pipeline.Deps

	// baseCtx outlives the upload request that starts a run
	baseCtx   context.Context
	// maxUpload is the largest accepted PDF in bytes
	maxUpload int64

	mu      sync.Mutex
	status  models.ProcessingStatus
	running bool
	runs    sync.WaitGroup
}

// ProductView is a product as sent to the browser
type ProductView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	OriginalPrice int64  `json:"originalPrice"`
	UpdatedPrice  int64  `json:"updatedPrice"`
	Image         string `json:"image,omitempty"` // data URI
}

// CatalogView is the editor state
type CatalogView struct {
	FileName string        `json:"fileName"`
	Products []ProductView `json:"products"`
}

// New returns a handler editing store; uploads run through deps with deps.Catalog set to store
func New(ctx context.Context, store *catalog.Store, deps pipeline.Deps) *Handler {
	deps.Catalog = store
	return &Handler{
		store:     store,
		deps:      deps,
		baseCtx:   ctx,
		maxUpload: maxUploadSize,
		status:    models.ProcessingStatus{Step: models.StepIdle},
	}
}

// Routes registers every endpoint on a new mux
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/catalog", h.HandleCatalog)
	mux.HandleFunc("DELETE /api/catalog", h.HandleClear)
	mux.HandleFunc("POST /api/catalog/adjust", h.HandleBulkAdjust)
	mux.HandleFunc("GET /api/status", h.HandleStatus)
	mux.HandleFunc("POST /api/upload", h.HandleUpload)
	mux.HandleFunc("PUT /api/products/{id}/price", h.HandleSetPrice)
	mux.HandleFunc("PUT /api/products/{id}/image", h.HandleSetImage)
	mux.HandleFunc("DELETE /api/products/{id}", h.HandleRemove)
	mux.HandleFunc("GET /api/export", h.HandleExport)
	mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	mux.HandleFunc("GET /", h.HandleStatic)
	return mux
}

// Wait blocks until background processing runs finish
func (h *Handler) Wait() {
	h.runs.Wait()
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

func (h *Handler) catalogView() CatalogView {
	products := h.store.Products()
	view := CatalogView{
		FileName: h.store.FileName(),
		Products: make([]ProductView, 0, len(products)),
	}
	for _, p := range products {
		pv := ProductView{
			ID:            p.ID,
			Name:          p.Name,
			OriginalPrice: p.OriginalPrice,
			UpdatedPrice:  p.UpdatedPrice,
		}
		if p.HasImage() {
			pv.Image = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(p.Image)
		}
		view.Products = append(view.Products, pv)
	}
	return view
}

// Status helpers
func (h *Handler) setStatus(s models.ProcessingStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = s
}

func (h *Handler) currentStatus() models.ProcessingStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// busy reports whether a processing run is in progress and writes a 409 if so
func (h *Handler) busy(w http.ResponseWriter) bool {
	h.mu.Lock()
	running := h.running
	h.mu.Unlock()
	if running {
		h.writeError(w, "A catalog is being processed", http.StatusConflict)
	}
	return running
}
