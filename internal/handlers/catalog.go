package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/pricer/internal/catalog"
	"github.com/lehigh-university-libraries/pricer/internal/export"
	"github.com/lehigh-university-libraries/pricer/internal/images"
	"github.com/lehigh-university-libraries/pricer/internal/models"
)

const maxImageSize = 10 * 1024 * 1024

func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.catalogView())
}

// HandleBulkAdjust applies {operation, amount} to every product
func (h *Handler) HandleBulkAdjust(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Operation string   `json:"operation"`
		Amount    *float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	op, err := models.ParseBulkOperation(request.Operation)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if request.Amount == nil {
		h.writeError(w, "amount is required", http.StatusBadRequest)
		return
	}
	if err := catalog.ValidateAmount(*request.Amount); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if h.busy(w) {
		return
	}

	h.store.BulkAdjust(op, *request.Amount)
	slog.Info("Bulk price update", "operation", op, "amount", *request.Amount, "products", h.store.Len())
	h.writeJSON(w, h.catalogView())
}

func (h *Handler) HandleSetPrice(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Price *int64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.Price == nil || *request.Price < 0 {
		h.writeError(w, "price must be a non-negative integer", http.StatusBadRequest)
		return
	}

	if err := h.store.SetPrice(r.PathValue("id"), *request.Price); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.writeJSON(w, h.catalogView())
}

// HandleSetImage replaces a product photo with a standardized square thumbnail
func (h *Handler) HandleSetImage(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("image")
	if err != nil {
		h.writeError(w, "Failed to read image: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize))
	if err != nil {
		h.writeError(w, "Failed to read image contents: "+err.Error(), http.StatusInternalServerError)
		return
	}

	thumbnail := images.Standardize(data)
	if thumbnail == nil {
		h.writeError(w, "No se pudo actualizar la imagen.", http.StatusBadRequest)
		return
	}

	if err := h.store.SetImage(r.PathValue("id"), thumbnail); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.writeJSON(w, h.catalogView())
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Remove(r.PathValue("id")); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.writeJSON(w, h.catalogView())
}

// HandleClear forgets the whole catalog and the saved session
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if h.busy(w) {
		return
	}
	h.store.Clear()
	h.setStatus(models.ProcessingStatus{Step: models.StepIdle})
	slog.Info("Catalog cleared")
	h.writeJSON(w, h.catalogView())
}

// HandleExport downloads the price list PDF
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if h.busy(w) {
		return
	}

	var buf bytes.Buffer
	if err := export.PDF(&buf, h.store.Products(), export.DefaultPDFOptions()); err != nil {
		h.writeError(w, "Failed to generate PDF: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Unable to write PDF", "err", err)
	}
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrProductNotFound) {
		h.writeError(w, "Product not found", http.StatusNotFound)
		return
	}
	h.writeError(w, err.Error(), http.StatusInternalServerError)
}
