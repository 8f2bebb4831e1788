package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/pricer/internal/models"
	"github.com/lehigh-university-libraries/pricer/internal/pipeline"
)

const maxUploadSize = 50 * 1024 * 1024

// HandleUpload accepts a PDF and processes it in the background.
// Products are appended to the current catalog as each page completes.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".pdf" {
		h.writeError(w, "Only PDF files are supported", http.StatusBadRequest)
		return
	}

	fileData, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if int64(len(fileData)) > h.maxUpload {
		h.writeError(w, fmt.Sprintf("File too large (max %dMB)", h.maxUpload/(1024*1024)), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		h.writeError(w, "A catalog is being processed", http.StatusConflict)
		return
	}
	h.running = true
	h.status = models.ProcessingStatus{Step: models.StepReading, Message: "Convirtiendo PDF a imágenes..."}
	h.mu.Unlock()

	h.runs.Add(1)
	go func() {
		defer h.runs.Done()
		defer func() {
			h.mu.Lock()
			h.running = false
			h.mu.Unlock()
		}()

		result, err := pipeline.Run(h.baseCtx, h.deps, header.Filename, fileData, h.setStatus)
		if err != nil {
			return
		}
		slog.Info("Catalog processed", "file", header.Filename, "pages", result.Pages, "products", result.Products)
	}()

	h.writeJSONStatus(w, http.StatusAccepted, map[string]any{
		"message": "Processing started",
		"file":    header.Filename,
	})
}

// HandleStatus returns the progress of the current or last run
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.currentStatus())
}
