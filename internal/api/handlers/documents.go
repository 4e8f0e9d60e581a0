package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"docutor/internal/auth"
	"docutor/internal/document"
	"docutor/internal/queue"
	"docutor/pkg/textextract"
)

type DocumentHandler struct {
	svc      *document.Service
	queue    *queue.Client
	spoolDir string
}

func NewDocumentHandler(svc *document.Service, qc *queue.Client, spoolDir string) *DocumentHandler {
	return &DocumentHandler{svc: svc, queue: qc, spoolDir: spoolDir}
}

// Upload spools the file and hands ingestion to the worker. The 202 reply
// only acknowledges the upload; deduplication happens in the pipeline.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file required"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !supportedExt(ext) {
		writeJSON(w, http.StatusUnsupportedMediaType,
			map[string]string{"error": fmt.Sprintf("unsupported file format: %s", ext)})
		return
	}

	spoolPath, err := h.spool(file, ext)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if err := h.queue.EnqueueDocumentIngest(queue.DocumentIngestPayload{
		OwnerID:  ownerID,
		FilePath: spoolPath,
		Filename: header.Filename,
	}); err != nil {
		os.Remove(spoolPath)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":   "queued",
		"filename": header.Filename,
	})
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
		return
	}

	docs, err := h.svc.List(r.Context(), ownerID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "count": len(docs)})
}

func (h *DocumentHandler) spool(src io.Reader, ext string) (string, error) {
	if err := os.MkdirAll(h.spoolDir, 0o755); err != nil {
		return "", fmt.Errorf("create spool dir: %w", err)
	}

	path := filepath.Join(h.spoolDir, uuid.NewString()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create spool file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write spool file: %w", err)
	}
	return path, nil
}

func supportedExt(ext string) bool {
	for _, s := range textextract.SupportedTypes() {
		if s == ext {
			return true
		}
	}
	return false
}
