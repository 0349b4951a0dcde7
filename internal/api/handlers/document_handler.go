package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	middleware "github.com/markdave123-py/Memora/internal/api/middlewares"
	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/services"
)

const maxUploadBytes = 52 << 20

type DocumentHandler struct {
	documents *services.DocumentService
	ingest    *services.IngestService
}

func NewDocumentHandler(documents *services.DocumentService, ingest *services.IngestService) *DocumentHandler {
	return &DocumentHandler{documents: documents, ingest: ingest}
}

// Upload accepts a multipart file, archives it, and enqueues extraction
// through the same pipeline as URL and text submissions.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, fmt.Errorf("%w: invalid multipart form", core.ErrValidation))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: missing file field", core.ErrValidation))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, fmt.Errorf("%w: reading upload: %v", core.ErrContentProcessing, err))
		return
	}

	// Strip any path components a client may have smuggled into the name.
	filename := filepath.Base(header.Filename)
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	title := r.FormValue("title")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	res, err := h.ingest.SubmitUpload(ctx, userID, filename, contentType, data, title)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := ingestResponse{
		DocumentID: res.Document.ID,
		Status:     res.Document.Status,
	}
	if res.Task != nil {
		resp.TaskID = res.Task.TaskID
		resp.Status = res.Task.Status
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// List reports the user's documents, filtered and sorted by query params.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	q := r.URL.Query()
	filter := core.DocumentFilter{
		Status:      q.Get("status"),
		ContentType: q.Get("content_type"),
		Quality:     q.Get("quality"),
		Tag:         q.Get("tag"),
		SortBy:      q.Get("sort"),
	}
	if v := q.Get("from"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			writeError(w, fmt.Errorf("%w: invalid from date %q", core.ErrValidation, v))
			return
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			writeError(w, fmt.Errorf("%w: invalid to date %q", core.ErrValidation, v))
			return
		}
		filter.To = t
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	docs, err := h.documents.List(r.Context(), userID, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "total": len(docs)})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	id := chi.URLParam(r, "documentID")

	doc, err := h.documents.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Chunks reports a document's stored chunks, embeddings omitted.
func (h *DocumentHandler) Chunks(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	id := chi.URLParam(r, "documentID")

	chunks, err := h.documents.Chunks(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document_id": id, "chunks": chunks})
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	id := chi.URLParam(r, "documentID")

	if err := h.documents.Delete(r.Context(), userID, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// parseTime accepts RFC3339 timestamps or bare dates.
func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
