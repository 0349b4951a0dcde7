package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	middleware "github.com/markdave123-py/Memora/internal/api/middlewares"
	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/services"
)

type IngestHandler struct {
	ingest *services.IngestService
}

func NewIngestHandler(ingest *services.IngestService) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

type ingestResponse struct {
	TaskID     string `json:"task_id,omitempty"`
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	Duplicate  bool   `json:"duplicate,omitempty"`
}

// Ingest accepts a URL or raw text and enqueues it for processing. A fresh
// submission answers 202 with the task identity; a duplicate URL answers 200
// with the identifiers of the earlier submission.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req services.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid json body", core.ErrValidation))
		return
	}

	res, err := h.ingest.Submit(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := ingestResponse{
		DocumentID: res.Document.ID,
		Status:     res.Document.Status,
		Duplicate:  res.Duplicate,
	}
	if res.Task != nil {
		resp.TaskID = res.Task.TaskID
		resp.Status = res.Task.Status
	}

	status := http.StatusAccepted
	if res.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}
