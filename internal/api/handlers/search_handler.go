package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	middleware "github.com/markdave123-py/Memora/internal/api/middlewares"
	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/core/search"
)

type SearchHandler struct {
	searcher *search.Service
}

func NewSearchHandler(searcher *search.Service) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

type searchResponse struct {
	Results []search.Result `json:"results"`
	Total   int             `json:"total"`
}

// Search ranks the user's completed documents against the query using the
// requested mode (semantic, keyword, or the hybrid default).
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req search.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid json body", core.ErrValidation))
		return
	}

	results, err := h.searcher.Search(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: results, Total: len(results)})
}
