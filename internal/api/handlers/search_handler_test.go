package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/models"
)

func TestSearchRanksDocuments(t *testing.T) {
	e := newEnv()
	tok := token(t, "u1")

	e.seedDocument(models.Document{
		ID: "d1", UserID: "u1", Status: models.DocStatusCompleted,
		Title:   "Go Concurrency Patterns",
		Content: "Goroutines and channels compose into pipelines.",
	})
	e.store.SearchResults = []core.ChunkMatch{
		{Chunk: models.DocumentChunk{ID: "c1", DocumentID: "d1"}, Similarity: 0.9},
	}

	rec := e.do(t, http.MethodPost, "/api/search", tok, map[string]any{
		"query": "concurrency goroutines",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	decode(t, rec, &resp)
	require.GreaterOrEqual(t, resp.Total, 1)
	assert.Equal(t, "d1", resp.Results[0].Document.ID)
	assert.Greater(t, resp.Results[0].Score, 0.0)
}

func TestSearchValidation(t *testing.T) {
	e := newEnv()
	tok := token(t, "u1")

	empty := e.do(t, http.MethodPost, "/api/search", tok, map[string]any{"query": "  "})
	assert.Equal(t, http.StatusBadRequest, empty.Code)

	badType := e.do(t, http.MethodPost, "/api/search", tok, map[string]any{
		"query": "x", "search_type": "psychic",
	})
	assert.Equal(t, http.StatusBadRequest, badType.Code)
}

func TestSearchEmptyCorpus(t *testing.T) {
	e := newEnv()

	rec := e.do(t, http.MethodPost, "/api/search", token(t, "u1"), map[string]any{"query": "anything"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	decode(t, rec, &resp)
	assert.Equal(t, 0, resp.Total)
	assert.NotNil(t, resp.Results)
}
