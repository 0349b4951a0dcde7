package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/core/coretest"
	"github.com/markdave123-py/Memora/internal/models"
)

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) EmbedQuery(context.Context, string) ([]float32, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return []float32{0.1, 0.2, 0.3, 0.4}, "scripted", nil
}

func completedDoc(id, title, summary string, tags ...string) *models.Document {
	return &models.Document{
		ID:        id,
		UserID:    "user-1",
		Title:     title,
		Summary:   summary,
		Tags:      tags,
		Status:    models.DocStatusCompleted,
		CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func chunkMatch(docID string, similarity float64) core.ChunkMatch {
	return core.ChunkMatch{
		Chunk:      models.DocumentChunk{DocumentID: docID, Text: "chunk text"},
		Similarity: similarity,
	}
}

func TestKeywordScore(t *testing.T) {
	doc := completedDoc("d", "Go Concurrency Patterns", "Learn channels and goroutines in Go", "golang", "concurrency")

	tests := []struct {
		name  string
		terms []string
		want  float64
	}{
		{"title summary and tag", []string{"go"}, 0.6},
		{"split across fields", []string{"concurrency", "channels"}, 0.6},
		{"no hit", []string{"kubernetes"}, 0},
		{"capped at one", []string{"go", "concurrency", "patterns", "channels"}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, keywordScore(doc, tt.terms), 1e-9)
		})
	}
}

func TestKeywordSearchOrdersByScore(t *testing.T) {
	store := coretest.NewStore()
	store.Documents["a"] = completedDoc("a", "alpha alpha", "alpha everywhere", "alpha") // 3+2+1 = 0.6
	store.Documents["b"] = completedDoc("b", "nothing here", "mentions alpha once")      // 2 = 0.2
	svc := NewService(store, &stubEmbedder{}, 0.7)

	results, err := svc.Search(context.Background(), "user-1", Request{Query: "alpha", Type: TypeKeyword})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Document.ID)
	assert.InDelta(t, 0.6, results[0].Score, 1e-9)
	assert.Equal(t, TypeKeyword, results[0].MatchType)
	assert.Equal(t, "b", results[1].Document.ID)
	assert.InDelta(t, 0.2, results[1].Score, 1e-9)
}

func TestHybridMergeFormula(t *testing.T) {
	store := coretest.NewStore()
	// Keyword leg: title + summary hit = 5 points = 0.5.
	store.Documents["doc-1"] = completedDoc("doc-1", "Alpha release notes", "Notes about the alpha freeze")
	// Semantic leg: one chunk at 0.9.
	store.SearchResults = []core.ChunkMatch{chunkMatch("doc-1", 0.9)}
	svc := NewService(store, &stubEmbedder{}, 0.7)

	results, err := svc.Search(context.Background(), "user-1", Request{Query: "alpha", Type: TypeHybrid})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.7*0.9+0.3*0.5, results[0].Score, 1e-9) // 0.78
	assert.Equal(t, TypeHybrid, results[0].MatchType)
}

func TestHybridKeywordOnlyDocKeepsScore(t *testing.T) {
	store := coretest.NewStore()
	store.Documents["doc-1"] = completedDoc("doc-1", "Alpha guide", "All about alpha") // 0.5, no chunks
	svc := NewService(store, &stubEmbedder{}, 0.7)

	results, err := svc.Search(context.Background(), "user-1", Request{Query: "alpha", Type: TypeHybrid})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.5, results[0].Score, 1e-9)
	assert.Equal(t, TypeKeyword, results[0].MatchType)
}

func TestSemanticScoreIsPerDocumentMean(t *testing.T) {
	store := coretest.NewStore()
	store.Documents["doc-1"] = completedDoc("doc-1", "unrelated title", "unrelated summary")
	store.Documents["doc-2"] = completedDoc("doc-2", "another title", "another summary")
	store.SearchResults = []core.ChunkMatch{
		chunkMatch("doc-1", 0.8),
		chunkMatch("doc-1", 0.6),
		chunkMatch("doc-2", 0.9),
	}
	svc := NewService(store, &stubEmbedder{}, 0.5)

	results, err := svc.Search(context.Background(), "user-1", Request{Query: "vectors", Type: TypeSemantic})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "doc-2", results[0].Document.ID)
	assert.InDelta(t, 0.9, results[0].Score, 1e-9)
	assert.Equal(t, "doc-1", results[1].Document.ID)
	assert.InDelta(t, 0.7, results[1].Score, 1e-9, "two chunks at 0.8 and 0.6 average to 0.7")
}

func TestSemanticThresholdDropsWeakChunks(t *testing.T) {
	store := coretest.NewStore()
	store.Documents["doc-1"] = completedDoc("doc-1", "unrelated", "unrelated")
	store.SearchResults = []core.ChunkMatch{chunkMatch("doc-1", 0.65)}
	svc := NewService(store, &stubEmbedder{}, 0.7)

	results, err := svc.Search(context.Background(), "user-1", Request{Query: "vectors", Type: TypeSemantic, SimilarityThreshold: 0.85})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTieBreakIsFirstSeen(t *testing.T) {
	store := coretest.NewStore()
	store.Documents["doc-a"] = completedDoc("doc-a", "no match", "mentions topic once") // 0.2
	store.Documents["doc-b"] = completedDoc("doc-b", "no match", "mentions topic once") // 0.2
	svc := NewService(store, &stubEmbedder{}, 0.7)

	results, err := svc.Search(context.Background(), "user-1", Request{Query: "topic", Type: TypeKeyword})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "doc-a", results[0].Document.ID, "equal scores keep candidate order")
	assert.Equal(t, "doc-b", results[1].Document.ID)
}

func TestSearchValidation(t *testing.T) {
	svc := NewService(coretest.NewStore(), &stubEmbedder{}, 0.7)

	_, err := svc.Search(context.Background(), "user-1", Request{Query: "   "})
	assert.ErrorIs(t, err, core.ErrValidation)

	store := coretest.NewStore()
	store.Documents["d"] = completedDoc("d", "t", "s")
	svc = NewService(store, &stubEmbedder{}, 0.7)
	_, err = svc.Search(context.Background(), "user-1", Request{Query: "q", Type: "fuzzy"})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestHybridDegradesWhenSemanticFails(t *testing.T) {
	store := coretest.NewStore()
	store.Documents["doc-1"] = completedDoc("doc-1", "Alpha guide", "All about alpha")
	svc := NewService(store, &stubEmbedder{err: errors.New("provider down")}, 0.7)

	results, err := svc.Search(context.Background(), "user-1", Request{Query: "alpha", Type: TypeHybrid})
	require.NoError(t, err, "hybrid search must survive a dead semantic leg")
	require.Len(t, results, 1)
	assert.Equal(t, TypeKeyword, results[0].MatchType)
}

func TestSortOptions(t *testing.T) {
	store := coretest.NewStore()
	older := completedDoc("doc-old", "alpha one", "alpha")
	older.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	older.Metadata.Quality = "excellent"
	older.Metadata.ReadingTimeMinutes = 9
	newer := completedDoc("doc-new", "alpha two", "alpha")
	newer.CreatedAt = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	newer.Metadata.Quality = "fair"
	newer.Metadata.ReadingTimeMinutes = 2
	store.Documents["doc-old"] = older
	store.Documents["doc-new"] = newer
	svc := NewService(store, &stubEmbedder{}, 0.7)

	byDate, err := svc.Search(context.Background(), "user-1", Request{Query: "alpha", Type: TypeKeyword, SortBy: "date"})
	require.NoError(t, err)
	assert.Equal(t, "doc-new", byDate[0].Document.ID)

	byQuality, err := svc.Search(context.Background(), "user-1", Request{Query: "alpha", Type: TypeKeyword, SortBy: "quality"})
	require.NoError(t, err)
	assert.Equal(t, "doc-old", byQuality[0].Document.ID)

	byReading, err := svc.Search(context.Background(), "user-1", Request{Query: "alpha", Type: TypeKeyword, SortBy: "reading_time"})
	require.NoError(t, err)
	assert.Equal(t, "doc-new", byReading[0].Document.ID)
}

func TestLimitApplied(t *testing.T) {
	store := coretest.NewStore()
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("doc-%d", i)
		store.Documents[id] = completedDoc(id, "alpha", "alpha")
	}
	svc := NewService(store, &stubEmbedder{}, 0.7)

	results, err := svc.Search(context.Background(), "user-1", Request{Query: "alpha", Type: TypeKeyword, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

// scriptedLLM answers by system-prompt routing so the answer and suggestion
// calls can be scripted independently.
type scriptedLLM struct {
	answer      string
	suggestions string
	err         error
	prompts     []string
}

func (s *scriptedLLM) Generate(_ context.Context, system, user string) (string, error) {
	s.prompts = append(s.prompts, user)
	if s.err != nil {
		return "", s.err
	}
	if strings.Contains(system, "follow-up") {
		return s.suggestions, nil
	}
	return s.answer, nil
}

func hybridStore() *coretest.Store {
	store := coretest.NewStore()
	store.Documents["doc-1"] = completedDoc("doc-1", "Alpha release notes", "Notes about the alpha freeze")
	store.SearchResults = []core.ChunkMatch{chunkMatch("doc-1", 0.9)}
	return store
}

func TestAnswerGroundsResponseInSources(t *testing.T) {
	llm := &scriptedLLM{answer: "The alpha freeze starts Monday.", suggestions: "- When does beta start?\n- Who owns the release?\n- What changed since alpha?"}
	answerer := NewAnswerer(llm, NewService(hybridStore(), &stubEmbedder{}, 0.7))

	ans, err := answerer.Answer(context.Background(), "user-1", "alpha")
	require.NoError(t, err)

	assert.Equal(t, "The alpha freeze starts Monday.", ans.Response)
	require.Len(t, ans.Sources, 1)
	assert.Equal(t, "doc-1", ans.Sources[0].DocumentID)
	assert.Equal(t, "Alpha release notes", ans.Sources[0].Title)
	assert.InDelta(t, 0.78, ans.Sources[0].Relevance, 1e-9)

	require.NotEmpty(t, llm.prompts)
	assert.Contains(t, llm.prompts[0], "Document 1: Alpha release notes")
	assert.Contains(t, llm.prompts[0], "Question: alpha")

	assert.Equal(t, []string{"When does beta start?", "Who owns the release?", "What changed since alpha?"}, ans.Suggestions)
}

func TestAnswerConfidenceFormula(t *testing.T) {
	llm := &scriptedLLM{answer: "Answer.", suggestions: "One?"}
	answerer := NewAnswerer(llm, NewService(hybridStore(), &stubEmbedder{}, 0.7))

	ans, err := answerer.Answer(context.Background(), "user-1", "alpha")
	require.NoError(t, err)

	// One source at 0.78: 0.4·0.78 + 0.3·(1/5) + 0.3·0.78
	assert.InDelta(t, 0.4*0.78+0.3*0.2+0.3*0.78, ans.Confidence, 1e-9)
}

func TestAnswerLLMFailureFallsBack(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("model unavailable")}
	answerer := NewAnswerer(llm, NewService(hybridStore(), &stubEmbedder{}, 0.7))

	ans, err := answerer.Answer(context.Background(), "user-1", "alpha")
	require.NoError(t, err, "LLM failure must not fail the call")
	assert.Contains(t, ans.Response, "Alpha release notes")
	assert.Equal(t, defaultSuggestions(), ans.Suggestions)
	assert.NotZero(t, ans.Confidence, "confidence reflects retrieval, not generation")
}

func TestAnswerNoResults(t *testing.T) {
	llm := &scriptedLLM{answer: "unused"}
	answerer := NewAnswerer(llm, NewService(coretest.NewStore(), &stubEmbedder{}, 0.7))

	ans, err := answerer.Answer(context.Background(), "user-1", "anything at all")
	require.NoError(t, err)
	assert.Contains(t, ans.Response, "couldn't find anything")
	assert.Zero(t, ans.Confidence)
	assert.Empty(t, ans.Sources)
	assert.NotEmpty(t, ans.Suggestions)
}
