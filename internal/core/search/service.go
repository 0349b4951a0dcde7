package search

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/core/embed"
	"github.com/markdave123-py/Memora/internal/models"
)

// Search types.
const (
	TypeSemantic = "semantic"
	TypeKeyword  = "keyword"
	TypeHybrid   = "hybrid"
)

const (
	defaultLimit = 10
	maxLimit     = 100

	// chunkFanout scales the per-chunk search budget off the requested
	// document limit, since several chunks may map to one document.
	chunkFanout = 8
)

// QueryEmbedder is what the semantic leg needs from the embedding service.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, string, error)
}

// Request describes one search call.
type Request struct {
	Query               string              `json:"query"`
	Type                string              `json:"search_type"` // semantic | keyword | hybrid (default)
	Limit               int                 `json:"limit"`
	SimilarityThreshold float64             `json:"similarity_threshold"`
	Filter              core.DocumentFilter `json:"filters"`
	SortBy              string              `json:"sort_by"` // relevance | date | quality | reading_time | complexity | word_count
}

// Result is one ranked document.
type Result struct {
	Document  models.Document `json:"document"`
	Score     float64         `json:"score"`
	MatchType string          `json:"match_type"` // semantic | keyword | hybrid
}

// Service ranks a user's completed documents against a query.
type Service struct {
	db        core.DbClient
	embedder  QueryEmbedder
	threshold float64
}

func NewService(db core.DbClient, embedder QueryEmbedder, defaultThreshold float64) *Service {
	if defaultThreshold <= 0 || defaultThreshold > 1 {
		defaultThreshold = 0.7
	}
	return &Service{db: db, embedder: embedder, threshold: defaultThreshold}
}

// Search runs the requested search type over the user's corpus. Filters
// narrow the candidate set before any scoring; limit applies after ranking.
func (s *Service) Search(ctx context.Context, userID string, req Request) ([]Result, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", core.ErrValidation)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	threshold := req.SimilarityThreshold
	if threshold <= 0 {
		threshold = s.threshold
	}

	filter := req.Filter
	filter.Status = models.DocStatusCompleted
	filter.Limit, filter.Offset = 0, 0
	candidates, err := s.db.ListDocumentsByUser(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	var results []Result
	switch req.Type {
	case TypeKeyword:
		results = s.keywordResults(query, candidates)
	case TypeSemantic:
		results, err = s.semanticResults(ctx, userID, query, candidates, threshold, limit)
		if err != nil {
			return nil, err
		}
	case TypeHybrid, "":
		semantic, semErr := s.semanticResults(ctx, userID, query, candidates, threshold, limit)
		if semErr != nil {
			log.Printf("search: semantic leg failed, falling back to keyword only: %v", semErr)
			semantic = nil
		}
		results = mergeResults(semantic, s.keywordResults(query, candidates))
	default:
		return nil, fmt.Errorf("%w: unknown search type %q", core.ErrValidation, req.Type)
	}

	sortResults(results, req.SortBy)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// keywordResults scores every candidate and keeps the hits, preserving
// candidate order for stable tie-breaks.
func (s *Service) keywordResults(query string, candidates []models.Document) []Result {
	terms := Terms(query)
	var out []Result
	for i := range candidates {
		if score := keywordScore(&candidates[i], terms); score > 0 {
			out = append(out, Result{Document: candidates[i], Score: score, MatchType: TypeKeyword})
		}
	}
	sortByScore(out)
	return out
}

// semanticResults embeds the query, searches chunk vectors over the
// candidate documents and scores each document as the mean similarity of
// its matching chunks.
func (s *Service) semanticResults(ctx context.Context, userID, query string, candidates []models.Document, threshold float64, limit int) ([]Result, error) {
	vec, source, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if source == embed.FallbackName {
		log.Printf("search: query embedded via fallback, semantic quality degraded")
	}

	byID := make(map[string]models.Document, len(candidates))
	docIDs := make([]string, len(candidates))
	for i, doc := range candidates {
		byID[doc.ID] = doc
		docIDs[i] = doc.ID
	}

	matches, err := s.db.SearchChunks(ctx, userID, vec, docIDs, threshold, limit*chunkFanout)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	type agg struct {
		sum float64
		n   int
	}
	perDoc := make(map[string]*agg)
	var order []string
	for _, m := range matches {
		id := m.Chunk.DocumentID
		a, ok := perDoc[id]
		if !ok {
			a = &agg{}
			perDoc[id] = a
			order = append(order, id)
		}
		a.sum += m.Similarity
		a.n++
	}

	var out []Result
	for _, id := range order {
		doc, ok := byID[id]
		if !ok {
			continue
		}
		a := perDoc[id]
		out = append(out, Result{Document: doc, Score: a.sum / float64(a.n), MatchType: TypeSemantic})
	}
	sortByScore(out)
	return out, nil
}

// mergeResults folds the secondary result set into the primary one. A
// secondary hit on a document the semantic leg already found blends
// 0.7·semantic + 0.3·secondary; a duplicate on any other document blends
// 0.6·existing + 0.4·new; everything else joins at its own score.
func mergeResults(primary, secondary []Result) []Result {
	merged := make([]Result, 0, len(primary)+len(secondary))
	index := make(map[string]int, len(primary))
	fromSemantic := make(map[string]bool, len(primary))

	for _, r := range primary {
		index[r.Document.ID] = len(merged)
		fromSemantic[r.Document.ID] = r.MatchType == TypeSemantic
		merged = append(merged, r)
	}
	for _, r := range secondary {
		if i, ok := index[r.Document.ID]; ok {
			if fromSemantic[r.Document.ID] {
				merged[i].Score = 0.7*merged[i].Score + 0.3*r.Score
				merged[i].MatchType = TypeHybrid
			} else {
				merged[i].Score = 0.6*merged[i].Score + 0.4*r.Score
			}
			continue
		}
		index[r.Document.ID] = len(merged)
		merged = append(merged, r)
	}

	sortByScore(merged)
	return merged
}

// sortByScore orders by score descending; equal scores keep their current
// (first-seen) order.
func sortByScore(results []Result) {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
}

var qualityRank = map[string]int{"excellent": 4, "good": 3, "fair": 2, "poor": 1}

// sortResults applies the requested ordering. Relevance (the default) keeps
// the score ordering the legs already produced.
func sortResults(results []Result, sortBy string) {
	switch sortBy {
	case "", "relevance":
		sortByScore(results)
	case "date":
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Document.CreatedAt.After(results[j].Document.CreatedAt)
		})
	case "quality":
		sort.SliceStable(results, func(i, j int) bool {
			return qualityRank[results[i].Document.Metadata.Quality] > qualityRank[results[j].Document.Metadata.Quality]
		})
	case "reading_time":
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Document.Metadata.ReadingTimeMinutes < results[j].Document.Metadata.ReadingTimeMinutes
		})
	case "complexity":
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Document.Metadata.ComplexityScore > results[j].Document.Metadata.ComplexityScore
		})
	case "word_count":
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Document.Metadata.WordCount > results[j].Document.Metadata.WordCount
		})
	default:
		sortByScore(results)
	}
}
