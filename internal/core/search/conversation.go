package search

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/models"
)

const (
	maxAnswerSources = 5
	excerptChars     = 500
)

const answerSystemPrompt = "You answer questions strictly from the provided documents. " +
	"Cite which document supports each claim. If the documents do not contain the answer, say so."

// Answer is one conversational reply grounded in the user's corpus.
type Answer struct {
	Response    string                 `json:"response"`
	Sources     []models.MessageSource `json:"sources"`
	Confidence  float64                `json:"confidence"`
	Suggestions []string               `json:"suggestions"`
}

// Answerer turns hybrid search results into a grounded conversational reply.
type Answerer struct {
	llm      core.LLMProvider
	searcher *Service
}

func NewAnswerer(llm core.LLMProvider, searcher *Service) *Answerer {
	return &Answerer{llm: llm, searcher: searcher}
}

// Answer retrieves the most relevant documents and asks the LLM to answer
// from them. LLM failure degrades to a canned reply listing the sources;
// retrieval failure is the only hard error.
func (a *Answerer) Answer(ctx context.Context, userID, query string) (*Answer, error) {
	results, err := a.searcher.Search(ctx, userID, Request{
		Query: query,
		Type:  TypeHybrid,
		Limit: maxAnswerSources,
	})
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return &Answer{
			Response: "I couldn't find anything in your documents that answers that. " +
				"Try ingesting more material or rephrasing the question.",
			Confidence:  0,
			Suggestions: defaultSuggestions(),
		}, nil
	}

	prompt := fmt.Sprintf("Use the documents below to answer the question.\n\n%sQuestion: %s", buildContext(results), query)
	response, llmErr := a.llm.Generate(ctx, answerSystemPrompt, prompt)
	if llmErr != nil || strings.TrimSpace(response) == "" {
		log.Printf("chat: answer generation failed: %v", llmErr)
		response = fallbackResponse(results)
	}

	sources := make([]models.MessageSource, len(results))
	for i, r := range results {
		sources[i] = models.MessageSource{
			DocumentID: r.Document.ID,
			Title:      r.Document.Title,
			Relevance:  r.Score,
		}
	}

	return &Answer{
		Response:    strings.TrimSpace(response),
		Sources:     sources,
		Confidence:  confidence(results),
		Suggestions: a.suggestions(ctx, query, results),
	}, nil
}

// buildContext renders the retrieved documents as a numbered context block.
func buildContext(results []Result) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "Document %d: %s\n", i+1, r.Document.Title)
		fmt.Fprintf(&b, "Relevance: %.2f\n", r.Score)
		fmt.Fprintf(&b, "Content: %s\n\n", excerpt(r.Document))
	}
	return b.String()
}

func excerpt(doc models.Document) string {
	text := doc.Summary
	if strings.TrimSpace(text) == "" {
		text = doc.Content
	}
	runes := []rune(text)
	if len(runes) > excerptChars {
		return string(runes[:excerptChars]) + "..."
	}
	return text
}

// confidence blends average relevance (40%), source count saturation at
// five (30%) and the top score (30%).
func confidence(results []Result) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum, top float64
	for _, r := range results {
		sum += r.Score
		if r.Score > top {
			top = r.Score
		}
	}
	avg := sum / float64(len(results))
	count := float64(len(results)) / 5
	if count > 1 {
		count = 1
	}
	c := 0.4*avg + 0.3*count + 0.3*top
	if c > 1 {
		c = 1
	}
	return c
}

func fallbackResponse(results []Result) string {
	titles := make([]string, 0, len(results))
	for _, r := range results {
		titles = append(titles, r.Document.Title)
	}
	return "I found relevant material but couldn't generate a full answer right now. " +
		"These documents look most useful: " + strings.Join(titles, "; ") + "."
}

func (a *Answerer) suggestions(ctx context.Context, query string, results []Result) []string {
	prompt := fmt.Sprintf(
		"The user asked: %q and was shown documents titled %s.\nSuggest 3 short follow-up questions, one per line, no numbering.",
		query, joinTitles(results))
	out, err := a.llm.Generate(ctx, "You suggest concise follow-up questions.", prompt)
	if err != nil || strings.TrimSpace(out) == "" {
		return defaultSuggestions()
	}

	var suggestions []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-•*0123456789.) "))
		if line == "" {
			continue
		}
		suggestions = append(suggestions, line)
		if len(suggestions) == 3 {
			break
		}
	}
	if len(suggestions) == 0 {
		return defaultSuggestions()
	}
	return suggestions
}

func joinTitles(results []Result) string {
	titles := make([]string, 0, len(results))
	for _, r := range results {
		titles = append(titles, fmt.Sprintf("%q", r.Document.Title))
	}
	return strings.Join(titles, ", ")
}

func defaultSuggestions() []string {
	return []string{
		"What are the key takeaways across my documents?",
		"Which of my documents should I read first on this topic?",
		"Summarize the most recent documents I've saved.",
	}
}
