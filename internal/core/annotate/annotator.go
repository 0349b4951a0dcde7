package annotate

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/core/textproc"
	"github.com/markdave123-py/Memora/internal/models"
)

// Per-field input budgets in bytes; roughly mirrors how much context each
// extraction benefits from.
const (
	titleInputLimit    = 2000
	summaryInputLimit  = 5000
	insightsInputLimit = 8000
	tagsInputLimit     = 3000
	actionsInputLimit  = 4000
	quotesInputLimit   = 6000
)

// Typed fallbacks substituted when a field's extraction fails.
const (
	FallbackTitle   = "Untitled"
	FallbackSummary = "Summary not available"
)

// TextField is a single-string extraction result. Fallback marks that the
// model call failed and Value is the typed substitute, so callers can tell
// genuine output from filler without sniffing sentinel strings.
type TextField struct {
	Value    string `json:"value"`
	Fallback bool   `json:"fallback,omitempty"`
}

// ListField is a string-list extraction result.
type ListField struct {
	Values   []string `json:"values"`
	Fallback bool     `json:"fallback,omitempty"`
}

// InsightsField carries extracted insights.
type InsightsField struct {
	Values   []models.Insight `json:"values"`
	Fallback bool             `json:"fallback,omitempty"`
}

// SnippetsField carries quotable snippets.
type SnippetsField struct {
	Values   []models.QuotableSnippet `json:"values"`
	Fallback bool                     `json:"fallback,omitempty"`
}

// Result is the full annotation of one document. Fields a strategy did not
// request hold their zero value with Fallback unset.
type Result struct {
	Strategy    Strategy      `json:"strategy"`
	Title       TextField     `json:"title"`
	Summary     TextField     `json:"summary"`
	Insights    InsightsField `json:"insights"`
	Tags        ListField     `json:"tags"`
	ActionItems ListField     `json:"action_items"`
	Snippets    SnippetsField `json:"quotable_snippets"`
}

// Annotator extracts titles, summaries, insights, tags, action items and
// quotable snippets from document text via a text-completion capability.
type Annotator struct {
	llm core.LLMProvider
}

func NewAnnotator(llm core.LLMProvider) *Annotator {
	return &Annotator{llm: llm}
}

// Annotate runs the strategy-selected field extractions concurrently and
// collects their results. A failing field never aborts the others: it gets
// its typed fallback and the rest proceed. Annotate itself never fails.
func (a *Annotator) Annotate(ctx context.Context, content string, analysis textproc.ContentAnalysis) Result {
	strategy := ChooseStrategy(analysis.Quality, analysis.ContentType, analysis.WordCount)
	prof := profiles[strategy]
	res := Result{Strategy: strategy}

	var wg sync.WaitGroup
	run := func(f field, apply func()) {
		if !prof.wants(f) {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			apply()
		}()
	}

	run(fieldTitle, func() { res.Title = a.extractTitle(ctx, prof, content) })
	run(fieldSummary, func() { res.Summary = a.extractSummary(ctx, prof, content, analysis.Language) })
	run(fieldInsights, func() { res.Insights = a.extractInsights(ctx, prof, content) })
	run(fieldTags, func() { res.Tags = a.extractTags(ctx, prof, content) })
	run(fieldActions, func() { res.ActionItems = a.extractActionItems(ctx, prof, content) })
	run(fieldQuotes, func() { res.Snippets = a.extractSnippets(ctx, prof, content) })
	wg.Wait()

	return res
}

// generate wraps the provider call with the strategy flavor baked into the
// system prompt.
func (a *Annotator) generate(ctx context.Context, prof profile, system, user string) (string, error) {
	out, err := a.llm.Generate(ctx, system+" "+prof.flavor, user)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("empty completion")
	}
	return out, nil
}

func (a *Annotator) extractTitle(ctx context.Context, prof profile, content string) TextField {
	out, err := a.generate(ctx, prof,
		"You name documents. Reply with a single concise title line and nothing else.",
		"Title this content:\n\n"+truncate(content, titleInputLimit))
	if err != nil {
		log.Printf("annotate: title extraction failed: %v", err)
		return TextField{Value: FallbackTitle, Fallback: true}
	}
	title := firstLine(out)
	if title == "" {
		return TextField{Value: FallbackTitle, Fallback: true}
	}
	return TextField{Value: truncate(title, 200)}
}

func (a *Annotator) extractSummary(ctx context.Context, prof profile, content, language string) TextField {
	out, err := a.generate(ctx, prof,
		fmt.Sprintf("You summarize documents in 2-4 sentences, writing in the document's language (%s).", language),
		"Summarize this content:\n\n"+truncate(content, summaryInputLimit))
	if err != nil {
		log.Printf("annotate: summary extraction failed: %v", err)
		return TextField{Value: FallbackSummary, Fallback: true}
	}
	return TextField{Value: strings.TrimSpace(out)}
}

func (a *Annotator) extractInsights(ctx context.Context, prof profile, content string) InsightsField {
	out, err := a.generate(ctx, prof,
		fmt.Sprintf("You extract key insights. Reply with %s insights, one per line, no preamble.", prof.insightRange),
		"Extract the key insights from this content:\n\n"+truncate(content, insightsInputLimit))
	if err != nil {
		log.Printf("annotate: insights extraction failed: %v", err)
		return InsightsField{Values: []models.Insight{}, Fallback: true}
	}
	return InsightsField{Values: parseInsights(out)}
}

func (a *Annotator) extractTags(ctx context.Context, prof profile, content string) ListField {
	out, err := a.generate(ctx, prof,
		"You assign topical tags. Reply with 5-15 short lowercase tags, comma separated.",
		"Tag this content:\n\n"+truncate(content, tagsInputLimit))
	if err != nil {
		log.Printf("annotate: tags extraction failed: %v", err)
		return ListField{Values: []string{}, Fallback: true}
	}
	return ListField{Values: parseTags(out)}
}

func (a *Annotator) extractActionItems(ctx context.Context, prof profile, content string) ListField {
	out, err := a.generate(ctx, prof,
		"You extract actionable follow-ups. Reply with one action per line; reply NONE if there are none.",
		"List the action items a reader should take away from this content:\n\n"+truncate(content, actionsInputLimit))
	if err != nil {
		log.Printf("annotate: action item extraction failed: %v", err)
		return ListField{Values: []string{}, Fallback: true}
	}
	if strings.EqualFold(strings.TrimSpace(out), "none") {
		return ListField{Values: []string{}}
	}
	return ListField{Values: parseActionItems(out)}
}

func (a *Annotator) extractSnippets(ctx context.Context, prof profile, content string) SnippetsField {
	out, err := a.generate(ctx, prof,
		"You pick quotable passages. For each, reply two lines: 'Quote: <verbatim quote>' then 'Context: <why it matters>'.",
		"Pick up to 5 quotable snippets from this content:\n\n"+truncate(content, quotesInputLimit))
	if err != nil {
		log.Printf("annotate: snippet extraction failed: %v", err)
		return SnippetsField{Values: []models.QuotableSnippet{}, Fallback: true}
	}
	return SnippetsField{Values: parseSnippets(out)}
}
