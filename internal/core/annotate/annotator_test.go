package annotate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Memora/internal/core/textproc"
)

// fakeLLM routes canned responses by the leading verb of the user prompt and
// can be told to fail specific fields.
type fakeLLM struct {
	mu        sync.Mutex
	failOn    map[string]bool // prompt prefix -> fail
	callCount int
}

var promptPrefixes = map[string]string{
	"Title this content":     "A Fine Document",
	"Summarize this content": "This document covers several topics in depth.",
	"Extract the key":        "- first insight\n- second insight\n- third insight",
	"Tag this content":       "golang, testing, pipelines",
	"List the action items":  "1. Review the draft\n2. Ship it",
	"Pick up to 5 quotable":  "Quote: \"measure twice\"\nContext: planning section",
}

func (f *fakeLLM) Generate(_ context.Context, _, user string) (string, error) {
	f.mu.Lock()
	f.callCount++
	f.mu.Unlock()

	for prefix, reply := range promptPrefixes {
		if strings.HasPrefix(user, prefix) {
			if f.failOn[prefix] {
				return "", errors.New("provider unavailable")
			}
			return reply, nil
		}
	}
	return "", errors.New("unrecognized prompt")
}

func standardAnalysis() textproc.ContentAnalysis {
	return textproc.ContentAnalysis{
		Quality:     textproc.QualityGood,
		ContentType: textproc.TypeArticle,
		WordCount:   600,
		Language:    "en",
	}
}

func TestChooseStrategy(t *testing.T) {
	tests := []struct {
		name        string
		quality     string
		contentType string
		wordCount   int
		want        Strategy
	}{
		{"excellent long content", textproc.QualityExcellent, textproc.TypeArticle, 1500, StrategyComprehensive},
		{"excellent but short stays out of comprehensive", textproc.QualityExcellent, textproc.TypeArticle, 800, StrategyStandard},
		{"poor quality", textproc.QualityPoor, textproc.TypeArticle, 800, StrategyLight},
		{"short content", textproc.QualityGood, textproc.TypeArticle, 150, StrategyLight},
		{"poor beats technical", textproc.QualityPoor, textproc.TypeTechnical, 800, StrategyLight},
		{"technical", textproc.QualityGood, textproc.TypeTechnical, 800, StrategyTechnical},
		{"documentation routes technical", textproc.QualityGood, textproc.TypeDocumentation, 800, StrategyTechnical},
		{"academic", textproc.QualityFair, textproc.TypeAcademic, 800, StrategyAcademic},
		{"comprehensive beats technical", textproc.QualityExcellent, textproc.TypeTechnical, 1500, StrategyComprehensive},
		{"default", textproc.QualityGood, textproc.TypeBlog, 800, StrategyStandard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChooseStrategy(tt.quality, tt.contentType, tt.wordCount))
		})
	}
}

func TestAnnotateHappyPath(t *testing.T) {
	a := NewAnnotator(&fakeLLM{})
	res := a.Annotate(context.Background(), "some content", standardAnalysis())

	assert.Equal(t, StrategyStandard, res.Strategy)
	assert.Equal(t, "A Fine Document", res.Title.Value)
	assert.False(t, res.Title.Fallback)
	assert.False(t, res.Summary.Fallback)
	require.Len(t, res.Insights.Values, 3)
	assert.Equal(t, "first insight", res.Insights.Values[0].Text)
	assert.InDelta(t, 0.8, res.Insights.Values[0].RelevanceScore, 1e-9)
	assert.Equal(t, "general", res.Insights.Values[0].Category)
	assert.Equal(t, []string{"golang", "testing", "pipelines"}, res.Tags.Values)
	assert.Equal(t, []string{"Review the draft", "Ship it"}, res.ActionItems.Values)
	require.Len(t, res.Snippets.Values, 1)
	assert.Equal(t, "measure twice", res.Snippets.Values[0].Quote)
	assert.Equal(t, "planning section", res.Snippets.Values[0].Context)
}

func TestAnnotateTagsFailureIsolated(t *testing.T) {
	llm := &fakeLLM{failOn: map[string]bool{"Tag this content": true}}
	a := NewAnnotator(llm)

	res := a.Annotate(context.Background(), "some content", standardAnalysis())

	assert.True(t, res.Tags.Fallback, "failed field must be marked as fallback")
	assert.Empty(t, res.Tags.Values)

	assert.False(t, res.Title.Fallback)
	assert.Equal(t, "A Fine Document", res.Title.Value)
	assert.False(t, res.Summary.Fallback)
	assert.NotEmpty(t, res.Summary.Value)
	assert.NotEmpty(t, res.Insights.Values, "sibling fields must be unaffected")
}

func TestAnnotateAllFieldsFail(t *testing.T) {
	llm := &fakeLLM{failOn: map[string]bool{
		"Title this content":     true,
		"Summarize this content": true,
		"Extract the key":        true,
		"Tag this content":       true,
		"List the action items":  true,
		"Pick up to 5 quotable":  true,
	}}
	res := NewAnnotator(llm).Annotate(context.Background(), "content", standardAnalysis())

	assert.True(t, res.Title.Fallback)
	assert.Equal(t, FallbackTitle, res.Title.Value)
	assert.True(t, res.Summary.Fallback)
	assert.Equal(t, FallbackSummary, res.Summary.Value)
	assert.True(t, res.Insights.Fallback)
	assert.Empty(t, res.Insights.Values)
	assert.True(t, res.Tags.Fallback)
	assert.True(t, res.ActionItems.Fallback)
	assert.True(t, res.Snippets.Fallback)
}

func TestAnnotateLightStrategy(t *testing.T) {
	llm := &fakeLLM{}
	analysis := standardAnalysis()
	analysis.Quality = textproc.QualityPoor

	res := NewAnnotator(llm).Annotate(context.Background(), "content", analysis)

	assert.Equal(t, StrategyLight, res.Strategy)
	assert.Equal(t, "A Fine Document", res.Title.Value)
	assert.NotEmpty(t, res.Summary.Value)
	assert.NotEmpty(t, res.Tags.Values)

	assert.Empty(t, res.Insights.Values, "light strategy requests no insights")
	assert.False(t, res.Insights.Fallback)
	assert.Empty(t, res.ActionItems.Values)
	assert.Empty(t, res.Snippets.Values)
	assert.Equal(t, 3, llm.callCount, "light strategy makes exactly three calls")
}

func TestParseListBullets(t *testing.T) {
	raw := "- dashed\n• dotted\n* starred\n1. numbered\n2) parenthesized\na) lettered\n\nplain"
	items := parseLines(raw)
	assert.Equal(t, []string{"dashed", "dotted", "starred", "numbered", "parenthesized", "lettered", "plain"}, items)
}

func TestParseInsightsCap(t *testing.T) {
	raw := strings.Repeat("- an insight line\n", 12)
	insights := parseInsights(raw)
	assert.Len(t, insights, maxInsights)
}

func TestParseTags(t *testing.T) {
	t.Run("dedup and lowercase", func(t *testing.T) {
		tags := parseTags("Go, go, GOLANG, testing")
		assert.Equal(t, []string{"go", "golang", "testing"}, tags)
	})

	t.Run("cap at fifteen", func(t *testing.T) {
		var parts []string
		for i := 0; i < 25; i++ {
			parts = append(parts, "tag"+strings.Repeat("x", i))
		}
		tags := parseTags(strings.Join(parts, ", "))
		assert.Len(t, tags, maxTags)
	})

	t.Run("overlong tags dropped", func(t *testing.T) {
		tags := parseTags("short, " + strings.Repeat("y", 60))
		assert.Equal(t, []string{"short"}, tags)
	})
}

func TestParseSnippets(t *testing.T) {
	raw := `Quote: "first quote"
Context: opening remarks
Quote: second quote
Context: body
Quote: dangling quote without context`

	snippets := parseSnippets(raw)
	require.Len(t, snippets, 3)
	assert.Equal(t, "first quote", snippets[0].Quote)
	assert.Equal(t, "opening remarks", snippets[0].Context)
	assert.Equal(t, "second quote", snippets[1].Quote)
	assert.Equal(t, "dangling quote without context", snippets[2].Quote)
	assert.Empty(t, snippets[2].Context)
}

func TestParseSnippetsCap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 9; i++ {
		b.WriteString("Quote: q\nContext: c\n")
	}
	assert.Len(t, parseSnippets(b.String()), maxSnippets)
}
