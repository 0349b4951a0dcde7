package annotate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/markdave123-py/Memora/internal/models"
)

// Output caps applied after parsing, regardless of what the model returned.
const (
	maxInsights = 8
	maxTags     = 15
	maxActions  = 10
	maxSnippets = 5
	maxTagLen   = 50
)

// Completion output arrives as free text; list answers may carry any bullet
// flavor the model felt like using.
var reBullet = regexp.MustCompile(`^\s*(?:[-•*]+|\d+[.)]|[a-zA-Z][.)])\s*`)

func stripBullet(line string) string {
	return strings.TrimSpace(reBullet.ReplaceAllString(line, ""))
}

// parseLines splits completion output into cleaned list items.
func parseLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if item := stripBullet(line); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseInsights(raw string) []models.Insight {
	lines := parseLines(raw)
	if len(lines) > maxInsights {
		lines = lines[:maxInsights]
	}
	out := make([]models.Insight, 0, len(lines))
	for _, line := range lines {
		out = append(out, models.Insight{
			Text:           line,
			RelevanceScore: 0.8,
			Category:       "general",
		})
	}
	return out
}

// parseTags accepts comma- or newline-separated tags, lowercases them, drops
// overlong entries and deduplicates, keeping first occurrence order.
func parseTags(raw string) []string {
	var out []string
	seen := map[string]bool{}
	for _, line := range strings.Split(raw, "\n") {
		for _, piece := range strings.Split(line, ",") {
			tag := strings.ToLower(stripBullet(piece))
			tag = strings.Trim(tag, `"'#`)
			if tag == "" || len(tag) >= maxTagLen || seen[tag] {
				continue
			}
			seen[tag] = true
			out = append(out, tag)
			if len(out) == maxTags {
				return out
			}
		}
	}
	return out
}

func parseActionItems(raw string) []string {
	items := parseLines(raw)
	if len(items) > maxActions {
		items = items[:maxActions]
	}
	return items
}

// parseSnippets reads Quote:/Context: pairs. A quote with no following
// context line is kept with an empty context.
func parseSnippets(raw string) []models.QuotableSnippet {
	var out []models.QuotableSnippet
	var current *models.QuotableSnippet

	flush := func() {
		if current != nil && current.Quote != "" {
			out = append(out, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(raw, "\n") {
		line = stripBullet(line)
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "quote:"):
			flush()
			current = &models.QuotableSnippet{Quote: cleanQuote(line[len("quote:"):])}
		case strings.HasPrefix(lower, "context:"):
			if current != nil {
				current.Context = strings.TrimSpace(line[len("context:"):])
				flush()
			}
		}
		if len(out) == maxSnippets {
			return out
		}
	}
	flush()
	if len(out) > maxSnippets {
		out = out[:maxSnippets]
	}
	return out
}

func cleanQuote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

// firstLine reduces a completion to a single usable line (for titles).
func firstLine(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.Trim(strings.TrimSpace(line), `"'`)
		if line != "" {
			return line
		}
	}
	return ""
}

// truncate bounds model input, cutting on a rune boundary.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	total := 0
	for i, r := range runes {
		total += utf8.RuneLen(r)
		if total > limit {
			return string(runes[:i])
		}
	}
	return s
}
