package textproc

import (
	"strings"
	"unicode"
)

// Sentence is one sentence of a source text with its byte span. End-Start
// always equals len(Text); spans never overlap and appear in source order.
type Sentence struct {
	Text  string
	Start int
	End   int
}

// SplitSentences breaks text on runs of terminal punctuation (. ! ?),
// keeping the punctuation with the sentence it ends. Leading whitespace is
// excluded from each span. This is the shared boundary primitive used by the
// classifier, the chunker and the chunk-boundary tests.
func SplitSentences(text string) []Sentence {
	var out []Sentence

	start := -1 // start of the current sentence, -1 while skipping whitespace
	inTerm := false

	flush := func(end int) {
		if start < 0 || end <= start {
			return
		}
		raw := text[start:end]
		if strings.TrimSpace(raw) == "" {
			start = -1
			return
		}
		// Drop trailing whitespace from the span.
		trimmed := strings.TrimRightFunc(raw, unicode.IsSpace)
		out = append(out, Sentence{Text: trimmed, Start: start, End: start + len(trimmed)})
		start = -1
	}

	for i, r := range text {
		switch {
		case r == '.' || r == '!' || r == '?':
			if start < 0 {
				// Stray punctuation with no sentence body; skip it.
				continue
			}
			inTerm = true
		case unicode.IsSpace(r):
			if inTerm {
				flush(i)
				inTerm = false
			}
		default:
			if inTerm {
				// Punctuation run ended without whitespace (e.g. "a.b");
				// treat it as sentence-internal and keep scanning.
				inTerm = false
			}
			if start < 0 {
				start = i
			}
		}
	}
	flush(len(text))

	return out
}

// SentenceTexts is SplitSentences without the offsets.
func SentenceTexts(text string) []string {
	sents := SplitSentences(text)
	out := make([]string, len(sents))
	for i, s := range sents {
		out[i] = s.Text
	}
	return out
}

// Words splits on whitespace. Counting-only callers share this so word
// counts agree across the classifier, chunker and reading-time math.
func Words(text string) []string {
	return strings.Fields(text)
}

// contentWord lowercases a token and strips surrounding punctuation,
// returning ok=false for stopwords, short words and non-alphabetic tokens.
func contentWord(tok string) (string, bool) {
	w := strings.ToLower(strings.TrimFunc(tok, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}))
	if len(w) <= 3 {
		return "", false
	}
	for _, r := range w {
		if !unicode.IsLetter(r) {
			return "", false
		}
	}
	if stopwords[w] {
		return "", false
	}
	return w, true
}

// rankByFrequency orders distinct items by descending count, ties broken by
// first appearance, and returns at most limit of them.
func rankByFrequency(items []string, limit int) []string {
	if len(items) == 0 || limit <= 0 {
		return nil
	}
	counts := make(map[string]int, len(items))
	firstSeen := make(map[string]int, len(items))
	var order []string
	for i, it := range items {
		if _, ok := counts[it]; !ok {
			firstSeen[it] = i
			order = append(order, it)
		}
		counts[it]++
	}
	// Insertion sort keeps this dependency-free; candidate lists are small.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0; j-- {
			a, b := order[j-1], order[j]
			if counts[b] > counts[a] || (counts[b] == counts[a] && firstSeen[b] < firstSeen[a]) {
				order[j-1], order[j] = b, a
			} else {
				break
			}
		}
	}
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}

var stopwords = map[string]bool{
	"about": true, "above": true, "after": true, "again": true, "against": true,
	"all": true, "also": true, "between": true, "both": true, "because": true,
	"been": true, "before": true, "being": true, "below": true, "cannot": true,
	"could": true, "does": true, "doing": true, "down": true, "during": true,
	"each": true, "from": true, "further": true, "have": true, "having": true,
	"here": true, "into": true, "itself": true, "just": true, "more": true,
	"most": true, "only": true, "other": true, "over": true, "same": true,
	"should": true, "some": true, "such": true, "than": true, "that": true,
	"their": true, "them": true, "then": true, "there": true, "these": true,
	"they": true, "this": true, "those": true, "through": true, "under": true,
	"until": true, "very": true, "were": true, "what": true, "when": true,
	"where": true, "which": true, "while": true, "will": true, "with": true,
	"would": true, "your": true, "yours": true,
}
