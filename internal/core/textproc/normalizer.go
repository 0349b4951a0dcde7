package textproc

import (
	"regexp"
	"strings"
)

// Boilerplate phrases scrubbed from extracted page text. Matched
// case-insensitively as whole phrases anywhere in the text.
var boilerplatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)cookie policy`),
	regexp.MustCompile(`(?i)privacy policy`),
	regexp.MustCompile(`(?i)terms of service`),
	regexp.MustCompile(`(?i)\bsubscribe\b`),
	regexp.MustCompile(`(?i)\bnewsletter\b`),
	regexp.MustCompile(`(?i)follow us`),
	regexp.MustCompile(`(?i)share this`),
	regexp.MustCompile(`(?i)related articles`),
	regexp.MustCompile(`(?i)advertisement`),
	regexp.MustCompile(`(?i)\badvertise\b`),
	regexp.MustCompile(`(?i)©\s*\d{4}`),
	regexp.MustCompile(`(?i)all rights reserved`),
	regexp.MustCompile(`(?i)loading\.\.\.`),
	regexp.MustCompile(`(?i)please wait\.\.\.`),
	regexp.MustCompile(`(?i)javascript is required`),
	regexp.MustCompile(`(?i)enable javascript`),
}

var (
	reSpaces        = regexp.MustCompile(`[ \t]+`)
	reBlankLines    = regexp.MustCompile(`\n\s*\n(\s*\n)+`)
	reLineEdges     = regexp.MustCompile(`[ \t]*\n[ \t]*`)
	reRepeatedStops = regexp.MustCompile(`[.!?]{2,}`)
	reRepeatedComma = regexp.MustCompile(`[,;]{2,}`)
)

var quoteReplacer = strings.NewReplacer(
	"‘", "'", // left single
	"’", "'", // right single
	"“", `"`, // left double
	"”", `"`, // right double
	"–", "-", // en dash
	"—", "-", // em dash
	"…", "...",
)

// Normalize cleans raw extracted text: boilerplate removal, quote/dash
// normalization, punctuation and whitespace collapsing. Pure and idempotent:
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	text := quoteReplacer.Replace(raw)

	for _, re := range boilerplatePatterns {
		text = re.ReplaceAllString(text, "")
	}

	text = reRepeatedStops.ReplaceAllString(text, ".")
	text = reRepeatedComma.ReplaceAllString(text, ",")

	// Whitespace: single spaces within lines, no space padding around
	// newlines, at most one blank line between paragraphs.
	text = reSpaces.ReplaceAllString(text, " ")
	text = reLineEdges.ReplaceAllString(text, "\n")
	text = reBlankLines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
