package textproc

import (
	"regexp"
	"strings"
)

// Content type labels, in classification priority order.
const (
	TypeTechnical     = "technical"
	TypeAcademic      = "academic"
	TypeDocumentation = "documentation"
	TypeNews          = "news"
	TypeBlog          = "blog"
	TypeArticle       = "article"
)

// Quality tiers.
const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityFair      = "fair"
	QualityPoor      = "poor"
)

// StructureInfo describes the shape of a text.
type StructureInfo struct {
	ParagraphCount   int
	SentenceCount    int
	AvgParagraphLen  float64 // words per paragraph
	AvgSentenceLen   float64 // words per sentence
	HasLists         bool
	HasCodeBlocks    bool
	HasLinks         bool
	HeaderCount      int
}

// ContentAnalysis is the classifier's full verdict for one text.
type ContentAnalysis struct {
	Language           string
	ContentType        string
	Structure          StructureInfo
	QualityScore       int    // 0..100
	Quality            string // excellent | good | fair | poor
	ComplexityScore    float64
	Topics             []string
	KeyPhrases         []string
	WordCount          int
	SentenceCount      int
	ParagraphCount     int
	ReadingTimeMinutes int
}

var (
	reList     = regexp.MustCompile(`(?m)^\s*(?:[-*•]|\d+[.)])\s+`)
	reCode     = regexp.MustCompile("(?m)```|^\\s{4,}\\S|\\b(?:func|def|class|import|#include)\\b")
	reLink     = regexp.MustCompile(`https?://\S+`)
	reHeaderMk = regexp.MustCompile(`^\s*[#*]+\s*\S`)
)

var typeKeywords = map[string][]string{
	TypeTechnical: {
		"algorithm", "implementation", "code", "programming", "software",
		"api", "framework", "database", "server", "deployment", "function",
		"debugging", "compiler", "runtime", "latency",
	},
	TypeAcademic: {
		"research", "study", "analysis", "methodology", "hypothesis",
		"experiment", "findings", "conclusion", "abstract", "citation",
		"journal", "university", "peer-reviewed",
	},
	TypeDocumentation: {
		"installation", "getting started", "usage", "configuration",
		"tutorial", "guide", "reference", "changelog", "prerequisites",
	},
	TypeNews: {
		"breaking", "reported", "according to", "announced", "statement",
		"officials", "press", "spokesperson",
	},
	TypeBlog: {
		"i think", "in my experience", "my take", "personally", "opinion",
	},
}

// Classifier computes language, content type, structure, quality, complexity
// and topical metadata for normalized text. Stateless; safe for concurrent use.
type Classifier struct{}

func NewClassifier() *Classifier { return &Classifier{} }

// Analyze classifies text. sourceHint, when non-empty, is the source URL and
// participates in documentation/blog detection. Never fails: empty input
// yields a zeroed analysis with the fallback language.
func (c *Classifier) Analyze(text, sourceHint string) ContentAnalysis {
	analysis := ContentAnalysis{Language: "en", ContentType: TypeArticle, Quality: QualityPoor}

	if strings.TrimSpace(text) == "" {
		analysis.ReadingTimeMinutes = 1
		return analysis
	}

	words := Words(text)
	sentences := SplitSentences(text)

	analysis.Language = DetectLanguage(text)
	analysis.ContentType = c.classifyContentType(text, sourceHint)
	analysis.Structure = c.analyzeStructure(text, words, sentences)
	analysis.WordCount = len(words)
	analysis.SentenceCount = len(sentences)
	analysis.ParagraphCount = analysis.Structure.ParagraphCount
	analysis.QualityScore = c.qualityScore(words, sentences, analysis.Structure)
	analysis.Quality = qualityTier(analysis.QualityScore)
	analysis.ComplexityScore = c.complexityScore(words, analysis.Structure)
	analysis.Topics = ExtractTopics(text, 10)
	analysis.KeyPhrases = ExtractKeyPhrases(text, 15)
	analysis.ReadingTimeMinutes = ReadingTime(len(words))

	return analysis
}

// ReadingTime estimates minutes at 225 words per minute, floored at 1.
func ReadingTime(wordCount int) int {
	if m := wordCount / 225; m > 1 {
		return m
	}
	return 1
}

// DetectLanguage takes a best-effort guess from stopword hits on the first
// 1000 characters. Defaults to "en"; never fails.
func DetectLanguage(text string) string {
	prefix := text
	if len(prefix) > 1000 {
		prefix = prefix[:1000]
	}
	tokens := strings.Fields(strings.ToLower(prefix))
	if len(tokens) == 0 {
		return "en"
	}

	hits := map[string]int{}
	for _, tok := range tokens {
		tok = strings.Trim(tok, ".,;:!?\"'()")
		for lang, markers := range languageMarkers {
			if markers[tok] {
				hits[lang]++
			}
		}
	}

	best, bestN := "en", 0
	for _, lang := range []string{"en", "es", "fr", "de"} { // fixed order keeps ties deterministic
		if hits[lang] > bestN {
			best, bestN = lang, hits[lang]
		}
	}
	if bestN*20 < len(tokens) { // too weak a signal to trust
		return "en"
	}
	return best
}

var languageMarkers = map[string]map[string]bool{
	"en": {"the": true, "and": true, "is": true, "of": true, "that": true, "with": true, "for": true},
	"es": {"el": true, "la": true, "los": true, "las": true, "es": true, "una": true, "para": true, "que": true},
	"fr": {"le": true, "les": true, "est": true, "une": true, "dans": true, "pour": true, "avec": true},
	"de": {"der": true, "die": true, "das": true, "und": true, "ist": true, "nicht": true, "ein": true},
}

// classifyContentType applies rule-based matching in a fixed priority order:
// technical, academic, documentation (source hint counts), news, blog (source
// hint), then article. First match wins.
func (c *Classifier) classifyContentType(text, sourceHint string) string {
	lower := strings.ToLower(text)
	hint := strings.ToLower(sourceHint)

	count := func(kind string) int {
		n := 0
		for _, kw := range typeKeywords[kind] {
			if strings.Contains(lower, kw) {
				n++
			}
		}
		return n
	}

	if count(TypeTechnical) >= 3 {
		return TypeTechnical
	}
	if count(TypeAcademic) >= 3 {
		return TypeAcademic
	}
	if strings.Contains(hint, "docs") || strings.Contains(hint, "documentation") ||
		strings.Contains(hint, "readme") || count(TypeDocumentation) >= 2 {
		return TypeDocumentation
	}
	if count(TypeNews) >= 2 {
		return TypeNews
	}
	if strings.Contains(hint, "blog") || strings.Contains(hint, "medium.com") ||
		strings.Contains(hint, "substack") || count(TypeBlog) >= 2 {
		return TypeBlog
	}
	return TypeArticle
}

func (c *Classifier) analyzeStructure(text string, words []string, sentences []Sentence) StructureInfo {
	info := StructureInfo{SentenceCount: len(sentences)}

	paragraphs := splitParagraphs(text)
	info.ParagraphCount = len(paragraphs)

	if len(paragraphs) > 0 {
		total := 0
		for _, p := range paragraphs {
			pw := len(Words(p))
			total += pw
			if isHeaderLike(p, pw) {
				info.HeaderCount++
			}
		}
		info.AvgParagraphLen = float64(total) / float64(len(paragraphs))
	}
	if len(sentences) > 0 {
		total := 0
		for _, s := range sentences {
			total += len(Words(s.Text))
		}
		info.AvgSentenceLen = float64(total) / float64(len(sentences))
	}

	info.HasLists = reList.MatchString(text)
	info.HasCodeBlocks = reCode.MatchString(text)
	info.HasLinks = reLink.MatchString(text)
	return info
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// isHeaderLike treats short all-caps or marker-prefixed paragraphs as headers.
func isHeaderLike(p string, wordCount int) bool {
	if wordCount == 0 || wordCount > 10 {
		return false
	}
	trimmed := strings.TrimSpace(p)
	if reHeaderMk.MatchString(trimmed) {
		return true
	}
	hasLetter := false
	for _, r := range trimmed {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}

// qualityScore is additive across five bands, 0..100: length, structure,
// readability, vocabulary richness, formatting. Tiers: >=80 excellent,
// >=60 good, >=40 fair, else poor.
func (c *Classifier) qualityScore(words []string, sentences []Sentence, s StructureInfo) int {
	score := 0
	wc := len(words)

	// Length band (0-20).
	switch {
	case wc > 1000:
		score += 20
	case wc > 500:
		score += 15
	case wc > 200:
		score += 10
	case wc > 100:
		score += 5
	}

	// Structure band (0-20).
	if s.ParagraphCount > 5 {
		score += 10
	}
	if s.SentenceCount > 10 {
		score += 10
	}

	// Readability band (0-20): average sentence length sweet spot.
	switch avg := s.AvgSentenceLen; {
	case avg >= 10 && avg <= 25:
		score += 20
	case avg >= 5 && avg <= 30:
		score += 15
	case avg > 0:
		score += 10
	}

	// Vocabulary band (0-20).
	switch uw := uniqueWordCount(words); {
	case uw > 200:
		score += 20
	case uw > 100:
		score += 15
	case uw > 50:
		score += 10
	}

	// Formatting band (0-20).
	if s.HasLists {
		score += 5
	}
	if s.HasLinks {
		score += 5
	}
	if s.HeaderCount > 0 {
		score += 10
	}

	return score
}

func qualityTier(score int) string {
	switch {
	case score >= 80:
		return QualityExcellent
	case score >= 60:
		return QualityGood
	case score >= 40:
		return QualityFair
	default:
		return QualityPoor
	}
}

// complexityScore weights normalized sentence length (40%), word length (30%)
// and unique-word ratio (30%), each capped at 1 before weighting.
func (c *Classifier) complexityScore(words []string, s StructureInfo) float64 {
	if len(words) == 0 {
		return 0
	}

	sentencePart := s.AvgSentenceLen / 30
	if sentencePart > 1 {
		sentencePart = 1
	}

	totalLen := 0
	for _, w := range words {
		totalLen += len([]rune(w))
	}
	wordPart := float64(totalLen) / float64(len(words)) / 8
	if wordPart > 1 {
		wordPart = 1
	}

	uniquePart := float64(uniqueWordCount(words)) / float64(len(words))

	return 0.4*sentencePart + 0.3*wordPart + 0.3*uniquePart
}

func uniqueWordCount(words []string) int {
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[strings.ToLower(w)] = struct{}{}
	}
	return len(seen)
}

// ExtractTopics returns up to limit frequency-ranked content words.
func ExtractTopics(text string, limit int) []string {
	var candidates []string
	for _, tok := range Words(text) {
		if w, ok := contentWord(tok); ok {
			candidates = append(candidates, w)
		}
	}
	return rankByFrequency(candidates, limit)
}

// ExtractKeyPhrases returns up to limit frequency-ranked spans of two to four
// consecutive content words.
func ExtractKeyPhrases(text string, limit int) []string {
	toks := Words(text)
	cleaned := make([]string, 0, len(toks))
	for _, tok := range toks {
		if w, ok := contentWord(tok); ok {
			cleaned = append(cleaned, w)
		} else {
			cleaned = append(cleaned, "") // phrase boundary
		}
	}

	var phrases []string
	for n := 2; n <= 4; n++ {
		for i := 0; i+n <= len(cleaned); i++ {
			run := cleaned[i : i+n]
			ok := true
			for _, w := range run {
				if w == "" {
					ok = false
					break
				}
			}
			if ok {
				phrases = append(phrases, strings.Join(run, " "))
			}
		}
	}
	return rankByFrequency(phrases, limit)
}
