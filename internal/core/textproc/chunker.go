package textproc

import (
	"log"
	"strings"
	"unicode/utf8"
)

const (
	defaultChunkSize = 1000
	defaultOverlap   = 200
)

// Chunk is one sentence-bounded slice of a source text. StartChar/EndChar are
// byte offsets into the source; EndChar-StartChar == len(Text). Indices are
// contiguous from 0 and spans only overlap within the configured overlap window.
type Chunk struct {
	Index         int
	Text          string
	StartChar     int
	EndChar       int
	WordCount     int
	SentenceCount int
	TokenCount    int
	QualityScore  float64
	Topics        []string
	KeyPhrases    []string
}

// Chunker splits normalized text into overlapping, sentence-boundary-
// respecting chunks. Construct with NewChunker; safe for concurrent use.
type Chunker struct {
	size    int
	overlap int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the target chunk size in bytes.
func WithChunkSize(n int) Option {
	return func(c *Chunker) { c.size = n }
}

// WithOverlap sets how many trailing bytes of a chunk seed the next one.
func WithOverlap(n int) Option {
	return func(c *Chunker) { c.overlap = n }
}

// NewChunker applies options over the defaults (size 1000, overlap 200).
// An overlap at or above the chunk size cannot make progress, so it is
// clamped to a quarter of the size.
func NewChunker(opts ...Option) *Chunker {
	c := &Chunker{size: defaultChunkSize, overlap: defaultOverlap}
	for _, opt := range opts {
		opt(c)
	}
	if c.size <= 0 {
		c.size = defaultChunkSize
	}
	if c.overlap < 0 {
		c.overlap = 0
	}
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}
	return c
}

// Chunk splits text into scored chunks. Sentences are accumulated greedily
// until adding the next one would exceed the chunk size; the emitted chunk's
// trailing sentences (combined length at most the overlap) seed the next
// chunk. A single sentence longer than the chunk size is still emitted as its
// own chunk. Empty or whitespace-only input yields nil. If the sentence pass
// panics, the fixed-window fallback takes over.
func (c *Chunker) Chunk(text string) (chunks []Chunk) {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("chunker: sentence pass failed (%v), falling back to fixed windows", r)
			chunks = c.fixedWindowChunks(text)
		}
	}()

	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var window []Sentence
	spanIfAdded := func(s Sentence) int {
		if len(window) == 0 {
			return s.End - s.Start
		}
		return s.End - window[0].Start
	}

	for _, s := range sentences {
		if len(window) > 0 && spanIfAdded(s) > c.size {
			chunks = append(chunks, c.buildChunk(len(chunks), text, window))
			window = append(c.overlapTail(window), s)
			continue
		}
		window = append(window, s)
	}
	if len(window) > 0 {
		chunks = append(chunks, c.buildChunk(len(chunks), text, window))
	}

	return chunks
}

// overlapTail returns the longest proper suffix of window whose combined span
// fits the overlap budget. The suffix seeds the next chunk so context carries
// across the boundary; it is never the whole window, so spans always advance.
func (c *Chunker) overlapTail(window []Sentence) []Sentence {
	if c.overlap <= 0 || len(window) == 0 {
		return nil
	}
	end := window[len(window)-1].End
	cut := len(window)
	for cut > 1 && end-window[cut-1].Start <= c.overlap {
		cut--
	}
	tail := window[cut:]
	if len(tail) == 0 {
		return nil
	}
	// Copy: the caller appends to the result, which would otherwise clobber
	// the shared backing array.
	out := make([]Sentence, len(tail))
	copy(out, tail)
	return out
}

func (c *Chunker) buildChunk(index int, source string, window []Sentence) Chunk {
	start := window[0].Start
	end := window[len(window)-1].End
	body := source[start:end]

	words := Words(body)
	avgSentLen := 0.0
	if len(window) > 0 {
		avgSentLen = float64(len(words)) / float64(len(window))
	}

	return Chunk{
		Index:         index,
		Text:          body,
		StartChar:     start,
		EndChar:       end,
		WordCount:     len(words),
		SentenceCount: len(window),
		TokenCount:    approxTokens(body),
		QualityScore:  chunkQuality(words, len(window), avgSentLen),
		Topics:        ExtractTopics(body, 5),
		KeyPhrases:    ExtractKeyPhrases(body, 5),
	}
}

// fixedWindowChunks is the failure-mode fallback: fixed-size character
// windows stepped by size-overlap. Splits on rune boundaries only.
func (c *Chunker) fixedWindowChunks(text string) []Chunk {
	step := c.size - c.overlap
	if step <= 0 {
		step = c.size
	}

	runes := []rune(text)
	byteAt := make([]int, len(runes)+1)
	pos := 0
	for i, r := range runes {
		byteAt[i] = pos
		pos += utf8.RuneLen(r)
	}
	byteAt[len(runes)] = pos

	var chunks []Chunk
	for i := 0; i < len(runes); i += step {
		end := i + c.size
		if end > len(runes) {
			end = len(runes)
		}
		body := text[byteAt[i]:byteAt[end]]
		if strings.TrimSpace(body) != "" {
			words := Words(body)
			sentCount := len(SplitSentences(body))
			avg := 0.0
			if sentCount > 0 {
				avg = float64(len(words)) / float64(sentCount)
			}
			chunks = append(chunks, Chunk{
				Index:         len(chunks),
				Text:          body,
				StartChar:     byteAt[i],
				EndChar:       byteAt[end],
				WordCount:     len(words),
				SentenceCount: sentCount,
				TokenCount:    approxTokens(body),
				QualityScore:  chunkQuality(words, sentCount, avg),
				Topics:        ExtractTopics(body, 5),
				KeyPhrases:    ExtractKeyPhrases(body, 5),
			})
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// chunkQuality scores one chunk 0..1 across the same bands as the document
// scorer: length, vocabulary, sentence count, readability.
func chunkQuality(words []string, sentenceCount int, avgSentenceLen float64) float64 {
	score := 0.0

	switch wc := len(words); {
	case wc > 50:
		score += 0.3
	case wc > 20:
		score += 0.2
	case wc > 10:
		score += 0.1
	}

	switch uw := uniqueWordCount(words); {
	case uw > 20:
		score += 0.3
	case uw > 10:
		score += 0.2
	}

	switch {
	case sentenceCount > 2:
		score += 0.2
	case sentenceCount > 1:
		score += 0.1
	}

	switch {
	case avgSentenceLen >= 10 && avgSentenceLen <= 25:
		score += 0.2
	case avgSentenceLen >= 5 && avgSentenceLen <= 30:
		score += 0.1
	}

	if score > 1 {
		score = 1
	}
	return score
}

// approxTokens estimates token count at roughly four runes per token.
func approxTokens(s string) int {
	return (len([]rune(s)) + 3) / 4
}
