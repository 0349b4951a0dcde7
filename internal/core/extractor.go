package core

import (
	"context"
)

// FetchedContent is the result of pulling text out of a remote source.
type FetchedContent struct {
	Text  string
	Title string
}

// SourceFetcher retrieves and extracts readable text for a URL. Network
// errors, non-text responses and empty extractions all surface as errors;
// the pipeline treats them as retryable content_extraction failures.
type SourceFetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedContent, error)
}

// FileExtractor pulls plain text out of an uploaded payload. The contentType
// hint picks the parsing strategy (pdf, docx, html, markdown, plain text).
type FileExtractor interface {
	Extract(ctx context.Context, data []byte, contentType string) (string, error)
}
