// Package extract resolves raw sources (fetched URLs, uploaded files) into
// plain text for the processing pipeline.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"strings"

	"code.sajari.com/docconv"

	"github.com/markdave123-py/Memora/internal/core"
)

// DocconvExtractor converts uploaded payloads to text. docconv handles the
// binary formats (pdf, docx, rtf, html); markdown goes through the goldmark
// stripper and plain text passes straight through.
type DocconvExtractor struct {
	useReadability bool
}

var _ core.FileExtractor = (*DocconvExtractor)(nil)

func NewDocconvExtractor(useReadability bool) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability}
}

func (e *DocconvExtractor) Extract(ctx context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty payload")
	}

	var text string
	switch mediaType(contentType) {
	case "text/markdown", "text/x-markdown":
		stripped, err := StripMarkdown(data)
		if err != nil {
			return "", err
		}
		text = stripped
	case "text/plain", "":
		text = string(data)
	default:
		res, err := docconv.Convert(bytes.NewReader(data), contentType, e.useReadability)
		if err != nil {
			return "", fmt.Errorf("docconv %s: %w", contentType, err)
		}
		text = res.Body
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text extracted from %s payload", contentType)
	}
	return text, nil
}

// mediaType strips parameters like charset from a Content-Type value.
func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}
