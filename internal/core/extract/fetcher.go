package extract

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"code.sajari.com/docconv"

	"github.com/markdave123-py/Memora/internal/core"
)

const (
	defaultFetchTimeout = 30 * time.Second

	// maxFetchBytes bounds how much of a response body is read. The pipeline
	// applies its own content-length cap after normalization.
	maxFetchBytes = 10 << 20

	fetchUserAgent = "Memora/1.0 (+https://github.com/markdave123-py/Memora)"
)

var reHTMLTitle = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// Fetcher pulls readable text out of a URL. Network failures, bad statuses,
// unsupported content types and empty extractions all return errors; the
// pipeline treats every one of them as a retryable extraction failure.
type Fetcher struct {
	client *http.Client
}

var _ core.SourceFetcher = (*Fetcher)(nil)

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*core.FetchedContent, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("unsupported url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "text/html, text/markdown, text/plain, application/pdf;q=0.9, */*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("get: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	mt := mediaType(resp.Header.Get("Content-Type"))
	if mt == "" || mt == "application/octet-stream" {
		mt = mediaType(http.DetectContentType(body))
	}

	content, err := f.convert(body, mt, u.Path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content.Text) == "" {
		return nil, fmt.Errorf("no text extracted from %s (%s)", rawURL, mt)
	}
	return content, nil
}

// convert dispatches on media type: html through docconv's readability
// extraction, markdown through the goldmark stripper, plain text as-is and
// document formats (pdf, docx, rtf) through docconv. Obvious binary media
// is rejected outright.
func (f *Fetcher) convert(body []byte, mt, urlPath string) (*core.FetchedContent, error) {
	switch {
	case mt == "text/html" || mt == "application/xhtml+xml":
		text, meta, err := docconv.ConvertHTML(bytes.NewReader(body), true)
		if err != nil {
			return nil, fmt.Errorf("convert html: %w", err)
		}
		// The page's own <title> beats whatever conversion metadata carries.
		title := htmlTitle(body)
		if title == "" {
			title = meta["title"]
		}
		return &core.FetchedContent{Text: text, Title: title}, nil

	case mt == "text/markdown" || mt == "text/x-markdown" || hasMarkdownPath(urlPath):
		text, err := StripMarkdown(body)
		if err != nil {
			return nil, err
		}
		return &core.FetchedContent{Text: text}, nil

	case strings.HasPrefix(mt, "text/"):
		return &core.FetchedContent{Text: string(body)}, nil

	case strings.HasPrefix(mt, "image/"), strings.HasPrefix(mt, "audio/"), strings.HasPrefix(mt, "video/"):
		return nil, fmt.Errorf("unsupported content type %q", mt)

	default:
		res, err := docconv.Convert(bytes.NewReader(body), mt, false)
		if err != nil {
			return nil, fmt.Errorf("docconv %s: %w", mt, err)
		}
		return &core.FetchedContent{Text: res.Body, Title: res.Meta["title"]}, nil
	}
}

func hasMarkdownPath(urlPath string) bool {
	p := strings.ToLower(urlPath)
	return strings.HasSuffix(p, ".md") || strings.HasSuffix(p, ".markdown")
}

func htmlTitle(body []byte) string {
	m := reHTMLTitle.FindSubmatch(body)
	if m == nil {
		return ""
	}
	title := html.UnescapeString(string(m[1]))
	return strings.Join(strings.Fields(title), " ")
}
