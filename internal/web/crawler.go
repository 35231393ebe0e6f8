package web

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"newsdesk-ai/internal/contextutil"
	"newsdesk-ai/internal/rag"
)

const (
	// DefaultCrawlTimeout bounds a single page fetch.
	DefaultCrawlTimeout = 20 * time.Second
	// DefaultMaxChars bounds the extracted text kept per page.
	DefaultMaxChars = 8000

	maxPageBytes = 4 << 20
)

// Crawler fetches pages and extracts their main text. It implements rag.Crawler.
type Crawler struct {
	httpClient *http.Client
	timeout    time.Duration
	maxChars   int
}

// NewCrawler creates a crawler with a per-URL timeout and a cap on extracted characters.
func NewCrawler(timeout time.Duration, maxChars int) *Crawler {
	if timeout <= 0 {
		timeout = DefaultCrawlTimeout
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Crawler{
		httpClient: &http.Client{},
		timeout:    timeout,
		maxChars:   maxChars,
	}
}

// Crawl fetches url and extracts its title and text. Every failure wraps rag.ErrCrawl.
// A page with a title but no text is returned as is; one with neither is an error.
func (c *Crawler) Crawl(ctx context.Context, url string) (*rag.Page, error) {
	logger := contextutil.LoggerFromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", rag.ErrCrawl, url, err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", rag.ErrCrawl, url, err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: status %d", rag.ErrCrawl, url, res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || (mediaType != "text/html" && mediaType != "application/xhtml+xml") {
			return nil, fmt.Errorf("%w: %s: unsupported content type %q", rag.ErrCrawl, url, ct)
		}
	}

	title, text, err := Extract(io.LimitReader(res.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", rag.ErrCrawl, url, err)
	}
	if title == "" && text == "" {
		return nil, fmt.Errorf("%w: %s: no content extracted", rag.ErrCrawl, url)
	}
	if utf8.RuneCountInString(text) > c.maxChars {
		text = strings.TrimSpace(string([]rune(text)[:c.maxChars]))
	}

	finalURL := url
	if res.Request != nil && res.Request.URL != nil {
		finalURL = res.Request.URL.String()
	}

	logger.DebugContext(ctx, "page crawled",
		"url", url,
		"final_url", finalURL,
		"chars", utf8.RuneCountInString(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &rag.Page{URL: finalURL, Title: title, Text: text}, nil
}
