package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"

	"newsdesk-ai/internal/contextutil"
	"newsdesk-ai/internal/rag"
)

const (
	// DefaultSerperURL is the Serper news search endpoint.
	DefaultSerperURL = "https://google.serper.dev/news"

	maxSnippetChars = 400
	maxSearchBody   = 1 << 20
)

// UserAgent is sent with every outbound request.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/120.0.0.0 Safari/537.36"

// disallowedDomains are social sites whose pages are not news articles.
var disallowedDomains = []string{
	"facebook.com", "x.com", "twitter.com", "t.co", "instagram.com",
	"linkedin.com", "pinterest.com", "tiktok.com", "reddit.com",
}

// defaultRetryBackoff is the wait before each retry of a retryable response.
var defaultRetryBackoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

var whitespace = regexp.MustCompile(`[\s\p{Zs}]+`)

// SerperConfig configures a SerperClient.
type SerperConfig struct {
	APIKey            string
	URL               string
	Location          string
	Country           string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// SerperClient searches news through the Serper API. It implements rag.WebSearcher.
type SerperClient struct {
	apiKey   string
	url      string
	location string
	country  string

	httpClient *http.Client
	limiter    *RateLimiter
	backoff    []time.Duration
}

// NewSerperClient creates a client. An empty API key yields a client whose every
// search fails with rag.ErrWebSearch.
func NewSerperClient(cfg SerperConfig) *SerperClient {
	if cfg.URL == "" {
		cfg.URL = DefaultSerperURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &SerperClient{
		apiKey:     cfg.APIKey,
		url:        cfg.URL,
		location:   cfg.Location,
		country:    cfg.Country,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    NewRateLimiter(cfg.RequestsPerSecond, 1),
		backoff:    defaultRetryBackoff,
	}
}

type serperRequest struct {
	Query    string `json:"q"`
	Location string `json:"location,omitempty"`
	Country  string `json:"gl,omitempty"`
	Num      int    `json:"num"`
}

type serperResponse struct {
	News []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Source  string `json:"source"`
		Date    string `json:"date"`
	} `json:"news"`
}

// retryableError marks a failure worth retrying. status is 0 for network errors;
// retryAfter is the provider's hint.
type retryableError struct {
	status     int
	retryAfter time.Duration
	err        error
}

func (e *retryableError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return "search API returned status " + strconv.Itoa(e.status)
}

func (e *retryableError) Unwrap() error { return e.err }

// Search returns up to maxResults news hits in search engine order, ranked from 1.
func (c *SerperClient) Search(ctx context.Context, query string, maxResults int) ([]rag.WebHit, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: no search provider configured", rag.ErrWebSearch)
	}
	num := min(max(maxResults, 1), rag.MaxWebResults)

	payload, err := json.Marshal(serperRequest{
		Query:    query,
		Location: c.location,
		Country:  c.country,
		Num:      num,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode request: %w", rag.ErrWebSearch, err)
	}

	var resp *serperResponse
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", rag.ErrWebSearch, err)
		}

		resp, err = c.do(ctx, payload)
		if err == nil {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", rag.ErrWebSearch, ctxErr)
		}

		var retryable *retryableError
		if !errors.As(err, &retryable) || attempt >= len(c.backoff) {
			logger.WarnContext(ctx, "web search failed", "attempt", attempt+1, "error", err)
			return nil, fmt.Errorf("%w: %w", rag.ErrWebSearch, err)
		}
		if retryable.status == http.StatusTooManyRequests && retryable.retryAfter > 0 {
			c.limiter.RecordRateLimitError(retryable.retryAfter)
		}

		wait := c.backoff[attempt]
		logger.WarnContext(ctx, "retrying web search", "attempt", attempt+1, "status", retryable.status, "wait", wait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %w", rag.ErrWebSearch, ctx.Err())
		case <-timer.C:
		}
	}

	hits := make([]rag.WebHit, 0, len(resp.News))
	for _, item := range resp.News {
		link := strings.TrimSpace(item.Link)
		if link == "" || isDisallowed(link) {
			continue
		}
		hits = append(hits, rag.WebHit{
			URL:     link,
			Title:   strings.TrimSpace(html.UnescapeString(item.Title)),
			Snippet: cleanSnippet(item.Snippet),
			Rank:    len(hits) + 1,
		})
		if len(hits) == num {
			break
		}
	}

	logger.InfoContext(ctx, "web search completed", "query", query, "results", len(resp.News), "kept", len(hits))
	return hits, nil
}

func (c *SerperClient) do(ctx context.Context, payload []byte) (*serperResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("X-API-KEY", c.apiKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		// Network failures and timeouts are transient.
		return nil, &retryableError{err: err}
	}
	defer func() {
		_ = res.Body.Close()
	}()

	switch res.StatusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxSearchBody))
		return nil, &retryableError{status: res.StatusCode, retryAfter: parseRetryAfter(res.Header.Get("Retry-After"))}
	}
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("search API returned status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var out serperResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, maxSearchBody)).Decode(&out); err != nil {
		return nil, fmt.Errorf("malformed search response: %w", err)
	}
	return &out, nil
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// isDisallowed reports whether link points at a social site or its subdomains.
func isDisallowed(link string) bool {
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return true
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, d := range disallowedDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// cleanSnippet unescapes entities, collapses whitespace and bounds the length.
func cleanSnippet(s string) string {
	s = whitespace.ReplaceAllString(html.UnescapeString(s), " ")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxSnippetChars {
		s = string([]rune(s)[:maxSnippetChars])
	}
	return s
}
