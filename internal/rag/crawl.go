package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"newsdesk-ai/internal/contextutil"
)

type crawlOutcome struct {
	cand *Candidate
	err  error
}

// crawlAll crawls the top hits by search rank with bounded concurrency and a whole-batch
// timeout. Each URL fails independently. Results come back in search rank order.
func (r *Router) crawlAll(ctx context.Context, query string, hits []WebHit) ([]Candidate, int) {
	if len(hits) == 0 {
		return nil, 0
	}
	logger := contextutil.LoggerFromContext(ctx)

	ordered := make([]WebHit, len(hits))
	copy(ordered, hits)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Rank < ordered[j].Rank })
	if len(ordered) > r.cfg.CrawlCeiling {
		ordered = ordered[:r.cfg.CrawlCeiling]
	}

	batchCtx, cancel := context.WithTimeout(ctx, r.cfg.CrawlBatchTimeout)
	defer cancel()

	outcomes := make([]crawlOutcome, len(ordered))
	var g errgroup.Group
	g.SetLimit(r.cfg.CrawlConcurrency)
	for i, hit := range ordered {
		g.Go(func() error {
			outcomes[i] = r.crawlHit(batchCtx, query, hit)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	cands := make([]Candidate, 0, len(ordered))
	var failures int
	for i, o := range outcomes {
		if o.err != nil {
			failures++
			logger.WarnContext(ctx, "crawl failed",
				slog.String("url", ordered[i].URL),
				slog.Int("search_rank", ordered[i].Rank),
				slog.Any("error", o.err),
			)
			continue
		}
		cands = append(cands, *o.cand)
	}
	return cands, failures
}

// crawlHit turns one search hit into a web candidate.
func (r *Router) crawlHit(ctx context.Context, query string, hit WebHit) crawlOutcome {
	page, err := r.crawlOne(ctx, hit.URL)
	if err != nil {
		return crawlOutcome{err: err}
	}

	body := strings.TrimSpace(page.Text)
	if body == "" {
		body = strings.TrimSpace(hit.Snippet)
	}
	if body == "" {
		return crawlOutcome{err: fmt.Errorf("%w: %s: no text extracted", ErrCrawl, hit.URL)}
	}

	title := strings.TrimSpace(page.Title)
	if title == "" {
		title = hit.Title
	}
	pageURL := page.URL
	if pageURL == "" {
		pageURL = hit.URL
	}

	return crawlOutcome{cand: &Candidate{
		Source: SourceWeb,
		ID:     CanonicalURL(pageURL),
		Title:  title,
		Body:   body,
		URL:    pageURL,
		Score:  WebScore(query, title, body, hit.Rank),
		Rank:   hit.Rank,
	}}
}

// crawlOne bounds a single crawl by ctx even if the crawler ignores cancellation.
// The crawler's result is only ever sent on a private channel.
func (r *Router) crawlOne(ctx context.Context, url string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCrawl, url, err)
	}

	type reply struct {
		page *Page
		err  error
	}
	done := make(chan reply, 1)
	go func() {
		page, err := r.crawler.Crawl(ctx, url)
		done <- reply{page: page, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", ErrCrawl, url, ctx.Err())
	case rep := <-done:
		if rep.err != nil {
			if errors.Is(rep.err, ErrCrawl) {
				return nil, rep.err
			}
			return nil, fmt.Errorf("%w: %s: %w", ErrCrawl, url, rep.err)
		}
		if rep.page == nil {
			return nil, fmt.Errorf("%w: %s: empty page", ErrCrawl, url)
		}
		return rep.page, nil
	}
}
