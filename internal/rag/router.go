package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_retrieval.go -package=mocks newsdesk-ai/internal/rag InternalSearcher,WebSearcher,Crawler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"newsdesk-ai/internal/contextutil"
)

// MaxWebResults is the hard cap on results requested from web search.
const MaxWebResults = 10

// InternalSearcher returns the k nearest articles to a query, best first.
type InternalSearcher interface {
	Search(ctx context.Context, query string, k int) ([]Candidate, error)
}

// WebSearcher queries an external search engine.
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]WebHit, error)
}

// Crawler fetches a URL and extracts its main text.
type Crawler interface {
	Crawl(ctx context.Context, url string) (*Page, error)
}

// Config holds the routing policy.
type Config struct {
	InternalK            int
	SufficiencyThreshold float64
	SufficiencyMinCount  int
	WebMaxResults        int
	WebSearchTimeout     time.Duration
	CrawlCeiling         int
	CrawlConcurrency     int
	CrawlBatchTimeout    time.Duration
	ContextBudget        int
}

// DefaultConfig returns the default routing policy.
func DefaultConfig() Config {
	return Config{
		InternalK:            5,
		SufficiencyThreshold: 0.7,
		SufficiencyMinCount:  1,
		WebMaxResults:        5,
		WebSearchTimeout:     45 * time.Second,
		CrawlCeiling:         5,
		CrawlConcurrency:     4,
		CrawlBatchTimeout:    30 * time.Second,
		ContextBudget:        5,
	}
}

// Router decides between internal and web retrieval and produces the generation context.
// It holds no per-query state and is safe for concurrent use.
type Router struct {
	internal InternalSearcher
	web      WebSearcher
	crawler  Crawler
	cfg      Config
}

// NewRouter creates a Router. web and crawler may be nil, in which case every
// fallback degrades to internal results.
func NewRouter(internal InternalSearcher, web WebSearcher, crawler Crawler, cfg Config) *Router {
	def := DefaultConfig()
	if cfg.InternalK <= 0 {
		cfg.InternalK = def.InternalK
	}
	if cfg.SufficiencyMinCount <= 0 {
		cfg.SufficiencyMinCount = def.SufficiencyMinCount
	}
	if cfg.WebMaxResults <= 0 {
		cfg.WebMaxResults = def.WebMaxResults
	}
	if cfg.WebMaxResults > MaxWebResults {
		cfg.WebMaxResults = MaxWebResults
	}
	if cfg.WebSearchTimeout <= 0 {
		cfg.WebSearchTimeout = def.WebSearchTimeout
	}
	if cfg.CrawlCeiling <= 0 {
		cfg.CrawlCeiling = def.CrawlCeiling
	}
	if cfg.CrawlConcurrency <= 0 {
		cfg.CrawlConcurrency = def.CrawlConcurrency
	}
	if cfg.CrawlBatchTimeout <= 0 {
		cfg.CrawlBatchTimeout = def.CrawlBatchTimeout
	}
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = def.ContextBudget
	}
	return &Router{internal: internal, web: web, crawler: crawler, cfg: cfg}
}

// Config returns the effective policy after defaults are applied.
func (r *Router) Config() Config { return r.cfg }

// routeState carries one query through the state machine.
type routeState struct {
	query    Query
	internal []Candidate
	web      []Candidate
	merged   []Candidate
	isMerged bool
	result   Result
}

// Route runs the state machine for one query.
//
// INTERNAL_ONLY goes to FINALIZE when internal hits are sufficient and to WEB_FALLBACK
// otherwise. WEB_FALLBACK goes to MERGE_AND_RERANK, or straight to FINALIZE when web
// search fails. Internal search errors are returned as is; web errors never are.
// ErrEmptyResult is returned when FINALIZE has nothing to emit.
func (r *Router) Route(ctx context.Context, q Query) (*Result, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidQuery)
	}

	logger := contextutil.LoggerFromContext(ctx)
	st := &routeState{query: q}
	state := StateInternalOnly

	for {
		st.result.Trace = append(st.result.Trace, state)
		logger.DebugContext(ctx, "router state", slog.String("state", string(state)))

		var (
			next State
			err  error
		)
		switch state {
		case StateInternalOnly:
			next, err = r.internalOnly(ctx, st)
		case StateWebFallback:
			next, err = r.webFallback(ctx, st)
		case StateMergeAndRerank:
			next, err = r.mergeAndRerank(ctx, st)
		case StateFinalize:
			return r.finalize(ctx, st)
		default:
			return nil, fmt.Errorf("router reached unknown state %q", state)
		}
		if err != nil {
			return nil, err
		}
		state = next
	}
}

func (r *Router) internalOnly(ctx context.Context, st *routeState) (State, error) {
	logger := contextutil.LoggerFromContext(ctx)

	cands, err := r.internal.Search(ctx, st.query.Text, r.cfg.InternalK)
	if err != nil {
		return "", fmt.Errorf("internal search: %w", err)
	}
	st.internal = cands

	ok, reason := Sufficient(cands, r.cfg.SufficiencyThreshold, r.cfg.SufficiencyMinCount)
	st.result.Sufficient = ok
	st.result.SufficiencyReason = reason
	if len(cands) > 0 {
		st.result.TopInternalScore = topScore(cands)
	}

	logger.InfoContext(ctx, "sufficiency decision",
		slog.Bool("sufficient", ok),
		slog.String("reason", reason),
		slog.Int("internal_hits", len(cands)),
		slog.Float64("top_score", st.result.TopInternalScore),
		slog.Float64("threshold", r.cfg.SufficiencyThreshold),
	)

	if ok {
		return StateFinalize, nil
	}
	return StateWebFallback, nil
}

func (r *Router) webFallback(ctx context.Context, st *routeState) (State, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if r.web == nil || r.crawler == nil {
		st.result.WebDegraded = true
		st.result.WebError = "web retrieval disabled"
		logger.WarnContext(ctx, "web fallback unavailable, continuing with internal results")
		return StateFinalize, nil
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.cfg.WebSearchTimeout)
	hits, err := r.web.Search(searchCtx, st.query.Text, r.cfg.WebMaxResults)
	cancel()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		st.result.WebDegraded = true
		st.result.WebError = err.Error()
		logger.WarnContext(ctx, "web search failed, degrading to internal results", slog.Any("error", err))
		return StateFinalize, nil
	}
	if len(hits) > r.cfg.WebMaxResults {
		hits = hits[:r.cfg.WebMaxResults]
	}
	st.result.WebHits = len(hits)

	cands, failures := r.crawlAll(ctx, st.query.Text, hits)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	st.web = cands
	st.result.CrawlFailures = failures

	logger.InfoContext(ctx, "web fallback completed",
		slog.Int("web_hits", len(hits)),
		slog.Int("crawled", len(cands)),
		slog.Int("crawl_failures", failures),
	)
	return StateMergeAndRerank, nil
}

func (r *Router) mergeAndRerank(ctx context.Context, st *routeState) (State, error) {
	pool := make([]Candidate, 0, len(st.internal)+len(st.web))
	pool = append(pool, st.internal...)
	pool = append(pool, st.web...)

	st.merged = Merge(pool, r.cfg.ContextBudget)
	st.isMerged = true

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "merged candidates",
		slog.Int("pooled", len(pool)),
		slog.Int("kept", len(st.merged)),
	)
	return StateFinalize, nil
}

func (r *Router) finalize(ctx context.Context, st *routeState) (*Result, error) {
	if !st.isMerged {
		// Internal-only paths still honour the budget, ordering and dedup rules.
		st.merged = Merge(st.internal, r.cfg.ContextBudget)
	}
	if len(st.merged) == 0 {
		contextutil.LoggerFromContext(ctx).InfoContext(ctx, "no candidates from any retrieval path",
			slog.Bool("web_degraded", st.result.WebDegraded),
		)
		if st.result.WebDegraded {
			return nil, fmt.Errorf("%w: internal search empty and web retrieval failed: %s", ErrEmptyResult, st.result.WebError)
		}
		return nil, ErrEmptyResult
	}

	res := st.result
	res.Candidates = st.merged
	return &res, nil
}

// Sufficient reports whether internal candidates alone can answer the query:
// at least minCount of them must score at or above threshold.
func Sufficient(cands []Candidate, threshold float64, minCount int) (bool, string) {
	if len(cands) == 0 {
		return false, ReasonNoInternalResults
	}
	if topScore(cands) < threshold {
		return false, ReasonTopBelowThreshold
	}
	var above int
	for _, c := range cands {
		if c.Score >= threshold {
			above++
		}
	}
	if above < minCount {
		return false, ReasonTooFewAboveThreshold
	}
	return true, ReasonSufficient
}

func topScore(cands []Candidate) float64 {
	top := cands[0].Score
	for _, c := range cands[1:] {
		if c.Score > top {
			top = c.Score
		}
	}
	return top
}
