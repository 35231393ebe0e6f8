package rag

import "time"

// Source tags where a candidate came from.
type Source int

const (
	SourceInternal Source = iota
	SourceWeb
)

// String returns "internal" or "web".
func (s Source) String() string {
	switch s {
	case SourceInternal:
		return "internal"
	case SourceWeb:
		return "web"
	default:
		return "unknown"
	}
}

// MarshalText encodes the source as its String form.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Candidate is one scored, source-tagged retrieval result for a single query.
type Candidate struct {
	Source Source
	// ID is the article id for internal candidates and the canonical URL for web candidates.
	ID          string
	Title       string
	Body        string
	URL         string
	PublishedAt *time.Time
	// Score is in [0,1] for both sources; higher is better.
	Score float64
	// Rank is the 1-based position within the candidate's own source.
	Rank int
}

// Turn is one prior message of the conversation.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Query is the current question plus prior turns. Neither the router nor the generator mutates it.
type Query struct {
	Text    string
	History []Turn
}

// WebHit is one result of a web search, in search engine order.
type WebHit struct {
	URL     string
	Title   string
	Snippet string
	Rank    int
}

// Page is the extracted content of a crawled URL.
type Page struct {
	URL   string // final URL after redirects
	Title string
	Text  string
}

// State names a step of the routing state machine.
type State string

const (
	StateInternalOnly   State = "INTERNAL_ONLY"
	StateWebFallback    State = "WEB_FALLBACK"
	StateMergeAndRerank State = "MERGE_AND_RERANK"
	StateFinalize       State = "FINALIZE"
)

// Sufficiency reasons reported in Result.
const (
	ReasonSufficient           = "sufficient"
	ReasonNoInternalResults    = "no_internal_results"
	ReasonTopBelowThreshold    = "top_score_below_threshold"
	ReasonTooFewAboveThreshold = "too_few_above_threshold"
)

// Result is the router output for one query.
type Result struct {
	// Candidates is bounded by the context budget, sorted by non-increasing score,
	// and free of duplicate identity keys.
	Candidates []Candidate
	// Trace lists the states visited in order.
	Trace []State

	Sufficient        bool
	SufficiencyReason string
	TopInternalScore  float64

	// WebDegraded is set when web retrieval was needed but unavailable.
	WebDegraded   bool
	WebError      string
	WebHits       int
	CrawlFailures int
}
