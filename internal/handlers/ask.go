package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/yuin/goldmark"

	"newsdesk-ai/internal/contextutil"
	"newsdesk-ai/internal/rag"
	"newsdesk-ai/internal/service"
)

// AskHandler handles HTTP requests for hybrid RAG questions.
type AskHandler struct {
	askService service.AskService
	markdown   goldmark.Markdown
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(askService service.AskService) *AskHandler {
	return &AskHandler{
		askService: askService,
		markdown:   newMarkdown(),
	}
}

// TurnRequest is one prior conversation message.
//
// swagger:model TurnRequest
type TurnRequest struct {
	// "user" or "assistant"
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AskRequest represents the HTTP request payload for questions.
//
// swagger:model AskRequest
type AskRequest struct {
	Question string        `json:"question"`
	History  []TurnRequest `json:"history,omitempty"`
}

// AskResponse represents the HTTP response payload for questions.
//
// swagger:model AskResponse
type AskResponse struct {
	// The generated answer, including the sources footer
	Answer string `json:"answer"`

	// The answer rendered from markdown
	AnswerHTML string `json:"answer_html,omitempty"`

	// Context entries cited by [n] in the answer
	Sources []SourceResponse `json:"sources"`

	// Abstained is set when no source produced any candidate.
	Abstained bool `json:"abstained,omitempty"`

	// AbstainReason is "no_information_found" on abstention.
	AbstainReason string `json:"abstain_reason,omitempty"`

	Retrieval *RetrievalResponse `json:"retrieval,omitempty"`
}

// SourceResponse represents a cited context entry.
//
// swagger:model SourceResponse
type SourceResponse struct {
	Index int `json:"index"`
	// "internal" or "web"
	Source      string  `json:"source"`
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	URL         string  `json:"url,omitempty"`
	Score       float64 `json:"score"`
	PublishedAt string  `json:"published_at,omitempty"`
}

// RetrievalResponse describes the path the router took.
//
// swagger:model RetrievalResponse
type RetrievalResponse struct {
	Trace             []string `json:"trace"`
	Sufficient        bool     `json:"sufficient"`
	SufficiencyReason string   `json:"sufficiency_reason"`
	TopInternalScore  float64  `json:"top_internal_score"`
	WebDegraded       bool     `json:"web_degraded,omitempty"`
	WebError          string   `json:"web_error,omitempty"`
	WebHits           int      `json:"web_hits"`
	CrawlFailures     int      `json:"crawl_failures"`
}

// ServeHTTP handles HTTP requests for questions.
//
// swagger:route POST /api/v1/ask askQuestion
//
// # Ask a question about the news
//
// Searches the internal news archive, falls back to web news search when the archive
// is insufficient, and generates a cited answer from the merged context.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Answer with sources, or an abstention when nothing was found
//	  schema:
//	    "$ref": "#/definitions/AskResponse"
//	'400':
//	  description: Bad request (empty question or invalid history)
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'502':
//	  description: Embedding or generation service error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'500':
//	  description: Internal server error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AskRequest
	if err := decodeJSON(r, w, &req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.askService.Ask(ctx, toServiceRequest(req))
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}

	out := AskResponse{
		Answer:        resp.Answer,
		Sources:       make([]SourceResponse, len(resp.Sources)),
		Abstained:     resp.Abstained,
		AbstainReason: resp.AbstainReason,
		Retrieval:     toRetrievalResponse(resp.Result),
	}
	for i, s := range resp.Sources {
		out.Sources[i] = SourceResponse{
			Index:       s.Index,
			Source:      s.Source.String(),
			ID:          s.ID,
			Title:       s.Title,
			URL:         s.URL,
			Score:       s.Score,
			PublishedAt: formatTime(s.PublishedAt),
		}
	}

	if html, err := renderMarkdown(h.markdown, resp.Answer); err != nil {
		logger.WarnContext(ctx, "failed to render answer", "error", err)
	} else {
		out.AnswerHTML = html
	}

	writeJSON(ctx, w, http.StatusOK, out)
}

func toServiceRequest(req AskRequest) service.AskRequest {
	out := service.AskRequest{Question: req.Question}
	if len(req.History) > 0 {
		out.History = make([]rag.Turn, len(req.History))
		for i, t := range req.History {
			out.History[i] = rag.Turn{Role: t.Role, Content: t.Content}
		}
	}
	return out
}

func toRetrievalResponse(res *rag.Result) *RetrievalResponse {
	if res == nil {
		return nil
	}
	trace := make([]string, len(res.Trace))
	for i, s := range res.Trace {
		trace[i] = string(s)
	}
	return &RetrievalResponse{
		Trace:             trace,
		Sufficient:        res.Sufficient,
		SufficiencyReason: res.SufficiencyReason,
		TopInternalScore:  res.TopInternalScore,
		WebDegraded:       res.WebDegraded,
		WebError:          res.WebError,
		WebHits:           res.WebHits,
		CrawlFailures:     res.CrawlFailures,
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// isEmptyResult reports whether err means no source produced a candidate.
func isEmptyResult(err error) bool {
	return errors.Is(err, rag.ErrEmptyResult)
}
