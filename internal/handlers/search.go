package handlers

import (
	"net/http"
	"unicode/utf8"

	"newsdesk-ai/internal/contextutil"
	"newsdesk-ai/internal/service"
)

// searchExcerptChars bounds candidate bodies in search responses.
const searchExcerptChars = 500

// SearchHandler returns the router output without generating an answer.
type SearchHandler struct {
	askService service.AskService
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(askService service.AskService) *SearchHandler {
	return &SearchHandler{askService: askService}
}

// CandidateResponse is one merged retrieval candidate.
//
// swagger:model CandidateResponse
type CandidateResponse struct {
	Source      string  `json:"source"`
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	URL         string  `json:"url,omitempty"`
	Score       float64 `json:"score"`
	Rank        int     `json:"rank"`
	PublishedAt string  `json:"published_at,omitempty"`
	Excerpt     string  `json:"excerpt"`
}

// SearchResponse represents the HTTP response payload for searches.
//
// swagger:model SearchResponse
type SearchResponse struct {
	Candidates    []CandidateResponse `json:"candidates"`
	Abstained     bool                `json:"abstained,omitempty"`
	AbstainReason string              `json:"abstain_reason,omitempty"`
	Retrieval     *RetrievalResponse  `json:"retrieval,omitempty"`
}

// ServeHTTP handles HTTP requests for searches.
//
// swagger:route POST /api/v1/search searchNews
//
// # Retrieve context for a question
//
// Runs internal search and, when needed, web fallback, returning the merged candidates
// and the route trace.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Merged candidates
//	  schema:
//	    "$ref": "#/definitions/SearchResponse"
//	'400':
//	  description: Bad request
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.askService.Search(ctx, toServiceRequest(req))
	if isEmptyResult(err) {
		writeJSON(ctx, w, http.StatusOK, SearchResponse{
			Candidates:    []CandidateResponse{},
			Abstained:     true,
			AbstainReason: service.AbstainNoInformation,
		})
		return
	}
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}

	out := SearchResponse{
		Candidates: make([]CandidateResponse, len(result.Candidates)),
		Retrieval:  toRetrievalResponse(result),
	}
	for i, c := range result.Candidates {
		out.Candidates[i] = CandidateResponse{
			Source:      c.Source.String(),
			ID:          c.ID,
			Title:       c.Title,
			URL:         c.URL,
			Score:       c.Score,
			Rank:        c.Rank,
			PublishedAt: formatTime(c.PublishedAt),
			Excerpt:     truncateRunes(c.Body, searchExcerptChars),
		}
	}
	writeJSON(ctx, w, http.StatusOK, out)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
