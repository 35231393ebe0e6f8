package handlers

import (
	"net/http"

	"newsdesk-ai/internal/contextutil"
	"newsdesk-ai/internal/service"
)

// QueryHandler answers aggregate questions with generated SQL over the archive.
type QueryHandler struct {
	queryService service.QueryService
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(queryService service.QueryService) *QueryHandler {
	return &QueryHandler{queryService: queryService}
}

// QueryRequest represents the HTTP request payload for structured questions.
//
// swagger:model QueryRequest
type QueryRequest struct {
	// Question about counts, dates or other fields of the archive
	// required: true
	Question string `json:"question"`
}

// QueryResponse represents the HTTP response payload for structured questions.
//
// swagger:model QueryResponse
type QueryResponse struct {
	Answer    string   `json:"answer"`
	SQL       string   `json:"sql"`
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated,omitempty"`
}

// ServeHTTP handles HTTP requests for structured questions.
//
// swagger:route POST /api/v1/query queryArchive
//
// # Answer a question with SQL over the archive
//
// Generates a single read-only SELECT over the articles table, runs it and
// summarises the rows.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Query rows and summary
//	  schema:
//	    "$ref": "#/definitions/QueryResponse"
//	'400':
//	  description: Bad request
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'422':
//	  description: Generated query was rejected
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'502':
//	  description: Generation or query failure
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req QueryRequest
	if err := decodeJSON(r, w, &req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.queryService.Query(ctx, service.QueryRequest{Question: req.Question})
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, QueryResponse{
		Answer:    resp.Answer,
		SQL:       resp.SQL,
		Columns:   resp.Columns,
		Rows:      resp.Rows,
		RowCount:  len(resp.Rows),
		Truncated: resp.Truncated,
	})
}
