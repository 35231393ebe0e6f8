package handlers

import (
	"net/http"
	"time"

	"newsdesk-ai/internal/artifact"
	"newsdesk-ai/internal/contextutil"
)

// IndexInfo reports the loaded index artifact.
type IndexInfo interface {
	Info() artifact.Info
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	index      IndexInfo
	webEnabled bool
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(index IndexInfo, webEnabled bool) *HealthHandler {
	return &HealthHandler{
		index:      index,
		webEnabled: webEnabled,
	}
}

// HealthResponse represents the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// Overall health status: "healthy", "degraded", or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// Loaded index artifact
	Index *artifact.Info `json:"index,omitempty"`

	// List of issues (only present if status is degraded or unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles HTTP requests for health checks.
//
// swagger:route GET /api/health healthCheck
//
// # Health check endpoint
//
// Reports the loaded index artifact and whether web retrieval is available.
// A server without web retrieval still answers from the archive and reports "degraded".
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: System is healthy or degraded
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
//	'503':
//	  description: No usable index is loaded
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checks := make(map[string]string)
	var issues []string
	httpStatus := http.StatusOK
	status := "healthy"

	response := HealthResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if h.index == nil {
		checks["index"] = "error"
		issues = append(issues, "index_not_loaded")
	} else {
		info := h.index.Info()
		response.Index = &info
		if info.VectorCount > 0 {
			checks["index"] = "ok"
		} else {
			checks["index"] = "empty"
			issues = append(issues, "index_empty")
		}
	}

	if h.webEnabled {
		checks["web_search"] = "ok"
	} else {
		checks["web_search"] = "disabled"
		issues = append(issues, "web_search_disabled")
	}

	switch {
	case checks["index"] != "ok":
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	case len(issues) > 0:
		status = "degraded"
	}
	response.Status = status
	response.Issues = issues

	writeJSON(ctx, w, httpStatus, response)
}
