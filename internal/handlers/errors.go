package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"newsdesk-ai/internal/contextutil"
	"newsdesk-ai/internal/rag"
	"newsdesk-ai/internal/service"
)

// maxRequestBytes bounds decoded request bodies.
const maxRequestBytes = 1 << 20

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleServiceError maps service and router errors to HTTP status codes.
func handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := contextutil.LoggerFromContext(ctx)

	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		logger.WarnContext(ctx, "invalid request", "error", err)
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, rag.ErrInvalidQuery), errors.Is(err, service.ErrInvalidInput):
		logger.WarnContext(ctx, "invalid request", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid question")
	case errors.Is(err, service.ErrQueryRejected):
		logger.WarnContext(ctx, "generated query rejected", "error", err)
		writeError(w, http.StatusUnprocessableEntity, service.ErrQueryRejected.Error())
	case errors.Is(err, service.ErrQueryFailed):
		logger.ErrorContext(ctx, "generated query failed", "error", err)
		writeError(w, http.StatusBadGateway, service.ErrQueryFailed.Error())
	case errors.Is(err, service.ErrGeneration):
		logger.ErrorContext(ctx, "answer generation failed", "error", err)
		writeError(w, http.StatusBadGateway, service.ErrGeneration.Error())
	case errors.Is(err, rag.ErrEmbedding):
		logger.ErrorContext(ctx, "embedding service error", "error", err)
		writeError(w, http.StatusBadGateway, "Embedding service error")
	case errors.Is(err, context.DeadlineExceeded):
		logger.ErrorContext(ctx, "request timed out", "error", err)
		writeError(w, http.StatusGatewayTimeout, "Request timed out")
	default:
		logger.ErrorContext(ctx, "request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process question")
	}
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(r *http.Request, w http.ResponseWriter, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(dst)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}
