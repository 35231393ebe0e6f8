package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// Provider failure classes. Only ErrRateLimited and ErrTransient are worth retrying.
var (
	ErrRateLimited       = errors.New("provider rate limited")
	ErrTransient         = errors.New("provider transient failure")
	ErrMalformedInput    = errors.New("provider rejected input")
	ErrMalformedResponse = errors.New("malformed provider response")
)

// IsRetryable reports whether err was classified as a rate-limit or transient failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient)
}

// classify wraps a go-openai error with the failure class derived from its HTTP status.
// Errors caused by the caller's context are returned unclassified.
func classify(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}

	var class error
	switch status := statusCode(err); {
	case status == http.StatusTooManyRequests:
		class = ErrRateLimited
	case status >= http.StatusInternalServerError:
		class = ErrTransient
	case status >= http.StatusBadRequest:
		class = ErrMalformedInput
	default:
		// No HTTP status: the request never completed.
		class = ErrTransient
	}
	return fmt.Errorf("%s: %w: %w", op, class, err)
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
