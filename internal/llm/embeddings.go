package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"newsdesk-ai/internal/contextutil"
)

const defaultEmbedAttempts = 3

// EmbeddingsClient is a client for an OpenAI-compatible embeddings API.
type EmbeddingsClient struct {
	BaseURL      string
	APIKey       string
	Model        string
	ExpectedSize int // Expected vector size for validation

	// QueryPrefix and DocumentPrefix are prepended to texts embedded as search
	// queries and as indexed documents respectively.
	QueryPrefix    string
	DocumentPrefix string

	// MaxAttempts bounds calls per request when the provider rate limits or fails transiently.
	MaxAttempts int
	// Backoff returns the wait before the given retry (1-based).
	Backoff func(retry int) time.Duration

	api *openai.Client
}

// NewEmbeddingsClient creates a new embeddings client.
// expectedSize is the expected vector size (from EMBEDDING_DIMENSION config).
// All embeddings returned by EmbedTexts will be validated against this size.
func NewEmbeddingsClient(baseURL, apiKey, model string, expectedSize int) *EmbeddingsClient {
	return &EmbeddingsClient{
		BaseURL:      baseURL,
		APIKey:       apiKey,
		Model:        model,
		ExpectedSize: expectedSize,
		MaxAttempts:  defaultEmbedAttempts,
		Backoff:      exponentialBackoff,
		api:          newOpenAIClient(baseURL, apiKey),
	}
}

// exponentialBackoff waits 1s, 2s, 4s, ...
func exponentialBackoff(retry int) time.Duration {
	return time.Duration(1<<(retry-1)) * time.Second
}

// EmbedQuery embeds a single search query.
func (c *EmbeddingsClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedTexts(ctx, []string{c.QueryPrefix + text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedDocuments embeds texts destined for the index.
func (c *EmbeddingsClient) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if c.DocumentPrefix == "" {
		return c.EmbedTexts(ctx, texts)
	}
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = c.DocumentPrefix + t
	}
	return c.EmbedTexts(ctx, prefixed)
}

// EmbedTexts generates embeddings for the given texts.
// Returns a slice of float32 vectors, one per input text.
// Validates that all returned vectors match the expected size.
// Rate-limited and transient failures are retried up to MaxAttempts.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("embeddings: %w: empty input array", ErrMalformedInput)
	}

	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := time.Duration(0)
			if c.Backoff != nil {
				wait = c.Backoff(attempt - 1)
			}
			contextutil.LoggerFromContext(ctx).WarnContext(ctx, "retrying embedding request",
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				slog.Any("error", lastErr),
			)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("embeddings: %w", ctx.Err())
			case <-time.After(wait):
			}
		}

		vecs, err := c.embedOnce(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			break
		}
	}
	return nil, lastErr
}

func (c *EmbeddingsClient) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.Model),
	})
	if err != nil {
		return nil, classify(ctx, "embeddings", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings: %w: expected %d embeddings, got %d", ErrMalformedResponse, len(texts), len(resp.Data))
	}

	result := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		if len(data.Embedding) != c.ExpectedSize {
			return nil, fmt.Errorf("embeddings: %w: embedding %d has size %d, expected %d",
				ErrMalformedResponse, i, len(data.Embedding), c.ExpectedSize)
		}
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		result[i] = vec
	}

	return result, nil
}
