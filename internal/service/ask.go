package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm_client.go -package=mocks newsdesk-ai/internal/service LLMClient
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_router.go -package=mocks newsdesk-ai/internal/service Router
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_ask_service.go -package=mocks newsdesk-ai/internal/service AskService

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"newsdesk-ai/internal/contextutil"
	"newsdesk-ai/internal/llm"
	"newsdesk-ai/internal/rag"
)

// AbstainNoInformation is reported when no retrieval path produced a candidate.
const AbstainNoInformation = "no_information_found"

// NoInformationAnswer is the answer text returned on abstention.
const NoInformationAnswer = "I couldn't find any information about this in the news archive or on the web."

// LLMClient is an interface for interacting with an LLM API.
// This interface is defined from the service layer's perspective (consumer-first).
type LLMClient interface {
	// ChatWithMessages sends a conversation and returns the reply.
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Router produces the generation context for a query.
type Router interface {
	Route(ctx context.Context, q rag.Query) (*rag.Result, error)
}

// AskRequest represents a question in the domain layer.
type AskRequest struct {
	Question string
	History  []rag.Turn
}

// Source is one cited context entry. Index matches the [n] markers in the answer.
type Source struct {
	Index       int
	Source      rag.Source
	ID          string
	Title       string
	URL         string
	Score       float64
	PublishedAt *time.Time
}

// AskResponse represents an answer in the domain layer.
type AskResponse struct {
	Answer        string
	Sources       []Source
	Result        *rag.Result
	Abstained     bool
	AbstainReason string
}

// AskService answers questions over the news archive and the web.
type AskService interface {
	// Ask routes the question and generates a cited answer.
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
	// Search routes the question without generating an answer.
	Search(ctx context.Context, req AskRequest) (*rag.Result, error)
}

// Config holds answer generation settings.
type Config struct {
	// GenerationRetries is the number of extra attempts after a transient generation failure.
	GenerationRetries int
	// ExcerptChars bounds each candidate body in the prompt.
	ExcerptChars int
	Temperature  float32
	// RetryBackoff returns the wait before the given retry (1-based).
	RetryBackoff func(retry int) time.Duration
}

func defaultRetryBackoff(retry int) time.Duration {
	return time.Duration(retry) * 500 * time.Millisecond
}

// askService implements AskService.
type askService struct {
	router Router
	llm    LLMClient
	cfg    Config
}

// NewAskService creates a new AskService.
func NewAskService(router Router, llmClient LLMClient, cfg Config) AskService {
	if cfg.GenerationRetries < 0 {
		cfg.GenerationRetries = 0
	}
	if cfg.ExcerptChars <= 0 {
		cfg.ExcerptChars = 2000
	}
	if cfg.RetryBackoff == nil {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	return &askService{router: router, llm: llmClient, cfg: cfg}
}

// Ask answers a question. When nothing was retrieved it abstains without calling the generator.
func (s *askService) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	q, err := validate(req)
	if err != nil {
		logger.WarnContext(ctx, "invalid ask request", "error", err)
		return AskResponse{}, err
	}

	result, err := s.router.Route(ctx, q)
	if errors.Is(err, rag.ErrEmptyResult) {
		logger.InfoContext(ctx, "abstaining, no information found", "error", err)
		return AskResponse{
			Answer:        NoInformationAnswer,
			Abstained:     true,
			AbstainReason: AbstainNoInformation,
		}, nil
	}
	if err != nil {
		logger.ErrorContext(ctx, "retrieval failed", "error", err)
		return AskResponse{}, WrapError(err, "retrieval failed")
	}

	messages := buildMessages(q, result.Candidates, s.cfg.ExcerptChars)
	answer, err := s.generate(ctx, messages)
	if err != nil {
		return AskResponse{}, err
	}

	if footer := sourcesFooter(result.Candidates); footer != "" {
		answer = strings.TrimRight(answer, "\n ") + "\n\n" + footer
	}

	logger.InfoContext(ctx, "question answered",
		"question_length", len(q.Text),
		"candidates", len(result.Candidates),
		"trace", result.Trace,
		"answer_length", len(answer),
	)
	return AskResponse{
		Answer:  answer,
		Sources: sources(result.Candidates),
		Result:  result,
	}, nil
}

// Search routes a question and returns the router output.
func (s *askService) Search(ctx context.Context, req AskRequest) (*rag.Result, error) {
	q, err := validate(req)
	if err != nil {
		return nil, err
	}
	result, err := s.router.Route(ctx, q)
	if err != nil {
		return nil, WrapError(err, "retrieval failed")
	}
	return result, nil
}

// generate calls the generator, retrying only rate-limit and transient failures.
func (s *askService) generate(ctx context.Context, messages []llm.Message) (string, error) {
	params := llm.ChatParams{Temperature: s.cfg.Temperature}
	return complete(ctx, s.llm, messages, params, s.cfg.GenerationRetries, s.cfg.RetryBackoff)
}

// complete sends messages, retrying up to retries extra times when the failure is retryable.
// Failures are returned as ErrGeneration.
func complete(ctx context.Context, client LLMClient, messages []llm.Message, params llm.ChatParams, retries int, backoff func(int) time.Duration) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			wait := backoff(attempt)
			logger.WarnContext(ctx, "retrying generation", "attempt", attempt+1, "wait", wait, "error", lastErr)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", fmt.Errorf("%w: %w", ErrGeneration, ctx.Err())
			case <-timer.C:
			}
		}

		answer, err := client.ChatWithMessages(ctx, messages, params)
		if err == nil {
			if strings.TrimSpace(answer) == "" {
				lastErr = errors.New("generator returned an empty answer")
				break
			}
			return answer, nil
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", ErrGeneration, ctx.Err())
		}
		lastErr = err
		if !llm.IsRetryable(err) {
			break
		}
	}

	logger.ErrorContext(ctx, "generation failed", "error", lastErr)
	return "", fmt.Errorf("%w: %w", ErrGeneration, lastErr)
}

func validate(req AskRequest) (rag.Query, error) {
	text := strings.TrimSpace(req.Question)
	if text == "" {
		return rag.Query{}, &ValidationError{Field: "question", Message: "cannot be empty"}
	}
	for i, turn := range req.History {
		if turn.Role != llm.RoleUser && turn.Role != llm.RoleAssistant {
			return rag.Query{}, &ValidationError{
				Field:   fmt.Sprintf("history[%d].role", i),
				Message: "must be user or assistant",
			}
		}
	}
	return rag.Query{Text: text, History: req.History}, nil
}

func sources(cands []rag.Candidate) []Source {
	out := make([]Source, len(cands))
	for i, c := range cands {
		out[i] = Source{
			Index:       i + 1,
			Source:      c.Source,
			ID:          c.ID,
			Title:       c.Title,
			URL:         c.URL,
			Score:       c.Score,
			PublishedAt: c.PublishedAt,
		}
	}
	return out
}
