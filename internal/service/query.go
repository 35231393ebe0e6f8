package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_sql_runner.go -package=mocks newsdesk-ai/internal/service SQLRunner
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_query_service.go -package=mocks newsdesk-ai/internal/service QueryService

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"newsdesk-ai/internal/contextutil"
	"newsdesk-ai/internal/llm"
	"newsdesk-ai/internal/storage"
)

var (
	// ErrQueryRejected is returned when the generated SQL is not a single SELECT.
	ErrQueryRejected = errors.New("generated query was rejected")
	// ErrQueryFailed is returned when the generated SQL could not be run.
	ErrQueryFailed = errors.New("generated query could not be run")
)

// summaryRows bounds the rows serialised into the summary prompt.
const summaryRows = 50

// SQLRunner runs read-only queries over the articles table.
type SQLRunner interface {
	Columns(ctx context.Context) ([]string, error)
	Select(ctx context.Context, query string, maxRows int) (*storage.QueryResult, error)
}

// QueryRequest is a question about the archive's structured data.
type QueryRequest struct {
	Question string
}

// QueryResponse carries the generated SQL, its rows and a prose summary.
type QueryResponse struct {
	Answer    string
	SQL       string
	Columns   []string
	Rows      [][]any
	Truncated bool
}

// QueryService answers aggregate questions by generating SQL over the articles table.
type QueryService interface {
	Query(ctx context.Context, req QueryRequest) (QueryResponse, error)
}

// QueryConfig holds text-to-SQL settings.
type QueryConfig struct {
	// MaxRows caps the rows read from a generated query.
	MaxRows           int
	GenerationRetries int
	RetryBackoff      func(retry int) time.Duration
}

type queryService struct {
	runner SQLRunner
	llm    LLMClient
	cfg    QueryConfig
}

// NewQueryService creates a new QueryService.
func NewQueryService(runner SQLRunner, llmClient LLMClient, cfg QueryConfig) QueryService {
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 200
	}
	if cfg.GenerationRetries < 0 {
		cfg.GenerationRetries = 0
	}
	if cfg.RetryBackoff == nil {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	return &queryService{runner: runner, llm: llmClient, cfg: cfg}
}

// Query generates a SELECT for the question, runs it and summarises the rows.
func (s *queryService) Query(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return QueryResponse{}, &ValidationError{Field: "question", Message: "cannot be empty"}
	}

	columns, err := s.runner.Columns(ctx)
	if err != nil {
		return QueryResponse{}, WrapError(err, "failed to read schema")
	}

	raw, err := complete(ctx, s.llm, sqlMessages(question, columns), llm.ChatParams{Temperature: 0}, s.cfg.GenerationRetries, s.cfg.RetryBackoff)
	if err != nil {
		return QueryResponse{}, err
	}

	stmt, err := checkSelect(cleanSQL(raw))
	if err != nil {
		logger.WarnContext(ctx, "generated query rejected", "sql", raw, "error", err)
		return QueryResponse{}, fmt.Errorf("%w: %w", ErrQueryRejected, err)
	}

	result, err := s.runner.Select(ctx, stmt, s.cfg.MaxRows)
	if err != nil {
		logger.WarnContext(ctx, "generated query failed", "sql", stmt, "error", err)
		return QueryResponse{}, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	messages, err := summaryMessages(question, result)
	if err != nil {
		return QueryResponse{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	answer, err := complete(ctx, s.llm, messages, llm.ChatParams{Temperature: 0.3}, s.cfg.GenerationRetries, s.cfg.RetryBackoff)
	if err != nil {
		return QueryResponse{}, err
	}

	logger.InfoContext(ctx, "query answered",
		"sql", stmt,
		"rows", len(result.Rows),
		"truncated", result.Truncated,
	)
	return QueryResponse{
		Answer:    strings.TrimSpace(answer),
		SQL:       stmt,
		Columns:   result.Columns,
		Rows:      result.Rows,
		Truncated: result.Truncated,
	}, nil
}

func sqlMessages(question string, columns []string) []llm.Message {
	prompt := fmt.Sprintf(`You write SQLite queries over a table called %q with these columns exactly as named:
%s

User's request: %q

When writing your query:
- Write a single SELECT statement.
- Use exactly those column names.
- Compare text case-insensitively, e.g. LOWER(title) LIKE '%%flood%%'.
- published_at holds timestamps; use strftime('%%Y', published_at) and similar to filter by year or month.
- Use standard aggregations (COUNT, SUM, AVG, GROUP BY) as needed.

Output only the SQL query, with no markdown fences or extra text.`,
		storage.ArticlesTable, strings.Join(columns, ", "), question)

	return []llm.Message{{Role: llm.RoleUser, Content: prompt}}
}

func summaryMessages(question string, result *storage.QueryResult) ([]llm.Message, error) {
	rows := result.Rows
	if len(rows) > summaryRows {
		rows = rows[:summaryRows]
	}
	records := make([]map[string]any, len(rows))
	for i, row := range rows {
		rec := make(map[string]any, len(result.Columns))
		for j, col := range result.Columns {
			rec[col] = row[j]
		}
		records[i] = rec
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query rows: %w", err)
	}

	prompt := fmt.Sprintf(`You are a data-driven assistant.
User's question: %q

Query results (as JSON):
%s

Write exactly one concise but detailed paragraph that:
1. Answers the user's question directly using only the fields provided.
2. Never mentions raw JSON keys.
3. Does not introduce data, years or context that are not in the results.
4. Says clearly when the data is insufficient to answer the question.
5. Writes numbers as digits.

Output only the final paragraph.`, question, data)

	return []llm.Message{{Role: llm.RoleUser, Content: prompt}}, nil
}
