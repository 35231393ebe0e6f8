package search

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_query_embedder.go -package=mocks newsdesk-ai/internal/search QueryEmbedder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"newsdesk-ai/internal/contextutil"
	"newsdesk-ai/internal/rag"
	"newsdesk-ai/internal/storage"
	"newsdesk-ai/internal/vectorstore"
)

// QueryEmbedder turns a search query into a vector.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher answers nearest-article queries against a loaded index artifact.
// It implements rag.InternalSearcher and is read-only.
type Searcher struct {
	embedder QueryEmbedder
	index    vectorstore.VectorIndex
	articles storage.ArticleStore
}

// NewSearcher creates a Searcher over an already validated artifact.
func NewSearcher(embedder QueryEmbedder, index vectorstore.VectorIndex, articles storage.ArticleStore) *Searcher {
	return &Searcher{embedder: embedder, index: index, articles: articles}
}

// Search embeds the query, finds the k nearest vectors and joins them to their metadata rows.
// Candidates come back best first with 1-based ranks; equal scores keep index order.
func (s *Searcher) Search(ctx context.Context, query string, k int) ([]rag.Candidate, error) {
	logger := contextutil.LoggerFromContext(ctx)

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", rag.ErrInvalidQuery)
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", rag.ErrInvalidQuery, k)
	}

	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.ErrorContext(ctx, "failed to embed query", "error", err)
		return nil, fmt.Errorf("%w: %w", rag.ErrEmbedding, err)
	}
	if len(vec) != s.index.Dimension() {
		return nil, fmt.Errorf("%w: query vector has size %d, index dimension is %d",
			rag.ErrEmbedding, len(vec), s.index.Dimension())
	}

	unit := make([]float32, len(vec))
	copy(unit, vec)
	vectorstore.NormalizeL2(unit)

	hits, err := s.index.Search(ctx, unit, k)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: vector search: %w", rag.ErrIndexUnavailable, err)
	}
	if len(hits) == 0 {
		logger.InfoContext(ctx, "vector search returned no hits", "k", k)
		return nil, nil
	}

	positions := make([]int, len(hits))
	for i, h := range hits {
		positions[i] = h.Position
	}
	rows, err := s.articles.GetByPositions(ctx, positions)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata lookup: %w", rag.ErrIndexUnavailable, err)
	}

	cands := make([]rag.Candidate, 0, len(hits))
	for i, h := range hits {
		row, ok := rows[h.Position]
		if !ok {
			// Every vector must have its row; a gap means the pairing is broken.
			return nil, fmt.Errorf("%w: no metadata row at position %d", rag.ErrIndexUnavailable, h.Position)
		}
		if id, ok := h.Meta["article_id"].(string); ok && id != row.ArticleID {
			return nil, fmt.Errorf("%w: position %d holds article %q, index expects %q",
				rag.ErrIndexUnavailable, h.Position, row.ArticleID, id)
		}

		cands = append(cands, rag.Candidate{
			Source:      rag.SourceInternal,
			ID:          row.ArticleID,
			Title:       row.Title,
			Body:        row.Body,
			URL:         row.URL,
			PublishedAt: row.PublishedAt,
			Score:       similarityScore(h.Score),
			Rank:        i + 1,
		})
	}

	logger.DebugContext(ctx, "internal search completed",
		slog.Int("k", k),
		slog.Int("hits", len(cands)),
		slog.Float64("top_score", cands[0].Score),
	)
	return cands, nil
}

// similarityScore maps cosine similarity of unit vectors onto [0,1].
func similarityScore(cos float32) float64 {
	s := float64(cos)
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
