package indexer

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_embedder.go -package=mocks newsdesk-ai/internal/indexer DocumentEmbedder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"newsdesk-ai/internal/artifact"
	"newsdesk-ai/internal/contextutil"
	"newsdesk-ai/internal/storage"
	"newsdesk-ai/internal/vectorstore"
)

// DefaultBatchSize is the number of texts sent per embedding request.
const DefaultBatchSize = 32

// DocumentEmbedder embeds texts destined for the index.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline turns cleaned articles into artifact entries.
type Pipeline struct {
	embedder  DocumentEmbedder
	model     string
	dimension int
	batchSize int
}

// NewPipeline creates a build pipeline. model is recorded in the build stats only.
func NewPipeline(embedder DocumentEmbedder, model string, dimension int) *Pipeline {
	return &Pipeline{
		embedder:  embedder,
		model:     model,
		dimension: dimension,
		batchSize: DefaultBatchSize,
	}
}

// WithBatchSize overrides the embedding batch size.
func (p *Pipeline) WithBatchSize(n int) *Pipeline {
	if n > 0 {
		p.batchSize = n
	}
	return p
}

// Build cleans and deduplicates articles, embeds them and returns one entry per article
// that embedded successfully, in dataset order. A failed batch is retried row by row so
// one bad text only drops that row. Vectors are L2-normalised.
func (p *Pipeline) Build(ctx context.Context, articles []Article) ([]artifact.Entry, *BuildStats, error) {
	logger := contextutil.LoggerFromContext(ctx)

	stats := &BuildStats{IndexVersion: indexVersion(p.model)}
	prepared := Prepare(articles, stats)

	logger.InfoContext(ctx, "starting build",
		"rows", stats.RowsRead,
		"kept", len(prepared),
		"dropped_empty", stats.DroppedEmptyBody,
		"dropped_duplicate", stats.DroppedDuplicateID,
		"dropped_short", stats.DroppedShortBody,
	)

	entries := make([]artifact.Entry, 0, len(prepared))
	tokenCounts := make([]int, 0, len(prepared))

	for start := 0; start < len(prepared); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		end := min(start+p.batchSize, len(prepared))
		batch := prepared[start:end]
		stats.EmbedAttempted += len(batch)

		vectors, err := p.embedBatch(ctx, batch)
		if err != nil {
			return nil, nil, err
		}

		for i, a := range batch {
			if vectors[i] == nil {
				stats.EmbedFailed++
				stats.FailedIDs = append(stats.FailedIDs, a.ID)
				continue
			}
			entries = append(entries, artifact.Entry{
				Article: storage.ArticleRecord{
					ArticleID:   a.ID,
					Title:       a.Title,
					Body:        a.Body,
					URL:         a.URL,
					PublishedAt: a.PublishedAt,
				},
				Vector: vectors[i],
			})
			tokenCounts = append(tokenCounts, estimateTokens(a.Body))
		}

		logger.DebugContext(ctx, "embedded batch", "from", start, "to", end, "total", len(prepared))
	}

	stats.Embedded = len(entries)
	stats.BodyTokenStats = computeTokenStats(tokenCounts)

	logger.InfoContext(ctx, "build completed",
		"embedded", stats.Embedded,
		"embed_failed", stats.EmbedFailed,
	)
	return entries, stats, nil
}

// embedBatch returns one vector per article, nil where the article could not be embedded.
// Only a cancelled context is returned as an error.
func (p *Pipeline) embedBatch(ctx context.Context, batch []Article) ([][]float32, error) {
	texts := make([]string, len(batch))
	for i, a := range batch {
		texts[i] = embeddingText(a)
	}

	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err == nil && len(vectors) == len(batch) {
		out := make([][]float32, len(batch))
		for i, v := range vectors {
			out[i] = p.unit(ctx, batch[i].ID, v)
		}
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	logger := contextutil.LoggerFromContext(ctx)
	logger.WarnContext(ctx, "batch embedding failed, retrying per row", "size", len(batch), "error", err)

	out := make([][]float32, len(batch))
	for i, text := range texts {
		single, err := p.embedder.EmbedDocuments(ctx, []string{text})
		if err != nil || len(single) != 1 {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.WarnContext(ctx, "skipping article, embedding failed", slog.String("article_id", batch[i].ID), slog.Any("error", err))
			continue
		}
		out[i] = p.unit(ctx, batch[i].ID, single[0])
	}
	return out, nil
}

// unit validates and normalises a vector, returning nil if it cannot be indexed.
func (p *Pipeline) unit(ctx context.Context, id string, v []float32) []float32 {
	logger := contextutil.LoggerFromContext(ctx)
	if len(v) != p.dimension {
		logger.WarnContext(ctx, "skipping article, wrong vector size", "article_id", id, "size", len(v), "expected", p.dimension)
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	vectorstore.NormalizeL2(out)
	if vectorstore.Dot(out, out) == 0 {
		logger.WarnContext(ctx, "skipping article, zero vector", "article_id", id)
		return nil
	}
	return out
}

func embeddingText(a Article) string {
	if a.Title == "" {
		return a.Body
	}
	return strings.TrimSpace(a.Title) + "\n\n" + a.Body
}

// String renders the stats for the build log.
func (s *BuildStats) String() string {
	return fmt.Sprintf("read=%d kept=%d embedded=%d failed=%d dropped(empty=%d duplicate=%d short=%d)",
		s.RowsRead, s.EmbedAttempted, s.Embedded, s.EmbedFailed,
		s.DroppedEmptyBody, s.DroppedDuplicateID, s.DroppedShortBody)
}
