// Package artifact loads and writes the index artifact: a vector index paired positionally
// with a SQLite metadata table. Both halves carry the same build id and vector count.
package artifact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"newsdesk-ai/internal/contextutil"
	"newsdesk-ai/internal/rag"
	"newsdesk-ai/internal/storage"
	"newsdesk-ai/internal/vectorstore"
)

// Artifact is a validated index plus its metadata table. It is read-only.
type Artifact struct {
	Index    vectorstore.VectorIndex
	Articles storage.ArticleStore
	Queries  *storage.QueryRepo
	Manifest storage.Manifest

	db *sql.DB
}

// Info summarises the artifact for health reporting.
type Info struct {
	Backend        string `json:"backend"`
	BuildID        string `json:"build_id"`
	VectorCount    int    `json:"vector_count"`
	Dimension      int    `json:"dimension"`
	EmbeddingModel string `json:"embedding_model"`
}

type buildIDer interface {
	BuildID() string
}

// LoadFlat reads a flat vector file and its metadata table.
// dimension is the configured embedding size; 0 skips that check.
func LoadFlat(ctx context.Context, vectorPath, metadataPath string, dimension int) (*Artifact, error) {
	index, err := vectorstore.LoadFlatIndex(vectorPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", rag.ErrIndexUnavailable, err)
	}
	return Open(ctx, storage.BackendFlat, index, metadataPath, dimension)
}

// Open pairs an already opened vector index with the metadata table at metadataPath
// and validates the pairing. Any mismatch is returned as rag.ErrIndexUnavailable.
func Open(ctx context.Context, backend string, index vectorstore.VectorIndex, metadataPath string, dimension int) (*Artifact, error) {
	logger := contextutil.LoggerFromContext(ctx)

	db, err := storage.OpenReadOnly(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", rag.ErrIndexUnavailable, err)
	}

	manifest, err := storage.NewManifestRepo(db).Get(ctx)
	if err != nil {
		_ = db.Close()
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: metadata file has no manifest", rag.ErrIndexUnavailable)
		}
		return nil, fmt.Errorf("%w: %w", rag.ErrIndexUnavailable, err)
	}

	articles := storage.NewArticleRepo(db)
	rows, err := articles.Count(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", rag.ErrIndexUnavailable, err)
	}

	maxPos, err := articles.MaxPosition(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", rag.ErrIndexUnavailable, err)
	}

	if err := validate(backend, index, manifest, rows, maxPos, dimension); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", rag.ErrIndexUnavailable, err)
	}

	logger.InfoContext(ctx, "index artifact loaded",
		"backend", backend,
		"build_id", manifest.BuildID,
		"vectors", index.Count(),
		"dimension", index.Dimension(),
		"embedding_model", manifest.EmbeddingModel,
	)

	return &Artifact{
		Index:    index,
		Articles: articles,
		Queries:  storage.NewQueryRepo(db),
		Manifest: *manifest,
		db:       db,
	}, nil
}

func validate(backend string, index vectorstore.VectorIndex, m *storage.Manifest, rows, maxPos, dimension int) error {
	if m.Backend != backend {
		return fmt.Errorf("metadata was built for backend %q, index backend is %q", m.Backend, backend)
	}
	if b, ok := index.(buildIDer); ok && b.BuildID() != m.BuildID {
		return fmt.Errorf("vector index build %q does not match metadata build %q", b.BuildID(), m.BuildID)
	}
	if index.Count() != m.VectorCount {
		return fmt.Errorf("vector index holds %d vectors, manifest records %d", index.Count(), m.VectorCount)
	}
	if rows != m.VectorCount {
		return fmt.Errorf("metadata holds %d rows, manifest records %d vectors", rows, m.VectorCount)
	}
	// Rows must cover positions 0..count-1 with no gaps.
	if maxPos != rows-1 {
		return fmt.Errorf("metadata positions are not contiguous: highest position %d for %d rows", maxPos, rows)
	}
	if index.Dimension() != m.Dimension {
		return fmt.Errorf("vector index dimension %d, manifest records %d", index.Dimension(), m.Dimension)
	}
	if dimension > 0 && dimension != m.Dimension {
		return fmt.Errorf("configured embedding dimension %d, artifact was built with %d", dimension, m.Dimension)
	}
	return nil
}

// Info returns the health summary.
func (a *Artifact) Info() Info {
	return Info{
		Backend:        a.Manifest.Backend,
		BuildID:        a.Manifest.BuildID,
		VectorCount:    a.Index.Count(),
		Dimension:      a.Index.Dimension(),
		EmbeddingModel: a.Manifest.EmbeddingModel,
	}
}

// Close releases the metadata connection.
func (a *Artifact) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
