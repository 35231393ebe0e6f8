package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ManifestRepo reads and writes the single artifact manifest row.
type ManifestRepo struct {
	db *sql.DB
}

// NewManifestRepo creates a new ManifestRepo.
func NewManifestRepo(db *sql.DB) *ManifestRepo {
	return &ManifestRepo{db: db}
}

// Save replaces the manifest.
func (r *ManifestRepo) Save(ctx context.Context, m *Manifest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO artifact_manifest (id, build_id, vector_count, dimension, embedding_model, backend)
		 VALUES (1, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			build_id = excluded.build_id,
			vector_count = excluded.vector_count,
			dimension = excluded.dimension,
			embedding_model = excluded.embedding_model,
			backend = excluded.backend,
			created_at = CURRENT_TIMESTAMP`,
		m.BuildID, m.VectorCount, m.Dimension, m.EmbeddingModel, m.Backend,
	)
	if err != nil {
		return fmt.Errorf("failed to save manifest: %w", err)
	}
	return nil
}

// Get returns the manifest. Returns ErrNotFound if none has been written.
func (r *ManifestRepo) Get(ctx context.Context) (*Manifest, error) {
	var m Manifest
	err := r.db.QueryRowContext(ctx,
		"SELECT build_id, vector_count, dimension, embedding_model, backend, created_at FROM artifact_manifest WHERE id = 1",
	).Scan(&m.BuildID, &m.VectorCount, &m.Dimension, &m.EmbeddingModel, &m.Backend, &m.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query manifest: %w", err)
	}

	return &m, nil
}
