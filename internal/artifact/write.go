package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"newsdesk-ai/internal/contextutil"
	"newsdesk-ai/internal/storage"
	"newsdesk-ai/internal/vectorstore"
)

const qdrantUpsertBatch = 256

// Entry is one article and its unit-length embedding. Entries are written in order;
// the i-th entry gets position i in both halves of the artifact.
type Entry struct {
	Article storage.ArticleRecord
	Vector  []float32
}

// CollectionStore is the part of a Qdrant store a build writes through.
type CollectionStore interface {
	DropCollection(ctx context.Context, collection string) error
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error
	Upsert(ctx context.Context, collection string, points []vectorstore.Point) error
}

// WriteFlat writes a flat vector file and its metadata table under one new build id.
func WriteFlat(ctx context.Context, vectorPath, metadataPath, embeddingModel string, dimension int, entries []Entry) (*storage.Manifest, error) {
	manifest := newManifest(storage.BackendFlat, embeddingModel, dimension, len(entries))

	vectors := make([][]float32, len(entries))
	for i := range entries {
		vectors[i] = entries[i].Vector
	}
	index, err := vectorstore.NewFlatIndex(manifest.BuildID, dimension, vectors)
	if err != nil {
		return nil, fmt.Errorf("failed to build flat index: %w", err)
	}

	tmpMeta, err := writeMetadata(ctx, metadataPath, manifest, entries)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = os.Remove(tmpMeta) // no-op after a successful rename
	}()

	if err := index.Save(vectorPath); err != nil {
		return nil, err
	}
	if err := os.Rename(tmpMeta, metadataPath); err != nil {
		return nil, fmt.Errorf("failed to move metadata file into place: %w", err)
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "flat artifact written",
		"build_id", manifest.BuildID,
		"vectors", manifest.VectorCount,
		"vector_path", vectorPath,
		"metadata_path", metadataPath,
	)
	return manifest, nil
}

// WriteQdrant upserts entries into collection and writes the paired metadata table.
// recreate drops the collection first so no points from an earlier build survive.
func WriteQdrant(ctx context.Context, store CollectionStore, collection string, recreate bool, metadataPath, embeddingModel string, dimension int, entries []Entry) (*storage.Manifest, error) {
	logger := contextutil.LoggerFromContext(ctx)
	manifest := newManifest(storage.BackendQdrant, embeddingModel, dimension, len(entries))

	for i := range entries {
		if len(entries[i].Vector) != dimension {
			return nil, fmt.Errorf("entry %d has vector size %d, expected %d", i, len(entries[i].Vector), dimension)
		}
	}

	tmpMeta, err := writeMetadata(ctx, metadataPath, manifest, entries)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = os.Remove(tmpMeta)
	}()

	if recreate {
		if err := store.DropCollection(ctx, collection); err != nil {
			return nil, err
		}
	}
	if err := store.EnsureCollection(ctx, collection, dimension); err != nil {
		return nil, err
	}

	for start := 0; start < len(entries); start += qdrantUpsertBatch {
		end := min(start+qdrantUpsertBatch, len(entries))
		points := make([]vectorstore.Point, 0, end-start)
		for i := start; i < end; i++ {
			a := entries[i].Article
			points = append(points, vectorstore.Point{
				Position: i,
				Vec:      entries[i].Vector,
				Meta: map[string]any{
					"article_id": a.ArticleID,
					"title":      a.Title,
					"url":        a.URL,
					"build_id":   manifest.BuildID,
				},
			})
		}
		if err := store.Upsert(ctx, collection, points); err != nil {
			return nil, err
		}
		logger.DebugContext(ctx, "upserted batch", "collection", collection, "from", start, "to", end)
	}

	if err := os.Rename(tmpMeta, metadataPath); err != nil {
		return nil, fmt.Errorf("failed to move metadata file into place: %w", err)
	}

	logger.InfoContext(ctx, "qdrant artifact written",
		"build_id", manifest.BuildID,
		"collection", collection,
		"vectors", manifest.VectorCount,
		"metadata_path", metadataPath,
	)
	return manifest, nil
}

func newManifest(backend, embeddingModel string, dimension, count int) *storage.Manifest {
	return &storage.Manifest{
		BuildID:        uuid.NewString(),
		VectorCount:    count,
		Dimension:      dimension,
		EmbeddingModel: embeddingModel,
		Backend:        backend,
	}
}

// writeMetadata writes the article table and manifest to a temporary file next to path
// and returns its name. The caller renames it into place once the vectors are stored.
func writeMetadata(ctx context.Context, path string, manifest *storage.Manifest, entries []Entry) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create metadata directory: %w", err)
	}
	tmpPath := path + ".tmp-" + manifest.BuildID

	db, err := storage.New(tmpPath)
	if err != nil {
		return "", fmt.Errorf("failed to create metadata file: %w", err)
	}
	fail := func(err error) (string, error) {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		return "", err
	}

	if err := storage.Migrate(db); err != nil {
		return fail(fmt.Errorf("failed to migrate metadata file: %w", err))
	}

	records := make([]*storage.ArticleRecord, len(entries))
	for i := range entries {
		rec := entries[i].Article
		rec.Position = i
		records[i] = &rec
	}
	if err := storage.NewArticleRepo(db).InsertBatch(ctx, records); err != nil {
		return fail(err)
	}
	if err := storage.NewManifestRepo(db).Save(ctx, manifest); err != nil {
		return fail(err)
	}

	if err := db.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close metadata file: %w", err)
	}
	return tmpPath, nil
}
