package storage

import (
	"context"
	"errors"
	"testing"
)

func TestManifestRepo_GetMissing(t *testing.T) {
	repo := NewManifestRepo(newTestDB(t))

	_, err := repo.Get(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestManifestRepo_SaveReplaces(t *testing.T) {
	repo := NewManifestRepo(newTestDB(t))
	ctx := context.Background()

	if err := repo.Save(ctx, &Manifest{BuildID: "b1", VectorCount: 10, Dimension: 4, EmbeddingModel: "m", Backend: "flat"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Save(ctx, &Manifest{BuildID: "b2", VectorCount: 12, Dimension: 4, EmbeddingModel: "m", Backend: "qdrant"}); err != nil {
		t.Fatalf("Save() second call error = %v", err)
	}

	got, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.BuildID != "b2" || got.VectorCount != 12 || got.Backend != "qdrant" {
		t.Errorf("Get() = %+v, want build b2 with 12 vectors on qdrant", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("Get() CreatedAt should be set")
	}
}
