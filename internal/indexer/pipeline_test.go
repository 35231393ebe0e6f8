package indexer_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/mock/gomock"

	"newsdesk-ai/internal/indexer"
	indexer_mocks "newsdesk-ai/internal/indexer/mocks"
)

func articles(n int) []indexer.Article {
	out := make([]indexer.Article, n)
	for i := range out {
		out[i] = indexer.Article{ID: fmt.Sprintf("n%d", i), Title: "T", Body: fmt.Sprintf("body number %d", i)}
	}
	return out
}

func vectors(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{3, 4}
	}
	return out
}

func TestPipeline_Build(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := indexer_mocks.NewMockDocumentEmbedder(ctrl)

	gomock.InOrder(
		embedder.EXPECT().EmbedDocuments(gomock.Any(), gomock.Len(2)).Return(vectors(2), nil),
		embedder.EXPECT().EmbedDocuments(gomock.Any(), gomock.Len(1)).Return(vectors(1), nil),
	)

	p := indexer.NewPipeline(embedder, "m", 2).WithBatchSize(2)
	entries, stats, err := p.Build(context.Background(), articles(3))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(entries) != 3 || stats.Embedded != 3 || stats.EmbedFailed != 0 {
		t.Fatalf("Build() entries = %d, stats = %+v", len(entries), stats)
	}
	if entries[2].Article.ArticleID != "n2" {
		t.Errorf("entries out of dataset order: %q", entries[2].Article.ArticleID)
	}
	if v := entries[0].Vector; v[0] != 0.6 || v[1] != 0.8 {
		t.Errorf("vector not normalised: %v", v)
	}
}

func TestPipeline_Build_IsolatesFailedRows(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := indexer_mocks.NewMockDocumentEmbedder(ctrl)

	embedder.EXPECT().EmbedDocuments(gomock.Any(), gomock.Len(3)).Return(nil, errors.New("batch rejected"))
	embedder.EXPECT().EmbedDocuments(gomock.Any(), []string{"T\n\nbody number 0"}).Return(vectors(1), nil)
	embedder.EXPECT().EmbedDocuments(gomock.Any(), []string{"T\n\nbody number 1"}).Return(nil, errors.New("bad text"))
	embedder.EXPECT().EmbedDocuments(gomock.Any(), []string{"T\n\nbody number 2"}).Return([][]float32{{1, 2, 3}}, nil)

	entries, stats, err := indexer.NewPipeline(embedder, "m", 2).Build(context.Background(), articles(3))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Article.ArticleID != "n0" {
		t.Fatalf("Build() entries = %+v", entries)
	}
	if stats.EmbedFailed != 2 || len(stats.FailedIDs) != 2 || stats.FailedIDs[0] != "n1" || stats.FailedIDs[1] != "n2" {
		t.Errorf("stats = %+v", stats)
	}
}

func TestPipeline_Build_Canceled(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := indexer_mocks.NewMockDocumentEmbedder(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	embedder.EXPECT().EmbedDocuments(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, []string) ([][]float32, error) {
			cancel()
			return nil, context.Canceled
		})

	_, _, err := indexer.NewPipeline(embedder, "m", 2).Build(ctx, articles(3))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Build() error = %v, want context.Canceled", err)
	}
}
