package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_index.go -package=mocks newsdesk-ai/internal/vectorstore VectorIndex

import "context"

// Point is a vector stored at a fixed position of the index, with optional payload.
type Point struct {
	Position int
	Vec      []float32
	Meta     map[string]any
}

// Hit is one nearest-neighbour result. Position is the row of the paired metadata table.
type Hit struct {
	Position int
	Score    float32
	Meta     map[string]any
}

// VectorIndex is a read-only nearest-neighbour index over unit vectors.
// Implementations are safe for concurrent use once loaded.
type VectorIndex interface {
	// Search returns up to k hits ordered by descending similarity.
	// Hits with equal score keep the index's native order.
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)

	// Count returns the number of vectors in the index.
	Count() int

	// Dimension returns the length every stored vector has.
	Dimension() int
}
