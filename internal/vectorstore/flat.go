package vectorstore

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const flatFormatVersion = 1

// flatFile is the on-disk layout of a FlatIndex. Vectors is row-major, Count*Dimension long.
type flatFile struct {
	Version   int
	BuildID   string
	Dimension int
	Count     int
	Vectors   []float32
}

// FlatIndex is an exact inner-product index held in memory. It is immutable after construction.
type FlatIndex struct {
	buildID   string
	dimension int
	vectors   []float32
}

// NewFlatIndex builds an index from vectors that are already unit length.
// Every vector must have length dimension.
func NewFlatIndex(buildID string, dimension int, vectors [][]float32) (*FlatIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be greater than 0")
	}
	flat := make([]float32, 0, len(vectors)*dimension)
	for i, v := range vectors {
		if len(v) != dimension {
			return nil, fmt.Errorf("vector %d has size %d, expected %d", i, len(v), dimension)
		}
		flat = append(flat, v...)
	}
	return &FlatIndex{buildID: buildID, dimension: dimension, vectors: flat}, nil
}

// LoadFlatIndex reads an index written by Save.
func LoadFlatIndex(path string) (*FlatIndex, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	var data flatFile
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode vector file: %w", err)
	}

	if data.Version != flatFormatVersion {
		return nil, fmt.Errorf("unsupported vector file version %d", data.Version)
	}
	if data.Dimension <= 0 {
		return nil, fmt.Errorf("vector file has invalid dimension %d", data.Dimension)
	}
	if len(data.Vectors) != data.Count*data.Dimension {
		return nil, fmt.Errorf("vector file is truncated: header says %d x %d, found %d values",
			data.Count, data.Dimension, len(data.Vectors))
	}

	return &FlatIndex{buildID: data.BuildID, dimension: data.Dimension, vectors: data.Vectors}, nil
}

// Save writes the index to path atomically.
func (f *FlatIndex) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp vector file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath) // no-op after a successful rename
	}()

	err = gob.NewEncoder(tmp).Encode(flatFile{
		Version:   flatFormatVersion,
		BuildID:   f.buildID,
		Dimension: f.dimension,
		Count:     f.Count(),
		Vectors:   f.vectors,
	})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write vector file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move vector file into place: %w", err)
	}
	return nil
}

// BuildID returns the identifier shared with the paired metadata table.
func (f *FlatIndex) BuildID() string { return f.buildID }

// Count returns the number of vectors.
func (f *FlatIndex) Count() int { return len(f.vectors) / f.dimension }

// Dimension returns the vector length.
func (f *FlatIndex) Dimension() int { return f.dimension }

// Search scores every vector by inner product and returns the top k.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	if len(query) != f.dimension {
		return nil, fmt.Errorf("query has size %d, index dimension is %d", len(query), f.dimension)
	}

	count := f.Count()
	hits := make([]Hit, count)
	for i := 0; i < count; i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		hits[i] = Hit{
			Position: i,
			Score:    Dot(query, f.vectors[i*f.dimension:(i+1)*f.dimension]),
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}
