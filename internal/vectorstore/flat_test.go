package vectorstore

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unit(v ...float32) []float32 {
	NormalizeL2(v)
	return v
}

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := []float32{0, 0}
	NormalizeL2(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestNewFlatIndex_RejectsWrongDimension(t *testing.T) {
	_, err := NewFlatIndex("b1", 2, [][]float32{{1, 0}, {1, 0, 0}})
	assert.Error(t, err)

	_, err = NewFlatIndex("b1", 0, nil)
	assert.Error(t, err)
}

func TestFlatIndex_Search(t *testing.T) {
	idx, err := NewFlatIndex("b1", 2, [][]float32{
		unit(1, 0),
		unit(0, 1),
		unit(1, 1),
		unit(1, 0), // duplicate of position 0
	})
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Count())
	assert.Equal(t, 2, idx.Dimension())

	hits, err := idx.Search(context.Background(), unit(1, 0), 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	// Equal scores keep positional order.
	assert.Equal(t, 0, hits[0].Position)
	assert.Equal(t, 3, hits[1].Position)
	assert.Equal(t, 2, hits[2].Position)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.InDelta(t, 1/math.Sqrt2, hits[2].Score, 1e-6)
}

func TestFlatIndex_SearchValidation(t *testing.T) {
	idx, err := NewFlatIndex("b1", 2, [][]float32{unit(1, 0)})
	require.NoError(t, err)

	_, err = idx.Search(context.Background(), []float32{1, 0}, 0)
	assert.Error(t, err)

	_, err = idx.Search(context.Background(), []float32{1, 0, 0}, 1)
	assert.Error(t, err)

	hits, err := idx.Search(context.Background(), []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1, "k larger than the index returns every vector")
}

func TestFlatIndex_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "news.vec")

	idx, err := NewFlatIndex("build-42", 3, [][]float32{unit(1, 2, 3), unit(3, 2, 1)})
	require.NoError(t, err)
	require.NoError(t, idx.Save(path))

	loaded, err := LoadFlatIndex(path)
	require.NoError(t, err)
	assert.Equal(t, "build-42", loaded.BuildID())
	assert.Equal(t, 2, loaded.Count())
	assert.Equal(t, 3, loaded.Dimension())

	hits, err := loaded.Search(context.Background(), unit(3, 2, 1), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Position)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be renamed away")
}

func TestLoadFlatIndex_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFlatIndex(filepath.Join(dir, "missing.vec"))
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.vec")
	require.NoError(t, os.WriteFile(garbage, []byte("not a gob stream"), 0o644))
	_, err = LoadFlatIndex(garbage)
	assert.Error(t, err)
}
