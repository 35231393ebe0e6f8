package rag

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_CrossSourceDuplicate(t *testing.T) {
	merged := Merge([]Candidate{
		{Source: SourceInternal, ID: "a1", URL: "https://news.example.com/a1", Score: 0.81, Rank: 1},
		{Source: SourceWeb, ID: "https://news.example.com/a1", URL: "https://news.example.com/a1", Score: 0.76, Rank: 1},
	}, 5)

	require.Len(t, merged, 1)
	assert.Equal(t, SourceInternal, merged[0].Source)
	assert.Equal(t, 0.81, merged[0].Score)
}

func TestMerge_CrossSourceDuplicateTakesHigherWebScore(t *testing.T) {
	merged := Merge([]Candidate{
		{Source: SourceInternal, ID: "a1", URL: "https://news.example.com/a1", Score: 0.5, Rank: 1},
		{Source: SourceWeb, URL: "http://www.news.example.com/a1?utm_campaign=z", Score: 0.9, Rank: 2},
	}, 5)

	require.Len(t, merged, 1)
	assert.Equal(t, SourceInternal, merged[0].Source, "internal tag is authoritative")
	assert.Equal(t, "a1", merged[0].ID)
	assert.Equal(t, 0.9, merged[0].Score)
	assert.Equal(t, 1, merged[0].Rank)
}

func TestMerge_DedupWithinSource(t *testing.T) {
	merged := Merge([]Candidate{
		{Source: SourceInternal, ID: "a1", Score: 0.6, Rank: 1},
		{Source: SourceInternal, ID: "a1", Score: 0.7, Rank: 2},
		{Source: SourceWeb, URL: "https://x.example.com/p", Score: 0.4, Rank: 1},
		{Source: SourceWeb, URL: "https://x.example.com/p/#top", Score: 0.45, Rank: 2},
	}, 10)

	require.Len(t, merged, 2)
	assert.Equal(t, "a1", merged[0].ID)
	assert.Equal(t, 0.7, merged[0].Score)
	assert.Equal(t, SourceWeb, merged[1].Source)
	assert.Equal(t, 0.45, merged[1].Score)
}

func TestMerge_TieBreaks(t *testing.T) {
	merged := Merge([]Candidate{
		{Source: SourceWeb, URL: "https://w.example.com/1", Score: 0.5, Rank: 1},
		{Source: SourceInternal, ID: "i2", Score: 0.5, Rank: 2},
		{Source: SourceInternal, ID: "i1", Score: 0.5, Rank: 1},
	}, 10)

	require.Len(t, merged, 3)
	// Same score: lower rank first, then internal before web.
	assert.Equal(t, "i1", merged[0].ID)
	assert.Equal(t, SourceWeb, merged[1].Source)
	assert.Equal(t, "i2", merged[2].ID)
}

func TestMerge_BudgetAndEmpty(t *testing.T) {
	assert.Empty(t, Merge(nil, 5))

	cands := []Candidate{
		{Source: SourceInternal, ID: "a", Score: 0.1, Rank: 3},
		{Source: SourceInternal, ID: "b", Score: 0.9, Rank: 1},
		{Source: SourceInternal, ID: "c", Score: 0.5, Rank: 2},
	}
	merged := Merge(cands, 2)
	require.Len(t, merged, 2)
	assert.Equal(t, "b", merged[0].ID)
	assert.Equal(t, "c", merged[1].ID)

	assert.Len(t, Merge(cands, 0), 3, "non-positive budget keeps everything")
}

// Random pools must always satisfy the budget, ordering and dedup invariants.
func TestMerge_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	hosts := []string{"news.example.com", "www.news.example.com", "other.example.org"}

	for round := 0; round < 200; round++ {
		var pool []Candidate
		n := rng.Intn(20)
		for i := 0; i < n; i++ {
			url := fmt.Sprintf("https://%s/a%d", hosts[rng.Intn(len(hosts))], rng.Intn(6))
			if rng.Intn(2) == 0 {
				pool = append(pool, Candidate{Source: SourceInternal, ID: fmt.Sprintf("a%d", rng.Intn(6)), URL: url, Score: rng.Float64(), Rank: i + 1})
			} else {
				pool = append(pool, Candidate{Source: SourceWeb, URL: url, Score: rng.Float64(), Rank: i + 1})
			}
		}

		budget := 1 + rng.Intn(6)
		merged := Merge(pool, budget)

		assert.LessOrEqual(t, len(merged), budget)
		keys := make(map[string]bool)
		for i, c := range merged {
			if i > 0 {
				assert.GreaterOrEqual(t, merged[i-1].Score, c.Score)
			}
			key := IdentityKey(c)
			assert.False(t, keys[key], "round %d: duplicate key %s", round, key)
			keys[key] = true
		}
	}
}

func TestIdentityKey(t *testing.T) {
	assert.Equal(t, "internal:a1", IdentityKey(Candidate{Source: SourceInternal, ID: "a1", URL: "https://x.example.com"}))
	assert.Equal(t, "url:https://x.example.com/p", IdentityKey(Candidate{Source: SourceWeb, URL: "http://www.x.example.com/p/"}))
}
