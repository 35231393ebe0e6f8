package rag

import "sort"

// IdentityKey is the deduplication key of a candidate: the article id for internal
// candidates and the canonical URL for web candidates.
func IdentityKey(c Candidate) string {
	if c.Source == SourceInternal && c.ID != "" {
		return "internal:" + c.ID
	}
	return "url:" + CanonicalURL(c.URL)
}

// Merge pools candidates from both sources, removes duplicates, sorts and truncates to budget.
//
// Internal candidates are deduplicated by article id. A web candidate whose canonical URL
// matches an internal candidate collapses into it: the internal candidate keeps its source
// tag and takes the higher of the two scores. Remaining web candidates are deduplicated by
// canonical URL keeping the higher score. The result is ordered by score descending, then
// per-source rank ascending, then internal before web. budget <= 0 disables truncation.
func Merge(candidates []Candidate, budget int) []Candidate {
	merged := make([]Candidate, 0, len(candidates))
	byKey := make(map[string]int, len(candidates))
	internalByURL := make(map[string]int)

	keep := func(key string, c Candidate) {
		if i, ok := byKey[key]; ok {
			if c.Score > merged[i].Score {
				merged[i] = c
			}
			return
		}
		byKey[key] = len(merged)
		merged = append(merged, c)
	}

	for _, c := range candidates {
		if c.Source != SourceInternal {
			continue
		}
		key := IdentityKey(c)
		keep(key, c)
		if c.URL != "" {
			if _, ok := internalByURL[CanonicalURL(c.URL)]; !ok {
				internalByURL[CanonicalURL(c.URL)] = byKey[key]
			}
		}
	}

	for _, c := range candidates {
		if c.Source != SourceWeb {
			continue
		}
		if i, ok := internalByURL[CanonicalURL(c.URL)]; ok {
			if c.Score > merged[i].Score {
				merged[i].Score = c.Score
			}
			continue
		}
		keep(IdentityKey(c), c)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.Source == SourceInternal && b.Source != SourceInternal
	})

	if budget > 0 && len(merged) > budget {
		merged = merged[:budget]
	}
	return merged
}
