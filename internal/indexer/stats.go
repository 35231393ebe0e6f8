package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"
)

// TokensPerRune approximates token counts (4 chars per token).
const TokensPerRune = 4.0

// BuildStats reports what a build read, dropped and embedded.
type BuildStats struct {
	RowsRead           int `json:"rows_read"`
	DroppedEmptyBody   int `json:"dropped_empty_body"`
	DroppedDuplicateID int `json:"dropped_duplicate_id"`
	DroppedShortBody   int `json:"dropped_short_body"`
	EmbedAttempted     int `json:"embed_attempted"`
	Embedded           int `json:"embedded"`
	EmbedFailed        int `json:"embed_failed"`
	// FailedIDs lists the article ids whose embedding failed.
	FailedIDs []string `json:"failed_ids,omitempty"`
	// BodyTokenStats describes estimated token counts of the embedded bodies.
	BodyTokenStats TokenStats `json:"body_token_stats"`
	// IndexVersion identifies the embedding model and cleaning parameters of the build.
	IndexVersion string `json:"index_version"`
}

// TokenStats contains statistics about estimated token counts.
type TokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// estimateTokens approximates the token count of text.
func estimateTokens(text string) int {
	n := int(math.Round(float64(utf8.RuneCountInString(text)) / TokensPerRune))
	if n < 1 {
		return 1
	}
	return n
}

// indexVersion hashes the parameters that change what gets embedded.
func indexVersion(embeddingModel string) string {
	input := fmt.Sprintf("%s|maxTextChars=%d|minTextChars=%d", embeddingModel, MaxTextChars, MinTextChars)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16]
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) TokenStats {
	if len(tokenCounts) == 0 {
		return TokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range tokenCounts {
		sum += count
	}
	mean := float64(sum) / float64(len(tokenCounts))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return TokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100, // Round to 2 decimal places
		P95:  sorted[p95Index],
	}
}
