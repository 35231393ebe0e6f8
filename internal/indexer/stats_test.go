package indexer

import (
	"strings"
	"testing"
)

func TestComputeTokenStats(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		want   TokenStats
	}{
		{name: "empty", counts: nil, want: TokenStats{}},
		{name: "single", counts: []int{7}, want: TokenStats{Min: 7, Max: 7, Mean: 7, P95: 7}},
		{name: "unsorted", counts: []int{30, 10, 20}, want: TokenStats{Min: 10, Max: 30, Mean: 20, P95: 30}},
		{name: "mean rounded", counts: []int{1, 2, 2}, want: TokenStats{Min: 1, Max: 2, Mean: 1.67, P95: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeTokenStats(tt.counts)
			if got != tt.want {
				t.Errorf("computeTokenStats(%v) = %+v, want %+v", tt.counts, got, tt.want)
			}
		})
	}
}

func TestComputeTokenStats_DoesNotReorderInput(t *testing.T) {
	counts := []int{3, 1, 2}
	_ = computeTokenStats(counts)
	if counts[0] != 3 || counts[1] != 1 || counts[2] != 2 {
		t.Errorf("input reordered: %v", counts)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{text: "", want: 1},
		{text: "abc", want: 1},
		{text: strings.Repeat("a", 40), want: 10},
		{text: strings.Repeat("é", 8), want: 2},
	}
	for _, tt := range tests {
		if got := estimateTokens(tt.text); got != tt.want {
			t.Errorf("estimateTokens(%d runes) = %d, want %d", len([]rune(tt.text)), got, tt.want)
		}
	}
}

func TestIndexVersion(t *testing.T) {
	a := indexVersion("text-embedding-004")
	if len(a) != 16 {
		t.Errorf("indexVersion length = %d, want 16", len(a))
	}
	if a != indexVersion("text-embedding-004") {
		t.Error("indexVersion should be deterministic")
	}
	if a == indexVersion("other-model") {
		t.Error("indexVersion should depend on the embedding model")
	}
}

func TestBuildStats_String(t *testing.T) {
	s := &BuildStats{RowsRead: 10, EmbedAttempted: 8, Embedded: 7, EmbedFailed: 1, DroppedEmptyBody: 1, DroppedDuplicateID: 1}
	want := "read=10 kept=8 embedded=7 failed=1 dropped(empty=1 duplicate=1 short=0)"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
