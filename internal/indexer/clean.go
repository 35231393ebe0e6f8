package indexer

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxTextChars bounds the body stored and embedded per article.
	MaxTextChars = 50000
	// MinTextChars is the shortest body worth indexing.
	MinTextChars = 5
)

// CleanText strips NUL bytes, normalises line endings and runs of blank lines,
// and truncates to MaxTextChars runes. It returns "" for texts shorter than MinTextChars.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ToValidUTF8(s, "")

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		kept = append(kept, line)
	}
	s = strings.TrimSpace(strings.Join(kept, "\n"))

	if utf8.RuneCountInString(s) > MaxTextChars {
		s = string([]rune(s)[:MaxTextChars])
	}
	if utf8.RuneCountInString(s) < MinTextChars {
		return ""
	}
	return s
}

// Prepare cleans articles, drops empty or too-short bodies and duplicate ids (first wins),
// and records what it dropped in stats.
func Prepare(articles []Article, stats *BuildStats) []Article {
	seen := make(map[string]struct{}, len(articles))
	kept := make([]Article, 0, len(articles))

	for _, a := range articles {
		stats.RowsRead++

		if strings.TrimSpace(a.Body) == "" {
			stats.DroppedEmptyBody++
			continue
		}
		if _, dup := seen[a.ID]; dup {
			stats.DroppedDuplicateID++
			continue
		}

		body := CleanText(a.Body)
		if body == "" {
			stats.DroppedShortBody++
			continue
		}
		seen[a.ID] = struct{}{}

		a.Body = body
		a.Title = strings.TrimSpace(strings.ReplaceAll(a.Title, "\x00", ""))
		kept = append(kept, a)
	}
	return kept
}
