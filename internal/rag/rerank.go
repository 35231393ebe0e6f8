package rag

import (
	"strings"
	"unicode"
)

const (
	webCoverageWeight = 0.8
	webRankWeight     = 0.2
)

var lexicalStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {},
	"or": {}, "the": {}, "to": {}, "was": {}, "were": {}, "with": {},
	"what": {}, "when": {}, "where": {}, "who": {}, "how": {}, "why": {}, "which": {}, "about": {},
	"did": {}, "does": {}, "do": {}, "s": {}, "today": {}, "latest": {}, "news": {},
	// Common Malay function words.
	"yang": {}, "dan": {}, "di": {}, "ke": {}, "dari": {}, "untuk": {}, "ini": {}, "itu": {},
	"dengan": {}, "pada": {}, "adalah": {}, "apa": {}, "berita": {},
}

// WebScore places a crawled page on the same [0,1] scale as internal cosine scores.
// It is 0.8 times the fraction of distinct query terms found in the page plus
// 0.2 divided by the search rank. Identical inputs always give identical scores.
func WebScore(query, title, text string, searchRank int) float64 {
	rankPart := 0.0
	if searchRank >= 1 {
		rankPart = webRankWeight / float64(searchRank)
	}

	queryTerms := distinct(filterStopwords(tokenize(query)))
	if len(queryTerms) == 0 {
		return clamp01(rankPart)
	}

	pageTokens := tokenize(title + " " + text)
	if len(pageTokens) == 0 {
		return clamp01(rankPart)
	}
	pageSet := make(map[string]struct{}, len(pageTokens))
	for _, token := range pageTokens {
		pageSet[token] = struct{}{}
	}

	var matched int
	for _, term := range queryTerms {
		if _, ok := pageSet[term]; ok {
			matched++
		}
	}

	coverage := float64(matched) / float64(len(queryTerms))
	return clamp01(webCoverageWeight*coverage + rankPart)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func distinct(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	tokens := strings.Fields(builder.String())
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

func filterStopwords(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}

	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := lexicalStopwords[token]; isStop {
			continue
		}
		result = append(result, token)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
