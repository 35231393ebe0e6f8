package rag

import "errors"

// Retrieval error taxonomy. Callers match with errors.Is.
var (
	// ErrIndexUnavailable means the index artifact is missing or corrupt. Fatal at startup.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrEmbedding means the query could not be embedded. Fatal for the query.
	ErrEmbedding = errors.New("embedding failed")
	// ErrWebSearch covers web search timeouts, quota exhaustion and malformed responses.
	ErrWebSearch = errors.New("web search failed")
	// ErrCrawl is a per-URL crawl failure.
	ErrCrawl = errors.New("crawl failed")
	// ErrEmptyResult is returned when no retrieval path produced a candidate.
	ErrEmptyResult = errors.New("no information found")
	// ErrInvalidQuery is returned for blank queries and non-positive k.
	ErrInvalidQuery = errors.New("invalid query")
)
