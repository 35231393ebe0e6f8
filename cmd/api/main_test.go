package main

import (
	"testing"
	"time"

	"newsdesk-ai/internal/rag"
)

func TestWriteTimeout(t *testing.T) {
	policy := rag.DefaultConfig()
	got := writeTimeout(policy)

	if webPath := policy.WebSearchTimeout + policy.CrawlBatchTimeout; got <= webPath {
		t.Errorf("writeTimeout() = %v, want more than the web path %v", got, webPath)
	}

	policy.CrawlBatchTimeout = 5 * time.Minute
	if got := writeTimeout(policy); got < 5*time.Minute {
		t.Errorf("writeTimeout() = %v, should grow with the crawl batch timeout", got)
	}
}
