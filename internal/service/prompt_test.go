package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"newsdesk-ai/internal/llm"
	"newsdesk-ai/internal/rag"
)

func TestFormatContext(t *testing.T) {
	published := time.Date(2023, 11, 5, 8, 30, 0, 0, time.UTC)
	cands := []rag.Candidate{
		{Source: rag.SourceInternal, ID: "a1", Title: "Flood warning", Body: "Rivers rose overnight.", URL: "https://archive.example/a1", Score: 0.91, PublishedAt: &published},
		{Source: rag.SourceWeb, ID: "https://web.example/x", Title: "Flood update", Body: "Evacuations began.", URL: "https://web.example/x", Score: 0.5},
	}

	got := formatContext(cands, 100)

	for _, want := range []string{
		"[1] Title: Flood warning\nSource: internal news archive (id: a1)\nRelevance: 0.91\nPublished: 2023-11-05\nURL: https://archive.example/a1\nContent: Rivers rose overnight.",
		"[2] Title: Flood update\nSource: web\nRelevance: 0.50\nURL: https://web.example/x\nContent: Evacuations began.",
		"--- End Context ---",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("formatContext() missing %q\ngot:\n%s", want, got)
		}
	}
	if strings.Index(got, "[1]") > strings.Index(got, "[2]") {
		t.Error("entries out of order")
	}
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{in: "short", max: 10, want: "short"},
		{in: "  padded  ", max: 10, want: "padded"},
		{in: "abcdefghij", max: 4, want: "abcd..."},
		{in: "héllo wörld", max: 5, want: "héllo..."},
		{in: "unbounded", max: 0, want: "unbounded"},
	}
	for _, tt := range tests {
		if got := excerpt(tt.in, tt.max); got != tt.want {
			t.Errorf("excerpt(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestBuildMessages_TrimsHistory(t *testing.T) {
	history := make([]rag.Turn, 0, 14)
	for i := 0; i < 14; i++ {
		role := llm.RoleUser
		if i%2 == 1 {
			role = llm.RoleAssistant
		}
		history = append(history, rag.Turn{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}
	history = append(history, rag.Turn{Role: llm.RoleUser, Content: "   "})

	msgs := buildMessages(rag.Query{Text: "latest", History: history}, nil, 100)

	// system + last maxHistoryTurns turns (one blank skipped) + question
	if len(msgs) != 1+maxHistoryTurns-1+1 {
		t.Fatalf("messages = %d", len(msgs))
	}
	if msgs[1].Content != "turn 5" {
		t.Errorf("oldest kept turn = %q, want turn 5", msgs[1].Content)
	}
	if !strings.HasPrefix(msgs[len(msgs)-1].Content, "latest\n\n--- Context ---") {
		t.Errorf("question message = %q", msgs[len(msgs)-1].Content)
	}
}

func TestSourcesFooter(t *testing.T) {
	if got := sourcesFooter(nil); got != "" {
		t.Errorf("sourcesFooter(nil) = %q, want empty", got)
	}

	got := sourcesFooter([]rag.Candidate{
		{Source: rag.SourceInternal, ID: "7", URL: "https://archive.example/7"},
		{Source: rag.SourceInternal, ID: "8"},
		{Source: rag.SourceWeb, ID: "https://web.example/y", URL: "https://web.example/y"},
	})
	want := "Sources:\n[1] https://archive.example/7 (internal id: 7)\n[2] internal id: 8\n[3] https://web.example/y"
	if got != want {
		t.Errorf("sourcesFooter() = %q, want %q", got, want)
	}
}
