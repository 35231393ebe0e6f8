package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"newsdesk-ai/internal/llm"
	"newsdesk-ai/internal/rag"
)

// maxHistoryTurns bounds the prior turns forwarded to the generator.
const maxHistoryTurns = 10

const systemPrompt = "You are a news assistant that answers questions using the numbered context entries below. " +
	"Answer using only information from the context. If the context does not contain enough information " +
	"to answer, say so instead of guessing. Cite entries by their number, for example [1]. " +
	"State whether the information came from the internal news archive or from web sources, " +
	"and mention publication dates when they matter to the answer."

// buildMessages serialises the question, prior turns and candidates into chat messages.
// Candidates keep the router's order so entry numbers match the sources footer.
func buildMessages(q rag.Query, cands []rag.Candidate, excerptChars int) []llm.Message {
	messages := make([]llm.Message, 0, len(q.History)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})

	history := q.History
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	for _, turn := range history {
		if strings.TrimSpace(turn.Content) == "" {
			continue
		}
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}

	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf("%s\n\n%s", strings.TrimSpace(q.Text), formatContext(cands, excerptChars)),
	})
	return messages
}

// formatContext renders candidates as numbered entries with the metadata needed for citation.
func formatContext(cands []rag.Candidate, excerptChars int) string {
	var b strings.Builder
	b.WriteString("--- Context ---\n\n")

	for i, c := range cands {
		fmt.Fprintf(&b, "[%d] Title: %s\n", i+1, c.Title)
		if c.Source == rag.SourceInternal {
			fmt.Fprintf(&b, "Source: internal news archive (id: %s)\n", c.ID)
		} else {
			b.WriteString("Source: web\n")
		}
		fmt.Fprintf(&b, "Relevance: %.2f\n", c.Score)
		if c.PublishedAt != nil {
			fmt.Fprintf(&b, "Published: %s\n", c.PublishedAt.Format("2006-01-02"))
		}
		if c.URL != "" {
			fmt.Fprintf(&b, "URL: %s\n", c.URL)
		}
		fmt.Fprintf(&b, "Content: %s\n\n", excerpt(c.Body, excerptChars))
	}

	b.WriteString("--- End Context ---")
	return b.String()
}

// sourcesFooter lists each candidate's URL, with the article id for internal ones.
func sourcesFooter(cands []rag.Candidate) string {
	if len(cands) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Sources:")
	for i, c := range cands {
		fmt.Fprintf(&b, "\n[%d] ", i+1)
		switch {
		case c.Source == rag.SourceInternal && c.URL != "":
			fmt.Fprintf(&b, "%s (internal id: %s)", c.URL, c.ID)
		case c.Source == rag.SourceInternal:
			fmt.Fprintf(&b, "internal id: %s", c.ID)
		default:
			b.WriteString(c.URL)
		}
	}
	return b.String()
}

func excerpt(s string, maxChars int) string {
	s = strings.TrimSpace(s)
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:maxChars])) + "..."
}
