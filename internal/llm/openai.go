package llm

import (
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const defaultRequestTimeout = 120 * time.Second

// newOpenAIClient builds a go-openai client for an OpenAI-compatible server rooted at baseURL.
func newOpenAIClient(baseURL, apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/") + "/v1"
	cfg.HTTPClient = &http.Client{Timeout: defaultRequestTimeout}
	return openai.NewClientWithConfig(cfg)
}
