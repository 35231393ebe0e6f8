package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type embeddingRequestBody struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

func writeEmbeddings(w http.ResponseWriter, vectors ...[]float32) {
	data := make([]map[string]any, len(vectors))
	for i, v := range vectors {
		data[i] = map[string]any{"object": "embedding", "index": i, "embedding": v}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": "test-model"})
}

func noBackoff(int) time.Duration { return 0 }

func TestNewEmbeddingsClient(t *testing.T) {
	client := NewEmbeddingsClient("http://localhost:8080", "test-key", "test-model", 768)
	if client == nil {
		t.Fatal("NewEmbeddingsClient() returned nil")
	}
	if client.BaseURL != "http://localhost:8080" {
		t.Errorf("NewEmbeddingsClient() BaseURL = %v, want http://localhost:8080", client.BaseURL)
	}
	if client.ExpectedSize != 768 {
		t.Errorf("NewEmbeddingsClient() ExpectedSize = %v, want 768", client.ExpectedSize)
	}
	if client.MaxAttempts != 3 {
		t.Errorf("NewEmbeddingsClient() MaxAttempts = %v, want 3", client.MaxAttempts)
	}
}

func TestExponentialBackoff(t *testing.T) {
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	for i, w := range want {
		if got := exponentialBackoff(i + 1); got != w {
			t.Errorf("exponentialBackoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestEmbeddingsClient_EmbedTexts(t *testing.T) {
	tests := []struct {
		name         string
		texts        []string
		expectedSize int
		serverResp   func(w http.ResponseWriter, r *http.Request)
		wantErr      error
		wantCount    int
	}{
		{
			name:         "successful embedding",
			texts:        []string{"Hello", "World"},
			expectedSize: 4,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.URL.Path != "/v1/embeddings" {
					t.Errorf("expected /v1/embeddings, got %s", r.URL.Path)
				}
				writeEmbeddings(w, make([]float32, 4), make([]float32, 4))
			},
			wantCount: 2,
		},
		{
			name:         "empty input",
			texts:        []string{},
			expectedSize: 4,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				t.Error("server should not be called")
			},
			wantErr: ErrMalformedInput,
		},
		{
			name:         "wrong embedding count",
			texts:        []string{"Hello", "World"},
			expectedSize: 4,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				writeEmbeddings(w, make([]float32, 4))
			},
			wantErr: ErrMalformedResponse,
		},
		{
			name:         "wrong vector size",
			texts:        []string{"Hello"},
			expectedSize: 4,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				writeEmbeddings(w, make([]float32, 3))
			},
			wantErr: ErrMalformedResponse,
		},
		{
			name:         "server error",
			texts:        []string{"Hello"},
			expectedSize: 4,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("internal server error"))
			},
			wantErr: ErrTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResp))
			defer server.Close()

			client := NewEmbeddingsClient(server.URL, "test-key", "test-model", tt.expectedSize)
			client.Backoff = noBackoff
			embeddings, err := client.EmbedTexts(context.Background(), tt.texts)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("EmbedTexts() error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("EmbedTexts() unexpected error: %v", err)
			}

			if len(embeddings) != tt.wantCount {
				t.Errorf("EmbedTexts() returned %d embeddings, want %d", len(embeddings), tt.wantCount)
			}
			for i, vec := range embeddings {
				if len(vec) != tt.expectedSize {
					t.Errorf("EmbedTexts() embedding[%d] size = %d, want %d", i, len(vec), tt.expectedSize)
				}
			}
		})
	}
}

func TestEmbeddingsClient_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"quota","type":"rate_limit"}}`))
			return
		}
		writeEmbeddings(w, []float32{1, 0})
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL, "test-key", "test-model", 2)
	client.Backoff = noBackoff

	vecs, err := client.EmbedTexts(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}
	if len(vecs) != 1 || vecs[0][0] != 1 {
		t.Errorf("EmbedTexts() = %v, want [[1 0]]", vecs)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server called %d times, want 3", got)
	}
}

func TestEmbeddingsClient_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL, "test-key", "test-model", 2)
	client.Backoff = noBackoff

	_, err := client.EmbedTexts(context.Background(), []string{"x"})
	if !errors.Is(err, ErrTransient) {
		t.Errorf("EmbedTexts() error = %v, want ErrTransient", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server called %d times, want 3", got)
	}
}

func TestEmbeddingsClient_DoesNotRetryMalformedInput(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"too long","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL, "test-key", "test-model", 2)
	client.Backoff = noBackoff

	_, err := client.EmbedTexts(context.Background(), []string{"x"})
	if !errors.Is(err, ErrMalformedInput) {
		t.Errorf("EmbedTexts() error = %v, want ErrMalformedInput", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}
}

func TestEmbeddingsClient_Prefixes(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequestBody
		_ = json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		got = append(got, req.Input...)
		mu.Unlock()
		vecs := make([][]float32, len(req.Input))
		for i := range vecs {
			vecs[i] = []float32{0, 1}
		}
		writeEmbeddings(w, vecs...)
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL, "test-key", "test-model", 2)
	client.QueryPrefix = "query: "
	client.DocumentPrefix = "passage: "

	if _, err := client.EmbedQuery(context.Background(), "floods"); err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if _, err := client.EmbedDocuments(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("EmbedDocuments() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"query: floods", "passage: a", "passage: b"}
	if len(got) != len(want) {
		t.Fatalf("inputs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("input[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
