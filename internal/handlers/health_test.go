package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"newsdesk-ai/internal/artifact"
)

type staticInfo artifact.Info

func (s staticInfo) Info() artifact.Info { return artifact.Info(s) }

func TestHealthHandler(t *testing.T) {
	loaded := staticInfo{Backend: "flat", BuildID: "b-1", VectorCount: 1200, Dimension: 768, EmbeddingModel: "text-embedding-004"}

	tests := []struct {
		name       string
		index      IndexInfo
		webEnabled bool
		method     string
		wantStatus int
		wantState  string
	}{
		{name: "healthy", index: loaded, webEnabled: true, method: http.MethodGet, wantStatus: http.StatusOK, wantState: "healthy"},
		{name: "web disabled", index: loaded, webEnabled: false, method: http.MethodGet, wantStatus: http.StatusOK, wantState: "degraded"},
		{name: "empty index", index: staticInfo{Backend: "flat"}, webEnabled: true, method: http.MethodGet, wantStatus: http.StatusServiceUnavailable, wantState: "unhealthy"},
		{name: "no index", index: nil, webEnabled: true, method: http.MethodGet, wantStatus: http.StatusServiceUnavailable, wantState: "unhealthy"},
		{name: "method not allowed", index: loaded, method: http.MethodPost, wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.index, tt.webEnabled)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(tt.method, "/api/health", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantState == "" {
				return
			}
			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Status != tt.wantState {
				t.Errorf("Status = %q, want %q", resp.Status, tt.wantState)
			}
			if tt.index != nil && (resp.Index == nil || resp.Index.Backend != tt.index.Info().Backend) {
				t.Errorf("Index = %+v", resp.Index)
			}
		})
	}
}
