package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Index backends supported by the API server.
const (
	BackendFlat   = "flat"
	BackendQdrant = "qdrant"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL              string
	LLMModelName            string
	LLMAPIKey               string
	EmbeddingBaseURL        string
	EmbeddingModelName      string
	EmbeddingDimension      int
	EmbeddingQueryPrefix    string
	EmbeddingDocumentPrefix string

	IndexBackend      string
	IndexVectorPath   string
	IndexMetadataPath string
	QdrantURL         string
	QdrantCollection  string

	SerperAPIKey        string
	SerperURL           string
	SearchLocation      string
	SearchCountry       string
	SearchRatePerSecond float64

	InternalK            int
	SufficiencyThreshold float64
	SufficiencyMinCount  int
	WebMaxResults        int
	WebSearchTimeout     time.Duration
	CrawlCeiling         int
	CrawlConcurrency     int
	CrawlTimeout         time.Duration
	CrawlBatchTimeout    time.Duration
	CrawlMaxChars        int
	ContextBudget        int
	ContextExcerptChars  int
	GenerationRetries    int
	QueryMaxRows         int

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// WebEnabled reports whether a web search provider is configured.
func (c *Config) WebEnabled() bool {
	return c.SerperAPIKey != ""
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		LLMBaseURL:              getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:            getEnv("LLM_MODEL", "gemini-2.0-flash-001"),
		LLMAPIKey:               getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:        getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName:      getEnv("EMBEDDING_MODEL_NAME", "text-embedding-004"),
		EmbeddingQueryPrefix:    os.Getenv("EMBEDDING_QUERY_PREFIX"),
		EmbeddingDocumentPrefix: os.Getenv("EMBEDDING_DOCUMENT_PREFIX"),
		IndexBackend:            strings.ToLower(getEnv("INDEX_BACKEND", BackendFlat)),
		IndexVectorPath:         getEnv("INDEX_VECTOR_PATH", "./index/news.vec"),
		IndexMetadataPath:       getEnv("INDEX_METADATA_PATH", "./index/news_metadata.db"),
		QdrantURL:               getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:        getEnv("QDRANT_COLLECTION", "news"),
		SerperAPIKey:            os.Getenv("SERPER_API_KEY"),
		SerperURL:               getEnv("SERPER_URL", "https://google.serper.dev/news"),
		SearchLocation:          getEnv("SEARCH_LOCATION", "Malaysia"),
		SearchCountry:           getEnv("SEARCH_COUNTRY", "my"),
		APIPort:                 getEnv("API_PORT", "9000"),
		LogFormat:               strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	// Must match the embedding model's output size; the artifact records the value it was built with.
	dimStr := getEnv("EMBEDDING_DIMENSION", "")
	if dimStr == "" {
		return nil, fmt.Errorf("EMBEDDING_DIMENSION is required")
	}
	dim, err := strconv.Atoi(dimStr)
	if err != nil {
		return nil, fmt.Errorf("EMBEDDING_DIMENSION must be a valid integer: %w", err)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("EMBEDDING_DIMENSION must be greater than 0")
	}
	cfg.EmbeddingDimension = dim

	if cfg.IndexBackend != BackendFlat && cfg.IndexBackend != BackendQdrant {
		return nil, fmt.Errorf("INDEX_BACKEND must be %q or %q, got %q", BackendFlat, BackendQdrant, cfg.IndexBackend)
	}

	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"INTERNAL_K", 5, &cfg.InternalK},
		{"SUFFICIENCY_MIN_COUNT", 1, &cfg.SufficiencyMinCount},
		{"WEB_MAX_RESULTS", 5, &cfg.WebMaxResults},
		{"CRAWL_CEILING", 5, &cfg.CrawlCeiling},
		{"CRAWL_CONCURRENCY", 4, &cfg.CrawlConcurrency},
		{"CRAWL_MAX_CHARS", 8000, &cfg.CrawlMaxChars},
		{"CONTEXT_BUDGET", 5, &cfg.ContextBudget},
		{"CONTEXT_EXCERPT_CHARS", 2000, &cfg.ContextExcerptChars},
		{"QUERY_MAX_ROWS", 200, &cfg.QueryMaxRows},
	}
	for _, v := range ints {
		n, err := getEnvPositiveInt(v.key, v.def)
		if err != nil {
			return nil, err
		}
		*v.dst = n
	}

	retries, err := strconv.Atoi(getEnv("GENERATION_RETRIES", "2"))
	if err != nil || retries < 0 {
		return nil, fmt.Errorf("GENERATION_RETRIES must be a non-negative integer")
	}
	cfg.GenerationRetries = retries

	threshold, err := strconv.ParseFloat(getEnv("SUFFICIENCY_THRESHOLD", "0.7"), 64)
	if err != nil {
		return nil, fmt.Errorf("SUFFICIENCY_THRESHOLD must be a number: %w", err)
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("SUFFICIENCY_THRESHOLD must be between 0 and 1")
	}
	cfg.SufficiencyThreshold = threshold

	rps, err := strconv.ParseFloat(getEnv("SEARCH_RATE_PER_SECOND", "1"), 64)
	if err != nil || rps <= 0 {
		return nil, fmt.Errorf("SEARCH_RATE_PER_SECOND must be a positive number")
	}
	cfg.SearchRatePerSecond = rps

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"WEB_SEARCH_TIMEOUT", "45s", &cfg.WebSearchTimeout},
		{"CRAWL_TIMEOUT", "20s", &cfg.CrawlTimeout},
		{"CRAWL_BATCH_TIMEOUT", "30s", &cfg.CrawlBatchTimeout},
	}
	for _, v := range durations {
		d, err := time.ParseDuration(getEnv(v.key, v.def))
		if err != nil {
			return nil, fmt.Errorf("%s must be a duration (e.g. 20s): %w", v.key, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("%s must be greater than 0", v.key)
		}
		*v.dst = d
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	return cfg, nil
}

// loadDotEnv loads the first .env file found in the working directory or up to five parents.
func loadDotEnv() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ { // Limit search depth
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return // Reached filesystem root
		}
		dir = parent
	}
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", s)
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvPositiveInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return n, nil
}
