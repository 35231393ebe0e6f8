package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newsdesk-ai/internal/artifact"
	"newsdesk-ai/internal/config"
	"newsdesk-ai/internal/http"
	"newsdesk-ai/internal/llm"
	"newsdesk-ai/internal/rag"
	"newsdesk-ai/internal/search"
	"newsdesk-ai/internal/service"
	"newsdesk-ai/internal/storage"
	"newsdesk-ai/internal/vectorstore"
	"newsdesk-ai/internal/web"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers questions about the news from an internal article archive,
// falling back to live web news search when the archive has no good match.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Newsdesk AI API
//   description: |
//     Hybrid retrieval API over an indexed news archive and web news search.
//     Answers cite numbered sources and state whether they came from the archive or the web.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

const shutdownTimeout = 15 * time.Second

// answerAllowance covers query embedding and answer generation, retries included.
const answerAllowance = time.Minute

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The server does not start without a valid artifact pair.
	art, closeIndex, err := loadArtifact(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to load index artifact: %v", err)
	}
	defer func() {
		_ = art.Close()
		closeIndex()
	}()
	info := art.Info()
	slog.Info("Index artifact loaded",
		"backend", info.Backend,
		"build_id", info.BuildID,
		"vectors", info.VectorCount,
		"dimension", info.Dimension,
		"embedding_model", info.EmbeddingModel,
	)
	if info.EmbeddingModel != "" && info.EmbeddingModel != cfg.EmbeddingModelName {
		slog.Warn("Embedding model differs from the one the index was built with",
			"configured", cfg.EmbeddingModelName, "index", info.EmbeddingModel)
	}

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingDimension)
	embedder.QueryPrefix = cfg.EmbeddingQueryPrefix
	embedder.DocumentPrefix = cfg.EmbeddingDocumentPrefix

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	searcher := search.NewSearcher(embedder, art.Index, art.Articles)

	var (
		webSearcher rag.WebSearcher
		crawler     rag.Crawler
	)
	if cfg.WebEnabled() {
		webSearcher = web.NewSerperClient(web.SerperConfig{
			APIKey:            cfg.SerperAPIKey,
			URL:               cfg.SerperURL,
			Location:          cfg.SearchLocation,
			Country:           cfg.SearchCountry,
			RequestsPerSecond: cfg.SearchRatePerSecond,
		})
		crawler = web.NewCrawler(cfg.CrawlTimeout, cfg.CrawlMaxChars)
		slog.Info("Web retrieval enabled", "url", cfg.SerperURL, "location", cfg.SearchLocation)
	} else {
		slog.Warn("SERPER_API_KEY not set, web retrieval disabled")
	}

	router := rag.NewRouter(searcher, webSearcher, crawler, rag.Config{
		InternalK:            cfg.InternalK,
		SufficiencyThreshold: cfg.SufficiencyThreshold,
		SufficiencyMinCount:  cfg.SufficiencyMinCount,
		WebMaxResults:        cfg.WebMaxResults,
		WebSearchTimeout:     cfg.WebSearchTimeout,
		CrawlCeiling:         cfg.CrawlCeiling,
		CrawlConcurrency:     cfg.CrawlConcurrency,
		CrawlBatchTimeout:    cfg.CrawlBatchTimeout,
		ContextBudget:        cfg.ContextBudget,
	})
	slog.Info("Hybrid router initialized", "policy", fmt.Sprintf("%+v", router.Config()))

	askService := service.NewAskService(router, llmClient, service.Config{
		GenerationRetries: cfg.GenerationRetries,
		ExcerptChars:      cfg.ContextExcerptChars,
		Temperature:       0.3,
	})

	queryService := service.NewQueryService(art.Queries, llmClient, service.QueryConfig{
		MaxRows:           cfg.QueryMaxRows,
		GenerationRetries: cfg.GenerationRetries,
	})

	// Create router with dependencies
	deps := &http.Deps{
		AskService:   askService,
		QueryService: queryService,
		Index:        art,
		WebEnabled:   cfg.WebEnabled(),
	}

	addr := ":" + cfg.APIPort
	server := &nethttp.Server{
		Addr:              addr,
		Handler:           http.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout(router.Config()),
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}()

	// Start API server
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		log.Fatalf("API server failed to start: %v", err)
	}
}

// loadArtifact opens the configured backend and validates it against the metadata store.
// The returned func releases backend resources that the artifact does not own.
func loadArtifact(ctx context.Context, cfg *config.Config) (*artifact.Artifact, func(), error) {
	switch cfg.IndexBackend {
	case config.BackendQdrant:
		store, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			return nil, nil, err
		}
		index, err := vectorstore.OpenQdrantIndex(ctx, store, cfg.QdrantCollection)
		if err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("%w: %w", rag.ErrIndexUnavailable, err)
		}
		art, err := artifact.Open(ctx, storage.BackendQdrant, index, cfg.IndexMetadataPath, cfg.EmbeddingDimension)
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		return art, func() { _ = store.Close() }, nil
	default:
		art, err := artifact.LoadFlat(ctx, cfg.IndexVectorPath, cfg.IndexMetadataPath, cfg.EmbeddingDimension)
		if err != nil {
			return nil, nil, err
		}
		return art, func() {}, nil
	}
}

// writeTimeout outlasts the slowest route: a web search that runs to its deadline,
// a crawl batch that runs to its deadline, then embedding and generation.
func writeTimeout(policy rag.Config) time.Duration {
	return policy.WebSearchTimeout + policy.CrawlBatchTimeout + answerAllowance
}
