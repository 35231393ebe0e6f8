package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"newsdesk-ai/internal/artifact"
	"newsdesk-ai/internal/config"
	"newsdesk-ai/internal/contextutil"
	"newsdesk-ai/internal/indexer"
	"newsdesk-ai/internal/llm"
	"newsdesk-ai/internal/storage"
	"newsdesk-ai/internal/vectorstore"
)

type buildOptions struct {
	input     string
	backend   string
	recreate  bool
	batchSize int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build-index",
		Short: "Build the news index artifact from a CSV dataset",
		Long: `Reads a CSV export of news articles, cleans and deduplicates the rows,
embeds each article and writes the index artifact: a vector index (flat file
or Qdrant collection) plus the SQLite metadata file aligned with it.

Paths, model and dimension come from the same environment as the API server.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if !cmd.Flags().Changed("backend") {
				opts.backend = cfg.IndexBackend
			}
			err = runBuild(cmd.Context(), cfg, opts)
			if err != nil {
				cmd.PrintErrln("Error:", err)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "CSV dataset file, or a directory of CSV files (required)")
	cmd.Flags().StringVar(&opts.backend, "backend", config.BackendFlat, "index backend: flat or qdrant (defaults to INDEX_BACKEND)")
	cmd.Flags().BoolVar(&opts.recreate, "recreate", false, "drop the Qdrant collection before writing")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", indexer.DefaultBatchSize, "texts per embedding request")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func (o *buildOptions) validate() error {
	if o.input == "" {
		return errors.New("--input is required")
	}
	if o.backend != config.BackendFlat && o.backend != config.BackendQdrant {
		return fmt.Errorf("--backend must be %q or %q, got %q", config.BackendFlat, config.BackendQdrant, o.backend)
	}
	if o.batchSize <= 0 {
		return errors.New("--batch-size must be greater than 0")
	}
	return nil
}

func runBuild(ctx context.Context, cfg *config.Config, opts *buildOptions) error {
	handlerOpts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	logger := slog.New(handler).With("backend", opts.backend)
	slog.SetDefault(logger)
	ctx = contextutil.WithLogger(ctx, logger)

	articles, err := indexer.LoadDataset(ctx, opts.input)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "dataset loaded", "path", opts.input, "rows", len(articles))

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingDimension)
	embedder.QueryPrefix = cfg.EmbeddingQueryPrefix
	embedder.DocumentPrefix = cfg.EmbeddingDocumentPrefix

	pipeline := indexer.NewPipeline(embedder, cfg.EmbeddingModelName, cfg.EmbeddingDimension).
		WithBatchSize(opts.batchSize)

	entries, stats, err := pipeline.Build(ctx, articles)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	if len(entries) == 0 {
		return errors.New("no articles could be embedded, artifact not written")
	}
	if len(stats.FailedIDs) > 0 {
		logger.WarnContext(ctx, "some articles were skipped", "failed_ids", stats.FailedIDs)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.IndexMetadataPath), 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	var manifest *storage.Manifest
	switch opts.backend {
	case config.BackendQdrant:
		store, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		manifest, err = artifact.WriteQdrant(ctx, store, cfg.QdrantCollection, opts.recreate,
			cfg.IndexMetadataPath, cfg.EmbeddingModelName, cfg.EmbeddingDimension, entries)
		if err != nil {
			return err
		}
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.IndexVectorPath), 0o755); err != nil {
			return fmt.Errorf("failed to create index directory: %w", err)
		}
		manifest, err = artifact.WriteFlat(ctx, cfg.IndexVectorPath, cfg.IndexMetadataPath,
			cfg.EmbeddingModelName, cfg.EmbeddingDimension, entries)
		if err != nil {
			return err
		}
	}

	logger.InfoContext(ctx, "index artifact written",
		"build_id", manifest.BuildID,
		"vectors", manifest.VectorCount,
		"dimension", manifest.Dimension,
		"metadata", cfg.IndexMetadataPath,
	)
	fmt.Println(stats.String())
	return nil
}
