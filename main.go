package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cyderes/catalog-ingestion-service/internal/blobstore"
	"github.com/cyderes/catalog-ingestion-service/internal/config"
	"github.com/cyderes/catalog-ingestion-service/internal/events"
	"github.com/cyderes/catalog-ingestion-service/internal/ingestion"
	"github.com/cyderes/catalog-ingestion-service/internal/logging"
	"github.com/cyderes/catalog-ingestion-service/internal/retry"
	"github.com/cyderes/catalog-ingestion-service/internal/server"
	"github.com/cyderes/catalog-ingestion-service/internal/storage"
	"github.com/cyderes/catalog-ingestion-service/internal/tmdb"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// The logger depends on configuration, so report with a default one.
		fallback, _ := zap.NewProduction()
		fallback.Error("failed to load configuration", zap.Error(err))
		return 1
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	// Cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize destination stores
	store, err := storage.NewStorage(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("failed to initialize storage", zap.String("type", cfg.Storage.Type), zap.Error(err))
		return 1
	}
	defer store.Close()

	blobs, err := blobstore.NewBlobStore(ctx, cfg.Blob)
	if err != nil {
		logger.Error("failed to initialize blob store", zap.String("type", cfg.Blob.Type), zap.Error(err))
		return 1
	}
	defer blobs.Close()

	publisher, err := events.New(cfg.Events.NATSURL, logger.Named("events"))
	if err != nil {
		logger.Error("failed to connect event publisher", zap.Error(err))
		return 1
	}
	defer publisher.Close()

	provider := tmdb.NewClient(tmdb.Config{
		APIKey:       cfg.Provider.APIKey,
		BaseURL:      cfg.Provider.BaseURL,
		ImageBaseURL: cfg.Provider.ImageBaseURL,
		Timeout:      cfg.Provider.Timeout,
	})

	// Wire the pipeline
	invoker := retry.New(cfg.Ingestion.RetryBackoff, logger.Named("retry"))
	walker := ingestion.NewWalker(provider, ingestion.NewUploader(provider, blobs, invoker), store, invoker, logger.Named("walker"))
	walker.Shape = ingestion.ShapeFromConfig(cfg.Ingestion)
	walker.Publisher = publisher
	walker.Concurrency = cfg.Ingestion.Concurrency
	walker.MovieImageSize = cfg.Provider.MovieImageSize
	walker.ShowImageSize = cfg.Provider.ShowImageSize
	if cfg.Ingestion.SyntheticFields {
		walker.Enricher = ingestion.NewRandomEnricher(walker.Shape.Trending == ingestion.TrendingRandom)
	}

	ingestor := ingestion.NewService(cfg.Ingestion, walker, blobs, invoker, publisher, logger.Named("ingestion"))
	invoker.OnRecovered = ingestor.OnWriteRecovered

	// Start HTTP server for run progress
	if cfg.Server.Port > 0 {
		httpServer := server.NewServer(cfg.Server, ingestor, logger.Named("http"))
		go func() {
			if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", zap.Error(err))
			}
		}()
	}

	if err := ingestor.Run(ctx); err != nil {
		var failed *tmdb.FailedRequestError
		if errors.As(err, &failed) {
			logger.Error("provider request failed",
				zap.Int("http_code", failed.HTTPCode),
				zap.Int("tmdb_code", failed.TMDBCode),
				zap.String("message", failed.Message),
			)
		}
		return 1
	}

	return 0
}
