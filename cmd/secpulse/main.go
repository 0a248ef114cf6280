// Package main wires together the secpulse service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/secpulse/secpulse/internal/ai"
	"github.com/secpulse/secpulse/internal/alpha"
	"github.com/secpulse/secpulse/internal/api"
	"github.com/secpulse/secpulse/internal/archive"
	archivegcs "github.com/secpulse/secpulse/internal/archive/gcs"
	archivelocal "github.com/secpulse/secpulse/internal/archive/local"
	"github.com/secpulse/secpulse/internal/config"
	"github.com/secpulse/secpulse/internal/feed"
	"github.com/secpulse/secpulse/internal/fetcher"
	"github.com/secpulse/secpulse/internal/filing"
	"github.com/secpulse/secpulse/internal/logging"
	"github.com/secpulse/secpulse/internal/metrics"
	"github.com/secpulse/secpulse/internal/parsers"
	"github.com/secpulse/secpulse/internal/poller"
	memorypublisher "github.com/secpulse/secpulse/internal/publisher/memory"
	gcppublisher "github.com/secpulse/secpulse/internal/publisher/pubsub"
	memorystore "github.com/secpulse/secpulse/internal/storage/memory"
	pgstore "github.com/secpulse/secpulse/internal/storage/postgres"
	"github.com/secpulse/secpulse/internal/stream"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	store, recordStore, closeStore, err := setupStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer closeStore()

	publisher, err := setupPublisher(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}
	blobs, err := setupArchive(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("archive init failed", zap.Error(err))
	}

	tickers := feed.NewTickerTable()
	if err := tickers.Load(ctx, &http.Client{Timeout: cfg.FeedTimeout()},
		cfg.Feed.TickerMapURL, cfg.Feed.UserAgent, logger.Named("tickers")); err != nil {
		logger.Warn("ticker map load failed, symbols will be empty", zap.Error(err))
	}
	feedClient := feed.NewClient(feed.Config{
		URL:       cfg.Feed.URL,
		UserAgent: cfg.Feed.UserAgent,
		Timeout:   cfg.FeedTimeout(),
	}, nil, tickers, logger.Named("feed"))

	docFetcher := fetcher.New(fetcher.Config{
		UserAgent:     cfg.Feed.UserAgent,
		Timeout:       cfg.DownloadTimeout(),
		MaxConcurrent: cfg.Downloads.MaxConcurrent,
		Spacing:       cfg.DownloadSpacing(),
	}, logger.Named("fetcher"))

	classifier := ai.NewClassifier(
		ai.NewClient(ai.ClientConfig{
			BaseURL: cfg.AI.BaseURL,
			Model:   cfg.AI.Model,
			Timeout: cfg.AITimeout(),
		}, nil),
		cfg.AI.ChunkWords,
		logger.Named("ai"),
	)

	hub := stream.NewHub(cfg.Broadcast.SubscriberBuffer, logger.Named("stream"))

	pipeline, err := poller.New(poller.Config{
		PollInterval:  cfg.PollInterval(),
		Workers:       cfg.Pipeline.Workers,
		TextMaxChars:  cfg.Pipeline.TextMaxChars,
		ArchivePrefix: cfg.Archive.Prefix,
		Topic:         cfg.PubSub.TopicName,
	}, poller.Options{
		Feed:       feedClient,
		Fetcher:    docFetcher,
		Parser:     parsers.NewRegistry(),
		Heuristic:  alpha.PreClassify,
		Classifier: classifier,
		Store:      store,
		Hub:        hub,
		Publisher:  publisher,
		Blobs:      blobs,
		Logger:     logger.Named("poller"),
	})
	if err != nil {
		logger.Fatal("poller init failed", zap.Error(err))
	}

	apiServer := api.NewServer(recordStore, hub, nil, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := pipeline.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("poller stopped", zap.Error(err))
			stop()
		}
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// setupStore builds the configured persistence. The memory provider is the
// default for development.
func setupStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (filing.Store, api.RecordStore, func(), error) {
	switch cfg.DB.Provider {
	case "postgres":
		store, err := pgstore.NewStore(ctx, pgstore.StoreConfig{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, nil, err
		}
		logger.Info("postgres store initialized")
		return store, store, store.Close, nil
	case "memory", "":
		store := memorystore.NewStore()
		logger.Info("in-memory store initialized")
		return store, store, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown db provider %q", cfg.DB.Provider)
	}
}

// setupPublisher returns the external publisher, or nil when publishing is
// disabled.
func setupPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (filing.Publisher, error) {
	switch cfg.PubSub.Provider {
	case "pubsub":
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("pubsub client init failed: %w", err)
		}
		logger.Info("pubsub publisher initialized",
			zap.String("project", cfg.PubSub.ProjectID),
			zap.String("topic", cfg.PubSub.TopicName),
		)
		return gcppublisher.New(client.Publisher(cfg.PubSub.TopicName)), nil
	case "memory":
		return memorypublisher.New(), nil
	case "noop", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown pubsub provider %q", cfg.PubSub.Provider)
	}
}

// setupArchive returns the document archive blob store.
func setupArchive(ctx context.Context, cfg config.Config, logger *zap.Logger) (filing.BlobStore, error) {
	switch cfg.Archive.Provider {
	case "gcs":
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		logger.Info("gcs archive initialized", zap.String("bucket", cfg.Archive.GCSBucket))
		return archivegcs.New(client, archivegcs.Config{Bucket: cfg.Archive.GCSBucket})
	case "local":
		logger.Info("local archive initialized", zap.String("dir", cfg.Archive.LocalDir))
		return archivelocal.New(archivelocal.Config{BaseDir: cfg.Archive.LocalDir})
	case "noop", "":
		return archive.Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown archive provider %q", cfg.Archive.Provider)
	}
}
