package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	httpadapter "github.com/couchcryptid/facility-lead-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/facility-lead-etl/internal/adapter/kafka"
	"github.com/couchcryptid/facility-lead-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/facility-lead-etl/internal/adapter/postgres"
	"github.com/couchcryptid/facility-lead-etl/internal/config"
	"github.com/couchcryptid/facility-lead-etl/internal/domain"
	"github.com/couchcryptid/facility-lead-etl/internal/observability"
	"github.com/couchcryptid/facility-lead-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		cached, err := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		if err != nil {
			logger.Error("failed to create geocoder", "error", err)
			os.Exit(1)
		}
		geocoder = cached
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		loaders []pipeline.EntityLoader
		writer  *kafkaadapter.Writer
		store   *postgres.Store
	)
	if cfg.SinkEnabled(config.SinkKafka) {
		writer = kafkaadapter.NewWriter(cfg, logger)
		loaders = append(loaders, writer)
	}
	if cfg.SinkEnabled(config.SinkPostgres) {
		store, err = postgres.Open(ctx, cfg, logger)
		if err != nil {
			logger.Error("failed to open postgres sink", "error", err)
			os.Exit(1)
		}
		loaders = append(loaders, store)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	preparer := pipeline.NewPreparer(geocoder, cfg.Counties, logger)

	b := pipeline.New(reader, preparer, loaders, cfg.Resolver, cfg.BuildInterval, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, b, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start build loop.
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if err := b.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-runDone:
	case <-shutdownCtx.Done():
		logger.Warn("build loop did not stop before shutdown timeout")
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("postgres close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
