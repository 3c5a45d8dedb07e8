package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/temperature-map/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/temperature-map/internal/adapter/kafka"
	"github.com/couchcryptid/temperature-map/internal/adapter/source"
	"github.com/couchcryptid/temperature-map/internal/config"
	"github.com/couchcryptid/temperature-map/internal/observability"
	"github.com/couchcryptid/temperature-map/internal/pipeline"
	"github.com/couchcryptid/temperature-map/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	fetcher := source.NewFetcher(source.Options{
		Timeout:        cfg.FetchTimeout,
		MaxRetries:     cfg.FetchMaxRetries,
		InitialBackoff: source.DefaultOptions().InitialBackoff,
		MaxBackoff:     source.DefaultOptions().MaxBackoff,
	}, logger)

	// Publishing is feature-flagged via KAFKA_ENABLED.
	var (
		publisher pipeline.Publisher
		kafkaPub  *kafkaadapter.Publisher
	)
	if cfg.KafkaEnabled {
		kafkaPub = kafkaadapter.NewPublisher(cfg, logger, metrics)
		publisher = kafkaPub
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka publishing disabled")
	}

	loader := pipeline.New(fetcher, pipeline.Sources{
		Table:          cfg.TableSource,
		TableDelimiter: cfg.TableDelimiter,
		Geometry:       cfg.GeometrySource,
		GeometryFormat: source.Format(cfg.GeometryFormat),
		GeometryObject: cfg.GeometryObject,
		Series:         cfg.SeriesSource,
	}, cfg.FetchTimeout, publisher, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, loader, logger)
	sched := scheduler.New(loader, cfg.ReloadInterval, cfg.FetchTimeout, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server. /readyz reports 503 until the initial load succeeds.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Initial load. A failure is logged and left to the scheduler or POST /api/v1/reload.
	go func() {
		if _, err := loader.Load(ctx); err != nil {
			logger.Error("initial load failed", "error", err)
		}
	}()

	if err := sched.Start(); err != nil {
		logger.Error("scheduler start failed", "error", err)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	sched.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
