package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/trailhaven/ecowatch/internal/adapter/http"
	kafkaadapter "github.com/trailhaven/ecowatch/internal/adapter/kafka"
	"github.com/trailhaven/ecowatch/internal/adapter/openweather"
	"github.com/trailhaven/ecowatch/internal/adapter/recordstore"
	"github.com/trailhaven/ecowatch/internal/alert"
	"github.com/trailhaven/ecowatch/internal/config"
	"github.com/trailhaven/ecowatch/internal/fanout"
	"github.com/trailhaven/ecowatch/internal/monitor"
	"github.com/trailhaven/ecowatch/internal/observability"
	"github.com/trailhaven/ecowatch/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	store := recordstore.NewClient(cfg.StoreBaseURL, cfg.StoreAPIKey, cfg.StoreTimeout, logger)
	fetcher := openweather.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout, logger, metrics)
	alerts := alert.NewManager(store, cfg.RetentionWindow, logger)
	hub := fanout.NewHub(cfg.FanoutBuffer, logger, metrics)

	// Optional Kafka event mirror (feature-flagged via KAFKA_ENABLED).
	publisher := fanout.Tee(hub)
	var mirror *kafkaadapter.Mirror
	if cfg.KafkaEnabled {
		mirror = kafkaadapter.NewMirror(cfg, logger)
		publisher = fanout.Tee(hub, mirror)
		logger.Info("kafka event mirror enabled", "topic", cfg.KafkaTopic)
	}

	svc := monitor.New(store, fetcher, alerts, publisher, logger, metrics, monitor.Options{
		FreshnessWindow:    cfg.FreshnessWindow,
		Workers:            cfg.SweepWorkers,
		DestinationTimeout: cfg.DestinationTimeout,
	})

	sched := scheduler.New(svc, cfg.SweepInterval, logger)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, store, hub, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go hub.Run(ctx, cfg.HeartbeatInterval)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if mirror != nil {
		if err := mirror.Close(); err != nil {
			logger.Error("kafka mirror close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
