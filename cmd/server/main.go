package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/relinkhq/relink/internal/config"
	"github.com/relinkhq/relink/internal/events"
	"github.com/relinkhq/relink/internal/infra"
	"github.com/relinkhq/relink/internal/observability"
	"github.com/relinkhq/relink/internal/server"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs, err := observability.Setup(ctx, observability.Config{
		ServiceName:  cfg.Telemetry.ServiceName,
		Environment:  cfg.App.Environment,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		log.Fatalf("Failed to setup observability: %v", err)
	}
	logger := obs.Logger

	db, err := infra.NewPostgresPool(ctx, cfg.Database.ConnectionString())
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		return
	}
	defer db.Close()

	cache, err := infra.NewCacheClient(ctx, cfg.Cache.ConnectionString())
	if err != nil {
		logger.Error("failed to connect to cache", slog.String("error", err.Error()))
		return
	}
	defer cache.Close()

	var publisher events.ClickPublisher
	if cfg.Broker.URL != "" {
		conn, err := infra.NewBrokerConnection(cfg.Broker.URL)
		if err != nil {
			logger.Error("failed to connect to broker", slog.String("error", err.Error()))
			return
		}
		defer conn.Close()

		amqpPublisher, err := events.NewAMQPPublisher(conn, cfg.Broker.Exchange)
		if err != nil {
			logger.Error("failed to create click publisher", slog.String("error", err.Error()))
			return
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	srv := server.NewServer(cfg, server.Deps{
		DB:        db,
		Cache:     cache,
		Publisher: publisher,
		Logger:    logger,
		Metrics:   obs.Metrics,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting",
			slog.String("port", cfg.Server.Port),
			slog.String("base_url", cfg.App.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		obs.Shutdown(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("server exited gracefully")
}
