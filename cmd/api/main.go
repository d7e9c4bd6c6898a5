package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cryptotrade/cryptotrade/internal/config"
	"github.com/cryptotrade/cryptotrade/internal/infra"
	"github.com/cryptotrade/cryptotrade/internal/logging"
	"github.com/cryptotrade/cryptotrade/internal/routes"
	"github.com/cryptotrade/cryptotrade/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	log := logging.New(cfg.AppName, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()
	} else {
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer cache.Close()
	} else {
		log.Warn("REDIS_URL not set, idempotency and price feed disabled")
	}

	srv := server.New(cfg)
	if err := routes.Setup(srv.App(), routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: log}); err != nil {
		log.Error("failed to wire routes", slog.Any("error", err))
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting http server",
			slog.String("app", cfg.AppName),
			slog.String("env", cfg.AppEnv),
			slog.String("addr", cfg.Address()),
		)
		errCh <- srv.Listen()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("http server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	if err := srv.Shutdown(cfg.ShutdownPeriod); err != nil {
		log.Error("graceful shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped")
}
