package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/toko-storefront/internal/app"
	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/config"
	"github.com/noah-isme/toko-storefront/internal/obs"
	"github.com/noah-isme/toko-storefront/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	// The API process owns schema changes.
	cfg.MigrateOnStart = false

	logger := obs.NewLogger(envOrDefault("OBS_LOG_FORMAT", "json"), envOrDefault("OBS_LOG_LEVEL", "info")).
		With().Str("component", "worker").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	deps, err := app.Open(ctx, cfg, logger, app.Options{
		AppName:        "toko-storefront-worker",
		MetricsEnabled: true,
		Namespace:      envOrDefault("OBS_METRICS_NAMESPACE", "toko"),
	})
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("open dependencies")
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error().Err(err).Msg("close dependencies")
		}
	}()

	srv := asynq.NewServer(deps.RedisOpt, asynq.Config{
		Concurrency:     cfg.QueueConcurrency,
		Queues:          map[string]int{"default": 1},
		ShutdownTimeout: cfg.ShutdownTimeout,
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Error().Err(err).Str("task", task.Type()).Msg("task failed")
		}),
	})

	mux := queue.NewServeMux(&queue.OrderPlacedHandler{
		Email:  common.LogEmailSender{Logger: logger.With().Str("channel", "email").Logger()},
		Logger: logger,
	})

	logger.Info().Int("concurrency", cfg.QueueConcurrency).Msg("worker starting")
	// Run blocks until SIGINT or SIGTERM, then drains in-flight tasks.
	if err := srv.Run(mux); err != nil {
		logger.Error().Err(err).Msg("worker stopped with error")
		return
	}
	logger.Info().Msg("worker shutdown complete")
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
