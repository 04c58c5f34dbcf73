// Package app opens the infrastructure shared by the API and worker processes.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/auth"
	"github.com/noah-isme/toko-storefront/internal/config"
	"github.com/noah-isme/toko-storefront/internal/db"
	"github.com/noah-isme/toko-storefront/internal/health"
	"github.com/noah-isme/toko-storefront/internal/obs"
	"github.com/noah-isme/toko-storefront/internal/queue"
)

// Dependencies enumerates core services shared across modules.
type Dependencies struct {
	Config   *config.Config
	Logger   zerolog.Logger
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Tokens   *auth.Tokens
	Registry prometheus.Registerer
	// RedisOpt addresses the asynq broker, which shares the cache Redis.
	RedisOpt asynq.RedisConnOpt

	closers []func() error
}

// Options tune Open per process.
type Options struct {
	AppName        string
	MetricsEnabled bool
	Namespace      string
}

// Open connects Postgres and Redis, applies migrations when configured and
// registers the domain metrics.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	deps := &Dependencies{Config: cfg, Logger: logger, Registry: prometheus.DefaultRegisterer}

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		logger.Info().Msg("migrations applied")
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, opts.AppName, obs.PGXTracer{})
	if err != nil {
		return nil, err
	}
	deps.DB = pool
	deps.closers = append(deps.closers, func() error { pool.Close(); return nil })

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	deps.closers = append(deps.closers, rdb.Close)
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if opts.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(rdb); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		deps.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	deps.Redis = rdb

	brokerOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("parse queue redis url: %w", err)
	}
	deps.RedisOpt = brokerOpt

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Tokens = tokens

	if opts.MetricsEnabled {
		obs.MustRegisterDomainMetrics(opts.Namespace, deps.Registry)
		queue.MustRegisterMetrics(deps.Registry)
	}
	return deps, nil
}

// NewPublisher returns an order:placed publisher on the default queue. The
// returned client is closed with the dependencies.
func (d *Dependencies) NewPublisher() *queue.Publisher {
	client := asynq.NewClient(d.RedisOpt)
	d.closers = append(d.closers, client.Close)
	return &queue.Publisher{Client: client, Queue: "default"}
}

// Health builds the readiness probes for Postgres and Redis.
func (d *Dependencies) Health() health.Handler {
	return health.Handler{
		Probes: map[string]health.Probe{
			"postgres": func(ctx context.Context) error { return d.DB.Ping(ctx) },
			"redis":    func(ctx context.Context) error { return d.Redis.Ping(ctx).Err() },
		},
	}
}

// Close releases resources in reverse order of acquisition.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
