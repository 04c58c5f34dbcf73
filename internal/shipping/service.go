package shipping

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/cache"
	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/obs"
)

const cacheKey = "config"

// Store persists the single config record.
type Store interface {
	// GetOrCreate returns the live record, inserting defaults when none exists.
	GetOrCreate(ctx context.Context, defaults Config) (Config, error)
	// Update locks the record (creating it from defaults if absent), applies fn and saves the result.
	Update(ctx context.Context, defaults Config, fn func(Config) Config) (Config, error)
}

// Service is the source of truth for shipping and tax parameters. Reads go
// through the cache and fill it only when the key is absent; every update
// rewrites the cached value, so a slow read cannot replace a newer record.
type Service struct {
	Store Store
	Cache *cache.JSON
}

// Get returns the current config, creating the default record on first read.
func (s *Service) Get(ctx context.Context) (Config, error) {
	if s == nil || s.Store == nil {
		return Config{}, errors.New("shipping service not configured")
	}
	var cfg Config
	hit, err := s.Cache.Get(ctx, cacheKey, &cfg)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("shipping config cache read")
	}
	obs.ObserveShippingConfigCache(hit)
	if hit {
		return cfg, nil
	}
	cfg, err = s.Store.GetOrCreate(ctx, Defaults())
	if err != nil {
		return Config{}, fmt.Errorf("load shipping config: %w", err)
	}
	if _, err := s.Cache.SetNX(ctx, cacheKey, cfg); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("shipping config cache write")
	}
	return cfg, nil
}

// Update overwrites the supplied fields and returns the full record.
func (s *Service) Update(ctx context.Context, patch Patch) (Config, error) {
	if s == nil || s.Store == nil {
		return Config{}, errors.New("shipping service not configured")
	}
	if err := patch.Validate(); err != nil {
		return Config{}, common.NewAppError("VALIDATION", err.Error(), http.StatusBadRequest, err)
	}
	cfg, err := s.Store.Update(ctx, Defaults(), patch.Apply)
	if err != nil {
		return Config{}, fmt.Errorf("update shipping config: %w", err)
	}
	if err := s.Cache.Set(ctx, cacheKey, cfg); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("shipping config cache refresh")
		if delErr := s.Cache.Delete(ctx, cacheKey); delErr != nil {
			zerolog.Ctx(ctx).Error().Err(delErr).Msg("shipping config cache invalidate")
		}
	}
	obs.ObserveShippingConfigUpdate()
	zerolog.Ctx(ctx).Info().
		Str("standard", cfg.StandardShippingCost.String()).
		Str("threshold", cfg.FreeShippingThreshold.String()).
		Str("tax_rate", cfg.TaxRate.String()).
		Msg("shipping config updated")
	return cfg, nil
}
