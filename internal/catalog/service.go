package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/cache"
)

const categoriesKey = "categories"

// Service fronts the store with a per-product read-through cache.
type Service struct {
	Store Store
	Cache *cache.JSON
}

func productKey(id uuid.UUID) string { return "product:" + id.String() }

// Products resolves ids, serving cached products first and loading the rest from the store.
func (s *Service) Products(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("catalog service not configured")
	}
	log := zerolog.Ctx(ctx)
	out := make(map[uuid.UUID]Product, len(ids))
	missing := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		var p Product
		hit, err := s.Cache.Get(ctx, productKey(id), &p)
		if err != nil {
			log.Warn().Err(err).Str("product_id", id.String()).Msg("catalog cache read")
		}
		if hit {
			out[id] = p
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}
	loaded, err := s.Store.Products(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, p := range loaded {
		out[id] = p
		if err := s.Cache.Set(ctx, productKey(id), p); err != nil {
			log.Warn().Err(err).Str("product_id", id.String()).Msg("catalog cache write")
		}
	}
	return out, nil
}

// ListProducts pages through the catalog without caching.
func (s *Service) ListProducts(ctx context.Context, limit, offset int) ([]Product, int64, error) {
	return s.Store.ListProducts(ctx, limit, offset)
}

// ListCategories returns all categories, cached as one entry.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	var cats []Category
	if hit, err := s.Cache.Get(ctx, categoriesKey, &cats); err == nil && hit {
		return cats, nil
	}
	cats, err := s.Store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.Set(ctx, categoriesKey, cats); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("catalog cache write")
	}
	return cats, nil
}

// Invalidate drops the cached entries for ids and the category list. Callers
// that change products outside the API must call it after committing.
func (s *Service) Invalidate(ctx context.Context, ids ...uuid.UUID) error {
	keys := make([]string, 0, len(ids)+1)
	keys = append(keys, categoriesKey)
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}
	return s.Cache.Delete(ctx, keys...)
}
