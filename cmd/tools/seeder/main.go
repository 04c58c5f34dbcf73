package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-storefront/internal/auth"
	"github.com/noah-isme/toko-storefront/internal/cache"
	"github.com/noah-isme/toko-storefront/internal/catalog"
	"github.com/noah-isme/toko-storefront/internal/config"
	"github.com/noah-isme/toko-storefront/internal/coupon"
	"github.com/noah-isme/toko-storefront/internal/db"
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/obs"
	"github.com/noah-isme/toko-storefront/internal/shipping"
)

func main() {
	adminSubject := flag.String("admin", "admin@toko.com", "subject of the printed admin token")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed admin token")
	flag.Parse()

	logger := obs.NewLogger("console", "info")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, "toko-storefront-seeder", nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	categories, productIDs, err := seedCatalog(ctx, pool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed catalog")
	}
	if err := invalidateCatalog(ctx, cfg, productIDs); err != nil {
		logger.Error().Err(err).Dur("ttl", cfg.CatalogCacheTTL).Msg("catalog cache not invalidated; old prices served until expiry")
	}
	if err := seedCoupons(ctx, pool, logger, categories); err != nil {
		logger.Fatal().Err(err).Msg("seed coupons")
	}
	if _, err := (&shipping.PGStore{Pool: pool}).GetOrCreate(ctx, shipping.Defaults()); err != nil {
		logger.Fatal().Err(err).Msg("seed shipping config")
	}

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	if err != nil {
		logger.Fatal().Err(err).Msg("init tokens")
	}
	token, err := tokens.Issue(*adminSubject, []string{auth.RoleAdmin}, *tokenTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("issue admin token")
	}
	logger.Info().Msg("seeding completed")
	fmt.Println(token)
}

type seedProduct struct {
	Name     string
	Slug     string
	Category string
	Rupees   int64
}

// seedCatalog upserts categories and products by slug. It returns category ids
// by slug and the ids of every product written.
func seedCatalog(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) (map[string]uuid.UUID, []uuid.UUID, error) {
	categories := []struct{ Name, Slug string }{
		{"Kitchen", "kitchen"},
		{"Electronics", "electronics"},
		{"Books", "books"},
		{"Fashion", "fashion"},
	}
	ids := make(map[string]uuid.UUID, len(categories))
	for _, c := range categories {
		var id uuid.UUID
		err := pool.QueryRow(ctx, `
			INSERT INTO categories (id, name, slug) VALUES ($1, $2, $3)
			ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`, uuid.New(), c.Name, c.Slug).Scan(&id)
		if err != nil {
			return nil, nil, fmt.Errorf("category %s: %w", c.Slug, err)
		}
		ids[c.Slug] = id
	}
	logger.Info().Int("count", len(ids)).Msg("categories seeded")

	products := []seedProduct{
		{"Electric Kettle", "electric-kettle", "kitchen", 150},
		{"Ceramic Mug", "ceramic-mug", "kitchen", 30},
		{"Wireless Earbuds", "wireless-earbuds", "electronics", 1499},
		{"USB-C Charger", "usb-c-charger", "electronics", 799},
		{"Go in Practice", "go-in-practice", "books", 450},
		{"Cotton T-Shirt", "cotton-t-shirt", "fashion", 299},
	}
	productIDs := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		var id uuid.UUID
		err := pool.QueryRow(ctx, `
			INSERT INTO products (id, name, slug, price_minor, category_id) VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name, price_minor = EXCLUDED.price_minor,
				category_id = EXCLUDED.category_id
			RETURNING id`,
			uuid.New(), p.Name, p.Slug, int64(money.FromRupees(p.Rupees)), ids[p.Category]).Scan(&id)
		if err != nil {
			return nil, nil, fmt.Errorf("product %s: %w", p.Slug, err)
		}
		productIDs = append(productIDs, id)
	}
	logger.Info().Int("count", len(products)).Msg("products seeded")
	return ids, productIDs, nil
}

// invalidateCatalog drops the API's cached entries for the upserted products.
func invalidateCatalog(ctx context.Context, cfg *config.Config, productIDs []uuid.UUID) error {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	defer func() { _ = rdb.Close() }()
	svc := &catalog.Service{Cache: cache.NewJSON(rdb, "catalog:", cfg.CatalogCacheTTL)}
	return svc.Invalidate(ctx, productIDs...)
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, categories map[string]uuid.UUID) error {
	now := time.Now().UTC()
	until := now.AddDate(1, 0, 0)
	maxSave := money.FromRupees(100)
	limit := 100
	kitchen, err := coupon.NewScope(coupon.ScopeSpecificCategories, []uuid.UUID{categories["kitchen"]})
	if err != nil {
		return err
	}

	seeds := []*coupon.Coupon{
		{
			Code: "SAVE20", Description: "20% off, up to ₹100",
			DiscountType: coupon.Percentage, DiscountValue: decimal.NewFromInt(20),
			MaximumDiscountAmount: &maxSave, UsageLimit: &limit,
			Scope: coupon.AllItems{},
		},
		{
			Code: "FLAT50", Description: "₹50 off orders above ₹300",
			DiscountType: coupon.FixedAmount, DiscountValue: decimal.NewFromInt(50),
			MinimumOrderAmount: money.FromRupees(300),
			Scope:              coupon.AllItems{},
		},
		{
			Code: "KITCHEN10", Description: "10% off kitchen essentials",
			DiscountType: coupon.Percentage, DiscountValue: decimal.NewFromInt(10),
			Scope: kitchen,
		},
	}

	store := &coupon.PGStore{Pool: pool}
	for _, c := range seeds {
		c.ID = uuid.New()
		c.IsActive = true
		c.ValidFrom = now
		c.ValidUntil = until
		if _, err := store.Create(ctx, c); err != nil {
			if errors.Is(err, coupon.ErrDuplicateCode) {
				logger.Info().Str("code", c.Code).Msg("coupon exists; skipped")
				continue
			}
			return fmt.Errorf("coupon %s: %w", c.Code, err)
		}
		logger.Info().Str("code", c.Code).Msg("coupon seeded")
	}
	return nil
}
