package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/toko-storefront/internal/money"
)

// PGStore reads products and categories from Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

const productColumns = `id, name, slug, price_minor, COALESCE(category_id, '00000000-0000-0000-0000-000000000000'::uuid)`

// Products returns the active products among ids.
func (s *PGStore) Products(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error) {
	out := make(map[uuid.UUID]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE is_active AND id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// ListProducts pages through active products by name.
func (s *PGStore) ListProducts(ctx context.Context, limit, offset int) ([]Product, int64, error) {
	var total int64
	if err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM products WHERE is_active`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE is_active ORDER BY name, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, 0, fmt.Errorf("scan products: %w", err)
	}
	return products, total, nil
}

// ListCategories returns every category by name.
func (s *PGStore) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, name, slug FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Category, error) {
		var c Category
		err := row.Scan(&c.ID, &c.Name, &c.Slug)
		return c, err
	})
}

func scanProduct(row pgx.CollectableRow) (Product, error) {
	var (
		p     Product
		price int64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Slug, &price, &p.CategoryID); err != nil {
		return Product{}, err
	}
	p.Price = money.Amount(price)
	return p, nil
}
