package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-storefront/internal/money"
)

// ErrProductNotFound is returned when a referenced product does not exist or is inactive.
var ErrProductNotFound = errors.New("product not found")

// Product is the pricing-relevant view of a catalog product.
type Product struct {
	ID         uuid.UUID    `json:"id"`
	Name       string       `json:"name"`
	Slug       string       `json:"slug"`
	Price      money.Amount `json:"price"`
	CategoryID uuid.UUID    `json:"categoryId"`
}

// Category groups products for coupon scoping.
type Category struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// Lookup resolves products by id. Missing ids are absent from the result map.
type Lookup interface {
	Products(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error)
}

// Store is the persistence contract for the catalog.
type Store interface {
	Lookup
	ListProducts(ctx context.Context, limit, offset int) ([]Product, int64, error)
	ListCategories(ctx context.Context) ([]Category, error)
}
