package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/toko-storefront/internal/coupon"
	"github.com/noah-isme/toko-storefront/internal/db"
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/shipping"
)

const columns = `id, user_id, items, shipping_address, payment_method, shipping_method,
	items_price, shipping_price, tax_price, coupon_discount, total_price, coupon, status, created_at`

// PGStore keeps orders in Postgres with items, address and coupon as jsonb.
type PGStore struct {
	Pool *pgxpool.Pool
}

// InTx runs fn in a transaction; returning an error rolls everything back.
func (s *PGStore) InTx(ctx context.Context, fn func(Tx) error) error {
	return db.InTx(ctx, s.Pool, func(tx pgx.Tx) error {
		return fn(pgTx{q: tx})
	})
}

type pgTx struct {
	q db.DBTX
}

func (t pgTx) LockCoupon(ctx context.Context, code string) (*coupon.Coupon, error) {
	return coupon.FindActiveByCode(ctx, t.q, code, true)
}

func (t pgTx) IncrementCouponUsage(ctx context.Context, id uuid.UUID) error {
	return coupon.IncrementUsage(ctx, t.q, id)
}

func (t pgTx) Insert(ctx context.Context, o *Order) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO orders (id, user_id, items, shipping_address, payment_method, shipping_method,
			items_price, shipping_price, tax_price, coupon_discount, total_price, coupon, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		o.ID, o.UserID, o.Items, o.ShippingAddress, o.PaymentMethod, string(o.ShippingMethod),
		int64(o.ItemsPrice), int64(o.ShippingPrice), int64(o.TaxPrice), int64(o.CouponDiscount), int64(o.TotalPrice),
		o.Coupon, string(o.Status), o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// Get loads one order.
func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(s.Pool.QueryRow(ctx, `SELECT `+columns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}

// ListByUser pages through one user's orders.
func (s *PGStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, int64, error) {
	var total int64
	if err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+columns+` FROM orders WHERE user_id = $1
		ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Order, error) { return scanOrder(row) })
	return list, total, err
}

// List pages through all orders.
func (s *PGStore) List(ctx context.Context, limit, offset int) ([]Order, int64, error) {
	var total int64
	if err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+columns+` FROM orders ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Order, error) { return scanOrder(row) })
	return list, total, err
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o                                 Order
		method, status                    string
		items, ship, tax, discount, total int64
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Items, &o.ShippingAddress, &o.PaymentMethod, &method,
		&items, &ship, &tax, &discount, &total, &o.Coupon, &status, &o.CreatedAt)
	if err != nil {
		return Order{}, err
	}
	o.ShippingMethod = shipping.Method(method)
	o.Status = Status(status)
	o.ItemsPrice = money.Amount(items)
	o.ShippingPrice = money.Amount(ship)
	o.TaxPrice = money.Amount(tax)
	o.CouponDiscount = money.Amount(discount)
	o.TotalPrice = money.Amount(total)
	return o, nil
}
