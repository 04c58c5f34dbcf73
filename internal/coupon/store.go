package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/toko-storefront/internal/db"
	"github.com/noah-isme/toko-storefront/internal/money"
)

// Legacy rows may carry a NULL is_active; those read as active.
const columns = `id, code, description, discount_type, discount_value, minimum_order_amount,
	maximum_discount_amount, usage_limit, used_count, COALESCE(is_active, true),
	valid_from, valid_until, applicable_to, applicable_ids, created_at, updated_at`

// PGStore persists coupons in the discount_coupons table.
type PGStore struct {
	Pool *pgxpool.Pool
}

// FindActiveByCode looks up an active coupon by normalized code. It returns
// (nil, nil) when none matches. forUpdate locks the row for the surrounding transaction.
func FindActiveByCode(ctx context.Context, q db.DBTX, code string, forUpdate bool) (*Coupon, error) {
	sql := `SELECT ` + columns + ` FROM discount_coupons WHERE upper(code) = $1 AND COALESCE(is_active, true)`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	c, err := scanCoupon(q.QueryRow(ctx, sql, NormalizeCode(code)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find coupon: %w", err)
	}
	return c, nil
}

// IncrementUsage records one use. It fails with ErrUsageExhausted when the
// limit was reached in the meantime.
func IncrementUsage(ctx context.Context, q db.DBTX, id uuid.UUID) error {
	tag, err := q.Exec(ctx, `
		UPDATE discount_coupons SET used_count = used_count + 1, updated_at = now()
		WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`, id)
	if err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUsageExhausted
	}
	return nil
}

// FindActiveByCode implements Store outside of a transaction.
func (s *PGStore) FindActiveByCode(ctx context.Context, code string) (*Coupon, error) {
	return FindActiveByCode(ctx, s.Pool, code, false)
}

// ListPublic returns active coupons still valid at now, optionally only those
// reachable at orderAmount.
func (s *PGStore) ListPublic(ctx context.Context, now time.Time, orderAmount *money.Amount) ([]Coupon, error) {
	var amount *int64
	if orderAmount != nil {
		v := int64(*orderAmount)
		amount = &v
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+columns+` FROM discount_coupons
		WHERE COALESCE(is_active, true) AND valid_until > $1
			AND ($2::bigint IS NULL OR minimum_order_amount <= $2)
		ORDER BY valid_until, code`, now, amount)
	if err != nil {
		return nil, fmt.Errorf("list public coupons: %w", err)
	}
	return collect(rows)
}

// List pages through all coupons, newest first.
func (s *PGStore) List(ctx context.Context, limit, offset int) ([]Coupon, int64, error) {
	var total int64
	if err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM discount_coupons`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count coupons: %w", err)
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+columns+` FROM discount_coupons ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list coupons: %w", err)
	}
	list, err := collect(rows)
	return list, total, err
}

// Get loads a coupon by id.
func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (*Coupon, error) {
	c, err := scanCoupon(s.Pool.QueryRow(ctx, `SELECT `+columns+` FROM discount_coupons WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// Create inserts c and returns the stored row.
func (s *PGStore) Create(ctx context.Context, c *Coupon) (*Coupon, error) {
	out, err := scanCoupon(s.Pool.QueryRow(ctx, `
		INSERT INTO discount_coupons (id, code, description, discount_type, discount_value, minimum_order_amount,
			maximum_discount_amount, usage_limit, is_active, valid_from, valid_until, applicable_to, applicable_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+columns, writeArgs(c)...))
	return out, mapWriteErr(err)
}

// Update replaces the editable fields of the coupon with c.ID. UsedCount is preserved.
func (s *PGStore) Update(ctx context.Context, c *Coupon) (*Coupon, error) {
	out, err := scanCoupon(s.Pool.QueryRow(ctx, `
		UPDATE discount_coupons SET code = $2, description = $3, discount_type = $4, discount_value = $5,
			minimum_order_amount = $6, maximum_discount_amount = $7, usage_limit = $8, is_active = $9,
			valid_from = $10, valid_until = $11, applicable_to = $12, applicable_ids = $13, updated_at = now()
		WHERE id = $1
		RETURNING `+columns, writeArgs(c)...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return out, mapWriteErr(err)
}

// Delete removes a coupon. Orders keep their snapshot.
func (s *PGStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM discount_coupons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func writeArgs(c *Coupon) []any {
	var maxDiscount *int64
	if c.MaximumDiscountAmount != nil {
		v := int64(*c.MaximumDiscountAmount)
		maxDiscount = &v
	}
	scope := c.Scope
	if scope == nil {
		scope = AllItems{}
	}
	ids := scope.IDs()
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return []any{
		c.ID, NormalizeCode(c.Code), c.Description, string(c.DiscountType), c.DiscountValue,
		int64(c.MinimumOrderAmount), maxDiscount, c.UsageLimit, c.IsActive,
		c.ValidFrom, c.ValidUntil, string(scope.Kind()), ids,
	}
}

func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateCode
	}
	return fmt.Errorf("write coupon: %w", err)
}

func collect(rows pgx.Rows) ([]Coupon, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Coupon, error) {
		c, err := scanCoupon(row)
		if err != nil {
			return Coupon{}, err
		}
		return *c, nil
	})
}

func scanCoupon(row pgx.Row) (*Coupon, error) {
	var (
		c            Coupon
		discountType string
		minimum      int64
		maxDiscount  *int64
		usageLimit   *int32
		usedCount    int32
		scopeKind    string
		ids          []uuid.UUID
	)
	err := row.Scan(&c.ID, &c.Code, &c.Description, &discountType, &c.DiscountValue, &minimum,
		&maxDiscount, &usageLimit, &usedCount, &c.IsActive,
		&c.ValidFrom, &c.ValidUntil, &scopeKind, &ids, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.DiscountType = DiscountType(discountType)
	c.MinimumOrderAmount = money.Amount(minimum)
	if maxDiscount != nil {
		m := money.Amount(*maxDiscount)
		c.MaximumDiscountAmount = &m
	}
	if usageLimit != nil {
		l := int(*usageLimit)
		c.UsageLimit = &l
	}
	c.UsedCount = int(usedCount)
	c.Scope, err = NewScope(ScopeKind(scopeKind), ids)
	if err != nil {
		// A narrowed scope with no ids can never match a cart.
		c.Scope = Categories{Set: map[uuid.UUID]struct{}{}}
		if ScopeKind(scopeKind) == ScopeSpecificProducts {
			c.Scope = Products{Set: map[uuid.UUID]struct{}{}}
		}
	}
	return &c, nil
}
