package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-storefront/internal/catalog"
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/obs"
)

// Store is the persistence contract for coupons.
type Store interface {
	FindActiveByCode(ctx context.Context, code string) (*Coupon, error)
	ListPublic(ctx context.Context, now time.Time, orderAmount *money.Amount) ([]Coupon, error)
	List(ctx context.Context, limit, offset int) ([]Coupon, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*Coupon, error)
	Create(ctx context.Context, c *Coupon) (*Coupon, error)
	Update(ctx context.Context, c *Coupon) (*Coupon, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service validates coupons against carts and manages them for admins.
type Service struct {
	Store   Store
	Catalog catalog.Lookup
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Validate evaluates code for a cart without changing usage. The returned
// coupon is nil unless the lookup matched.
func (s *Service) Validate(ctx context.Context, code string, orderAmount money.Amount, items []Item) (Result, *Coupon, error) {
	if s == nil || s.Store == nil {
		return Result{}, nil, errors.New("coupon service not configured")
	}
	c, err := s.Store.FindActiveByCode(ctx, code)
	if err != nil {
		return Result{}, nil, err
	}
	if c != nil && c.Scope != nil && c.Scope.Kind() == ScopeSpecificCategories {
		items, err = s.ResolveCategories(ctx, items)
		if err != nil {
			return Result{}, nil, err
		}
	}
	res := Evaluate(c, s.now(), orderAmount, items)
	obs.ObserveCouponEvaluation(string(res.State))
	zerolog.Ctx(ctx).Debug().
		Str("code", NormalizeCode(code)).
		Str("state", string(res.State)).
		Str("order_amount", orderAmount.String()).
		Str("discount", res.Discount.String()).
		Msg("coupon evaluated")
	return res, c, nil
}

// ResolveCategories replaces each item's category with the catalog's. Products
// the catalog does not know get no category, so they never match a category scope.
func (s *Service) ResolveCategories(ctx context.Context, items []Item) ([]Item, error) {
	if s.Catalog == nil || len(items) == 0 {
		return items, nil
	}
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.Catalog.Products(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve cart categories: %w", err)
	}
	out := make([]Item, len(items))
	for i, it := range items {
		it.CategoryID = uuid.Nil
		if p, ok := products[it.ProductID]; ok {
			it.CategoryID = p.CategoryID
		}
		out[i] = it
	}
	return out, nil
}

// ListPublic returns coupons a shopper can currently use. With orderAmount set
// only coupons whose minimum is met are returned.
func (s *Service) ListPublic(ctx context.Context, orderAmount *money.Amount) ([]Coupon, error) {
	return s.Store.ListPublic(ctx, s.now(), orderAmount)
}

// Input is the admin-editable part of a coupon.
type Input struct {
	Code                  string
	Description           string
	DiscountType          DiscountType
	DiscountValue         decimal.Decimal
	MinimumOrderAmount    money.Amount
	MaximumDiscountAmount *money.Amount
	UsageLimit            *int
	IsActive              bool
	ValidFrom             time.Time
	ValidUntil            time.Time
	Scope                 Scope
}

// Check enforces the coupon invariants on admin input.
func (in Input) Check() error {
	if NormalizeCode(in.Code) == "" {
		return fmt.Errorf("%w: code is required", ErrInvalid)
	}
	if in.DiscountValue.IsNegative() {
		return fmt.Errorf("%w: discountValue must not be negative", ErrInvalid)
	}
	switch in.DiscountType {
	case Percentage:
		if in.DiscountValue.GreaterThan(hundred) {
			return fmt.Errorf("%w: percentage discountValue must not exceed 100", ErrInvalid)
		}
	case FixedAmount:
	default:
		return fmt.Errorf("%w: unknown discountType %q", ErrInvalid, in.DiscountType)
	}
	if in.MinimumOrderAmount < 0 {
		return fmt.Errorf("%w: minimumOrderAmount must not be negative", ErrInvalid)
	}
	if in.MaximumDiscountAmount != nil && *in.MaximumDiscountAmount < 0 {
		return fmt.Errorf("%w: maximumDiscountAmount must not be negative", ErrInvalid)
	}
	if in.UsageLimit != nil && *in.UsageLimit < 0 {
		return fmt.Errorf("%w: usageLimit must not be negative", ErrInvalid)
	}
	if !in.ValidUntil.After(in.ValidFrom) {
		return fmt.Errorf("%w: validUntil must be after validFrom", ErrInvalid)
	}
	return nil
}

func (in Input) apply(c *Coupon) {
	c.Code = NormalizeCode(in.Code)
	c.Description = in.Description
	c.DiscountType = in.DiscountType
	c.DiscountValue = in.DiscountValue
	c.MinimumOrderAmount = in.MinimumOrderAmount
	c.MaximumDiscountAmount = nil
	if in.DiscountType == Percentage {
		c.MaximumDiscountAmount = in.MaximumDiscountAmount
	}
	c.UsageLimit = in.UsageLimit
	c.IsActive = in.IsActive
	c.ValidFrom = in.ValidFrom.UTC()
	c.ValidUntil = in.ValidUntil.UTC()
	c.Scope = in.Scope
	if c.Scope == nil {
		c.Scope = AllItems{}
	}
}

// Create stores a new coupon with a normalized code.
func (s *Service) Create(ctx context.Context, in Input) (*Coupon, error) {
	if err := in.Check(); err != nil {
		return nil, err
	}
	c := &Coupon{ID: uuid.New()}
	in.apply(c)
	out, err := s.Store.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Str("code", out.Code).Str("coupon_id", out.ID.String()).Msg("coupon created")
	return out, nil
}

// Update replaces the editable fields of an existing coupon.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*Coupon, error) {
	if err := in.Check(); err != nil {
		return nil, err
	}
	current, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(current)
	out, err := s.Store.Update(ctx, current)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Str("code", out.Code).Str("coupon_id", out.ID.String()).Msg("coupon updated")
	return out, nil
}

// Get returns one coupon by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Coupon, error) {
	return s.Store.Get(ctx, id)
}

// List pages through every coupon.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Coupon, int64, error) {
	return s.Store.List(ctx, limit, offset)
}

// Delete removes a coupon.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("coupon_id", id.String()).Msg("coupon deleted")
	return nil
}
