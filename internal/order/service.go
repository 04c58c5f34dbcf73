package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/catalog"
	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/coupon"
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/obs"
	"github.com/noah-isme/toko-storefront/internal/pricing"
	"github.com/noah-isme/toko-storefront/internal/queue"
	"github.com/noah-isme/toko-storefront/internal/shipping"
)

// Tx is the transactional view used while placing an order.
type Tx interface {
	// LockCoupon returns the active coupon for code locked until commit, or nil.
	LockCoupon(ctx context.Context, code string) (*coupon.Coupon, error)
	IncrementCouponUsage(ctx context.Context, id uuid.UUID) error
	Insert(ctx context.Context, o *Order) error
}

// Store persists orders.
type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, int64, error)
	List(ctx context.Context, limit, offset int) ([]Order, int64, error)
}

// ConfigSource yields the live shipping config.
type ConfigSource interface {
	Get(ctx context.Context) (shipping.Config, error)
}

// CouponValidator evaluates a coupon without consuming a use.
type CouponValidator interface {
	Validate(ctx context.Context, code string, orderAmount money.Amount, items []coupon.Item) (coupon.Result, *coupon.Coupon, error)
}

// Notifier announces committed orders.
type Notifier interface {
	PublishOrderPlaced(ctx context.Context, p queue.OrderPlaced) error
}

// Service prices and places orders.
type Service struct {
	Store    Store
	Catalog  catalog.Lookup
	Shipping ConfigSource
	Coupons  CouponValidator
	Notifier Notifier
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// priceLines resolves lines against the catalog. Client prices are never trusted.
func (s *Service) priceLines(ctx context.Context, lines []Line) ([]Item, []pricing.Line, error) {
	if len(lines) == 0 {
		return nil, nil, common.NewAppError("EMPTY_ORDER", "order has no items", http.StatusBadRequest, nil)
	}
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.Catalog.Products(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load products: %w", err)
	}
	items := make([]Item, 0, len(lines))
	priced := make([]pricing.Line, 0, len(lines))
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			appErr := common.NewAppError("UNKNOWN_PRODUCT", "product not found", http.StatusBadRequest, catalog.ErrProductNotFound)
			appErr.Details = map[string]any{"productId": l.ProductID}
			return nil, nil, appErr
		}
		items = append(items, Item{ProductID: p.ID, Name: p.Name, CategoryID: p.CategoryID, Qty: l.Qty, Price: p.Price})
		priced = append(priced, pricing.Line{Qty: l.Qty, UnitPrice: p.Price})
	}
	return items, priced, nil
}

func couponItems(items []Item) []coupon.Item {
	out := make([]coupon.Item, 0, len(items))
	for _, it := range items {
		out = append(out, coupon.Item{ProductID: it.ProductID, CategoryID: it.CategoryID})
	}
	return out
}

func shippingFor(itemsPrice money.Amount, cfg shipping.Config, method shipping.Method) (money.Amount, error) {
	ship, err := shipping.Quote(itemsPrice, cfg, method)
	if errors.Is(err, shipping.ErrExpressUnavailable) {
		return 0, common.NewAppError("EXPRESS_UNAVAILABLE", "Express shipping is currently unavailable", http.StatusBadRequest, err)
	}
	if errors.Is(err, shipping.ErrUnknownMethod) {
		return 0, common.NewAppError("VALIDATION", err.Error(), http.StatusBadRequest, err)
	}
	return ship, err
}

// Quote prices a cart the same way Place does, without locking or consuming the coupon.
func (s *Service) Quote(ctx context.Context, in QuoteInput) (Quote, error) {
	items, lines, err := s.priceLines(ctx, in.Lines)
	if err != nil {
		return Quote{}, err
	}
	cfg, err := s.Shipping.Get(ctx)
	if err != nil {
		return Quote{}, err
	}
	itemsPrice := pricing.ItemsPrice(lines)
	ship, err := shippingFor(itemsPrice, cfg, in.ShippingMethod)
	if err != nil {
		return Quote{}, err
	}
	out := Quote{ShippingMethod: methodOrDefault(in.ShippingMethod)}
	var discount money.Amount
	if in.CouponCode != "" {
		res, c, err := s.Coupons.Validate(ctx, in.CouponCode, itemsPrice, couponItems(items))
		if err != nil {
			return Quote{}, err
		}
		if !res.Valid() {
			return Quote{}, coupon.Rejection(res)
		}
		discount = res.Discount
		out.Coupon = c.Snapshot()
		out.Message = res.Message
	}
	out.Breakdown = pricing.Assemble(itemsPrice, ship, shipping.ComputeTax(itemsPrice, cfg), discount)
	return out, nil
}

// Place prices the order from the catalog and the live config, then in one
// transaction locks and re-evaluates the coupon, consumes one use and stores
// the order. Any failure rolls back the coupon use.
func (s *Service) Place(ctx context.Context, in PlaceInput) (*Order, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("order service not configured")
	}
	if in.UserID == "" {
		return nil, common.NewAppError("UNAUTHORIZED", "authentication required", http.StatusUnauthorized, nil)
	}
	items, lines, err := s.priceLines(ctx, in.Lines)
	if err != nil {
		return nil, err
	}
	cfg, err := s.Shipping.Get(ctx)
	if err != nil {
		return nil, err
	}
	itemsPrice := pricing.ItemsPrice(lines)
	ship, err := shippingFor(itemsPrice, cfg, in.ShippingMethod)
	if err != nil {
		return nil, err
	}
	tax := shipping.ComputeTax(itemsPrice, cfg)

	placedAt := s.now().UTC()
	o := &Order{
		ID:              uuid.New(),
		UserID:          in.UserID,
		Items:           items,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		ShippingMethod:  methodOrDefault(in.ShippingMethod),
		Status:          StatusPending,
		CreatedAt:       placedAt,
	}
	var discountType string
	err = s.Store.InTx(ctx, func(tx Tx) error {
		var discount money.Amount
		if in.CouponCode != "" {
			c, err := tx.LockCoupon(ctx, in.CouponCode)
			if err != nil {
				return err
			}
			res := coupon.Evaluate(c, placedAt, itemsPrice, couponItems(items))
			obs.ObserveCouponEvaluation(string(res.State))
			if !res.Valid() {
				return coupon.Rejection(res)
			}
			if err := tx.IncrementCouponUsage(ctx, c.ID); err != nil {
				if errors.Is(err, coupon.ErrUsageExhausted) {
					return coupon.Rejection(coupon.Result{State: coupon.StateUsageExhausted, Message: "Coupon usage limit has been reached"})
				}
				return err
			}
			discount = res.Discount
			o.Coupon = c.Snapshot()
			discountType = string(c.DiscountType)
		}
		o.Breakdown = pricing.Assemble(itemsPrice, ship, tax, discount)
		if !in.Claimed.Matches(o.Breakdown) {
			appErr := common.NewAppError("PRICE_CHANGED", "Prices have changed, please review your order", http.StatusConflict, nil)
			appErr.Details = map[string]any{"expected": o.Breakdown}
			return appErr
		}
		return tx.Insert(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	obs.ObserveOrderPlaced(discountType, int64(o.TotalPrice))
	log := zerolog.Ctx(ctx)
	log.Info().
		Str("order_id", o.ID.String()).
		Str("total", o.TotalPrice.String()).
		Str("discount", o.CouponDiscount.String()).
		Msg("order placed")
	if s.Notifier != nil {
		if err := s.Notifier.PublishOrderPlaced(ctx, placedEvent(o)); err != nil {
			log.Warn().Err(err).Str("order_id", o.ID.String()).Msg("enqueue order confirmation")
		}
	}
	return o, nil
}

func placedEvent(o *Order) queue.OrderPlaced {
	p := queue.OrderPlaced{
		OrderID:   o.ID.String(),
		UserID:    o.UserID,
		Email:     o.ShippingAddress.Email,
		FullName:  o.ShippingAddress.FullName,
		ItemCount: len(o.Items),
		Total:     o.TotalPrice,
		Discount:  o.CouponDiscount,
		PlacedAt:  o.CreatedAt,
	}
	if o.Coupon != nil {
		p.CouponCode = o.Coupon.Code
	}
	return p
}

func methodOrDefault(m shipping.Method) shipping.Method {
	if m == "" {
		return shipping.MethodStandard
	}
	return m
}

// Get returns an order visible to the caller: its owner, or any admin.
func (s *Service) Get(ctx context.Context, id uuid.UUID, userID string, admin bool) (*Order, error) {
	o, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

// ListByUser pages through the caller's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, int64, error) {
	return s.Store.ListByUser(ctx, userID, limit, offset)
}

// List pages through every order, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Order, int64, error) {
	return s.Store.List(ctx, limit, offset)
}
