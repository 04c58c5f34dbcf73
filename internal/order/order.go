package order

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-storefront/internal/coupon"
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/pricing"
	"github.com/noah-isme/toko-storefront/internal/shipping"
)

// ErrNotFound is returned for unknown orders and for orders the caller may not see.
var ErrNotFound = errors.New("order not found")

// Status tracks fulfilment. Orders are created PENDING.
type Status string

const StatusPending Status = "PENDING"

// Item is an order line priced from the catalog at placement time.
type Item struct {
	ProductID  uuid.UUID    `json:"productId"`
	Name       string       `json:"name"`
	CategoryID uuid.UUID    `json:"categoryId"`
	Qty        int          `json:"qty"`
	Price      money.Amount `json:"price"`
}

// Address is where the order ships. Email, when set, receives the confirmation.
type Address struct {
	FullName   string `json:"fullName" validate:"required,max=120"`
	Phone      string `json:"phone" validate:"omitempty,max=32"`
	Email      string `json:"email" validate:"omitempty,email"`
	Address    string `json:"address" validate:"required,max=300"`
	City       string `json:"city" validate:"required,max=120"`
	PostalCode string `json:"postalCode" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,max=80"`
}

// Order is a placed order. Its breakdown and coupon snapshot are frozen at
// placement; later config or coupon changes never alter them.
type Order struct {
	ID              uuid.UUID        `json:"id"`
	UserID          string           `json:"userId"`
	Items           []Item           `json:"orderItems"`
	ShippingAddress Address          `json:"shippingAddress"`
	PaymentMethod   string           `json:"paymentMethod"`
	ShippingMethod  shipping.Method  `json:"shippingMethod"`
	Coupon          *coupon.Snapshot `json:"coupon"`
	Status          Status           `json:"status"`
	CreatedAt       time.Time        `json:"createdAt"`
	pricing.Breakdown
}

// Line is a requested product and quantity.
type Line struct {
	ProductID uuid.UUID
	Qty       int
}

// Claimed holds the prices the client displayed. Nil fields are not checked.
type Claimed struct {
	ItemsPrice     *money.Amount
	ShippingPrice  *money.Amount
	TaxPrice       *money.Amount
	CouponDiscount *money.Amount
	TotalPrice     *money.Amount
}

// Matches reports whether every supplied price equals the computed breakdown.
func (c Claimed) Matches(b pricing.Breakdown) bool {
	pairs := []struct {
		claimed *money.Amount
		actual  money.Amount
	}{
		{c.ItemsPrice, b.ItemsPrice},
		{c.ShippingPrice, b.ShippingPrice},
		{c.TaxPrice, b.TaxPrice},
		{c.CouponDiscount, b.CouponDiscount},
		{c.TotalPrice, b.TotalPrice},
	}
	for _, p := range pairs {
		if p.claimed != nil && *p.claimed != p.actual {
			return false
		}
	}
	return true
}

// PlaceInput is a validated order request.
type PlaceInput struct {
	UserID          string
	Lines           []Line
	ShippingAddress Address
	PaymentMethod   string
	ShippingMethod  shipping.Method
	CouponCode      string
	Claimed         Claimed
}

// QuoteInput prices a cart without placing it.
type QuoteInput struct {
	Lines          []Line
	ShippingMethod shipping.Method
	CouponCode     string
}

// Quote is a priced cart.
type Quote struct {
	pricing.Breakdown
	ShippingMethod shipping.Method  `json:"shippingMethod"`
	Coupon         *coupon.Snapshot `json:"coupon,omitempty"`
	Message        string           `json:"message,omitempty"`
}
