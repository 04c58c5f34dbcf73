package coupon

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-storefront/internal/money"
)

var (
	// ErrNotFound is returned when no coupon matches an admin lookup.
	ErrNotFound = errors.New("coupon not found")
	// ErrDuplicateCode is returned when a code collides with an existing coupon, ignoring case.
	ErrDuplicateCode = errors.New("coupon code already exists")
	// ErrInvalid wraps admin input that breaks a coupon invariant.
	ErrInvalid = errors.New("invalid coupon")
	// ErrUsageExhausted is returned when a usage increment loses the race for the last use.
	ErrUsageExhausted = errors.New("coupon usage limit reached")
)

// DiscountType selects how DiscountValue is interpreted.
type DiscountType string

const (
	Percentage  DiscountType = "PERCENTAGE"
	FixedAmount DiscountType = "FIXED_AMOUNT"
)

// ScopeKind names the applicability mode persisted alongside a coupon.
type ScopeKind string

const (
	ScopeAll                ScopeKind = "ALL"
	ScopeSpecificCategories ScopeKind = "SPECIFIC_CATEGORIES"
	ScopeSpecificProducts   ScopeKind = "SPECIFIC_PRODUCTS"
)

// Scope is the part of a cart a coupon may discount. It is one of AllItems,
// Categories or Products.
type Scope interface {
	Kind() ScopeKind
	IDs() []uuid.UUID
	matches(items []Item) bool
}

// AllItems applies to every cart.
type AllItems struct{}

func (AllItems) Kind() ScopeKind     { return ScopeAll }
func (AllItems) IDs() []uuid.UUID    { return nil }
func (AllItems) matches([]Item) bool { return true }

// Categories applies when at least one cart line belongs to one of the categories.
type Categories struct{ Set map[uuid.UUID]struct{} }

func (Categories) Kind() ScopeKind    { return ScopeSpecificCategories }
func (s Categories) IDs() []uuid.UUID { return sortedIDs(s.Set) }
func (s Categories) matches(items []Item) bool {
	for _, it := range items {
		if _, ok := s.Set[it.CategoryID]; ok {
			return true
		}
	}
	return false
}

// Products applies when at least one cart line is one of the products.
type Products struct{ Set map[uuid.UUID]struct{} }

func (Products) Kind() ScopeKind    { return ScopeSpecificProducts }
func (s Products) IDs() []uuid.UUID { return sortedIDs(s.Set) }
func (s Products) matches(items []Item) bool {
	for _, it := range items {
		if _, ok := s.Set[it.ProductID]; ok {
			return true
		}
	}
	return false
}

// NewScope builds the scope for kind. Narrowed scopes need at least one id.
func NewScope(kind ScopeKind, ids []uuid.UUID) (Scope, error) {
	switch ScopeKind(strings.ToUpper(string(kind))) {
	case "", ScopeAll:
		return AllItems{}, nil
	case ScopeSpecificCategories:
		if len(ids) == 0 {
			return nil, fmt.Errorf("%w: applicableCategories must not be empty", ErrInvalid)
		}
		return Categories{Set: idSet(ids)}, nil
	case ScopeSpecificProducts:
		if len(ids) == 0 {
			return nil, fmt.Errorf("%w: applicableProducts must not be empty", ErrInvalid)
		}
		return Products{Set: idSet(ids)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown applicableTo %q", ErrInvalid, kind)
	}
}

func idSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sortedIDs(set map[uuid.UUID]struct{}) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	return out
}

// Item is the part of a cart line a scope inspects.
type Item struct {
	ProductID  uuid.UUID
	CategoryID uuid.UUID
}

// Coupon is a discount rule as stored.
type Coupon struct {
	ID                    uuid.UUID
	Code                  string
	Description           string
	DiscountType          DiscountType
	DiscountValue         decimal.Decimal
	MinimumOrderAmount    money.Amount
	MaximumDiscountAmount *money.Amount
	UsageLimit            *int
	UsedCount             int
	IsActive              bool
	ValidFrom             time.Time
	ValidUntil            time.Time
	Scope                 Scope
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NormalizeCode trims and upper-cases a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Snapshot is the copy of a coupon stored with an order.
type Snapshot struct {
	Code          string          `json:"code"`
	DiscountType  DiscountType    `json:"discountType"`
	DiscountValue decimal.Decimal `json:"discountValue"`
}

// Snapshot captures the fields an order keeps after the coupon itself changes.
func (c *Coupon) Snapshot() *Snapshot {
	if c == nil {
		return nil
	}
	return &Snapshot{Code: c.Code, DiscountType: c.DiscountType, DiscountValue: c.DiscountValue}
}

// MarshalJSON renders DiscountValue as a JSON number.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code          string       `json:"code"`
		DiscountType  DiscountType `json:"discountType"`
		DiscountValue json.Number  `json:"discountValue"`
	}{s.Code, s.DiscountType, json.Number(s.DiscountValue.String())})
}
