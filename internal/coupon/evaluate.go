package coupon

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/money"
)

// State is the applicability of a coupon at evaluation time. It is computed on
// every call and never stored.
type State string

const (
	StateNotFound       State = "NOT_FOUND"
	StateInactive       State = "INACTIVE"
	StateNotYetValid    State = "NOT_YET_VALID"
	StateExpired        State = "EXPIRED"
	StateBelowMinimum   State = "BELOW_MINIMUM"
	StateUsageExhausted State = "USAGE_EXHAUSTED"
	StateScopeMismatch  State = "SCOPE_MISMATCH"
	StateValid          State = "VALID"
)

// Result is the outcome of Evaluate. Discount is zero unless State is StateValid.
type Result struct {
	State    State
	Discount money.Amount
	Message  string
}

// Valid reports whether the coupon may be applied.
func (r Result) Valid() bool { return r.State == StateValid }

var hundred = decimal.NewFromInt(100)

// Evaluate runs the applicability checks in order; the first failing check
// decides the state. A nil coupon means the lookup found nothing.
func Evaluate(c *Coupon, now time.Time, orderAmount money.Amount, items []Item) Result {
	switch {
	case c == nil:
		return Result{State: StateNotFound, Message: "Invalid coupon code"}
	case !c.IsActive:
		return Result{State: StateInactive, Message: "Coupon is not active"}
	case now.Before(c.ValidFrom):
		return Result{State: StateNotYetValid, Message: "Coupon is not yet valid"}
	case now.After(c.ValidUntil):
		return Result{State: StateExpired, Message: "Coupon has expired"}
	case orderAmount < c.MinimumOrderAmount:
		return Result{
			State:   StateBelowMinimum,
			Message: fmt.Sprintf("Minimum order amount of %s required", c.MinimumOrderAmount.Display()),
		}
	case c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit:
		return Result{State: StateUsageExhausted, Message: "Coupon usage limit has been reached"}
	case c.Scope != nil && !c.Scope.matches(items):
		return Result{State: StateScopeMismatch, Message: scopeMessage(c.Scope.Kind())}
	}
	return Result{
		State:    StateValid,
		Discount: CalculateDiscount(c, orderAmount),
		Message:  "Coupon applied successfully",
	}
}

func scopeMessage(kind ScopeKind) string {
	if kind == ScopeSpecificProducts {
		return "Coupon is not applicable to the products in your cart"
	}
	return "Coupon is not applicable to the categories in your cart"
}

// CalculateDiscount returns the discount c grants on orderAmount. Percentage
// discounts are capped by MaximumDiscountAmount; fixed discounts never exceed
// the order amount.
func CalculateDiscount(c *Coupon, orderAmount money.Amount) money.Amount {
	if c == nil || orderAmount <= 0 {
		return 0
	}
	var discount money.Amount
	switch c.DiscountType {
	case Percentage:
		discount = orderAmount.Mul(c.DiscountValue.Div(hundred))
		if c.MaximumDiscountAmount != nil {
			discount = money.Min(discount, *c.MaximumDiscountAmount)
		}
	case FixedAmount:
		discount = money.Min(money.FromDecimal(c.DiscountValue), orderAmount)
	}
	return money.Max(discount, 0)
}

// Rejection converts a non-valid result into the API error carrying the
// evaluator message verbatim. Unknown codes map to 404, everything else to 400.
func Rejection(res Result) *common.AppError {
	status := http.StatusBadRequest
	if res.State == StateNotFound {
		status = http.StatusNotFound
	}
	err := common.NewAppError("COUPON_"+string(res.State), res.Message, status, nil)
	err.Details = map[string]any{"state": res.State}
	return err
}
