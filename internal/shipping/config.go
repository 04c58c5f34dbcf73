package shipping

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-storefront/internal/money"
)

var (
	// ErrExpressUnavailable is returned when express shipping is requested while disabled.
	ErrExpressUnavailable = errors.New("express shipping is not available")
	// ErrUnknownMethod is returned for shipping methods other than standard and express.
	ErrUnknownMethod = errors.New("unknown shipping method")
	// ErrInvalidConfig is returned when a config update would break a field invariant.
	ErrInvalidConfig = errors.New("invalid shipping config")
)

// Config is the single live pricing configuration for shipping and tax.
type Config struct {
	StandardShippingCost   money.Amount    `json:"standardShippingCost"`
	FreeShippingThreshold  money.Amount    `json:"freeShippingThreshold"`
	ExpressShippingCost    money.Amount    `json:"expressShippingCost"`
	TaxRate                decimal.Decimal `json:"taxRate"`
	FreeShippingEnabled    bool            `json:"freeShippingEnabled"`
	ExpressShippingEnabled bool            `json:"expressShippingEnabled"`
	UpdatedAt              time.Time       `json:"updatedAt"`
}

// Defaults returns the record created when no config exists yet.
func Defaults() Config {
	return Config{
		StandardShippingCost:   money.FromRupees(40),
		FreeShippingThreshold:  money.FromRupees(500),
		ExpressShippingCost:    money.FromRupees(80),
		TaxRate:                decimal.RequireFromString("0.18"),
		FreeShippingEnabled:    true,
		ExpressShippingEnabled: false,
	}
}

// Zero is the "no shipping, no tax" config used when the live config cannot be read
// by a client. It never overstates a total.
func Zero() Config {
	return Config{TaxRate: decimal.Zero}
}

// ComputeShipping returns the standard shipping cost for itemsPrice. Shipping is
// waived only when free shipping is enabled and itemsPrice is strictly above the threshold.
func ComputeShipping(itemsPrice money.Amount, cfg Config) money.Amount {
	if cfg.FreeShippingEnabled && itemsPrice > cfg.FreeShippingThreshold {
		return 0
	}
	return cfg.StandardShippingCost
}

// ComputeTax applies the tax rate to itemsPrice only, never to shipping.
func ComputeTax(itemsPrice money.Amount, cfg Config) money.Amount {
	return itemsPrice.Mul(cfg.TaxRate)
}

// Method selects how an order is shipped.
type Method string

const (
	MethodStandard Method = "standard"
	MethodExpress  Method = "express"
)

// ParseMethod maps user input to a Method; empty input selects standard.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case "", MethodStandard:
		return MethodStandard, nil
	case MethodExpress:
		return MethodExpress, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// Quote prices shipping for method. Express is a flat fee that ignores the
// free-shipping threshold and is only offered while enabled.
func Quote(itemsPrice money.Amount, cfg Config, method Method) (money.Amount, error) {
	switch method {
	case "", MethodStandard:
		return ComputeShipping(itemsPrice, cfg), nil
	case MethodExpress:
		if !cfg.ExpressShippingEnabled {
			return 0, ErrExpressUnavailable
		}
		return cfg.ExpressShippingCost, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// taxRatePlaces is the scale of the stored tax rate column.
const taxRatePlaces = 4

// Patch carries the fields supplied to an update; nil fields are left untouched.
type Patch struct {
	StandardShippingCost   *money.Amount
	FreeShippingThreshold  *money.Amount
	ExpressShippingCost    *money.Amount
	TaxRate                *decimal.Decimal
	FreeShippingEnabled    *bool
	ExpressShippingEnabled *bool
}

// Validate checks the supplied fields against the config invariants.
func (p Patch) Validate() error {
	amounts := []struct {
		name string
		v    *money.Amount
	}{
		{"standardShippingCost", p.StandardShippingCost},
		{"freeShippingThreshold", p.FreeShippingThreshold},
		{"expressShippingCost", p.ExpressShippingCost},
	}
	for _, a := range amounts {
		if a.v != nil && *a.v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, a.name)
		}
	}
	if p.TaxRate != nil && (p.TaxRate.IsNegative() || p.TaxRate.GreaterThan(decimal.NewFromInt(1))) {
		return fmt.Errorf("%w: taxRate must be between 0 and 1", ErrInvalidConfig)
	}
	if p.TaxRate != nil && !p.TaxRate.Equal(p.TaxRate.Truncate(taxRatePlaces)) {
		return fmt.Errorf("%w: taxRate must have at most %d decimal places", ErrInvalidConfig, taxRatePlaces)
	}
	return nil
}

// Apply overlays the supplied fields onto cfg.
func (p Patch) Apply(cfg Config) Config {
	if p.StandardShippingCost != nil {
		cfg.StandardShippingCost = *p.StandardShippingCost
	}
	if p.FreeShippingThreshold != nil {
		cfg.FreeShippingThreshold = *p.FreeShippingThreshold
	}
	if p.ExpressShippingCost != nil {
		cfg.ExpressShippingCost = *p.ExpressShippingCost
	}
	if p.TaxRate != nil {
		cfg.TaxRate = *p.TaxRate
	}
	if p.FreeShippingEnabled != nil {
		cfg.FreeShippingEnabled = *p.FreeShippingEnabled
	}
	if p.ExpressShippingEnabled != nil {
		cfg.ExpressShippingEnabled = *p.ExpressShippingEnabled
	}
	return cfg
}
