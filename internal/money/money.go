package money

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Symbol is prefixed to human readable amounts.
const Symbol = "₹"

// Amount is a currency value held in minor units (paise).
type Amount int64

// ErrInvalidAmount is returned when a boundary value cannot be parsed as currency.
var ErrInvalidAmount = errors.New("invalid amount")

// FromRupees converts a whole major-unit value into an Amount.
func FromRupees(r int64) Amount { return Amount(r * 100) }

// FromDecimal rounds a major-unit decimal to the nearest paisa.
func FromDecimal(d decimal.Decimal) Amount {
	return Amount(d.Shift(2).Round(0).IntPart())
}

// Parse reads a major-unit string such as "450", "450.5" or "450.00".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return FromDecimal(d), nil
}

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -2)
}

// Mul multiplies the amount by a rate and rounds half away from zero.
func (a Amount) Mul(rate decimal.Decimal) Amount {
	return Amount(decimal.NewFromInt(int64(a)).Mul(rate).Round(0).IntPart())
}

// String renders the amount without a currency symbol, e.g. "500" or "500.50".
func (a Amount) String() string {
	if a%100 == 0 {
		return a.Decimal().StringFixed(0)
	}
	return a.Decimal().StringFixed(2)
}

// Display renders the amount for end users, e.g. "₹500".
func (a Amount) Display() string {
	return Symbol + a.String()
}

// MarshalJSON encodes the amount as a major-unit JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal().StringFixed(2)), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string ("450.00").
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := Parse(s)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Min returns the smaller of two amounts.
func Min(a, b Amount) Amount {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of two amounts.
func Max(a, b Amount) Amount {
	if a > b {
		return a
	}
	return b
}
