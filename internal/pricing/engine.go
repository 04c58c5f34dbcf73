package pricing

import (
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/shipping"
)

// MinimumTotal is the floor applied to every order total so no order is free.
const MinimumTotal money.Amount = 100

// Line describes a cart line used for pricing.
type Line struct {
	Qty       int
	UnitPrice money.Amount
}

// Breakdown is the price stored with an order. It is computed once at
// placement and never recomputed on read.
type Breakdown struct {
	ItemsPrice     money.Amount `json:"itemsPrice"`
	ShippingPrice  money.Amount `json:"shippingPrice"`
	TaxPrice       money.Amount `json:"taxPrice"`
	CouponDiscount money.Amount `json:"couponDiscount"`
	TotalPrice     money.Amount `json:"totalPrice"`
}

// ItemsPrice sums qty * unit price over lines with a positive quantity.
func ItemsPrice(lines []Line) money.Amount {
	var total money.Amount
	for _, l := range lines {
		if l.Qty <= 0 {
			continue
		}
		total += money.Amount(l.Qty) * l.UnitPrice
	}
	return total
}

// Compute assembles the breakdown for lines. Tax is charged on the items price
// only. discount must already be clamped by the coupon evaluator.
func Compute(lines []Line, cfg shipping.Config, method shipping.Method, discount money.Amount) (Breakdown, error) {
	items := ItemsPrice(lines)
	ship, err := shipping.Quote(items, cfg, method)
	if err != nil {
		return Breakdown{}, err
	}
	return Assemble(items, ship, shipping.ComputeTax(items, cfg), discount), nil
}

// Assemble applies the total formula to already computed parts.
func Assemble(items, ship, tax, discount money.Amount) Breakdown {
	discount = money.Max(discount, 0)
	return Breakdown{
		ItemsPrice:     items,
		ShippingPrice:  ship,
		TaxPrice:       tax,
		CouponDiscount: discount,
		TotalPrice:     money.Max(items+ship+tax-discount, MinimumTotal),
	}
}
