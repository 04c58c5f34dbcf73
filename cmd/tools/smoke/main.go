// Command smoke walks the checkout flow against a running API: config, public
// coupons, coupon validation, provisional summary, then order placement.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/obs"
	"github.com/noah-isme/toko-storefront/pkg/storefront"
)

func main() {
	baseURL := flag.String("base-url", "http://localhost:8080/api/v1", "API base URL")
	token := flag.String("token", os.Getenv("STOREFRONT_TOKEN"), "bearer token of a shopper")
	productID := flag.String("product", "", "product id to order")
	price := flag.Int64("price", 150, "unit price in rupees as listed")
	qty := flag.Int("qty", 3, "quantity")
	code := flag.String("coupon", "", "coupon code to try")
	place := flag.Bool("place", false, "place the order after quoting")
	flag.Parse()

	logger := obs.NewLogger("console", "info")

	pid, err := uuid.Parse(*productID)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid -product")
	}
	client, err := storefront.New(*baseURL, storefront.WithToken(*token), storefront.WithLogger(logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("init client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := client.ShippingConfig(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("continuing with zero shipping and tax")
	}
	items := []storefront.CartItem{{ProductID: pid, Qty: *qty, Price: money.FromRupees(*price)}}
	itemsPrice := money.FromRupees(*price * int64(*qty))

	offers, err := client.PublicCoupons(ctx, itemsPrice)
	if err != nil {
		logger.Warn().Err(err).Msg("list public coupons")
	}
	for _, o := range offers {
		logger.Info().Str("code", o.Code).Str("description", o.Description).Msg("coupon offered")
	}

	var discount money.Amount
	if *code != "" {
		applied, err := client.ValidateCoupon(ctx, *code, itemsPrice, items)
		switch {
		case storefront.IsCouponRejection(err):
			logger.Warn().Err(err).Msg("coupon rejected")
		case err != nil:
			logger.Fatal().Err(err).Msg("validate coupon")
		default:
			discount = applied.DiscountAmount
			logger.Info().Str("discount", discount.Display()).Msg(applied.Message)
		}
	}

	summary := storefront.Summary(cfg, items, discount)
	logger.Info().
		Str("items", summary.ItemsPrice.Display()).
		Str("shipping", summary.ShippingPrice.Display()).
		Str("tax", summary.TaxPrice.Display()).
		Str("discount", summary.CouponDiscount.Display()).
		Str("total", summary.TotalPrice.Display()).
		Msg("provisional summary")

	if !*place {
		return
	}
	couponCode := ""
	if discount > 0 {
		couponCode = *code
	}
	o, err := client.PlaceOrder(ctx, storefront.OrderRequest{
		Items: items,
		ShippingAddress: storefront.Address{
			FullName: "Smoke Test", Address: "1 Test Street", City: "Pune", PostalCode: "411001", Country: "IN",
		},
		PaymentMethod: "COD",
		CouponCode:    couponCode,
		Displayed:     &summary,
	}, uuid.NewString())
	if err != nil {
		logger.Fatal().Err(err).Msg("place order")
	}
	logger.Info().Str("order_id", o.ID.String()).Str("total", o.TotalPrice.Display()).Msg("order placed")
}
