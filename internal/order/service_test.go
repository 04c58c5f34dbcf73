package order

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/coupon"
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/shipping"
)

func rupees(r int64) money.Amount { return money.FromRupees(r) }

func placeInput(lines ...Line) PlaceInput {
	return PlaceInput{
		UserID:          "user-1",
		Lines:           lines,
		ShippingAddress: address(),
		PaymentMethod:   "COD",
		ShippingMethod:  shipping.MethodStandard,
	}
}

func requireAppError(t *testing.T, err error, status int, code string) *common.AppError {
	t.Helper()
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, status, appErr.HTTPStatus)
	require.Equal(t, code, appErr.Code)
	return appErr
}

func TestPlaceWithoutCoupon(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// 3 kettles = 450: shipping charged.
	o, err := f.svc.Place(ctx, placeInput(Line{ProductID: f.kettle.ID, Qty: 3}))
	require.NoError(t, err)
	require.Equal(t, rupees(450), o.ItemsPrice)
	require.Equal(t, rupees(40), o.ShippingPrice)
	require.Equal(t, rupees(81), o.TaxPrice)
	require.Equal(t, rupees(571), o.TotalPrice)
	require.Nil(t, o.Coupon)
	require.Equal(t, StatusPending, o.Status)
	require.Equal(t, "Kettle", o.Items[0].Name)

	// 4 kettles = 600: free shipping.
	o, err = f.svc.Place(ctx, placeInput(Line{ProductID: f.kettle.ID, Qty: 4}))
	require.NoError(t, err)
	require.Equal(t, money.Amount(0), o.ShippingPrice)
	require.Equal(t, rupees(708), o.TotalPrice)

	require.Len(t, f.store.orders, 2)
	require.Len(t, f.notifier.sent, 2)
	require.Equal(t, "asha@example.com", f.notifier.sent[0].Email)
}

func TestPlaceWithCappedPercentageCoupon(t *testing.T) {
	f := newFixture()
	in := placeInput(Line{ProductID: f.kettle.ID, Qty: 4})
	in.CouponCode = " save20 "

	o, err := f.svc.Place(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, rupees(100), o.CouponDiscount)
	require.Equal(t, rupees(608), o.TotalPrice)
	require.NotNil(t, o.Coupon)
	require.Equal(t, "SAVE20", o.Coupon.Code)
	require.Equal(t, 1, f.save20.UsedCount)
	require.Equal(t, "SAVE20", f.notifier.sent[0].CouponCode)

	// The single allowed use is spent.
	_, err = f.svc.Place(context.Background(), in)
	appErr := requireAppError(t, err, http.StatusBadRequest, "COUPON_USAGE_EXHAUSTED")
	require.Equal(t, coupon.StateUsageExhausted, appErr.Details.(map[string]any)["state"])
	require.Len(t, f.store.orders, 1)
	require.Equal(t, 1, f.save20.UsedCount)
}

func TestPlaceWithFixedCouponClampedToItems(t *testing.T) {
	f := newFixture()
	in := placeInput(Line{ProductID: f.mug.ID, Qty: 1})
	in.CouponCode = "FLAT50"

	o, err := f.svc.Place(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, rupees(30), o.ItemsPrice)
	require.Equal(t, rupees(30), o.CouponDiscount)
	require.Equal(t, rupees(40)+540, o.TotalPrice)
	require.Equal(t, 1, f.flat50.UsedCount)
}

func TestPlaceFloorsTotal(t *testing.T) {
	f := newFixture()
	f.config.cfg = shipping.Zero()
	in := placeInput(Line{ProductID: f.mug.ID, Qty: 1})
	in.CouponCode = "FLAT50"

	o, err := f.svc.Place(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, money.Amount(100), o.TotalPrice)
}

func TestPlaceRejectedCouponLeavesNoTrace(t *testing.T) {
	f := newFixture()
	f.flat50.ValidUntil = testNow.Add(-time.Minute)
	in := placeInput(Line{ProductID: f.kettle.ID, Qty: 1})
	in.CouponCode = "FLAT50"

	_, err := f.svc.Place(context.Background(), in)
	requireAppError(t, err, http.StatusBadRequest, "COUPON_EXPIRED")
	require.Zero(t, f.flat50.UsedCount)
	require.Empty(t, f.store.orders)
	require.Empty(t, f.notifier.sent)

	in.CouponCode = "NOPE"
	_, err = f.svc.Place(context.Background(), in)
	requireAppError(t, err, http.StatusNotFound, "COUPON_NOT_FOUND")
}

func TestPlacePriceChangedRollsBackCouponUse(t *testing.T) {
	f := newFixture()
	in := placeInput(Line{ProductID: f.kettle.ID, Qty: 4})
	in.CouponCode = "SAVE20"
	stale := rupees(600)
	in.Claimed.TotalPrice = &stale

	_, err := f.svc.Place(context.Background(), in)
	appErr := requireAppError(t, err, http.StatusConflict, "PRICE_CHANGED")
	require.Contains(t, appErr.Details.(map[string]any), "expected")
	require.Zero(t, f.save20.UsedCount)
	require.Empty(t, f.store.orders)

	fresh := rupees(608)
	in.Claimed.TotalPrice = &fresh
	_, err = f.svc.Place(context.Background(), in)
	require.NoError(t, err)
}

func TestPlaceInsertFailureRollsBackCouponUse(t *testing.T) {
	f := newFixture()
	f.store.failIns = errors.New("disk full")
	in := placeInput(Line{ProductID: f.kettle.ID, Qty: 4})
	in.CouponCode = "SAVE20"

	_, err := f.svc.Place(context.Background(), in)
	require.Error(t, err)
	require.False(t, common.IsAppError(err))
	require.Zero(t, f.save20.UsedCount)
}

func TestPlaceValidation(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Place(context.Background(), placeInput(Line{ProductID: uuid.New(), Qty: 1}))
	requireAppError(t, err, http.StatusBadRequest, "UNKNOWN_PRODUCT")

	_, err = f.svc.Place(context.Background(), placeInput())
	requireAppError(t, err, http.StatusBadRequest, "EMPTY_ORDER")

	in := placeInput(Line{ProductID: f.kettle.ID, Qty: 1})
	in.ShippingMethod = shipping.MethodExpress
	_, err = f.svc.Place(context.Background(), in)
	requireAppError(t, err, http.StatusBadRequest, "EXPRESS_UNAVAILABLE")

	f.config.cfg.ExpressShippingEnabled = true
	o, err := f.svc.Place(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, rupees(80), o.ShippingPrice)
	require.Equal(t, shipping.MethodExpress, o.ShippingMethod)
}

func TestPlaceSurvivesNotifierFailure(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("redis unavailable")
	_, err := f.svc.Place(context.Background(), placeInput(Line{ProductID: f.kettle.ID, Qty: 1}))
	require.NoError(t, err)
	require.Len(t, f.store.orders, 1)
}

func TestStoredBreakdownSurvivesConfigChange(t *testing.T) {
	f := newFixture()
	o, err := f.svc.Place(context.Background(), placeInput(Line{ProductID: f.kettle.ID, Qty: 3}))
	require.NoError(t, err)

	f.config.cfg.StandardShippingCost = rupees(99)

	got, err := f.svc.Get(context.Background(), o.ID, "user-1", false)
	require.NoError(t, err)
	require.Equal(t, o.Breakdown, got.Breakdown)
	require.Equal(t, rupees(40), got.ShippingPrice)
}

func TestGetVisibility(t *testing.T) {
	f := newFixture()
	o, err := f.svc.Place(context.Background(), placeInput(Line{ProductID: f.kettle.ID, Qty: 1}))
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), o.ID, "someone-else", false)
	require.ErrorIs(t, err, ErrNotFound)

	got, err := f.svc.Get(context.Background(), o.ID, "admin-7", true)
	require.NoError(t, err)
	require.Equal(t, o.ID, got.ID)

	list, total, err := f.svc.ListByUser(context.Background(), "user-1", 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, list, 1)
}

func TestQuoteDoesNotConsumeCoupon(t *testing.T) {
	f := newFixture()
	q, err := f.svc.Quote(context.Background(), QuoteInput{
		Lines:      []Line{{ProductID: f.kettle.ID, Qty: 4}},
		CouponCode: "save20",
	})
	require.NoError(t, err)
	require.Equal(t, rupees(608), q.TotalPrice)
	require.Equal(t, shipping.MethodStandard, q.ShippingMethod)
	require.Equal(t, "SAVE20", q.Coupon.Code)
	require.Zero(t, f.save20.UsedCount)
	require.Empty(t, f.store.orders)

	_, err = f.svc.Quote(context.Background(), QuoteInput{
		Lines:      []Line{{ProductID: f.mug.ID, Qty: 1}},
		CouponCode: "GONE",
	})
	requireAppError(t, err, http.StatusNotFound, "COUPON_NOT_FOUND")
}
