package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/catalog"
	"github.com/noah-isme/toko-storefront/internal/money"
)

type stubCatalog map[uuid.UUID]catalog.Product

func (s stubCatalog) Products(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.Product, error) {
	out := map[uuid.UUID]catalog.Product{}
	for _, id := range ids {
		if p, ok := s[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func newTestService(store *memStore) *Service {
	return &Service{Store: store, Now: func() time.Time { return now }}
}

func validInput(code string) Input {
	return Input{
		Code:          code,
		Description:   "ten percent off",
		DiscountType:  Percentage,
		DiscountValue: decimal.NewFromInt(10),
		IsActive:      true,
		ValidFrom:     now.Add(-time.Hour),
		ValidUntil:    now.Add(time.Hour),
	}
}

func TestCreatedCodeMatchesCaseInsensitively(t *testing.T) {
	svc := newTestService(newMemStore())
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput("save10"))
	require.NoError(t, err)
	require.Equal(t, "SAVE10", created.Code)

	for _, code := range []string{"SAVE10", " Save10 ", "save10"} {
		res, c, err := svc.Validate(ctx, code, money.FromRupees(200), nil)
		require.NoError(t, err)
		require.Equal(t, StateValid, res.State, code)
		require.Equal(t, created.ID, c.ID)
		require.Equal(t, money.FromRupees(20), res.Discount)
	}

	_, err = svc.Create(ctx, validInput("SAVE10 "))
	require.ErrorIs(t, err, ErrDuplicateCode)
}

func TestValidateUnknownCode(t *testing.T) {
	svc := newTestService(newMemStore())
	res, c, err := svc.Validate(context.Background(), "NOPE", money.FromRupees(100), nil)
	require.NoError(t, err)
	require.Nil(t, c)
	require.Equal(t, StateNotFound, res.State)
}

func TestValidateResolvesCategoriesFromCatalog(t *testing.T) {
	kitchen := uuid.New()
	kettle := uuid.New()
	c := baseCoupon()
	c.Scope = Categories{Set: idSet([]uuid.UUID{kitchen})}
	svc := newTestService(newMemStore(c))
	svc.Catalog = stubCatalog{kettle: {ID: kettle, CategoryID: kitchen, Price: money.FromRupees(450)}}

	res, _, err := svc.Validate(context.Background(), "save20", money.FromRupees(450), []Item{{ProductID: kettle}})
	require.NoError(t, err)
	require.Equal(t, StateValid, res.State)

	res, _, err = svc.Validate(context.Background(), "save20", money.FromRupees(450), []Item{{ProductID: uuid.New()}})
	require.NoError(t, err)
	require.Equal(t, StateScopeMismatch, res.State)
}

func TestValidateIgnoresCallerCategoryForUnknownProduct(t *testing.T) {
	kitchen := uuid.New()
	c := baseCoupon()
	c.Scope = Categories{Set: idSet([]uuid.UUID{kitchen})}
	svc := newTestService(newMemStore(c))
	svc.Catalog = stubCatalog{}

	made := []Item{{ProductID: uuid.New(), CategoryID: kitchen}}
	res, _, err := svc.Validate(context.Background(), "save20", money.FromRupees(450), made)
	require.NoError(t, err)
	require.Equal(t, StateScopeMismatch, res.State)
	require.Zero(t, res.Discount)
	require.Equal(t, kitchen, made[0].CategoryID, "caller slice is not modified")
}

func TestValidateExpiredLeavesUsageUntouched(t *testing.T) {
	c := baseCoupon()
	c.ValidUntil = now.Add(-time.Hour)
	c.UsageLimit = intPtr(5)
	c.UsedCount = 2
	store := newMemStore(c)
	svc := newTestService(store)

	res, _, err := svc.Validate(context.Background(), "SAVE20", money.FromRupees(600), nil)
	require.NoError(t, err)
	require.Equal(t, StateExpired, res.State)

	stored, err := store.Get(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stored.UsedCount)
}

func TestListPublicFiltersByMinimum(t *testing.T) {
	cheap := baseCoupon()
	cheap.Code = "CHEAP"
	big := baseCoupon()
	big.Code = "BIG"
	big.MinimumOrderAmount = money.FromRupees(1000)
	expired := baseCoupon()
	expired.Code = "OLD"
	expired.ValidUntil = now.Add(-time.Hour)
	svc := newTestService(newMemStore(cheap, big, expired))

	all, err := svc.ListPublic(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	amount := money.FromRupees(500)
	some, err := svc.ListPublic(context.Background(), &amount)
	require.NoError(t, err)
	require.Len(t, some, 1)
	require.Equal(t, "CHEAP", some[0].Code)
}

func TestInputCheck(t *testing.T) {
	in := validInput("X")
	in.DiscountValue = decimal.NewFromInt(101)
	require.ErrorIs(t, in.Check(), ErrInvalid)

	in = validInput("X")
	in.ValidUntil = in.ValidFrom
	require.ErrorIs(t, in.Check(), ErrInvalid)

	in = validInput("   ")
	require.ErrorIs(t, in.Check(), ErrInvalid)

	in = validInput("X")
	in.DiscountType = "BOGO"
	require.ErrorIs(t, in.Check(), ErrInvalid)

	in = validInput("X")
	in.DiscountType = FixedAmount
	in.DiscountValue = decimal.NewFromInt(500)
	require.NoError(t, in.Check())
}

func TestUpdateKeepsUsedCount(t *testing.T) {
	c := baseCoupon()
	c.UsedCount = 7
	store := newMemStore(c)
	svc := newTestService(store)

	in := validInput("save25")
	in.DiscountValue = decimal.NewFromInt(25)
	updated, err := svc.Update(context.Background(), c.ID, in)
	require.NoError(t, err)
	require.Equal(t, "SAVE25", updated.Code)
	require.Equal(t, 7, updated.UsedCount)

	_, err = svc.Update(context.Background(), uuid.New(), in)
	require.ErrorIs(t, err, ErrNotFound)
}
