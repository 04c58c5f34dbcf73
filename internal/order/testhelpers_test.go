package order

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-storefront/internal/catalog"
	"github.com/noah-isme/toko-storefront/internal/coupon"
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/queue"
	"github.com/noah-isme/toko-storefront/internal/shipping"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// memStore applies a transaction's writes only when fn succeeds.
type memStore struct {
	mu      sync.Mutex
	orders  map[uuid.UUID]Order
	coupons map[string]*coupon.Coupon
	failIns error
}

func newMemStore(cs ...*coupon.Coupon) *memStore {
	m := &memStore{orders: map[uuid.UUID]Order{}, coupons: map[string]*coupon.Coupon{}}
	for _, c := range cs {
		m.coupons[coupon.NormalizeCode(c.Code)] = c
	}
	return m
}

type memTx struct {
	store      *memStore
	increments []uuid.UUID
	inserts    []Order
}

func (t *memTx) LockCoupon(_ context.Context, code string) (*coupon.Coupon, error) {
	c, ok := t.store.coupons[coupon.NormalizeCode(code)]
	if !ok || !c.IsActive {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (t *memTx) IncrementCouponUsage(_ context.Context, id uuid.UUID) error {
	for _, c := range t.store.coupons {
		if c.ID == id {
			if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
				return coupon.ErrUsageExhausted
			}
			t.increments = append(t.increments, id)
			return nil
		}
	}
	return errors.New("coupon vanished")
}

func (t *memTx) Insert(_ context.Context, o *Order) error {
	if t.store.failIns != nil {
		return t.store.failIns
	}
	t.inserts = append(t.inserts, *o)
	return nil
}

func (m *memStore) InTx(_ context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{store: m}
	if err := fn(tx); err != nil {
		return err
	}
	for _, id := range tx.increments {
		for _, c := range m.coupons {
			if c.ID == id {
				c.UsedCount++
			}
		}
	}
	for _, o := range tx.inserts {
		m.orders[o.ID] = o
	}
	return nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (m *memStore) sorted(keep func(Order) bool) []Order {
	var out []Order
	for _, o := range m.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memStore) ListByUser(_ context.Context, userID string, limit, offset int) ([]Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(func(o Order) bool { return o.UserID == userID })
	return page(all, limit, offset), int64(len(all)), nil
}

func (m *memStore) List(_ context.Context, limit, offset int) ([]Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(func(Order) bool { return true })
	return page(all, limit, offset), int64(len(all)), nil
}

func page(all []Order, limit, offset int) []Order {
	if offset >= len(all) {
		return nil
	}
	return all[offset:min(offset+limit, len(all))]
}

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

type stubConfig struct{ cfg shipping.Config }

func (s *stubConfig) Get(context.Context) (shipping.Config, error) { return s.cfg, nil }

type recordingNotifier struct {
	sent []queue.OrderPlaced
	err  error
}

func (r *recordingNotifier) PublishOrderPlaced(_ context.Context, p queue.OrderPlaced) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, p)
	return nil
}

type fixture struct {
	svc      *Service
	store    *memStore
	config   *stubConfig
	notifier *recordingNotifier
	kettle   catalog.Product
	mug      catalog.Product
	save20   *coupon.Coupon
	flat50   *coupon.Coupon
}

func newFixture() *fixture {
	kitchen := uuid.New()
	f := &fixture{
		kettle: catalog.Product{ID: uuid.New(), Name: "Kettle", Price: money.FromRupees(150), CategoryID: kitchen},
		mug:    catalog.Product{ID: uuid.New(), Name: "Mug", Price: money.FromRupees(30), CategoryID: kitchen},
	}
	maxDiscount := money.FromRupees(100)
	limit := 1
	f.save20 = &coupon.Coupon{
		ID: uuid.New(), Code: "SAVE20", DiscountType: coupon.Percentage, DiscountValue: decimal.NewFromInt(20),
		MaximumDiscountAmount: &maxDiscount, UsageLimit: &limit, IsActive: true,
		ValidFrom: testNow.Add(-time.Hour), ValidUntil: testNow.Add(time.Hour), Scope: coupon.AllItems{},
	}
	f.flat50 = &coupon.Coupon{
		ID: uuid.New(), Code: "FLAT50", DiscountType: coupon.FixedAmount, DiscountValue: decimal.NewFromInt(50),
		IsActive: true, ValidFrom: testNow.Add(-time.Hour), ValidUntil: testNow.Add(time.Hour), Scope: coupon.AllItems{},
	}
	f.store = newMemStore(f.save20, f.flat50)
	f.config = &stubConfig{cfg: shipping.Defaults()}
	f.notifier = &recordingNotifier{}
	cat := stubCatalog{f.kettle.ID: f.kettle, f.mug.ID: f.mug}
	f.svc = &Service{
		Store:    f.store,
		Catalog:  cat,
		Shipping: f.config,
		Coupons:  &coupon.Service{Store: couponLookup{f.store}, Catalog: cat, Now: func() time.Time { return testNow }},
		Notifier: f.notifier,
		Now:      func() time.Time { return testNow },
	}
	return f
}

// couponLookup exposes the store's coupons to coupon.Service for quotes.
type couponLookup struct{ m *memStore }

func (c couponLookup) FindActiveByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	cp, ok := c.m.coupons[coupon.NormalizeCode(code)]
	if !ok || !cp.IsActive {
		return nil, nil
	}
	out := *cp
	return &out, nil
}

func (couponLookup) ListPublic(context.Context, time.Time, *money.Amount) ([]coupon.Coupon, error) {
	return nil, nil
}

func (couponLookup) List(context.Context, int, int) ([]coupon.Coupon, int64, error) {
	return nil, 0, nil
}

func (couponLookup) Get(context.Context, uuid.UUID) (*coupon.Coupon, error) {
	return nil, coupon.ErrNotFound
}

func (couponLookup) Create(context.Context, *coupon.Coupon) (*coupon.Coupon, error) {
	return nil, errors.New("read only")
}

func (couponLookup) Update(context.Context, *coupon.Coupon) (*coupon.Coupon, error) {
	return nil, errors.New("read only")
}

func (couponLookup) Delete(context.Context, uuid.UUID) error {
	return errors.New("read only")
}

func address() Address {
	return Address{FullName: "Asha Rao", Email: "asha@example.com", Address: "12 MG Road", City: "Pune", PostalCode: "411001", Country: "IN"}
}
