package coupon

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-storefront/internal/money"
)

type memStore struct {
	mu      sync.Mutex
	coupons map[uuid.UUID]*Coupon
}

func newMemStore(cs ...*Coupon) *memStore {
	m := &memStore{coupons: map[uuid.UUID]*Coupon{}}
	for _, c := range cs {
		m.coupons[c.ID] = c
	}
	return m
}

func (m *memStore) FindActiveByCode(_ context.Context, code string) (*Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.coupons {
		if NormalizeCode(c.Code) == NormalizeCode(code) && c.IsActive {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListPublic(_ context.Context, at time.Time, orderAmount *money.Amount) ([]Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Coupon
	for _, c := range m.coupons {
		if !c.IsActive || !c.ValidUntil.After(at) {
			continue
		}
		if orderAmount != nil && *orderAmount < c.MinimumOrderAmount {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *memStore) List(_ context.Context, limit, offset int) ([]Coupon, int64, error) {
	all, _ := m.ListPublic(context.Background(), time.Time{}, nil)
	if offset >= len(all) {
		return nil, int64(len(all)), nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], int64(len(all)), nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (*Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) Create(_ context.Context, c *Coupon) (*Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.coupons {
		if NormalizeCode(existing.Code) == NormalizeCode(c.Code) {
			return nil, ErrDuplicateCode
		}
	}
	cp := *c
	cp.CreatedAt = now
	cp.UpdatedAt = now
	m.coupons[c.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) Update(_ context.Context, c *Coupon) (*Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.coupons[c.ID]; !ok {
		return nil, ErrNotFound
	}
	for id, existing := range m.coupons {
		if id != c.ID && NormalizeCode(existing.Code) == NormalizeCode(c.Code) {
			return nil, ErrDuplicateCode
		}
	}
	cp := *c
	m.coupons[c.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.coupons[id]; !ok {
		return ErrNotFound
	}
	delete(m.coupons, id)
	return nil
}
