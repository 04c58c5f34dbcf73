package shipping

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/cache"
	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/money"
)

type memStore struct {
	mu    sync.Mutex
	cfg   *Config
	reads int
	fail  error
}

func (m *memStore) GetOrCreate(_ context.Context, defaults Config) (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.fail != nil {
		return Config{}, m.fail
	}
	if m.cfg == nil {
		d := defaults
		d.UpdatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		m.cfg = &d
	}
	return *m.cfg, nil
}

func (m *memStore) Update(_ context.Context, defaults Config, fn func(Config) Config) (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return Config{}, m.fail
	}
	if m.cfg == nil {
		d := defaults
		m.cfg = &d
	}
	next := fn(*m.cfg)
	next.UpdatedAt = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	m.cfg = &next
	return next, nil
}

func newService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := &memStore{}
	return &Service{Store: store, Cache: cache.NewJSON(rdb, "shipping:", time.Minute)}, store
}

func TestGetCreatesDefaultsAndIsIdempotent(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	first, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, money.FromRupees(40), first.StandardShippingCost)
	require.Equal(t, money.FromRupees(500), first.FreeShippingThreshold)
	require.Equal(t, money.FromRupees(80), first.ExpressShippingCost)
	require.True(t, first.TaxRate.Equal(decimal.RequireFromString("0.18")))
	require.True(t, first.FreeShippingEnabled)
	require.False(t, first.ExpressShippingEnabled)

	second, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, first.StandardShippingCost, second.StandardShippingCost)
	require.True(t, first.TaxRate.Equal(second.TaxRate))
	require.True(t, first.UpdatedAt.Equal(second.UpdatedAt))
	require.Equal(t, 1, store.reads, "second read should be served from cache")
}

func TestUpdateIsVisibleImmediately(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Get(ctx)
	require.NoError(t, err)

	threshold := money.FromRupees(999)
	updated, err := svc.Update(ctx, Patch{FreeShippingThreshold: &threshold})
	require.NoError(t, err)
	require.Equal(t, threshold, updated.FreeShippingThreshold)
	require.Equal(t, money.FromRupees(40), updated.StandardShippingCost)

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, threshold, got.FreeShippingThreshold)
}

func TestUpdateRejectsInvalidFields(t *testing.T) {
	svc, _ := newService(t)
	rate := decimal.RequireFromString("-0.1")
	_, err := svc.Update(context.Background(), Patch{TaxRate: &rate})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestGetPropagatesStoreFailure(t *testing.T) {
	svc, store := newService(t)
	store.fail = errors.New("connection refused")
	_, err := svc.Get(context.Background())
	require.Error(t, err)
	require.False(t, common.IsAppError(err))
}

func TestGetWithoutCache(t *testing.T) {
	store := &memStore{}
	svc := &Service{Store: store}
	_, err := svc.Get(context.Background())
	require.NoError(t, err)
	_, err = svc.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, store.reads)
}

// pausingStore holds GetOrCreate after it has read the record until resume is closed.
type pausingStore struct {
	*memStore
	read   chan struct{}
	resume chan struct{}
	once   sync.Once
}

func (p *pausingStore) GetOrCreate(ctx context.Context, defaults Config) (Config, error) {
	cfg, err := p.memStore.GetOrCreate(ctx, defaults)
	paused := false
	p.once.Do(func() { paused = true })
	if paused {
		close(p.read)
		<-p.resume
	}
	return cfg, err
}

func TestSlowReadDoesNotOverwriteUpdatedCache(t *testing.T) {
	svc, mem := newService(t)
	store := &pausingStore{memStore: mem, read: make(chan struct{}), resume: make(chan struct{})}
	svc.Store = store
	ctx := context.Background()

	type result struct {
		cfg Config
		err error
	}
	done := make(chan result, 1)
	go func() {
		cfg, err := svc.Get(ctx)
		done <- result{cfg, err}
	}()
	<-store.read

	rate := decimal.RequireFromString("0.05")
	_, err := svc.Update(ctx, Patch{TaxRate: &rate})
	require.NoError(t, err)

	close(store.resume)
	slow := <-done
	require.NoError(t, slow.err)
	require.True(t, slow.cfg.TaxRate.Equal(decimal.RequireFromString("0.18")))

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	require.True(t, got.TaxRate.Equal(rate), "cached taxRate %s", got.TaxRate)
}
