package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/noah-isme/toko-storefront/internal/auth"
	"github.com/noah-isme/toko-storefront/internal/catalog"
	"github.com/noah-isme/toko-storefront/internal/coupon"
	"github.com/noah-isme/toko-storefront/internal/order"
	"github.com/noah-isme/toko-storefront/internal/ratelimit"
	"github.com/noah-isme/toko-storefront/internal/shipping"
)

func newTestRouter(t *testing.T, rate string) http.Handler {
	t.Helper()
	parsed, err := limiter.NewRateFromFormatted(rate)
	require.NoError(t, err)
	tokens, err := auth.NewTokens("routes-test-secret", "toko", "storefront")
	require.NoError(t, err)

	api := apiRoutes{
		Catalog:       &catalog.Handler{},
		Shipping:      &shipping.Handler{},
		Coupons:       &coupon.Handler{},
		Orders:        &order.Handler{},
		Auth:          auth.Middleware{Tokens: tokens},
		ValidateLimit: ratelimit.Handler{Limiter: limiter.New(memory.NewStore(), parsed)},
	}
	r := chi.NewRouter()
	r.Route("/api/v1", api.mount)
	return r
}

func postQuote(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/quote", strings.NewReader(`{}`))
	req.Header.Set("X-Real-IP", ip)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnonymousQuoteIsRateLimitedPerIP(t *testing.T) {
	h := newTestRouter(t, "2-M")

	for i := 0; i < 2; i++ {
		rec := postQuote(h, "203.0.113.7")
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := postQuote(h, "203.0.113.7")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Contains(t, rec.Body.String(), `"RATE_LIMITED"`)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = postQuote(h, "198.51.100.20")
	require.Equal(t, http.StatusBadRequest, rec.Code, "other clients keep their own budget")
}

func TestCouponValidateRequiresAuthBeforeLimit(t *testing.T) {
	h := newTestRouter(t, "1-M")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/discount-coupons/validate", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}
