// Package storefront is an HTTP client for the storefront pricing API. It
// follows the browser checkout flow: read the shipping config, offer public
// coupons, validate a code, show a provisional summary, then place the order.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/pricing"
	"github.com/noah-isme/toko-storefront/internal/shipping"
)

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	// State is the coupon evaluation state for coupon rejections.
	State string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront: %d %s: %s", e.Status, e.Code, e.Message)
}

// Client talks to one storefront API base URL, e.g. http://localhost:8080/api/v1.
type Client struct {
	base   *url.URL
	http   *http.Client
	token  string
	logger zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default traced HTTP client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithToken sends token as a bearer credential.
func WithToken(token string) Option { return func(c *Client) { c.token = token } }

// WithLogger sets the logger used for fallbacks.
func WithLogger(l zerolog.Logger) Option { return func(c *Client) { c.logger = l } }

// New builds a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("storefront: invalid base url %q", baseURL)
	}
	c := &Client{
		base: u,
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ShippingConfig fetches the live config. On any failure it returns the zero
// config alongside the error so a displayed total is never overstated by stale values.
func (c *Client) ShippingConfig(ctx context.Context) (shipping.Config, error) {
	var cfg shipping.Config
	if err := c.do(ctx, http.MethodGet, "/shipping/config", nil, nil, &cfg); err != nil {
		c.logger.Warn().Err(err).Msg("shipping config unavailable; using zero shipping and tax")
		return shipping.Zero(), err
	}
	return cfg, nil
}

// PublicCoupon is a coupon offered to shoppers.
type PublicCoupon struct {
	Code                  string          `json:"code"`
	Description           string          `json:"description"`
	DiscountType          string          `json:"discountType"`
	DiscountValue         decimal.Decimal `json:"discountValue"`
	MinimumOrderAmount    money.Amount    `json:"minimumOrderAmount"`
	MaximumDiscountAmount *money.Amount   `json:"maximumDiscountAmount"`
	ValidUntil            time.Time       `json:"validUntil"`
	ApplicableTo          string          `json:"applicableTo"`
}

// PublicCoupons lists the coupons whose minimum orderAmount already meets.
func (c *Client) PublicCoupons(ctx context.Context, orderAmount money.Amount) ([]PublicCoupon, error) {
	var all []PublicCoupon
	if err := c.do(ctx, http.MethodGet, "/discount-coupons/public", nil, nil, &all); err != nil {
		return nil, err
	}
	out := all[:0]
	for _, pc := range all {
		if orderAmount >= pc.MinimumOrderAmount {
			out = append(out, pc)
		}
	}
	return out, nil
}

// CartItem is a cart line as sent to the API.
type CartItem struct {
	ProductID  uuid.UUID    `json:"productId"`
	CategoryID *uuid.UUID   `json:"categoryId,omitempty"`
	Qty        int          `json:"qty"`
	Price      money.Amount `json:"-"`
}

// AppliedCoupon is a successful validation.
type AppliedCoupon struct {
	Code           string          `json:"code"`
	Description    string          `json:"description"`
	DiscountType   string          `json:"discountType"`
	DiscountValue  decimal.Decimal `json:"discountValue"`
	DiscountAmount money.Amount    `json:"discountAmount"`
	Message        string          `json:"-"`
}

// ValidateCoupon asks the API whether code applies to the cart. Rejections are
// returned as *APIError carrying the evaluator message verbatim.
func (c *Client) ValidateCoupon(ctx context.Context, code string, orderAmount money.Amount, items []CartItem) (AppliedCoupon, error) {
	body := map[string]any{"code": code, "orderAmount": orderAmount, "cartItems": items}
	var out struct {
		Coupon  AppliedCoupon `json:"coupon"`
		Message string        `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/discount-coupons/validate", body, nil, &out); err != nil {
		return AppliedCoupon{}, err
	}
	out.Coupon.Message = out.Message
	return out.Coupon, nil
}

// Summary computes the provisional breakdown shown before checkout, using
// standard shipping.
func Summary(cfg shipping.Config, items []CartItem, discount money.Amount) pricing.Breakdown {
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.Line{Qty: it.Qty, UnitPrice: it.Price})
	}
	itemsPrice := pricing.ItemsPrice(lines)
	return pricing.Assemble(itemsPrice, shipping.ComputeShipping(itemsPrice, cfg), shipping.ComputeTax(itemsPrice, cfg), discount)
}

// Address is the shipping destination of an order.
type Address struct {
	FullName   string `json:"fullName"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// OrderRequest places an order. The breakdown fields are the prices the
// shopper saw; the server rejects the order if they no longer hold.
type OrderRequest struct {
	Items           []CartItem
	ShippingAddress Address
	PaymentMethod   string
	ShippingMethod  shipping.Method
	CouponCode      string
	Displayed       *pricing.Breakdown
}

// Order is the stored order returned by the API.
type Order struct {
	ID             uuid.UUID       `json:"id"`
	Status         string          `json:"status"`
	ShippingMethod shipping.Method `json:"shippingMethod"`
	CreatedAt      time.Time       `json:"createdAt"`
	Coupon         *struct {
		Code string `json:"code"`
	} `json:"coupon"`
	pricing.Breakdown
}

// PlaceOrder submits req. idempotencyKey should be stable across retries of the same checkout.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest, idempotencyKey string) (Order, error) {
	type line struct {
		ProductID uuid.UUID `json:"productId"`
		Qty       int       `json:"qty"`
	}
	body := map[string]any{
		"shippingAddress": req.ShippingAddress,
		"paymentMethod":   req.PaymentMethod,
	}
	lines := make([]line, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, line{ProductID: it.ProductID, Qty: it.Qty})
	}
	body["orderItems"] = lines
	if req.ShippingMethod != "" {
		body["shippingMethod"] = req.ShippingMethod
	}
	if req.CouponCode != "" {
		body["couponCode"] = req.CouponCode
	}
	if d := req.Displayed; d != nil {
		body["itemsPrice"] = d.ItemsPrice
		body["shippingPrice"] = d.ShippingPrice
		body["taxPrice"] = d.TaxPrice
		body["couponDiscount"] = d.CouponDiscount
		body["totalPrice"] = d.TotalPrice
	}
	headers := http.Header{}
	if idempotencyKey != "" {
		headers.Set("Idempotency-Key", idempotencyKey)
	}
	var out Order
	err := c.do(ctx, http.MethodPost, "/orders", body, headers, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, headers http.Header, dst any) error {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("storefront: decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Details struct {
				State string `json:"state"`
			} `json:"details"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Code != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.State = env.Error.Details.State
	}
	return apiErr
}

// IsCouponRejection reports whether err is a coupon evaluation rejection.
func IsCouponRejection(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.State != ""
}
