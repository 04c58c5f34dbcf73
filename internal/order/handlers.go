package order

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/auth"
	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/shipping"
)

// Handler exposes order placement, history and quoting.
type Handler struct {
	Svc *Service
}

type lineRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Qty       int       `json:"qty" validate:"gte=1,lte=999"`
}

type couponRef struct {
	Code string `json:"code"`
}

type placeRequest struct {
	OrderItems      []lineRequest `json:"orderItems" validate:"required,min=1,max=100,dive"`
	ShippingAddress Address       `json:"shippingAddress" validate:"required"`
	PaymentMethod   string        `json:"paymentMethod" validate:"required,max=64"`
	ShippingMethod  string        `json:"shippingMethod"`
	CouponCode      string        `json:"couponCode"`
	Coupon          *couponRef    `json:"coupon"`
	ItemsPrice      *money.Amount `json:"itemsPrice"`
	ShippingPrice   *money.Amount `json:"shippingPrice"`
	TaxPrice        *money.Amount `json:"taxPrice"`
	CouponDiscount  *money.Amount `json:"couponDiscount"`
	TotalPrice      *money.Amount `json:"totalPrice"`
}

type quoteRequest struct {
	Items          []lineRequest `json:"items" validate:"required,min=1,max=100,dive"`
	ShippingMethod string        `json:"shippingMethod"`
	CouponCode     string        `json:"couponCode"`
}

func toLines(in []lineRequest) []Line {
	out := make([]Line, 0, len(in))
	for _, l := range in {
		out = append(out, Line{ProductID: l.ProductID, Qty: l.Qty})
	}
	return out
}

func parseMethod(raw string) (shipping.Method, error) {
	m, err := shipping.ParseMethod(raw)
	if err != nil {
		return "", common.NewAppError("VALIDATION", "shippingMethod must be standard or express", http.StatusBadRequest, err)
	}
	return m, nil
}

// Place handles POST /orders.
func (h *Handler) Place(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var req placeRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	method, err := parseMethod(req.ShippingMethod)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	code := strings.TrimSpace(req.CouponCode)
	if code == "" && req.Coupon != nil {
		code = strings.TrimSpace(req.Coupon.Code)
	}
	o, err := h.Svc.Place(r.Context(), PlaceInput{
		UserID:          userID,
		Lines:           toLines(req.OrderItems),
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
		ShippingMethod:  method,
		CouponCode:      code,
		Claimed: Claimed{
			ItemsPrice:     req.ItemsPrice,
			ShippingPrice:  req.ShippingPrice,
			TaxPrice:       req.TaxPrice,
			CouponDiscount: req.CouponDiscount,
			TotalPrice:     req.TotalPrice,
		},
	})
	if err != nil {
		writeErr(w, r, err, "place order")
		return
	}
	common.JSON(w, http.StatusCreated, o)
}

// Quote handles POST /pricing/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	method, err := parseMethod(req.ShippingMethod)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	q, err := h.Svc.Quote(r.Context(), QuoteInput{
		Lines:          toLines(req.Items),
		ShippingMethod: method,
		CouponCode:     strings.TrimSpace(req.CouponCode),
	})
	if err != nil {
		writeErr(w, r, err, "quote")
		return
	}
	common.JSON(w, http.StatusOK, q)
}

// ListMine handles GET /orders.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20, 100)
	list, total, err := h.Svc.ListByUser(r.Context(), userID, perPage, common.Offset(page, perPage))
	if err != nil {
		writeErr(w, r, err, "list orders")
		return
	}
	writePage(w, list, page, perPage, total)
}

// ListAll handles GET /admin/orders.
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20, 100)
	list, total, err := h.Svc.List(r.Context(), perPage, common.Offset(page, perPage))
	if err != nil {
		writeErr(w, r, err, "list all orders")
		return
	}
	writePage(w, list, page, perPage, total)
}

// Get handles GET /orders/{id}. The stored breakdown is returned as placed.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	o, err := h.Svc.Get(r.Context(), id, userID, common.HasRole(r.Context(), auth.RoleAdmin))
	if err != nil {
		writeErr(w, r, err, "get order")
		return
	}
	common.JSON(w, http.StatusOK, o)
}

func writePage(w http.ResponseWriter, list []Order, page, perPage int, total int64) {
	if list == nil {
		list = []Order{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       list,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

func writeErr(w http.ResponseWriter, r *http.Request, err error, op string) {
	if errors.Is(err, ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		return
	}
	if common.IsAppError(err) {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg(op + " rejected")
	} else {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg(op)
	}
	common.WriteError(w, err)
}
