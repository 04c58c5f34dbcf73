package coupon

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/money"
)

// Handler exposes the shopper and admin coupon endpoints.
type Handler struct {
	Svc *Service
}

type cartItem struct {
	ProductID  uuid.UUID  `json:"productId" validate:"required"`
	CategoryID *uuid.UUID `json:"categoryId"`
	Qty        int        `json:"qty" validate:"omitempty,gte=1"`
}

type validateRequest struct {
	Code        string       `json:"code" validate:"required"`
	OrderAmount money.Amount `json:"orderAmount" validate:"gte=0"`
	CartItems   []cartItem   `json:"cartItems" validate:"dive"`
}

type appliedCoupon struct {
	Code           string       `json:"code"`
	Description    string       `json:"description"`
	DiscountType   DiscountType `json:"discountType"`
	DiscountValue  json.Number  `json:"discountValue"`
	DiscountAmount money.Amount `json:"discountAmount"`
}

type publicCoupon struct {
	Code                  string        `json:"code"`
	Description           string        `json:"description"`
	DiscountType          DiscountType  `json:"discountType"`
	DiscountValue         json.Number   `json:"discountValue"`
	MinimumOrderAmount    money.Amount  `json:"minimumOrderAmount"`
	MaximumDiscountAmount *money.Amount `json:"maximumDiscountAmount,omitempty"`
	ValidFrom             time.Time     `json:"validFrom"`
	ValidUntil            time.Time     `json:"validUntil"`
	ApplicableTo          ScopeKind     `json:"applicableTo"`
	ApplicableCategories  []uuid.UUID   `json:"applicableCategories,omitempty"`
	ApplicableProducts    []uuid.UUID   `json:"applicableProducts,omitempty"`
}

type adminCoupon struct {
	ID uuid.UUID `json:"id"`
	publicCoupon
	UsageLimit *int      `json:"usageLimit"`
	UsedCount  int       `json:"usedCount"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toPublic(c *Coupon) publicCoupon {
	out := publicCoupon{
		Code:                  c.Code,
		Description:           c.Description,
		DiscountType:          c.DiscountType,
		DiscountValue:         json.Number(c.DiscountValue.String()),
		MinimumOrderAmount:    c.MinimumOrderAmount,
		MaximumDiscountAmount: c.MaximumDiscountAmount,
		ValidFrom:             c.ValidFrom.UTC(),
		ValidUntil:            c.ValidUntil.UTC(),
		ApplicableTo:          ScopeAll,
	}
	if c.Scope != nil {
		out.ApplicableTo = c.Scope.Kind()
		switch c.Scope.(type) {
		case Categories:
			out.ApplicableCategories = c.Scope.IDs()
		case Products:
			out.ApplicableProducts = c.Scope.IDs()
		}
	}
	return out
}

func toAdmin(c *Coupon) adminCoupon {
	return adminCoupon{
		ID:           c.ID,
		publicCoupon: toPublic(c),
		UsageLimit:   c.UsageLimit,
		UsedCount:    c.UsedCount,
		IsActive:     c.IsActive,
		CreatedAt:    c.CreatedAt.UTC(),
		UpdatedAt:    c.UpdatedAt.UTC(),
	}
}

// Validate handles POST /discount-coupons/validate.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	items := make([]Item, 0, len(req.CartItems))
	for _, ci := range req.CartItems {
		it := Item{ProductID: ci.ProductID}
		if ci.CategoryID != nil {
			it.CategoryID = *ci.CategoryID
		}
		items = append(items, it)
	}
	res, c, err := h.Svc.Validate(r.Context(), req.Code, req.OrderAmount, items)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("validate coupon")
		common.WriteError(w, err)
		return
	}
	if !res.Valid() {
		common.WriteError(w, Rejection(res))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"coupon": appliedCoupon{
			Code:           c.Code,
			Description:    c.Description,
			DiscountType:   c.DiscountType,
			DiscountValue:  json.Number(c.DiscountValue.String()),
			DiscountAmount: res.Discount,
		},
		"message": res.Message,
	})
}

// ListPublic handles GET /discount-coupons/public.
func (h *Handler) ListPublic(w http.ResponseWriter, r *http.Request) {
	var amount *money.Amount
	if raw := strings.TrimSpace(r.URL.Query().Get("orderAmount")); raw != "" {
		a, err := money.Parse(raw)
		if err != nil || a < 0 {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid orderAmount", nil)
			return
		}
		amount = &a
	}
	list, err := h.Svc.ListPublic(r.Context(), amount)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("list public coupons")
		common.WriteError(w, err)
		return
	}
	out := make([]publicCoupon, 0, len(list))
	for i := range list {
		out = append(out, toPublic(&list[i]))
	}
	common.JSON(w, http.StatusOK, out)
}

type couponPayload struct {
	Code                  string          `json:"code" validate:"required,max=64"`
	Description           string          `json:"description" validate:"max=500"`
	DiscountType          DiscountType    `json:"discountType" validate:"required,oneof=PERCENTAGE FIXED_AMOUNT"`
	DiscountValue         decimal.Decimal `json:"discountValue"`
	MinimumOrderAmount    money.Amount    `json:"minimumOrderAmount" validate:"gte=0"`
	MaximumDiscountAmount *money.Amount   `json:"maximumDiscountAmount" validate:"omitempty,gte=0"`
	UsageLimit            *int            `json:"usageLimit" validate:"omitempty,gte=0"`
	IsActive              *bool           `json:"isActive"`
	ValidFrom             time.Time       `json:"validFrom" validate:"required"`
	ValidUntil            time.Time       `json:"validUntil" validate:"required"`
	ApplicableTo          ScopeKind       `json:"applicableTo"`
	ApplicableCategories  []uuid.UUID     `json:"applicableCategories"`
	ApplicableProducts    []uuid.UUID     `json:"applicableProducts"`
}

func (p couponPayload) input() (Input, error) {
	ids := p.ApplicableCategories
	if ScopeKind(strings.ToUpper(string(p.ApplicableTo))) == ScopeSpecificProducts {
		ids = p.ApplicableProducts
	}
	scope, err := NewScope(p.ApplicableTo, ids)
	if err != nil {
		return Input{}, err
	}
	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}
	return Input{
		Code:                  p.Code,
		Description:           strings.TrimSpace(p.Description),
		DiscountType:          p.DiscountType,
		DiscountValue:         p.DiscountValue,
		MinimumOrderAmount:    p.MinimumOrderAmount,
		MaximumDiscountAmount: p.MaximumDiscountAmount,
		UsageLimit:            p.UsageLimit,
		IsActive:              active,
		ValidFrom:             p.ValidFrom,
		ValidUntil:            p.ValidUntil,
		Scope:                 scope,
	}, nil
}

func (h *Handler) decodeInput(r *http.Request) (Input, error) {
	var payload couponPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		return Input{}, err
	}
	return payload.input()
}

// Create handles POST /admin/discount-coupons.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeInput(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	c, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	common.JSON(w, http.StatusCreated, toAdmin(c))
}

// Update handles PUT /admin/discount-coupons/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	in, err := h.decodeInput(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	c, err := h.Svc.Update(r.Context(), id, in)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, toAdmin(c))
}

// Get handles GET /admin/discount-coupons/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	c, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, toAdmin(c))
}

// List handles GET /admin/discount-coupons.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20, 100)
	list, total, err := h.Svc.List(r.Context(), perPage, common.Offset(page, perPage))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	out := make([]adminCoupon, 0, len(list))
	for i := range list {
		out = append(out, toAdmin(&list[i]))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       out,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Delete handles DELETE /admin/discount-coupons/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		h.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid coupon id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalid):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
	case errors.Is(err, ErrDuplicateCode):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "coupon code already exists", nil)
	case common.IsAppError(err):
		common.WriteError(w, err)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("coupon admin")
		common.WriteError(w, err)
	}
}
