package shipping

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/money"
)

// Handler exposes the shipping config endpoints.
type Handler struct {
	Svc *Service
}

type configResponse struct {
	StandardShippingCost   money.Amount `json:"standardShippingCost"`
	FreeShippingThreshold  money.Amount `json:"freeShippingThreshold"`
	ExpressShippingCost    money.Amount `json:"expressShippingCost"`
	TaxRate                json.Number  `json:"taxRate"`
	FreeShippingEnabled    bool         `json:"freeShippingEnabled"`
	ExpressShippingEnabled bool         `json:"expressShippingEnabled"`
	UpdatedAt              *time.Time   `json:"updatedAt,omitempty"`
}

// Response renders cfg with taxRate as a JSON number.
func Response(cfg Config) any {
	out := configResponse{
		StandardShippingCost:   cfg.StandardShippingCost,
		FreeShippingThreshold:  cfg.FreeShippingThreshold,
		ExpressShippingCost:    cfg.ExpressShippingCost,
		TaxRate:                json.Number(cfg.TaxRate.String()),
		FreeShippingEnabled:    cfg.FreeShippingEnabled,
		ExpressShippingEnabled: cfg.ExpressShippingEnabled,
	}
	if !cfg.UpdatedAt.IsZero() {
		t := cfg.UpdatedAt.UTC()
		out.UpdatedAt = &t
	}
	return out
}

// updateRequest accepts any subset of the config fields.
type updateRequest struct {
	StandardShippingCost   *money.Amount    `json:"standardShippingCost" validate:"omitempty,gte=0"`
	FreeShippingThreshold  *money.Amount    `json:"freeShippingThreshold" validate:"omitempty,gte=0"`
	ExpressShippingCost    *money.Amount    `json:"expressShippingCost" validate:"omitempty,gte=0"`
	TaxRate                *decimal.Decimal `json:"taxRate"`
	FreeShippingEnabled    *bool            `json:"freeShippingEnabled"`
	ExpressShippingEnabled *bool            `json:"expressShippingEnabled"`
}

func (r updateRequest) patch() Patch {
	return Patch{
		StandardShippingCost:   r.StandardShippingCost,
		FreeShippingThreshold:  r.FreeShippingThreshold,
		ExpressShippingCost:    r.ExpressShippingCost,
		TaxRate:                r.TaxRate,
		FreeShippingEnabled:    r.FreeShippingEnabled,
		ExpressShippingEnabled: r.ExpressShippingEnabled,
	}
}

// Get handles GET /shipping/config.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Svc.Get(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("get shipping config")
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, Response(cfg))
}

// Update handles PUT /shipping/config.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	cfg, err := h.Svc.Update(r.Context(), req.patch())
	if err != nil {
		if !errors.Is(err, ErrInvalidConfig) {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("update shipping config")
		}
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, Response(cfg))
}
