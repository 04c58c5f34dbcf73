package catalog

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/common"
)

// Handler serves the public catalog listings.
type Handler struct {
	Svc *Service
}

// ListProducts handles GET /products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20, 100)
	products, total, err := h.Svc.ListProducts(r.Context(), perPage, common.Offset(page, perPage))
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("list products")
		common.WriteError(w, err)
		return
	}
	if products == nil {
		products = []Product{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       products,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// ListCategories handles GET /categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Svc.ListCategories(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("list categories")
		common.WriteError(w, err)
		return
	}
	if cats == nil {
		cats = []Category{}
	}
	common.JSON(w, http.StatusOK, cats)
}
