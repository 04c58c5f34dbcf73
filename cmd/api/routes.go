package main

import (
	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-storefront/internal/auth"
	"github.com/noah-isme/toko-storefront/internal/catalog"
	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/coupon"
	"github.com/noah-isme/toko-storefront/internal/order"
	"github.com/noah-isme/toko-storefront/internal/ratelimit"
	"github.com/noah-isme/toko-storefront/internal/shipping"
)

// apiRoutes holds the handlers and middleware mounted under /api/v1.
type apiRoutes struct {
	Catalog  *catalog.Handler
	Shipping *shipping.Handler
	Coupons  *coupon.Handler
	Orders   *order.Handler

	Auth auth.Middleware
	Idem common.Idem
	// ValidateLimit guards every endpoint that reveals whether a coupon code exists.
	ValidateLimit ratelimit.Handler
}

func (a apiRoutes) mount(v chi.Router) {
	adminOnly := auth.RequireRole(auth.RoleAdmin)

	v.Get("/products", a.Catalog.ListProducts)
	v.Get("/categories", a.Catalog.ListCategories)

	v.Get("/shipping/config", a.Shipping.Get)
	v.With(a.Auth.RequireAuth, adminOnly).Put("/shipping/config", a.Shipping.Update)

	v.Get("/discount-coupons/public", a.Coupons.ListPublic)
	v.With(a.Auth.RequireAuth, a.ValidateLimit.Middleware).Post("/discount-coupons/validate", a.Coupons.Validate)

	v.With(a.ValidateLimit.Middleware).Post("/pricing/quote", a.Orders.Quote)

	v.Group(func(authR chi.Router) {
		authR.Use(a.Auth.RequireAuth)
		authR.With(a.Idem.Middleware).Post("/orders", a.Orders.Place)
		authR.Get("/orders", a.Orders.ListMine)
		authR.Get("/orders/{id}", a.Orders.Get)
	})

	v.Route("/admin", func(admin chi.Router) {
		admin.Use(a.Auth.RequireAuth)
		admin.Use(adminOnly)
		admin.Route("/discount-coupons", func(c chi.Router) {
			c.Get("/", a.Coupons.List)
			c.Post("/", a.Coupons.Create)
			c.Get("/{id}", a.Coupons.Get)
			c.Put("/{id}", a.Coupons.Update)
			c.Delete("/{id}", a.Coupons.Delete)
		})
		admin.Get("/orders", a.Orders.ListAll)
	})
}
