package api

import (
	"github.com/go-chi/chi/v5"
)

// setupAPIRoutes sets up API v1 routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Health check
	r.Get("/health", s.HandleHealth)
	r.Get("/", s.HandleRoot)

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.HandleLogin)
		r.Post("/refresh", s.HandleRefresh)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		// Users
		r.Route("/users", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/", s.HandleCreateUser)
			r.Get("/me", s.HandleGetCurrentUser)
			r.Get("/{id}", s.HandleGetUser)
		})

		// Tenants
		r.Route("/tenants", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListTenants)
			r.Post("/", s.HandleCreateTenant)
			r.Get("/active", s.HandleListActiveTenants)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetTenant)
				r.Put("/", s.HandleUpdateTenant)
				r.Delete("/", s.HandleDeleteTenant)
				r.Get("/stats", s.HandleGetTenantStats)
				r.Post("/reload", s.HandleReloadTenant)
				r.Post("/notify", s.HandleSendNotification)

				// Catalog
				r.Route("/catalog", func(r chi.Router) {
					r.Get("/", s.HandleListCatalogItems)
					r.Post("/", s.HandleCreateCatalogItem)
					r.Route("/{item_id}", func(r chi.Router) {
						r.Get("/", s.HandleGetCatalogItem)
						r.Put("/", s.HandleUpdateCatalogItem)
						r.Delete("/", s.HandleDeleteCatalogItem)
					})
				})

				// Orders scoped to the tenant
				r.Get("/orders", s.HandleListOrders)
			})
		})

		// Orders
		r.Route("/orders", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/{id}", s.HandleGetOrder)
			r.Put("/{id}/status", s.HandleUpdateOrderStatus)
		})

		// System
		r.Route("/system", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/stats", s.HandleSystemStats)
			r.Post("/clear-cache", s.HandleClearCaches)
		})
	})
}
