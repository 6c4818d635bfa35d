package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterPublicRoutes registers routes that need no token
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/investments/packages", h.HandleGetPackages)
}

// RegisterRoutes registers customer routes; r must already require a user token
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/investments/subscribe", h.HandleSubscribe)
	r.Get("/investments/active", h.HandleGetActive)
	r.Get("/investments/history", h.HandleGetHistory)
}

// RegisterAdminRoutes registers accrual controls; r must already require an admin token
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/admin/accrual/run", h.HandleRunAccrual)
	r.Get("/admin/accrual/runs", h.HandleGetRuns)
}
