package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers customer routes; r must already require a user token
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/withdrawals/create", h.HandleCreate)
	r.Get("/withdrawals/history", h.HandleGetHistory)
}

// RegisterAdminRoutes registers review routes; r must already require an admin token
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/admin/withdrawals", h.HandleList)
	r.Put("/admin/withdrawals/{id}", h.HandleDecide)
}
