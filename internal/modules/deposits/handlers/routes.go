package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterPublicRoutes registers routes that need no token
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/deposits/company-bank", h.HandleGetCompanyBank)
}

// RegisterRoutes registers customer routes; r must already require a user token
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/deposits/create", h.HandleCreate)
	r.Get("/deposits/history", h.HandleGetHistory)
}

// RegisterAdminRoutes registers review routes; r must already require an admin token
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/admin/deposits", h.HandleList)
	r.Put("/admin/deposits/{id}", h.HandleDecide)
}
