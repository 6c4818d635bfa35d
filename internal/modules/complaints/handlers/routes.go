package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterPublicRoutes registers routes that need no token
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/support/links", h.HandleGetSupportLinks)
}

// RegisterRoutes registers customer routes; r must already require a user token
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/complaints/create", h.HandleCreate)
	r.Get("/complaints/history", h.HandleGetHistory)
}

// RegisterAdminRoutes registers support desk routes; r must already require an admin token
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/admin/complaints", h.HandleList)
	r.Put("/admin/complaints/{id}", h.HandleRespond)
}
