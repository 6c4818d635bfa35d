package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterPublicRoutes registers sign-up and login
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/admin/login", h.HandleAdminLogin)
}

// RegisterRoutes registers profile routes; r must already require a user token
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/user/profile", h.HandleGetProfile)
	r.Get("/user/bank-account", h.HandleGetBankAccount)
	r.Post("/user/bank-account", h.HandleSaveBankAccount)
}
