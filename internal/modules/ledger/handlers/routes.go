package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers wallet routes; r must already require a user token
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/user/wallet", func(r chi.Router) {
		r.Get("/", h.HandleGetWallet)
		r.Get("/entries", h.HandleGetEntries)
	})
}
