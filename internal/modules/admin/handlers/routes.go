package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterAdminRoutes registers back-office routes; r must already require an admin token
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/admin/dashboard", h.HandleGetDashboard)
	r.Get("/admin/users", h.HandleGetUsers)
	r.Post("/admin/credit-wallet", h.HandleCreditWallet)
	r.Get("/admin/reports/investments.xlsx", h.HandleExportInvestments)
}
