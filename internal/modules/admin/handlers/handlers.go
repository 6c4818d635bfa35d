// Package handlers provides HTTP handlers for the back office.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/flexinvest/platform/internal/domain"
	"github.com/flexinvest/platform/internal/modules/admin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminService is the back-office surface used by the handlers
type AdminService interface {
	Dashboard(ctx context.Context) (*admin.Dashboard, error)
	Users(ctx context.Context) ([]admin.UserSummary, error)
	CreditWallet(ctx context.Context, userID string, amount decimal.Decimal, note string) (*admin.CreditResult, error)
	ExportInvestments(ctx context.Context, w io.Writer) error
}

// Handler handles back-office HTTP requests
type Handler struct {
	service  AdminService
	validate *validator.Validate
	log      zerolog.Logger
}

// NewHandler creates a new admin handler
func NewHandler(service AdminService, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		log:      log.With().Str("handler", "admin").Logger(),
	}
}

type creditRequest struct {
	UserID string          `json:"user_id" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note" validate:"max=500"`
}

// HandleGetDashboard handles GET /api/admin/dashboard
func (h *Handler) HandleGetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Failed to load dashboard")
		return
	}
	h.writeData(w, http.StatusOK, d)
}

// HandleGetUsers handles GET /api/admin/users
func (h *Handler) HandleGetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.Users(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Failed to list users")
		return
	}
	h.writeData(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"count": len(users),
	})
}

// HandleCreditWallet handles POST /api/admin/credit-wallet
func (h *Handler) HandleCreditWallet(w http.ResponseWriter, r *http.Request) {
	var req creditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "user_id is required and note must be at most 500 characters")
		return
	}

	result, err := h.service.CreditWallet(r.Context(), req.UserID, req.Amount, req.Note)
	if err != nil {
		h.writeServiceError(w, err, "Failed to credit wallet")
		return
	}
	h.writeData(w, http.StatusOK, result)
}

// HandleExportInvestments handles GET /api/admin/reports/investments.xlsx
func (h *Handler) HandleExportInvestments(w http.ResponseWriter, r *http.Request) {
	// Buffered so a failure can still produce a JSON error
	var buf bytes.Buffer
	if err := h.service.ExportInvestments(r.Context(), &buf); err != nil {
		h.writeServiceError(w, err, "Failed to export investments")
		return
	}

	filename := fmt.Sprintf("investments-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.log.Error().Err(err).Msg("Failed to write investment report")
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
	default:
		h.log.Error().Err(err).Msg(fallback)
		h.writeError(w, http.StatusInternalServerError, fallback)
	}
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
