// Package handlers provides HTTP handlers for withdrawal requests.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/flexinvest/platform/internal/auth"
	"github.com/flexinvest/platform/internal/domain"
)

// WithdrawalService is the withdrawal surface used by the handlers
type WithdrawalService interface {
	Create(ctx context.Context, userID string, amount decimal.Decimal) (*domain.Withdrawal, error)
	History(ctx context.Context, userID string) ([]domain.Withdrawal, error)
	List(ctx context.Context, status domain.RequestStatus) ([]domain.Withdrawal, error)
	Decide(ctx context.Context, id string, decision domain.Decision, note string) (*domain.Withdrawal, error)
}

// Handler handles withdrawal HTTP requests
type Handler struct {
	service WithdrawalService
	log     zerolog.Logger
}

// NewHandler creates a new withdrawals handler
func NewHandler(service WithdrawalService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "withdrawals").Logger(),
	}
}

type createRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type decideRequest struct {
	Status    domain.Decision `json:"status"`
	AdminNote string          `json:"admin_note"`
}

// HandleCreate handles POST /api/withdrawals/create
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "missing authorization")
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	withdrawal, err := h.service.Create(r.Context(), principal.ID, req.Amount)
	if err != nil {
		h.writeServiceError(w, err, "Failed to create withdrawal")
		return
	}

	h.writeData(w, http.StatusCreated, withdrawal)
}

// HandleGetHistory handles GET /api/withdrawals/history
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "missing authorization")
		return
	}

	items, err := h.service.History(r.Context(), principal.ID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list withdrawals")
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"withdrawals": items,
		"count":       len(items),
	})
}

// HandleList handles GET /api/admin/withdrawals?status=pending
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	status := domain.RequestStatus(r.URL.Query().Get("status"))
	switch status {
	case "", domain.RequestPending, domain.RequestApproved, domain.RequestRejected:
	default:
		h.writeError(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	items, err := h.service.List(r.Context(), status)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list withdrawals")
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"withdrawals": items,
		"count":       len(items),
	})
}

// HandleDecide handles PUT /api/admin/withdrawals/{id}
func (h *Handler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	withdrawal, err := h.service.Decide(r.Context(), id, req.Status, req.AdminNote)
	if err != nil {
		h.writeServiceError(w, err, "Failed to decide withdrawal")
		return
	}

	h.writeData(w, http.StatusOK, withdrawal)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	for _, known := range []struct {
		err    error
		status int
	}{
		{domain.ErrInvalidAmount, http.StatusBadRequest},
		{domain.ErrInvalidDecision, http.StatusBadRequest},
		{domain.ErrInsufficientFunds, http.StatusBadRequest},
		{domain.ErrBankAccountRequired, http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrAlreadyProcessed, http.StatusConflict},
	} {
		if errors.Is(err, known.err) {
			h.writeError(w, known.status, known.err.Error())
			return
		}
	}

	h.log.Error().Err(err).Msg(fallback)
	h.writeError(w, http.StatusInternalServerError, fallback)
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
