// Package handlers provides HTTP handlers for deposit requests.
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
	"github.com/flexinvest/platform/internal/modules/deposits"
)

// DepositService is the deposit surface used by the handlers
type DepositService interface {
	CompanyBank() deposits.CompanyBank
	Create(ctx context.Context, userID string, amount decimal.Decimal, proofRef string) (*domain.Deposit, error)
	History(ctx context.Context, userID string) ([]domain.Deposit, error)
	List(ctx context.Context, status domain.RequestStatus) ([]domain.Deposit, error)
	Decide(ctx context.Context, id string, decision domain.Decision, note string) (*domain.Deposit, error)
}

// Handler handles deposit HTTP requests
type Handler struct {
	service DepositService
	log     zerolog.Logger
}

// NewHandler creates a new deposits handler
func NewHandler(service DepositService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "deposits").Logger(),
	}
}

type createRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	ProofRef string          `json:"proof_ref"`
}

type decideRequest struct {
	Status    domain.Decision `json:"status"`
	AdminNote string          `json:"admin_note"`
}

// HandleGetCompanyBank handles GET /api/deposits/company-bank
func (h *Handler) HandleGetCompanyBank(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, h.service.CompanyBank())
}

// HandleCreate handles POST /api/deposits/create
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

	deposit, err := h.service.Create(r.Context(), principal.ID, req.Amount, req.ProofRef)
	if err != nil {
		h.writeServiceError(w, err, "Failed to create deposit")
		return
	}

	h.writeData(w, http.StatusCreated, deposit)
}

// HandleGetHistory handles GET /api/deposits/history
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "missing authorization")
		return
	}

	items, err := h.service.History(r.Context(), principal.ID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list deposits")
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"deposits": items,
		"count":    len(items),
	})
}

// HandleList handles GET /api/admin/deposits?status=pending
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
		h.writeServiceError(w, err, "Failed to list deposits")
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"deposits": items,
		"count":    len(items),
	})
}

// HandleDecide handles PUT /api/admin/deposits/{id}
func (h *Handler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	deposit, err := h.service.Decide(r.Context(), id, req.Status, req.AdminNote)
	if err != nil {
		h.writeServiceError(w, err, "Failed to decide deposit")
		return
	}

	h.writeData(w, http.StatusOK, deposit)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidDecision),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInsufficientFunds):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
	case errors.Is(err, domain.ErrAlreadyProcessed):
		h.writeError(w, http.StatusConflict, domain.ErrAlreadyProcessed.Error())
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
