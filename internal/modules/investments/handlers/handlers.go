// Package handlers provides HTTP handlers for packages, subscriptions and
// accrual runs.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/flexinvest/platform/internal/auth"
	"github.com/flexinvest/platform/internal/domain"
	"github.com/flexinvest/platform/internal/modules/investments"
)

// InvestmentService is the subscription surface used by the handlers
type InvestmentService interface {
	Packages() []domain.Package
	Subscribe(ctx context.Context, userID, packageID string) (*domain.Investment, error)
	Active(ctx context.Context, userID string) ([]domain.Investment, error)
	History(ctx context.Context, userID string) ([]domain.Investment, error)
	Runs(ctx context.Context, limit int) ([]investments.RunSummary, error)
}

// manualRunTimeout bounds an admin-triggered run
const manualRunTimeout = 30 * time.Minute

// AccrualRunner triggers an accrual batch on demand
type AccrualRunner interface {
	Run(ctx context.Context, trigger investments.Trigger) (*investments.RunSummary, error)
}

// Handler handles investment HTTP requests
type Handler struct {
	service  InvestmentService
	runner   AccrualRunner
	validate *validator.Validate
	log      zerolog.Logger
}

// NewHandler creates a new investments handler
func NewHandler(
	service InvestmentService,
	runner AccrualRunner,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:  service,
		runner:   runner,
		validate: validator.New(),
		log:      log.With().Str("handler", "investments").Logger(),
	}
}

type subscribeRequest struct {
	PackageID string `json:"package_id" validate:"required"`
}

// HandleGetPackages handles GET /api/investments/packages
func (h *Handler) HandleGetPackages(w http.ResponseWriter, r *http.Request) {
	packages := h.service.Packages()
	h.writeData(w, http.StatusOK, map[string]interface{}{
		"packages": packages,
		"count":    len(packages),
	})
}

// HandleSubscribe handles POST /api/investments/subscribe
func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "missing authorization")
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "package_id is required")
		return
	}

	inv, err := h.service.Subscribe(r.Context(), principal.ID, req.PackageID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to subscribe")
		return
	}

	h.writeData(w, http.StatusCreated, inv)
}

// HandleGetActive handles GET /api/investments/active
func (h *Handler) HandleGetActive(w http.ResponseWriter, r *http.Request) {
	h.listInvestments(w, r, h.service.Active)
}

// HandleGetHistory handles GET /api/investments/history
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	h.listInvestments(w, r, h.service.History)
}

func (h *Handler) listInvestments(w http.ResponseWriter, r *http.Request, list func(context.Context, string) ([]domain.Investment, error)) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "missing authorization")
		return
	}

	items, err := list(r.Context(), principal.ID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list investments")
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"investments": items,
		"count":       len(items),
	})
}

// HandleRunAccrual handles POST /api/admin/accrual/run
func (h *Handler) HandleRunAccrual(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFrom(r.Context())

	// Detached from the request: the router timeout or a dropped client must
	// not abort a batch half way
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), manualRunTimeout)
	defer cancel()

	summary, err := h.runner.Run(ctx, investments.TriggerManual)
	if err != nil && summary == nil {
		h.writeServiceError(w, err, "Accrual run failed")
		return
	}

	event := h.log.Info()
	if summary.Status == investments.RunAborted {
		event = h.log.Error().Err(err)
	}
	if principal != nil {
		event = event.Str("admin_id", principal.ID)
	}
	event.Str("run_id", summary.ID).Str("status", string(summary.Status)).Msg("Manual accrual run finished")

	if summary.Status == investments.RunAborted {
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": "Accrual run aborted",
			"data":  summary,
		})
		return
	}

	h.writeData(w, http.StatusOK, summary)
}

// HandleGetRuns handles GET /api/admin/accrual/runs
func (h *Handler) HandleGetRuns(w http.ResponseWriter, r *http.Request) {
	limit := 30 // default
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	runs, err := h.service.Runs(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list accrual runs")
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds), errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPackageNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRunInProgress), errors.Is(err, domain.ErrAlreadyRanToday):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg(fallback)
		h.writeError(w, status, fallback)
		return
	}
	h.writeError(w, status, publicMessage(err))
}

// publicMessage returns the sentinel text without internal wrapping
func publicMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrInsufficientFunds,
		domain.ErrInvalidAmount,
		domain.ErrPackageNotFound,
		domain.ErrNotFound,
		domain.ErrRunInProgress,
		domain.ErrAlreadyRanToday,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
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
