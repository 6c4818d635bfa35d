// Package handlers provides HTTP handlers for support complaints.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/flexinvest/platform/internal/auth"
	"github.com/flexinvest/platform/internal/domain"
	"github.com/flexinvest/platform/internal/modules/complaints"
)

// ComplaintService is the complaint surface used by the handlers
type ComplaintService interface {
	SupportLinks() complaints.SupportLinks
	Create(ctx context.Context, userID, subject, message string) (*domain.Complaint, error)
	History(ctx context.Context, userID string) ([]domain.Complaint, error)
	List(ctx context.Context, status domain.ComplaintStatus) ([]domain.Complaint, error)
	Respond(ctx context.Context, id string, status domain.ComplaintStatus, response string) (*domain.Complaint, error)
}

// Handler handles complaint HTTP requests
type Handler struct {
	service ComplaintService
	log     zerolog.Logger
}

// NewHandler creates a new complaints handler
func NewHandler(service ComplaintService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "complaints").Logger(),
	}
}

type createRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type respondRequest struct {
	Status        domain.ComplaintStatus `json:"status"`
	AdminResponse string                 `json:"admin_response"`
}

// HandleGetSupportLinks handles GET /api/support/links
func (h *Handler) HandleGetSupportLinks(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, h.service.SupportLinks())
}

// HandleCreate handles POST /api/complaints/create
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

	complaint, err := h.service.Create(r.Context(), principal.ID, req.Subject, req.Message)
	if err != nil {
		h.writeServiceError(w, err, "Failed to create complaint")
		return
	}

	h.writeData(w, http.StatusCreated, complaint)
}

// HandleGetHistory handles GET /api/complaints/history
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "missing authorization")
		return
	}

	items, err := h.service.History(r.Context(), principal.ID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list complaints")
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"complaints": items,
		"count":      len(items),
	})
}

// HandleList handles GET /api/admin/complaints?status=open
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), domain.ComplaintStatus(r.URL.Query().Get("status")))
	if err != nil {
		h.writeServiceError(w, err, "Failed to list complaints")
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"complaints": items,
		"count":      len(items),
	})
}

// HandleRespond handles PUT /api/admin/complaints/{id}
func (h *Handler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	complaint, err := h.service.Respond(r.Context(), id, req.Status, req.AdminResponse)
	if err != nil {
		h.writeServiceError(w, err, "Failed to update complaint")
		return
	}

	h.writeData(w, http.StatusOK, complaint)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidStatus):
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
