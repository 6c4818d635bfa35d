// Package handlers provides HTTP handlers for sign-up, login and the user profile.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/flexinvest/platform/internal/auth"
	"github.com/flexinvest/platform/internal/domain"
	"github.com/flexinvest/platform/internal/modules/accounts"
)

// AccountService is the accounts surface used by the handlers
type AccountService interface {
	Register(ctx context.Context, in accounts.RegisterInput) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*accounts.Session, error)
	AuthenticateAdmin(ctx context.Context, email, password string) (*accounts.Session, error)
	Profile(ctx context.Context, userID string) (*accounts.Profile, error)
	SaveBankAccount(ctx context.Context, userID string, in accounts.BankAccountInput) (*domain.BankAccount, error)
	BankAccount(ctx context.Context, userID string) (*domain.BankAccount, error)
}

// Handler handles account HTTP requests
type Handler struct {
	service AccountService
	log     zerolog.Logger
}

// NewHandler creates a new accounts handler
func NewHandler(service AccountService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "accounts").Logger(),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister handles POST /api/auth/register
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req accounts.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to register")
		return
	}

	h.writeData(w, http.StatusCreated, user)
}

// HandleLogin handles POST /api/auth/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.service.Authenticate)
}

// HandleAdminLogin handles POST /api/admin/login
func (h *Handler) HandleAdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.service.AuthenticateAdmin)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, authenticate func(context.Context, string, string) (*accounts.Session, error)) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	session, err := authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, err, "Failed to log in")
		return
	}

	h.writeData(w, http.StatusOK, session)
}

// HandleGetProfile handles GET /api/user/profile
func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "missing authorization")
		return
	}

	profile, err := h.service.Profile(r.Context(), principal.ID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to load profile")
		return
	}

	h.writeData(w, http.StatusOK, profile)
}

// HandleSaveBankAccount handles POST /api/user/bank-account
func (h *Handler) HandleSaveBankAccount(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "missing authorization")
		return
	}

	var req accounts.BankAccountInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := h.service.SaveBankAccount(r.Context(), principal.ID, req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to save bank account")
		return
	}

	h.writeData(w, http.StatusOK, account)
}

// HandleGetBankAccount handles GET /api/user/bank-account
func (h *Handler) HandleGetBankAccount(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "missing authorization")
		return
	}

	account, err := h.service.BankAccount(r.Context(), principal.ID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to load bank account")
		return
	}

	h.writeData(w, http.StatusOK, account)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrEmailTaken):
		h.writeError(w, http.StatusConflict, domain.ErrEmailTaken.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		h.writeError(w, http.StatusUnauthorized, domain.ErrInvalidCredentials.Error())
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
