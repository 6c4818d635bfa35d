// Package handlers provides HTTP handlers for wallet balances and the wallet journal.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/flexinvest/platform/internal/auth"
	"github.com/flexinvest/platform/internal/domain"
)

// WalletReader is the read side of the ledger store
type WalletReader interface {
	GetWallet(ctx context.Context, userID string) (*domain.Wallet, error)
	ListEntries(ctx context.Context, userID string, limit int) ([]domain.WalletEntry, error)
}

// Handler handles ledger HTTP requests
type Handler struct {
	store WalletReader
	log   zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(
	store WalletReader,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "ledger").Logger(),
	}
}

// HandleGetWallet handles GET /api/user/wallet
func (h *Handler) HandleGetWallet(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "missing authorization")
		return
	}

	wallet, err := h.store.GetWallet(r.Context(), principal.ID)
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "wallet not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("user_id", principal.ID).Msg("Failed to load wallet")
		h.writeError(w, http.StatusInternalServerError, "Failed to load wallet")
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"balance":    wallet.Balance,
			"formatted":  domain.FormatMoney(wallet.Balance),
			"updated_at": wallet.UpdatedAt,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetEntries handles GET /api/user/wallet/entries
func (h *Handler) HandleGetEntries(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "missing authorization")
		return
	}

	limit := 100 // default
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	entries, err := h.store.ListEntries(r.Context(), principal.ID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", principal.ID).Msg("Failed to query wallet entries")
		h.writeError(w, http.StatusInternalServerError, "Failed to query wallet entries")
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"entries": entries,
			"count":   len(entries),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
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
