package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

type contextKey struct{}

// WithPrincipal returns a copy of ctx carrying p
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFrom returns the authenticated principal, if any
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(*Principal)
	return p, ok && p != nil
}

// Verifier is the subset of TokenService the middleware needs
type Verifier interface {
	Verify(token string) (*Principal, error)
}

// Middleware guards routes by bearer token and role
type Middleware struct {
	verifier Verifier
	log      zerolog.Logger
}

// NewMiddleware creates auth middleware
func NewMiddleware(verifier Verifier, log zerolog.Logger) *Middleware {
	return &Middleware{
		verifier: verifier,
		log:      log.With().Str("component", "auth").Logger(),
	}
}

// RequireUser admits any authenticated customer
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return m.require(false, next)
}

// RequireAdmin admits admin and superadmin roles only
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return m.require(true, next)
}

func (m *Middleware) require(admin bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization")
			return
		}

		principal, err := m.verifier.Verify(token)
		if err != nil {
			m.log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected token")
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		if admin != principal.Role.IsAdmin() {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	// Browsers cannot set headers on WebSocket upgrades
	if r.Header.Get("Upgrade") != "" {
		return r.URL.Query().Get("token")
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
