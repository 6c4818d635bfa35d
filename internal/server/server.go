// Package server provides the HTTP server and routing for the platform API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/flexinvest/platform/internal/auth"
	"github.com/flexinvest/platform/internal/config"
	"github.com/flexinvest/platform/internal/di"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container // DI container with all services
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	auth           *auth.Middleware
	systemHandlers *SystemHandlers
	startedAt      time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		container: cfg.Container,
		auth:      auth.NewMiddleware(cfg.Container.TokenService, cfg.Log),
		startedAt: time.Now(),
	}
	s.systemHandlers = NewSystemHandlers(cfg.Container.LedgerDB, s.startedAt, cfg.Log)

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Router exposes the configured router (tests)
func (s *Server) Router() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Metrics run outside the timeout so timed-out requests are still counted
	s.router.Use(s.container.Metrics.Middleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if s.cfg.RateLimitPerMin > 0 {
		s.router.Use(newIPRateLimiter(s.cfg.RateLimitPerMin, s.log).Middleware)
	}

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	c := s.container

	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", c.Metrics.Handler())

	eventsHandler := NewEventsStreamHandler(c.EventBus, s.log)

	s.router.Route("/api", func(r chi.Router) {
		// Public
		c.AccountHandler.RegisterPublicRoutes(r)
		c.InvestmentHandler.RegisterPublicRoutes(r)
		c.DepositHandler.RegisterPublicRoutes(r)
		c.ComplaintHandler.RegisterPublicRoutes(r)

		// Signed-in users
		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireUser)

			c.AccountHandler.RegisterRoutes(r)
			c.WalletHandler.RegisterRoutes(r)
			c.InvestmentHandler.RegisterRoutes(r)
			c.DepositHandler.RegisterRoutes(r)
			c.WithdrawalHandler.RegisterRoutes(r)
			c.ComplaintHandler.RegisterRoutes(r)
		})

		// Back office
		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireAdmin)

			c.AdminHandler.RegisterAdminRoutes(r)
			c.InvestmentHandler.RegisterAdminRoutes(r)
			c.DepositHandler.RegisterAdminRoutes(r)
			c.WithdrawalHandler.RegisterAdminRoutes(r)
			c.ComplaintHandler.RegisterAdminRoutes(r)

			r.Get("/admin/system/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/admin/events/ws", eventsHandler.ServeHTTP)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
