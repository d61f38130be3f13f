// Package web provides the HTTP API for accounts, feed uploads, mappings,
// stored products, the marketplace catalog and product export.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/feeduploader/internal/config"
	"github.com/JonMunkholm/feeduploader/internal/core"
	"github.com/JonMunkholm/feeduploader/internal/web/middleware"
)

// Server is the HTTP server.
type Server struct {
	service  *core.Service
	accounts *core.Accounts
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server
	health   func(context.Context) error

	limiters []*middleware.RateLimiter
}

// Option configures a Server.
type Option func(*Server)

// WithHealthCheck adds a dependency probe to GET /health, typically a
// database ping.
func WithHealthCheck(fn func(context.Context) error) Option {
	return func(s *Server) { s.health = fn }
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, accounts *core.Accounts, cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		service:  service,
		accounts: accounts,
		cfg:      cfg,
		router:   chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newLimiter(s.cfg.Rate.RequestsPerMinute).Middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Registration and sign-in are the only routes without a token.
		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
			r.Post("/users/register", s.handleRegister)
			r.Post("/users/login", s.handleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(&s.cfg.Security))

			// Uploads run under the service's own timeout, not the request timeout.
			r.Group(func(r chi.Router) {
				if s.cfg.Rate.Enabled {
					r.Use(s.newLimiter(s.cfg.Rate.UploadLimit).Middleware)
				}
				r.Post("/feed/upload", s.handleUpload)
				r.Post("/feed/preview", s.handlePreview)
			})

			r.Group(func(r chi.Router) {
				r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

				r.Post("/feed/export", s.handleExport)
				r.Delete("/feed/clear", s.handleClear)
				r.Get("/feed/uploads", s.handleListUploads)
				r.Delete("/feed/uploads/{uploadID}", s.handleCancelUpload)

				r.Get("/mappings", s.handleListMappings)
				r.Post("/mappings", s.handleSaveMapping)
				r.Post("/mappings/check", s.handleCheckMapping)
				r.Get("/mappings/{market}", s.handleMarketMappings)

				r.Get("/catalog", s.handleGetCatalog)
				r.Post("/catalog", s.handleLoadCatalog)

				r.Get("/products", s.handleListProducts)
				r.Get("/products/{productID}", s.handleGetProduct)
				r.Delete("/products/{productID}", s.handleDeleteProduct)

				r.Get("/users", s.handleListUsers)
				r.Get("/users/{userID}", s.handleGetUser)
				r.Delete("/users/{userID}", s.handleDeleteUser)
			})
		})
	})
}

func (s *Server) newLimiter(perMinute int) *middleware.RateLimiter {
	rl := middleware.NewRateLimiter(perMinute)
	s.limiters = append(s.limiters, rl)
	return rl
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.Stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":            "ok",
		"uploads":           s.service.LimiterStatus(),
		"catalogAttributes": len(s.service.Catalog()),
		"time":              time.Now().UTC().Format(time.RFC3339),
	}
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			status["status"] = "degraded"
			status["error"] = core.MapError(err).Message
			writeJSON(w, r, http.StatusServiceUnavailable, status)
			return
		}
	}
	writeJSON(w, r, http.StatusOK, status)
}
