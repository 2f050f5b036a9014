// Package api provides the HTTP API server and handlers for the KeepStack application.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/keepstack/keepstack-server/internal/http/response"
	"github.com/keepstack/keepstack-server/internal/service"
)

// Login attempts allowed per IP. Generous for humans, hostile to scripts.
const (
	loginRatePerMinute = 10
	loginBurst         = 5
)

// Batch mutations allowed per IP. Each call can touch up to 100 resources,
// so the window stays tight.
const (
	batchRatePerMinute = 30
	batchBurst         = 10
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	auth         *service.AuthService
	resources    *service.ResourceService
	collections  *service.CollectionService
	tags         *service.TagService
	references   *service.ReferenceService
	search       *service.SearchService
	stats        *service.StatsService
	maintenance  *service.MaintenanceService
	loginLimiter *RateLimiter
	batchLimiter *RateLimiter
	router       *chi.Mux
	logger       *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	auth *service.AuthService,
	resources *service.ResourceService,
	collections *service.CollectionService,
	tags *service.TagService,
	references *service.ReferenceService,
	search *service.SearchService,
	stats *service.StatsService,
	maintenance *service.MaintenanceService,
	logger *slog.Logger,
) *Server {
	s := &Server{
		auth:         auth,
		resources:    resources,
		collections:  collections,
		tags:         tags,
		references:   references,
		search:       search,
		stats:        stats,
		maintenance:  maintenance,
		loginLimiter: NewRateLimiter(loginRatePerMinute, time.Minute, loginBurst),
		batchLimiter: NewRateLimiter(batchRatePerMinute, time.Minute, batchBurst),
		router:       chi.NewRouter(),
		logger:       logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases server-held resources.
func (s *Server) Close() {
	s.loginLimiter.Stop()
	s.batchLimiter.Stop()
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth endpoints (public). Login is rate-limited per client IP.
		r.Route("/auth", func(r chi.Router) {
			r.Get("/status", s.handleAuthStatus)
			r.Post("/setup", s.handleSetup)
			r.With(RateLimitMiddleware(s.loginLimiter, s.logger)).Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/logout", s.handleLogout)
		})

		// Everything below requires a valid access token.
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", s.handleGetCurrentUser)
				r.Post("/me/logout-all", s.handleLogoutAll)
			})

			r.Route("/resources", func(r chi.Router) {
				r.Post("/", s.handleCreateResource)
				r.Get("/", s.handleListResources)
				r.With(RateLimitMiddleware(s.batchLimiter, s.logger)).Post("/batch", s.handleBatch)
				r.Get("/{id}", s.handleGetResource)
				r.Patch("/{id}", s.handleUpdateResource)
				r.Delete("/{id}", s.handleDeleteResource)
				r.Post("/{id}/visit", s.handleRecordVisit)
				r.Get("/{id}/references", s.handleListReferences)
			})

			r.Route("/collections", func(r chi.Router) {
				r.Post("/", s.handleCreateCollection)
				r.Get("/", s.handleListCollections)
				r.Get("/{id}", s.handleGetCollection)
				r.Patch("/{id}", s.handleUpdateCollection)
				r.Delete("/{id}", s.handleDeleteCollection)
			})

			r.Route("/tags", func(r chi.Router) {
				r.Post("/", s.handleCreateTag)
				r.Get("/", s.handleListTags)
				r.Get("/popular", s.handlePopularTags)
				r.Get("/{id}", s.handleGetTag)
				r.Patch("/{id}", s.handleUpdateTag)
				r.Delete("/{id}", s.handleDeleteTag)
			})

			r.Route("/references", func(r chi.Router) {
				r.Post("/", s.handleCreateReference)
				r.Delete("/{id}", s.handleDeleteReference)
			})

			r.Route("/search", func(r chi.Router) {
				r.Get("/", s.handleSearch)
				r.Get("/suggestions", s.handleSuggestions)
			})

			r.Get("/stats", s.handleStats)

			r.Route("/admin", func(r chi.Router) {
				r.Post("/reindex", s.handleReindex)
				r.Get("/index/verify", s.handleVerifyIndex)
			})
		})
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}
