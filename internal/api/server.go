// Package api provides the HTTP API server and handlers for the eLibrary lending backend.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/elibrary/elibrary-server/internal/ratelimit"
	"github.com/elibrary/elibrary-server/internal/store"
)

// Options tunes the HTTP surface.
type Options struct {
	// CORSOrigins lists the browser origins allowed to call the API. Empty allows any.
	CORSOrigins []string
	// AuthRateLimiter throttles the login and register operations per client IP.
	// Nil disables throttling.
	AuthRateLimiter *ratelimit.KeyedRateLimiter
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store           store.Store
	services        *Services
	router          chi.Router
	api             huma.API
	logger          *slog.Logger
	authRateLimiter *ratelimit.KeyedRateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st store.Store, services *Services, opts Options, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(corsOptions(opts.CORSOrigins)))
	router.Use(authMiddleware(services.Auth))

	api := humachi.New(router, NewHumaConfig())
	RegisterErrorHandler()

	s := &Server{
		store:           st,
		services:        services,
		router:          router,
		api:             api,
		logger:          logger,
		authRateLimiter: opts.AuthRateLimiter,
	}

	s.registerRoutes()
	return s
}

// NewHumaConfig returns the OpenAPI configuration with bearer security and the
// success envelope installed.
func NewHumaConfig() huma.Config {
	cfg := huma.DefaultConfig("eLibrary API", "1.0.0")
	cfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	cfg.Transformers = append(cfg.Transformers, EnvelopeTransformer)
	return cfg
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           int((12 * time.Hour).Seconds()),
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, used by tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerBookRoutes()
	s.registerLoanRoutes()
	s.registerUserRoutes()
	s.registerAdminRoutes()
}

// bearer marks an operation as requiring the bearer token in the OpenAPI document.
var bearer = []map[string][]string{{"bearer": {}}}
