package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/research-mcp/app"
	"github.com/upb/research-mcp/config"
	"github.com/upb/research-mcp/handlers"
	"github.com/upb/research-mcp/middleware"
	"github.com/upb/research-mcp/utils"
)

// defaultRequestTimeout applies when no server write timeout is configured.
const defaultRequestTimeout = 2 * time.Minute

// requestTimeout bounds handlers by the server write deadline; a slower
// handler could not deliver its response anyway.
func requestTimeout(cfg config.ServerConfig) time.Duration {
	if cfg.WriteTimeout > 0 {
		return cfg.WriteTimeout
	}
	return defaultRequestTimeout
}

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestTimeout(deps.Config.Server)))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(deps.Upstream, deps.Logger)
	toolsHandler := handlers.NewToolsHandler(deps.Tools, deps.Logger)
	mcpHandler := handlers.NewMCPHandler(deps.MCP, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	// MCP over HTTP
	r.With(deps.AuthMiddleware.RequireAuth).Post("/mcp", mcpHandler.HandleMessage)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/status", handlers.StatusHandler(app.Version, deps.Config.Environment, deps.Router))

		// Tool endpoints (bearer token when configured)
		r.Route("/tools", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/", toolsHandler.HandleList)
			r.Post("/{name}", toolsHandler.HandleCall)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
