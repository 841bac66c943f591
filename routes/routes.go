package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/llm-router-lab/app"
	"github.com/upb/llm-router-lab/handlers"
	"github.com/upb/llm-router-lab/internal/observability"
	"github.com/upb/llm-router-lab/internal/shared"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	timeout := deps.Config.Server.WriteTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	r.Use(middleware.Timeout(timeout))

	origins := deps.Config.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	var stats func() observability.Stats
	if deps.Config.Observability.MetricsEnabled {
		stats = deps.Metrics.Snapshot
	}

	health := handlers.NewHealthHandler(map[string]handlers.ReadinessCheck{
		"backends": func() error {
			if deps.Models.Len() == 0 {
				return errors.New("no backends registered")
			}
			return nil
		},
	}, deps.Logger)
	route := handlers.NewRouteHandler(deps.Router, deps.Logger)
	var uploader handlers.Uploader
	if deps.Uploader != nil {
		uploader = deps.Uploader
	}
	generate := handlers.NewGenerateHandler(deps.Pipeline, uploader, deps.Logger)
	catalog := handlers.NewCatalogHandler(deps.Router, deps.Models, deps.Evaluators, stats, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/route", route.HandleRoute)
		r.Post("/generate", generate.HandleGenerate)
		r.Get("/models", catalog.HandleCatalog)
		r.Get("/stats", catalog.HandleStats)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}

// requestLogger tags the request context with its id and logs each request once it
// completes.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := middleware.GetReqID(r.Context())
			if id == "" {
				id = uuid.NewString()
			}
			ctx := shared.WithRequestID(r.Context(), id)
			w.Header().Set("X-Request-ID", id)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))

			logger.Info("request",
				zap.String("request_id", id),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
