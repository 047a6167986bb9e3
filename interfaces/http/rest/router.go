package rest

import (
	"net/http"

	"ckg-backend/application/commands/bus"
	querybus "ckg-backend/application/queries/bus"
	"ckg-backend/domain/config"
	appconfig "ckg-backend/infrastructure/config"
	"ckg-backend/interfaces/http/rest/handlers"
	"ckg-backend/interfaces/http/rest/middleware"
	"ckg-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	engineCfg  *config.EngineConfig
	metrics    *observability.Metrics
	cfg        *appconfig.Config
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	engineCfg *config.EngineConfig,
	metrics *observability.Metrics,
	cfg *appconfig.Config,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		engineCfg:  engineCfg,
		metrics:    metrics,
		cfg:        cfg,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	// Health and observability endpoints
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.NewRateLimiter(rt.cfg.RateLimitPerMinute).Handler)

		r.Route("/projects/{ref}", func(r chi.Router) {
			projectHandler := handlers.NewProjectHandler(rt.commandBus, rt.logger)
			r.Post("/scan", projectHandler.IngestScan)
			r.Delete("/", projectHandler.DeleteProject)
			r.Post("/diagnostics", projectHandler.StoreDiagnostics)

			queryHandler := handlers.NewQueryHandler(rt.queryBus, rt.engineCfg, rt.logger)
			r.Get("/dependencies", queryHandler.DependencyGraph)
			r.Get("/search", queryHandler.SearchCode)
			r.Get("/definitions", queryHandler.FindDefinitions)
			r.Get("/references", queryHandler.FindReferences)
			r.Get("/diagnostics", queryHandler.ListDiagnostics)
			r.Get("/stats", queryHandler.ProjectStats)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
