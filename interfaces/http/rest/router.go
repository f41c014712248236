// Package rest exposes the active project graph over a read-only HTTP API.
package rest

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"projectgraph/interfaces/http/rest/handlers"
	"projectgraph/interfaces/http/rest/middleware"
	"projectgraph/pkg/observability"
)

// Router creates and configures the HTTP router
type Router struct {
	engine     handlers.GraphReader
	metrics    *observability.Collector
	logger     *zap.Logger
	enableCORS bool
}

// NewRouter creates a new router instance. metrics may be nil.
func NewRouter(engine handlers.GraphReader, metrics *observability.Collector, logger *zap.Logger, enableCORS bool) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		engine:     engine,
		metrics:    metrics,
		logger:     logger,
		enableCORS: enableCORS,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}

	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	if rt.metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	graphHandler := handlers.NewGraphHandler(rt.engine, rt.logger)
	nodeHandler := handlers.NewNodeHandler(rt.engine, rt.logger)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/graph", func(r chi.Router) {
			r.Get("/", graphHandler.GetGraph)
			r.Get("/stats", graphHandler.GetStats)
			r.Get("/export", graphHandler.Export)
		})

		r.Route("/graphs", func(r chi.Router) {
			r.Get("/", graphHandler.ListGraphs)
			r.Get("/{graphID}/backups", graphHandler.ListBackups)
		})

		r.Route("/nodes", func(r chi.Router) {
			r.Get("/", nodeHandler.ListNodes)
			r.Get("/{nodeID}", nodeHandler.GetNode)
			r.Get("/{nodeID}/relationships", nodeHandler.GetRelationships)
			r.Get("/{nodeID}/connected", nodeHandler.GetConnected)
			r.Get("/{nodeID}/degree", nodeHandler.GetDegree)
		})

		r.Get("/search", nodeHandler.Search)
	})

	return router
}

type healthResponse struct {
	Status  string `json:"status"`
	State   string `json:"state"`
	Backend string `json:"backend"`
}

// healthCheck reports liveness plus the engine lifecycle state.
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(healthResponse{
		Status:  "healthy",
		State:   string(rt.engine.State()),
		Backend: rt.engine.BackendName(),
	})
}
