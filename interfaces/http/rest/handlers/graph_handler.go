package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"projectgraph/application/ports"
	"projectgraph/application/services"
	"projectgraph/domain/core/aggregates"
	"projectgraph/domain/core/entities"
	apperrors "projectgraph/pkg/errors"
)

// GraphReader is the read side of the graph engine.
type GraphReader interface {
	State() services.EngineState
	BackendName() string
	Snapshot() *aggregates.Graph
	Stats() aggregates.GraphStats
	CalculateGraphComplexity() int
	CalculateWeightedComplexity() int
	Clusters() [][]string
	OrphanedNodes() []string
	ExportGraph(ctx context.Context, format ports.ExportFormat) ([]byte, error)
	ListGraphs(ctx context.Context) []ports.GraphSummary
	ListBackups(ctx context.Context, id string) []ports.BackupInfo

	GetNodeByID(id string) *entities.Node
	NodeDegree(id string) (inDegree, outDegree int, ok bool)
	GetNodesByType(kind entities.NodeKind) []*entities.Node
	GetRelationshipsForNode(id string) []*entities.Relationship
	GetConnectedNodes(id string) []*entities.Node
	SearchNodes(query string) []*entities.Node
}

var _ GraphReader = (*services.GraphEngine)(nil)

// GraphHandler handles graph-related HTTP requests
type GraphHandler struct {
	engine GraphReader
	logger *zap.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(engine GraphReader, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{engine: engine, logger: logger}
}

// StatsResponse reports both complexity statistics side by side.
type StatsResponse struct {
	aggregates.GraphStats
	WeightedComplexity int        `json:"weightedComplexity"`
	Clusters           [][]string `json:"clusters"`
	Orphans            []string   `json:"orphans"`
}

// GetGraph handles GET /graph
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	snapshot := h.engine.Snapshot()
	if snapshot == nil {
		respondDomainError(w, h.logger, apperrors.ErrNoActiveGraph)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// GetStats handles GET /graph/stats
func (h *GraphHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if h.engine.State() == services.StateUninitialized {
		respondDomainError(w, h.logger, apperrors.ErrNoActiveGraph)
		return
	}
	stats := h.engine.Stats()
	stats.Complexity = h.engine.CalculateGraphComplexity()
	clusters := h.engine.Clusters()
	if clusters == nil {
		clusters = [][]string{}
	}
	respondJSON(w, http.StatusOK, StatsResponse{
		GraphStats:         stats,
		WeightedComplexity: h.engine.CalculateWeightedComplexity(),
		Clusters:           clusters,
		Orphans:            h.engine.OrphanedNodes(),
	})
}

// Export handles GET /graph/export?format=json|yaml
func (h *GraphHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := ports.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = ports.FormatJSON
	}
	data, err := h.engine.ExportGraph(r.Context(), format)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	contentType := "application/json"
	if format == ports.FormatYAML {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ListGraphs handles GET /graphs
func (h *GraphHandler) ListGraphs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"backend": h.engine.BackendName(),
		"graphs":  h.engine.ListGraphs(r.Context()),
	})
}

// ListBackups handles GET /graphs/{graphID}/backups
func (h *GraphHandler) ListBackups(w http.ResponseWriter, r *http.Request) {
	graphID := chi.URLParam(r, "graphID")
	if !h.hasGraph(r.Context(), graphID) {
		respondDomainError(w, h.logger, apperrors.ErrGraphNotFound.Clone().WithDetail("id", graphID))
		return
	}
	backups := h.engine.ListBackups(r.Context(), graphID)
	if backups == nil {
		backups = []ports.BackupInfo{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"graphId": graphID,
		"backups": backups,
	})
}

func (h *GraphHandler) hasGraph(ctx context.Context, graphID string) bool {
	for _, g := range h.engine.ListGraphs(ctx) {
		if g.ID == graphID {
			return true
		}
	}
	return false
}
