package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"projectgraph/domain/core/entities"
	apperrors "projectgraph/pkg/errors"
)

// NodeHandler serves node queries against the active graph.
type NodeHandler struct {
	engine GraphReader
	logger *zap.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(engine GraphReader, logger *zap.Logger) *NodeHandler {
	return &NodeHandler{engine: engine, logger: logger}
}

// ListNodes handles GET /nodes with an optional ?kind= filter.
func (h *NodeHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	kind := entities.NodeKind(r.URL.Query().Get("kind"))
	if kind == "" {
		snapshot := h.engine.Snapshot()
		if snapshot == nil {
			respondDomainError(w, h.logger, apperrors.ErrNoActiveGraph)
			return
		}
		respondJSON(w, http.StatusOK, snapshot.Nodes)
		return
	}
	if !kind.IsValid() {
		respondDomainError(w, h.logger,
			apperrors.NewFieldError("kind", "node_kind", "unknown node kind "+string(kind)))
		return
	}
	respondJSON(w, http.StatusOK, h.engine.GetNodesByType(kind))
}

// GetNode handles GET /nodes/{nodeID}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	node := h.engine.GetNodeByID(nodeID)
	if node == nil {
		respondDomainError(w, h.logger, apperrors.ErrNodeNotFound.Clone().WithDetail("id", nodeID))
		return
	}
	respondJSON(w, http.StatusOK, node)
}

// DegreeResponse reports how many relationships enter and leave a node.
type DegreeResponse struct {
	NodeID    string `json:"nodeId"`
	InDegree  int    `json:"inDegree"`
	OutDegree int    `json:"outDegree"`
}

// GetDegree handles GET /nodes/{nodeID}/degree
func (h *NodeHandler) GetDegree(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	in, out, ok := h.engine.NodeDegree(nodeID)
	if !ok {
		respondDomainError(w, h.logger, apperrors.ErrNodeNotFound.Clone().WithDetail("id", nodeID))
		return
	}
	respondJSON(w, http.StatusOK, DegreeResponse{NodeID: nodeID, InDegree: in, OutDegree: out})
}

// GetRelationships handles GET /nodes/{nodeID}/relationships
func (h *NodeHandler) GetRelationships(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.GetRelationshipsForNode(chi.URLParam(r, "nodeID")))
}

// GetConnected handles GET /nodes/{nodeID}/connected
func (h *NodeHandler) GetConnected(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.GetConnectedNodes(chi.URLParam(r, "nodeID")))
}

// Search handles GET /search?q=
func (h *NodeHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondError(w, http.StatusBadRequest, "Search query is required")
		return
	}
	respondJSON(w, http.StatusOK, h.engine.SearchNodes(query))
}
