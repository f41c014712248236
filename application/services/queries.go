package services

import (
	"projectgraph/domain/core/aggregates"
	"projectgraph/domain/core/entities"
	domainservices "projectgraph/domain/services"
)

func cloneNodes(nodes []*entities.Node) []*entities.Node {
	out := make([]*entities.Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Clone())
	}
	return out
}

func cloneRelationships(rels []*entities.Relationship) []*entities.Relationship {
	out := make([]*entities.Relationship, 0, len(rels))
	for _, r := range rels {
		out = append(out, r.Clone())
	}
	return out
}

// GetNodeByID returns a copy of the node, or nil.
func (e *GraphEngine) GetNodeByID(id string) *entities.Node {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.graph == nil {
		return nil
	}
	if n := e.graph.Node(id); n != nil {
		return n.Clone()
	}
	return nil
}

// GetNodesByType returns copies of the nodes of one kind.
func (e *GraphEngine) GetNodesByType(kind entities.NodeKind) []*entities.Node {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.graph == nil {
		return []*entities.Node{}
	}
	return cloneNodes(e.graph.NodesOfKind(kind))
}

// GetRelationshipsForNode returns copies of the relationships touching id.
func (e *GraphEngine) GetRelationshipsForNode(id string) []*entities.Relationship {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.graph == nil {
		return []*entities.Relationship{}
	}
	return cloneRelationships(e.graph.RelationshipsFor(id))
}

// GetConnectedNodes returns the nodes at the other end of id's
// relationships. Dangling endpoints are skipped.
func (e *GraphEngine) GetConnectedNodes(id string) []*entities.Node {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.graph == nil {
		return []*entities.Node{}
	}
	return cloneNodes(e.graph.ConnectedNodes(id))
}

// SearchNodes matches query case-insensitively against names and descriptions.
func (e *GraphEngine) SearchNodes(query string) []*entities.Node {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.graph == nil {
		return []*entities.Node{}
	}
	return cloneNodes(e.graph.Search(query))
}

// Stats returns the derived statistics of the active graph.
func (e *GraphEngine) Stats() aggregates.GraphStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.graph == nil {
		return aggregates.GraphStats{}
	}
	return e.graph.Stats()
}

// CalculateGraphComplexity is the canonical score, in [0, 100].
func (e *GraphEngine) CalculateGraphComplexity() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.graph == nil {
		return 0
	}
	return domainservices.ComplexityScore(e.graph.NodeCount(), e.graph.RelationshipCount())
}

// CalculateWeightedComplexity is the alternative kind-weighted score.
func (e *GraphEngine) CalculateWeightedComplexity() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.graph == nil {
		return 0
	}
	return e.analytics.WeightedComplexity(e.graph)
}

// Clusters returns the connected components of the active graph.
func (e *GraphEngine) Clusters() [][]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.graph == nil {
		return nil
	}
	return e.analytics.GetClusters(e.graph)
}

// NodeDegree counts the relationships entering and leaving id. ok is false
// when the node does not exist.
func (e *GraphEngine) NodeDegree(id string) (inDegree, outDegree int, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.graph == nil || e.graph.Node(id) == nil {
		return 0, 0, false
	}
	inDegree, outDegree = e.analytics.GetNodeDegree(e.graph, id)
	return inDegree, outDegree, true
}

// OrphanedNodes returns the ids of nodes that no relationship touches.
func (e *GraphEngine) OrphanedNodes() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.graph == nil {
		return []string{}
	}
	orphans := e.analytics.FindOrphanedNodes(e.graph)
	if orphans == nil {
		orphans = []string{}
	}
	return orphans
}
