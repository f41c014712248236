package aggregates

import (
	"time"

	"projectgraph/domain/core/entities"
	apperrors "projectgraph/pkg/errors"
)

// Graph is the aggregate root: a project's nodes, relationships, metadata and
// settings, persisted and loaded as one unit.
//
// Node ids and relationship ids are unique within a graph. Relationship
// endpoints are not required to resolve; queries skip dangling ones.
type Graph struct {
	ID            string                   `json:"id" validate:"required"`
	Name          string                   `json:"name" validate:"required,notblank"`
	Description   string                   `json:"description,omitempty"`
	Version       string                   `json:"version" validate:"required"`
	CreatedAt     time.Time                `json:"createdAt" validate:"required"`
	UpdatedAt     time.Time                `json:"updatedAt" validate:"required"`
	Nodes         []*entities.Node         `json:"nodes"`
	Relationships []*entities.Relationship `json:"relationships"`
	Metadata      GraphMetadata            `json:"metadata"`
	Settings      GraphSettings            `json:"settings"`
}

// GraphMetadata holds descriptive and derived information about the graph.
type GraphMetadata struct {
	AIProvider      string     `json:"aiProvider,omitempty"`
	LastInteraction *time.Time `json:"lastInteraction,omitempty"`
	Tags            []string   `json:"tags"`
	Stats           GraphStats `json:"stats"`
}

// GraphStats is recomputed after every mutation.
type GraphStats struct {
	NodeCount  int `json:"nodeCount" validate:"gte=0"`
	EdgeCount  int `json:"edgeCount" validate:"gte=0"`
	Complexity int `json:"complexity" validate:"gte=0,lte=100"`
}

// GraphSettings controls persistence behaviour.
type GraphSettings struct {
	Autosave            bool   `json:"autosave"`
	PersistenceLocation string `json:"persistenceLocation,omitempty"`
}

// NewGraph creates an empty graph at the given schema version.
func NewGraph(id, name, description, version string, now time.Time) *Graph {
	return &Graph{
		ID:            id,
		Name:          name,
		Description:   description,
		Version:       version,
		CreatedAt:     now,
		UpdatedAt:     now,
		Nodes:         make([]*entities.Node, 0),
		Relationships: make([]*entities.Relationship, 0),
		Metadata: GraphMetadata{
			Tags: make([]string, 0),
		},
	}
}

// Clone returns a deep copy that shares no mutable state with g.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	c := *g
	c.Nodes = make([]*entities.Node, len(g.Nodes))
	for i, n := range g.Nodes {
		c.Nodes[i] = n.Clone()
	}
	c.Relationships = make([]*entities.Relationship, len(g.Relationships))
	for i, r := range g.Relationships {
		c.Relationships[i] = r.Clone()
	}
	if g.Metadata.Tags != nil {
		c.Metadata.Tags = make([]string, len(g.Metadata.Tags))
		copy(c.Metadata.Tags, g.Metadata.Tags)
	}
	if g.Metadata.LastInteraction != nil {
		t := *g.Metadata.LastInteraction
		c.Metadata.LastInteraction = &t
	}
	return &c
}

// Touch stamps the update time.
func (g *Graph) Touch(now time.Time) {
	g.UpdatedAt = now
}

// RecordInteraction stamps the last-interaction time.
func (g *Graph) RecordInteraction(now time.Time) {
	t := now
	g.Metadata.LastInteraction = &t
}

// SetStats replaces the derived statistics.
func (g *Graph) SetStats(stats GraphStats) {
	g.Metadata.Stats = stats
}

// Stats returns the derived statistics.
func (g *Graph) Stats() GraphStats {
	return g.Metadata.Stats
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.Nodes) }

// RelationshipCount returns the number of relationships.
func (g *Graph) RelationshipCount() int { return len(g.Relationships) }

func (g *Graph) nodeIndex(id string) int {
	for i, n := range g.Nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (g *Graph) relationshipIndex(id string) int {
	for i, r := range g.Relationships {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// Node returns the stored node with id, or nil. The pointer is owned by the graph.
func (g *Graph) Node(id string) *entities.Node {
	if i := g.nodeIndex(id); i >= 0 {
		return g.Nodes[i]
	}
	return nil
}

// Relationship returns the stored relationship with id, or nil.
func (g *Graph) Relationship(id string) *entities.Relationship {
	if i := g.relationshipIndex(id); i >= 0 {
		return g.Relationships[i]
	}
	return nil
}

// AddNode appends a node. The id must be unused.
func (g *Graph) AddNode(node *entities.Node) error {
	if g.nodeIndex(node.ID) >= 0 {
		return apperrors.ErrDuplicateNode.Clone().WithDetail("id", node.ID)
	}
	g.Nodes = append(g.Nodes, node)
	return nil
}

// ReplaceNode swaps in node for the stored node with the same id and returns
// the previous value. It returns nil when no such node exists.
func (g *Graph) ReplaceNode(node *entities.Node) *entities.Node {
	i := g.nodeIndex(node.ID)
	if i < 0 {
		return nil
	}
	prev := g.Nodes[i]
	g.Nodes[i] = node
	return prev
}

// RemoveNode deletes a node and every relationship that references it as
// source or target. It returns the removed node (nil if absent) and the
// relationships removed with it.
func (g *Graph) RemoveNode(id string) (*entities.Node, []*entities.Relationship) {
	i := g.nodeIndex(id)
	if i < 0 {
		return nil, nil
	}
	removed := g.Nodes[i]
	g.Nodes = append(g.Nodes[:i:i], g.Nodes[i+1:]...)

	var cascaded []*entities.Relationship
	kept := make([]*entities.Relationship, 0, len(g.Relationships))
	for _, r := range g.Relationships {
		if r.Touches(id) {
			cascaded = append(cascaded, r)
			continue
		}
		kept = append(kept, r)
	}
	g.Relationships = kept
	return removed, cascaded
}

// AddRelationship appends an edge. The id must be unused; endpoints are not checked.
func (g *Graph) AddRelationship(rel *entities.Relationship) error {
	if g.relationshipIndex(rel.ID) >= 0 {
		return apperrors.ErrDuplicateRelationship.Clone().WithDetail("id", rel.ID)
	}
	g.Relationships = append(g.Relationships, rel)
	return nil
}

// ReplaceRelationship swaps in rel for the stored edge with the same id and
// returns the previous value, or nil when none exists.
func (g *Graph) ReplaceRelationship(rel *entities.Relationship) *entities.Relationship {
	i := g.relationshipIndex(rel.ID)
	if i < 0 {
		return nil
	}
	prev := g.Relationships[i]
	g.Relationships[i] = rel
	return prev
}

// RemoveRelationship deletes an edge and returns it, or nil when absent.
func (g *Graph) RemoveRelationship(id string) *entities.Relationship {
	i := g.relationshipIndex(id)
	if i < 0 {
		return nil
	}
	removed := g.Relationships[i]
	g.Relationships = append(g.Relationships[:i:i], g.Relationships[i+1:]...)
	return removed
}

// NodesOfKind returns the stored nodes of one kind.
func (g *Graph) NodesOfKind(kind entities.NodeKind) []*entities.Node {
	var out []*entities.Node
	for _, n := range g.Nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// RelationshipsFor returns the edges where nodeID is source or target.
func (g *Graph) RelationshipsFor(nodeID string) []*entities.Relationship {
	var out []*entities.Relationship
	for _, r := range g.Relationships {
		if r.Touches(nodeID) {
			out = append(out, r)
		}
	}
	return out
}

// ConnectedNodes returns the distinct nodes adjacent to nodeID in either
// direction. Endpoints that do not resolve to a node are skipped.
func (g *Graph) ConnectedNodes(nodeID string) []*entities.Node {
	seen := map[string]bool{nodeID: true}
	var out []*entities.Node
	for _, r := range g.Relationships {
		if !r.Touches(nodeID) {
			continue
		}
		other := r.Other(nodeID)
		if seen[other] {
			continue
		}
		seen[other] = true
		if n := g.Node(other); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Search returns nodes whose name or description contains query, ignoring case.
func (g *Graph) Search(query string) []*entities.Node {
	var out []*entities.Node
	for _, n := range g.Nodes {
		if n.Matches(query) {
			out = append(out, n)
		}
	}
	return out
}

// Adjacency returns an undirected adjacency list over resolvable endpoints.
func (g *Graph) Adjacency() map[string][]string {
	adj := make(map[string][]string, len(g.Nodes))
	for _, n := range g.Nodes {
		adj[n.ID] = nil
	}
	for _, r := range g.Relationships {
		_, srcOK := adj[r.SourceID]
		_, dstOK := adj[r.TargetID]
		if !srcOK || !dstOK || r.SourceID == r.TargetID {
			continue
		}
		adj[r.SourceID] = append(adj[r.SourceID], r.TargetID)
		adj[r.TargetID] = append(adj[r.TargetID], r.SourceID)
	}
	return adj
}
