package services

import (
	"math"
	"sort"

	"projectgraph/domain/core/aggregates"
	"projectgraph/domain/core/entities"
)

// MaxComplexity bounds every complexity score.
const MaxComplexity = 100

// ComplexityScore is the canonical complexity statistic:
// round(min(100, 5 * sqrt(nodes * (relationships + 1)))).
// It is 0 for an empty graph and never decreases when a node or a
// relationship is added.
func ComplexityScore(nodeCount, relationshipCount int) int {
	if nodeCount <= 0 {
		return 0
	}
	raw := 5 * math.Sqrt(float64(nodeCount)*float64(relationshipCount+1))
	return int(math.Round(math.Min(MaxComplexity, raw)))
}

// DefaultKindWeights weights node kinds by how much design effort they carry.
var DefaultKindWeights = map[entities.NodeKind]float64{
	entities.KindLogic:        3,
	entities.KindAPI:          2.5,
	entities.KindDataModel:    2,
	entities.KindFeature:      2,
	entities.KindScreen:       1.5,
	entities.KindTest:         1,
	entities.KindDecision:     1,
	entities.KindIntent:       0.5,
	entities.KindConversation: 0.5,
}

// GraphAnalyticsService handles derived statistics and structural analysis
// that do not belong on the Graph aggregate itself.
type GraphAnalyticsService struct {
	kindWeights map[entities.NodeKind]float64
}

// NewGraphAnalyticsService creates a new graph analytics service
func NewGraphAnalyticsService() *GraphAnalyticsService {
	return &GraphAnalyticsService{kindWeights: DefaultKindWeights}
}

// CalculateStats returns node count, edge count and the canonical complexity.
func (s *GraphAnalyticsService) CalculateStats(graph *aggregates.Graph) aggregates.GraphStats {
	return aggregates.GraphStats{
		NodeCount:  graph.NodeCount(),
		EdgeCount:  graph.RelationshipCount(),
		Complexity: ComplexityScore(graph.NodeCount(), graph.RelationshipCount()),
	}
}

// WeightedComplexity is the alternative complexity statistic: the sum of
// per-kind weights plus half the relationship strengths, multiplied by a
// cohesion factor between 1 (every node isolated) and 1.5 (one connected
// component). It is reported alongside the canonical score, never instead of it.
func (s *GraphAnalyticsService) WeightedComplexity(graph *aggregates.Graph) int {
	n := graph.NodeCount()
	if n == 0 {
		return 0
	}

	var base float64
	for _, node := range graph.Nodes {
		w, ok := s.kindWeights[node.Kind]
		if !ok {
			w = 1
		}
		base += w
	}
	for _, rel := range graph.Relationships {
		base += rel.Strength * 0.5
	}

	return int(math.Round(math.Min(MaxComplexity, base*s.Cohesion(graph))))
}

// Cohesion maps the number of connected components onto [1, 1.5].
func (s *GraphAnalyticsService) Cohesion(graph *aggregates.Graph) float64 {
	n := graph.NodeCount()
	if n <= 1 {
		return 1.5
	}
	clusters := len(s.GetClusters(graph))
	return 1 + 0.5*(1-float64(clusters-1)/float64(n-1))
}

// GetClusters returns the connected components of the graph, treating edges
// as undirected and ignoring dangling endpoints. Components and their members
// are sorted for stable output.
func (s *GraphAnalyticsService) GetClusters(graph *aggregates.Graph) [][]string {
	adj := graph.Adjacency()
	ids := make([]string, 0, len(adj))
	for id := range adj {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	visited := make(map[string]bool, len(ids))
	var clusters [][]string
	for _, id := range ids {
		if visited[id] {
			continue
		}
		cluster := s.dfs(adj, id, visited)
		sort.Strings(cluster)
		clusters = append(clusters, cluster)
	}
	return clusters
}

func (s *GraphAnalyticsService) dfs(adj map[string][]string, start string, visited map[string]bool) []string {
	var cluster []string
	stack := []string{start}
	visited[start] = true
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cluster = append(cluster, current)
		for _, next := range adj[current] {
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return cluster
}

// GetNodeDegree counts incoming and outgoing edges of a node, including
// edges whose other endpoint is dangling.
func (s *GraphAnalyticsService) GetNodeDegree(graph *aggregates.Graph, nodeID string) (inDegree, outDegree int) {
	for _, rel := range graph.Relationships {
		if rel.SourceID == nodeID {
			outDegree++
		}
		if rel.TargetID == nodeID {
			inDegree++
		}
	}
	return inDegree, outDegree
}

// FindOrphanedNodes returns the ids of nodes with no relationships.
func (s *GraphAnalyticsService) FindOrphanedNodes(graph *aggregates.Graph) []string {
	var orphans []string
	for _, node := range graph.Nodes {
		if len(graph.RelationshipsFor(node.ID)) == 0 {
			orphans = append(orphans, node.ID)
		}
	}
	return orphans
}
