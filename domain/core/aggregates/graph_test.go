package aggregates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectgraph/domain/core/entities"
	apperrors "projectgraph/pkg/errors"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func feature(id, name string) *entities.Node {
	return &entities.Node{
		ID:        id,
		Kind:      entities.KindFeature,
		Name:      name,
		CreatedAt: testNow,
		UpdatedAt: testNow,
		Version:   "1.0.0",
		Details: &entities.FeatureDetails{
			Status:   entities.FeaturePlanned,
			Priority: entities.PriorityHigh,
		},
	}
}

func edge(id, src, dst string) *entities.Relationship {
	r := entities.NewRelationship(src, dst, entities.RelDependsOn)
	r.ID = id
	r.CreatedAt = testNow
	return r
}

func TestNewGraph(t *testing.T) {
	g := NewGraph("g1", "Project", "desc", "1.0.0", testNow)

	assert.Equal(t, "g1", g.ID)
	assert.Equal(t, "1.0.0", g.Version)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Relationships)
	assert.NotNil(t, g.Metadata.Tags)
	assert.Equal(t, testNow, g.CreatedAt)
}

func TestGraph_AddNode(t *testing.T) {
	g := NewGraph("g1", "Project", "", "1.0.0", testNow)

	require.NoError(t, g.AddNode(feature("n1", "Login")))
	err := g.AddNode(feature("n1", "Again"))

	assert.ErrorIs(t, err, apperrors.ErrDuplicateNode)
	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, "Login", g.Node("n1").Name)
}

func TestGraph_RemoveNodeCascades(t *testing.T) {
	g := NewGraph("g1", "Project", "", "1.0.0", testNow)
	require.NoError(t, g.AddNode(feature("a", "A")))
	require.NoError(t, g.AddNode(feature("b", "B")))
	require.NoError(t, g.AddNode(feature("c", "C")))
	require.NoError(t, g.AddRelationship(edge("ab", "a", "b")))
	require.NoError(t, g.AddRelationship(edge("ca", "c", "a")))
	require.NoError(t, g.AddRelationship(edge("bc", "b", "c")))

	removed, cascaded := g.RemoveNode("a")

	require.NotNil(t, removed)
	assert.Equal(t, "a", removed.ID)
	assert.Len(t, cascaded, 2)
	for _, r := range g.Relationships {
		assert.False(t, r.Touches("a"), "relationship %s still references removed node", r.ID)
	}
	assert.Equal(t, 1, g.RelationshipCount())

	removed, cascaded = g.RemoveNode("missing")
	assert.Nil(t, removed)
	assert.Nil(t, cascaded)
}

func TestGraph_RelationshipOperations(t *testing.T) {
	g := NewGraph("g1", "Project", "", "1.0.0", testNow)
	require.NoError(t, g.AddRelationship(edge("r1", "a", "b")))

	assert.ErrorIs(t, g.AddRelationship(edge("r1", "x", "y")), apperrors.ErrDuplicateRelationship)

	updated := edge("r1", "a", "b")
	updated.Strength = 0.4
	prev := g.ReplaceRelationship(updated)
	require.NotNil(t, prev)
	assert.Equal(t, 1.0, prev.Strength)
	assert.Equal(t, 0.4, g.Relationship("r1").Strength)

	assert.Nil(t, g.ReplaceRelationship(edge("nope", "a", "b")))
	assert.Nil(t, g.RemoveRelationship("nope"))
	assert.Equal(t, 1, g.RelationshipCount())
	assert.NotNil(t, g.RemoveRelationship("r1"))
	assert.Equal(t, 0, g.RelationshipCount())
}

func TestGraph_ConnectedNodesSkipsDangling(t *testing.T) {
	g := NewGraph("g1", "Project", "", "1.0.0", testNow)
	require.NoError(t, g.AddNode(feature("a", "A")))
	require.NoError(t, g.AddNode(feature("b", "B")))
	require.NoError(t, g.AddRelationship(edge("ab", "a", "b")))
	require.NoError(t, g.AddRelationship(edge("ba", "b", "a")))
	require.NoError(t, g.AddRelationship(edge("ag", "a", "ghost")))

	connected := g.ConnectedNodes("a")

	require.Len(t, connected, 1)
	assert.Equal(t, "b", connected[0].ID)
	assert.Len(t, g.RelationshipsFor("a"), 3)
	assert.Empty(t, g.ConnectedNodes("ghost"))
}

func TestGraph_SearchAndKinds(t *testing.T) {
	g := NewGraph("g1", "Project", "", "1.0.0", testNow)
	login := feature("a", "User Login")
	login.Description = "OAuth based sign in"
	require.NoError(t, g.AddNode(login))
	require.NoError(t, g.AddNode(feature("b", "Billing")))

	assert.Len(t, g.Search("login"), 1)
	assert.Len(t, g.Search("OAUTH"), 1)
	assert.Empty(t, g.Search(""))
	assert.Len(t, g.NodesOfKind(entities.KindFeature), 2)
	assert.Empty(t, g.NodesOfKind(entities.KindAPI))
}

func TestGraph_CloneIsIndependent(t *testing.T) {
	g := NewGraph("g1", "Project", "", "1.0.0", testNow)
	n := feature("a", "A")
	n.Metadata = map[string]any{"layout": map[string]any{"x": 1.0}}
	require.NoError(t, g.AddNode(n))
	require.NoError(t, g.AddRelationship(edge("ab", "a", "b")))
	g.Metadata.Tags = []string{"web"}

	c := g.Clone()
	c.Nodes[0].Name = "changed"
	c.Nodes[0].Metadata["layout"].(map[string]any)["x"] = 9.0
	c.Nodes[0].Feature().Status = entities.FeatureCompleted
	c.Relationships[0].Strength = 0.1
	c.Metadata.Tags[0] = "mobile"

	assert.Equal(t, "A", g.Nodes[0].Name)
	assert.Equal(t, 1.0, g.Nodes[0].Metadata["layout"].(map[string]any)["x"])
	assert.Equal(t, entities.FeaturePlanned, g.Nodes[0].Feature().Status)
	assert.Equal(t, 1.0, g.Relationships[0].Strength)
	assert.Equal(t, "web", g.Metadata.Tags[0])
}

func TestGraph_Adjacency(t *testing.T) {
	g := NewGraph("g1", "Project", "", "1.0.0", testNow)
	require.NoError(t, g.AddNode(feature("a", "A")))
	require.NoError(t, g.AddNode(feature("b", "B")))
	require.NoError(t, g.AddRelationship(edge("ab", "a", "b")))
	require.NoError(t, g.AddRelationship(edge("ax", "a", "ghost")))
	require.NoError(t, g.AddRelationship(edge("aa", "a", "a")))

	adj := g.Adjacency()

	assert.Equal(t, []string{"b"}, adj["a"])
	assert.Equal(t, []string{"a"}, adj["b"])
	assert.NotContains(t, adj, "ghost")
}
