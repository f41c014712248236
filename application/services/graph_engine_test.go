package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"projectgraph/application/ports"
	"projectgraph/domain/core/aggregates"
	"projectgraph/domain/core/entities"
	"projectgraph/domain/events"
	domainservices "projectgraph/domain/services"
	"projectgraph/infrastructure/persistence/kvstore"
	"projectgraph/infrastructure/persistence/persistencetest"
	"projectgraph/infrastructure/persistence/schema"
	apperrors "projectgraph/pkg/errors"
	"projectgraph/pkg/observability"
)

func sequentialIDs(prefix string) func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("%s-%d", prefix, n.Add(1)) }
}

func newEngine(t *testing.T, opts ...EngineOption) (*GraphEngine, ports.PersistenceAdapter) {
	t.Helper()
	adapter := kvstore.New(nil)
	base := []EngineOption{
		WithLogger(zap.NewNop()),
		WithClock(persistencetest.NewClock().Now),
		WithIDGenerator(sequentialIDs("id")),
		WithMigrator(schema.NewDefaultRegistry(0, nil)),
	}
	e := NewGraphEngine(adapter, append(base, opts...)...)
	t.Cleanup(func() { _ = e.Close() })
	return e, adapter
}

func feature(name string) entities.Record {
	return entities.Record{"kind": "feature", "name": name, "status": "planned", "priority": "high"}
}

func TestGraphEngine_ComplexityScenario(t *testing.T) {
	e, _ := newEngine(t)
	e.NewGraph("Shop", "")

	a, err := e.AddNode(feature("Cart"))
	require.NoError(t, err)
	b, err := e.AddNode(feature("Checkout"))
	require.NoError(t, err)
	assert.Equal(t, 7, e.CalculateGraphComplexity())
	assert.Equal(t, 7, e.Stats().Complexity)

	_, err = e.AddRelationship(entities.Record{"sourceId": a.ID, "targetId": b.ID, "type": "depends_on"})
	require.NoError(t, err)
	assert.Equal(t, 10, e.CalculateGraphComplexity())
	assert.Equal(t, aggregates.GraphStats{NodeCount: 2, EdgeCount: 1, Complexity: 10}, e.Stats())
}

func TestGraphEngine_ComplexityBounds(t *testing.T) {
	e, _ := newEngine(t)
	e.NewGraph("Big", "")
	assert.Equal(t, 0, e.CalculateGraphComplexity())

	prev := 0
	var last *entities.Node
	for i := 0; i < 40; i++ {
		n, err := e.AddNode(feature(fmt.Sprintf("F%d", i)))
		require.NoError(t, err)
		if last != nil {
			_, err = e.AddRelationship(entities.Record{"sourceId": last.ID, "targetId": n.ID, "type": "relates_to"})
			require.NoError(t, err)
		}
		last = n

		score := e.CalculateGraphComplexity()
		assert.GreaterOrEqual(t, score, prev)
		assert.LessOrEqual(t, score, 100)
		prev = score
	}
	assert.Equal(t, 100, prev)
}

func TestGraphEngine_AddNode(t *testing.T) {
	e, _ := newEngine(t)
	e.NewGraph("Shop", "")

	node, err := e.AddNode(feature("Cart"))
	require.NoError(t, err)
	assert.NotEmpty(t, node.ID)
	assert.Equal(t, "1.0.0", node.Version)
	assert.False(t, node.CreatedAt.IsZero())
	assert.Equal(t, node.CreatedAt, node.UpdatedAt)
	require.NotNil(t, node.Feature())
	assert.Equal(t, entities.PriorityHigh, node.Feature().Priority)

	explicit, err := e.AddNode(feature("Explicit").Merge(entities.Record{"id": "mine", "version": "2.0.0"}))
	require.NoError(t, err)
	assert.Equal(t, "mine", explicit.ID)
	assert.Equal(t, "2.0.0", explicit.Version)

	_, err = e.AddNode(feature("Again").Merge(entities.Record{"id": "mine"}))
	assert.ErrorIs(t, err, apperrors.ErrDuplicateNode)
	assert.Len(t, e.Snapshot().Nodes, 2)
}

func TestGraphEngine_AddNodeRejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name       string
		record     entities.Record
		field      string
		constraint string
	}{
		{"missing name", entities.Record{"kind": "feature", "status": "planned", "priority": "low"}, "name", "required"},
		{"blank name", feature("   "), "name", "notblank"},
		{"missing variant field", entities.Record{"kind": "feature", "name": "X", "priority": "low"}, "status", "required"},
		{"field of another kind", feature("X").Merge(entities.Record{"endpoint": "/x"}), "endpoint", "unknown_field"},
		{"unknown kind", entities.Record{"kind": "widget", "name": "X"}, "kind", "node_kind"},
		{"logic complexity range", entities.Record{"kind": "logic", "name": "X", "inputs": []any{}, "outputs": []any{}, "complexity": 11}, "complexity", "max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newEngine(t)
			e.NewGraph("Shop", "")

			var changes int
			e.Subscribe(func(events.GraphChange) { changes++ })

			_, err := e.AddNode(tt.record)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))

			verrs, ok := apperrors.AsValidationErrors(err)
			require.True(t, ok)
			first := verrs.First()
			assert.Equal(t, tt.field, first.Field())
			assert.Equal(t, tt.constraint, first.Constraint())

			assert.Empty(t, e.Snapshot().Nodes)
			assert.Zero(t, changes)
		})
	}
}

func TestGraphEngine_UpdateNode(t *testing.T) {
	e, _ := newEngine(t)
	e.NewGraph("Shop", "")
	n, err := e.AddNode(feature("Cart").Merge(entities.Record{"version": "1.2.3"}))
	require.NoError(t, err)

	var got []events.GraphChange
	e.Subscribe(func(c events.GraphChange) { got = append(got, c) })

	updated, err := e.UpdateNode(n.ID, entities.Record{"status": "completed", "metadata": map[string]any{"x": 10.0}})
	require.NoError(t, err)
	assert.Equal(t, n.ID, updated.ID)
	assert.Equal(t, "1.2.4", updated.Version)
	assert.Equal(t, entities.FeatureCompleted, updated.Feature().Status)
	assert.Equal(t, "Cart", updated.Name)
	assert.Equal(t, n.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(n.UpdatedAt))

	again, err := e.UpdateNode(n.ID, entities.Record{"id": "hijack", "name": "Basket"})
	require.NoError(t, err)
	assert.Equal(t, n.ID, again.ID, "the identifier is preserved")
	assert.Equal(t, "1.2.5", again.Version)

	require.Len(t, got, 2)
	assert.Equal(t, events.ChangeUpdate, got[0].Kind)
	assert.Equal(t, "1.2.3", got[0].PreviousNode.Version)
	assert.Equal(t, "1.2.4", got[0].Node.Version)
}

func TestGraphEngine_UpdateNodeEdgeCases(t *testing.T) {
	e, _ := newEngine(t)
	e.NewGraph("Shop", "")
	n, err := e.AddNode(feature("Cart"))
	require.NoError(t, err)

	missing, err := e.UpdateNode("nope", entities.Record{"name": "X"})
	assert.NoError(t, err)
	assert.Nil(t, missing)

	_, err = e.UpdateNode(n.ID, entities.Record{"kind": "logic"})
	assert.ErrorIs(t, err, apperrors.ErrKindImmutable)

	_, err = e.UpdateNode(n.ID, entities.Record{"priority": "urgent"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = e.UpdateNode(n.ID, entities.Record{"complexity": 3})
	assert.True(t, apperrors.IsValidation(err), "logic fields are illegal on a feature")

	stored := e.GetNodeByID(n.ID)
	assert.Equal(t, n, stored, "failed updates leave the node untouched")
}

func TestGraphEngine_VersionMonotonicity(t *testing.T) {
	e, _ := newEngine(t)
	e.NewGraph("Shop", "")
	n, err := e.AddNode(feature("Cart").Merge(entities.Record{"version": "3.1.7"}))
	require.NoError(t, err)

	for want := 8; want < 20; want++ {
		u, err := e.UpdateNode(n.ID, entities.Record{"description": fmt.Sprint(want)})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("3.1.%d", want), u.Version)
	}
}

func TestGraphEngine_RemoveNodeCascades(t *testing.T) {
	e, _ := newEngine(t)
	e.NewGraph("Shop", "")
	a, _ := e.AddNode(feature("A"))
	b, _ := e.AddNode(feature("B"))
	c, _ := e.AddNode(feature("C"))
	for _, pair := range [][2]string{{a.ID, b.ID}, {c.ID, a.ID}, {b.ID, c.ID}} {
		_, err := e.AddRelationship(entities.Record{"sourceId": pair[0], "targetId": pair[1], "type": "uses"})
		require.NoError(t, err)
	}

	var got []events.GraphChange
	e.Subscribe(func(ch events.GraphChange) { got = append(got, ch) })

	assert.True(t, e.RemoveNode(a.ID))
	assert.False(t, e.RemoveNode(a.ID))

	g := e.Snapshot()
	for _, r := range g.Relationships {
		assert.False(t, r.Touches(a.ID))
	}
	assert.Len(t, g.Relationships, 1)
	assert.Len(t, g.Nodes, 2)

	require.Len(t, got, 1, "a cascading delete is one change")
	assert.Equal(t, events.ChangeRemove, got[0].Kind)
	assert.Equal(t, a.ID, got[0].EntityID())
	assert.Len(t, got[0].Cascaded, 2)
	assert.Equal(t, domainservices.ComplexityScore(2, 1), e.Stats().Complexity)
}

func TestGraphEngine_Relationships(t *testing.T) {
	e, _ := newEngine(t)
	e.NewGraph("Shop", "")
	a, _ := e.AddNode(feature("A"))
	b, _ := e.AddNode(feature("B"))

	rel, err := e.AddRelationship(entities.Record{"sourceId": a.ID, "targetId": b.ID, "type": "depends_on"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, rel.Strength)

	_, err = e.AddRelationship(entities.Record{"sourceId": a.ID, "targetId": b.ID, "type": "depends_on", "strength": 1.5})
	assert.True(t, apperrors.IsValidation(err))
	_, err = e.AddRelationship(entities.Record{"sourceId": a.ID, "targetId": b.ID, "type": "owns"})
	assert.True(t, apperrors.IsValidation(err))

	updated, err := e.UpdateRelationship(rel.ID, entities.Record{"strength": 0.25})
	require.NoError(t, err)
	assert.Equal(t, 0.25, updated.Strength)
	assert.Equal(t, rel.CreatedAt, updated.CreatedAt)

	missing, err := e.UpdateRelationship("nope", entities.Record{"strength": 0.5})
	assert.NoError(t, err)
	assert.Nil(t, missing)

	before := len(e.Snapshot().Relationships)
	assert.False(t, e.RemoveRelationship("nope"))
	assert.Len(t, e.Snapshot().Relationships, before)

	assert.True(t, e.RemoveRelationship(rel.ID))
	assert.Empty(t, e.Snapshot().Relationships)
}

func TestGraphEngine_DanglingRelationshipsAreTolerated(t *testing.T) {
	e, _ := newEngine(t)
	e.NewGraph("Shop", "")
	a, _ := e.AddNode(feature("A"))

	_, err := e.AddRelationship(entities.Record{"sourceId": a.ID, "targetId": "ghost", "type": "relates_to"})
	require.NoError(t, err)

	assert.Len(t, e.GetRelationshipsForNode(a.ID), 1)
	assert.Empty(t, e.GetConnectedNodes(a.ID))
	assert.Equal(t, [][]string{{a.ID}}, e.Clusters())
}

func TestGraphEngine_Queries(t *testing.T) {
	e, _ := newEngine(t)
	e.NewGraph("Shop", "")
	login, _ := e.AddNode(feature("Login").Merge(entities.Record{"description": "Sign in with email"}))
	api, err := e.AddNode(entities.Record{"kind": "api", "name": "POST /session", "method": "POST", "endpoint": "/session"})
	require.NoError(t, err)
	_, err = e.AddRelationship(entities.Record{"sourceId": login.ID, "targetId": api.ID, "type": "uses"})
	require.NoError(t, err)

	assert.Nil(t, e.GetNodeByID("nope"))
	assert.Equal(t, "Login", e.GetNodeByID(login.ID).Name)
	assert.Len(t, e.GetNodesByType(entities.KindAPI), 1)
	assert.Empty(t, e.GetNodesByType(entities.KindTest))

	connected := e.GetConnectedNodes(api.ID)
	require.Len(t, connected, 1)
	assert.Equal(t, login.ID, connected[0].ID)

	assert.Len(t, e.SearchNodes("EMAIL"), 1)
	assert.Len(t, e.SearchNodes("session"), 1)
	assert.Empty(t, e.SearchNodes("billing"))

	copyOf := e.GetNodeByID(login.ID)
	copyOf.Name = "mutated"
	assert.Equal(t, "Login", e.GetNodeByID(login.ID).Name, "queries return copies")

	assert.Greater(t, e.CalculateWeightedComplexity(), 0)

	in, out, ok := e.NodeDegree(login.ID)
	require.True(t, ok)
	assert.Equal(t, 0, in)
	assert.Equal(t, 1, out)
	in, out, ok = e.NodeDegree(api.ID)
	require.True(t, ok)
	assert.Equal(t, 1, in)
	assert.Equal(t, 0, out)
	_, _, ok = e.NodeDegree("nope")
	assert.False(t, ok)

	assert.Empty(t, e.OrphanedNodes())
	lonely, err := e.AddNode(feature("Lonely"))
	require.NoError(t, err)
	assert.Equal(t, []string{lonely.ID}, e.OrphanedNodes())
}

func TestGraphEngine_TypedKindRecords(t *testing.T) {
	e, _ := newEngine(t)
	e.NewGraph("Shop", "")

	node, err := e.AddNode(entities.Record{
		"kind":     entities.KindFeature,
		"name":     "Cart",
		"status":   entities.FeaturePlanned,
		"priority": entities.PriorityHigh,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.KindFeature, node.Kind)

	updated, err := e.UpdateNode(node.ID, entities.Record{"kind": entities.KindFeature, "name": "Basket"})
	require.NoError(t, err)
	assert.Equal(t, "Basket", updated.Name)

	_, err = e.UpdateNode(node.ID, entities.Record{"kind": entities.KindScreen})
	assert.ErrorIs(t, err, apperrors.ErrKindImmutable)
}

func TestGraphEngine_MutationsStampLastInteraction(t *testing.T) {
	e, _ := newEngine(t)
	g := e.NewGraph("Shop", "")
	assert.Nil(t, g.Metadata.LastInteraction)

	a, err := e.AddNode(feature("A"))
	require.NoError(t, err)
	afterAdd := e.Snapshot().Metadata.LastInteraction
	require.NotNil(t, afterAdd)
	assert.True(t, a.CreatedAt.Equal(*afterAdd))

	b, err := e.AddNode(feature("B"))
	require.NoError(t, err)
	_, err = e.AddRelationship(entities.Record{"sourceId": a.ID, "targetId": b.ID, "type": "depends_on"})
	require.NoError(t, err)
	require.True(t, e.RemoveNode(b.ID))

	snap := e.Snapshot()
	require.NotNil(t, snap.Metadata.LastInteraction)
	assert.True(t, snap.Metadata.LastInteraction.After(*afterAdd))
	assert.True(t, snap.UpdatedAt.Equal(*snap.Metadata.LastInteraction))
}

func TestGraphEngine_Uninitialized(t *testing.T) {
	e, _ := newEngine(t)
	assert.Equal(t, StateUninitialized, e.State())

	_, err := e.AddNode(feature("A"))
	assert.ErrorIs(t, err, apperrors.ErrNoActiveGraph)
	_, err = e.AddRelationship(entities.Record{"sourceId": "a", "targetId": "b", "type": "uses"})
	assert.ErrorIs(t, err, apperrors.ErrNoActiveGraph)
	_, err = e.UpdateNode("a", entities.Record{})
	assert.ErrorIs(t, err, apperrors.ErrNoActiveGraph)

	assert.False(t, e.RemoveNode("a"))
	assert.False(t, e.RemoveRelationship("a"))
	assert.Nil(t, e.Snapshot())
	assert.Empty(t, e.GetNodesByType(entities.KindFeature))
	assert.Zero(t, e.CalculateGraphComplexity())
	assert.False(t, e.SaveGraph(context.Background()))

	_, err = e.ExportGraph(context.Background(), ports.FormatJSON)
	assert.ErrorIs(t, err, apperrors.ErrNoActiveGraph)
}

func TestGraphEngine_Subscribers(t *testing.T) {
	metrics := observability.NewCollector("test")
	e, _ := newEngine(t, WithMetrics(metrics))
	e.NewGraph("Shop", "")

	var order []string
	e.Subscribe(func(c events.GraphChange) { order = append(order, "first:"+c.EventType) })
	e.Subscribe(func(events.GraphChange) { panic("boom") })
	unsubscribe := e.Subscribe(func(c events.GraphChange) { order = append(order, "third:"+c.EventType) })

	n, err := e.AddNode(feature("A"))
	require.NoError(t, err, "a panicking subscriber does not fail the mutation")
	assert.NotNil(t, e.GetNodeByID(n.ID))
	assert.Equal(t, []string{"first:node.add", "third:node.add"}, order)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SubscriberPanic))

	unsubscribe()
	unsubscribe()
	order = nil
	assert.True(t, e.RemoveNode(n.ID))
	assert.Equal(t, []string{"first:node.remove"}, order)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Mutations.WithLabelValues("node", "remove")))
}

func TestGraphEngine_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	e, adapter := newEngine(t)
	e.NewGraph("Shop", "online store")
	a, _ := e.AddNode(feature("A"))
	b, _ := e.AddNode(feature("B"))
	_, err := e.AddRelationship(entities.Record{"sourceId": a.ID, "targetId": b.ID, "type": "tests", "strength": 0.4})
	require.NoError(t, err)

	before := e.Snapshot()
	require.True(t, e.SaveGraph(ctx))
	saved := e.Snapshot()
	assert.True(t, saved.UpdatedAt.After(before.UpdatedAt))

	other := NewGraphEngine(adapter, WithMigrator(schema.NewDefaultRegistry(0, nil)))
	loaded, err := other.LoadGraph(ctx, "")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, StateReady, other.State())

	before.UpdatedAt = loaded.UpdatedAt
	assert.Equal(t, before, loaded)
	assert.Equal(t, saved, loaded)

	nothing, err := other.LoadGraph(ctx, "unknown")
	assert.NoError(t, err)
	assert.Nil(t, nothing)
	assert.Equal(t, saved.ID, other.Snapshot().ID, "a miss keeps the active graph")
}

// migratorFunc adapts a function to ports.GraphMigrator.
type migratorFunc func(ctx context.Context, g *aggregates.Graph, target string) (*aggregates.Graph, error)

func (f migratorFunc) MigrateGraph(ctx context.Context, g *aggregates.Graph, target string) (*aggregates.Graph, error) {
	return f(ctx, g, target)
}

func TestGraphEngine_LoadMigratesAndSavesBack(t *testing.T) {
	ctx := context.Background()
	adapter := kvstore.New(nil)
	legacy := persistencetest.SampleGraph("legacy")
	legacy.Version = "0.1.0"
	legacy.Metadata.Tags = []string{"B", "a", "b"}
	require.True(t, adapter.Save(ctx, legacy))

	registry := schema.NewDefaultRegistry(0, nil)
	metrics := observability.NewCollector("test")
	var e *GraphEngine
	var seen EngineState
	e = NewGraphEngine(adapter,
		WithMetrics(metrics),
		WithMigrator(migratorFunc(func(ctx context.Context, g *aggregates.Graph, target string) (*aggregates.Graph, error) {
			seen = e.State()
			return registry.MigrateGraph(ctx, g, target)
		})))

	loaded, err := e.LoadGraph(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, StateMigrating, seen)
	assert.Equal(t, StateReady, e.State())
	assert.Equal(t, "1.0.0", loaded.Version)
	assert.Equal(t, []string{"a", "b"}, loaded.Metadata.Tags)
	assert.Len(t, registry.GetHistory(), 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MigrationsApplied))

	stored := adapter.Load(ctx, "legacy")
	require.NotNil(t, stored)
	assert.Equal(t, "1.0.0", stored.Version, "the migrated graph is persisted immediately")
}

func TestGraphEngine_LoadMigrationFailure(t *testing.T) {
	ctx := context.Background()
	adapter := kvstore.New(nil)
	future := persistencetest.SampleGraph("future")
	future.Version = "9.0.0"
	require.True(t, adapter.Save(ctx, future))

	e := NewGraphEngine(adapter, WithMigrator(schema.NewDefaultRegistry(0, nil)))
	_, err := e.LoadGraph(ctx, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNoMigrationPath)
	assert.True(t, apperrors.IsMigration(err))
	assert.Equal(t, StateUninitialized, e.State())
	assert.Nil(t, e.Snapshot())

	noMigrator := NewGraphEngine(adapter)
	_, err = noMigrator.LoadGraph(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrNoMigrationPath)
}

func TestGraphEngine_ExportImport(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	e.NewGraph("Shop", "")
	_, err := e.AddNode(feature("A"))
	require.NoError(t, err)

	for _, format := range []ports.ExportFormat{ports.FormatJSON, ports.FormatYAML} {
		data, err := e.ExportGraph(ctx, format)
		require.NoError(t, err)

		other, _ := newEngine(t)
		imported, err := other.ImportGraph(ctx, data, format)
		require.NoError(t, err)
		assert.Equal(t, e.Snapshot(), imported)
		assert.Equal(t, StateReady, other.State())
	}

	_, err = e.ExportGraph(ctx, "xml")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedFormat)
	_, err = e.ImportGraph(ctx, []byte("<graph/>"), "xml")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedFormat)
}

func TestGraphEngine_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	g := e.NewGraph("Shop", "")
	require.True(t, e.SaveGraph(ctx))
	require.True(t, e.SaveGraph(ctx))

	list := e.ListGraphs(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, g.ID, list[0].ID)
	assert.Len(t, e.ListBackups(ctx, g.ID), 1)
	assert.Equal(t, "kvstore", e.BackendName())

	assert.True(t, e.DeleteGraph(ctx, g.ID))
	assert.Empty(t, e.ListGraphs(ctx))
	assert.NotNil(t, e.Snapshot(), "deleting storage keeps the in-memory graph")
}

// countingAdapter counts saves.
type countingAdapter struct {
	ports.PersistenceAdapter
	saves atomic.Int32
}

func (c *countingAdapter) Save(ctx context.Context, g *aggregates.Graph) bool {
	c.saves.Add(1)
	return c.PersistenceAdapter.Save(ctx, g)
}

func TestGraphEngine_Autosave(t *testing.T) {
	adapter := &countingAdapter{PersistenceAdapter: kvstore.New(nil)}
	metrics := observability.NewCollector("test")
	e := NewGraphEngine(adapter, WithMetrics(metrics))
	t.Cleanup(func() { _ = e.Close() })

	assert.Error(t, e.SetAutosaveInterval(0))
	require.NoError(t, e.SetAutosaveInterval(5*time.Millisecond))
	assert.Equal(t, 5*time.Millisecond, e.AutosaveInterval())

	e.SetAutosave(true)
	e.SetAutosave(true)
	assert.True(t, e.AutosaveEnabled())
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, adapter.saves.Load(), "nothing is saved before a graph exists")

	g := e.NewGraph("Shop", "")
	assert.True(t, g.Settings.Autosave)
	require.Eventually(t, func() bool { return adapter.saves.Load() >= 2 }, time.Second, 5*time.Millisecond)

	e.SetAutosave(false)
	assert.False(t, e.AutosaveEnabled())
	assert.False(t, e.Snapshot().Settings.Autosave)
	stopped := adapter.saves.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, adapter.saves.Load(), "disabling cancels the pending tick")
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.Autosaves.WithLabelValues("ok")), 2.0)
}

func TestGraphEngine_CloseStopsAutosave(t *testing.T) {
	adapter := &countingAdapter{PersistenceAdapter: kvstore.New(nil)}
	e := NewGraphEngine(adapter)
	require.NoError(t, e.SetAutosaveInterval(time.Millisecond))
	e.NewGraph("Shop", "")
	e.SetAutosave(true)
	require.Eventually(t, func() bool { return adapter.saves.Load() > 0 }, time.Second, time.Millisecond)

	require.NoError(t, e.Close())
	assert.False(t, e.AutosaveEnabled())
	stopped := adapter.saves.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, stopped, adapter.saves.Load())
}
