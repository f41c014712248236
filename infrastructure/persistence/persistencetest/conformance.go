// Package persistencetest checks a ports.PersistenceAdapter against the
// contract every backend shares.
package persistencetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectgraph/application/ports"
	"projectgraph/domain/core/aggregates"
	"projectgraph/domain/core/entities"
	apperrors "projectgraph/pkg/errors"
)

// Clock is a deterministic time source that advances one second per call.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at a fixed UTC instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

// Now returns the next instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// Factory builds a fresh, empty adapter using clock for its update stamps
// and a backup retention of keep.
type Factory func(t *testing.T, clock *Clock, keep int) ports.PersistenceAdapter

// Options describes backend traits the suite must respect.
type Options struct {
	// SingleGraph is set for backends that hold one active graph per key.
	SingleGraph bool
}

// SampleGraph returns a small valid graph.
func SampleGraph(id string) *aggregates.Graph {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	g := aggregates.NewGraph(id, "Project "+id, "sample", "1.0.0", at)
	g.Metadata.Tags = []string{"sample"}
	_ = g.AddNode(&entities.Node{
		ID: id + "-login", Kind: entities.KindFeature, Name: "Login", CreatedAt: at, UpdatedAt: at, Version: "1.0.0",
		Metadata: map[string]any{"x": 12.5},
		Details:  &entities.FeatureDetails{Status: entities.FeaturePlanned, Priority: entities.PriorityHigh},
	})
	_ = g.AddNode(&entities.Node{
		ID: id + "-api", Kind: entities.KindAPI, Name: "POST /login", CreatedAt: at, UpdatedAt: at, Version: "1.0.0",
		Details: &entities.APIDetails{Method: "POST", Endpoint: "/login"},
	})
	_ = g.AddRelationship(&entities.Relationship{
		ID: id + "-r1", SourceID: id + "-login", TargetID: id + "-api", Type: entities.RelUses, Strength: 0.8, CreatedAt: at,
	})
	g.SetStats(aggregates.GraphStats{NodeCount: 2, EdgeCount: 1, Complexity: 10})
	return g
}

// Run executes the shared adapter scenarios.
func Run(t *testing.T, newAdapter Factory, opts Options) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		a := newAdapter(t, NewClock(), 10)
		g := SampleGraph("g1")
		before := g.UpdatedAt

		require.True(t, a.Save(ctx, g))
		assert.True(t, g.UpdatedAt.After(before), "save stamps a fresh update time")

		loaded := a.Load(ctx, "g1")
		require.NotNil(t, loaded)
		assert.Equal(t, g, loaded)

		loaded.Nodes[0].Name = "mutated"
		again := a.Load(ctx, "g1")
		require.NotNil(t, again)
		assert.Equal(t, "Login", again.Nodes[0].Name, "loaded graphs are independent copies")
	})

	t.Run("load missing", func(t *testing.T) {
		a := newAdapter(t, NewClock(), 10)
		assert.Nil(t, a.Load(ctx, "missing"))
		assert.Nil(t, a.Load(ctx, ""))
		assert.Empty(t, a.ListGraphs(ctx))
	})

	t.Run("load latest", func(t *testing.T) {
		a := newAdapter(t, NewClock(), 10)
		require.True(t, a.Save(ctx, SampleGraph("older")))
		require.True(t, a.Save(ctx, SampleGraph("newer")))

		latest := a.Load(ctx, "")
		require.NotNil(t, latest)
		assert.Equal(t, "newer", latest.ID)
	})

	t.Run("listing excludes backups", func(t *testing.T) {
		a := newAdapter(t, NewClock(), 10)
		for i := 0; i < 3; i++ {
			require.True(t, a.Save(ctx, SampleGraph("g1")))
		}
		if !opts.SingleGraph {
			require.True(t, a.Save(ctx, SampleGraph("g2")))
		}

		list := a.ListGraphs(ctx)
		ids := make([]string, 0, len(list))
		for _, s := range list {
			ids = append(ids, s.ID)
		}
		if opts.SingleGraph {
			assert.Equal(t, []string{"g1"}, ids)
		} else {
			assert.ElementsMatch(t, []string{"g1", "g2"}, ids)
		}
		assert.Equal(t, 2, list[len(list)-1].NodeCount)
	})

	t.Run("backup retention", func(t *testing.T) {
		a := newAdapter(t, NewClock(), 10)
		g := SampleGraph("g1")
		var stamps []time.Time
		for i := 0; i < 13; i++ {
			g.Name = fmt.Sprintf("rev %d", i)
			require.True(t, a.Save(ctx, g))
			stamps = append(stamps, g.UpdatedAt)
		}

		backups := a.ListBackups(ctx, "g1")
		require.Len(t, backups, 10)
		for i := 1; i < len(backups); i++ {
			assert.True(t, backups[i-1].Timestamp.After(backups[i].Timestamp), "backups are newest first")
		}
		// The backup written by the last save copies the previous revision
		// and is stamped with the last save time.
		assert.True(t, backups[0].Timestamp.Equal(stamps[12]))
		assert.True(t, backups[9].Timestamp.Equal(stamps[3]))
	})

	t.Run("delete", func(t *testing.T) {
		a := newAdapter(t, NewClock(), 10)
		require.True(t, a.Save(ctx, SampleGraph("g1")))
		require.True(t, a.Save(ctx, SampleGraph("g1")))

		assert.True(t, a.DeleteGraph(ctx, "g1"))
		assert.Nil(t, a.Load(ctx, "g1"))
		assert.Empty(t, a.ListGraphs(ctx))
		assert.Empty(t, a.ListBackups(ctx, "g1"))
		assert.False(t, a.DeleteGraph(ctx, "g1"))
	})

	t.Run("export and import", func(t *testing.T) {
		a := newAdapter(t, NewClock(), 10)
		g := SampleGraph("g1")

		for _, format := range []ports.ExportFormat{ports.FormatJSON, ports.FormatYAML} {
			data, err := a.ExportGraph(ctx, g, format)
			require.NoError(t, err)
			imported, err := a.ImportGraph(ctx, data, format)
			require.NoError(t, err)
			assert.Equal(t, g, imported)
		}

		_, err := a.ExportGraph(ctx, g, "pdf")
		assert.ErrorIs(t, err, apperrors.ErrUnsupportedFormat)
		_, err = a.ImportGraph(ctx, []byte("{}"), "pdf")
		assert.ErrorIs(t, err, apperrors.ErrUnsupportedFormat)
	})

	t.Run("name and close", func(t *testing.T) {
		a := newAdapter(t, NewClock(), 10)
		assert.NotEmpty(t, a.Name())
		assert.NoError(t, a.Close())
	})
}
