// Package services holds the graph engine: the authoritative in-memory graph,
// its validated mutations, the change stream and the save/load orchestration.
package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"projectgraph/application/ports"
	"projectgraph/domain/config"
	"projectgraph/domain/core/aggregates"
	"projectgraph/domain/events"
	domainservices "projectgraph/domain/services"
	"projectgraph/pkg/observability"
)

// EngineState is the lifecycle state of a GraphEngine.
type EngineState string

const (
	StateUninitialized EngineState = "uninitialized"
	StateReady         EngineState = "ready"
	StateMigrating     EngineState = "migrating"
)

// ChangeHandler receives committed graph changes.
type ChangeHandler func(change events.GraphChange)

type subscriber struct {
	id uint64
	fn ChangeHandler
}

// GraphEngine owns one active graph. Mutations are serialized by an internal
// lock; persistence I/O runs outside it, so a save may observe a graph a
// mutation older or newer than a concurrent caller expects. Changes are
// published after the lock is released, so subscribers see them in commit
// order only when a single goroutine mutates the graph.
type GraphEngine struct {
	mu    sync.RWMutex
	state EngineState
	graph *aggregates.Graph

	adapter   ports.PersistenceAdapter
	migrator  ports.GraphMigrator
	analytics *domainservices.GraphAnalyticsService
	config    *config.DomainConfig
	logger    *zap.Logger
	metrics   *observability.Collector
	now       func() time.Time
	newID     func() string

	subMu       sync.Mutex
	subscribers []subscriber
	nextSubID   uint64

	autosaveMu       sync.Mutex
	autosaveInterval time.Duration
	autosave         *autosaveTask
}

// EngineOption configures a GraphEngine.
type EngineOption func(*GraphEngine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *GraphEngine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records mutations, graph gauges and autosaves.
func WithMetrics(m *observability.Collector) EngineOption {
	return func(e *GraphEngine) { e.metrics = m }
}

// WithMigrator sets the migration system consulted on load and import.
func WithMigrator(m ports.GraphMigrator) EngineOption {
	return func(e *GraphEngine) { e.migrator = m }
}

// WithDomainConfig replaces the default graph rules.
func WithDomainConfig(c *config.DomainConfig) EngineOption {
	return func(e *GraphEngine) {
		if c != nil {
			e.config = c
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *GraphEngine) { e.now = now }
}

// WithIDGenerator replaces uuid generation for new graphs, nodes and relationships.
func WithIDGenerator(newID func() string) EngineOption {
	return func(e *GraphEngine) { e.newID = newID }
}

// NewGraphEngine creates an Uninitialized engine persisting through adapter.
func NewGraphEngine(adapter ports.PersistenceAdapter, opts ...EngineOption) *GraphEngine {
	e := &GraphEngine{
		state:     StateUninitialized,
		adapter:   adapter,
		analytics: domainservices.NewGraphAnalyticsService(),
		config:    config.DefaultDomainConfig(),
		logger:    zap.NewNop(),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.autosaveInterval = e.config.AutosaveInterval
	return e
}

// State reports the lifecycle state.
func (e *GraphEngine) State() EngineState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// NewGraph replaces the active graph with an empty one at the current
// schema version. An empty name falls back to the configured default.
func (e *GraphEngine) NewGraph(name, description string) *aggregates.Graph {
	if name == "" {
		name = e.config.DefaultGraphName
	}
	now := e.now()
	g := aggregates.NewGraph(e.newID(), name, description, e.config.SchemaVersion, now)
	g.Settings.Autosave = e.AutosaveEnabled()

	e.mu.Lock()
	e.graph = g
	e.state = StateReady
	e.refreshStatsLocked()
	snapshot := g.Clone()
	e.mu.Unlock()

	e.logger.Info("Created graph", zap.String("graph_id", g.ID), zap.String("name", g.Name))
	return snapshot
}

// Snapshot returns a deep copy of the active graph, or nil.
func (e *GraphEngine) Snapshot() *aggregates.Graph {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.graph == nil {
		return nil
	}
	return e.graph.Clone()
}

// Subscribe registers fn for every committed change, in registration order.
// The returned func removes the subscription and is safe to call twice.
func (e *GraphEngine) Subscribe(fn ChangeHandler) (unsubscribe func()) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.nextSubID++
	id := e.nextSubID
	e.subscribers = append(e.subscribers, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			e.subMu.Lock()
			defer e.subMu.Unlock()
			for i, s := range e.subscribers {
				if s.id == id {
					e.subscribers = append(e.subscribers[:i:i], e.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// publish delivers change synchronously. A panicking subscriber is logged
// and skipped; the mutation stays committed.
func (e *GraphEngine) publish(change events.GraphChange) {
	e.metrics.ObserveMutation(string(change.Entity), string(change.Kind))

	e.subMu.Lock()
	subs := append([]subscriber(nil), e.subscribers...)
	e.subMu.Unlock()

	for _, s := range subs {
		e.deliver(s, change)
	}
}

func (e *GraphEngine) deliver(s subscriber, change events.GraphChange) {
	defer func() {
		if r := recover(); r != nil {
			if e.metrics != nil {
				e.metrics.SubscriberPanic.Inc()
			}
			e.logger.Error("Change subscriber panicked",
				zap.Uint64("subscriber", s.id),
				zap.String("event_type", change.EventType),
				zap.String("entity_id", change.EntityID()),
				zap.Any("panic", r))
		}
	}()
	s.fn(change)
}

// commitLocked stamps a committed mutation and refreshes the statistics.
// Callers hold mu.
func (e *GraphEngine) commitLocked(now time.Time) {
	e.graph.Touch(now)
	e.graph.RecordInteraction(now)
	e.refreshStatsLocked()
}

// refreshStatsLocked recomputes the derived statistics. Callers hold mu.
func (e *GraphEngine) refreshStatsLocked() {
	stats := e.analytics.CalculateStats(e.graph)
	e.graph.SetStats(stats)
	e.metrics.ObserveGraph(stats.NodeCount, stats.EdgeCount, stats.Complexity)
}

// Close stops autosave. The adapter belongs to the caller.
func (e *GraphEngine) Close() error {
	e.SetAutosave(false)
	return nil
}
