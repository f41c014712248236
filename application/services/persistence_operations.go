package services

import (
	"context"

	"go.uber.org/zap"

	"projectgraph/application/ports"
	"projectgraph/domain/core/aggregates"
	"projectgraph/domain/core/valueobjects"
	apperrors "projectgraph/pkg/errors"
)

// SaveGraph writes a snapshot of the active graph through the adapter. The
// lock is not held during I/O. On success the adapter's update stamp is
// copied back onto the active graph.
func (e *GraphEngine) SaveGraph(ctx context.Context) bool {
	snapshot := e.Snapshot()
	if snapshot == nil || e.adapter == nil {
		return false
	}
	if !e.adapter.Save(ctx, snapshot) {
		return false
	}

	e.mu.Lock()
	if e.graph != nil && e.graph.ID == snapshot.ID && snapshot.UpdatedAt.After(e.graph.UpdatedAt) {
		e.graph.Touch(snapshot.UpdatedAt)
	}
	e.mu.Unlock()
	return true
}

// LoadGraph loads a stored graph (the most recent one when locator is
// empty) and makes it active. A graph at another schema version is migrated
// and immediately saved back. It returns nil without error when nothing is
// stored under locator; a migration failure is returned and leaves the
// previous state in place.
func (e *GraphEngine) LoadGraph(ctx context.Context, locator string) (*aggregates.Graph, error) {
	if e.adapter == nil {
		return nil, nil
	}
	loaded := e.adapter.Load(ctx, locator)
	if loaded == nil {
		e.logger.Info("No stored graph", zap.String("locator", locator))
		return nil, nil
	}

	graph, migrated, err := e.upgrade(ctx, loaded)
	if err != nil {
		return nil, err
	}
	if migrated && !e.adapter.Save(ctx, graph) {
		e.logger.Warn("Migrated graph could not be saved back",
			zap.String("graph_id", graph.ID),
			zap.String("version", graph.Version))
	}

	return e.activate(graph), nil
}

// upgrade migrates graph to the current schema version, holding the engine
// in the Migrating state meanwhile.
func (e *GraphEngine) upgrade(ctx context.Context, graph *aggregates.Graph) (*aggregates.Graph, bool, error) {
	target := e.config.SchemaVersion
	if valueobjects.CompareVersions(graph.Version, target) == 0 {
		return graph, false, nil
	}
	if e.migrator == nil {
		return nil, false, apperrors.ErrNoMigrationPath.Clone().
			WithDetail("from_version", graph.Version).
			WithDetail("to_version", target)
	}

	e.mu.Lock()
	previous := e.state
	e.state = StateMigrating
	e.mu.Unlock()

	migrated, err := e.migrator.MigrateGraph(ctx, graph, target)
	if err != nil {
		e.mu.Lock()
		e.state = previous
		e.mu.Unlock()
		e.logger.Error("Graph migration failed",
			zap.String("graph_id", graph.ID),
			zap.String("from_version", graph.Version),
			zap.String("to_version", target),
			zap.Error(err))
		return nil, false, err
	}

	if e.metrics != nil {
		e.metrics.MigrationsApplied.Inc()
	}
	e.logger.Info("Migrated graph",
		zap.String("graph_id", graph.ID),
		zap.String("from_version", graph.Version),
		zap.String("to_version", migrated.Version))
	return migrated, true, nil
}

func (e *GraphEngine) activate(graph *aggregates.Graph) *aggregates.Graph {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.graph = graph
	e.state = StateReady
	e.refreshStatsLocked()
	return graph.Clone()
}

// ExportGraph serializes the active graph.
func (e *GraphEngine) ExportGraph(ctx context.Context, format ports.ExportFormat) ([]byte, error) {
	snapshot := e.Snapshot()
	if snapshot == nil {
		return nil, apperrors.ErrNoActiveGraph.Clone()
	}
	if e.adapter == nil {
		return nil, errNoAdapter()
	}
	return e.adapter.ExportGraph(ctx, snapshot, format)
}

// ImportGraph parses and validates data, migrates it when needed and makes
// it the active graph. Nothing is saved.
func (e *GraphEngine) ImportGraph(ctx context.Context, data []byte, format ports.ExportFormat) (*aggregates.Graph, error) {
	if e.adapter == nil {
		return nil, errNoAdapter()
	}
	imported, err := e.adapter.ImportGraph(ctx, data, format)
	if err != nil {
		return nil, err
	}
	graph, _, err := e.upgrade(ctx, imported)
	if err != nil {
		return nil, err
	}
	return e.activate(graph), nil
}

// ListGraphs enumerates stored graphs.
func (e *GraphEngine) ListGraphs(ctx context.Context) []ports.GraphSummary {
	if e.adapter == nil {
		return nil
	}
	return e.adapter.ListGraphs(ctx)
}

// DeleteGraph removes a stored graph. The active in-memory graph is kept.
func (e *GraphEngine) DeleteGraph(ctx context.Context, id string) bool {
	if e.adapter == nil {
		return false
	}
	return e.adapter.DeleteGraph(ctx, id)
}

// ListBackups lists a stored graph's backups, newest first.
func (e *GraphEngine) ListBackups(ctx context.Context, id string) []ports.BackupInfo {
	if e.adapter == nil {
		return nil
	}
	return e.adapter.ListBackups(ctx, id)
}

// BackendName names the active persistence backend.
func (e *GraphEngine) BackendName() string {
	if e.adapter == nil {
		return ""
	}
	return e.adapter.Name()
}

func errNoAdapter() error {
	return apperrors.NewPersistenceError("none", "configure", nil).
		WithMessage("no persistence adapter configured").
		WithRetryable(false)
}
