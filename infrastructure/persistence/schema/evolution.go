package schema

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"projectgraph/domain/core/aggregates"
	"projectgraph/domain/core/valueobjects"
	apperrors "projectgraph/pkg/errors"
)

// DefaultMaxHops guards path resolution against cyclic registrations.
const DefaultMaxHops = 100

// TransformFunc moves a graph one schema version forward. It receives a
// private copy and returns the transformed graph.
type TransformFunc func(ctx context.Context, graph *aggregates.Graph) (*aggregates.Graph, error)

// Migration represents one registered schema step
type Migration struct {
	FromVersion string        `json:"from_version"`
	ToVersion   string        `json:"to_version"`
	Description string        `json:"description"`
	Transform   TransformFunc `json:"-"`
}

// AppliedMigration records one executed step
type AppliedMigration struct {
	GraphID     string    `json:"graph_id"`
	FromVersion string    `json:"from_version"`
	ToVersion   string    `json:"to_version"`
	Description string    `json:"description"`
	AppliedAt   time.Time `json:"applied_at"`
}

// Registry keeps migrations sorted by FromVersion (dotted numeric order) and
// resolves chains of them between two versions.
type Registry struct {
	mu         sync.RWMutex
	migrations []Migration
	history    []AppliedMigration
	maxHops    int
	logger     *zap.Logger
	now        func() time.Time
}

// NewRegistry creates an empty registry. A non-positive maxHops uses DefaultMaxHops.
func NewRegistry(maxHops int, logger *zap.Logger) *Registry {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		migrations: []Migration{},
		history:    []AppliedMigration{},
		maxHops:    maxHops,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// NewDefaultRegistry creates a registry holding the built-in migration chain.
func NewDefaultRegistry(maxHops int, logger *zap.Logger) *Registry {
	r := NewRegistry(maxHops, logger)
	for _, m := range BuiltinMigrations() {
		if err := r.Register(m); err != nil {
			panic(fmt.Sprintf("builtin migration %s->%s: %v", m.FromVersion, m.ToVersion, err))
		}
	}
	return r
}

// Register inserts a migration, keeping the registry sorted by FromVersion.
// Only one step may start at a given version.
func (r *Registry) Register(migration Migration) error {
	if migration.FromVersion == "" || migration.ToVersion == "" {
		return fmt.Errorf("invalid migration: from_version and to_version are required")
	}
	if valueobjects.CompareVersions(migration.FromVersion, migration.ToVersion) == 0 {
		return fmt.Errorf("invalid migration: from_version must differ from to_version")
	}
	if migration.Transform == nil {
		return fmt.Errorf("invalid migration: transform is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.migrations {
		if valueobjects.CompareVersions(existing.FromVersion, migration.FromVersion) == 0 {
			return apperrors.ErrMigrationConflict.Clone().
				WithDetail("from_version", migration.FromVersion).
				WithDetail("existing_to_version", existing.ToVersion)
		}
	}

	i := sort.Search(len(r.migrations), func(i int) bool {
		return valueobjects.CompareVersions(r.migrations[i].FromVersion, migration.FromVersion) > 0
	})
	r.migrations = append(r.migrations, Migration{})
	copy(r.migrations[i+1:], r.migrations[i:])
	r.migrations[i] = migration
	return nil
}

// Migrations returns the registered steps in FromVersion order.
func (r *Registry) Migrations() []Migration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Migration(nil), r.migrations...)
}

// FindMigrationPath walks the registry greedily from one version to another.
// It fails with ErrNoMigrationPath when no step starts at some intermediate
// version and with ErrMigrationPathTooLong past the hop limit.
func (r *Registry) FindMigrationPath(from, to string) ([]Migration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path := []Migration{}
	current := from
	for valueobjects.CompareVersions(current, to) != 0 {
		if len(path) >= r.maxHops {
			return nil, apperrors.ErrMigrationPathTooLong.Clone().
				WithDetail("from", from).
				WithDetail("to", to).
				WithDetail("max_hops", r.maxHops)
		}
		step := r.findMigration(current)
		if step == nil {
			return nil, apperrors.ErrNoMigrationPath.Clone().
				WithMessage(fmt.Sprintf("no migration path from %s to %s (stuck at %s)", from, to, current)).
				WithDetail("from", from).
				WithDetail("to", to).
				WithDetail("at", current)
		}
		path = append(path, *step)
		current = step.ToVersion
	}
	return path, nil
}

// findMigration finds the step starting at version
func (r *Registry) findMigration(version string) *Migration {
	i := sort.Search(len(r.migrations), func(i int) bool {
		return valueobjects.CompareVersions(r.migrations[i].FromVersion, version) >= 0
	})
	if i < len(r.migrations) && valueobjects.CompareVersions(r.migrations[i].FromVersion, version) == 0 {
		m := r.migrations[i]
		return &m
	}
	return nil
}

// MigrateGraph returns graph moved to targetVersion. When the versions
// already match the input is returned unchanged. Each step works on its own
// copy, so the input is never modified.
func (r *Registry) MigrateGraph(ctx context.Context, graph *aggregates.Graph, targetVersion string) (*aggregates.Graph, error) {
	if valueobjects.CompareVersions(graph.Version, targetVersion) == 0 {
		return graph, nil
	}

	path, err := r.FindMigrationPath(graph.Version, targetVersion)
	if err != nil {
		return nil, err
	}

	current := graph
	for _, step := range path {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.ErrMigrationFailed.Clone().WithCause(err).
				WithDetail("from_version", step.FromVersion)
		}

		next, err := step.Transform(ctx, current.Clone())
		if err != nil {
			return nil, apperrors.ErrMigrationFailed.Clone().
				WithMessage(fmt.Sprintf("migration %s->%s failed", step.FromVersion, step.ToVersion)).
				WithCause(err).
				WithDetail("from_version", step.FromVersion).
				WithDetail("to_version", step.ToVersion)
		}
		if next == nil {
			return nil, apperrors.ErrMigrationFailed.Clone().
				WithMessage(fmt.Sprintf("migration %s->%s returned no graph", step.FromVersion, step.ToVersion))
		}
		next.Version = step.ToVersion
		current = next

		r.record(AppliedMigration{
			GraphID:     graph.ID,
			FromVersion: step.FromVersion,
			ToVersion:   step.ToVersion,
			Description: step.Description,
			AppliedAt:   r.now(),
		})
		r.logger.Info("Applied graph migration",
			zap.String("graph_id", graph.ID),
			zap.String("from_version", step.FromVersion),
			zap.String("to_version", step.ToVersion))
	}
	return current, nil
}

func (r *Registry) record(applied AppliedMigration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, applied)
}

// GetHistory returns the steps applied by this registry
func (r *Registry) GetHistory() []AppliedMigration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]AppliedMigration(nil), r.history...)
}
