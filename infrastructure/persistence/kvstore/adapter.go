package kvstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"projectgraph/application/ports"
	"projectgraph/domain/core/aggregates"
	"projectgraph/infrastructure/persistence/codec"
	apperrors "projectgraph/pkg/errors"
)

const backendName = "kvstore"

// DefaultKeyPrefix is the storage key of the active graph.
const DefaultKeyPrefix = "project-graph"

// Adapter keeps a single active graph under one key. Saving a graph with
// a different id replaces the active one; the previous value still becomes
// a backup of the slot.
type Adapter struct {
	store   KeyValueStore
	key     string
	backups codec.BackupPolicy
	logger  *zap.Logger
	now     func() time.Time
	mu      sync.Mutex
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithKey overrides the storage key.
func WithKey(key string) Option { return func(a *Adapter) { a.key = key } }

// WithBackupPolicy overrides the default backup policy.
func WithBackupPolicy(p codec.BackupPolicy) Option { return func(a *Adapter) { a.backups = p } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(a *Adapter) { a.logger = l } }

// WithClock replaces the time source used for update stamps and backup keys.
func WithClock(now func() time.Time) Option { return func(a *Adapter) { a.now = now } }

// New builds an adapter over store, defaulting to an in-memory store.
func New(store KeyValueStore, opts ...Option) *Adapter {
	if store == nil {
		store = NewMemoryStore()
	}
	a := &Adapter{
		store:   store,
		key:     DefaultKeyPrefix,
		backups: codec.DefaultBackupPolicy(),
		logger:  zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name identifies the backend.
func (a *Adapter) Name() string { return backendName }

// Key returns the storage key of the active graph.
func (a *Adapter) Key() string { return a.key }

// Close is a no-op; the underlying store is owned by the caller.
func (a *Adapter) Close() error { return nil }

func (a *Adapter) fail(op, graphID string, err error) {
	var de *apperrors.DomainError
	if !errors.As(err, &de) {
		err = apperrors.NewPersistenceError(backendName, op, err)
	}
	a.logger.Error("Graph persistence failed",
		zap.String("backend", backendName),
		zap.String("operation", op),
		zap.String("key", a.key),
		zap.String("graph_id", graphID),
		zap.Error(err))
}

// Save writes graph under the key after copying the current value to a
// timestamped sibling key.
func (a *Adapter) Save(ctx context.Context, graph *aggregates.Graph) bool {
	if graph == nil || graph.ID == "" {
		a.fail("save", "", errors.New("graph without id"))
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	graph.Touch(now)
	data, err := codec.Encode(graph)
	if err != nil {
		a.fail("save", graph.ID, err)
		return false
	}

	if a.backups.Enabled {
		if err := a.backupCurrent(ctx, now); err != nil {
			a.fail("backup", graph.ID, err)
			return false
		}
	}
	if err := a.store.Set(ctx, a.key, string(data)); err != nil {
		a.fail("save", graph.ID, err)
		return false
	}
	return true
}

func (a *Adapter) backupCurrent(ctx context.Context, now time.Time) error {
	previous, ok, err := a.store.Get(ctx, a.key)
	if err != nil || !ok {
		return err
	}
	if err := a.store.Set(ctx, codec.BackupName(a.key, codec.BackupStamp(now)), previous); err != nil {
		return err
	}
	stamps, err := a.backupStamps(ctx)
	if err != nil {
		return err
	}
	for _, stamp := range codec.ExpiredStamps(stamps, a.backups.Keep()) {
		if err := a.store.Delete(ctx, codec.BackupName(a.key, stamp)); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) backupStamps(ctx context.Context) ([]string, error) {
	keys, err := a.store.Keys(ctx, a.key+codec.BackupMarker)
	if err != nil {
		return nil, err
	}
	var stamps []string
	for _, k := range keys {
		if owner, stamp, ok := codec.SplitBackupName(k); ok && owner == a.key {
			stamps = append(stamps, stamp)
		}
	}
	return stamps, nil
}

func (a *Adapter) current(ctx context.Context, op string) *aggregates.Graph {
	data, ok, err := a.store.Get(ctx, a.key)
	if err != nil {
		a.fail(op, "", err)
		return nil
	}
	if !ok {
		return nil
	}
	graph, err := codec.Decode([]byte(data))
	if err != nil {
		a.fail(op, "", err)
		return nil
	}
	return graph
}

// Load returns the active graph. A non-empty locator must match its id.
func (a *Adapter) Load(ctx context.Context, locator string) *aggregates.Graph {
	graph := a.current(ctx, "load")
	if graph == nil || (locator != "" && graph.ID != locator) {
		return nil
	}
	return graph
}

// ListGraphs returns the active graph's summary, if any.
func (a *Adapter) ListGraphs(ctx context.Context) []ports.GraphSummary {
	graph := a.current(ctx, "list")
	if graph == nil {
		return []ports.GraphSummary{}
	}
	return []ports.GraphSummary{codec.Summarize(graph)}
}

// DeleteGraph clears the key and its backups when id is the active graph.
func (a *Adapter) DeleteGraph(ctx context.Context, id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	graph := a.current(ctx, "delete")
	if graph == nil || graph.ID != id {
		return false
	}
	if err := a.store.Delete(ctx, a.key); err != nil {
		a.fail("delete", id, err)
		return false
	}
	stamps, err := a.backupStamps(ctx)
	if err != nil {
		a.fail("delete", id, err)
		return true
	}
	for _, stamp := range stamps {
		if err := a.store.Delete(ctx, codec.BackupName(a.key, stamp)); err != nil {
			a.fail("delete", id, err)
		}
	}
	return true
}

// ListBackups returns the slot's backups, newest first, when graphID is active.
func (a *Adapter) ListBackups(ctx context.Context, graphID string) []ports.BackupInfo {
	graph := a.current(ctx, "list_backups")
	if graph == nil || graph.ID != graphID {
		return []ports.BackupInfo{}
	}
	stamps, err := a.backupStamps(ctx)
	if err != nil {
		a.fail("list_backups", graphID, err)
		return nil
	}
	codec.NewestFirst(stamps)

	out := make([]ports.BackupInfo, 0, len(stamps))
	for _, stamp := range stamps {
		ts, err := codec.ParseBackupStamp(stamp)
		if err != nil {
			continue
		}
		out = append(out, ports.BackupInfo{
			GraphID:   graphID,
			Timestamp: ts,
			Key:       codec.BackupName(a.key, stamp),
		})
	}
	return out
}

// LoadBackup reads one backup value.
func (a *Adapter) LoadBackup(ctx context.Context, info ports.BackupInfo) *aggregates.Graph {
	data, ok, err := a.store.Get(ctx, codec.BackupName(a.key, codec.BackupStamp(info.Timestamp)))
	if err != nil {
		a.fail("load_backup", info.GraphID, err)
		return nil
	}
	if !ok {
		return nil
	}
	graph, err := codec.Decode([]byte(data))
	if err != nil {
		a.fail("load_backup", info.GraphID, err)
		return nil
	}
	return graph
}

// ExportGraph serializes graph to format.
func (a *Adapter) ExportGraph(ctx context.Context, graph *aggregates.Graph, format ports.ExportFormat) ([]byte, error) {
	return codec.Export(graph, format)
}

// ImportGraph parses and validates data in format.
func (a *Adapter) ImportGraph(ctx context.Context, data []byte, format ports.ExportFormat) (*aggregates.Graph, error) {
	return codec.Import(data, format)
}

var _ ports.PersistenceAdapter = (*Adapter)(nil)
