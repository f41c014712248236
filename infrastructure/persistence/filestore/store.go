// Package filestore persists graphs as one JSON file per graph id, with
// timestamp-suffixed backup files next to each primary file.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"projectgraph/application/ports"
	"projectgraph/domain/core/aggregates"
	"projectgraph/infrastructure/persistence/codec"
	apperrors "projectgraph/pkg/errors"
)

const (
	backendName = "filestore"
	fileExt     = ".json"
	tempPrefix  = ".tmp-"
)

// Store is the durable-files backend.
type Store struct {
	dir     string
	backups codec.BackupPolicy
	logger  *zap.Logger
	now     func() time.Time
	mu      sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithBackupPolicy overrides the default backup policy.
func WithBackupPolicy(p codec.BackupPolicy) Option { return func(s *Store) { s.backups = p } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.logger = l } }

// WithClock replaces the time source used for update stamps and backup names.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		dir:     dir,
		backups: codec.DefaultBackupPolicy(),
		logger:  zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.NewPersistenceError(backendName, "init", err)
	}
	return s, nil
}

// Name identifies the backend.
func (s *Store) Name() string { return backendName }

// Dir returns the storage directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) primaryPath(id string) string {
	return filepath.Join(s.dir, id+fileExt)
}

func (s *Store) backupPath(id, stamp string) string {
	return filepath.Join(s.dir, codec.BackupName(id, stamp)+fileExt)
}

func (s *Store) fail(op, graphID string, err error) {
	s.logger.Error("Graph persistence failed",
		zap.String("backend", backendName),
		zap.String("operation", op),
		zap.String("graph_id", graphID),
		zap.Error(apperrors.NewPersistenceError(backendName, op, err)))
}

// Save writes the graph, first copying any existing file to a backup.
func (s *Store) Save(ctx context.Context, graph *aggregates.Graph) bool {
	if graph == nil {
		s.fail("save", "", errors.New("nil graph"))
		return false
	}
	if !codec.ValidStorageID(graph.ID) {
		s.fail("save", graph.ID, fmt.Errorf("graph id %q cannot be used as a file name", graph.ID))
		return false
	}
	if err := ctx.Err(); err != nil {
		s.fail("save", graph.ID, err)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	graph.Touch(now)
	data, err := codec.Encode(graph)
	if err != nil {
		s.fail("save", graph.ID, err)
		return false
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.fail("save", graph.ID, err)
		return false
	}

	if s.backups.Enabled {
		if err := s.backupExisting(graph.ID, now); err != nil {
			s.fail("backup", graph.ID, err)
			return false
		}
	}

	if err := writeAtomic(s.dir, s.primaryPath(graph.ID), data); err != nil {
		s.fail("save", graph.ID, err)
		return false
	}

	s.logger.Debug("Graph saved",
		zap.String("backend", backendName),
		zap.String("graph_id", graph.ID),
		zap.Int("bytes", len(data)))
	return true
}

func (s *Store) backupExisting(id string, now time.Time) error {
	previous, err := os.ReadFile(s.primaryPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := writeAtomic(s.dir, s.backupPath(id, codec.BackupStamp(now)), previous); err != nil {
		return err
	}
	return s.pruneBackups(id)
}

func (s *Store) pruneBackups(id string) error {
	stamps, err := s.backupStamps(id)
	if err != nil {
		return err
	}
	for _, stamp := range codec.ExpiredStamps(stamps, s.backups.Keep()) {
		if err := os.Remove(s.backupPath(id, stamp)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (s *Store) backupStamps(id string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var stamps []string
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), fileExt)
		if owner, stamp, ok := codec.SplitBackupName(name); ok && owner == id {
			stamps = append(stamps, stamp)
		}
	}
	return stamps, nil
}

// writeAtomic writes data to a temp file in dir and renames it over path.
func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Load reads one graph by id, or the most recently updated one when locator is empty.
func (s *Store) Load(ctx context.Context, locator string) *aggregates.Graph {
	if err := ctx.Err(); err != nil {
		s.fail("load", locator, err)
		return nil
	}
	if locator == "" {
		return s.loadLatest()
	}
	if !codec.ValidStorageID(locator) {
		s.fail("load", locator, fmt.Errorf("invalid graph id %q", locator))
		return nil
	}

	graph, err := s.read(s.primaryPath(locator))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		s.fail("load", locator, err)
		return nil
	}
	return graph
}

func (s *Store) read(path string) (*aggregates.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return codec.Decode(data)
}

func (s *Store) loadLatest() *aggregates.Graph {
	graphs := s.scan()
	if len(graphs) == 0 {
		return nil
	}
	return graphs[0]
}

// scan decodes every primary file, newest first. Unreadable files are logged and skipped.
func (s *Store) scan() []*aggregates.Graph {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.fail("list", "", err)
		return nil
	}

	var graphs []*aggregates.Graph
	for _, e := range entries {
		id, ok := primaryID(e)
		if !ok {
			continue
		}
		g, err := s.read(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.fail("list", id, err)
			continue
		}
		graphs = append(graphs, g)
	}
	sort.SliceStable(graphs, func(i, j int) bool {
		return graphs[i].UpdatedAt.After(graphs[j].UpdatedAt)
	})
	return graphs
}

func primaryID(e fs.DirEntry) (string, bool) {
	if !e.Type().IsRegular() {
		return "", false
	}
	name := e.Name()
	if !strings.HasSuffix(name, fileExt) || strings.HasPrefix(name, tempPrefix) {
		return "", false
	}
	name = strings.TrimSuffix(name, fileExt)
	if _, _, isBackup := codec.SplitBackupName(name); isBackup {
		return "", false
	}
	return name, true
}

// ListGraphs enumerates stored graphs, newest first. Backup files are excluded.
func (s *Store) ListGraphs(ctx context.Context) []ports.GraphSummary {
	graphs := s.scan()
	out := make([]ports.GraphSummary, 0, len(graphs))
	for _, g := range graphs {
		out = append(out, codec.Summarize(g))
	}
	return out
}

// DeleteGraph removes the graph file and its backups.
func (s *Store) DeleteGraph(ctx context.Context, id string) bool {
	if !codec.ValidStorageID(id) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := true
	if err := os.Remove(s.primaryPath(id)); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.fail("delete", id, err)
			return false
		}
		removed = false
	}

	// Orphaned backups go too, even when the primary file is already gone.
	stamps, err := s.backupStamps(id)
	if err != nil {
		s.fail("delete", id, err)
		return removed
	}
	for _, stamp := range stamps {
		if err := os.Remove(s.backupPath(id, stamp)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.fail("delete", id, err)
		}
	}
	return removed
}

// ListBackups returns the graph's backup files, newest first.
func (s *Store) ListBackups(ctx context.Context, graphID string) []ports.BackupInfo {
	stamps, err := s.backupStamps(graphID)
	if err != nil {
		s.fail("list_backups", graphID, err)
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
			Key:       filepath.Base(s.backupPath(graphID, stamp)),
		})
	}
	return out
}

// LoadBackup reads one backup copy.
func (s *Store) LoadBackup(ctx context.Context, info ports.BackupInfo) *aggregates.Graph {
	g, err := s.read(s.backupPath(info.GraphID, codec.BackupStamp(info.Timestamp)))
	if err != nil {
		s.fail("load_backup", info.GraphID, err)
		return nil
	}
	return g
}

// ExportGraph serializes graph to format.
func (s *Store) ExportGraph(ctx context.Context, graph *aggregates.Graph, format ports.ExportFormat) ([]byte, error) {
	return codec.Export(graph, format)
}

// ImportGraph parses and validates data in format.
func (s *Store) ImportGraph(ctx context.Context, data []byte, format ports.ExportFormat) (*aggregates.Graph, error) {
	return codec.Import(data, format)
}

// Close is a no-op; files are closed after every operation.
func (s *Store) Close() error { return nil }

var _ ports.PersistenceAdapter = (*Store)(nil)
