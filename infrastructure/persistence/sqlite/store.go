// Package sqlite is the structured object-store backend: graphs are keyed
// records in a local SQLite database with an index on update time, and
// backups live in a second table keyed by (graph id, timestamp).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"projectgraph/application/ports"
	"projectgraph/domain/core/aggregates"
	"projectgraph/infrastructure/persistence/codec"
	apperrors "projectgraph/pkg/errors"
)

const (
	driverName  = "sqlite"
	backendName = "sqlite"
	// tsLayout is fixed width so timestamps order correctly as text.
	tsLayout = "2006-01-02T15:04:05.000000000Z"
)

// Store is the structured object-store backend.
type Store struct {
	path    string
	db      *sql.DB
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

// WithClock replaces the time source used for update stamps and backup keys.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// Open opens or creates the database at path and brings its schema up to date.
func Open(path string, opts ...Option) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("sqlite path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("sqlite path %q is a directory, expected file", cleanPath)
	}
	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	s := &Store{
		path:    cleanPath,
		db:      db,
		backups: codec.DefaultBackupPolicy(),
		logger:  zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name identifies the backend.
func (s *Store) Name() string { return backendName }

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) fail(op, graphID string, err error) {
	s.logger.Error("Graph persistence failed",
		zap.String("backend", backendName),
		zap.String("operation", op),
		zap.String("graph_id", graphID),
		zap.Error(apperrors.NewPersistenceError(backendName, op, err)))
}

func formatTS(t time.Time) string { return t.UTC().Format(tsLayout) }

// Save upserts the graph record, first copying the stored record into the
// backup table and pruning that graph's backups to the retention limit.
func (s *Store) Save(ctx context.Context, graph *aggregates.Graph) bool {
	if graph == nil || graph.ID == "" {
		s.fail("save", "", errors.New("graph without id"))
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

	if err := s.saveTx(ctx, graph, string(data), now); err != nil {
		s.fail("save", graph.ID, err)
		return false
	}
	return true
}

func (s *Store) saveTx(ctx context.Context, graph *aggregates.Graph, data string, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if s.backups.Enabled {
		var previous string
		err := tx.QueryRowContext(ctx, `SELECT data FROM graphs WHERE id = ?`, graph.ID).Scan(&previous)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("read previous: %w", err)
		default:
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO graph_backups(graph_id, ts_utc, data) VALUES (?, ?, ?)`,
				graph.ID, formatTS(now), previous); err != nil {
				return fmt.Errorf("write backup: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
DELETE FROM graph_backups
WHERE graph_id = ?
  AND ts_utc NOT IN (
    SELECT ts_utc FROM graph_backups WHERE graph_id = ? ORDER BY ts_utc DESC LIMIT ?
  )`, graph.ID, graph.ID, s.backups.Keep()); err != nil {
				return fmt.Errorf("prune backups: %w", err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO graphs(id, name, version, updated_at_utc, node_count, edge_count, data)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  name = excluded.name,
  version = excluded.version,
  updated_at_utc = excluded.updated_at_utc,
  node_count = excluded.node_count,
  edge_count = excluded.edge_count,
  data = excluded.data`,
		graph.ID, graph.Name, graph.Version, formatTS(graph.UpdatedAt),
		graph.NodeCount(), graph.RelationshipCount(), data); err != nil {
		return fmt.Errorf("upsert graph: %w", err)
	}

	return tx.Commit()
}

// Load reads a graph by id, or the most recently updated graph when locator is empty.
func (s *Store) Load(ctx context.Context, locator string) *aggregates.Graph {
	var (
		row *sql.Row
		op  = "load"
	)
	if locator == "" {
		row = s.db.QueryRowContext(ctx, `SELECT data FROM graphs ORDER BY updated_at_utc DESC LIMIT 1`)
		op = "load_latest"
	} else {
		row = s.db.QueryRowContext(ctx, `SELECT data FROM graphs WHERE id = ?`, locator)
	}

	var data string
	if err := row.Scan(&data); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.fail(op, locator, err)
		}
		return nil
	}
	graph, err := codec.Decode([]byte(data))
	if err != nil {
		s.fail(op, locator, err)
		return nil
	}
	return graph
}

// ListGraphs enumerates stored graphs, newest first.
func (s *Store) ListGraphs(ctx context.Context) []ports.GraphSummary {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, version, updated_at_utc, node_count, edge_count
FROM graphs
ORDER BY updated_at_utc DESC`)
	if err != nil {
		s.fail("list", "", err)
		return nil
	}
	defer rows.Close()

	out := []ports.GraphSummary{}
	for rows.Next() {
		var (
			summary ports.GraphSummary
			updated string
		)
		if err := rows.Scan(&summary.ID, &summary.Name, &summary.Version, &updated, &summary.NodeCount, &summary.EdgeCount); err != nil {
			s.fail("list", "", err)
			return nil
		}
		if summary.UpdatedAt, err = time.Parse(tsLayout, updated); err != nil {
			s.fail("list", summary.ID, err)
			continue
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		s.fail("list", "", err)
		return nil
	}
	return out
}

// DeleteGraph removes the graph record and its backups.
func (s *Store) DeleteGraph(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.fail("delete", id, err)
		return false
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM graphs WHERE id = ?`, id)
	if err != nil {
		s.fail("delete", id, err)
		return false
	}
	affected, err := res.RowsAffected()
	if err != nil {
		s.fail("delete", id, err)
		return false
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM graph_backups WHERE graph_id = ?`, id); err != nil {
		s.fail("delete", id, err)
		return false
	}
	if err := tx.Commit(); err != nil {
		s.fail("delete", id, err)
		return false
	}
	return affected > 0
}

// ListBackups returns the graph's backups, newest first.
func (s *Store) ListBackups(ctx context.Context, graphID string) []ports.BackupInfo {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts_utc FROM graph_backups WHERE graph_id = ? ORDER BY ts_utc DESC`, graphID)
	if err != nil {
		s.fail("list_backups", graphID, err)
		return nil
	}
	defer rows.Close()

	out := []ports.BackupInfo{}
	for rows.Next() {
		var ts string
		if err := rows.Scan(&ts); err != nil {
			s.fail("list_backups", graphID, err)
			return nil
		}
		parsed, err := time.Parse(tsLayout, ts)
		if err != nil {
			continue
		}
		out = append(out, ports.BackupInfo{GraphID: graphID, Timestamp: parsed, Key: ts})
	}
	if err := rows.Err(); err != nil {
		s.fail("list_backups", graphID, err)
		return nil
	}
	return out
}

// LoadBackup reads one backup copy.
func (s *Store) LoadBackup(ctx context.Context, info ports.BackupInfo) *aggregates.Graph {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM graph_backups WHERE graph_id = ? AND ts_utc = ?`,
		info.GraphID, formatTS(info.Timestamp)).Scan(&data)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.fail("load_backup", info.GraphID, err)
		}
		return nil
	}
	graph, err := codec.Decode([]byte(data))
	if err != nil {
		s.fail("load_backup", info.GraphID, err)
		return nil
	}
	return graph
}

// ExportGraph serializes graph to format.
func (s *Store) ExportGraph(ctx context.Context, graph *aggregates.Graph, format ports.ExportFormat) ([]byte, error) {
	return codec.Export(graph, format)
}

// ImportGraph parses and validates data in format.
func (s *Store) ImportGraph(ctx context.Context, data []byte, format ports.ExportFormat) (*aggregates.Graph, error) {
	return codec.Import(data, format)
}

var _ ports.PersistenceAdapter = (*Store)(nil)
