// Package persistence selects and decorates the graph storage backend.
package persistence

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"projectgraph/application/ports"
	"projectgraph/infrastructure/persistence/codec"
	"projectgraph/infrastructure/persistence/filestore"
	"projectgraph/infrastructure/persistence/kvstore"
	"projectgraph/infrastructure/persistence/sqlite"
)

// BackendType names a storage backend.
type BackendType string

const (
	// BackendAuto picks the first available backend in fallback order.
	BackendAuto   BackendType = ""
	BackendFiles  BackendType = "files"
	BackendSQLite BackendType = "sqlite"
	BackendKV     BackendType = "kvstore"
)

// ParseBackendType accepts the names used in configuration.
func ParseBackendType(s string) (BackendType, error) {
	switch BackendType(s) {
	case BackendAuto, "auto":
		return BackendAuto, nil
	case BackendFiles, BackendSQLite, BackendKV:
		return BackendType(s), nil
	}
	return "", fmt.Errorf("unknown persistence backend %q", s)
}

// Capabilities describes what the runtime environment offers.
type Capabilities struct {
	Filesystem  bool
	ObjectStore bool
}

// Options configures NewAdapter.
type Options struct {
	Backend BackendType
	// Dir is the graph directory of the files backend.
	Dir string
	// SQLitePath is the database file of the object-store backend.
	SQLitePath string
	// KVKey is the storage key of the key-string backend.
	KVKey string
	// KVStore backs the key-string backend; nil means in-memory.
	KVStore kvstore.KeyValueStore
	Backups codec.BackupPolicy
	Logger  *zap.Logger
	Clock   func() time.Time
	// Capabilities overrides DetectCapabilities when set.
	Capabilities *Capabilities
}

// DetectCapabilities probes the environment for the configured locations.
func DetectCapabilities(opts Options) Capabilities {
	return Capabilities{
		Filesystem:  opts.Dir != "" && writableDir(opts.Dir),
		ObjectStore: opts.SQLitePath != "",
	}
}

func writableDir(dir string) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	_ = os.Remove(name)
	return true
}

// NewAdapter builds the requested backend. With BackendAuto it tries files,
// then the object store, then the key-string store, skipping backends the
// environment lacks or that fail to open.
func NewAdapter(opts Options) (ports.PersistenceAdapter, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Backups == (codec.BackupPolicy{}) {
		opts.Backups = codec.DefaultBackupPolicy()
	}

	switch opts.Backend {
	case BackendFiles:
		return newFiles(opts)
	case BackendSQLite:
		return newSQLite(opts)
	case BackendKV:
		return newKV(opts), nil
	case BackendAuto:
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", opts.Backend)
	}

	caps := DetectCapabilities(opts)
	if opts.Capabilities != nil {
		caps = *opts.Capabilities
	}

	var errs []error
	if caps.Filesystem {
		a, err := newFiles(opts)
		if err == nil {
			return a, nil
		}
		errs = append(errs, err)
		opts.Logger.Warn("Files backend unavailable, falling back", zap.Error(err))
	}
	if caps.ObjectStore {
		a, err := newSQLite(opts)
		if err == nil {
			return a, nil
		}
		errs = append(errs, err)
		opts.Logger.Warn("Object-store backend unavailable, falling back", zap.Error(err))
	}
	if len(errs) > 0 {
		opts.Logger.Info("Using key-string backend", zap.Error(errors.Join(errs...)))
	}
	return newKV(opts), nil
}

func newFiles(opts Options) (ports.PersistenceAdapter, error) {
	if opts.Dir == "" {
		return nil, errors.New("files backend needs a directory")
	}
	fsOpts := []filestore.Option{
		filestore.WithBackupPolicy(opts.Backups),
		filestore.WithLogger(opts.Logger),
	}
	if opts.Clock != nil {
		fsOpts = append(fsOpts, filestore.WithClock(opts.Clock))
	}
	return filestore.New(opts.Dir, fsOpts...)
}

func newSQLite(opts Options) (ports.PersistenceAdapter, error) {
	if opts.SQLitePath == "" {
		return nil, errors.New("sqlite backend needs a database path")
	}
	sqlOpts := []sqlite.Option{
		sqlite.WithBackupPolicy(opts.Backups),
		sqlite.WithLogger(opts.Logger),
	}
	if opts.Clock != nil {
		sqlOpts = append(sqlOpts, sqlite.WithClock(opts.Clock))
	}
	return sqlite.Open(opts.SQLitePath, sqlOpts...)
}

func newKV(opts Options) ports.PersistenceAdapter {
	kvOpts := []kvstore.Option{
		kvstore.WithBackupPolicy(opts.Backups),
		kvstore.WithLogger(opts.Logger),
	}
	if opts.KVKey != "" {
		kvOpts = append(kvOpts, kvstore.WithKey(opts.KVKey))
	}
	if opts.Clock != nil {
		kvOpts = append(kvOpts, kvstore.WithClock(opts.Clock))
	}
	return kvstore.New(opts.KVStore, kvOpts...)
}
