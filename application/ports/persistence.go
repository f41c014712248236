package ports

import (
	"context"
	"time"

	"projectgraph/domain/core/aggregates"
)

// ExportFormat names an external transfer format.
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatYAML ExportFormat = "yaml"
)

// GraphSummary describes a stored graph without loading it.
type GraphSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
	NodeCount int       `json:"nodeCount"`
	EdgeCount int       `json:"edgeCount"`
}

// BackupInfo identifies one backup copy of a graph.
type BackupInfo struct {
	GraphID   string    `json:"graphId"`
	Timestamp time.Time `json:"timestamp"`
	Key       string    `json:"key"`
}

// PersistenceAdapter is the storage contract shared by every backend. The
// engine depends only on this interface, never on a concrete store.
//
// Save, Load, ListGraphs and DeleteGraph never return storage errors: failures
// are logged by the adapter and reported as false, nil or an empty list.
type PersistenceAdapter interface {
	// Save writes a snapshot of graph, stamping its update time, after
	// copying the previously stored version to a backup when backups are on.
	Save(ctx context.Context, graph *aggregates.Graph) bool

	// Load returns the graph with id locator, or the most recently updated
	// graph when locator is empty. The result is revalidated; nil means absent
	// or unreadable.
	Load(ctx context.Context, locator string) *aggregates.Graph

	// ExportGraph serializes graph to format. Unsupported formats fail with
	// errors.ErrUnsupportedFormat.
	ExportGraph(ctx context.Context, graph *aggregates.Graph, format ExportFormat) ([]byte, error)

	// ImportGraph parses and validates data in format.
	ImportGraph(ctx context.Context, data []byte, format ExportFormat) (*aggregates.Graph, error)

	// ListGraphs enumerates stored graphs, excluding backups.
	ListGraphs(ctx context.Context) []GraphSummary

	// DeleteGraph removes a stored graph and its backups.
	DeleteGraph(ctx context.Context, id string) bool

	// ListBackups returns a graph's backups, newest first.
	ListBackups(ctx context.Context, graphID string) []BackupInfo

	// Name identifies the backend in logs and metrics.
	Name() string

	// Close releases backend resources.
	Close() error
}
