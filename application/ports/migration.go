package ports

import (
	"context"

	"projectgraph/domain/core/aggregates"
)

// GraphMigrator moves a graph to a target schema version without modifying
// the input. It returns the input itself when the versions already match.
type GraphMigrator interface {
	MigrateGraph(ctx context.Context, graph *aggregates.Graph, targetVersion string) (*aggregates.Graph, error)
}
