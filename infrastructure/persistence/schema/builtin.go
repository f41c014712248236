package schema

import (
	"context"
	"sort"
	"strings"

	"projectgraph/domain/core/aggregates"
	"projectgraph/domain/services"
)

// BuiltinMigrations is the chain from the first released format to the
// current one.
func BuiltinMigrations() []Migration {
	return []Migration{
		{
			FromVersion: "0.1.0",
			ToVersion:   "0.2.0",
			Description: "fill node versions and metadata bags",
			Transform:   fillNodeDefaults,
		},
		{
			FromVersion: "0.2.0",
			ToVersion:   "1.0.0",
			Description: "recompute stats and normalize tags",
			Transform:   recomputeStats,
		},
	}
}

func fillNodeDefaults(_ context.Context, g *aggregates.Graph) (*aggregates.Graph, error) {
	for _, n := range g.Nodes {
		if n.Version == "" {
			n.Version = "1.0.0"
		}
		if n.Metadata == nil {
			n.Metadata = map[string]any{}
		}
	}
	for _, r := range g.Relationships {
		if r.Metadata == nil {
			r.Metadata = map[string]any{}
		}
	}
	if g.Metadata.Tags == nil {
		g.Metadata.Tags = []string{}
	}
	return g, nil
}

func recomputeStats(_ context.Context, g *aggregates.Graph) (*aggregates.Graph, error) {
	g.SetStats(services.NewGraphAnalyticsService().CalculateStats(g))

	seen := map[string]bool{}
	tags := make([]string, 0, len(g.Metadata.Tags))
	for _, t := range g.Metadata.Tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	sort.Strings(tags)
	g.Metadata.Tags = tags
	return g, nil
}
