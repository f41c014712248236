// Package codec holds the serialization and backup rules shared by every
// persistence backend.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"projectgraph/application/ports"
	"projectgraph/domain/core/aggregates"
	"projectgraph/domain/core/entities"
	"projectgraph/domain/core/validators"
	apperrors "projectgraph/pkg/errors"
)

// Encode serializes a graph to its stored JSON representation. Dates are
// written as ISO-8601 strings.
func Encode(graph *aggregates.Graph) ([]byte, error) {
	data, err := json.Marshal(graph)
	if err != nil {
		return nil, fmt.Errorf("encode graph %s: %w", graph.ID, err)
	}
	return data, nil
}

// Decode parses stored bytes and revalidates them against the data model.
func Decode(data []byte) (*aggregates.Graph, error) {
	return validators.DecodeGraph(data)
}

// ParseFormat normalizes a format name, rejecting unknown ones.
func ParseFormat(name string) (ports.ExportFormat, error) {
	switch f := ports.ExportFormat(strings.ToLower(strings.TrimSpace(name))); f {
	case ports.FormatJSON, ports.FormatYAML:
		return f, nil
	case "yml":
		return ports.FormatYAML, nil
	}
	return "", unsupported(name)
}

// Export serializes a graph to an external transfer format.
func Export(graph *aggregates.Graph, format ports.ExportFormat) ([]byte, error) {
	switch format {
	case ports.FormatJSON:
		return json.MarshalIndent(graph, "", "  ")
	case ports.FormatYAML:
		record, err := entities.ToRecord(graph)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any(record)); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, unsupported(string(format))
}

// Import parses data in an external transfer format and validates it.
func Import(data []byte, format ports.ExportFormat) (*aggregates.Graph, error) {
	switch format {
	case ports.FormatJSON:
		return Decode(data)
	case ports.FormatYAML:
		var record map[string]any
		if err := yaml.Unmarshal(data, &record); err != nil {
			return nil, apperrors.NewFieldError("graph", validators.ConstraintFormat, "graph is not a YAML mapping").WithCause(err)
		}
		if record == nil {
			return nil, apperrors.NewFieldError("graph", "required", "graph document is empty")
		}
		return validators.ValidateGraph(entities.Record(record))
	}
	return nil, unsupported(string(format))
}

// Summarize describes a graph for listings.
func Summarize(graph *aggregates.Graph) ports.GraphSummary {
	return ports.GraphSummary{
		ID:        graph.ID,
		Name:      graph.Name,
		Version:   graph.Version,
		UpdatedAt: graph.UpdatedAt,
		NodeCount: graph.NodeCount(),
		EdgeCount: graph.RelationshipCount(),
	}
}

func unsupported(format string) error {
	return apperrors.ErrUnsupportedFormat.Clone().
		WithMessage(fmt.Sprintf("unsupported format %q", format)).
		WithDetail("format", format)
}
