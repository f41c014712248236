package services

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"projectgraph/domain/core/entities"
	"projectgraph/domain/core/validators"
	"projectgraph/domain/core/valueobjects"
	"projectgraph/domain/events"
	apperrors "projectgraph/pkg/errors"
)

func isoTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func missing(rec entities.Record, key string) bool {
	v, ok := rec[key]
	if !ok || v == nil {
		return true
	}
	s, isString := v.(string)
	return isString && s == ""
}

// AddNode validates partial against its kind's schema and appends it.
// Absent id, timestamps and version are filled in. On failure the graph is
// unchanged.
func (e *GraphEngine) AddNode(partial entities.Record) (*entities.Node, error) {
	now := e.now()
	rec := partial.Clone()
	if rec == nil {
		rec = entities.Record{}
	}
	if missing(rec, "id") {
		rec["id"] = e.newID()
	}
	if missing(rec, "createdAt") {
		rec["createdAt"] = isoTime(now)
	}
	if missing(rec, "updatedAt") {
		rec["updatedAt"] = isoTime(now)
	}
	if missing(rec, "version") {
		rec["version"] = e.config.InitialNodeVersion
	}

	node, err := validators.ValidateNode(rec)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.graph == nil {
		e.mu.Unlock()
		return nil, apperrors.ErrNoActiveGraph.Clone()
	}
	if err := e.graph.AddNode(node); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.commitLocked(now)
	change := events.NodeAdded(e.graph.ID, node.Clone(), now)
	e.mu.Unlock()

	e.logger.Debug("Node added", zap.String("node_id", node.ID), zap.String("kind", string(node.Kind)))
	e.publish(change)
	return node.Clone(), nil
}

// UpdateNode merges partial over the stored node, bumps its version and
// revalidates the whole record. It returns nil without error when id does
// not exist. The kind cannot change.
func (e *GraphEngine) UpdateNode(id string, partial entities.Record) (*entities.Node, error) {
	now := e.now()

	e.mu.Lock()
	if e.graph == nil {
		e.mu.Unlock()
		return nil, apperrors.ErrNoActiveGraph.Clone()
	}
	prev := e.graph.Node(id)
	if prev == nil {
		e.mu.Unlock()
		return nil, nil
	}
	if k, ok := partial["kind"]; ok && partial.String("kind") != string(prev.Kind) {
		e.mu.Unlock()
		return nil, apperrors.ErrKindImmutable.Clone().
			WithMessage(fmt.Sprintf("node %s is a %s and cannot become %v", id, prev.Kind, k)).
			WithDetail("node_id", id).
			WithDetail("kind", string(prev.Kind))
	}

	current, err := prev.ToRecord()
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	merged := current.Merge(partial.Clone())
	merged["id"] = prev.ID
	merged["kind"] = string(prev.Kind)
	merged["createdAt"] = isoTime(prev.CreatedAt)
	merged["updatedAt"] = isoTime(now)
	merged["version"] = valueobjects.BumpVersion(prev.Version)

	node, err := validators.ValidateNode(merged)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	previous := e.graph.ReplaceNode(node)
	e.commitLocked(now)
	change := events.NodeUpdated(e.graph.ID, node.Clone(), previous.Clone(), now)
	e.mu.Unlock()

	e.logger.Debug("Node updated", zap.String("node_id", id), zap.String("version", node.Version))
	e.publish(change)
	return node.Clone(), nil
}

// RemoveNode deletes the node together with every relationship that has it
// as source or target, emitting a single change. It reports whether the
// node existed.
func (e *GraphEngine) RemoveNode(id string) bool {
	now := e.now()

	e.mu.Lock()
	if e.graph == nil {
		e.mu.Unlock()
		return false
	}
	node, cascaded := e.graph.RemoveNode(id)
	if node == nil {
		e.mu.Unlock()
		return false
	}
	e.commitLocked(now)
	change := events.NodeRemoved(e.graph.ID, node, cascaded, now)
	e.mu.Unlock()

	e.logger.Debug("Node removed", zap.String("node_id", id), zap.Int("cascaded", len(cascaded)))
	e.publish(change)
	return true
}
