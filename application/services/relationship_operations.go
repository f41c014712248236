package services

import (
	"go.uber.org/zap"

	"projectgraph/domain/core/entities"
	"projectgraph/domain/core/validators"
	"projectgraph/domain/events"
	apperrors "projectgraph/pkg/errors"
)

// AddRelationship validates partial and appends it. Endpoints are not
// checked against existing nodes.
func (e *GraphEngine) AddRelationship(partial entities.Record) (*entities.Relationship, error) {
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
	if _, ok := rec["strength"]; !ok {
		rec["strength"] = e.config.DefaultRelationshipStrength
	}

	rel, err := validators.ValidateRelationship(rec)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.graph == nil {
		e.mu.Unlock()
		return nil, apperrors.ErrNoActiveGraph.Clone()
	}
	if err := e.graph.AddRelationship(rel); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.commitLocked(now)
	change := events.RelationshipAdded(e.graph.ID, rel.Clone(), now)
	e.mu.Unlock()

	e.logger.Debug("Relationship added",
		zap.String("relationship_id", rel.ID),
		zap.String("type", string(rel.Type)),
		zap.String("source_id", rel.SourceID),
		zap.String("target_id", rel.TargetID))
	e.publish(change)
	return rel.Clone(), nil
}

// UpdateRelationship merges partial over the stored relationship and
// revalidates it. It returns nil without error when id does not exist.
func (e *GraphEngine) UpdateRelationship(id string, partial entities.Record) (*entities.Relationship, error) {
	now := e.now()

	e.mu.Lock()
	if e.graph == nil {
		e.mu.Unlock()
		return nil, apperrors.ErrNoActiveGraph.Clone()
	}
	prev := e.graph.Relationship(id)
	if prev == nil {
		e.mu.Unlock()
		return nil, nil
	}
	current, err := prev.ToRecord()
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	merged := current.Merge(partial.Clone())
	merged["id"] = prev.ID
	merged["createdAt"] = isoTime(prev.CreatedAt)

	rel, err := validators.ValidateRelationship(merged)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	previous := e.graph.ReplaceRelationship(rel)
	e.commitLocked(now)
	change := events.RelationshipUpdated(e.graph.ID, rel.Clone(), previous.Clone(), now)
	e.mu.Unlock()

	e.publish(change)
	return rel.Clone(), nil
}

// RemoveRelationship deletes one relationship and reports whether it existed.
func (e *GraphEngine) RemoveRelationship(id string) bool {
	now := e.now()

	e.mu.Lock()
	if e.graph == nil {
		e.mu.Unlock()
		return false
	}
	rel := e.graph.RemoveRelationship(id)
	if rel == nil {
		e.mu.Unlock()
		return false
	}
	e.commitLocked(now)
	change := events.RelationshipRemoved(e.graph.ID, rel, now)
	e.mu.Unlock()

	e.publish(change)
	return true
}
