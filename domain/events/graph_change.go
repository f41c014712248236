package events

import (
	"time"

	"projectgraph/domain/core/entities"
)

// ChangeKind is the mutation a GraphChange describes.
type ChangeKind string

const (
	ChangeAdd    ChangeKind = "add"
	ChangeUpdate ChangeKind = "update"
	ChangeRemove ChangeKind = "remove"
)

// EntityKind says whether a change touched a node or a relationship.
type EntityKind string

const (
	EntityNode         EntityKind = "node"
	EntityRelationship EntityKind = "relationship"
)

// GraphChange describes one committed mutation. It is delivered to
// subscribers once and never stored.
//
// Exactly one of Node or Relationship is set, matching Entity. Previous is
// set only for updates. Cascaded lists the relationships removed together
// with a node.
type GraphChange struct {
	BaseEvent
	Kind                 ChangeKind               `json:"kind"`
	Entity               EntityKind               `json:"entity"`
	Node                 *entities.Node           `json:"node,omitempty"`
	PreviousNode         *entities.Node           `json:"previousNode,omitempty"`
	Relationship         *entities.Relationship   `json:"relationship,omitempty"`
	PreviousRelationship *entities.Relationship   `json:"previousRelationship,omitempty"`
	Cascaded             []*entities.Relationship `json:"cascaded,omitempty"`
}

// EntityID returns the id of the node or relationship that changed.
func (c GraphChange) EntityID() string {
	if c.Node != nil {
		return c.Node.ID
	}
	if c.Relationship != nil {
		return c.Relationship.ID
	}
	return ""
}

func newChange(graphID string, kind ChangeKind, entity EntityKind, at time.Time) GraphChange {
	return GraphChange{
		BaseEvent: BaseEvent{
			AggregateID: graphID,
			EventType:   string(entity) + "." + string(kind),
			Timestamp:   at,
			Version:     1,
		},
		Kind:   kind,
		Entity: entity,
	}
}

// NodeAdded creates the change for a new node.
func NodeAdded(graphID string, node *entities.Node, at time.Time) GraphChange {
	c := newChange(graphID, ChangeAdd, EntityNode, at)
	c.Node = node
	return c
}

// NodeUpdated creates the change for a replaced node.
func NodeUpdated(graphID string, node, previous *entities.Node, at time.Time) GraphChange {
	c := newChange(graphID, ChangeUpdate, EntityNode, at)
	c.Node = node
	c.PreviousNode = previous
	return c
}

// NodeRemoved creates the change for a deleted node and its cascaded edges.
func NodeRemoved(graphID string, node *entities.Node, cascaded []*entities.Relationship, at time.Time) GraphChange {
	c := newChange(graphID, ChangeRemove, EntityNode, at)
	c.Node = node
	c.Cascaded = cascaded
	return c
}

// RelationshipAdded creates the change for a new relationship.
func RelationshipAdded(graphID string, rel *entities.Relationship, at time.Time) GraphChange {
	c := newChange(graphID, ChangeAdd, EntityRelationship, at)
	c.Relationship = rel
	return c
}

// RelationshipUpdated creates the change for a replaced relationship.
func RelationshipUpdated(graphID string, rel, previous *entities.Relationship, at time.Time) GraphChange {
	c := newChange(graphID, ChangeUpdate, EntityRelationship, at)
	c.Relationship = rel
	c.PreviousRelationship = previous
	return c
}

// RelationshipRemoved creates the change for a deleted relationship.
func RelationshipRemoved(graphID string, rel *entities.Relationship, at time.Time) GraphChange {
	c := newChange(graphID, ChangeRemove, EntityRelationship, at)
	c.Relationship = rel
	return c
}
