package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"projectgraph/domain/core/entities"
)

func TestGraphChangeConstructors(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	node := &entities.Node{ID: "n1", Kind: entities.KindScreen}
	prev := &entities.Node{ID: "n1", Kind: entities.KindScreen, Version: "1.0.0"}
	rel := &entities.Relationship{ID: "r1", SourceID: "n1", TargetID: "n2"}

	tests := []struct {
		name      string
		change    GraphChange
		kind      ChangeKind
		entity    EntityKind
		eventType string
		entityID  string
	}{
		{"node added", NodeAdded("g", node, at), ChangeAdd, EntityNode, "node.add", "n1"},
		{"node updated", NodeUpdated("g", node, prev, at), ChangeUpdate, EntityNode, "node.update", "n1"},
		{"node removed", NodeRemoved("g", node, []*entities.Relationship{rel}, at), ChangeRemove, EntityNode, "node.remove", "n1"},
		{"relationship added", RelationshipAdded("g", rel, at), ChangeAdd, EntityRelationship, "relationship.add", "r1"},
		{"relationship updated", RelationshipUpdated("g", rel, rel, at), ChangeUpdate, EntityRelationship, "relationship.update", "r1"},
		{"relationship removed", RelationshipRemoved("g", rel, at), ChangeRemove, EntityRelationship, "relationship.remove", "r1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.change.Kind)
			assert.Equal(t, tt.entity, tt.change.Entity)
			assert.Equal(t, tt.eventType, tt.change.GetEventType())
			assert.Equal(t, "g", tt.change.GetAggregateID())
			assert.Equal(t, at, tt.change.GetTimestamp())
			assert.Equal(t, tt.entityID, tt.change.EntityID())
		})
	}

	var _ DomainEvent = GraphChange{}
	assert.Same(t, prev, NodeUpdated("g", node, prev, at).PreviousNode)
	assert.Len(t, NodeRemoved("g", node, []*entities.Relationship{rel}, at).Cascaded, 1)
}
