package entities

import "time"

// RelationshipType enumerates the edge semantics.
type RelationshipType string

const (
	RelContains    RelationshipType = "contains"
	RelDependsOn   RelationshipType = "depends_on"
	RelImplements  RelationshipType = "implements"
	RelExtends     RelationshipType = "extends"
	RelUses        RelationshipType = "uses"
	RelConfigures  RelationshipType = "configures"
	RelTests       RelationshipType = "tests"
	RelDerivesFrom RelationshipType = "derives_from"
	RelRelatesTo   RelationshipType = "relates_to"
	RelInfluences  RelationshipType = "influences"
)

// DefaultStrength is applied when a relationship record omits strength.
const DefaultStrength = 1.0

// IsValid reports whether t is one of the known relationship types.
func (t RelationshipType) IsValid() bool {
	switch t {
	case RelContains, RelDependsOn, RelImplements, RelExtends, RelUses,
		RelConfigures, RelTests, RelDerivesFrom, RelRelatesTo, RelInfluences:
		return true
	}
	return false
}

// Relationship is a directed, typed, weighted edge. Endpoints are not checked
// against node existence; a dangling endpoint is tolerated until the node it
// names is removed.
type Relationship struct {
	ID        string           `json:"id" validate:"required"`
	SourceID  string           `json:"sourceId" validate:"required"`
	TargetID  string           `json:"targetId" validate:"required"`
	Type      RelationshipType `json:"type" validate:"required,relationship_type"`
	Strength  float64          `json:"strength" validate:"gte=0,lte=1"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
	CreatedAt time.Time        `json:"createdAt" validate:"required"`
}

// NewRelationship builds an edge with the default strength. The id and
// creation time are left for the engine to fill.
func NewRelationship(sourceID, targetID string, relType RelationshipType) *Relationship {
	return &Relationship{
		SourceID: sourceID,
		TargetID: targetID,
		Type:     relType,
		Strength: DefaultStrength,
	}
}

// Touches reports whether nodeID is the source or the target.
func (r *Relationship) Touches(nodeID string) bool {
	return r.SourceID == nodeID || r.TargetID == nodeID
}

// Other returns the endpoint opposite nodeID.
func (r *Relationship) Other(nodeID string) string {
	if r.SourceID == nodeID {
		return r.TargetID
	}
	return r.SourceID
}

// Clone returns a deep copy of the relationship.
func (r *Relationship) Clone() *Relationship {
	if r == nil {
		return nil
	}
	c := *r
	c.Metadata = cloneMetadata(r.Metadata)
	return &c
}

// ToRecord returns the untyped form of the relationship.
func (r *Relationship) ToRecord() (Record, error) {
	return ToRecord(r)
}
