package entities

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Node is a typed vertex representing one project artifact. The shared
// attributes live on Node; kind-specific attributes live in Details, whose
// concrete type always matches Kind.
type Node struct {
	ID          string         `json:"id" validate:"required"`
	Kind        NodeKind       `json:"kind" validate:"required,node_kind"`
	Name        string         `json:"name" validate:"required,notblank"`
	Description string         `json:"description,omitempty"`
	CreatedAt   time.Time      `json:"createdAt" validate:"required"`
	UpdatedAt   time.Time      `json:"updatedAt" validate:"required"`
	Version     string         `json:"version,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Details     NodeDetails    `json:"-" validate:"-"`
}

// nodeBase has Node's fields without its JSON methods.
type nodeBase Node

// BaseFields lists the record keys shared by every node kind.
var BaseFields = []string{"id", "kind", "name", "description", "createdAt", "updatedAt", "version", "metadata"}

// MarshalJSON flattens the kind-specific fields next to the shared ones so the
// stored record mirrors the node exactly.
func (n Node) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(nodeBase(n))
	if err != nil {
		return nil, err
	}
	if n.Details == nil {
		return base, nil
	}

	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	details, err := json.Marshal(n.Details)
	if err != nil {
		return nil, err
	}
	extra := map[string]json.RawMessage{}
	if err := json.Unmarshal(details, &extra); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, clash := merged[k]; !clash {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON decodes a flat node record, choosing the details type by kind.
// It is structural only; schema rules are applied by the validators package.
func (n *Node) UnmarshalJSON(data []byte) error {
	var base nodeBase
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}
	details := NewDetails(base.Kind)
	if details == nil {
		return fmt.Errorf("unknown node kind %q", base.Kind)
	}
	if err := json.Unmarshal(data, details); err != nil {
		return err
	}
	*n = Node(base)
	n.Details = details
	return nil
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Metadata = cloneMetadata(n.Metadata)
	if n.Details != nil {
		c.Details = n.Details.cloneDetails()
	}
	return &c
}

// ToRecord returns the flat untyped form of the node.
func (n *Node) ToRecord() (Record, error) {
	return ToRecord(n)
}

// Matches reports whether query occurs in the name or description, ignoring case.
func (n *Node) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	return strings.Contains(strings.ToLower(n.Name), q) ||
		strings.Contains(strings.ToLower(n.Description), q)
}

// Feature returns the feature details, or nil when the node is another kind.
func (n *Node) Feature() *FeatureDetails { d, _ := n.Details.(*FeatureDetails); return d }

// Logic returns the logic details, or nil when the node is another kind.
func (n *Node) Logic() *LogicDetails { d, _ := n.Details.(*LogicDetails); return d }

// Conversation returns the conversation details, or nil when the node is another kind.
func (n *Node) Conversation() *ConversationDetails {
	d, _ := n.Details.(*ConversationDetails)
	return d
}
