package entities

import "time"

// NodeDetails carries the fields that only one kind of node may have.
// The set of implementations is closed to this package.
type NodeDetails interface {
	Kind() NodeKind
	cloneDetails() NodeDetails
}

// FeatureDetails describes a user-facing capability.
type FeatureDetails struct {
	Status             FeatureStatus `json:"status" validate:"required,oneof=planned in_progress completed deprecated"`
	Priority           Priority      `json:"priority" validate:"required,oneof=low medium high critical"`
	UserStories        []string      `json:"userStories,omitempty"`
	AcceptanceCriteria []string      `json:"acceptanceCriteria,omitempty"`
}

type FeatureStatus string

const (
	FeaturePlanned    FeatureStatus = "planned"
	FeatureInProgress FeatureStatus = "in_progress"
	FeatureCompleted  FeatureStatus = "completed"
	FeatureDeprecated FeatureStatus = "deprecated"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (d *FeatureDetails) Kind() NodeKind { return KindFeature }

func (d *FeatureDetails) cloneDetails() NodeDetails {
	c := *d
	c.UserStories = cloneStrings(d.UserStories)
	c.AcceptanceCriteria = cloneStrings(d.AcceptanceCriteria)
	return &c
}

// ScreenDetails describes a UI surface.
type ScreenDetails struct {
	Route      string   `json:"route,omitempty"`
	Components []string `json:"components,omitempty"`
	Layout     string   `json:"layout,omitempty"`
}

func (d *ScreenDetails) Kind() NodeKind { return KindScreen }

func (d *ScreenDetails) cloneDetails() NodeDetails {
	c := *d
	c.Components = cloneStrings(d.Components)
	return &c
}

// Parameter is a typed input or output of a logic unit.
type Parameter struct {
	Name        string `json:"name" validate:"required"`
	Type        string `json:"type" validate:"required"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// LogicDetails describes a unit of business logic.
type LogicDetails struct {
	Inputs     []Parameter `json:"inputs" validate:"required,dive"`
	Outputs    []Parameter `json:"outputs" validate:"required,dive"`
	Algorithm  string      `json:"algorithm,omitempty"`
	Complexity int         `json:"complexity" validate:"required,min=1,max=10"`
}

func (d *LogicDetails) Kind() NodeKind { return KindLogic }

func (d *LogicDetails) cloneDetails() NodeDetails {
	c := *d
	c.Inputs = append([]Parameter(nil), d.Inputs...)
	c.Outputs = append([]Parameter(nil), d.Outputs...)
	if d.Inputs != nil && c.Inputs == nil {
		c.Inputs = []Parameter{}
	}
	if d.Outputs != nil && c.Outputs == nil {
		c.Outputs = []Parameter{}
	}
	return &c
}

// DataField is one field of a data model.
type DataField struct {
	Name        string `json:"name" validate:"required"`
	Type        string `json:"type" validate:"required"`
	Required    bool   `json:"required,omitempty"`
	Description string `json:"description,omitempty"`
}

// DataModelDetails describes a persisted entity shape.
type DataModelDetails struct {
	Fields      []DataField `json:"fields" validate:"required,dive"`
	Constraints []string    `json:"constraints,omitempty"`
}

func (d *DataModelDetails) Kind() NodeKind { return KindDataModel }

func (d *DataModelDetails) cloneDetails() NodeDetails {
	c := *d
	c.Fields = append([]DataField(nil), d.Fields...)
	if d.Fields != nil && c.Fields == nil {
		c.Fields = []DataField{}
	}
	c.Constraints = cloneStrings(d.Constraints)
	return &c
}

// APIDetails describes an HTTP endpoint.
type APIDetails struct {
	Method         string         `json:"method" validate:"required,oneof=GET POST PUT PATCH DELETE"`
	Endpoint       string         `json:"endpoint" validate:"required"`
	RequestSchema  map[string]any `json:"requestSchema,omitempty"`
	ResponseSchema map[string]any `json:"responseSchema,omitempty"`
	Authentication bool           `json:"authentication,omitempty"`
}

func (d *APIDetails) Kind() NodeKind { return KindAPI }

func (d *APIDetails) cloneDetails() NodeDetails {
	c := *d
	c.RequestSchema = cloneMetadata(d.RequestSchema)
	c.ResponseSchema = cloneMetadata(d.ResponseSchema)
	return &c
}

// TestDetails describes a test suite or case.
type TestDetails struct {
	TestType      string   `json:"testType" validate:"required,oneof=unit integration e2e"`
	Status        string   `json:"status" validate:"required,oneof=pending passing failing skipped"`
	TargetNodeIDs []string `json:"targetNodeIds,omitempty"`
	Coverage      *float64 `json:"coverage,omitempty" validate:"omitempty,gte=0,lte=100"`
}

func (d *TestDetails) Kind() NodeKind { return KindTest }

func (d *TestDetails) cloneDetails() NodeDetails {
	c := *d
	c.TargetNodeIDs = cloneStrings(d.TargetNodeIDs)
	if d.Coverage != nil {
		v := *d.Coverage
		c.Coverage = &v
	}
	return &c
}

// DecisionDetails records an architectural or product decision.
type DecisionDetails struct {
	Rationale    string     `json:"rationale" validate:"required"`
	Alternatives []string   `json:"alternatives,omitempty"`
	Status       string     `json:"status" validate:"required,oneof=proposed accepted rejected superseded"`
	DecidedAt    *time.Time `json:"decidedAt,omitempty"`
}

func (d *DecisionDetails) Kind() NodeKind { return KindDecision }

func (d *DecisionDetails) cloneDetails() NodeDetails {
	c := *d
	c.Alternatives = cloneStrings(d.Alternatives)
	if d.DecidedAt != nil {
		v := *d.DecidedAt
		c.DecidedAt = &v
	}
	return &c
}

// IntentDetails captures what a user asked for and how it was read.
type IntentDetails struct {
	UserInput       string   `json:"userInput" validate:"required"`
	Interpretation  string   `json:"interpretation,omitempty"`
	Confidence      *float64 `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	ResolvedNodeIDs []string `json:"resolvedNodeIds,omitempty"`
}

func (d *IntentDetails) Kind() NodeKind { return KindIntent }

func (d *IntentDetails) cloneDetails() NodeDetails {
	c := *d
	c.ResolvedNodeIDs = cloneStrings(d.ResolvedNodeIDs)
	if d.Confidence != nil {
		v := *d.Confidence
		c.Confidence = &v
	}
	return &c
}

// Message is one role-tagged turn of a conversation.
type Message struct {
	Role      string    `json:"role" validate:"required,oneof=user assistant system"`
	Content   string    `json:"content" validate:"required"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
}

// ConversationDetails owns an ordered list of messages.
type ConversationDetails struct {
	Messages []Message `json:"messages" validate:"required,dive"`
	Summary  string    `json:"summary,omitempty"`
}

func (d *ConversationDetails) Kind() NodeKind { return KindConversation }

func (d *ConversationDetails) cloneDetails() NodeDetails {
	c := *d
	c.Messages = append([]Message(nil), d.Messages...)
	if d.Messages != nil && c.Messages == nil {
		c.Messages = []Message{}
	}
	return &c
}
