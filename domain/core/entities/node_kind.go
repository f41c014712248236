package entities

// NodeKind is the discriminant of a node. It never changes after creation.
type NodeKind string

const (
	KindFeature      NodeKind = "feature"
	KindScreen       NodeKind = "screen"
	KindLogic        NodeKind = "logic"
	KindDataModel    NodeKind = "data_model"
	KindAPI          NodeKind = "api"
	KindTest         NodeKind = "test"
	KindDecision     NodeKind = "decision"
	KindIntent       NodeKind = "intent"
	KindConversation NodeKind = "conversation"
)

// AllNodeKinds lists the nine node kinds.
func AllNodeKinds() []NodeKind {
	return []NodeKind{
		KindFeature, KindScreen, KindLogic, KindDataModel, KindAPI,
		KindTest, KindDecision, KindIntent, KindConversation,
	}
}

// IsValid reports whether k is one of the known kinds.
func (k NodeKind) IsValid() bool {
	switch k {
	case KindFeature, KindScreen, KindLogic, KindDataModel, KindAPI,
		KindTest, KindDecision, KindIntent, KindConversation:
		return true
	}
	return false
}

func (k NodeKind) String() string { return string(k) }

// NewDetails returns an empty detail value for kind, or nil for an unknown kind.
func NewDetails(kind NodeKind) NodeDetails {
	switch kind {
	case KindFeature:
		return &FeatureDetails{}
	case KindScreen:
		return &ScreenDetails{}
	case KindLogic:
		return &LogicDetails{}
	case KindDataModel:
		return &DataModelDetails{}
	case KindAPI:
		return &APIDetails{}
	case KindTest:
		return &TestDetails{}
	case KindDecision:
		return &DecisionDetails{}
	case KindIntent:
		return &IntentDetails{}
	case KindConversation:
		return &ConversationDetails{}
	}
	return nil
}
