package domain

// DecisionKind tags the variant held by a RoutingDecision.
type DecisionKind int

const (
	DecisionUnresolved DecisionKind = iota
	DecisionRoute
	DecisionClarify
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionRoute:
		return "route"
	case DecisionClarify:
		return "clarify"
	default:
		return "unresolved"
	}
}

// RoutingDecision is Route{plugin, parameters}, Clarify{question, partial fields}
// or Unresolved. Only the fields of the tagged variant are meaningful.
type RoutingDecision struct {
	Kind DecisionKind

	// Route
	PluginID   string
	Parameters Parameters

	// Clarify. PluginID may carry the model's best guess.
	Question      string
	Options       []string
	PartialFields Parameters

	Confidence    float64
	HasConfidence bool
	Reasoning     string

	// Unresolved
	Reason string
}

// RouteTo builds a Route decision.
func RouteTo(pluginID string, params Parameters) RoutingDecision {
	if params == nil {
		params = Parameters{}
	}
	return RoutingDecision{Kind: DecisionRoute, PluginID: pluginID, Parameters: params}
}

// ClarifyWith builds a Clarify decision.
func ClarifyWith(question string, options []string, partial Parameters) RoutingDecision {
	if partial == nil {
		partial = Parameters{}
	}
	return RoutingDecision{Kind: DecisionClarify, Question: question, Options: options, PartialFields: partial}
}

// Unresolved builds an Unresolved decision.
func Unresolved(reason string) RoutingDecision {
	return RoutingDecision{Kind: DecisionUnresolved, Reason: reason}
}

// IsRoute reports whether the decision selects a plugin.
func (d RoutingDecision) IsRoute() bool { return d.Kind == DecisionRoute }

// IsClarify reports whether the decision asks the user a question.
func (d RoutingDecision) IsClarify() bool { return d.Kind == DecisionClarify }

// IsUnresolved reports whether nothing could be salvaged.
func (d RoutingDecision) IsUnresolved() bool { return d.Kind == DecisionUnresolved }
