// Package flowerr defines the typed error vocabulary surfaced by the flow
// engine. Every package in the engine returns these instead of ad-hoc
// fmt.Errorf values so callers can branch on Kind.
package flowerr

import "fmt"

// Kind identifies one of the error categories the engine can surface.
type Kind string

const (
	KindUnknownNode            Kind = "unknown_node"
	KindAgentNotRegistered     Kind = "agent_not_registered"
	KindToolNotRegistered      Kind = "tool_not_registered"
	KindMaxIterationsExceeded  Kind = "max_iterations_exceeded"
	KindDecisionNoMatch        Kind = "decision_no_match"
	KindLoopBoundExceeded      Kind = "loop_bound_exceeded"
	KindToolOrchestratorMissing Kind = "tool_orchestrator_missing"
	KindContext                Kind = "context"
	KindSerialization          Kind = "serialization"
	KindOther                  Kind = "other"
)

// Error is the concrete structured error type used throughout the engine.
// Node, Name, and Max are populated only for the kinds that carry them.
type Error struct {
	Kind    Kind
	Node    string
	Name    string
	Max     uint32
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUnknownNode:
		return fmt.Sprintf("unknown node %q in flow", e.Node)
	case KindAgentNotRegistered:
		return fmt.Sprintf("agent %q not registered", e.Name)
	case KindToolNotRegistered:
		return fmt.Sprintf("tool %q not registered", e.Name)
	case KindMaxIterationsExceeded:
		return fmt.Sprintf("maximum iterations %d exceeded", e.Max)
	case KindDecisionNoMatch:
		return fmt.Sprintf("decision node %q had no matching branch", e.Node)
	case KindLoopBoundExceeded:
		return fmt.Sprintf("loop %q exceeded max iterations %d", e.Node, e.Max)
	case KindToolOrchestratorMissing:
		return "tool orchestrator not configured"
	case KindContext:
		return fmt.Sprintf("context error: %s", e.Message)
	case KindSerialization:
		return fmt.Sprintf("serialization error: %s", e.Message)
	default:
		if e.Err != nil {
			return e.Err.Error()
		}
		return e.Message
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, &Error{Kind: K}) match by kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func UnknownNode(node string) *Error { return &Error{Kind: KindUnknownNode, Node: node} }

func AgentNotRegistered(name string) *Error { return &Error{Kind: KindAgentNotRegistered, Name: name} }

func ToolNotRegistered(name string) *Error { return &Error{Kind: KindToolNotRegistered, Name: name} }

func MaxIterationsExceeded(max uint32) *Error {
	return &Error{Kind: KindMaxIterationsExceeded, Max: max}
}

func DecisionNoMatch(node string) *Error { return &Error{Kind: KindDecisionNoMatch, Node: node} }

func LoopBoundExceeded(node string, max uint32) *Error {
	return &Error{Kind: KindLoopBoundExceeded, Node: node, Max: max}
}

func ToolOrchestratorMissing() *Error { return &Error{Kind: KindToolOrchestratorMissing} }

func Context(message string) *Error { return &Error{Kind: KindContext, Message: message} }

func Serialization(message string) *Error { return &Error{Kind: KindSerialization, Message: message} }

func Other(err error) *Error { return &Error{Kind: KindOther, Err: err, Message: err.Error()} }

// Of reports whether err is a *Error of the given kind.
func Of(err error, kind Kind) bool {
	fe, ok := err.(*Error)
	return ok && fe.Kind == kind
}
