// Package flow describes the immutable graph an execution runs against:
// nodes keyed by name, and outbound transitions per node.
package flow

import (
	"context"

	"github.com/agentflow/agentflow/internal/state"
)

// Predicate is an async function over a FlowContext used by transitions,
// decision branches, and loop continuation checks.
type Predicate func(ctx context.Context, fc *state.FlowContext) bool

// NodeKind identifies the runtime behavior of a Node. Implementations are
// the concrete kinds below (Agent, Terminal, Decision, Join, Loop, Tool).
type NodeKind interface {
	nodeKind()
}

// AgentKind dispatches incoming messages to the named registered agent.
type AgentKind struct {
	AgentName string
}

// TerminalKind ends the flow with the incoming message as the result.
type TerminalKind struct{}

// DecisionPolicy controls how many DecisionBranch values may match.
type DecisionPolicy string

const (
	FirstMatch DecisionPolicy = "first_match"
	AllMatches DecisionPolicy = "all_matches"
)

// DecisionBranch is one candidate route out of a Decision node.
type DecisionBranch struct {
	Name      string
	Condition Predicate // nil means "always matches"
	Target    string
}

// DecisionKind routes to one or more branches based on their predicates.
type DecisionKind struct {
	Policy   DecisionPolicy
	Branches []DecisionBranch
}

// JoinStrategy controls when a Join node fires.
type JoinStrategy struct {
	kind  string
	count int
}

func JoinAll() JoinStrategy          { return JoinStrategy{kind: "all"} }
func JoinAny() JoinStrategy          { return JoinStrategy{kind: "any"} }
func JoinCount(n int) JoinStrategy   { return JoinStrategy{kind: "count", count: n} }

func (s JoinStrategy) IsAll() bool      { return s.kind == "all" }
func (s JoinStrategy) IsAny() bool      { return s.kind == "any" }
func (s JoinStrategy) IsCount() bool    { return s.kind == "count" }
func (s JoinStrategy) Count() int       { return s.count }

// String returns the strategy's label, suitable as a metric or log value.
func (s JoinStrategy) String() string { return s.kind }

// JoinKind aggregates messages from Inbound (or any source, if Inbound is
// empty) before continuing.
type JoinKind struct {
	Strategy JoinStrategy
	Inbound  []string
}

// LoopKind re-enters Entry while Condition holds (or unconditionally, if
// Condition is nil), up to MaxIterations re-entries.
type LoopKind struct {
	Entry         string
	Condition     Predicate // nil means "always continue"
	MaxIterations *uint32
	Exit          string // empty means "no exit node configured"
}

// ToolKind invokes a named tool pipeline via the ToolOrchestrator.
type ToolKind struct {
	Pipeline string
	Params   map[string]any
}

func (AgentKind) nodeKind()    {}
func (TerminalKind) nodeKind() {}
func (DecisionKind) nodeKind() {}
func (JoinKind) nodeKind()     {}
func (LoopKind) nodeKind()     {}
func (ToolKind) nodeKind()     {}

// Node is one vertex of a Flow: a stable name, its behavior, and optional
// free-form metadata carried through but never interpreted by the runtime.
type Node struct {
	Name     string
	Kind     NodeKind
	Metadata map[string]any
}

// Transition is one outbound edge from a node.
type Transition struct {
	To        string
	Condition Predicate // nil means "always passes"
	Label     string
}

// Flow is the immutable, pre-validated graph description the executor runs.
type Flow struct {
	Name        string
	Start       string
	nodes       map[string]Node
	transitions map[string][]Transition
}

// Node returns the node with the given name, if present.
func (f *Flow) Node(name string) (Node, bool) {
	n, ok := f.nodes[name]
	return n, ok
}

// Transitions returns the outbound transitions of the given node, or nil.
func (f *Flow) Transitions(name string) []Transition {
	return f.transitions[name]
}
