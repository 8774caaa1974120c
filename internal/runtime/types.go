// Package runtime implements the scheduler: the bounded-concurrency event
// pump that drives a flow.Flow from its start node to a terminal result,
// dispatching to agents, decisions, joins, loops, and tool pipelines.
package runtime

import "github.com/agentflow/agentflow/pkg/models"

// FlowEvent is one unit of work the scheduler admits: "run node Node with
// Message, having arrived from Source, Iterations hops into trace TraceID."
type FlowEvent struct {
	Node       string
	Message    models.Message
	Iterations uint32
	TraceID    string
	Source     string
}

// TaskResult is the tagged outcome of handling one FlowEvent.
type TaskResult interface {
	taskResultTag()
}

// Continue means the event produced zero or more follow-up events and the
// execution is still running.
type Continue struct{}

// Finished means the execution has reached a terminal outcome. Message may
// be nil.
type Finished struct {
	Node    string
	Message *models.Message
}

func (Continue) taskResultTag() {}
func (Finished) taskResultTag() {}

// ExecutionResult is returned by FlowExecutor.Start once the flow reaches a
// terminal outcome.
type ExecutionResult struct {
	FlowName    string
	LastNode    string
	LastMessage *models.Message
	Errors      []error
}
