package models

// RuntimeEventType defines the kinds of lifecycle event the scheduler emits.
type RuntimeEventType string

const (
	// EventNodeAdmitted indicates a FlowEvent was dequeued and a handler task spawned for it.
	EventNodeAdmitted RuntimeEventType = "node_admitted"

	// EventNodeStarted indicates a handler began executing.
	EventNodeStarted RuntimeEventType = "node_started"

	// EventNodeFinished indicates a handler returned without error.
	EventNodeFinished RuntimeEventType = "node_finished"

	// EventNodeFailed indicates a handler returned an error.
	EventNodeFailed RuntimeEventType = "node_failed"

	// EventJoinArrival indicates a message arrived at a Join node.
	EventJoinArrival RuntimeEventType = "join_arrival"

	// EventJoinTriggered indicates a Join node's strategy was satisfied.
	EventJoinTriggered RuntimeEventType = "join_triggered"

	// EventLoopIteration indicates a Loop node re-entered its body.
	EventLoopIteration RuntimeEventType = "loop_iteration"

	// EventToolInvoked indicates a tool step started executing.
	EventToolInvoked RuntimeEventType = "tool_invoked"

	// EventExecutionFinished indicates the executor latched a terminal result.
	EventExecutionFinished RuntimeEventType = "execution_finished"
)

// RuntimeEvent represents a lifecycle event during flow execution. These
// events provide observability into the scheduler and are emitted only
// when debug tracing is enabled.
type RuntimeEvent struct {
	// Type identifies the kind of event.
	Type RuntimeEventType `json:"type"`

	// Message is a human-readable description of the event.
	Message string `json:"message,omitempty"`

	// Node is the flow node name the event concerns.
	Node string `json:"node,omitempty"`

	// TraceID is the execution's trace id.
	TraceID string `json:"trace_id,omitempty"`

	// Iteration is the current hop count (0-indexed).
	Iteration int `json:"iteration,omitempty"`

	// Meta contains additional event-specific metadata.
	Meta map[string]any `json:"meta,omitempty"`
}

// NewRuntimeEvent creates a new lifecycle event for the given node.
func NewRuntimeEvent(eventType RuntimeEventType, node, traceID string) *RuntimeEvent {
	return &RuntimeEvent{
		Type:    eventType,
		Node:    node,
		TraceID: traceID,
	}
}

// WithMessage adds a human-readable message to the event.
func (e *RuntimeEvent) WithMessage(msg string) *RuntimeEvent {
	e.Message = msg
	return e
}

// WithIteration adds the iteration number to the event.
func (e *RuntimeEvent) WithIteration(iter int) *RuntimeEvent {
	e.Iteration = iter
	return e
}

// WithMeta adds metadata to the event.
func (e *RuntimeEvent) WithMeta(key string, value any) *RuntimeEvent {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value
	return e
}
