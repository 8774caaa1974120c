// Package agent defines the Agent and AgentRuntime capability contracts the
// engine invokes, the tagged AgentAction variants an agent returns, and the
// registries that bind agent names to instances.
package agent

import (
	"context"

	"github.com/agentflow/agentflow/internal/state"
	"github.com/agentflow/agentflow/internal/tool"
	"github.com/agentflow/agentflow/pkg/models"
)

// Context is passed to an Agent alongside each message: the shared
// FlowContext plus the runtime capability for calling tools and emitting
// messages outside the normal action return path.
type Context struct {
	Flow    *state.FlowContext
	Runtime Runtime
}

// Runtime is the capability an Agent uses to call tools and emit messages.
// CallTool resolves the tool in the registry, awaits it, and pushes the
// result into history before returning it.
type Runtime interface {
	CallTool(ctx context.Context, name string, invocation tool.Invocation) (models.Message, error)
	EmitMessage(ctx context.Context, message models.Message) error
}

// Agent is the polymorphic contract every concrete agent implements.
// on_start/on_finish are optional lifecycle hooks; implementations that
// don't need them can embed NoopLifecycle.
type Agent interface {
	Name() string
	OnStart(ctx context.Context, actx *Context) error
	OnMessage(ctx context.Context, message models.Message, actx *Context) (Action, error)
	OnFinish(ctx context.Context, actx *Context) error
}

// NoopLifecycle implements OnStart/OnFinish as no-ops so concrete agents
// only need to implement Name and OnMessage.
type NoopLifecycle struct{}

func (NoopLifecycle) OnStart(context.Context, *Context) error  { return nil }
func (NoopLifecycle) OnFinish(context.Context, *Context) error { return nil }

// Action is the tagged variant an Agent returns from OnMessage. The
// concrete types below (Next, Branch, CallTool, Finish, Continue) are the
// only implementations; the runtime type-switches on them.
type Action interface {
	actionTag()
}

// Next enqueues one event to Target carrying Message.
type Next struct {
	Target  string
	Message models.Message
}

// Branch enqueues one event per entry whose target exists in the flow.
type Branch struct {
	Targets map[string]models.Message
}

// CallTool synchronously invokes a tool, pushes its result into history,
// and either continues to OnComplete or terminates with the tool's message.
type CallTool struct {
	Tool       string
	Invocation tool.Invocation
	OnComplete string // empty means "terminate with the tool's message"
}

// Finish terminates the flow. Message is optional (zero value means none).
type Finish struct {
	Message    models.Message
	HasMessage bool
}

// Continue follows the current node's static outbound transitions.
// Message is optional; when absent, the handler synthesizes one per
// transition from its label.
type Continue struct {
	Message    models.Message
	HasMessage bool
}

func (Next) actionTag()     {}
func (Branch) actionTag()   {}
func (CallTool) actionTag() {}
func (Finish) actionTag()   {}
func (Continue) actionTag() {}
