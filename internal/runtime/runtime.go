package runtime

import (
	"context"

	"github.com/agentflow/agentflow/internal/agent"
	"github.com/agentflow/agentflow/internal/flowerr"
	"github.com/agentflow/agentflow/internal/state"
	"github.com/agentflow/agentflow/internal/tool"
	"github.com/agentflow/agentflow/pkg/models"
)

// ExecutorRuntime is the agent.Runtime the executor hands to every agent
// invocation: tool calls resolve against the shared tool registry, and
// emitted messages land in the shared FlowContext history.
type ExecutorRuntime struct {
	Flow  *state.FlowContext
	Tools *tool.Registry
}

func (r *ExecutorRuntime) CallTool(ctx context.Context, name string, invocation tool.Invocation) (models.Message, error) {
	t, ok := r.Tools.Get(name)
	if !ok {
		return models.Message{}, flowerr.ToolNotRegistered(name)
	}
	return t.Call(ctx, invocation, r.Flow)
}

func (r *ExecutorRuntime) EmitMessage(_ context.Context, message models.Message) error {
	r.Flow.PushMessage(message)
	return nil
}

var _ agent.Runtime = (*ExecutorRuntime)(nil)
