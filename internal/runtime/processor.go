package runtime

import (
	"context"
	"fmt"

	"github.com/agentflow/agentflow/internal/agent"
	"github.com/agentflow/agentflow/internal/flow"
	"github.com/agentflow/agentflow/internal/flowerr"
	"github.com/agentflow/agentflow/internal/observability"
	"github.com/agentflow/agentflow/internal/state"
	"github.com/agentflow/agentflow/internal/tool"
	"github.com/agentflow/agentflow/pkg/models"
)

// processEvent runs one FlowEvent to completion: it enforces the
// iteration bound, records the incoming message, resolves the target
// node, and dispatches to the handler for its kind.
func processEvent(
	ctx context.Context,
	event FlowEvent,
	fl *flow.Flow,
	agents *agent.Registry,
	tools *tool.Registry,
	fc *state.FlowContext,
	queue *eventQueue,
	maxIterations uint32,
	orchestrator *tool.Orchestrator,
	shared *SharedState,
	metrics *observability.Metrics,
	recorder *observability.EventRecorder,
	logger *observability.Logger,
	tracer *observability.Tracer,
) (TaskResult, error) {
	if event.Iterations >= maxIterations {
		return nil, flowerr.MaxIterationsExceeded(maxIterations)
	}

	fc.PushMessage(event.Message)

	node, ok := fl.Node(event.Node)
	if !ok {
		return nil, flowerr.UnknownNode(event.Node)
	}

	trace(ctx, logger, "executing node %s (%T)", node.Name, node.Kind)
	if metrics != nil {
		metrics.EventAdmitted(fl.Name, fmt.Sprintf("%T", node.Kind))
	}
	if recorder != nil {
		recorder.Record(ctx, *models.NewRuntimeEvent(models.EventNodeAdmitted, node.Name, event.TraceID).WithIteration(int(event.Iterations)))
	}

	switch kind := node.Kind.(type) {
	case flow.TerminalKind:
		trace(ctx, logger, "  reached terminal node %s", node.Name)
		observability.Default().Debug(ctx, "reached terminal node", "node", node.Name)
		msg := event.Message
		return Finished{Node: node.Name, Message: &msg}, nil

	case flow.AgentKind:
		trace(ctx, logger, "  agent node %s (agent: %s)", node.Name, kind.AgentName)
		a, ok := agents.Get(kind.AgentName)
		if !ok {
			return nil, flowerr.AgentNotRegistered(kind.AgentName)
		}
		runtimeHandle := &ExecutorRuntime{Flow: fc, Tools: tools}
		agentCtx := &agent.Context{Flow: fc, Runtime: runtimeHandle}

		if shared.MarkAgentStarted(kind.AgentName) {
			trace(ctx, logger, "  first start for agent %s", kind.AgentName)
			if err := a.OnStart(ctx, agentCtx); err != nil {
				return nil, err
			}
		}

		action, err := a.OnMessage(ctx, event.Message, agentCtx)
		if err != nil {
			return nil, err
		}
		if _, isFinish := action.(agent.Finish); isFinish {
			if err := a.OnFinish(ctx, agentCtx); err != nil {
				return nil, err
			}
		}
		return handleAction(ctx, action, event, fl, fc, tools, queue, logger)

	case flow.DecisionKind:
		trace(ctx, logger, "  decision node %s", node.Name)
		return handleDecisionNode(ctx, kind, node.Name, fl.Name, event, fc, queue, metrics, logger)

	case flow.JoinKind:
		trace(ctx, logger, "  join node %s", node.Name)
		return handleJoinNode(ctx, kind, node.Name, fl.Name, event, fc, fl, queue, shared, metrics, recorder, logger, tracer)

	case flow.LoopKind:
		return handleLoopNode(ctx, kind, node.Name, fl.Name, event, fc, queue, shared, metrics, recorder, logger)

	case flow.ToolKind:
		return handleToolNode(ctx, kind, node.Name, event, fc, fl, queue, orchestrator, recorder, logger, tracer)

	default:
		return nil, flowerr.Other(&unknownNodeKindError{node: node.Name})
	}
}

type unknownNodeKindError struct{ node string }

func (e *unknownNodeKindError) Error() string {
	return "node " + e.node + " has an unrecognized kind"
}
