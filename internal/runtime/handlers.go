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

// handleAction interprets the tagged Action an agent returned from
// OnMessage and either enqueues follow-up events or terminates the flow.
func handleAction(ctx context.Context, action agent.Action, event FlowEvent, fl *flow.Flow, fc *state.FlowContext, tools *tool.Registry, queue *eventQueue, logger *observability.Logger) (TaskResult, error) {
	switch a := action.(type) {
	case agent.Next:
		enqueueEvent(queue, a.Target, a.Message, event.Iterations+1, event.TraceID, event.Node)
		return Continue{}, nil

	case agent.Branch:
		trace(ctx, logger, "  branch action routing to %d target(s)", len(a.Targets))
		dispatched := false
		for target, message := range a.Targets {
			if _, ok := fl.Node(target); ok {
				enqueueEvent(queue, target, message, event.Iterations+1, event.TraceID, event.Node)
				dispatched = true
			}
		}
		if !dispatched {
			trace(ctx, logger, "  no valid branch target found, stopping flow")
			observability.Default().Warn(ctx, "no valid branch found, stopping flow", "node", event.Node)
			return Finished{Node: event.Node}, nil
		}
		return Continue{}, nil

	case agent.CallTool:
		runtime := &ExecutorRuntime{Flow: fc, Tools: tools}
		toolMessage, err := runtime.CallTool(ctx, a.Tool, a.Invocation)
		if err != nil {
			return nil, err
		}
		fc.PushMessage(toolMessage)

		if a.OnComplete != "" {
			enqueueEvent(queue, a.OnComplete, toolMessage, event.Iterations+1, event.TraceID, event.Node)
			return Continue{}, nil
		}
		return Finished{Node: event.Node, Message: &toolMessage}, nil

	case agent.Finish:
		var msg *models.Message
		if a.HasMessage {
			fc.PushMessage(a.Message)
			m := a.Message
			msg = &m
		}
		return Finished{Node: event.Node, Message: msg}, nil

	case agent.Continue:
		transitions, err := nextFromFlow(ctx, event.Node, fl, fc)
		if err != nil {
			return nil, err
		}
		if len(transitions) == 0 {
			trace(ctx, logger, "  node %s has no outbound transitions, flow finished", event.Node)
			var msg *models.Message
			if a.HasMessage {
				msg = &a.Message
			}
			return Finished{Node: event.Node, Message: msg}, nil
		}
		trace(ctx, logger, "  node %s has %d outbound transition(s)", event.Node, len(transitions))
		for _, t := range transitions {
			toSend := t.message
			if a.HasMessage {
				toSend = a.Message
			}
			enqueueEvent(queue, t.to, toSend, event.Iterations+1, event.TraceID, event.Node)
		}
		return Continue{}, nil

	default:
		return nil, flowerr.Other(fmt.Errorf("unknown agent action %T", action))
	}
}

// handleDecisionNode evaluates every branch's condition in order and
// routes to every branch that matches, stopping after the first match
// when the node's policy is FirstMatch.
func handleDecisionNode(ctx context.Context, decision flow.DecisionKind, nodeName, flowName string, event FlowEvent, fc *state.FlowContext, queue *eventQueue, metrics *observability.Metrics, logger *observability.Logger) (TaskResult, error) {
	trace(ctx, logger, "  decision node %s evaluating branches", nodeName)
	var matched []flow.DecisionBranch
	for _, branch := range decision.Branches {
		passes := true
		if branch.Condition != nil {
			passes = branch.Condition(ctx, fc)
		}
		trace(ctx, logger, "    branch %q: %v", branch.Name, passes)
		if passes {
			matched = append(matched, branch)
			if decision.Policy == flow.FirstMatch {
				break
			}
		}
	}

	if len(matched) == 0 {
		observability.Default().Warn(ctx, "decision node had no matching branch", "node", nodeName)
		if metrics != nil {
			metrics.RecordDecisionNoMatch(flowName, nodeName)
		}
		return nil, flowerr.DecisionNoMatch(nodeName)
	}

	for _, branch := range matched {
		metadata := map[string]any{
			"decision": map[string]any{
				"node":              nodeName,
				"branch":            branch.Name,
				"source_message_id": event.Message.ID,
				"source_metadata":   event.Message.Metadata,
			},
		}
		message := models.Message{
			ID:       models.NewID(),
			Role:     event.Message.Role,
			From:     nodeName,
			To:       branch.Target,
			Content:  event.Message.Content,
			Metadata: metadata,
		}
		enqueueEvent(queue, branch.Target, message, event.Iterations+1, event.TraceID, nodeName)
	}
	return Continue{}, nil
}

// handleJoinNode records the arriving message under its source and, once
// the join's strategy is satisfied, aggregates every collected message
// and continues to the node's outbound transitions.
func handleJoinNode(ctx context.Context, join flow.JoinKind, nodeName, flowName string, event FlowEvent, fc *state.FlowContext, fl *flow.Flow, queue *eventQueue, shared *SharedState, metrics *observability.Metrics, recorder *observability.EventRecorder, logger *observability.Logger, tracer *observability.Tracer) (TaskResult, error) {
	key := event.TraceID + "::" + nodeName
	js := shared.JoinFor(key, join)

	if tracer != nil && !js.SpanStarted() {
		_, span := tracer.TraceJoinWait(ctx, nodeName, join.Strategy.String())
		js.AttachSpan(span)
	}

	// A Decision node with an AllMatches policy that fans out to branches
	// both reaching this join's Inbound list counts as two arrivals here,
	// not one logical contributor; this is not deduplicated by upstream
	// branch identity.
	if !js.Expects(event.Source) {
		trace(ctx, logger, "  join %s ignoring unexpected source %s", nodeName, event.Source)
		return Continue{}, nil
	}

	if recorder != nil {
		recorder.Record(ctx, *models.NewRuntimeEvent(models.EventJoinArrival, nodeName, event.TraceID).WithMeta("source", event.Source))
	}

	collected, triggered := js.Record(event.Source, event.Message)
	if !triggered {
		return Continue{}, nil
	}

	if metrics != nil {
		metrics.JoinTriggered(flowName, nodeName, join.Strategy.String())
	}
	if recorder != nil {
		recorder.Record(ctx, *models.NewRuntimeEvent(models.EventJoinTriggered, nodeName, event.TraceID).WithMeta("strategy", join.Strategy.String()))
	}

	aggregated := MakeJoinMessage(nodeName, collected)
	js.EndSpan()
	shared.DropJoin(key)

	transitions, err := nextFromFlow(ctx, nodeName, fl, fc)
	if err != nil {
		return nil, err
	}
	if len(transitions) == 0 {
		return Finished{Node: nodeName, Message: &aggregated}, nil
	}

	for _, t := range transitions {
		toSend := aggregated
		toSend.To = t.message.To
		enqueueEvent(queue, t.to, toSend, event.Iterations+1, event.TraceID, nodeName)
	}
	return Continue{}, nil
}

// handleLoopNode re-enters the loop's Entry node while Condition holds, up
// to MaxIterations, then routes to Exit (or terminates, if no Exit is
// configured).
func handleLoopNode(ctx context.Context, loopNode flow.LoopKind, nodeName, flowName string, event FlowEvent, fc *state.FlowContext, queue *eventQueue, shared *SharedState, metrics *observability.Metrics, recorder *observability.EventRecorder, logger *observability.Logger) (TaskResult, error) {
	key := event.TraceID + "::" + nodeName
	ls := shared.LoopFor(key)

	if loopNode.MaxIterations != nil && ls.Iterations >= *loopNode.MaxIterations {
		shared.DropLoop(key)
		return nil, flowerr.LoopBoundExceeded(nodeName, *loopNode.MaxIterations)
	}

	if loopNode.Condition != nil && !loopNode.Condition(ctx, fc) {
		shared.DropLoop(key)
		if loopNode.Exit != "" {
			enqueueEvent(queue, loopNode.Exit, event.Message, event.Iterations+1, event.TraceID, nodeName)
			return Continue{}, nil
		}
		return Finished{Node: nodeName, Message: &event.Message}, nil
	}

	ls.Iterations++
	if metrics != nil {
		metrics.LoopIterated(flowName, nodeName)
	}
	if recorder != nil {
		recorder.Record(ctx, *models.NewRuntimeEvent(models.EventLoopIteration, nodeName, event.TraceID).WithIteration(int(ls.Iterations)))
	}
	enqueueEvent(queue, loopNode.Entry, event.Message, event.Iterations+1, event.TraceID, nodeName)
	return Continue{}, nil
}

// handleToolNode runs the node's tool pipeline and continues to the
// node's outbound transitions, or terminates if it has none.
func handleToolNode(ctx context.Context, toolNode flow.ToolKind, nodeName string, event FlowEvent, fc *state.FlowContext, fl *flow.Flow, queue *eventQueue, orchestrator *tool.Orchestrator, recorder *observability.EventRecorder, logger *observability.Logger, tracer *observability.Tracer) (TaskResult, error) {
	if orchestrator == nil {
		return nil, flowerr.ToolOrchestratorMissing()
	}

	if recorder != nil {
		recorder.Record(ctx, *models.NewRuntimeEvent(models.EventToolInvoked, nodeName, event.TraceID).WithMeta("pipeline", toolNode.Pipeline))
	}

	if tracer != nil {
		spanCtx, span := tracer.TraceToolPipeline(ctx, nodeName, toolNode.Pipeline)
		ctx = spanCtx
		message, err := orchestrator.ExecutePipelineWithParams(ctx, toolNode.Pipeline, toolNode.Params, fc)
		if err != nil {
			tracer.RecordError(span, err)
			span.End()
			return nil, err
		}
		span.End()
		return finishToolNode(ctx, nodeName, event, fc, fl, queue, message)
	}

	message, err := orchestrator.ExecutePipelineWithParams(ctx, toolNode.Pipeline, toolNode.Params, fc)
	if err != nil {
		return nil, err
	}
	return finishToolNode(ctx, nodeName, event, fc, fl, queue, message)
}

func finishToolNode(ctx context.Context, nodeName string, event FlowEvent, fc *state.FlowContext, fl *flow.Flow, queue *eventQueue, message models.Message) (TaskResult, error) {
	fc.PushMessage(message)

	transitions, err := nextFromFlow(ctx, nodeName, fl, fc)
	if err != nil {
		return nil, err
	}
	if len(transitions) == 0 {
		return Finished{Node: nodeName, Message: &message}, nil
	}

	for _, t := range transitions {
		toSend := message
		if toSend.To == "" {
			toSend.To = t.message.To
		}
		enqueueEvent(queue, t.to, toSend, event.Iterations+1, event.TraceID, nodeName)
	}
	return Continue{}, nil
}

func enqueueEvent(queue *eventQueue, target string, message models.Message, iterations uint32, traceID, source string) {
	queue.push(FlowEvent{
		Node:       target,
		Message:    message,
		Iterations: iterations,
		TraceID:    traceID,
		Source:     source,
	})
}

type transitionTarget struct {
	to      string
	message models.Message
}

// nextFromFlow evaluates every outbound transition of nodeName and returns
// the ones whose condition passes, each carrying a synthesized system
// message (callers substitute their own message when they have one).
func nextFromFlow(ctx context.Context, nodeName string, fl *flow.Flow, fc *state.FlowContext) ([]transitionTarget, error) {
	var results []transitionTarget
	for _, t := range fl.Transitions(nodeName) {
		if t.Condition != nil && !t.Condition(ctx, fc) {
			continue
		}
		label := t.Label
		if label == "" {
			label = "transition"
		}
		results = append(results, transitionTarget{
			to: t.To,
			message: models.Message{
				ID:      models.NewID(),
				Role:    models.RoleSystem,
				From:    nodeName,
				To:      t.To,
				Content: label,
			},
		})
	}
	return results, nil
}
