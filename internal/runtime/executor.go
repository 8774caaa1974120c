package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/agentflow/agentflow/internal/agent"
	"github.com/agentflow/agentflow/internal/flow"
	"github.com/agentflow/agentflow/internal/flowerr"
	"github.com/agentflow/agentflow/internal/observability"
	"github.com/agentflow/agentflow/internal/state"
	"github.com/agentflow/agentflow/internal/tool"
	"github.com/agentflow/agentflow/pkg/models"
)

const (
	defaultMaxIterations  = 256
	defaultMaxConcurrency = 8
)

// FlowExecutor is the bounded-concurrency scheduler: it pumps FlowEvents
// from a queue, admitting up to MaxConcurrency in flight at once, until
// one of them reports Finished.
type FlowExecutor struct {
	flow  *flow.Flow
	agent *agent.Registry
	tool  *tool.Registry

	maxIterations  uint32
	maxConcurrency int
	orchestrator   *tool.Orchestrator
	tracer         *observability.Tracer
	metrics        *observability.Metrics
	recorder       *observability.EventRecorder
	logger         *observability.Logger
}

// Option configures a FlowExecutor at construction.
type Option func(*FlowExecutor)

// WithMaxIterations caps how many hops a single trace may take before the
// scheduler reports flowerr.KindMaxIterationsExceeded.
func WithMaxIterations(n uint32) Option {
	return func(e *FlowExecutor) { e.maxIterations = n }
}

// WithMaxConcurrency caps how many events may be admitted at once.
func WithMaxConcurrency(n int) Option {
	return func(e *FlowExecutor) {
		if n < 1 {
			n = 1
		}
		e.maxConcurrency = n
	}
}

// WithToolOrchestrator wires tool pipeline execution for Tool nodes.
// Omitting this means any Tool node will fail with
// flowerr.KindToolOrchestratorMissing.
func WithToolOrchestrator(o *tool.Orchestrator) Option {
	return func(e *FlowExecutor) { e.orchestrator = o }
}

// WithTracer wraps every node dispatch in a "runtime.dispatch" span.
func WithTracer(t *observability.Tracer) Option {
	return func(e *FlowExecutor) { e.tracer = t }
}

// WithMetrics records scheduler and node-handler Prometheus metrics.
// Omitting this means the executor runs with no metrics overhead.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *FlowExecutor) { e.metrics = m }
}

// WithEventRecorder records a models.RuntimeEvent timeline of every
// admission, join arrival/trigger, loop iteration, tool invocation, and
// execution outcome, for later inspection via observability.Timeline.
func WithEventRecorder(r *observability.EventRecorder) Option {
	return func(e *FlowExecutor) { e.recorder = r }
}

// WithLogger routes the scheduler's AGENTFLOW_DEBUG trace lines through l
// at Debug level instead of the raw stderr fallback.
func WithLogger(l *observability.Logger) Option {
	return func(e *FlowExecutor) { e.logger = l }
}

// NewFlowExecutor builds a FlowExecutor for f, using agents and tools to
// resolve nodes. Defaults match the teacher's baseline: 256 max
// iterations, 8 max concurrent in-flight events, no tool orchestrator.
func NewFlowExecutor(f flow.Flow, agents *agent.Registry, tools *tool.Registry, opts ...Option) *FlowExecutor {
	e := &FlowExecutor{
		flow:           &f,
		agent:          agents,
		tool:           tools,
		maxIterations:  defaultMaxIterations,
		maxConcurrency: defaultMaxConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type taskOutcome struct {
	result TaskResult
	err    error
}

// Start runs the flow to completion starting from the flow's Start node
// with the initial message, sharing fc across every node dispatch.
func (e *FlowExecutor) Start(ctx context.Context, fc *state.FlowContext, initial models.Message) (ExecutionResult, error) {
	trace(ctx, e.logger, "FlowExecutor.Start: flow=%s start=%s", e.flow.Name, e.flow.Start)
	started := time.Now()
	outcomeLabel := "finished"
	if e.metrics != nil {
		defer func() { e.metrics.RecordExecution(e.flow.Name, outcomeLabel, time.Since(started)) }()
	}

	queue := newEventQueue()
	traceID := models.NewID()
	ctx = observability.AddTraceID(ctx, traceID)
	ctx = observability.AddFlowName(ctx, e.flow.Name)
	queue.push(FlowEvent{
		Node:       e.flow.Start,
		Message:    initial,
		Iterations: 0,
		TraceID:    traceID,
		Source:     "__start__",
	})

	shared := NewSharedState()
	done := make(chan taskOutcome)
	inflight := 0
	var finished *Finished

	spawn := func(event FlowEvent) {
		inflight++
		if e.metrics != nil {
			e.metrics.HandlerStarted(e.flow.Name)
		}
		if e.recorder != nil {
			e.recorder.Record(ctx, *models.NewRuntimeEvent(models.EventNodeStarted, event.Node, event.TraceID).WithIteration(int(event.Iterations)))
		}
		go func() {
			result, err := e.dispatch(ctx, event, fc, queue, shared)
			if e.metrics != nil {
				e.metrics.HandlerFinished(e.flow.Name)
			}
			if e.recorder != nil {
				if err != nil {
					e.recorder.Record(ctx, *models.NewRuntimeEvent(models.EventNodeFailed, event.Node, event.TraceID).WithMessage(err.Error()))
				} else {
					e.recorder.Record(ctx, *models.NewRuntimeEvent(models.EventNodeFinished, event.Node, event.TraceID))
				}
			}
			done <- taskOutcome{result: result, err: err}
		}()
	}

	recordOutcome := func(outcome taskOutcome) error {
		if outcome.err != nil {
			return outcome.err
		}
		if f, ok := outcome.result.(Finished); ok && finished == nil {
			finished = &f
		}
		return nil
	}

	for finished == nil {
		event, ok := queue.pop()
		if !ok {
			if inflight == 0 {
				break
			}
			select {
			case outcome := <-done:
				inflight--
				if err := recordOutcome(outcome); err != nil {
					outcomeLabel = "error"
					return ExecutionResult{}, err
				}
			case <-queue.notify:
			}
			continue
		}

		if inflight >= e.maxConcurrency {
			outcome := <-done
			inflight--
			if err := recordOutcome(outcome); err != nil {
				outcomeLabel = "error"
				return ExecutionResult{}, err
			}
		}

		if finished == nil {
			trace(ctx, e.logger, "  dispatching event for node %s (inflight=%d)", event.Node, inflight)
			spawn(event)
		}
	}

	for inflight > 0 {
		outcome := <-done
		inflight--
		if err := recordOutcome(outcome); err != nil {
			outcomeLabel = "error"
			return ExecutionResult{}, err
		}
	}

	if finished == nil {
		outcomeLabel = "error"
		return ExecutionResult{}, flowerr.Other(errFlowFinishedWithoutResult)
	}

	if e.recorder != nil {
		e.recorder.Record(ctx, *models.NewRuntimeEvent(models.EventExecutionFinished, finished.Node, traceID))
	}

	return ExecutionResult{
		FlowName:    e.flow.Name,
		LastNode:    finished.Node,
		LastMessage: finished.Message,
	}, nil
}

func (e *FlowExecutor) dispatch(ctx context.Context, event FlowEvent, fc *state.FlowContext, queue *eventQueue, shared *SharedState) (TaskResult, error) {
	ctx = observability.AddNodeName(ctx, event.Node)
	if e.tracer != nil {
		kind := "unknown"
		if node, ok := e.flow.Node(event.Node); ok {
			kind = fmt.Sprintf("%T", node.Kind)
		}
		spanCtx, span := e.tracer.TraceNodeDispatch(ctx, event.Node, kind, event.TraceID, int(event.Iterations))
		ctx = spanCtx
		result, err := processEvent(ctx, event, e.flow, e.agent, e.tool, fc, queue, e.maxIterations, e.orchestrator, shared, e.metrics, e.recorder, e.logger, e.tracer)
		if err != nil {
			e.tracer.RecordError(span, err)
		}
		span.End()
		return result, err
	}
	return processEvent(ctx, event, e.flow, e.agent, e.tool, fc, queue, e.maxIterations, e.orchestrator, shared, e.metrics, e.recorder, e.logger, e.tracer)
}

var errFlowFinishedWithoutResult = flowFinishedWithoutResultError{}

type flowFinishedWithoutResultError struct{}

func (flowFinishedWithoutResultError) Error() string { return "flow finished without result" }
