package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting scheduler and
// orchestrator metrics.
//
// The metrics system is built on Prometheus and tracks:
//   - Events admitted by the scheduler, and how many handlers are in flight
//   - Join triggers, broken down by strategy
//   - Loop re-entries
//   - Tool invocation duration and outcome
//   - Executor wall-clock duration per flow
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	metrics.EventAdmitted(flowName, nodeKind)
//	defer metrics.ExecutorDuration(flowName).Observe(time.Since(start).Seconds())
type Metrics struct {
	// EventsAdmitted counts FlowEvents the scheduler has dequeued and
	// spawned a handler task for.
	// Labels: flow, node_kind
	EventsAdmitted *prometheus.CounterVec

	// HandlersInFlight is a gauge of currently-running handler tasks.
	// Labels: flow
	HandlersInFlight *prometheus.GaugeVec

	// JoinTriggers counts Join nodes firing, by strategy.
	// Labels: flow, node, strategy
	JoinTriggers *prometheus.CounterVec

	// LoopIterations counts Loop node body re-entries.
	// Labels: flow, node
	LoopIterations *prometheus.CounterVec

	// ToolInvocationDuration measures tool call latency in seconds.
	// Labels: tool, status (success|error)
	ToolInvocationDuration *prometheus.HistogramVec

	// ToolInvocationCounter counts tool calls by outcome.
	// Labels: tool, status (success|error)
	ToolInvocationCounter *prometheus.CounterVec

	// ExecutorDuration measures one FlowExecutor.Start call's wall-clock
	// time in seconds.
	// Labels: flow, outcome (finished|error)
	ExecutorDuration *prometheus.HistogramVec

	// DecisionNoMatch counts Decision nodes that found no passing branch.
	// Labels: flow, node
	DecisionNoMatch *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics with the default
// registry. Call once at process startup.
func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

// newMetrics registers every metric against reg, letting tests supply an
// isolated prometheus.Registry instead of the process-wide default.
func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsAdmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentflow_events_admitted_total",
				Help: "Total number of FlowEvents admitted by the scheduler, by flow and node kind",
			},
			[]string{"flow", "node_kind"},
		),

		HandlersInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "agentflow_handlers_in_flight",
				Help: "Current number of in-flight node handler tasks, by flow",
			},
			[]string{"flow"},
		),

		JoinTriggers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentflow_join_triggers_total",
				Help: "Total number of Join node triggers, by flow, node, and strategy",
			},
			[]string{"flow", "node", "strategy"},
		),

		LoopIterations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentflow_loop_iterations_total",
				Help: "Total number of Loop node body re-entries, by flow and node",
			},
			[]string{"flow", "node"},
		),

		ToolInvocationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentflow_tool_invocation_duration_seconds",
				Help:    "Duration of tool invocations in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool", "status"},
		),

		ToolInvocationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentflow_tool_invocations_total",
				Help: "Total number of tool invocations, by tool name and status",
			},
			[]string{"tool", "status"},
		),

		ExecutorDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentflow_executor_duration_seconds",
				Help:    "Wall-clock duration of one flow execution, by flow and outcome",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"flow", "outcome"},
		),

		DecisionNoMatch: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentflow_decision_no_match_total",
				Help: "Total number of Decision nodes that found no passing branch, by flow and node",
			},
			[]string{"flow", "node"},
		),
	}
}

// EventAdmitted records one FlowEvent being dequeued and dispatched.
func (m *Metrics) EventAdmitted(flow, nodeKind string) {
	m.EventsAdmitted.WithLabelValues(flow, nodeKind).Inc()
}

// HandlerStarted increments the in-flight gauge for flow.
func (m *Metrics) HandlerStarted(flow string) {
	m.HandlersInFlight.WithLabelValues(flow).Inc()
}

// HandlerFinished decrements the in-flight gauge for flow.
func (m *Metrics) HandlerFinished(flow string) {
	m.HandlersInFlight.WithLabelValues(flow).Dec()
}

// JoinTriggered records a Join node firing under the given strategy.
func (m *Metrics) JoinTriggered(flow, node, strategy string) {
	m.JoinTriggers.WithLabelValues(flow, node, strategy).Inc()
}

// LoopIterated records one Loop node body re-entry.
func (m *Metrics) LoopIterated(flow, node string) {
	m.LoopIterations.WithLabelValues(flow, node).Inc()
}

// RecordToolInvocation records a tool call's outcome and duration.
func (m *Metrics) RecordToolInvocation(tool, status string, duration time.Duration) {
	m.ToolInvocationCounter.WithLabelValues(tool, status).Inc()
	m.ToolInvocationDuration.WithLabelValues(tool, status).Observe(duration.Seconds())
}

// RecordExecution records one flow execution's wall-clock duration.
func (m *Metrics) RecordExecution(flow, outcome string, duration time.Duration) {
	m.ExecutorDuration.WithLabelValues(flow, outcome).Observe(duration.Seconds())
}

// RecordDecisionNoMatch records a Decision node that found no passing branch.
func (m *Metrics) RecordDecisionNoMatch(flow, node string) {
	m.DecisionNoMatch.WithLabelValues(flow, node).Inc()
}
