// Package observability provides logging, metrics, and tracing for the flow
// engine and the demo CLI built on it.
//
// # Overview
//
//  1. Logging - structured logs via slog, with sensitive data redaction
//  2. Metrics - Prometheus counters/gauges/histograms for the scheduler and
//     tool orchestrator
//  3. Tracing - OpenTelemetry spans, one per node dispatch
//
// The flow engine itself never requires any of these; FlowExecutor accepts
// a *Tracer and the scheduler falls back to Default() for warn/debug
// logging when none is injected. A deployment that wants metrics wires
// *Metrics into its own tool.Orchestrator / runtime.FlowExecutor call
// sites.
//
// Example usage:
//
//	logger := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
//	metrics := observability.NewMetrics()
//	tracer, shutdown := observability.NewTracer(observability.TraceConfig{ServiceName: "agentflow"})
//	defer shutdown(context.Background())
//
//	executor := runtime.NewFlowExecutor(f, agents, tools, runtime.WithTracer(tracer))
//	result, err := executor.Start(ctx, fc, initial)
//	metrics.RecordExecution(f.Name, outcomeLabel(err), time.Since(start))
//
// # Security considerations
//
// The logging component redacts API keys, passwords, bearer/JWT tokens,
// and generic hex secrets from both message strings and structured fields
// before they reach the configured writer.
package observability
