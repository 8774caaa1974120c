// Package observability provides logging, metrics, and tracing for the
// flow executor.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer with the handful of span helpers
// the flow executor actually needs: one span per node dispatch, one per
// tool pipeline invocation, and one per join wait.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	config   TraceConfig
}

// TraceConfig configures tracer construction.
type TraceConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Endpoint is the OTLP gRPC collector address. Empty disables
	// exporting: NewTracer still returns a working Tracer backed by the
	// globally registered (no-op, unless something else set one)
	// TracerProvider, so the engine pays no tracing cost when
	// unconfigured.
	Endpoint       string
	EnableInsecure bool

	// SamplingRate is the fraction of traces sampled, in [0,1]. Only
	// consulted when Endpoint is set: 1.0 or above always samples, 0 (the
	// zero value) never samples, anything in between is ratio-based.
	SamplingRate float64

	Attributes map[string]string
}

// SpanOptions are passed through to the underlying trace.Tracer.Start call.
type SpanOptions struct {
	Kind       trace.SpanKind
	Attributes []attribute.KeyValue
}

// NewTracer builds a Tracer from config and returns a shutdown function
// that flushes and closes the exporter. When config.Endpoint is empty, or
// the exporter fails to construct, the returned Tracer wraps a no-op
// TracerProvider and shutdown is a no-op.
//
// Example:
//
//	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
//	    ServiceName: "agentflow",
//	    Endpoint:    "localhost:4317",
//	})
//	defer shutdown(context.Background())
func NewTracer(config TraceConfig) (*Tracer, func(context.Context) error) {
	if config.Endpoint == "" {
		return &Tracer{tracer: otel.Tracer(config.ServiceName), config: config}, func(context.Context) error { return nil }
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(config.Endpoint)}
	if config.EnableInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptrace.New(context.Background(), otlptracegrpc.NewClient(opts...))
	if err != nil {
		return &Tracer{tracer: otel.Tracer(config.ServiceName), config: config}, func(context.Context) error { return nil }
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
	}
	if config.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(config.Environment))
	}
	for k, v := range config.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(attrs...))
	if err != nil {
		res = resource.Default()
	}

	var sampler sdktrace.Sampler
	if config.SamplingRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else if config.SamplingRate <= 0.0 {
		sampler = sdktrace.NeverSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(config.SamplingRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &Tracer{
			provider: provider,
			tracer:   provider.Tracer(config.ServiceName),
			config:   config,
		}, func(ctx context.Context) error {
			return provider.Shutdown(ctx)
		}
}

// Start begins a span named name, optionally carrying SpanOptions.
func (t *Tracer) Start(ctx context.Context, name string, opts ...SpanOptions) (context.Context, trace.Span) {
	startOpts := make([]trace.SpanStartOption, 0, len(opts))
	for _, o := range opts {
		if o.Kind != trace.SpanKindUnspecified {
			startOpts = append(startOpts, trace.WithSpanKind(o.Kind))
		}
		if len(o.Attributes) > 0 {
			startOpts = append(startOpts, trace.WithAttributes(o.Attributes...))
		}
	}
	return t.tracer.Start(ctx, name, startOpts...)
}

// TraceNodeDispatch starts the per-handler-dispatch span the scheduler
// wraps every FlowEvent in, carrying the node name, node kind, trace id,
// and iteration count as attributes (ADDENDUM B).
func (t *Tracer) TraceNodeDispatch(ctx context.Context, nodeName, nodeKind, traceID string, iteration int) (context.Context, trace.Span) {
	return t.Start(ctx, "runtime.dispatch", SpanOptions{
		Kind: trace.SpanKindInternal,
		Attributes: []attribute.KeyValue{
			attribute.String("flow.node", nodeName),
			attribute.String("flow.node_kind", nodeKind),
			attribute.String("flow.trace_id", traceID),
			attribute.Int("flow.iteration", iteration),
		},
	})
}

// TraceToolPipeline starts a span around one ToolOrchestrator pipeline
// execution.
func (t *Tracer) TraceToolPipeline(ctx context.Context, nodeName, pipeline string) (context.Context, trace.Span) {
	return t.Start(ctx, "tool.pipeline", SpanOptions{
		Kind: trace.SpanKindInternal,
		Attributes: []attribute.KeyValue{
			attribute.String("flow.node", nodeName),
			attribute.String("tool.pipeline", pipeline),
		},
	})
}

// TraceJoinWait starts a span covering one join node's wait for its
// contributors, closed when the join either triggers or is dropped.
func (t *Tracer) TraceJoinWait(ctx context.Context, nodeName, strategy string) (context.Context, trace.Span) {
	return t.Start(ctx, "runtime.join_wait", SpanOptions{
		Kind: trace.SpanKindInternal,
		Attributes: []attribute.KeyValue{
			attribute.String("flow.node", nodeName),
			attribute.String("join.strategy", strategy),
		},
	})
}

// RecordError sets span's status to error and attaches err as a span
// event. A nil err or span is a no-op.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

