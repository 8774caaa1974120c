package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestNewTracer(t *testing.T) {
	tests := []struct {
		name   string
		config TraceConfig
	}{
		{
			name: "with endpoint",
			config: TraceConfig{
				ServiceName:    "test-service",
				ServiceVersion: "1.0.0",
				Endpoint:       "localhost:4317",
				EnableInsecure: true,
			},
		},
		{
			name: "without endpoint (no-op)",
			config: TraceConfig{
				ServiceName:    "test-service",
				ServiceVersion: "1.0.0",
			},
		},
		{
			name: "with sampling",
			config: TraceConfig{
				ServiceName:  "test-service",
				Endpoint:     "localhost:4317",
				SamplingRate: 0.5,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, shutdown := NewTracer(tt.config)
			defer func() { _ = shutdown(context.Background()) }()

			if tracer == nil {
				t.Fatal("NewTracer() returned nil")
			}
			if tracer.tracer == nil {
				t.Error("tracer.tracer is nil")
			}
		})
	}
}

func TestTracerStart(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "test-service"})
	defer func() { _ = shutdown(context.Background()) }()

	ctx := context.Background()
	_, span := tracer.Start(ctx, "test-operation")
	defer span.End()

	if span == nil {
		t.Fatal("Start() returned nil span")
	}
}

func TestTracerRecordError(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "test-service"})
	defer func() { _ = shutdown(context.Background()) }()

	ctx := context.Background()
	_, span := tracer.Start(ctx, "test-operation")

	testErr := errors.New("test error")
	tracer.RecordError(span, testErr)
	span.End()
}

func TestTracerRecordErrorWithNil(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "test-service"})
	defer func() { _ = shutdown(context.Background()) }()

	ctx := context.Background()
	_, span := tracer.Start(ctx, "test-operation")
	defer span.End()

	// Recording nil error should not panic.
	tracer.RecordError(span, nil)
	// Recording on a nil span should not panic either.
	tracer.RecordError(nil, errors.New("boom"))
}

func TestTraceNodeDispatch(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "test-service"})
	defer func() { _ = shutdown(context.Background()) }()

	ctx := context.Background()
	_, span := tracer.TraceNodeDispatch(ctx, "greeter", "flow.AgentKind", "trace-1", 3)
	defer span.End()

	if span == nil {
		t.Fatal("TraceNodeDispatch() returned nil span")
	}
}

func TestTraceToolPipeline(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "test-service"})
	defer func() { _ = shutdown(context.Background()) }()

	ctx := context.Background()
	_, span := tracer.TraceToolPipeline(ctx, "lookup", "order-status")
	defer span.End()

	if span == nil {
		t.Fatal("TraceToolPipeline() returned nil span")
	}
}

func TestTraceJoinWait(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "test-service"})
	defer func() { _ = shutdown(context.Background()) }()

	ctx := context.Background()
	_, span := tracer.TraceJoinWait(ctx, "merge", "all")
	defer span.End()

	if span == nil {
		t.Fatal("TraceJoinWait() returned nil span")
	}
}

func TestTracerSamplingRates(t *testing.T) {
	tests := []struct {
		name         string
		samplingRate float64
	}{
		{"always sample", 1.0},
		{"never sample", 0.0},
		{"50% sample", 0.5},
		{"10% sample", 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, shutdown := NewTracer(TraceConfig{
				ServiceName:  "test-service",
				Endpoint:     "localhost:4317",
				SamplingRate: tt.samplingRate,
			})
			defer func() { _ = shutdown(context.Background()) }()

			if tracer == nil {
				t.Fatal("NewTracer() returned nil")
			}

			ctx := context.Background()
			for i := 0; i < 10; i++ {
				_, span := tracer.Start(ctx, "test-operation")
				span.End()
			}
		})
	}
}

func TestNestedSpans(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "test-service"})
	defer func() { _ = shutdown(context.Background()) }()

	ctx := context.Background()

	parentCtx, parentSpan := tracer.Start(ctx, "parent-operation")
	defer parentSpan.End()

	childCtx, childSpan := tracer.Start(parentCtx, "child-operation")
	defer childSpan.End()

	if childCtx == nil {
		t.Error("Expected valid child context")
	}
	if parentCtx == nil {
		t.Error("Expected valid parent context")
	}
}

func TestMultipleTracersIndependent(t *testing.T) {
	tracer1, shutdown1 := NewTracer(TraceConfig{ServiceName: "service-1"})
	defer func() { _ = shutdown1(context.Background()) }()

	tracer2, shutdown2 := NewTracer(TraceConfig{ServiceName: "service-2"})
	defer func() { _ = shutdown2(context.Background()) }()

	ctx := context.Background()

	_, span1 := tracer1.Start(ctx, "operation-1")
	defer span1.End()

	_, span2 := tracer2.Start(ctx, "operation-2")
	defer span2.End()

	if span1 == nil || span2 == nil {
		t.Error("Expected both spans to be created")
	}
}

func TestTracerShutdown(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "test-service"})

	ctx := context.Background()
	_, span := tracer.Start(ctx, "test-operation")
	span.End()

	if err := shutdown(ctx); err != nil {
		t.Errorf("Shutdown returned error: %v", err)
	}
}

func TestSpanWithOptions(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "test-service"})
	defer func() { _ = shutdown(context.Background()) }()

	ctx := context.Background()
	_, span := tracer.Start(ctx, "test-operation", SpanOptions{Kind: trace.SpanKindServer})
	defer span.End()

	if span == nil {
		t.Fatal("Start() with SpanOptions returned nil span")
	}
}
