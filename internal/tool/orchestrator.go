package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/agentflow/agentflow/internal/backoff"
	"github.com/agentflow/agentflow/internal/flowerr"
	"github.com/agentflow/agentflow/internal/observability"
	"github.com/agentflow/agentflow/internal/policy"
	"github.com/agentflow/agentflow/internal/state"
	"github.com/agentflow/agentflow/pkg/models"
)

// Strategy is the tagged variant describing how a Pipeline's steps combine.
type Strategy interface {
	strategyTag()
}

// Sequential runs steps in order, merging Pipeline params into each step's
// input for keys the step doesn't already set, and returns the last step's
// result.
type Sequential struct{ Steps []Step }

// Parallel runs every step concurrently and returns a single system
// message whose content is a JSON array of the step results, in step order.
type Parallel struct{ Steps []Step }

// Fallback tries each step in order and returns the first success, or the
// last error if every step fails.
type Fallback struct{ Steps []Step }

func (Sequential) strategyTag() {}
func (Parallel) strategyTag()   {}
func (Fallback) strategyTag()   {}

// Step is one tool invocation within a Strategy.
type Step struct {
	Tool    string
	Input   map[string]any
	Timeout time.Duration // zero means no timeout
	Retries uint32
	Name    string
}

// Pipeline is a named, reusable Strategy with an optional soft output
// manifest.
type Pipeline struct {
	Name           string
	Strategy       Strategy
	OutputManifest *Manifest
}

// Orchestrator executes Pipelines and bare Strategies against a shared
// Registry, applying per-step timeout, retry, soft manifest validation, and
// optional policy gating.
type Orchestrator struct {
	registry      *Registry
	policy        *policy.Resolver
	metrics       *observability.Metrics
	backoffPolicy backoff.BackoffPolicy

	mu        sync.RWMutex
	pipelines map[string]Pipeline
}

// OrchestratorOption configures an Orchestrator at construction.
type OrchestratorOption func(*Orchestrator)

// WithPolicy gates every step through r before it runs. A denied step
// fails that step, subject to the same retry/fallback semantics as any
// other step failure.
func WithPolicy(r *policy.Resolver) OrchestratorOption {
	return func(o *Orchestrator) { o.policy = r }
}

// WithOrchestratorMetrics records per-tool invocation duration and outcome.
func WithOrchestratorMetrics(m *observability.Metrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithBackoffPolicy controls the delay between a step's retry attempts.
// Defaults to backoff.DefaultPolicy.
func WithBackoffPolicy(p backoff.BackoffPolicy) OrchestratorOption {
	return func(o *Orchestrator) { o.backoffPolicy = p }
}

// NewOrchestrator wraps registry for pipeline execution.
func NewOrchestrator(registry *Registry, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		registry:      registry,
		pipelines:     make(map[string]Pipeline),
		backoffPolicy: backoff.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Registry returns the orchestrator's underlying tool registry.
func (o *Orchestrator) Registry() *Registry { return o.registry }

// RegisterPipeline stores p under p.Name, replacing any prior pipeline
// with that name.
func (o *Orchestrator) RegisterPipeline(p Pipeline) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pipelines[p.Name] = p
}

// ExecutePipeline runs the named pipeline with no params.
func (o *Orchestrator) ExecutePipeline(ctx context.Context, name string, fc *state.FlowContext) (models.Message, error) {
	return o.ExecutePipelineWithParams(ctx, name, nil, fc)
}

// ExecutePipelineWithParams runs the named pipeline, merging params into
// Sequential steps, then soft-validates the result against the pipeline's
// output manifest, if any.
func (o *Orchestrator) ExecutePipelineWithParams(ctx context.Context, name string, params map[string]any, fc *state.FlowContext) (models.Message, error) {
	o.mu.RLock()
	pipeline, ok := o.pipelines[name]
	o.mu.RUnlock()
	if !ok {
		return models.Message{}, flowerr.ToolNotRegistered(name)
	}

	message, err := o.ExecuteStrategyWithParams(ctx, pipeline.Strategy, params, fc)
	if err != nil {
		return models.Message{}, err
	}
	if pipeline.OutputManifest != nil {
		o.validateOutput(ctx, *pipeline.OutputManifest, message)
	}
	return message, nil
}

// ExecuteStrategy runs strategy with no params.
func (o *Orchestrator) ExecuteStrategy(ctx context.Context, strategy Strategy, fc *state.FlowContext) (models.Message, error) {
	return o.ExecuteStrategyWithParams(ctx, strategy, nil, fc)
}

// ExecuteStrategyWithParams dispatches on the concrete Strategy variant.
func (o *Orchestrator) ExecuteStrategyWithParams(ctx context.Context, strategy Strategy, params map[string]any, fc *state.FlowContext) (models.Message, error) {
	switch s := strategy.(type) {
	case Sequential:
		last := models.SystemMessage("tool.pipeline.start")
		for _, step := range s.Steps {
			merged := step
			merged.Input = mergeParams(step.Input, params)
			msg, err := o.executeStep(ctx, merged, fc)
			if err != nil {
				return models.Message{}, err
			}
			last = msg
		}
		return last, nil

	case Parallel:
		type outcome struct {
			index int
			msg   models.Message
			err   error
		}
		results := make([]outcome, len(s.Steps))
		var wg sync.WaitGroup
		for i, step := range s.Steps {
			wg.Add(1)
			go func(i int, step Step) {
				defer wg.Done()
				msg, err := o.executeStep(ctx, step, fc)
				results[i] = outcome{index: i, msg: msg, err: err}
			}(i, step)
		}
		wg.Wait()

		messages := make([]models.Message, len(results))
		for _, r := range results {
			if r.err != nil {
				return models.Message{}, r.err
			}
			messages[r.index] = r.msg
		}
		encoded, err := json.Marshal(messages)
		if err != nil {
			return models.Message{}, flowerr.Serialization(err.Error())
		}
		return models.SystemMessage(string(encoded)), nil

	case Fallback:
		var lastErr error
		for _, step := range s.Steps {
			msg, err := o.executeStep(ctx, step, fc)
			if err == nil {
				return msg, nil
			}
			observability.Default().Warn(ctx, "fallback step failed", "tool", step.Tool, "error", err)
			lastErr = err
		}
		if lastErr == nil {
			lastErr = fmt.Errorf("all fallback steps failed")
		}
		return models.Message{}, lastErr

	default:
		return models.Message{}, flowerr.Other(fmt.Errorf("unknown tool strategy %T", strategy))
	}
}

func mergeParams(input, params map[string]any) map[string]any {
	if len(params) == 0 {
		return input
	}
	merged := make(map[string]any, len(input)+len(params))
	for k, v := range input {
		merged[k] = v
	}
	for k, v := range params {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return merged
}

func (o *Orchestrator) executeStep(ctx context.Context, step Step, fc *state.FlowContext) (models.Message, error) {
	t, ok := o.registry.Get(step.Tool)
	if !ok {
		return models.Message{}, flowerr.ToolNotRegistered(step.Tool)
	}
	if o.policy != nil {
		if decision := o.policy.Decide(step.Tool); !decision.Allowed {
			observability.Default().Warn(ctx, "tool step denied by policy", "tool", step.Tool, "reason", decision.Reason)
			o.recordInvocation(step.Tool, "denied", 0)
			return models.Message{}, flowerr.Other(fmt.Errorf("tool %q denied by policy: %s", step.Tool, decision.Reason))
		}
	}
	if manifest, ok := o.registry.Manifest(step.Tool); ok {
		o.validateInput(ctx, manifest, step.Input)
	}

	invocation := Invocation{Name: t.Name(), Input: step.Input}

	var attempts uint32
	for {
		attempts++
		stepCtx := ctx
		cancel := func() {}
		if step.Timeout > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, step.Timeout)
		}
		started := time.Now()
		msg, err := t.Call(stepCtx, invocation, fc)
		elapsed := time.Since(started)
		cancel()

		if err == nil {
			o.recordInvocation(step.Tool, "success", elapsed)
			return msg, nil
		}
		if stepCtx.Err() == context.DeadlineExceeded {
			observability.Default().Warn(ctx, "tool invocation timed out", "tool", step.Tool)
			if attempts > step.Retries {
				o.recordInvocation(step.Tool, "error", elapsed)
				return models.Message{}, flowerr.Other(fmt.Errorf("tool %q timed out", step.Tool))
			}
			if sleepErr := backoff.SleepWithContext(ctx, backoff.ComputeBackoff(o.backoffPolicy, int(attempts))); sleepErr != nil {
				o.recordInvocation(step.Tool, "error", elapsed)
				return models.Message{}, flowerr.Other(sleepErr)
			}
			continue
		}
		if attempts <= step.Retries {
			observability.Default().Warn(ctx, "tool invocation failed, retrying", "tool", step.Tool, "attempt", attempts, "retries", step.Retries, "error", err)
			if sleepErr := backoff.SleepWithContext(ctx, backoff.ComputeBackoff(o.backoffPolicy, int(attempts))); sleepErr != nil {
				o.recordInvocation(step.Tool, "error", elapsed)
				return models.Message{}, flowerr.Other(sleepErr)
			}
			continue
		}
		o.recordInvocation(step.Tool, "error", elapsed)
		return models.Message{}, err
	}
}

func (o *Orchestrator) recordInvocation(tool, status string, elapsed time.Duration) {
	if o.metrics != nil {
		o.metrics.RecordToolInvocation(tool, status, elapsed)
	}
}

func (o *Orchestrator) validateInput(ctx context.Context, manifest Manifest, input map[string]any) {
	if len(manifest.Inputs) == 0 {
		return
	}
	if input == nil {
		observability.Default().Warn(ctx, "tool input missing; manifest declares inputs", "tool", manifest.Name)
		return
	}
	for _, port := range manifest.Inputs {
		value, present := input[port.Name]
		if !present {
			continue
		}
		if err := port.ValidateAgainst(value); err != nil {
			observability.Default().Warn(ctx, "tool input failed schema validation", "tool", manifest.Name, "port", port.Name, "error", err)
		}
	}
}

func (o *Orchestrator) validateOutput(ctx context.Context, manifest Manifest, message models.Message) {
	if len(manifest.Outputs) == 0 {
		return
	}
	if message.Role != models.RoleTool {
		observability.Default().Warn(ctx, "pipeline output role mismatch", "tool", manifest.Name, "role", message.Role)
	}
	for _, port := range manifest.Outputs {
		if port.Schema == nil || len(port.Schema.JSONSchema) == 0 {
			continue
		}
		if err := port.ValidateAgainst(message.Content); err != nil {
			observability.Default().Warn(ctx, "tool output failed schema validation", "tool", manifest.Name, "port", port.Name, "error", err)
		}
	}
}
