package main

import (
	"context"
	"strings"

	"github.com/agentflow/agentflow/internal/agent"
	"github.com/agentflow/agentflow/internal/flow"
	"github.com/agentflow/agentflow/internal/observability"
	"github.com/agentflow/agentflow/internal/state"
	"github.com/agentflow/agentflow/internal/tool"
)

// buildSupportFlow assembles the demo binary's flow: an LLM agent answers,
// a loop re-asks once if the answer looks too short, a classifier tags the
// result, a Decision node routes to either an escalation fan-out (two Tool
// nodes joined back together) or a direct resolution, and both paths end
// at a Terminal node. It exercises every node kind in one graph.
func buildSupportFlow() flow.Flow {
	maxRetries := uint32(2)

	b := flow.NewBuilder("support-demo").
		SetStart("assistant").
		AddNode("assistant", flow.AgentKind{AgentName: "assistant"}).
		AddNode("retry_loop", flow.LoopKind{
			Entry:         "assistant",
			Condition:     stateExistsRetryNeeded(),
			MaxIterations: &maxRetries,
			Exit:          "classify",
		}).
		AddNode("classify", flow.AgentKind{AgentName: "classifier"}).
		AddNode("route", flow.DecisionKind{
			Policy: flow.FirstMatch,
			Branches: []flow.DecisionBranch{
				{Name: "escalate", Condition: flow.StateEquals("classification", "escalate"), Target: "escalate_tool"},
				{Name: "resolved", Condition: flow.StateEquals("classification", "resolved"), Target: "close"},
			},
		}).
		AddNode("escalate_tool", flow.ToolKind{Pipeline: "escalate"}).
		AddNode("audit_log", flow.ToolKind{Pipeline: "audit_log"}).
		AddNode("page_oncall", flow.ToolKind{Pipeline: "page_oncall"}).
		AddNode("escalation_complete", flow.JoinKind{
			Strategy: flow.JoinAll(),
			Inbound:  []string{"audit_log", "page_oncall"},
		}).
		AddNode("terminal_escalated", flow.TerminalKind{}).
		AddNode("close", flow.ToolKind{Pipeline: "close_ticket"}).
		AddNode("terminal_resolved", flow.TerminalKind{}).
		Connect("assistant", "retry_loop").
		Connect("classify", "route").
		Connect("escalate_tool", "audit_log").
		Connect("escalate_tool", "page_oncall").
		Connect("audit_log", "escalation_complete").
		Connect("page_oncall", "escalation_complete").
		Connect("escalation_complete", "terminal_escalated").
		Connect("close", "terminal_resolved")

	return b.Build()
}

// stateExistsRetryNeeded matches flow.StateExists's shape but is defined
// locally so the demo can keep its "retry_needed" key private to this file.
func stateExistsRetryNeeded() flow.Predicate {
	return func(ctx context.Context, fc *state.FlowContext) bool {
		_, ok, err := fc.Store().Get(ctx, "retry_needed")
		return err == nil && ok
	}
}

// buildOrchestrator registers the demo's tool and wires the pipelines the
// support flow's Tool nodes reference.
func buildOrchestrator(metrics *observability.Metrics) *tool.Orchestrator {
	registry := tool.NewRegistry()
	registry.Register(tool.NewEchoTool())

	opts := []tool.OrchestratorOption{}
	if metrics != nil {
		opts = append(opts, tool.WithOrchestratorMetrics(metrics))
	}
	orch := tool.NewOrchestrator(registry, opts...)

	orch.RegisterPipeline(tool.Pipeline{
		Name:     "escalate",
		Strategy: tool.Sequential{Steps: []tool.Step{{Tool: "echo", Input: map[string]any{"action": "open_escalation"}}}},
	})
	orch.RegisterPipeline(tool.Pipeline{
		Name:     "audit_log",
		Strategy: tool.Sequential{Steps: []tool.Step{{Tool: "echo", Input: map[string]any{"action": "audit_logged"}}}},
	})
	orch.RegisterPipeline(tool.Pipeline{
		Name:     "page_oncall",
		Strategy: tool.Sequential{Steps: []tool.Step{{Tool: "echo", Input: map[string]any{"action": "paged"}}}},
	})
	orch.RegisterPipeline(tool.Pipeline{
		Name:     "close_ticket",
		Strategy: tool.Sequential{Steps: []tool.Step{{Tool: "echo", Input: map[string]any{"action": "closed"}}}},
	})

	return orch
}

func buildRegistries(client LlmClient) *agent.Registry {
	registry := agent.NewRegistry()
	registry.Register(NewLlmAgent("assistant", supportSystemPrompt, client))
	registry.Register(classifierAgent{})
	return registry
}

const supportSystemPrompt = "You are a terse customer support assistant. Answer in one sentence. " +
	"If the customer's issue needs a human, say so explicitly."

func looksShort(reply string) bool {
	return len(strings.TrimSpace(reply)) < 20
}
