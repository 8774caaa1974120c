package main

import (
	"context"
	"strings"

	"github.com/agentflow/agentflow/internal/agent"
	"github.com/agentflow/agentflow/pkg/models"
)

// LlmAgent is the demo binary's only concrete Agent: it forwards the
// incoming message to an LlmClient and follows the node's static
// transitions with the reply. It is illustrative, not a product agent —
// the core engine never imports LlmClient or any provider.
type LlmAgent struct {
	agent.NoopLifecycle
	name   string
	system string
	client LlmClient
}

// NewLlmAgent returns an LlmAgent named name, using client for completions
// and system as the system prompt (may be empty).
func NewLlmAgent(name, system string, client LlmClient) *LlmAgent {
	return &LlmAgent{name: name, system: system, client: client}
}

func (a *LlmAgent) Name() string { return a.name }

func (a *LlmAgent) OnMessage(ctx context.Context, message models.Message, actx *agent.Context) (agent.Action, error) {
	reply, err := a.client.Complete(ctx, a.system, message.Content)
	if err != nil {
		return nil, err
	}

	if looksShort(reply) {
		if err := actx.Flow.Store().Set(ctx, "retry_needed", "1"); err != nil {
			return nil, err
		}
	} else if err := actx.Flow.Store().Delete(ctx, "retry_needed"); err != nil {
		return nil, err
	}

	out := models.NewMessage(models.RoleAgent, a.name, reply)
	return agent.Continue{Message: out, HasMessage: true}, nil
}

// classifierAgent routes to "escalate" or "resolve" based on a keyword
// match on the incoming message, standing in for a real intent classifier
// in the demo flow's Decision node.
type classifierAgent struct {
	agent.NoopLifecycle
}

func (classifierAgent) Name() string { return "classifier" }

func (classifierAgent) OnMessage(ctx context.Context, message models.Message, actx *agent.Context) (agent.Action, error) {
	content := strings.ToLower(message.Content)
	tag := "resolved"
	if strings.Contains(content, "escalate") || strings.Contains(content, "human") {
		tag = "escalate"
	}
	if err := actx.Flow.Store().Set(ctx, "classification", tag); err != nil {
		return nil, err
	}
	return agent.Continue{Message: message, HasMessage: true}, nil
}
