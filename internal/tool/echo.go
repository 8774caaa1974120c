package tool

import (
	"context"
	"fmt"

	"github.com/agentflow/agentflow/internal/state"
	"github.com/agentflow/agentflow/pkg/models"
)

// EchoTool is a demo/test fixture: it reflects its input back as a tool
// message, prefixed by name. It is not a product tool.
type EchoTool struct {
	Prefix string
}

// NewEchoTool returns an EchoTool that prefixes replies with "Echo".
func NewEchoTool() *EchoTool {
	return &EchoTool{Prefix: "Echo"}
}

func (t *EchoTool) Name() string { return "echo" }

func (t *EchoTool) Call(_ context.Context, invocation Invocation, _ *state.FlowContext) (models.Message, error) {
	prefix := t.Prefix
	if prefix == "" {
		prefix = "Echo"
	}
	msg := models.NewMessage(models.RoleTool, t.Name(), fmt.Sprintf("%s: %v", prefix, invocation.Input))
	if replyTo, ok := invocation.Metadata["reply_to"].(string); ok {
		msg = msg.WithTo(replyTo)
	}
	return msg.WithMetadata(invocation.Metadata), nil
}

// RegisterBuiltinFactories wires the demo tool factories into r, matching
// the set a default deployment ships with.
func RegisterBuiltinFactories(r *FactoryRegistry) {
	r.RegisterFactory("echo", func(config map[string]any) (Tool, error) {
		prefix := "Echo"
		if p, ok := config["prefix"].(string); ok && p != "" {
			prefix = p
		}
		return &EchoTool{Prefix: prefix}, nil
	})
}
