package runtime

import (
	"context"
	"strings"
	"testing"

	"github.com/agentflow/agentflow/internal/agent"
	"github.com/agentflow/agentflow/internal/flow"
	"github.com/agentflow/agentflow/internal/state"
	"github.com/agentflow/agentflow/internal/tool"
	"github.com/agentflow/agentflow/pkg/models"
)

// nextAgent always routes to a fixed target with the incoming message,
// ending the chain when target is empty.
type nextAgent struct {
	agent.NoopLifecycle
	name, target string
}

func (a *nextAgent) Name() string { return a.name }

func (a *nextAgent) OnMessage(_ context.Context, msg models.Message, _ *agent.Context) (agent.Action, error) {
	if a.target == "" {
		return agent.Finish{Message: msg, HasMessage: true}, nil
	}
	return agent.Next{Target: a.target, Message: msg}, nil
}

func buildLinearFlow(t *testing.T) (flow.Flow, *agent.Registry) {
	t.Helper()
	f := flow.NewBuilder("linear").
		AddNode("A", flow.AgentKind{AgentName: "a"}).
		AddNode("B", flow.AgentKind{AgentName: "b"}).
		SetStart("A").
		Connect("A", "B").
		Build()

	agents := agent.NewRegistry()
	agents.Register(&nextAgent{name: "a", target: "B"})
	agents.Register(&nextAgent{name: "b"})
	return f, agents
}

// S1: a linear Agent -> Agent -> Finish chain reaches a terminal result
// carrying the last agent's message.
func TestExecutor_LinearChainFinishes(t *testing.T) {
	f, agents := buildLinearFlow(t)
	exec := NewFlowExecutor(f, agents, tool.NewRegistry())
	fc := state.NewFlowContext(state.NewMemoryStore())

	result, err := exec.Start(context.Background(), fc, models.UserMessage("hello"))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if result.LastNode != "B" {
		t.Fatalf("LastNode = %q, want B", result.LastNode)
	}
	if result.LastMessage == nil || result.LastMessage.Content != "hello" {
		t.Fatalf("LastMessage = %+v", result.LastMessage)
	}
}

// Unregistered agents surface flowerr.KindAgentNotRegistered.
func TestExecutor_UnregisteredAgent(t *testing.T) {
	f := flow.NewBuilder("f").
		AddNode("A", flow.AgentKind{AgentName: "missing"}).
		SetStart("A").
		Build()
	exec := NewFlowExecutor(f, agent.NewRegistry(), tool.NewRegistry())
	fc := state.NewFlowContext(state.NewMemoryStore())

	_, err := exec.Start(context.Background(), fc, models.UserMessage("hi"))
	if err == nil {
		t.Fatal("expected error for unregistered agent")
	}
}

// Terminal nodes end the flow immediately with the arriving message.
func TestExecutor_TerminalNode(t *testing.T) {
	f := flow.NewBuilder("f").
		AddNode("end", flow.TerminalKind{}).
		SetStart("end").
		Build()
	exec := NewFlowExecutor(f, agent.NewRegistry(), tool.NewRegistry())
	fc := state.NewFlowContext(state.NewMemoryStore())

	result, err := exec.Start(context.Background(), fc, models.UserMessage("done"))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if result.LastMessage.Content != "done" {
		t.Fatalf("LastMessage = %+v", result.LastMessage)
	}
}

// Decision nodes with FirstMatch route to the first passing branch.
func TestExecutor_DecisionFirstMatch(t *testing.T) {
	f := flow.NewBuilder("f").
		AddNode("decide", flow.DecisionKind{
			Policy: flow.FirstMatch,
			Branches: []flow.DecisionBranch{
				{Name: "no", Condition: flow.StateEquals("route", "left"), Target: "left"},
				{Name: "yes", Condition: flow.Always(), Target: "right"},
			},
		}).
		AddNode("left", flow.TerminalKind{}).
		AddNode("right", flow.TerminalKind{}).
		SetStart("decide").
		Build()
	exec := NewFlowExecutor(f, agent.NewRegistry(), tool.NewRegistry())
	fc := state.NewFlowContext(state.NewMemoryStore())

	result, err := exec.Start(context.Background(), fc, models.UserMessage("go"))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if result.LastNode != "right" {
		t.Fatalf("LastNode = %q, want right", result.LastNode)
	}
}

// Decision nodes with no matching branch surface DecisionNoMatch.
func TestExecutor_DecisionNoMatch(t *testing.T) {
	f := flow.NewBuilder("f").
		AddNode("decide", flow.DecisionKind{
			Policy: flow.FirstMatch,
			Branches: []flow.DecisionBranch{
				{Name: "never", Condition: flow.StateEquals("x", "y"), Target: "left"},
			},
		}).
		AddNode("left", flow.TerminalKind{}).
		SetStart("decide").
		Build()
	exec := NewFlowExecutor(f, agent.NewRegistry(), tool.NewRegistry())
	fc := state.NewFlowContext(state.NewMemoryStore())

	_, err := exec.Start(context.Background(), fc, models.UserMessage("go"))
	if err == nil {
		t.Fatal("expected DecisionNoMatch error")
	}
}

type fanoutAgent struct{ agent.NoopLifecycle }

func (fanoutAgent) Name() string { return "fan" }

func (fanoutAgent) OnMessage(_ context.Context, msg models.Message, _ *agent.Context) (agent.Action, error) {
	return agent.Branch{Targets: map[string]models.Message{"left": msg, "right": msg}}, nil
}

type passthroughAgent struct {
	agent.NoopLifecycle
	name string
}

func (a *passthroughAgent) Name() string { return a.name }

func (*passthroughAgent) OnMessage(_ context.Context, msg models.Message, _ *agent.Context) (agent.Action, error) {
	return agent.Continue{Message: msg, HasMessage: true}, nil
}

// Join(All) fires once every expected inbound source has arrived, and
// aggregates their messages into one system message.
func TestExecutor_JoinAll(t *testing.T) {
	f := flow.NewBuilder("f").
		AddNode("fan", flow.AgentKind{AgentName: "fan"}).
		AddNode("left", flow.AgentKind{AgentName: "left"}).
		AddNode("right", flow.AgentKind{AgentName: "right"}).
		AddNode("join", flow.JoinKind{Strategy: flow.JoinAll(), Inbound: []string{"left", "right"}}).
		AddNode("end", flow.TerminalKind{}).
		SetStart("fan").
		Connect("left", "join").
		Connect("right", "join").
		Connect("join", "end").
		Build()

	agents := agent.NewRegistry()
	agents.Register(fanoutAgent{})
	agents.Register(&passthroughAgent{name: "left"})
	agents.Register(&passthroughAgent{name: "right"})

	exec := NewFlowExecutor(f, agents, tool.NewRegistry())
	fc := state.NewFlowContext(state.NewMemoryStore())

	result, err := exec.Start(context.Background(), fc, models.UserMessage("x"))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if result.LastNode != "end" {
		t.Fatalf("LastNode = %q, want end", result.LastNode)
	}
	if !strings.Contains(result.LastMessage.Content, "join_node") {
		t.Fatalf("expected aggregated join payload, got %q", result.LastMessage.Content)
	}
}

// Loop nodes re-enter Entry while Condition holds and exit to Exit once
// it stops.
func TestExecutor_LoopBoundedIterations(t *testing.T) {
	f := flow.NewBuilder("f").
		AddNode("body", flow.AgentKind{AgentName: "body"}).
		AddNode("loop", flow.LoopKind{
			Entry:     "body",
			Condition: flow.StateNotEquals("done", "yes"),
			Exit:      "end",
		}).
		AddNode("end", flow.TerminalKind{}).
		Connect("body", "loop").
		SetStart("body").
		Build()

	count := 0
	agents := agent.NewRegistry()
	agents.Register(agent.Agent(&countingAgent{threshold: 3, counter: &count}))

	exec := NewFlowExecutor(f, agents, tool.NewRegistry())
	fc := state.NewFlowContext(state.NewMemoryStore())

	result, err := exec.Start(context.Background(), fc, models.UserMessage("go"))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if result.LastNode != "end" {
		t.Fatalf("LastNode = %q, want end", result.LastNode)
	}
	if count != 3 {
		t.Fatalf("body ran %d times, want 3", count)
	}
}

type countingAgent struct {
	agent.NoopLifecycle
	threshold int
	counter   *int
}

func (countingAgent) Name() string { return "body" }

func (a *countingAgent) OnMessage(ctx context.Context, msg models.Message, actx *agent.Context) (agent.Action, error) {
	*a.counter++
	if *a.counter >= a.threshold {
		actx.Flow.Store().Set(ctx, "done", "yes")
	}
	return agent.Continue{Message: msg, HasMessage: true}, nil
}

// MaxIterationsExceeded fires once a single trace's hop count exceeds the
// configured ceiling.
func TestExecutor_MaxIterationsExceeded(t *testing.T) {
	f := flow.NewBuilder("f").
		AddNode("self", flow.AgentKind{AgentName: "self"}).
		SetStart("self").
		Build()
	agents := agent.NewRegistry()
	agents.Register(&nextAgent{name: "self", target: "self"})

	exec := NewFlowExecutor(f, agents, tool.NewRegistry(), WithMaxIterations(3))
	fc := state.NewFlowContext(state.NewMemoryStore())

	_, err := exec.Start(context.Background(), fc, models.UserMessage("go"))
	if err == nil {
		t.Fatal("expected MaxIterationsExceeded error")
	}
}
