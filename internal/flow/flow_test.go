package flow

import (
	"context"
	"testing"

	"github.com/agentflow/agentflow/internal/state"
)

func TestBuilder_BuildLinearFlow(t *testing.T) {
	f := NewBuilder("linear").
		AddNode("A", AgentKind{AgentName: "echo"}).
		AddNode("terminal", TerminalKind{}).
		SetStart("A").
		Connect("A", "terminal").
		Build()

	if f.Start != "A" {
		t.Fatalf("Start = %q, want %q", f.Start, "A")
	}
	node, ok := f.Node("A")
	if !ok {
		t.Fatal("expected node A")
	}
	if _, ok := node.Kind.(AgentKind); !ok {
		t.Fatalf("Kind = %T, want AgentKind", node.Kind)
	}

	transitions := f.Transitions("A")
	if len(transitions) != 1 || transitions[0].To != "terminal" {
		t.Fatalf("Transitions(A) = %+v", transitions)
	}
}

func TestBuilder_Build_DefaultsStartToAnyNode(t *testing.T) {
	f := NewBuilder("no-explicit-start").
		AddNode("only", TerminalKind{}).
		Build()

	if f.Start != "only" {
		t.Fatalf("Start = %q, want %q", f.Start, "only")
	}
}

func TestConditions_StateEquals(t *testing.T) {
	ctx := context.Background()
	fc := state.NewFlowContext(state.NewMemoryStore())
	fc.Store().Set(ctx, "k", "yes")

	if !StateEquals("k", "yes")(ctx, fc) {
		t.Error("StateEquals should pass")
	}
	if StateEquals("k", "no")(ctx, fc) {
		t.Error("StateEquals should fail on mismatch")
	}
	if !StateNotEquals("k", "no")(ctx, fc) {
		t.Error("StateNotEquals should pass on mismatch")
	}
	if StateNotEquals("k", "yes")(ctx, fc) {
		t.Error("StateNotEquals should fail on match")
	}
	if !StateExists("k")(ctx, fc) {
		t.Error("StateExists should pass")
	}
	if !StateAbsent("missing")(ctx, fc) {
		t.Error("StateAbsent should pass for a missing key")
	}
	if !Always()(ctx, fc) {
		t.Error("Always should always pass")
	}
}

func TestRegistry_RegisterGet(t *testing.T) {
	r := NewRegistry()
	f := NewBuilder("f1").AddNode("t", TerminalKind{}).Build()
	r.Register(f)

	got, ok := r.Get("f1")
	if !ok || got.Name != "f1" {
		t.Fatalf("Get(f1) = %+v, %v", got, ok)
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatal("expected miss for unregistered flow")
	}
	if len(r.List()) != 1 {
		t.Fatalf("List length = %d, want 1", len(r.List()))
	}
}
