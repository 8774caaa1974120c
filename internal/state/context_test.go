package state

import (
	"context"
	"testing"

	"github.com/agentflow/agentflow/pkg/models"
)

func TestMemoryStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, ok, err := store.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := store.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := store.Get(ctx, "k")
	if err != nil || !ok || v != "v" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatal("expected key removed after Delete")
	}
}

func TestFlowContext_History(t *testing.T) {
	fc := NewFlowContext(NewMemoryStore())

	if _, ok := fc.LastMessage(); ok {
		t.Fatal("expected no last message on fresh context")
	}

	fc.PushMessage(models.UserMessage("hello"))
	fc.PushMessage(models.SystemMessage("ack"))

	hist := fc.History()
	if len(hist) != 2 {
		t.Fatalf("History length = %d, want 2", len(hist))
	}

	last, ok := fc.LastMessage()
	if !ok || last.Content != "ack" {
		t.Fatalf("LastMessage = %+v, %v", last, ok)
	}

	fc.ClearMessages()
	if len(fc.History()) != 0 {
		t.Fatal("expected empty history after ClearMessages")
	}
}

func TestFlowContext_Scope_GlobalSurvives(t *testing.T) {
	fc := NewFlowContext(NewMemoryStore())
	vars := fc.Variables()

	if err := vars.SetGlobal("k", "v"); err != nil {
		t.Fatalf("SetGlobal: %v", err)
	}

	guard := fc.Scope(ScopeNode("A"))
	if err := guard.Set("local", "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Get walks top-down: the node frame shadows nothing here, but global
	// must still be visible once the node frame is removed.
	got, ok := vars.Get("k")
	if !ok || got != "v" {
		t.Fatalf("Get(k) = %q, %v", got, ok)
	}

	guard.Close()

	if err := guard.Set("after-close", "x"); err == nil {
		t.Fatal("expected error writing to a closed scope")
	}

	// Global frame must remain usable after a child scope closes.
	got, ok = vars.GetGlobal("k")
	if !ok || got != "v" {
		t.Fatalf("GetGlobal(k) after child close = %q, %v", got, ok)
	}
}

func TestVariables_SetWritesTopmostFrame(t *testing.T) {
	fc := NewFlowContext(NewMemoryStore())
	vars := fc.Variables()

	guard := fc.Scope(ScopeBranch("b1"))
	defer guard.Close()

	if err := vars.Set("k", "branch-value"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// The write landed in the topmost (branch) frame, not global.
	if _, ok := vars.GetGlobal("k"); ok {
		t.Fatal("expected Set to avoid the global frame while a child scope is active")
	}
	if v, ok := vars.Get("k"); !ok || v != "branch-value" {
		t.Fatalf("Get(k) = %q, %v", v, ok)
	}
}
