package models

import (
	"encoding/json"
	"testing"
)

func TestRuntimeEventType_Constants(t *testing.T) {
	tests := []struct {
		constant RuntimeEventType
		expected string
	}{
		{EventNodeAdmitted, "node_admitted"},
		{EventNodeStarted, "node_started"},
		{EventNodeFinished, "node_finished"},
		{EventNodeFailed, "node_failed"},
		{EventJoinArrival, "join_arrival"},
		{EventJoinTriggered, "join_triggered"},
		{EventLoopIteration, "loop_iteration"},
		{EventToolInvoked, "tool_invoked"},
		{EventExecutionFinished, "execution_finished"},
	}

	for _, tt := range tests {
		t.Run(string(tt.constant), func(t *testing.T) {
			if string(tt.constant) != tt.expected {
				t.Errorf("constant = %q, want %q", tt.constant, tt.expected)
			}
		})
	}
}

func TestRuntimeEvent_Struct(t *testing.T) {
	event := RuntimeEvent{
		Type:      EventNodeStarted,
		Message:   "executing node B",
		Node:      "B",
		TraceID:   "trace-1",
		Iteration: 2,
		Meta:      map[string]any{"source": "A"},
	}

	if event.Type != EventNodeStarted {
		t.Errorf("Type = %v, want %v", event.Type, EventNodeStarted)
	}
	if event.Node != "B" {
		t.Errorf("Node = %q, want %q", event.Node, "B")
	}
	if event.Iteration != 2 {
		t.Errorf("Iteration = %d, want 2", event.Iteration)
	}
}

func TestRuntimeEvent_JSONRoundTrip(t *testing.T) {
	original := RuntimeEvent{
		Type:      EventJoinTriggered,
		Message:   "join satisfied",
		Node:      "join1",
		TraceID:   "trace-2",
		Iteration: 1,
		Meta:      map[string]any{"received": float64(2)},
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var decoded RuntimeEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if decoded.Type != original.Type {
		t.Errorf("Type = %v, want %v", decoded.Type, original.Type)
	}
	if decoded.Node != original.Node {
		t.Errorf("Node = %q, want %q", decoded.Node, original.Node)
	}
	if decoded.Meta["received"] != float64(2) {
		t.Errorf("Meta[received] = %v, want 2", decoded.Meta["received"])
	}
}

func TestNewRuntimeEvent(t *testing.T) {
	event := NewRuntimeEvent(EventNodeAdmitted, "A", "trace-1")

	if event == nil {
		t.Fatal("event is nil")
	}
	if event.Type != EventNodeAdmitted {
		t.Errorf("Type = %v, want %v", event.Type, EventNodeAdmitted)
	}
	if event.Node != "A" {
		t.Errorf("Node = %q, want %q", event.Node, "A")
	}
	if event.TraceID != "trace-1" {
		t.Errorf("TraceID = %q, want %q", event.TraceID, "trace-1")
	}
}

func TestRuntimeEvent_Chaining(t *testing.T) {
	event := NewRuntimeEvent(EventNodeStarted, "A", "trace-1").
		WithMessage("starting").
		WithIteration(3).
		WithMeta("key", "value")

	if result := event; result.Message != "starting" {
		t.Errorf("Message = %q, want %q", event.Message, "starting")
	}
	if event.Iteration != 3 {
		t.Errorf("Iteration = %d, want 3", event.Iteration)
	}
	if event.Meta["key"] != "value" {
		t.Errorf("Meta[key] = %v, want %q", event.Meta["key"], "value")
	}
}
