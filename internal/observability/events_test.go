package observability

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/agentflow/agentflow/pkg/models"
)

func TestAgentIDContextKey(t *testing.T) {
	ctx := context.Background()
	ctx = AddAgentID(ctx, "agent-abc")
	if got := GetAgentID(ctx); got != "agent-abc" {
		t.Errorf("expected 'agent-abc', got %s", got)
	}

	emptyCtx := context.Background()
	if got := GetAgentID(emptyCtx); got != "" {
		t.Errorf("expected empty string, got %s", got)
	}
}

func TestMemoryEventStore(t *testing.T) {
	store := NewMemoryEventStore(100)

	t.Run("record and list by trace", func(t *testing.T) {
		err := store.Record(*models.NewRuntimeEvent(models.EventNodeAdmitted, "greeter", "trace-1"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		err = store.Record(*models.NewRuntimeEvent(models.EventNodeFinished, "greeter", "trace-1"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		entries, err := store.ByTrace("trace-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		if entries[0].Seq >= entries[1].Seq {
			t.Error("expected entries ordered by sequence")
		}
	})

	t.Run("by type respects limit", func(t *testing.T) {
		for i := 0; i < 4; i++ {
			store.Record(*models.NewRuntimeEvent(models.EventLoopIteration, "loop", "trace-2"))
		}

		entries, err := store.ByType(models.EventLoopIteration, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 2 {
			t.Errorf("expected 2 entries (limited), got %d", len(entries))
		}
	})

	t.Run("prune removes old entries", func(t *testing.T) {
		pruneStore := NewMemoryEventStore(100)
		pruneStore.Record(*models.NewRuntimeEvent(models.EventNodeAdmitted, "old", "trace-old"))
		time.Sleep(5 * time.Millisecond)
		cutoff := 2 * time.Millisecond
		removed := pruneStore.Prune(cutoff)
		if removed != 1 {
			t.Errorf("expected 1 removed, got %d", removed)
		}
	})

	t.Run("eviction bounds size", func(t *testing.T) {
		smallStore := NewMemoryEventStore(10)
		for i := 0; i < 15; i++ {
			smallStore.Record(*models.NewRuntimeEvent(models.EventNodeAdmitted, "overflow", "trace-3"))
		}
		if len(smallStore.entries) > 10 {
			t.Errorf("expected max 10 entries, got %d", len(smallStore.entries))
		}
	})
}

func TestEventRecorderRecord(t *testing.T) {
	store := NewMemoryEventStore(100)
	var buf strings.Builder
	logger := NewLogger(LogConfig{Level: "debug", Format: "text", Output: &buf})
	recorder := NewEventRecorder(store, logger)

	ctx := context.Background()
	event := *models.NewRuntimeEvent(models.EventJoinTriggered, "merge", "trace-recorder").WithMeta("strategy", "all")

	if err := recorder.Record(ctx, event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := store.ByTrace("trace-recorder")
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected 1 stored entry, err=%v entries=%d", err, len(entries))
	}
	if !strings.Contains(buf.String(), "join_triggered") {
		t.Error("expected a debug line naming the event type")
	}
}

func TestEventRecorderSubscribe(t *testing.T) {
	recorder := NewEventRecorder(NewMemoryEventStore(100), nil)
	ch := recorder.Subscribe(4)

	event := *models.NewRuntimeEvent(models.EventToolInvoked, "lookup", "trace-sub")
	if err := recorder.Record(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case received := <-ch:
		if received.Node != "lookup" {
			t.Errorf("expected node 'lookup', got %s", received.Node)
		}
	case <-time.After(time.Second):
		t.Fatal("expected subscriber to receive the published event")
	}

	recorder.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after Unsubscribe")
	}
}

func TestEventRecorderSubscribeNonBlocking(t *testing.T) {
	recorder := NewEventRecorder(NewMemoryEventStore(100), nil)
	// Unbuffered from the subscriber's perspective: nothing ever drains it.
	_ = recorder.Subscribe(1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			recorder.Record(context.Background(), *models.NewRuntimeEvent(models.EventNodeAdmitted, "n", "trace-full"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full subscriber channel")
	}
}

func TestTimeline(t *testing.T) {
	t.Run("renders entries in order", func(t *testing.T) {
		now := time.Now()
		entries := []TimelineEntry{
			{Seq: 1, Recorded: now, Event: *models.NewRuntimeEvent(models.EventNodeAdmitted, "greeter", "trace-tl")},
			{Seq: 2, Recorded: now.Add(time.Millisecond), Event: *models.NewRuntimeEvent(models.EventNodeFinished, "greeter", "trace-tl").WithMessage("done")},
		}

		output := Timeline(entries)
		if !strings.Contains(output, "trace-tl") {
			t.Error("expected output to contain trace id")
		}
		if !strings.Contains(output, "greeter") {
			t.Error("expected output to contain node name")
		}
		if !strings.Contains(output, "done") {
			t.Error("expected output to contain the message")
		}
	})

	t.Run("empty timeline", func(t *testing.T) {
		if got := Timeline(nil); got != "no events recorded" {
			t.Errorf("expected placeholder text, got %q", got)
		}
	})
}
