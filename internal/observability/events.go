// Package observability provides logging, tracing, and event timeline
// capabilities. This file implements an in-memory timeline of
// models.RuntimeEvent values, used to inspect or replay one execution's
// admission/dispatch/join/loop history after the fact.
package observability

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentflow/agentflow/pkg/models"
)

// AgentIDKey is the context key for the agent currently handling a message.
const AgentIDKey ContextKey = "agent_id"

// AddAgentID adds an agent id to the context.
func AddAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, AgentIDKey, agentID)
}

// GetAgentID retrieves the agent id from the context.
func GetAgentID(ctx context.Context) string {
	if id, ok := ctx.Value(AgentIDKey).(string); ok {
		return id
	}
	return ""
}

// TimelineEntry pairs a models.RuntimeEvent with the sequence number and
// wall-clock time it was recorded at.
type TimelineEntry struct {
	Seq       int64
	Recorded  time.Time
	Event     models.RuntimeEvent
}

// EventStore records and retrieves the RuntimeEvents emitted during flow
// executions, indexed by trace id for later inspection or replay.
type EventStore interface {
	Record(event models.RuntimeEvent) error
	ByTrace(traceID string) ([]TimelineEntry, error)
	ByType(eventType models.RuntimeEventType, limit int) ([]TimelineEntry, error)
	Prune(olderThan time.Duration) int
}

// MemoryEventStore is an in-memory EventStore, bounded to maxSize entries
// with oldest-first eviction.
type MemoryEventStore struct {
	mu      sync.RWMutex
	entries []TimelineEntry
	byTrace map[string][]int
	maxSize int
}

// NewMemoryEventStore returns a store that retains at most maxSize events
// (10000 if maxSize <= 0).
func NewMemoryEventStore(maxSize int) *MemoryEventStore {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &MemoryEventStore{byTrace: make(map[string][]int), maxSize: maxSize}
}

var eventSeq int64

func (s *MemoryEventStore) Record(event models.RuntimeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.maxSize {
		s.evictOldestLocked()
	}

	entry := TimelineEntry{
		Seq:      atomic.AddInt64(&eventSeq, 1),
		Recorded: time.Now(),
		Event:    event,
	}
	idx := len(s.entries)
	s.entries = append(s.entries, entry)
	if event.TraceID != "" {
		s.byTrace[event.TraceID] = append(s.byTrace[event.TraceID], idx)
	}
	return nil
}

func (s *MemoryEventStore) ByTrace(traceID string) ([]TimelineEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	indexes := s.byTrace[traceID]
	out := make([]TimelineEntry, 0, len(indexes))
	for _, idx := range indexes {
		if idx < len(s.entries) {
			out = append(out, s.entries[idx])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (s *MemoryEventStore) ByType(eventType models.RuntimeEventType, limit int) ([]TimelineEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []TimelineEntry
	for _, e := range s.entries {
		if e.Event.Type == eventType {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq > out[j].Seq })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Prune removes entries recorded more than olderThan ago and returns how
// many were removed.
func (s *MemoryEventStore) Prune(olderThan time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	kept := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if e.Recorded.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	s.rebuildIndexLocked()
	return removed
}

func (s *MemoryEventStore) evictOldestLocked() {
	toRemove := s.maxSize / 10
	if toRemove < 1 {
		toRemove = 1
	}
	if toRemove > len(s.entries) {
		toRemove = len(s.entries)
	}
	s.entries = s.entries[toRemove:]
	s.rebuildIndexLocked()
}

func (s *MemoryEventStore) rebuildIndexLocked() {
	s.byTrace = make(map[string][]int, len(s.byTrace))
	for idx, e := range s.entries {
		if e.Event.TraceID != "" {
			s.byTrace[e.Event.TraceID] = append(s.byTrace[e.Event.TraceID], idx)
		}
	}
}

// EventRecorder wraps an EventStore with a Logger, so every recorded
// event is also emitted at debug level.
type EventRecorder struct {
	store  EventStore
	logger *Logger

	mu          sync.Mutex
	subscribers []chan models.RuntimeEvent
}

// NewEventRecorder pairs store with logger (logger may be nil).
func NewEventRecorder(store EventStore, logger *Logger) *EventRecorder {
	return &EventRecorder{store: store, logger: logger}
}

// Record stores event, emits a matching debug line if a logger is
// configured, and fans it out to every live subscriber channel.
func (r *EventRecorder) Record(ctx context.Context, event models.RuntimeEvent) error {
	if r.logger != nil {
		r.logger.Debug(ctx, "runtime event",
			"type", string(event.Type),
			"node", event.Node,
			"trace_id", event.TraceID,
			"iteration", event.Iteration,
		)
	}
	r.publish(event)
	return r.store.Record(event)
}

// Subscribe returns a channel of every event recorded from this point on,
// buffered to size. A subscriber that falls behind has events dropped
// rather than blocking the scheduler goroutine publishing them; callers
// that need a complete history should read it back from the EventStore
// instead. Call Unsubscribe with the returned channel once done.
func (r *EventRecorder) Subscribe(buffer int) <-chan models.RuntimeEvent {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan models.RuntimeEvent, buffer)
	r.mu.Lock()
	r.subscribers = append(r.subscribers, ch)
	r.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel previously returned by
// Subscribe. It is a no-op if ch is not a current subscriber.
func (r *EventRecorder) Unsubscribe(ch <-chan models.RuntimeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, sub := range r.subscribers {
		if sub == ch {
			r.subscribers = append(r.subscribers[:i], r.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// publish fans event out to every subscriber without blocking: a full
// channel is skipped for that event rather than stalling the caller.
func (r *EventRecorder) publish(event models.RuntimeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

// Timeline renders the events for one trace id as a sequence of lines
// suitable for a debug CLI command.
func Timeline(entries []TimelineEntry) string {
	if len(entries) == 0 {
		return "no events recorded"
	}
	out := fmt.Sprintf("=== timeline: trace %s (%d events) ===\n", entries[0].Event.TraceID, len(entries))
	for i, e := range entries {
		prefix := "├─"
		if i == len(entries)-1 {
			prefix = "└─"
		}
		out += fmt.Sprintf("%s [%s] %-20s node=%-16s iter=%d", prefix,
			e.Recorded.Format("15:04:05.000"), e.Event.Type, e.Event.Node, e.Event.Iteration)
		if e.Event.Message != "" {
			out += " " + e.Event.Message
		}
		out += "\n"
	}
	return out
}
