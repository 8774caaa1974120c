package runtime

import (
	"encoding/json"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/agentflow/agentflow/internal/flow"
	"github.com/agentflow/agentflow/pkg/models"
)

// SharedState is the scheduler state shared across every in-flight task of
// one execution: per-join and per-loop progress, and which agents have
// already received their on-start hook.
type SharedState struct {
	mu            sync.Mutex
	joinStates    map[string]*JoinState
	loopStates    map[string]*LoopState
	startedAgents map[string]bool
}

// NewSharedState returns an empty SharedState.
func NewSharedState() *SharedState {
	return &SharedState{
		joinStates:    make(map[string]*JoinState),
		loopStates:    make(map[string]*LoopState),
		startedAgents: make(map[string]bool),
	}
}

// JoinFor returns the JoinState for key, creating one from join if absent.
func (s *SharedState) JoinFor(key string, join flow.JoinKind) *JoinState {
	s.mu.Lock()
	defer s.mu.Unlock()
	js, ok := s.joinStates[key]
	if !ok {
		js = newJoinState(join)
		s.joinStates[key] = js
	}
	return js
}

// DropJoin removes a join's state once it has triggered.
func (s *SharedState) DropJoin(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.joinStates, key)
}

// LoopFor returns the LoopState for key, creating one if absent.
func (s *SharedState) LoopFor(key string) *LoopState {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.loopStates[key]
	if !ok {
		ls = &LoopState{}
		s.loopStates[key] = ls
	}
	return ls
}

// DropLoop removes a loop's state, e.g. once its condition stops passing.
func (s *SharedState) DropLoop(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.loopStates, key)
}

// MarkAgentStarted reports whether this call was the first to mark name
// started, so the caller knows whether to invoke OnStart.
func (s *SharedState) MarkAgentStarted(name string) (firstTime bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startedAgents[name] {
		return false
	}
	s.startedAgents[name] = true
	return true
}

// JoinState tracks which inbound sources a Join node has collected from.
type JoinState struct {
	mu        sync.Mutex
	strategy  flow.JoinStrategy
	expected  map[string]bool
	received  map[string]models.Message
	triggered bool
	span      trace.Span
}

// AttachSpan associates the join-wait span opened for this join's first
// arrival, so EndSpan can close it when the join triggers or is dropped.
func (j *JoinState) AttachSpan(span trace.Span) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.span = span
}

// SpanStarted reports whether a join-wait span has already been attached.
func (j *JoinState) SpanStarted() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.span != nil
}

// EndSpan closes the attached join-wait span, if any, and clears it.
func (j *JoinState) EndSpan() {
	j.mu.Lock()
	span := j.span
	j.span = nil
	j.mu.Unlock()
	if span != nil {
		span.End()
	}
}

func newJoinState(join flow.JoinKind) *JoinState {
	expected := make(map[string]bool, len(join.Inbound))
	for _, name := range join.Inbound {
		expected[name] = true
	}
	return &JoinState{
		strategy: join.Strategy,
		expected: expected,
		received: make(map[string]models.Message),
	}
}

// Expects reports whether source is one of the join's expected inbound
// names (or the join has no restricted list, in which case every source
// is accepted).
func (j *JoinState) Expects(source string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.expected) == 0 {
		return true
	}
	return j.expected[source]
}

// Record stores message under source and reports the collected messages
// once the join's strategy is satisfied. A join that has already
// triggered records nothing further.
func (j *JoinState) Record(source string, message models.Message) (map[string]models.Message, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.triggered {
		return nil, false
	}
	j.received[source] = message

	switch {
	case j.strategy.IsAll():
		required := len(j.received) > 0
		if len(j.expected) > 0 {
			required = true
			for name := range j.expected {
				if _, ok := j.received[name]; !ok {
					required = false
					break
				}
			}
		}
		if required {
			j.triggered = true
			return copyMessages(j.received), true
		}
	case j.strategy.IsAny():
		j.triggered = true
		return map[string]models.Message{source: message}, true
	case j.strategy.IsCount():
		if len(j.received) >= j.strategy.Count() {
			j.triggered = true
			return copyMessages(j.received), true
		}
	}
	return nil, false
}

func copyMessages(in map[string]models.Message) map[string]models.Message {
	out := make(map[string]models.Message, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// LoopState tracks how many times a Loop node has re-entered.
type LoopState struct {
	Iterations uint32
}

// MakeJoinMessage aggregates a join's collected messages into one system
// message whose content is a JSON payload naming the join node and every
// contributing source.
func MakeJoinMessage(nodeName string, messages map[string]models.Message) models.Message {
	type aggregatedEntry struct {
		Source   string         `json:"source"`
		ID       string         `json:"id"`
		Role     models.Role    `json:"role"`
		Content  string         `json:"content"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}
	aggregated := make([]aggregatedEntry, 0, len(messages))
	for source, msg := range messages {
		aggregated = append(aggregated, aggregatedEntry{
			Source:   source,
			ID:       msg.ID,
			Role:     msg.Role,
			Content:  msg.Content,
			Metadata: msg.Metadata,
		})
	}
	payload := map[string]any{
		"join_node": nodeName,
		"messages":  aggregated,
	}
	encoded, err := json.Marshal(payload)
	content := ""
	if err == nil {
		content = string(encoded)
	}
	msg := models.NewMessage(models.RoleSystem, nodeName, content)
	msg.Metadata = payload
	return msg
}
