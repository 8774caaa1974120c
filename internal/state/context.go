// Package state provides the per-execution facade (FlowContext) that every
// flow node shares: a key/value store, an append-only message history, and
// a stack of named variable scopes.
package state

import (
	"context"
	"sync"

	"github.com/agentflow/agentflow/internal/flowerr"
	"github.com/agentflow/agentflow/pkg/models"
)

// ContextStore is the abstract key/value capability the engine depends on.
// Implementations may perform I/O; every method is awaited by callers.
type ContextStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore is the one concrete ContextStore the engine ships: a
// mutex-guarded in-memory map. Production deployments supply their own
// ContextStore; the engine treats it as an opaque capability.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// FlowContext bundles everything a node handler needs about one execution:
// the backing store, the ordered message history, and the variable scope
// stack. It is constructed once per execution and released when the
// executor returns.
type FlowContext struct {
	store   ContextStore
	mu      sync.RWMutex
	history []models.Message

	scopes        *ScopeStack
	globalScopeID ScopeID
}

// NewFlowContext wires a FlowContext around the given store and immediately
// pushes the global scope frame, per the invariant that it exists for the
// lifetime of the FlowContext.
func NewFlowContext(store ContextStore) *FlowContext {
	stack := NewScopeStack()
	global := stack.Push(ScopeGlobal())
	return &FlowContext{
		store:         store,
		scopes:        stack,
		globalScopeID: global.id,
	}
}

// Store returns the backing key/value capability.
func (fc *FlowContext) Store() ContextStore { return fc.store }

// PushMessage appends m to the ordered history.
func (fc *FlowContext) PushMessage(m models.Message) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.history = append(fc.history, m)
}

// History returns a point-in-time copy of the message history.
func (fc *FlowContext) History() []models.Message {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	out := make([]models.Message, len(fc.history))
	copy(out, fc.history)
	return out
}

// LastMessage returns the most recently pushed message, if any.
func (fc *FlowContext) LastMessage() (models.Message, bool) {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	if len(fc.history) == 0 {
		return models.Message{}, false
	}
	return fc.history[len(fc.history)-1], true
}

// ClearMessages empties the history.
func (fc *FlowContext) ClearMessages() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.history = nil
}

// Scope acquires a new stack frame of the given kind. The returned guard
// must be closed (typically via defer) to remove the frame; the global
// frame pushed at construction is never removed by this method.
func (fc *FlowContext) Scope(kind ScopeKind) *ScopeGuard {
	return fc.scopes.Push(kind)
}

// Variables returns a handle for scoped variable lookups/writes.
func (fc *FlowContext) Variables() *Variables {
	return &Variables{stack: fc.scopes, globalID: fc.globalScopeID}
}

// GetString is a convenience wrapper returning flowerr.Context on failure,
// matching the error vocabulary the rest of the engine uses.
func GetString(ctx context.Context, store ContextStore, key string) (string, bool, error) {
	v, ok, err := store.Get(ctx, key)
	if err != nil {
		return "", false, flowerr.Context(err.Error())
	}
	return v, ok, nil
}
