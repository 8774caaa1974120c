package state

import (
	"sync"
	"sync/atomic"

	"github.com/agentflow/agentflow/internal/flowerr"
)

// ScopeID identifies one frame on a ScopeStack.
type ScopeID uint64

var nextScopeID uint64

func newScopeID() ScopeID {
	return ScopeID(atomic.AddUint64(&nextScopeID, 1))
}

// ScopeKindTag distinguishes the four flavors of scope frame.
type ScopeKindTag string

const (
	ScopeKindGlobal ScopeKindTag = "global"
	ScopeKindNode   ScopeKindTag = "node"
	ScopeKindBranch ScopeKindTag = "branch"
	ScopeKindCustom ScopeKindTag = "custom"
)

// ScopeKind identifies the role of a scope frame: Global, Node(name),
// Branch(name), or Custom(name).
type ScopeKind struct {
	Tag  ScopeKindTag
	Name string
}

func ScopeGlobal() ScopeKind              { return ScopeKind{Tag: ScopeKindGlobal} }
func ScopeNode(name string) ScopeKind     { return ScopeKind{Tag: ScopeKindNode, Name: name} }
func ScopeBranch(name string) ScopeKind   { return ScopeKind{Tag: ScopeKindBranch, Name: name} }
func ScopeCustom(name string) ScopeKind   { return ScopeKind{Tag: ScopeKindCustom, Name: name} }

func (k ScopeKind) String() string {
	if k.Name == "" {
		return string(k.Tag)
	}
	return string(k.Tag) + "(" + k.Name + ")"
}

type scopeFrame struct {
	id        ScopeID
	kind      ScopeKind
	variables map[string]string
}

// ScopeStack is a LIFO stack of variable frames shared by one FlowContext.
// Frames are addressed by id rather than position so a guard can remove
// exactly the frame it created even if other frames were pushed after it.
type ScopeStack struct {
	mu     sync.RWMutex
	frames []*scopeFrame
}

// NewScopeStack returns an empty stack.
func NewScopeStack() *ScopeStack {
	return &ScopeStack{}
}

// Push creates a new frame of the given kind and returns a guard for it.
func (s *ScopeStack) Push(kind ScopeKind) *ScopeGuard {
	frame := &scopeFrame{id: newScopeID(), kind: kind, variables: make(map[string]string)}
	s.mu.Lock()
	s.frames = append(s.frames, frame)
	s.mu.Unlock()
	return &ScopeGuard{stack: s, id: frame.id, kind: kind}
}

// remove deletes the frame with the given id, if still present.
func (s *ScopeStack) remove(id ScopeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].id == id {
			s.frames = append(s.frames[:i], s.frames[i+1:]...)
			return
		}
	}
}

func (s *ScopeStack) withFrame(id ScopeID, apply func(*scopeFrame)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.frames {
		if f.id == id {
			apply(f)
			return true
		}
	}
	return false
}

func (s *ScopeStack) topID() (ScopeID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.frames) == 0 {
		return 0, false
	}
	return s.frames[len(s.frames)-1].id, true
}

func (s *ScopeStack) lookup(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.frames) - 1; i >= 0; i-- {
		if v, ok := s.frames[i].variables[key]; ok {
			return v, true
		}
	}
	return "", false
}

// ScopeGuard is a scoped acquisition of a stack frame. Close removes the
// frame; callers defer Close immediately after acquiring the guard so the
// frame is removed on every exit path, including error returns.
type ScopeGuard struct {
	stack  *ScopeStack
	id     ScopeID
	kind   ScopeKind
	closed bool
	mu     sync.Mutex
}

// Kind reports the scope's kind.
func (g *ScopeGuard) Kind() ScopeKind { return g.kind }

// Set writes key=value into this frame. Fails if the frame has been closed.
func (g *ScopeGuard) Set(key, value string) error {
	ok := g.stack.withFrame(g.id, func(f *scopeFrame) { f.variables[key] = value })
	if !ok {
		return flowerr.Context("scope " + g.kind.String() + " is no longer active")
	}
	return nil
}

// Get reads key from this frame only (not the whole stack).
func (g *ScopeGuard) Get(key string) (string, bool) {
	var value string
	var found bool
	g.stack.withFrame(g.id, func(f *scopeFrame) {
		value, found = f.variables[key]
	})
	return value, found
}

// Remove deletes key from this frame. Fails if the frame has been closed.
func (g *ScopeGuard) Remove(key string) error {
	ok := g.stack.withFrame(g.id, func(f *scopeFrame) { delete(f.variables, key) })
	if !ok {
		return flowerr.Context("scope " + g.kind.String() + " is no longer active")
	}
	return nil
}

// Close removes the frame from the stack. Safe to call more than once.
func (g *ScopeGuard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	g.stack.remove(g.id)
}

// Variables is the stack-wide variable accessor: Get walks top-down,
// Set/Remove target the topmost frame, and the *Global variants always
// target the frame pushed at FlowContext construction.
type Variables struct {
	stack    *ScopeStack
	globalID ScopeID
}

// Get walks the stack top-down and returns the first match.
func (v *Variables) Get(key string) (string, bool) {
	return v.stack.lookup(key)
}

// Set writes to the topmost frame. Fails with "no active scope" if the
// stack is empty (which cannot happen while the owning FlowContext is
// alive, since the global frame is never removed).
func (v *Variables) Set(key, value string) error {
	id, ok := v.stack.topID()
	if !ok {
		return flowerr.Context("no active scope")
	}
	if !v.stack.withFrame(id, func(f *scopeFrame) { f.variables[key] = value }) {
		return flowerr.Context("no active scope")
	}
	return nil
}

// SetGlobal writes to the global frame regardless of what is on top.
func (v *Variables) SetGlobal(key, value string) error {
	if !v.stack.withFrame(v.globalID, func(f *scopeFrame) { f.variables[key] = value }) {
		return flowerr.Context("global scope is not available")
	}
	return nil
}

// GetGlobal reads from the global frame regardless of what is on top.
func (v *Variables) GetGlobal(key string) (string, bool) {
	var value string
	var found bool
	v.stack.withFrame(v.globalID, func(f *scopeFrame) {
		value, found = f.variables[key]
	})
	return value, found
}

// RemoveGlobal deletes key from the global frame.
func (v *Variables) RemoveGlobal(key string) error {
	if !v.stack.withFrame(v.globalID, func(f *scopeFrame) { delete(f.variables, key) }) {
		return flowerr.Context("global scope is not available")
	}
	return nil
}
