package agent

import (
	"sync"

	"github.com/agentflow/agentflow/internal/flowerr"
)

// Registry binds agent names to instances.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Agent)}
}

// Register adds a under a.Name(), replacing any prior agent with that name.
func (r *Registry) Register(a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.Name()] = a
}

// Get returns the agent registered under name, if any.
func (r *Registry) Get(name string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	return a, ok
}

// Factory builds an Agent from an optional, already-decoded config value.
type Factory func(config map[string]any) (Agent, error)

// FactoryRegistry binds factory names to constructors, letting a
// configuration document request agents by name.
type FactoryRegistry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewFactoryRegistry returns an empty FactoryRegistry.
func NewFactoryRegistry() *FactoryRegistry {
	return &FactoryRegistry{factories: make(map[string]Factory)}
}

// RegisterFactory binds name to factory.
func (r *FactoryRegistry) RegisterFactory(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Build invokes the named factory.
func (r *FactoryRegistry) Build(factoryName string, config map[string]any) (Agent, error) {
	r.mu.RLock()
	factory, ok := r.factories[factoryName]
	r.mu.RUnlock()
	if !ok {
		return nil, flowerr.AgentNotRegistered(factoryName)
	}
	return factory(config)
}
