// Package tool defines the Tool contract invoked by agents and the
// orchestrator, the ToolRegistry binding names to instances, and the
// manifest types used for soft input/output validation.
package tool

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentflow/agentflow/internal/flowerr"
	"github.com/agentflow/agentflow/internal/state"
	"github.com/agentflow/agentflow/pkg/models"
)

// Invocation is the request passed to a Tool.
type Invocation struct {
	Name     string
	Input    map[string]any
	Metadata map[string]any
}

// NewInvocation builds an Invocation with no metadata.
func NewInvocation(name string, input map[string]any) Invocation {
	return Invocation{Name: name, Input: input}
}

// Tool is the capability contract every concrete tool implements.
type Tool interface {
	Name() string
	Call(ctx context.Context, invocation Invocation, fc *state.FlowContext) (models.Message, error)
}

type entry struct {
	tool     Tool
	manifest *Manifest
}

// Registry binds tool names to instances, with an optional manifest per
// entry used for soft input/output validation by the orchestrator.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]entry)}
}

// Register adds t with no manifest.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = entry{tool: t}
}

// RegisterWithManifest adds t along with a manifest whose name must match
// t.Name().
func (r *Registry) RegisterWithManifest(t Tool, manifest Manifest) error {
	if manifest.Name != t.Name() {
		return flowerr.Other(fmt.Errorf("manifest name %q does not match tool name %q", manifest.Name, t.Name()))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = entry{tool: t, manifest: &manifest}
	return nil
}

// RegisterManifest attaches a manifest to an already-registered tool.
func (r *Registry) RegisterManifest(manifest Manifest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tools[manifest.Name]
	if !ok {
		return flowerr.ToolNotRegistered(manifest.Name)
	}
	e.manifest = &manifest
	r.tools[manifest.Name] = e
	return nil
}

// Get returns the tool registered under name, if any.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return e.tool, true
}

// Manifest returns the manifest registered for name, if any.
func (r *Registry) Manifest(name string) (Manifest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	if !ok || e.manifest == nil {
		return Manifest{}, false
	}
	return *e.manifest, true
}

// Factory builds a Tool from an optional, already-decoded config value.
type Factory func(config map[string]any) (Tool, error)

// FactoryRegistry binds factory names to constructors, letting a
// configuration document request tools by name rather than requiring
// callers to wire concrete types.
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
func (r *FactoryRegistry) Build(factoryName string, config map[string]any) (Tool, error) {
	r.mu.RLock()
	factory, ok := r.factories[factoryName]
	r.mu.RUnlock()
	if !ok {
		return nil, flowerr.ToolNotRegistered(factoryName)
	}
	return factory(config)
}
