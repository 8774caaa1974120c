package tool

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Manifest describes a tool's ports and capabilities for soft validation
// and discovery. It is never required; a Tool works without one.
type Manifest struct {
	Name         string
	Description  string
	Inputs       []Port
	Outputs      []Port
	Capabilities []string
	Permissions  []string
	Resources    []string
}

// Port describes one named input or output slot of a Manifest.
type Port struct {
	Name        string
	Schema      *PortSchema
	Description string
	Example     any
}

// PortSchema optionally constrains a Port's shape. JSONSchema, when set,
// is validated with a JSON Schema engine; TypeName/Format are documentation
// hints only.
type PortSchema struct {
	TypeName   string
	Format     string
	JSONSchema map[string]any
}

// ManifestBuilder assembles a Manifest fluently.
type ManifestBuilder struct {
	manifest Manifest
}

// NewManifestBuilder starts a builder for a manifest named name.
func NewManifestBuilder(name string) *ManifestBuilder {
	return &ManifestBuilder{manifest: Manifest{Name: name}}
}

func (b *ManifestBuilder) Description(d string) *ManifestBuilder {
	b.manifest.Description = d
	return b
}

func (b *ManifestBuilder) Input(p Port) *ManifestBuilder {
	b.manifest.Inputs = append(b.manifest.Inputs, p)
	return b
}

func (b *ManifestBuilder) Output(p Port) *ManifestBuilder {
	b.manifest.Outputs = append(b.manifest.Outputs, p)
	return b
}

func (b *ManifestBuilder) Capability(c string) *ManifestBuilder {
	b.manifest.Capabilities = append(b.manifest.Capabilities, c)
	return b
}

func (b *ManifestBuilder) Permission(p string) *ManifestBuilder {
	b.manifest.Permissions = append(b.manifest.Permissions, p)
	return b
}

func (b *ManifestBuilder) Resource(r string) *ManifestBuilder {
	b.manifest.Resources = append(b.manifest.Resources, r)
	return b
}

func (b *ManifestBuilder) Build() Manifest {
	return b.manifest
}

var schemaCache sync.Map

// compilePortSchema compiles and caches a Port's JSON Schema, keyed by its
// encoded form so identical schemas across tools compile once.
func compilePortSchema(name string, raw map[string]any) (*jsonschema.Schema, error) {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode schema for port %q: %w", name, err)
	}
	key := string(encoded)
	if cached, ok := schemaCache.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}
	compiled, err := jsonschema.CompileString(name+".schema.json", key)
	if err != nil {
		return nil, fmt.Errorf("compile schema for port %q: %w", name, err)
	}
	schemaCache.Store(key, compiled)
	return compiled, nil
}

// ValidateAgainst soft-validates value against p's JSONSchema, if set. A
// nil return means either there was no schema or value matched it.
func (p Port) ValidateAgainst(value any) error {
	if p.Schema == nil || len(p.Schema.JSONSchema) == 0 {
		return nil
	}
	schema, err := compilePortSchema(p.Name, p.Schema.JSONSchema)
	if err != nil {
		return err
	}
	return schema.Validate(value)
}
