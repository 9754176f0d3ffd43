// Package registry maps node type names to their schemas and runtime
// factories. The compiler consults it to validate definitions and to
// construct node instances; tooling consults it to enumerate the
// available palette.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/canopy/pkg/node"
)

// Spec carries everything a factory needs to construct a node. Params
// have already been validated against the type's schema, with defaults
// applied.
type Spec struct {
	ID       string
	Name     string
	Params   map[string]any
	Children []node.Node
}

// Factory builds a runtime node from a validated spec.
type Factory func(spec Spec) (node.Node, error)

type entry struct {
	schema  NodeTypeSchema
	factory Factory
}

// Registry manages the available node types.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a node type. Registering a name twice is an error; the
// palette is meant to be assembled once at startup.
func (r *Registry) Register(schema NodeTypeSchema, factory Factory) error {
	if schema.Name == "" {
		return fmt.Errorf("registry: schema has no name")
	}
	if factory == nil {
		return fmt.Errorf("registry: nil factory for %s", schema.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[schema.Name]; ok {
		return fmt.Errorf("registry: type %s already registered", schema.Name)
	}
	r.entries[schema.Name] = entry{schema: schema, factory: factory}
	return nil
}

// Schema looks up the schema for a type name.
func (r *Registry) Schema(name string) (NodeTypeSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.schema, ok
}

// Schemas returns all registered schemas sorted by name.
func (r *Registry) Schemas() []NodeTypeSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]NodeTypeSchema, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.schema)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Validate checks a definition against the type's schema without
// constructing anything. It returns human-readable violations, empty
// when the definition is acceptable. The compiler uses it to collect
// every problem in a document before building.
func (r *Registry) Validate(typeName string, params map[string]any, childCount int) []string {
	r.mu.RLock()
	e, ok := r.entries[typeName]
	r.mu.RUnlock()
	if !ok {
		return []string{fmt.Sprintf("unknown node type %q", typeName)}
	}

	var out []string
	if err := e.schema.Arity.check(childCount); err != nil {
		out = append(out, fmt.Sprintf("type %s %v", typeName, err))
	}
	if _, err := e.schema.normalizeParams(params); err != nil {
		out = append(out, fmt.Sprintf("type %s: %v", typeName, err))
	}
	return out
}

// Build validates the spec against the type's schema and invokes the
// factory. Params are normalized in place: defaults filled in, bounds
// checked.
func (r *Registry) Build(typeName string, spec Spec) (node.Node, error) {
	r.mu.RLock()
	e, ok := r.entries[typeName]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("registry: unknown node type %q", typeName)
	}

	if err := e.schema.Arity.check(len(spec.Children)); err != nil {
		return nil, fmt.Errorf("node %s (%s): %w", spec.ID, typeName, err)
	}
	params, err := e.schema.normalizeParams(spec.Params)
	if err != nil {
		return nil, fmt.Errorf("node %s (%s): %w", spec.ID, typeName, err)
	}
	spec.Params = params

	return e.factory(spec)
}
