package dsl

import (
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/node"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	n domain.TreeNodeDefinition
}

// Node creates a node of an arbitrary registered type. Prefer the
// typed constructors for the builtin palette.
func Node(id, nodeType string, children ...*NodeBuilder) *NodeBuilder {
	nb := &NodeBuilder{n: domain.TreeNodeDefinition{ID: id, Type: nodeType}}
	return nb.Children(children...)
}

// Sequence creates a sequence composite.
func Sequence(id string, children ...*NodeBuilder) *NodeBuilder {
	return Node(id, node.TypeSequence, children...)
}

// Selector creates a selector composite.
func Selector(id string, children ...*NodeBuilder) *NodeBuilder {
	return Node(id, node.TypeSelector, children...)
}

// Parallel creates a parallel composite. Set the policy with
// Param("policy", ...).
func Parallel(id string, children ...*NodeBuilder) *NodeBuilder {
	return Node(id, node.TypeParallel, children...)
}

// Decorator creates a single-child decorator of the given type.
func Decorator(id, nodeType string, child *NodeBuilder) *NodeBuilder {
	return Node(id, nodeType, child)
}

// Inverter wraps a child in an inverter decorator.
func Inverter(id string, child *NodeBuilder) *NodeBuilder {
	return Node(id, node.TypeInverter, child)
}

// Retry wraps a child in a retry decorator.
func Retry(id string, attempts int, child *NodeBuilder) *NodeBuilder {
	return Node(id, node.TypeRetry, child).Param("num_attempts", attempts)
}

// Leaf creates a childless behavior node.
func Leaf(id, nodeType string) *NodeBuilder {
	return Node(id, nodeType)
}

// Subtree creates a reference to another stored tree. Version ""
// resolves to the latest stored version at compile time.
func Subtree(id, treeID, version string) *NodeBuilder {
	return &NodeBuilder{n: domain.TreeNodeDefinition{
		ID:      id,
		Subtree: &domain.SubtreeRef{TreeID: treeID, Version: version},
	}}
}

// Named sets the display name.
func (nb *NodeBuilder) Named(name string) *NodeBuilder {
	nb.n.Name = name
	return nb
}

// Param sets one parameter value.
func (nb *NodeBuilder) Param(key string, value any) *NodeBuilder {
	if nb.n.Params == nil {
		nb.n.Params = make(map[string]any)
	}
	nb.n.Params[key] = value
	return nb
}

// Memory marks a sequence or selector as memoried: it resumes from the
// running child instead of re-ticking from the start.
func (nb *NodeBuilder) Memory() *NodeBuilder {
	return nb.Param("memory", true)
}

// Children appends child nodes.
func (nb *NodeBuilder) Children(children ...*NodeBuilder) *NodeBuilder {
	for _, c := range children {
		nb.n.Children = append(nb.n.Children, c.def())
	}
	return nb
}

func (nb *NodeBuilder) def() domain.TreeNodeDefinition {
	return nb.n.Clone()
}
