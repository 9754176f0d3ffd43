// Package compiler turns declarative tree documents into runtime node
// graphs and back. Translation expands subtree references, validates the
// whole document against the registry, and builds nodes bottom-up;
// extraction recovers a document from a live tree.
package compiler

import (
	"context"
	"fmt"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/node"
	"github.com/aretw0/canopy/pkg/ports"
	"github.com/aretw0/canopy/pkg/registry"
)

// MaxSubtreeDepth bounds nested subtree expansion.
const MaxSubtreeDepth = 16

// Compiler binds a node registry and an optional tree store for
// resolving subtree references. A nil store makes any reference fail
// with a ReferenceError.
type Compiler struct {
	reg   *registry.Registry
	store ports.TreeStore
}

// New creates a compiler.
func New(reg *registry.Registry, store ports.TreeStore) *Compiler {
	return &Compiler{reg: reg, store: store}
}

// Result is a translated tree: the root plus an id index over every
// node, expanded subtrees included.
type Result struct {
	Root  node.Node
	Index map[string]node.Node
}

// Translate compiles a document into a runtime tree.
//
// It proceeds in three passes: expand subtree references (bounded depth,
// cycle detection), validate every node and collect all violations into
// one SchemaError, then construct nodes bottom-up through the registry.
func (c *Compiler) Translate(ctx context.Context, def *domain.TreeDefinition) (*Result, error) {
	expanded, err := c.expand(ctx, def.Root.Clone(), "", []string{refKey(def.ID, def.Metadata.Version)}, 0)
	if err != nil {
		return nil, err
	}

	if violations := c.validate(&expanded); len(violations) > 0 {
		return nil, &domain.SchemaError{Violations: violations}
	}

	res := &Result{Index: make(map[string]node.Node)}
	root, err := c.build(expanded)
	if err != nil {
		return nil, err
	}
	res.Root = root
	node.Walk(root, func(n node.Node) {
		res.Index[n.ID()] = n
	})
	return res, nil
}

func refKey(id, version string) string { return id + "@" + version }

// expand inlines subtree references. Inner node ids are prefixed with
// the referencing node's id ("<ref-id>/<inner-id>") so they stay unique
// in the flattened document; the inlined root takes over the
// referencing node's own id.
func (c *Compiler) expand(ctx context.Context, n domain.TreeNodeDefinition, prefix string, path []string, depth int) (domain.TreeNodeDefinition, error) {
	if prefix != "" {
		n.ID = prefix + n.ID
	}

	if n.Subtree != nil {
		ref := *n.Subtree
		if depth >= MaxSubtreeDepth {
			return n, &domain.ReferenceError{TreeID: ref.TreeID, Version: ref.Version,
				Reason: fmt.Sprintf("expansion exceeds depth limit %d", MaxSubtreeDepth)}
		}
		if c.store == nil {
			return n, &domain.ReferenceError{TreeID: ref.TreeID, Version: ref.Version,
				Reason: "no tree store configured"}
		}
		sub, err := c.store.Load(ctx, ref.TreeID, ref.Version)
		if err != nil {
			return n, &domain.ReferenceError{TreeID: ref.TreeID, Version: ref.Version,
				Reason: err.Error()}
		}
		// Cycle check on the resolved version, so a tree may reference
		// an older version of itself.
		key := refKey(sub.ID, sub.Metadata.Version)
		for _, seen := range path {
			if seen == key {
				return n, &domain.ReferenceError{TreeID: ref.TreeID, Version: sub.Metadata.Version,
					Reason: "reference cycle"}
			}
		}

		inner := sub.Root.Clone()
		refID := n.ID
		expanded, err := c.expand(ctx, inner, refID+"/", append(path, key), depth+1)
		if err != nil {
			return n, err
		}
		expanded.ID = refID
		if n.Name != "" {
			expanded.Name = n.Name
		}
		return expanded, nil
	}

	for i := range n.Children {
		child, err := c.expand(ctx, n.Children[i], prefix, path, depth)
		if err != nil {
			return n, err
		}
		n.Children[i] = child
	}
	return n, nil
}

// validate walks the expanded document and collects every violation.
func (c *Compiler) validate(root *domain.TreeNodeDefinition) []string {
	var violations []string
	seen := make(map[string]bool)

	domain.WalkDefinitions(root, func(d *domain.TreeNodeDefinition) {
		if d.ID == "" {
			violations = append(violations, fmt.Sprintf("node of type %q has no id", d.Type))
			return
		}
		if seen[d.ID] {
			violations = append(violations, fmt.Sprintf("duplicate node id %q", d.ID))
			return
		}
		seen[d.ID] = true

		for _, v := range c.reg.Validate(d.Type, d.Params, len(d.Children)) {
			violations = append(violations, fmt.Sprintf("node %s: %s", d.ID, v))
		}
	})
	return violations
}

// build constructs the runtime tree bottom-up.
func (c *Compiler) build(d domain.TreeNodeDefinition) (node.Node, error) {
	children := make([]node.Node, 0, len(d.Children))
	for _, cd := range d.Children {
		child, err := c.build(cd)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return c.reg.Build(d.Type, registry.Spec{
		ID:       d.ID,
		Name:     d.Name,
		Params:   d.Params,
		Children: children,
	})
}
