package dsl

import (
	"fmt"

	"github.com/aretw0/canopy/pkg/domain"
)

// TreeBuilder assembles a complete tree document.
type TreeBuilder struct {
	id   string
	meta domain.TreeMetadata
	root *NodeBuilder
}

// Tree starts a new document with the given tree id.
func Tree(id string) *TreeBuilder {
	return &TreeBuilder{id: id}
}

// Name sets the human readable tree name.
func (t *TreeBuilder) Name(name string) *TreeBuilder {
	t.meta.Name = name
	return t
}

// Description sets the tree description.
func (t *TreeBuilder) Description(desc string) *TreeBuilder {
	t.meta.Description = desc
	return t
}

// Tags appends document tags, used by store filters.
func (t *TreeBuilder) Tags(tags ...string) *TreeBuilder {
	t.meta.Tags = append(t.meta.Tags, tags...)
	return t
}

// Version pins the document version. Leave unset to let the store
// assign the next one on save.
func (t *TreeBuilder) Version(version string) *TreeBuilder {
	t.meta.Version = version
	return t
}

// Root sets the root node.
func (t *TreeBuilder) Root(root *NodeBuilder) *TreeBuilder {
	t.root = root
	return t
}

// Build compiles the document. It checks the structural basics (tree
// id, root presence, node ids present and unique); type and parameter
// validation happens when the document is compiled against a registry.
func (t *TreeBuilder) Build() (*domain.TreeDefinition, error) {
	if t.id == "" {
		return nil, fmt.Errorf("tree id is required")
	}
	if t.root == nil {
		return nil, fmt.Errorf("tree %q has no root node", t.id)
	}
	root := t.root.def()

	seen := make(map[string]bool)
	var dup error
	domain.WalkDefinitions(&root, func(d *domain.TreeNodeDefinition) {
		if dup != nil {
			return
		}
		if d.ID == "" {
			dup = fmt.Errorf("node of type %q has no id", d.Type)
			return
		}
		if seen[d.ID] {
			dup = fmt.Errorf("duplicate node id %q", d.ID)
			return
		}
		seen[d.ID] = true
	})
	if dup != nil {
		return nil, dup
	}

	return &domain.TreeDefinition{
		ID:       t.id,
		Metadata: t.meta,
		Root:     root,
	}, nil
}
