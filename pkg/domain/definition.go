package domain

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// SubtreeRef points a node definition at another stored tree instead of
// embedding children directly. Version "" means "latest stored".
type SubtreeRef struct {
	TreeID  string `json:"tree_id" yaml:"tree_id"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

// TreeNodeDefinition is one node of a declarative tree document.
type TreeNodeDefinition struct {
	// ID must be unique within a document.
	ID   string `json:"id" yaml:"id"`
	Type string `json:"type" yaml:"type"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Params holds the node-type specific configuration. Values are the
	// plain types produced by YAML/JSON decoding.
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`

	Children []TreeNodeDefinition `json:"children,omitempty" yaml:"children,omitempty"`

	// UI is opaque editor metadata. The engine passes it through untouched.
	UI map[string]any `json:"ui,omitempty" yaml:"ui,omitempty"`

	// Subtree, when set, replaces this node with the referenced tree at
	// translation time. A node carries either Children or a Subtree, not both.
	Subtree *SubtreeRef `json:"subtree,omitempty" yaml:"subtree,omitempty"`
}

// TreeMetadata describes a stored tree document.
type TreeMetadata struct {
	Name          string    `json:"name" yaml:"name"`
	Version       string    `json:"version" yaml:"version"`
	Description   string    `json:"description,omitempty" yaml:"description,omitempty"`
	Tags          []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	Author        string    `json:"author,omitempty" yaml:"author,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	SchemaVersion string    `json:"schema_version,omitempty" yaml:"schema_version,omitempty"`
}

// TreeDefinition is a complete declarative document. Documents are
// immutable once saved under a version; edits create a new version.
type TreeDefinition struct {
	ID       string             `json:"id" yaml:"id"`
	Metadata TreeMetadata       `json:"metadata" yaml:"metadata"`
	Root     TreeNodeDefinition `json:"root" yaml:"root"`

	// BlackboardSchema optionally maps blackboard keys to type names
	// ("int", "float", "string", "bool"). Informational only.
	BlackboardSchema map[string]string `json:"blackboard_schema,omitempty" yaml:"blackboard_schema,omitempty"`
}

// DecodeTree parses a YAML (or JSON, being a YAML subset) document.
func DecodeTree(data []byte) (*TreeDefinition, error) {
	var def TreeDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to decode tree document: %w", err)
	}
	if def.ID == "" {
		return nil, fmt.Errorf("tree document missing id")
	}
	return &def, nil
}

// EncodeTree renders a document as YAML.
func EncodeTree(def *TreeDefinition) ([]byte, error) {
	data, err := yaml.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tree document: %w", err)
	}
	return data, nil
}

// Clone returns an independent deep copy of the document. Parameter
// values are copied structurally (maps and slices), so callers can
// mutate the copy without leaking changes into a store.
func (d *TreeDefinition) Clone() *TreeDefinition {
	if d == nil {
		return nil
	}
	out := *d
	out.Root = d.Root.Clone()
	if d.Metadata.Tags != nil {
		out.Metadata.Tags = append([]string(nil), d.Metadata.Tags...)
	}
	if d.BlackboardSchema != nil {
		out.BlackboardSchema = make(map[string]string, len(d.BlackboardSchema))
		for k, v := range d.BlackboardSchema {
			out.BlackboardSchema[k] = v
		}
	}
	return &out
}

// Clone returns an independent deep copy of the node definition.
func (n TreeNodeDefinition) Clone() TreeNodeDefinition {
	out := n
	out.Params = copyValueMap(n.Params)
	out.UI = copyValueMap(n.UI)
	if n.Subtree != nil {
		ref := *n.Subtree
		out.Subtree = &ref
	}
	if n.Children != nil {
		out.Children = make([]TreeNodeDefinition, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

func copyValueMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

// copyValue deep-copies the container shapes produced by YAML/JSON
// decoding. Scalars and unknown types pass through by value.
func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyValueMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

// WalkDefinitions visits the definition and all descendants depth-first,
// parents before children.
func WalkDefinitions(def *TreeNodeDefinition, fn func(*TreeNodeDefinition)) {
	fn(def)
	for i := range def.Children {
		WalkDefinitions(&def.Children[i], fn)
	}
}
