package registry

import (
	"fmt"
	"strings"
)

// Category groups node types for palette presentation.
type Category string

const (
	CategoryComposite Category = "composite"
	CategoryDecorator Category = "decorator"
	CategoryBehavior  Category = "behavior"
)

// ArityRule constrains how many children a node type accepts.
type ArityRule string

const (
	ArityNone      ArityRule = "none"
	ArityOne       ArityRule = "one"
	ArityOneOrMore ArityRule = "one-or-more"
)

func (a ArityRule) check(n int) error {
	switch a {
	case ArityNone:
		if n != 0 {
			return fmt.Errorf("takes no children, got %d", n)
		}
	case ArityOne:
		if n != 1 {
			return fmt.Errorf("takes exactly one child, got %d", n)
		}
	case ArityOneOrMore:
		if n < 1 {
			return fmt.Errorf("requires at least one child")
		}
	default:
		return fmt.Errorf("unknown arity rule %q", a)
	}
	return nil
}

// ParamType names the accepted value kinds for a parameter.
type ParamType string

const (
	ParamString   ParamType = "string"
	ParamInt      ParamType = "int"
	ParamFloat    ParamType = "float"
	ParamBool     ParamType = "bool"
	ParamDuration ParamType = "duration"
	ParamStatus   ParamType = "status"
	ParamAny      ParamType = "any"
	ParamWeights  ParamType = "weights"
)

// ParamSpec describes a single configuration parameter.
type ParamSpec struct {
	Name     string    `json:"name" yaml:"name"`
	Type     ParamType `json:"type" yaml:"type"`
	Required bool      `json:"required" yaml:"required"`
	Default  any       `json:"default,omitempty" yaml:"default,omitempty"`
	Min      *float64  `json:"min,omitempty" yaml:"min,omitempty"`
	Max      *float64  `json:"max,omitempty" yaml:"max,omitempty"`
}

// NodeTypeSchema describes a registered node type: what it is called,
// how many children it takes and which parameters it accepts.
type NodeTypeSchema struct {
	Name        string      `json:"name" yaml:"name"`
	Category    Category    `json:"category" yaml:"category"`
	Arity       ArityRule   `json:"arity" yaml:"arity"`
	Params      []ParamSpec `json:"params,omitempty" yaml:"params,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
}

// normalizeParams validates raw params against the schema. Unknown keys
// are rejected, required keys enforced, defaults applied, and numeric
// bounds checked. The returned map is a fresh copy.
func (s NodeTypeSchema) normalizeParams(raw map[string]any) (map[string]any, error) {
	known := make(map[string]ParamSpec, len(s.Params))
	for _, p := range s.Params {
		known[p.Name] = p
	}
	for k := range raw {
		if _, ok := known[k]; !ok {
			return nil, fmt.Errorf("unknown parameter %q", k)
		}
	}

	out := make(map[string]any, len(s.Params))
	var missing []string
	for _, p := range s.Params {
		v, ok := raw[p.Name]
		if !ok {
			if p.Required {
				missing = append(missing, p.Name)
				continue
			}
			if p.Default != nil {
				out[p.Name] = p.Default
			}
			continue
		}
		if err := p.checkBounds(v); err != nil {
			return nil, err
		}
		out[p.Name] = v
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required parameter(s) %s", strings.Join(missing, ", "))
	}
	return out, nil
}

func (p ParamSpec) checkBounds(v any) error {
	if p.Min == nil && p.Max == nil {
		return nil
	}
	f, ok := asFloat(v)
	if !ok {
		return nil
	}
	if p.Min != nil && f < *p.Min {
		return fmt.Errorf("parameter %s: %v is below minimum %v", p.Name, v, *p.Min)
	}
	if p.Max != nil && f > *p.Max {
		return fmt.Errorf("parameter %s: %v is above maximum %v", p.Name, v, *p.Max)
	}
	return nil
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint64:
		return float64(t), true
	}
	return 0, false
}

func minOf(v float64) *float64 { return &v }
