package compiler

import (
	"fmt"
	"reflect"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/node"
)

// Extract recovers a declarative definition from a live runtime tree.
// Parameters come from the node's own Params() when it implements
// ParamReporter, otherwise from struct fields carrying a `param` tag.
// Schema parameters that cannot be recovered either way are reported as
// warnings, never errors, so a partially extractable tree still yields
// a document.
func (c *Compiler) Extract(root node.Node) (domain.TreeNodeDefinition, []domain.ExtractionWarning) {
	var warnings []domain.ExtractionWarning
	def := c.extractNode(root, &warnings)
	return def, warnings
}

func (c *Compiler) extractNode(n node.Node, warnings *[]domain.ExtractionWarning) domain.TreeNodeDefinition {
	def := domain.TreeNodeDefinition{
		ID:   n.ID(),
		Type: n.Type(),
		Name: n.Name(),
	}

	params := reportedParams(n)
	if schema, ok := c.reg.Schema(n.Type()); ok {
		for _, p := range schema.Params {
			if _, ok := params[p.Name]; ok {
				continue
			}
			if p.Required {
				*warnings = append(*warnings, domain.ExtractionWarning{
					NodeID: n.ID(),
					Param:  p.Name,
					Reason: "value not recoverable from runtime node",
				})
			}
		}
	}
	if len(params) > 0 {
		def.Params = params
	}

	for _, child := range n.Children() {
		def.Children = append(def.Children, c.extractNode(child, warnings))
	}
	return def
}

// reportedParams asks the node directly, then falls back to reflecting
// over `param`-tagged struct fields. The fallback covers third-party
// node implementations that predate ParamReporter.
func reportedParams(n node.Node) map[string]any {
	if r, ok := n.(node.ParamReporter); ok {
		return r.Params()
	}

	v := reflect.ValueOf(n)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	params := make(map[string]any)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("param")
		if tag == "" || tag == "-" {
			continue
		}
		f := v.Field(i)
		if !f.CanInterface() {
			continue
		}
		if d, ok := f.Interface().(fmt.Stringer); ok {
			params[tag] = d.String()
			continue
		}
		params[tag] = f.Interface()
	}
	if len(params) == 0 {
		return nil
	}
	return params
}
