// Package exprcond compiles and runs the boolean conditions used by
// guard nodes and the debug surface (breakpoints, watches).
//
// Conditions are expr-lang expressions evaluated against a read-only
// environment built from a blackboard snapshot. The expression VM has
// no access to the host environment, which keeps user-supplied
// conditions inside a sandbox: comparisons, boolean operators and
// blackboard lookups only.
package exprcond

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Program is a compiled condition.
type Program struct {
	source string
	prog   *vm.Program
}

// Source returns the original expression text.
func (p *Program) Source() string { return p.source }

// Compile validates and compiles a condition. The result must evaluate
// to a boolean. Blackboard keys resolve as top-level identifiers and
// under the `blackboard` map; unknown identifiers evaluate to nil so a
// condition over an unset key is false rather than an error.
func Compile(source string) (*Program, error) {
	prog, err := expr.Compile(source,
		expr.AsBool(),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile condition: %w", err)
	}
	return &Program{source: source, prog: prog}, nil
}

// Env builds the evaluation environment from a blackboard snapshot plus
// optional extra bindings (e.g. "status" at a breakpoint). Extra keys
// shadow blackboard keys.
func Env(bb map[string]any, extra map[string]any) map[string]any {
	env := make(map[string]any, len(bb)+len(extra)+1)
	for k, v := range bb {
		env[k] = v
	}
	env["blackboard"] = bb
	for k, v := range extra {
		env[k] = v
	}
	return env
}

// Run evaluates a compiled condition against an environment.
func Run(p *Program, env map[string]any) (bool, error) {
	out, err := expr.Run(p.prog, env)
	if err != nil {
		return false, fmt.Errorf("evaluate condition: %w", err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition returned %T, want bool", out)
	}
	return b, nil
}

// Cache memoizes compiled conditions by source text. Safe for
// concurrent use; the debug surface recompiles the same handful of
// expressions every tick without it.
type Cache struct {
	mu    sync.RWMutex
	progs map[string]*Program
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{progs: make(map[string]*Program)}
}

// Get compiles source or returns the cached program.
func (c *Cache) Get(source string) (*Program, error) {
	c.mu.RLock()
	p, ok := c.progs[source]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := Compile(source)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.progs[source] = p
	c.mu.Unlock()
	return p, nil
}
