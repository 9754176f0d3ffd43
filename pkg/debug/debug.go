/*
Package debug attaches interactive debugging to an execution instance:
breakpoints on node ids, watches on blackboard keys, and stepping.

Pausing is cooperative and tick-granular. A traversal in progress
always completes; what a pause stops is the scheduler issuing further
ticks. Watches are evaluated before each tick, breakpoints after it
against the tick's visit records.
*/
package debug

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/canopy/internal/exprcond"
	"github.com/aretw0/canopy/pkg/blackboard"
	"github.com/aretw0/canopy/pkg/domain"
)

// Visit is one node tick observed during a traversal, in completion
// order.
type Visit struct {
	NodeID string
	Depth  int
	Status domain.Status
}

// StepMode selects how far execution proceeds before pausing again.
type StepMode string

const (
	StepNone StepMode = ""
	// StepInto pauses after the very next tick that visits any node.
	StepInto StepMode = "STEP_INTO"
	// StepOver pauses when control returns to the depth that was
	// active when stepping began.
	StepOver StepMode = "STEP_OVER"
	// StepOut pauses when control returns above that depth.
	StepOut StepMode = "STEP_OUT"
	// StepContinue clears any step mode and resumes.
	StepContinue StepMode = "CONTINUE"
)

// Context carries the debug state of one execution instance.
// Safe for concurrent use; the scheduler polls Paused while a client
// toggles breakpoints from elsewhere.
type Context struct {
	mu          sync.Mutex
	paused      bool
	pausedDepth int

	breakpoints map[string]*Breakpoint
	watches     map[string]*Watch

	stepMode  StepMode
	stepDepth int
}

// NewContext creates an unpaused context with no breakpoints or
// watches.
func NewContext() *Context {
	return &Context{
		breakpoints: make(map[string]*Breakpoint),
		watches:     make(map[string]*Watch),
	}
}

// Paused reports whether the instance should be issued further ticks.
func (c *Context) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Pause stops the scheduler from issuing ticks.
func (c *Context) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
}

// Resume clears the pause and any armed step mode.
func (c *Context) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
	c.stepMode = StepNone
}

// Step arms a step mode and resumes. The current paused depth becomes
// the reference depth for STEP_OVER and STEP_OUT.
func (c *Context) Step(mode StepMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if mode == StepContinue || mode == StepNone {
		c.paused = false
		c.stepMode = StepNone
		return
	}
	c.stepMode = mode
	c.stepDepth = c.pausedDepth
	c.paused = false
}

// EvaluateStep inspects one completed tick's visits and pauses when the
// armed step mode is satisfied. Returns true when it paused.
func (c *Context) EvaluateStep(visits []Visit) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stepMode == StepNone || len(visits) == 0 {
		return false
	}

	for _, v := range visits {
		hit := false
		switch c.stepMode {
		case StepInto:
			hit = true
		case StepOver:
			hit = v.Depth <= c.stepDepth
		case StepOut:
			hit = v.Depth < c.stepDepth
		}
		if hit {
			c.paused = true
			c.pausedDepth = v.Depth
			c.stepMode = StepNone
			return true
		}
	}
	return false
}

// Breakpoint pauses execution after a tick that visited its node.
type Breakpoint struct {
	NodeID    string `json:"node_id"`
	Condition string `json:"condition,omitempty"`
	Enabled   bool   `json:"enabled"`

	prog *exprcond.Program
}

// SetBreakpoint installs or replaces a breakpoint. A non-empty
// condition is compiled in the read-only expression sandbox; it sees
// the blackboard plus the node's post-tick "status". A condition that
// does not compile is rejected here rather than silently never firing.
func (c *Context) SetBreakpoint(nodeID, condition string) error {
	bp := &Breakpoint{NodeID: nodeID, Condition: condition, Enabled: true}
	if condition != "" {
		prog, err := exprcond.Compile(condition)
		if err != nil {
			return &domain.DebugExpressionError{Expression: condition, Err: err}
		}
		bp.prog = prog
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.breakpoints[nodeID] = bp
	return nil
}

// RemoveBreakpoint deletes the breakpoint on a node. No-op when absent.
func (c *Context) RemoveBreakpoint(nodeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.breakpoints, nodeID)
}

// EnableBreakpoint toggles a breakpoint without losing its condition.
func (c *Context) EnableBreakpoint(nodeID string, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	bp, ok := c.breakpoints[nodeID]
	if !ok {
		return fmt.Errorf("no breakpoint on node %s", nodeID)
	}
	bp.Enabled = enabled
	return nil
}

// Breakpoints lists installed breakpoints sorted by node id.
func (c *Context) Breakpoints() []Breakpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Breakpoint, 0, len(c.breakpoints))
	for _, bp := range c.breakpoints {
		out = append(out, Breakpoint{NodeID: bp.NodeID, Condition: bp.Condition, Enabled: bp.Enabled})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}

// EvaluateBreakpoints checks a completed tick's visits against the
// installed breakpoints and pauses on the first hit. A condition that
// fails to evaluate counts as not-fired and is returned as a
// DebugExpressionError; execution continues.
func (c *Context) EvaluateBreakpoints(visits []Visit, bb *blackboard.Blackboard) (*domain.BreakpointPayload, []error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, v := range visits {
		bp, ok := c.breakpoints[v.NodeID]
		if !ok || !bp.Enabled {
			continue
		}
		if bp.prog != nil {
			env := exprcond.Env(bb.Snapshot(), map[string]any{"status": string(v.Status)})
			fired, err := exprcond.Run(bp.prog, env)
			if err != nil {
				errs = append(errs, &domain.DebugExpressionError{Expression: bp.Condition, Err: err})
				continue
			}
			if !fired {
				continue
			}
		}
		c.paused = true
		c.pausedDepth = v.Depth
		return &domain.BreakpointPayload{
			NodeID:    v.NodeID,
			Condition: bp.Condition,
			Status:    v.Status,
		}, errs
	}
	return nil, errs
}
