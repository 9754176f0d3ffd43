/*
Package node implements the behavior-tree execution model: the Node
interface, the per-instance Scope that carries runtime services through
a traversal, and the builtin composites, decorators and leaves.

A tick is one synchronous top-down evaluation pass. Nodes never spawn
goroutines; long work is modelled by returning RUNNING and being ticked
again. Faults (panics inside a tick) are contained at the parent via
Scope.TickNode and surface as status INVALID, never as an unwound call
stack.
*/
package node

import (
	"context"

	"github.com/aretw0/canopy/pkg/domain"
)

// Builtin node type names. The registry maps these to schemas and
// factories; Node.Type returns them so extraction can recover the type.
const (
	TypeSequence = "sequence"
	TypeSelector = "selector"
	TypeParallel = "parallel"

	TypeRetry              = "retry"
	TypeRepeat             = "repeat"
	TypeTimeout            = "timeout"
	TypeOneShot            = "one-shot"
	TypeInverter           = "inverter"
	TypeEternalGuard       = "eternal-guard"
	TypeWaitCondition      = "wait-condition"
	TypeCount              = "count"
	TypeStatusToBlackboard = "status-to-blackboard"
	TypeBlackboardToStatus = "blackboard-to-status"

	TypeConstant          = "constant"
	TypeTickCounter       = "tick-counter"
	TypeSuccessEveryN     = "success-every-n"
	TypeProbabilistic     = "probabilistic"
	TypeBlackboardExists  = "blackboard-exists"
	TypeBlackboardSet     = "blackboard-set"
	TypeBlackboardUnset   = "blackboard-unset"
	TypeWaitForBlackboard = "wait-for-blackboard"
)

// Node is the runtime counterpart of a TreeNodeDefinition.
//
// Setup runs once before the first tick (resource acquisition),
// Shutdown once after the last. Neither recurses: the execution
// instance walks the tree and calls them per node, ensuring the
// Uninitialized -> Setup -> Ticking -> Shutdown lifecycle.
type Node interface {
	// ID returns the originating definition id. Stable for the
	// lifetime of the instance.
	ID() string
	// Type returns the registered node type name.
	Type() string
	// Name returns the display name from the definition.
	Name() string
	// Status returns the result of the most recent tick, or INVALID
	// before the first one.
	Status() domain.Status
	// Children returns owned child nodes in order; nil for leaves.
	Children() []Node

	Setup(ctx context.Context, s *Scope) error
	Tick(ctx context.Context, s *Scope) domain.Status
	Shutdown(ctx context.Context, s *Scope) error
}

// ParamReporter is implemented by nodes that can report their
// construction parameters directly. Extraction prefers this over the
// reflective fallback.
type ParamReporter interface {
	Params() map[string]any
}

// statusForcer lets the fault containment path in Scope.TickNode mark a
// panicked node INVALID without re-entering it.
type statusForcer interface {
	forceStatus(domain.Status)
}

// base carries the identity fields every builtin node embeds.
type base struct {
	id     string
	typ    string
	name   string
	status domain.Status
}

func newBase(id, typ, name string) base {
	return base{id: id, typ: typ, name: name, status: domain.StatusInvalid}
}

func (b *base) ID() string            { return b.id }
func (b *base) Type() string          { return b.typ }
func (b *base) Name() string          { return b.name }
func (b *base) Status() domain.Status { return b.status }
func (b *base) Children() []Node      { return nil }

func (b *base) Setup(ctx context.Context, s *Scope) error    { return nil }
func (b *base) Shutdown(ctx context.Context, s *Scope) error { return nil }

// ret records and returns the tick result in one step.
func (b *base) ret(st domain.Status) domain.Status {
	b.status = st
	return st
}

func (b *base) forceStatus(st domain.Status) { b.status = st }

// controlStatus maps INVALID (a faulted child) to FAILURE for routing
// decisions inside composites and decorators. The child's recorded
// status stays INVALID; only the control flow treats it as a failure.
func controlStatus(st domain.Status) domain.Status {
	if st == domain.StatusInvalid {
		return domain.StatusFailure
	}
	return st
}

// Walk visits n and all descendants depth-first, parents before
// children.
func Walk(n Node, fn func(Node)) {
	fn(n)
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}
