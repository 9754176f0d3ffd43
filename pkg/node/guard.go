package node

import (
	"context"

	"github.com/aretw0/canopy/internal/exprcond"
	"github.com/aretw0/canopy/pkg/domain"
)

// EternalGuard evaluates a boolean condition against the blackboard
// before every tick. While the condition holds the child ticks and its
// status passes through; the moment it does not, the guard returns
// FAILURE without ticking the child.
//
// Conditions use the same sandboxed expression grammar as debug
// breakpoints: comparisons, boolean operators and blackboard lookups.
type EternalGuard struct {
	decorated
	condition string
	prog      *exprcond.Program
}

// NewEternalGuard compiles the condition and creates the guard.
func NewEternalGuard(id, name, condition string, child Node) (*EternalGuard, error) {
	prog, err := exprcond.Compile(condition)
	if err != nil {
		return nil, err
	}
	return &EternalGuard{
		decorated: decorated{base: newBase(id, TypeEternalGuard, name), child: child},
		condition: condition,
		prog:      prog,
	}, nil
}

func (n *EternalGuard) Params() map[string]any {
	return map[string]any{"condition": n.condition}
}

func (n *EternalGuard) Tick(ctx context.Context, s *Scope) domain.Status {
	ok, err := exprcond.Run(n.prog, exprcond.Env(s.Blackboard().Snapshot(), nil))
	if err != nil {
		s.ReportFault(n, err)
		return n.ret(domain.StatusInvalid)
	}
	if !ok {
		return n.ret(domain.StatusFailure)
	}
	return n.ret(s.TickNode(ctx, n.child))
}

// WaitCondition returns RUNNING until its condition first holds, then
// ticks the child and passes its status through. The gate stays open
// until the child returns a terminal result, so a multi-tick child is
// not interrupted by the condition flickering off mid-run.
type WaitCondition struct {
	decorated
	condition string
	prog      *exprcond.Program
	open      bool
}

// NewWaitCondition compiles the condition and creates the gate.
func NewWaitCondition(id, name, condition string, child Node) (*WaitCondition, error) {
	prog, err := exprcond.Compile(condition)
	if err != nil {
		return nil, err
	}
	return &WaitCondition{
		decorated: decorated{base: newBase(id, TypeWaitCondition, name), child: child},
		condition: condition,
		prog:      prog,
	}, nil
}

func (n *WaitCondition) Params() map[string]any {
	return map[string]any{"condition": n.condition}
}

func (n *WaitCondition) Tick(ctx context.Context, s *Scope) domain.Status {
	if !n.open {
		ok, err := exprcond.Run(n.prog, exprcond.Env(s.Blackboard().Snapshot(), nil))
		if err != nil {
			s.ReportFault(n, err)
			return n.ret(domain.StatusInvalid)
		}
		if !ok {
			return n.ret(domain.StatusRunning)
		}
		n.open = true
	}

	st := s.TickNode(ctx, n.child)
	if st.Terminal() {
		n.open = false
	}
	return n.ret(st)
}
