package node

import (
	"context"
	"fmt"

	"github.com/aretw0/canopy/pkg/blackboard"
	"github.com/aretw0/canopy/pkg/domain"
)

// VisitFunc observes one node tick: the node, its traversal depth
// (root = 0) and the status it returned.
type VisitFunc func(n Node, depth int, st domain.Status)

// FaultFunc observes a contained runtime fault.
type FaultFunc func(n Node, err error)

// Scope carries the per-instance runtime services a traversal needs:
// the blackboard, the current tick number, and the visit/fault hooks
// the debug and event subsystems hang off.
//
// A Scope belongs to one instance and is only touched by the goroutine
// driving that instance's ticks.
type Scope struct {
	bb    *blackboard.Blackboard
	tick  uint64
	depth int
	visit VisitFunc
	fault FaultFunc
}

// NewScope creates a scope bound to a blackboard.
func NewScope(bb *blackboard.Blackboard) *Scope {
	return &Scope{bb: bb, depth: -1}
}

// Blackboard returns the instance's blackboard.
func (s *Scope) Blackboard() *blackboard.Blackboard { return s.bb }

// TickNum returns the tick currently being executed.
func (s *Scope) TickNum() uint64 { return s.tick }

// SetTickNum is called by the execution instance before each root tick.
func (s *Scope) SetTickNum(n uint64) { s.tick = n }

// OnVisit registers the traversal observer.
func (s *Scope) OnVisit(fn VisitFunc) { s.visit = fn }

// OnFault registers the fault observer.
func (s *Scope) OnFault(fn FaultFunc) { s.fault = fn }

// ReportFault surfaces a contained fault (a node may call this for its
// own evaluation errors, e.g. a guard condition that failed to run).
func (s *Scope) ReportFault(n Node, err error) {
	if s.fault != nil {
		s.fault(n, err)
	}
}

// TickNode runs one tick of n with fault containment: a panic inside
// the tick is recovered here, the node is marked INVALID, the fault is
// reported, and siblings of n keep ticking. Composites and decorators
// must tick children through this method; the execution instance uses
// it for the root.
func (s *Scope) TickNode(ctx context.Context, n Node) (st domain.Status) {
	s.depth++
	defer func() {
		if r := recover(); r != nil {
			st = domain.StatusInvalid
			if f, ok := n.(statusForcer); ok {
				f.forceStatus(domain.StatusInvalid)
			}
			s.ReportFault(n, fmt.Errorf("node %s: tick panicked: %v", n.ID(), r))
		}
		if s.visit != nil {
			s.visit(n, s.depth, st)
		}
		s.depth--
	}()
	return n.Tick(ctx, s)
}
