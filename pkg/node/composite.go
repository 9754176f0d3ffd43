package node

import (
	"context"

	"github.com/aretw0/canopy/pkg/domain"
)

// Sequence ticks children in order and stops at the first RUNNING or
// FAILURE, returning it. SUCCESS only when every child succeeded this
// traversal.
//
// With memory, the next tick resumes at the last RUNNING child instead
// of restarting from the first.
type Sequence struct {
	base
	memory bool
	kids   []Node
	cursor int
}

// NewSequence creates a sequence composite.
func NewSequence(id, name string, memory bool, children []Node) *Sequence {
	return &Sequence{base: newBase(id, TypeSequence, name), memory: memory, kids: children}
}

func (n *Sequence) Children() []Node { return n.kids }

func (n *Sequence) Params() map[string]any {
	return map[string]any{"memory": n.memory}
}

func (n *Sequence) Tick(ctx context.Context, s *Scope) domain.Status {
	start := 0
	if n.memory {
		start = n.cursor
	}
	for i := start; i < len(n.kids); i++ {
		switch controlStatus(s.TickNode(ctx, n.kids[i])) {
		case domain.StatusRunning:
			n.cursor = i
			return n.ret(domain.StatusRunning)
		case domain.StatusFailure:
			n.cursor = 0
			return n.ret(domain.StatusFailure)
		}
	}
	n.cursor = 0
	return n.ret(domain.StatusSuccess)
}

// Selector ticks children in order and returns the first non-FAILURE
// result. FAILURE only when every child failed. Memory semantics mirror
// Sequence.
type Selector struct {
	base
	memory bool
	kids   []Node
	cursor int
}

// NewSelector creates a selector composite.
func NewSelector(id, name string, memory bool, children []Node) *Selector {
	return &Selector{base: newBase(id, TypeSelector, name), memory: memory, kids: children}
}

func (n *Selector) Children() []Node { return n.kids }

func (n *Selector) Params() map[string]any {
	return map[string]any{"memory": n.memory}
}

func (n *Selector) Tick(ctx context.Context, s *Scope) domain.Status {
	start := 0
	if n.memory {
		start = n.cursor
	}
	for i := start; i < len(n.kids); i++ {
		switch controlStatus(s.TickNode(ctx, n.kids[i])) {
		case domain.StatusRunning:
			n.cursor = i
			return n.ret(domain.StatusRunning)
		case domain.StatusSuccess:
			n.cursor = 0
			return n.ret(domain.StatusSuccess)
		}
	}
	n.cursor = 0
	return n.ret(domain.StatusFailure)
}
