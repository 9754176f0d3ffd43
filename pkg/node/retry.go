package node

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
)

// Retry re-ticks its child on FAILURE, up to num_attempts ticks of the
// child per cycle, before propagating FAILURE. The attempt counter
// resets on child SUCCESS and after a propagated FAILURE. RUNNING
// passes through; attempts already used are kept across RUNNING ticks.
type Retry struct {
	decorated
	attempts int
	used     int
}

// NewRetry creates a retry decorator.
func NewRetry(id, name string, attempts int, child Node) (*Retry, error) {
	if attempts < 1 {
		return nil, fmt.Errorf("retry %s: num_attempts %d must be >= 1", id, attempts)
	}
	return &Retry{decorated: decorated{base: newBase(id, TypeRetry, name), child: child}, attempts: attempts}, nil
}

func (n *Retry) Params() map[string]any {
	return map[string]any{"num_attempts": n.attempts}
}

func (n *Retry) Tick(ctx context.Context, s *Scope) domain.Status {
	for {
		switch controlStatus(s.TickNode(ctx, n.child)) {
		case domain.StatusRunning:
			return n.ret(domain.StatusRunning)
		case domain.StatusSuccess:
			n.used = 0
			return n.ret(domain.StatusSuccess)
		default:
			n.used++
			if n.used >= n.attempts {
				n.used = 0
				return n.ret(domain.StatusFailure)
			}
		}
	}
}

// Repeat counts consecutive child SUCCESS results and returns SUCCESS
// once num_success is reached; until then a successful child tick
// yields RUNNING. A FAILURE resets the streak and propagates.
type Repeat struct {
	decorated
	require int
	streak  int
}

// NewRepeat creates a repeat decorator.
func NewRepeat(id, name string, numSuccess int, child Node) (*Repeat, error) {
	if numSuccess < 1 {
		return nil, fmt.Errorf("repeat %s: num_success %d must be >= 1", id, numSuccess)
	}
	return &Repeat{decorated: decorated{base: newBase(id, TypeRepeat, name), child: child}, require: numSuccess}, nil
}

func (n *Repeat) Params() map[string]any {
	return map[string]any{"num_success": n.require}
}

func (n *Repeat) Tick(ctx context.Context, s *Scope) domain.Status {
	switch controlStatus(s.TickNode(ctx, n.child)) {
	case domain.StatusSuccess:
		n.streak++
		if n.streak >= n.require {
			n.streak = 0
			return n.ret(domain.StatusSuccess)
		}
		return n.ret(domain.StatusRunning)
	case domain.StatusFailure:
		n.streak = 0
		return n.ret(domain.StatusFailure)
	default:
		return n.ret(domain.StatusRunning)
	}
}

// Timeout starts a timer at the child's first RUNNING tick and forces
// FAILURE once the duration elapses, regardless of what the child would
// have returned. A terminal child result clears the timer.
type Timeout struct {
	decorated
	limit    time.Duration
	deadline time.Time
	clock    func() time.Time
}

// NewTimeout creates a timeout decorator.
func NewTimeout(id, name string, limit time.Duration, child Node) (*Timeout, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("timeout %s: duration %v must be positive", id, limit)
	}
	return &Timeout{
		decorated: decorated{base: newBase(id, TypeTimeout, name), child: child},
		limit:     limit,
		clock:     time.Now,
	}, nil
}

func (n *Timeout) Params() map[string]any {
	return map[string]any{"duration": n.limit.String()}
}

func (n *Timeout) Tick(ctx context.Context, s *Scope) domain.Status {
	if !n.deadline.IsZero() && !n.clock().Before(n.deadline) {
		n.deadline = time.Time{}
		return n.ret(domain.StatusFailure)
	}

	st := s.TickNode(ctx, n.child)
	if controlStatus(st) != domain.StatusRunning {
		n.deadline = time.Time{}
		return n.ret(st)
	}

	if n.deadline.IsZero() {
		n.deadline = n.clock().Add(n.limit)
	} else if !n.clock().Before(n.deadline) {
		n.deadline = time.Time{}
		return n.ret(domain.StatusFailure)
	}
	return n.ret(domain.StatusRunning)
}
