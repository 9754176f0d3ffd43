package node

import (
	"context"
	"fmt"

	"github.com/aretw0/canopy/pkg/domain"
)

// ParallelPolicy selects how a Parallel aggregates child results.
type ParallelPolicy string

const (
	// PolicySuccessOnAll: SUCCESS iff all children succeed, FAILURE as
	// soon as any child fails.
	PolicySuccessOnAll ParallelPolicy = "success-on-all"
	// PolicySuccessOnOne: SUCCESS as soon as any child succeeds,
	// FAILURE iff all fail.
	PolicySuccessOnOne ParallelPolicy = "success-on-one"
	// PolicySuccessOnSelected: SUCCESS once at least Threshold children
	// succeed, FAILURE once that can no longer happen.
	PolicySuccessOnSelected ParallelPolicy = "success-on-selected"
)

// Parallel ticks every child on every call until it reaches a terminal
// result itself, then starts a fresh tally on the next traversal cycle.
// Children are not run concurrently; "parallel" refers to all children
// advancing within one tick, in order.
type Parallel struct {
	base
	policy    ParallelPolicy
	threshold int
	kids      []Node
}

// NewParallel creates a parallel composite. Threshold is only consulted
// by PolicySuccessOnSelected and must be in [1, len(children)].
func NewParallel(id, name string, policy ParallelPolicy, threshold int, children []Node) (*Parallel, error) {
	switch policy {
	case PolicySuccessOnAll, PolicySuccessOnOne:
	case PolicySuccessOnSelected:
		if threshold < 1 || threshold > len(children) {
			return nil, fmt.Errorf("parallel %s: threshold %d out of range [1, %d]", id, threshold, len(children))
		}
	default:
		return nil, fmt.Errorf("parallel %s: unknown policy %q", id, policy)
	}
	return &Parallel{base: newBase(id, TypeParallel, name), policy: policy, threshold: threshold, kids: children}, nil
}

func (n *Parallel) Children() []Node { return n.kids }

func (n *Parallel) Params() map[string]any {
	p := map[string]any{"policy": string(n.policy)}
	if n.policy == PolicySuccessOnSelected {
		p["threshold"] = n.threshold
	}
	return p
}

func (n *Parallel) Tick(ctx context.Context, s *Scope) domain.Status {
	var succeeded, failed int
	for _, c := range n.kids {
		switch controlStatus(s.TickNode(ctx, c)) {
		case domain.StatusSuccess:
			succeeded++
		case domain.StatusFailure:
			failed++
		}
	}

	total := len(n.kids)
	switch n.policy {
	case PolicySuccessOnAll:
		switch {
		case failed > 0:
			return n.ret(domain.StatusFailure)
		case succeeded == total:
			return n.ret(domain.StatusSuccess)
		}
	case PolicySuccessOnOne:
		switch {
		case succeeded > 0:
			return n.ret(domain.StatusSuccess)
		case failed == total:
			return n.ret(domain.StatusFailure)
		}
	case PolicySuccessOnSelected:
		switch {
		case succeeded >= n.threshold:
			return n.ret(domain.StatusSuccess)
		case failed > total-n.threshold:
			// Not enough children left to reach the threshold.
			return n.ret(domain.StatusFailure)
		}
	}
	return n.ret(domain.StatusRunning)
}
