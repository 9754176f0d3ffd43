package node

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/aretw0/canopy/pkg/domain"
)

// Constant always returns its configured status.
type Constant struct {
	base
	value domain.Status
}

// NewConstant creates a constant-status leaf.
func NewConstant(id, name string, value domain.Status) (*Constant, error) {
	if !value.Known() {
		return nil, fmt.Errorf("constant %s: unknown status %q", id, value)
	}
	return &Constant{base: newBase(id, TypeConstant, name), value: value}, nil
}

func (n *Constant) Params() map[string]any {
	return map[string]any{"status": string(n.value)}
}

func (n *Constant) Tick(ctx context.Context, s *Scope) domain.Status {
	return n.ret(n.value)
}

// TickCounter returns RUNNING until it has been ticked the configured
// number of times, then SUCCESS from that point on.
type TickCounter struct {
	base
	limit int
	seen  int
}

// NewTickCounter creates a tick-counting leaf.
func NewTickCounter(id, name string, ticks int) (*TickCounter, error) {
	if ticks < 1 {
		return nil, fmt.Errorf("tick-counter %s: ticks %d must be >= 1", id, ticks)
	}
	return &TickCounter{base: newBase(id, TypeTickCounter, name), limit: ticks}, nil
}

func (n *TickCounter) Params() map[string]any {
	return map[string]any{"ticks": n.limit}
}

func (n *TickCounter) Tick(ctx context.Context, s *Scope) domain.Status {
	if n.seen < n.limit {
		n.seen++
	}
	if n.seen >= n.limit {
		return n.ret(domain.StatusSuccess)
	}
	return n.ret(domain.StatusRunning)
}

// SuccessEveryN succeeds on every Nth tick and fails otherwise.
type SuccessEveryN struct {
	base
	period int
	seen   int
}

// NewSuccessEveryN creates the periodic-success leaf.
func NewSuccessEveryN(id, name string, period int) (*SuccessEveryN, error) {
	if period < 1 {
		return nil, fmt.Errorf("success-every-n %s: period %d must be >= 1", id, period)
	}
	return &SuccessEveryN{base: newBase(id, TypeSuccessEveryN, name), period: period}, nil
}

func (n *SuccessEveryN) Params() map[string]any {
	return map[string]any{"period": n.period}
}

func (n *SuccessEveryN) Tick(ctx context.Context, s *Scope) domain.Status {
	n.seen++
	if n.seen%n.period == 0 {
		return n.ret(domain.StatusSuccess)
	}
	return n.ret(domain.StatusFailure)
}

// Probabilistic samples its status from a discrete distribution over
// SUCCESS/FAILURE/RUNNING. The sequence is deterministic for a given
// seed.
type Probabilistic struct {
	base
	weights map[string]float64
	seed    int64
	rng     *rand.Rand
}

// NewProbabilistic creates the sampling leaf. Weights are keyed by
// status name; at least one must be positive.
func NewProbabilistic(id, name string, weights map[string]float64, seed int64) (*Probabilistic, error) {
	var total float64
	for k, w := range weights {
		if _, err := domain.ParseStatus(k); err != nil {
			return nil, fmt.Errorf("probabilistic %s: %v", id, err)
		}
		if w < 0 {
			return nil, fmt.Errorf("probabilistic %s: negative weight for %s", id, k)
		}
		total += w
	}
	if total <= 0 {
		return nil, fmt.Errorf("probabilistic %s: weights must sum to a positive value", id)
	}
	return &Probabilistic{
		base:    newBase(id, TypeProbabilistic, name),
		weights: weights,
		seed:    seed,
		rng:     rand.New(rand.NewSource(seed)),
	}, nil
}

func (n *Probabilistic) Params() map[string]any {
	return map[string]any{"weights": n.weights, "seed": n.seed}
}

func (n *Probabilistic) Tick(ctx context.Context, s *Scope) domain.Status {
	var total float64
	keys := make([]string, 0, len(n.weights))
	for k, w := range n.weights {
		keys = append(keys, k)
		total += w
	}
	sort.Strings(keys) // deterministic sampling order

	r := n.rng.Float64() * total
	for _, k := range keys {
		r -= n.weights[k]
		if r < 0 {
			return n.ret(domain.Status(k))
		}
	}
	return n.ret(domain.Status(keys[len(keys)-1]))
}

// BlackboardExists succeeds when the key is present.
type BlackboardExists struct {
	base
	key string
}

// NewBlackboardExists creates the existence-check leaf.
func NewBlackboardExists(id, name, key string) *BlackboardExists {
	return &BlackboardExists{base: newBase(id, TypeBlackboardExists, name), key: key}
}

func (n *BlackboardExists) Params() map[string]any {
	return map[string]any{"key": n.key}
}

func (n *BlackboardExists) Tick(ctx context.Context, s *Scope) domain.Status {
	if s.Blackboard().Exists(n.key) {
		return n.ret(domain.StatusSuccess)
	}
	return n.ret(domain.StatusFailure)
}

// BlackboardSet writes a literal value and succeeds.
type BlackboardSet struct {
	base
	key   string
	value any
}

// NewBlackboardSet creates the write leaf.
func NewBlackboardSet(id, name, key string, value any) *BlackboardSet {
	return &BlackboardSet{base: newBase(id, TypeBlackboardSet, name), key: key, value: value}
}

func (n *BlackboardSet) Params() map[string]any {
	return map[string]any{"key": n.key, "value": n.value}
}

func (n *BlackboardSet) Tick(ctx context.Context, s *Scope) domain.Status {
	s.Blackboard().Set(n.key, n.value)
	return n.ret(domain.StatusSuccess)
}

// BlackboardUnset removes a key and succeeds.
type BlackboardUnset struct {
	base
	key string
}

// NewBlackboardUnset creates the removal leaf.
func NewBlackboardUnset(id, name, key string) *BlackboardUnset {
	return &BlackboardUnset{base: newBase(id, TypeBlackboardUnset, name), key: key}
}

func (n *BlackboardUnset) Params() map[string]any {
	return map[string]any{"key": n.key}
}

func (n *BlackboardUnset) Tick(ctx context.Context, s *Scope) domain.Status {
	s.Blackboard().Unset(n.key)
	return n.ret(domain.StatusSuccess)
}

// Comparison operators accepted by WaitForBlackboard.
const (
	OpEqual          = "=="
	OpNotEqual       = "!="
	OpGreater        = ">"
	OpLess           = "<"
	OpGreaterOrEqual = ">="
	OpLessOrEqual    = "<="
)

// WaitForBlackboard returns RUNNING until the value under key compares
// true against the configured literal, then SUCCESS. A missing key or
// an incomparable value keeps it RUNNING.
type WaitForBlackboard struct {
	base
	key   string
	op    string
	value any
}

// NewWaitForBlackboard creates the comparison-wait leaf.
func NewWaitForBlackboard(id, name, key, op string, value any) (*WaitForBlackboard, error) {
	switch op {
	case OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterOrEqual, OpLessOrEqual:
	default:
		return nil, fmt.Errorf("wait-for-blackboard %s: unknown operator %q", id, op)
	}
	return &WaitForBlackboard{base: newBase(id, TypeWaitForBlackboard, name), key: key, op: op, value: value}, nil
}

func (n *WaitForBlackboard) Params() map[string]any {
	return map[string]any{"key": n.key, "op": n.op, "value": n.value}
}

func (n *WaitForBlackboard) Tick(ctx context.Context, s *Scope) domain.Status {
	v, ok := s.Blackboard().Get(n.key)
	if !ok {
		return n.ret(domain.StatusRunning)
	}
	if CompareHolds(n.op, v, n.value) {
		return n.ret(domain.StatusSuccess)
	}
	return n.ret(domain.StatusRunning)
}

// CompareHolds applies one of the comparison operators to two values
// under domain.Compare coercion rules. Incomparable values yield false.
func CompareHolds(op string, a, b any) bool {
	if op == OpEqual {
		return domain.Equal(a, b)
	}
	if op == OpNotEqual {
		return !domain.Equal(a, b)
	}
	cmp, err := domain.Compare(a, b)
	if err != nil {
		return false
	}
	switch op {
	case OpGreater:
		return cmp > 0
	case OpLess:
		return cmp < 0
	case OpGreaterOrEqual:
		return cmp >= 0
	case OpLessOrEqual:
		return cmp <= 0
	}
	return false
}
