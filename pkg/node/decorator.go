package node

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/canopy/pkg/domain"
)

// decorated is embedded by every decorator: exactly one owned child.
type decorated struct {
	base
	child Node
}

func (d *decorated) Children() []Node { return []Node{d.child} }

// Child returns the wrapped node.
func (d *decorated) Child() Node { return d.child }

// StatusConverter remaps one (from, to) status pair and passes every
// other status through unchanged. The six supported pairs each have
// their own registered type name (e.g. "success-is-failure").
type StatusConverter struct {
	decorated
	from, to domain.Status
}

// ConverterTypeName derives the registered type name for a remap pair,
// e.g. (SUCCESS, FAILURE) -> "success-is-failure".
func ConverterTypeName(from, to domain.Status) string {
	return strings.ToLower(string(from)) + "-is-" + strings.ToLower(string(to))
}

// ConverterPairs enumerates the six supported remaps.
func ConverterPairs() [][2]domain.Status {
	all := []domain.Status{domain.StatusSuccess, domain.StatusFailure, domain.StatusRunning}
	var pairs [][2]domain.Status
	for _, from := range all {
		for _, to := range all {
			if from != to {
				pairs = append(pairs, [2]domain.Status{from, to})
			}
		}
	}
	return pairs
}

// NewStatusConverter creates a one-pair remap decorator.
func NewStatusConverter(id, name string, from, to domain.Status, child Node) (*StatusConverter, error) {
	if !from.Terminal() && from != domain.StatusRunning {
		return nil, fmt.Errorf("converter %s: unsupported source status %q", id, from)
	}
	if !to.Terminal() && to != domain.StatusRunning {
		return nil, fmt.Errorf("converter %s: unsupported target status %q", id, to)
	}
	if from == to {
		return nil, fmt.Errorf("converter %s: identity remap %q", id, from)
	}
	return &StatusConverter{
		decorated: decorated{base: newBase(id, ConverterTypeName(from, to), name), child: child},
		from:      from,
		to:        to,
	}, nil
}

func (n *StatusConverter) Tick(ctx context.Context, s *Scope) domain.Status {
	st := s.TickNode(ctx, n.child)
	if st == n.from {
		st = n.to
	}
	return n.ret(st)
}

// Inverter swaps SUCCESS and FAILURE in both directions; RUNNING and
// INVALID pass through.
type Inverter struct {
	decorated
}

// NewInverter creates an inverter decorator.
func NewInverter(id, name string, child Node) *Inverter {
	return &Inverter{decorated{base: newBase(id, TypeInverter, name), child: child}}
}

func (n *Inverter) Tick(ctx context.Context, s *Scope) domain.Status {
	switch s.TickNode(ctx, n.child) {
	case domain.StatusSuccess:
		return n.ret(domain.StatusFailure)
	case domain.StatusFailure:
		return n.ret(domain.StatusSuccess)
	case domain.StatusRunning:
		return n.ret(domain.StatusRunning)
	default:
		return n.ret(domain.StatusInvalid)
	}
}

// OneShot remembers the child's first terminal result and returns it on
// every subsequent tick without re-ticking the child.
type OneShot struct {
	decorated
	final domain.Status
}

// NewOneShot creates a one-shot decorator.
func NewOneShot(id, name string, child Node) *OneShot {
	return &OneShot{decorated: decorated{base: newBase(id, TypeOneShot, name), child: child}, final: domain.StatusInvalid}
}

func (n *OneShot) Tick(ctx context.Context, s *Scope) domain.Status {
	if n.final.Terminal() {
		return n.ret(n.final)
	}
	st := s.TickNode(ctx, n.child)
	if st.Terminal() {
		n.final = st
	}
	return n.ret(st)
}

// Count passes the child's status through unchanged while tallying how
// often each status was returned.
type Count struct {
	decorated
	counts map[domain.Status]uint64
}

// NewCount creates a counting decorator.
func NewCount(id, name string, child Node) *Count {
	return &Count{
		decorated: decorated{base: newBase(id, TypeCount, name), child: child},
		counts:    make(map[domain.Status]uint64),
	}
}

func (n *Count) Tick(ctx context.Context, s *Scope) domain.Status {
	st := s.TickNode(ctx, n.child)
	n.counts[st]++
	return n.ret(st)
}

// Counts returns a copy of the per-status tallies.
func (n *Count) Counts() map[domain.Status]uint64 {
	out := make(map[domain.Status]uint64, len(n.counts))
	for k, v := range n.counts {
		out[k] = v
	}
	return out
}

// StatusToBlackboard writes the child's returned status to a blackboard
// key after every tick, passing the status through unchanged.
type StatusToBlackboard struct {
	decorated
	key string
}

// NewStatusToBlackboard creates the status-writing bridge.
func NewStatusToBlackboard(id, name, key string, child Node) *StatusToBlackboard {
	return &StatusToBlackboard{decorated: decorated{base: newBase(id, TypeStatusToBlackboard, name), child: child}, key: key}
}

func (n *StatusToBlackboard) Params() map[string]any {
	return map[string]any{"key": n.key}
}

func (n *StatusToBlackboard) Tick(ctx context.Context, s *Scope) domain.Status {
	st := s.TickNode(ctx, n.child)
	s.Blackboard().Set(n.key, string(st))
	return n.ret(st)
}

// BlackboardToStatus ticks its child, then returns the status stored
// under the key when present and valid; otherwise the child's status
// passes through.
type BlackboardToStatus struct {
	decorated
	key string
}

// NewBlackboardToStatus creates the status-reading bridge.
func NewBlackboardToStatus(id, name, key string, child Node) *BlackboardToStatus {
	return &BlackboardToStatus{decorated: decorated{base: newBase(id, TypeBlackboardToStatus, name), child: child}, key: key}
}

func (n *BlackboardToStatus) Params() map[string]any {
	return map[string]any{"key": n.key}
}

func (n *BlackboardToStatus) Tick(ctx context.Context, s *Scope) domain.Status {
	st := s.TickNode(ctx, n.child)
	if v, ok := s.Blackboard().Get(n.key); ok {
		if parsed, err := domain.ParseStatus(fmt.Sprint(v)); err == nil {
			st = parsed
		}
	}
	return n.ret(st)
}
