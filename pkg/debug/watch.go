package debug

import (
	"fmt"
	"sort"

	"github.com/aretw0/canopy/pkg/blackboard"
	"github.com/aretw0/canopy/pkg/domain"
)

// WatchKind selects what a watch reacts to.
type WatchKind string

const (
	// WatchChange fires when the value differs from the last observed
	// one, including appearing or disappearing.
	WatchChange WatchKind = "CHANGE"

	WatchEquals         WatchKind = "EQUALS"
	WatchNotEquals      WatchKind = "NOT_EQUALS"
	WatchGreater        WatchKind = "GREATER"
	WatchLess           WatchKind = "LESS"
	WatchGreaterOrEqual WatchKind = "GREATER_OR_EQUAL"
	WatchLessOrEqual    WatchKind = "LESS_OR_EQUAL"
)

// Watch observes one blackboard key.
//
// Threshold kinds are edge-triggered: the watch fires on the tick its
// condition first holds and re-arms once it stops holding, so a value
// sitting above a GREATER target fires once, not every tick.
type Watch struct {
	Key    string    `json:"key"`
	Kind   WatchKind `json:"kind"`
	Target any       `json:"target,omitempty"`

	armed   bool
	seen    bool
	last    any
	hasLast bool
}

// SetWatch installs or replaces the watch on a key. The target is
// ignored for CHANGE.
func (c *Context) SetWatch(key string, kind WatchKind, target any) error {
	switch kind {
	case WatchChange, WatchEquals, WatchNotEquals,
		WatchGreater, WatchLess, WatchGreaterOrEqual, WatchLessOrEqual:
	default:
		return fmt.Errorf("unknown watch kind %q", kind)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watches[key] = &Watch{Key: key, Kind: kind, Target: target, armed: true}
	return nil
}

// RemoveWatch deletes the watch on a key. No-op when absent.
func (c *Context) RemoveWatch(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.watches, key)
}

// Watches lists installed watches sorted by key.
func (c *Context) Watches() []Watch {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Watch, 0, len(c.watches))
	for _, w := range c.watches {
		out = append(out, Watch{Key: w.Key, Kind: w.Kind, Target: w.Target})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// EvaluateWatches runs every watch against the blackboard and pauses
// when any fires. Called once per tick, before the traversal.
func (c *Context) EvaluateWatches(bb *blackboard.Blackboard) []domain.WatchPayload {
	c.mu.Lock()
	defer c.mu.Unlock()

	var fired []domain.WatchPayload
	keys := make([]string, 0, len(c.watches))
	for k := range c.watches {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		w := c.watches[k]
		value, ok := bb.Get(w.Key)
		if w.evaluate(value, ok) {
			fired = append(fired, domain.WatchPayload{
				Key:   w.Key,
				Kind:  string(w.Kind),
				Value: value,
			})
		}
	}
	if len(fired) > 0 {
		c.paused = true
	}
	return fired
}

func (w *Watch) evaluate(value any, present bool) bool {
	if w.Kind == WatchChange {
		// First observation only arms; afterwards any edge fires:
		// value differs, key appeared, or key disappeared.
		changed := w.seen && (present != w.hasLast || (present && !domain.Equal(value, w.last)))
		w.seen = true
		w.last, w.hasLast = value, present
		return changed
	}

	holds := present && w.holds(value)
	if holds && w.armed {
		w.armed = false
		return true
	}
	if !holds {
		w.armed = true
	}
	return false
}

func (w *Watch) holds(value any) bool {
	switch w.Kind {
	case WatchEquals:
		return domain.Equal(value, w.Target)
	case WatchNotEquals:
		return !domain.Equal(value, w.Target)
	}
	cmp, err := domain.Compare(value, w.Target)
	if err != nil {
		return false
	}
	switch w.Kind {
	case WatchGreater:
		return cmp > 0
	case WatchLess:
		return cmp < 0
	case WatchGreaterOrEqual:
		return cmp >= 0
	case WatchLessOrEqual:
		return cmp <= 0
	}
	return false
}
