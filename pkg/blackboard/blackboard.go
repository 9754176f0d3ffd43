// Package blackboard provides the per-instance key/value state container
// shared by the nodes of one executable tree.
//
// A Blackboard belongs to exactly one execution instance and is never
// shared across instances. Reads may come from any goroutine (debug
// surfaces, event consumers); writes happen on the instance's tick
// goroutine, so the store is guarded by a RWMutex.
package blackboard

import (
	"sort"
	"sync"
)

// ChangeFunc observes mutations. Deleted is true for Unset calls, in
// which case value is nil. The hook runs outside the blackboard lock.
type ChangeFunc func(key string, value any, deleted bool)

// Blackboard is a thread-safe key/value store.
type Blackboard struct {
	mu       sync.RWMutex
	data     map[string]any
	onChange ChangeFunc
}

// New creates an empty blackboard.
func New() *Blackboard {
	return &Blackboard{data: make(map[string]any)}
}

// SetOnChange registers the mutation observer. The execution instance
// uses this to emit BLACKBOARD_UPDATED events.
func (b *Blackboard) SetOnChange(fn ChangeFunc) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Exists reports whether the key is present.
func (b *Blackboard) Exists(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.data[key]
	return ok
}

// Get retrieves a value and whether it was present.
func (b *Blackboard) Get(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	return v, ok
}

// GetOr retrieves a value, falling back to def when the key is absent.
func (b *Blackboard) GetOr(key string, def any) any {
	if v, ok := b.Get(key); ok {
		return v
	}
	return def
}

// Set stores a value.
func (b *Blackboard) Set(key string, value any) {
	b.mu.Lock()
	b.data[key] = value
	fn := b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn(key, value, false)
	}
}

// Unset removes a key. Removing an absent key is a no-op and does not
// notify the change observer.
func (b *Blackboard) Unset(key string) {
	b.mu.Lock()
	_, existed := b.data[key]
	delete(b.data, key)
	fn := b.onChange
	b.mu.Unlock()

	if existed && fn != nil {
		fn(key, nil, true)
	}
}

// Keys returns all keys in deterministic order.
func (b *Blackboard) Keys() []string {
	b.mu.RLock()
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	b.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored keys.
func (b *Blackboard) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// Snapshot returns a copy of the current contents. Values are copied by
// reference; callers must treat them as read-only.
func (b *Blackboard) Snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]any, len(b.data))
	for k, v := range b.data {
		out[k] = v
	}
	return out
}

// Restore replaces the contents with the given snapshot. Used by
// hot-reload to carry state across a tree swap. The change observer is
// not invoked.
func (b *Blackboard) Restore(snapshot map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = make(map[string]any, len(snapshot))
	for k, v := range snapshot {
		b.data[k] = v
	}
}
