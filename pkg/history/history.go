// Package history keeps a bounded record of per-tick snapshots so
// debuggers and UIs can scrub backwards through an execution.
package history

import (
	"sync"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/events"
)

// DefaultCapacity bounds a store when no capacity is given.
const DefaultCapacity = 1000

// Store is a ring of snapshots ordered by tick. Once capacity is
// reached the oldest snapshot is evicted on every append.
type Store struct {
	mu   sync.RWMutex
	cap  int
	ring []domain.HistorySnapshot
	head int // index of oldest
	size int
}

// NewStore creates a store. Capacity <= 0 selects DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{cap: capacity, ring: make([]domain.HistorySnapshot, capacity)}
}

// Append records one snapshot, evicting the oldest when full.
func (s *Store) Append(snap domain.HistorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.size < s.cap {
		s.ring[(s.head+s.size)%s.cap] = snap
		s.size++
		return
	}
	s.ring[s.head] = snap
	s.head = (s.head + 1) % s.cap
}

// Get returns the snapshot for an exact tick number.
func (s *Store) Get(tick uint64) (domain.HistorySnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := 0; i < s.size; i++ {
		snap := s.ring[(s.head+i)%s.cap]
		if snap.Tick == tick {
			return snap, true
		}
	}
	return domain.HistorySnapshot{}, false
}

// Range returns retained snapshots with from <= tick <= to, oldest
// first. A zero to means "through the newest".
func (s *Store) Range(from, to uint64) []domain.HistorySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.HistorySnapshot, 0, s.size)
	for i := 0; i < s.size; i++ {
		snap := s.ring[(s.head+i)%s.cap]
		if snap.Tick < from {
			continue
		}
		if to != 0 && snap.Tick > to {
			continue
		}
		out = append(out, snap)
	}
	return out
}

// Summary describes what the store currently retains.
type Summary struct {
	Len        int       `json:"len"`
	Capacity   int       `json:"capacity"`
	OldestTick uint64    `json:"oldest_tick,omitempty"`
	NewestTick uint64    `json:"newest_tick,omitempty"`
	OldestTime time.Time `json:"oldest_time,omitempty"`
	NewestTime time.Time `json:"newest_time,omitempty"`
}

// Summarize reports the retained window.
func (s *Store) Summarize() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := Summary{Len: s.size, Capacity: s.cap}
	if s.size > 0 {
		oldest := s.ring[s.head]
		newest := s.ring[(s.head+s.size-1)%s.cap]
		sum.OldestTick = oldest.Tick
		sum.NewestTick = newest.Tick
		sum.OldestTime = oldest.Timestamp
		sum.NewestTime = newest.Timestamp
	}
	return sum
}

// Subscribe wires the store to an emitter: every TICK_COMPLETED event
// carrying a snapshot is appended. Returns the subscription id.
func (s *Store) Subscribe(e *events.Emitter) string {
	return e.Subscribe(func(ev domain.Event) {
		p, ok := ev.Payload.(domain.TickPayload)
		if !ok || p.Snapshot == nil {
			return
		}
		s.Append(*p.Snapshot)
	}, domain.EventTickCompleted)
}
