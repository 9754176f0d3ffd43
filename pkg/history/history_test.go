package history

import (
	"testing"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snap(tick uint64) domain.HistorySnapshot {
	return domain.HistorySnapshot{
		Tick:       tick,
		RootStatus: domain.StatusRunning,
		NodeStatus: map[string]domain.Status{"root": domain.StatusRunning},
	}
}

func ticks(snaps []domain.HistorySnapshot) []uint64 {
	out := make([]uint64, len(snaps))
	for i, s := range snaps {
		out[i] = s.Tick
	}
	return out
}

func TestStore_EvictsOldest(t *testing.T) {
	s := NewStore(3)
	for tick := uint64(1); tick <= 5; tick++ {
		s.Append(snap(tick))
	}

	assert.Equal(t, []uint64{3, 4, 5}, ticks(s.Range(0, 0)))

	_, ok := s.Get(2)
	assert.False(t, ok, "evicted tick should be gone")
	got, ok := s.Get(4)
	require.True(t, ok)
	assert.Equal(t, uint64(4), got.Tick)

	sum := s.Summarize()
	assert.Equal(t, 3, sum.Len)
	assert.Equal(t, 3, sum.Capacity)
	assert.Equal(t, uint64(3), sum.OldestTick)
	assert.Equal(t, uint64(5), sum.NewestTick)
}

func TestStore_Range(t *testing.T) {
	s := NewStore(10)
	for tick := uint64(1); tick <= 6; tick++ {
		s.Append(snap(tick))
	}

	assert.Equal(t, []uint64{2, 3, 4}, ticks(s.Range(2, 4)))
	assert.Equal(t, []uint64{4, 5, 6}, ticks(s.Range(4, 0)))
	assert.Empty(t, s.Range(7, 9))
}

func TestStore_DefaultCapacity(t *testing.T) {
	s := NewStore(0)
	assert.Equal(t, DefaultCapacity, s.Summarize().Capacity)
}

func TestStore_SubscribesToTickCompleted(t *testing.T) {
	e := events.NewEmitter("exec-1")
	s := NewStore(5)
	s.Subscribe(e)

	e.EmitType(domain.EventTickCompleted, domain.TickPayload{Tick: 1, Snapshot: ptr(snap(1))})
	// No snapshot attached: ignored.
	e.EmitType(domain.EventTickCompleted, domain.TickPayload{Tick: 2})
	// Wrong event type: ignored.
	e.EmitType(domain.EventTickStarted, domain.TickPayload{Tick: 3, Snapshot: ptr(snap(3))})

	assert.Equal(t, []uint64{1}, ticks(s.Range(0, 0)))
}

func ptr(s domain.HistorySnapshot) *domain.HistorySnapshot { return &s }
