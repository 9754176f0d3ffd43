package node

import (
	"context"
	"testing"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstant(t *testing.T) {
	ctx := context.Background()
	for _, st := range []domain.Status{domain.StatusSuccess, domain.StatusFailure, domain.StatusRunning} {
		leaf, err := NewConstant("c", "", st)
		require.NoError(t, err)
		assert.Equal(t, st, leaf.Tick(ctx, testScope()))
		assert.Equal(t, st, leaf.Tick(ctx, testScope()))
	}

	_, err := NewConstant("c", "", domain.Status("WEIRD"))
	assert.Error(t, err)
}

func TestTickCounter(t *testing.T) {
	ctx := context.Background()
	leaf, err := NewTickCounter("tc", "", 3)
	require.NoError(t, err)
	s := testScope()

	assert.Equal(t, domain.StatusRunning, leaf.Tick(ctx, s))
	assert.Equal(t, domain.StatusRunning, leaf.Tick(ctx, s))
	assert.Equal(t, domain.StatusSuccess, leaf.Tick(ctx, s))
	// Stays successful once reached.
	assert.Equal(t, domain.StatusSuccess, leaf.Tick(ctx, s))
}

func TestSuccessEveryN(t *testing.T) {
	ctx := context.Background()
	leaf, err := NewSuccessEveryN("n", "", 3)
	require.NoError(t, err)
	s := testScope()

	want := []domain.Status{
		domain.StatusFailure, domain.StatusFailure, domain.StatusSuccess,
		domain.StatusFailure, domain.StatusFailure, domain.StatusSuccess,
	}
	for i, w := range want {
		assert.Equal(t, w, leaf.Tick(ctx, s), "tick %d", i+1)
	}
}

func TestProbabilistic_DeterministicUnderSeed(t *testing.T) {
	ctx := context.Background()
	weights := map[string]float64{"SUCCESS": 0.5, "FAILURE": 0.3, "RUNNING": 0.2}

	sample := func(seed int64) []domain.Status {
		leaf, err := NewProbabilistic("p", "", weights, seed)
		require.NoError(t, err)
		s := testScope()
		out := make([]domain.Status, 20)
		for i := range out {
			out[i] = leaf.Tick(ctx, s)
		}
		return out
	}

	assert.Equal(t, sample(42), sample(42), "same seed, same sequence")
	assert.NotEqual(t, sample(42), sample(43), "different seeds diverge")
}

func TestProbabilistic_DegenerateDistribution(t *testing.T) {
	ctx := context.Background()
	leaf, err := NewProbabilistic("p", "", map[string]float64{"FAILURE": 1}, 7)
	require.NoError(t, err)
	s := testScope()
	for i := 0; i < 10; i++ {
		assert.Equal(t, domain.StatusFailure, leaf.Tick(ctx, s))
	}
}

func TestProbabilistic_Validation(t *testing.T) {
	_, err := NewProbabilistic("p", "", map[string]float64{"NOPE": 1}, 0)
	assert.Error(t, err)
	_, err = NewProbabilistic("p", "", map[string]float64{"SUCCESS": 0}, 0)
	assert.Error(t, err)
	_, err = NewProbabilistic("p", "", map[string]float64{"SUCCESS": -1, "FAILURE": 2}, 0)
	assert.Error(t, err)
}

func TestBlackboardLeaves(t *testing.T) {
	ctx := context.Background()
	s := testScope()

	exists := NewBlackboardExists("e", "", "target")
	assert.Equal(t, domain.StatusFailure, exists.Tick(ctx, s))

	set := NewBlackboardSet("s", "", "target", "pos-1")
	assert.Equal(t, domain.StatusSuccess, set.Tick(ctx, s))
	assert.Equal(t, domain.StatusSuccess, exists.Tick(ctx, s))

	unset := NewBlackboardUnset("u", "", "target")
	assert.Equal(t, domain.StatusSuccess, unset.Tick(ctx, s))
	assert.Equal(t, domain.StatusFailure, exists.Tick(ctx, s))
}

func TestWaitForBlackboard(t *testing.T) {
	ctx := context.Background()
	leaf, err := NewWaitForBlackboard("w", "", "battery", OpGreaterOrEqual, 50)
	require.NoError(t, err)
	s := testScope()

	// Missing key: still waiting.
	assert.Equal(t, domain.StatusRunning, leaf.Tick(ctx, s))

	s.Blackboard().Set("battery", 20)
	assert.Equal(t, domain.StatusRunning, leaf.Tick(ctx, s))

	s.Blackboard().Set("battery", 50)
	assert.Equal(t, domain.StatusSuccess, leaf.Tick(ctx, s))

	// Incomparable value keeps waiting rather than faulting.
	s.Blackboard().Set("battery", "full")
	assert.Equal(t, domain.StatusRunning, leaf.Tick(ctx, s))
}

func TestWaitForBlackboard_UnknownOperator(t *testing.T) {
	_, err := NewWaitForBlackboard("w", "", "k", "~=", 1)
	assert.Error(t, err)
}

func TestCompareHolds(t *testing.T) {
	tests := []struct {
		op   string
		a, b any
		want bool
	}{
		{OpEqual, 5, 5.0, true},
		{OpNotEqual, 5, 6, true},
		{OpGreater, 10, 5, true},
		{OpLess, "a", "b", true},
		{OpGreaterOrEqual, 5, 5, true},
		{OpLessOrEqual, 4, 5, true},
		{OpGreater, "x", 1, false}, // incomparable
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompareHolds(tt.op, tt.a, tt.b), "%v %s %v", tt.a, tt.op, tt.b)
	}
}
