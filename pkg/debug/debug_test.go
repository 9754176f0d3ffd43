package debug

import (
	"testing"

	"github.com/aretw0/canopy/pkg/blackboard"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakpoint_Unconditional(t *testing.T) {
	c := NewContext()
	require.NoError(t, c.SetBreakpoint("move", ""))

	visits := []Visit{
		{NodeID: "scan", Depth: 1, Status: domain.StatusSuccess},
		{NodeID: "move", Depth: 1, Status: domain.StatusRunning},
		{NodeID: "root", Depth: 0, Status: domain.StatusRunning},
	}
	hit, errs := c.EvaluateBreakpoints(visits, blackboard.New())
	require.NotNil(t, hit)
	assert.Empty(t, errs)
	assert.Equal(t, "move", hit.NodeID)
	assert.Equal(t, domain.StatusRunning, hit.Status)
	assert.True(t, c.Paused())
}

func TestBreakpoint_Condition(t *testing.T) {
	c := NewContext()
	bb := blackboard.New()
	bb.Set("battery", 15)
	require.NoError(t, c.SetBreakpoint("move", `status == "FAILURE" && battery < 20`))

	visits := []Visit{{NodeID: "move", Depth: 1, Status: domain.StatusSuccess}}
	hit, errs := c.EvaluateBreakpoints(visits, bb)
	assert.Nil(t, hit, "status clause does not hold")
	assert.Empty(t, errs)
	assert.False(t, c.Paused())

	visits[0].Status = domain.StatusFailure
	hit, _ = c.EvaluateBreakpoints(visits, bb)
	require.NotNil(t, hit)
	assert.True(t, c.Paused())
}

func TestBreakpoint_BadExpressions(t *testing.T) {
	c := NewContext()

	err := c.SetBreakpoint("move", "battery >")
	var exprErr *domain.DebugExpressionError
	require.ErrorAs(t, err, &exprErr)

	// Compiles, but fails at evaluation: treated as not fired.
	require.NoError(t, c.SetBreakpoint("move", `battery + 1`))
	hit, errs := c.EvaluateBreakpoints(
		[]Visit{{NodeID: "move", Depth: 1, Status: domain.StatusSuccess}},
		blackboard.New(),
	)
	assert.Nil(t, hit)
	require.Len(t, errs, 1)
	assert.ErrorAs(t, errs[0], &exprErr)
	assert.False(t, c.Paused())
}

func TestBreakpoint_EnableRemoveList(t *testing.T) {
	c := NewContext()
	require.NoError(t, c.SetBreakpoint("b", ""))
	require.NoError(t, c.SetBreakpoint("a", "x > 1"))

	bps := c.Breakpoints()
	require.Len(t, bps, 2)
	assert.Equal(t, "a", bps[0].NodeID)

	require.NoError(t, c.EnableBreakpoint("b", false))
	hit, _ := c.EvaluateBreakpoints([]Visit{{NodeID: "b", Depth: 0}}, blackboard.New())
	assert.Nil(t, hit)

	c.RemoveBreakpoint("b")
	assert.Len(t, c.Breakpoints(), 1)
	assert.Error(t, c.EnableBreakpoint("b", true))
}

func TestWatch_ThresholdFiresOnEdgeOnly(t *testing.T) {
	c := NewContext()
	bb := blackboard.New()
	require.NoError(t, c.SetWatch("battery_level", WatchGreater, 20))

	var firedAt []any
	for _, v := range []int{25, 15, 10} {
		bb.Set("battery_level", v)
		for _, f := range c.EvaluateWatches(bb) {
			firedAt = append(firedAt, f.Value)
		}
		c.Resume()
	}
	assert.Equal(t, []any{25}, firedAt, "fires once when the condition first holds")
}

func TestWatch_RearmsAfterConditionClears(t *testing.T) {
	c := NewContext()
	bb := blackboard.New()
	require.NoError(t, c.SetWatch("battery_level", WatchGreater, 20))

	var fired int
	for _, v := range []int{25, 25, 15, 30} {
		bb.Set("battery_level", v)
		fired += len(c.EvaluateWatches(bb))
		c.Resume()
	}
	assert.Equal(t, 2, fired, "once at 25, re-armed by 15, again at 30")
}

func TestWatch_Change(t *testing.T) {
	c := NewContext()
	bb := blackboard.New()
	require.NoError(t, c.SetWatch("target", WatchChange, nil))

	// First observation arms without firing, absent or not.
	assert.Empty(t, c.EvaluateWatches(bb))

	bb.Set("target", "dock")
	assert.Len(t, c.EvaluateWatches(bb), 1, "appearance is an edge")
	c.Resume()

	assert.Empty(t, c.EvaluateWatches(bb), "same value, no edge")

	bb.Set("target", "charger")
	assert.Len(t, c.EvaluateWatches(bb), 1)
	c.Resume()

	bb.Unset("target")
	assert.Len(t, c.EvaluateWatches(bb), 1, "disappearance is an edge")
}

func TestWatch_PausesAndReports(t *testing.T) {
	c := NewContext()
	bb := blackboard.New()
	bb.Set("mode", "patrol")
	require.NoError(t, c.SetWatch("mode", WatchEquals, "patrol"))

	fired := c.EvaluateWatches(bb)
	require.Len(t, fired, 1)
	assert.Equal(t, "mode", fired[0].Key)
	assert.Equal(t, string(WatchEquals), fired[0].Kind)
	assert.True(t, c.Paused())
}

func TestWatch_KindsAndValidation(t *testing.T) {
	assert.Error(t, NewContext().SetWatch("k", "SOMETIMES", 1))

	tests := []struct {
		kind   WatchKind
		target any
		value  any
		fires  bool
	}{
		{WatchEquals, 5, 5.0, true},
		{WatchNotEquals, 5, 7, true},
		{WatchLess, 10, 3, true},
		{WatchGreaterOrEqual, 10, 10, true},
		{WatchLessOrEqual, 10, 11, false},
		{WatchGreater, 10, "high", false}, // incomparable, never fires
	}
	for _, tt := range tests {
		c := NewContext()
		bb := blackboard.New()
		bb.Set("k", tt.value)
		require.NoError(t, c.SetWatch("k", tt.kind, tt.target))
		assert.Equal(t, tt.fires, len(c.EvaluateWatches(bb)) == 1,
			"%s target=%v value=%v", tt.kind, tt.target, tt.value)
	}
}

func TestStep_Into(t *testing.T) {
	c := NewContext()
	c.Pause()
	c.Step(StepInto)
	assert.False(t, c.Paused())

	assert.False(t, c.EvaluateStep(nil), "tick with no visits does not satisfy the step")
	assert.True(t, c.EvaluateStep([]Visit{{NodeID: "leaf", Depth: 2}}))
	assert.True(t, c.Paused())
}

func TestStep_OverAndOut(t *testing.T) {
	c := NewContext()

	// Pause at depth 2, as a breakpoint on a leaf would.
	require.NoError(t, c.SetBreakpoint("leaf", ""))
	hit, _ := c.EvaluateBreakpoints([]Visit{{NodeID: "leaf", Depth: 2, Status: domain.StatusRunning}}, blackboard.New())
	require.NotNil(t, hit)

	c.Step(StepOver)
	assert.False(t, c.EvaluateStep([]Visit{{NodeID: "deeper", Depth: 3}}))
	assert.True(t, c.EvaluateStep([]Visit{{NodeID: "deeper", Depth: 3}, {NodeID: "sibling", Depth: 2}}))

	c.Step(StepOut)
	assert.False(t, c.EvaluateStep([]Visit{{NodeID: "sibling", Depth: 2}}))
	assert.True(t, c.EvaluateStep([]Visit{{NodeID: "parent", Depth: 1}}))
}

func TestStep_Continue(t *testing.T) {
	c := NewContext()
	c.Pause()
	c.Step(StepContinue)
	assert.False(t, c.Paused())
	assert.False(t, c.EvaluateStep([]Visit{{NodeID: "any", Depth: 0}}), "no step mode armed")
}
