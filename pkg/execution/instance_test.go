package execution

import (
	"context"
	"testing"

	"github.com/aretw0/canopy/internal/compiler"
	"github.com/aretw0/canopy/pkg/debug"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/node"
	"github.com/aretw0/canopy/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, root domain.TreeNodeDefinition) *compiler.Result {
	t.Helper()
	res, err := compiler.New(registry.Builtins(), nil).Translate(
		context.Background(),
		&domain.TreeDefinition{ID: "test-tree", Root: root},
	)
	require.NoError(t, err)
	return res
}

// countdownTree runs RUNNING for ticks-1 ticks, then SUCCESS.
func countdownTree(t *testing.T, ticks int) *compiler.Result {
	return compile(t, domain.TreeNodeDefinition{
		ID: "root", Type: node.TypeTickCounter,
		Params: map[string]any{"ticks": ticks},
	})
}

func TestInstance_Lifecycle(t *testing.T) {
	ctx := context.Background()
	inst := New("test-tree", countdownTree(t, 2))

	assert.Equal(t, StateCreated, inst.State())
	assert.NotEmpty(t, inst.ID())

	_, err := inst.Tick(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "tick before setup")

	require.NoError(t, inst.Setup(ctx))
	assert.Equal(t, StateInitialized, inst.State())
	assert.ErrorIs(t, inst.Setup(ctx), domain.ErrInvalidTransition, "double setup")

	res, err := inst.Tick(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Executed)
	assert.Equal(t, domain.StatusRunning, res.Status)
	assert.Equal(t, StateRunning, inst.State())

	require.NoError(t, inst.Shutdown(ctx))
	assert.Equal(t, StateShutdown, inst.State())
	assert.ErrorIs(t, inst.Shutdown(ctx), domain.ErrInvalidTransition)
	_, err = inst.Tick(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestInstance_TickBatch(t *testing.T) {
	ctx := context.Background()
	inst := New("test-tree", countdownTree(t, 3))
	require.NoError(t, inst.Setup(ctx))

	res, err := inst.Tick(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Executed)
	assert.Equal(t, domain.StatusSuccess, res.Status)
	assert.Equal(t, uint64(5), inst.TickCount())
	assert.False(t, res.Paused)
}

func TestInstance_Events(t *testing.T) {
	ctx := context.Background()
	inst := New("test-tree", compile(t, domain.TreeNodeDefinition{
		ID: "root", Type: node.TypeSequence,
		Children: []domain.TreeNodeDefinition{
			{ID: "mark", Type: node.TypeBlackboardSet,
				Params: map[string]any{"key": "x", "value": 5}},
			{ID: "done", Type: node.TypeConstant,
				Params: map[string]any{"status": "SUCCESS"}},
		},
	}))

	var types []domain.EventType
	inst.Events().Subscribe(func(ev domain.Event) {
		types = append(types, ev.Type)
	})
	require.NoError(t, inst.Setup(ctx))

	_, err := inst.Tick(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, []domain.EventType{
		domain.EventExecutionStarted,
		domain.EventTickStarted,
		domain.EventBlackboardUpdated,   // x = 5
		domain.EventNodeVisited,         // mark
		domain.EventNodeStatusChanged,   // mark INVALID -> SUCCESS
		domain.EventNodeVisited,         // done
		domain.EventNodeStatusChanged,   // done
		domain.EventNodeVisited,         // root
		domain.EventNodeStatusChanged,   // root
		domain.EventTickCompleted,
		domain.EventExecutionComplete,
	}, types)

	// Unchanged statuses do not re-emit NODE_STATUS_CHANGED.
	types = nil
	_, err = inst.Tick(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.EventType{
		domain.EventTickStarted,
		domain.EventBlackboardUpdated,
		domain.EventNodeVisited,
		domain.EventNodeVisited,
		domain.EventNodeVisited,
		domain.EventTickCompleted,
		domain.EventExecutionComplete,
	}, types)
}

func TestInstance_HistorySnapshots(t *testing.T) {
	ctx := context.Background()
	inst := New("test-tree", compile(t, domain.TreeNodeDefinition{
		ID: "root", Type: node.TypeSequence,
		Children: []domain.TreeNodeDefinition{
			{ID: "mark", Type: node.TypeBlackboardSet,
				Params: map[string]any{"key": "x", "value": 5}},
			{ID: "wait", Type: node.TypeTickCounter,
				Params: map[string]any{"ticks": 3}},
		},
	}))
	require.NoError(t, inst.Setup(ctx))
	_, err := inst.Tick(ctx, 2)
	require.NoError(t, err)

	snaps := inst.History().Range(0, 0)
	require.Len(t, snaps, 2)
	assert.Equal(t, uint64(1), snaps[0].Tick)
	assert.Equal(t, domain.StatusRunning, snaps[0].RootStatus)
	assert.Equal(t, 5, snaps[0].Blackboard["x"])
	assert.Equal(t, domain.StatusRunning, snaps[1].NodeStatus["wait"])
	assert.Equal(t, domain.StatusSuccess, snaps[1].NodeStatus["mark"])
}

func TestInstance_BreakpointPausesBatch(t *testing.T) {
	ctx := context.Background()
	inst := New("test-tree", countdownTree(t, 10))
	require.NoError(t, inst.Setup(ctx))
	require.NoError(t, inst.Debug().SetBreakpoint("root", ""))

	var hits int
	inst.Events().Subscribe(func(domain.Event) { hits++ }, domain.EventBreakpointHit)

	res, err := inst.Tick(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Executed, "breakpoint stops the batch after its tick")
	assert.True(t, res.Paused)
	assert.Equal(t, 1, hits)

	// Still paused: nothing runs.
	res, err = inst.Tick(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Executed)
	assert.True(t, res.Paused)

	inst.Debug().RemoveBreakpoint("root")
	inst.Debug().Resume()
	res, err = inst.Tick(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Executed)
}

func TestInstance_WatchPausesBeforeTick(t *testing.T) {
	ctx := context.Background()
	inst := New("test-tree", countdownTree(t, 10))
	require.NoError(t, inst.Setup(ctx))
	require.NoError(t, inst.Debug().SetWatch("battery_level", debug.WatchGreater, 20))

	var fired []domain.WatchPayload
	inst.Events().Subscribe(func(ev domain.Event) {
		fired = append(fired, ev.Payload.(domain.WatchPayload))
	}, domain.EventWatchTriggered)

	_, err := inst.Tick(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, fired)

	inst.Blackboard().Set("battery_level", 25)
	res, err := inst.Tick(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Executed, "watch fires before the tick runs")
	assert.True(t, res.Paused)
	require.Len(t, fired, 1)
	assert.Equal(t, "battery_level", fired[0].Key)
	assert.Equal(t, uint64(2), inst.TickCount())
}

func TestInstance_Stepping(t *testing.T) {
	ctx := context.Background()
	inst := New("test-tree", countdownTree(t, 10))
	require.NoError(t, inst.Setup(ctx))

	inst.Debug().Pause()
	inst.Debug().Step(debug.StepInto)

	res, err := inst.Tick(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Executed, "step-into runs exactly one tick")
	assert.True(t, res.Paused)
}

func TestInstance_ReloadPreservesRuntimeState(t *testing.T) {
	ctx := context.Background()
	inst := New("test-tree", countdownTree(t, 3))
	require.NoError(t, inst.Setup(ctx))

	inst.Blackboard().Set("x", 5)
	_, err := inst.Tick(ctx, 2)
	require.NoError(t, err)

	require.NoError(t, inst.Reload(ctx, compile(t, domain.TreeNodeDefinition{
		ID: "root", Type: node.TypeBlackboardExists,
		Params: map[string]any{"key": "x"},
	})))

	v, ok := inst.Blackboard().Get("x")
	require.True(t, ok)
	assert.Equal(t, 5, v)
	assert.Equal(t, uint64(2), inst.TickCount())
	assert.Len(t, inst.History().Range(0, 0), 2)

	res, err := inst.Tick(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, res.Status, "new tree sees the preserved blackboard")
	assert.Equal(t, uint64(3), inst.TickCount())
}

func TestInstance_FaultSurfacesAsErrorEvent(t *testing.T) {
	ctx := context.Background()
	inst := New("test-tree", compile(t, domain.TreeNodeDefinition{
		ID: "root", Type: node.TypeEternalGuard,
		// Compiles, but cannot evaluate: nil + 1.
		Params: map[string]any{"condition": "battery + 1"},
		Children: []domain.TreeNodeDefinition{
			{ID: "leaf", Type: node.TypeConstant, Params: map[string]any{"status": "SUCCESS"}},
		},
	}))
	require.NoError(t, inst.Setup(ctx))

	var errors []domain.ErrorPayload
	inst.Events().Subscribe(func(ev domain.Event) {
		errors = append(errors, ev.Payload.(domain.ErrorPayload))
	}, domain.EventErrorOccurred)

	res, err := inst.Tick(ctx, 1)
	require.NoError(t, err, "fault is contained, not returned")
	assert.Equal(t, domain.StatusInvalid, res.Status)
	require.NotEmpty(t, errors)
	assert.Equal(t, "root", errors[0].NodeID)
}
