/*
Package execution runs one compiled tree: lifecycle, ticking, and the
wiring between the traversal and the event/debug/history subsystems.

An instance is single-writer. Tick, Setup, Shutdown and Reload all
serialize through its lock, so no two ticks of the same instance ever
overlap. Different instances share nothing.
*/
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/canopy/internal/compiler"
	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/pkg/blackboard"
	"github.com/aretw0/canopy/pkg/debug"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/events"
	"github.com/aretw0/canopy/pkg/history"
	"github.com/aretw0/canopy/pkg/node"
)

// State is the lifecycle phase of an instance.
type State string

const (
	StateCreated     State = "CREATED"
	StateInitialized State = "INITIALIZED"
	StateRunning     State = "RUNNING"
	StateShutdown    State = "SHUTDOWN"
)

// TickResult reports one Tick call.
type TickResult struct {
	// Executed is how many ticks actually ran; fewer than requested
	// when a breakpoint, watch or step pauses the batch.
	Executed int
	// Status is the root status after the last executed tick, or the
	// previous status when nothing ran.
	Status domain.Status
	// Paused is true when the debug context stopped the batch.
	Paused bool
}

// Instance executes one compiled tree.
type Instance struct {
	id     string
	treeID string

	mu    sync.Mutex
	state State

	root  node.Node
	index map[string]node.Node

	bb      *blackboard.Blackboard
	scope   *node.Scope
	emitter *events.Emitter
	dbg     *debug.Context
	hist    *history.Store
	log     *slog.Logger

	tick         uint64
	lastStatus   domain.Status
	lastStatuses map[string]domain.Status
	visits       []debug.Visit
}

// Option configures a new instance.
type Option func(*config)

type config struct {
	id              string
	logger          *slog.Logger
	historyCapacity int
	blackboard      *blackboard.Blackboard
}

// WithID overrides the generated instance id.
func WithID(id string) Option {
	return func(c *config) { c.id = id }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithHistoryCapacity bounds the snapshot history.
func WithHistoryCapacity(n int) Option {
	return func(c *config) { c.historyCapacity = n }
}

// WithBlackboard seeds the instance with an existing blackboard.
func WithBlackboard(bb *blackboard.Blackboard) Option {
	return func(c *config) { c.blackboard = bb }
}

// New creates an instance over a compiled tree. The tree is owned by
// the instance from here on.
func New(treeID string, compiled *compiler.Result, opts ...Option) *Instance {
	cfg := config{
		id:     uuid.NewString(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.blackboard == nil {
		cfg.blackboard = blackboard.New()
	}

	inst := &Instance{
		id:           cfg.id,
		treeID:       treeID,
		state:        StateCreated,
		bb:           cfg.blackboard,
		emitter:      events.NewEmitter(cfg.id),
		dbg:          debug.NewContext(),
		hist:         history.NewStore(cfg.historyCapacity),
		log:          logging.For(cfg.logger, "execution").With(slog.String("execution_id", cfg.id)),
		lastStatus:   domain.StatusInvalid,
		lastStatuses: make(map[string]domain.Status),
	}
	inst.hist.Subscribe(inst.emitter)
	inst.mount(compiled)
	return inst
}

// mount wires a compiled tree into the instance's scope and hooks.
// Caller holds the lock (or is the constructor).
func (i *Instance) mount(compiled *compiler.Result) {
	i.root = compiled.Root
	i.index = compiled.Index
	i.lastStatuses = make(map[string]domain.Status, len(compiled.Index))

	i.scope = node.NewScope(i.bb)
	i.scope.OnVisit(func(n node.Node, depth int, st domain.Status) {
		i.visits = append(i.visits, debug.Visit{NodeID: n.ID(), Depth: depth, Status: st})
		i.emitter.EmitType(domain.EventNodeVisited, domain.NodeVisitPayload{
			NodeID: n.ID(), Depth: depth, Status: st,
		})
		if prev := i.lastStatuses[n.ID()]; prev != st {
			i.lastStatuses[n.ID()] = st
			i.emitter.EmitType(domain.EventNodeStatusChanged, domain.StatusChangePayload{
				NodeID: n.ID(), From: prev, To: st,
			})
		}
	})
	i.scope.OnFault(func(n node.Node, err error) {
		i.log.Error("node fault contained", "node_id", n.ID(), "error", err)
		i.emitter.EmitType(domain.EventErrorOccurred, domain.ErrorPayload{
			NodeID: n.ID(), Message: err.Error(),
		})
	})
	i.bb.SetOnChange(func(key string, value any, deleted bool) {
		i.emitter.EmitType(domain.EventBlackboardUpdated, domain.BlackboardPayload{
			Key: key, Value: value, Deleted: deleted,
		})
	})
}

// ID returns the instance id.
func (i *Instance) ID() string { return i.id }

// TreeID returns the id of the tree document this instance runs.
func (i *Instance) TreeID() string { return i.treeID }

// State returns the lifecycle phase.
func (i *Instance) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Blackboard returns the instance blackboard.
func (i *Instance) Blackboard() *blackboard.Blackboard { return i.bb }

// Events returns the instance's emitter.
func (i *Instance) Events() *events.Emitter { return i.emitter }

// Debug returns the instance's debug context.
func (i *Instance) Debug() *debug.Context { return i.dbg }

// History returns the instance's snapshot history.
func (i *Instance) History() *history.Store { return i.hist }

// Node looks up a runtime node by definition id, expanded subtrees
// included.
func (i *Instance) Node(id string) (node.Node, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	n, ok := i.index[id]
	return n, ok
}

// Root returns the root node.
func (i *Instance) Root() node.Node {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.root
}

// TickCount returns the number of ticks executed so far.
func (i *Instance) TickCount() uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.tick
}

// Setup moves Created -> Initialized, running Setup on every node in
// traversal order.
func (i *Instance) Setup(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state != StateCreated {
		return fmt.Errorf("setup in state %s: %w", i.state, domain.ErrInvalidTransition)
	}
	if err := i.setupTree(ctx); err != nil {
		return err
	}
	i.state = StateInitialized
	i.log.Info("instance initialized", "tree_id", i.treeID)
	i.emitter.EmitType(domain.EventExecutionStarted, nil)
	return nil
}

func (i *Instance) setupTree(ctx context.Context) error {
	var err error
	node.Walk(i.root, func(n node.Node) {
		if err != nil {
			return
		}
		if e := n.Setup(ctx, i.scope); e != nil {
			err = fmt.Errorf("setup node %s: %w", n.ID(), e)
		}
	})
	return err
}

// Tick executes up to n ticks. It returns early when the debug context
// pauses the instance; a traversal in progress always completes its
// tick first.
func (i *Instance) Tick(ctx context.Context, n int) (TickResult, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	switch i.state {
	case StateInitialized:
		i.state = StateRunning
	case StateRunning:
	default:
		return TickResult{}, fmt.Errorf("tick in state %s: %w", i.state, domain.ErrInvalidTransition)
	}

	res := TickResult{Status: i.lastStatus}
	for t := 0; t < n; t++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if i.dbg.Paused() {
			res.Paused = true
			break
		}

		// Pre-tick watches. A firing watch pauses before this tick runs.
		for _, w := range i.dbg.EvaluateWatches(i.bb) {
			i.emitter.EmitType(domain.EventWatchTriggered, w)
		}
		if i.dbg.Paused() {
			res.Paused = true
			break
		}

		i.tick++
		i.scope.SetTickNum(i.tick)
		i.visits = i.visits[:0]
		i.emitter.EmitType(domain.EventTickStarted, domain.TickPayload{Tick: i.tick})

		st := i.scope.TickNode(ctx, i.root)
		i.lastStatus = st
		res.Executed++
		res.Status = st

		// Post-tick breakpoints, then stepping if nothing hit.
		hit, errs := i.dbg.EvaluateBreakpoints(i.visits, i.bb)
		for _, err := range errs {
			i.log.Warn("breakpoint condition failed", "error", err)
			i.emitter.EmitType(domain.EventErrorOccurred, domain.ErrorPayload{Message: err.Error()})
		}
		if hit != nil {
			i.emitter.EmitType(domain.EventBreakpointHit, *hit)
		} else {
			i.dbg.EvaluateStep(i.visits)
		}

		snap := i.snapshot()
		i.emitter.EmitType(domain.EventTickCompleted, domain.TickPayload{
			Tick: i.tick, Status: st, Snapshot: &snap,
		})
		if st.Terminal() {
			i.emitter.EmitType(domain.EventExecutionComplete, domain.TickPayload{Tick: i.tick, Status: st})
		}

		if i.dbg.Paused() {
			res.Paused = true
			break
		}
	}
	return res, nil
}

func (i *Instance) snapshot() domain.HistorySnapshot {
	statuses := make(map[string]domain.Status, len(i.index))
	for id, n := range i.index {
		statuses[id] = n.Status()
	}
	return domain.HistorySnapshot{
		Tick:       i.tick,
		Timestamp:  time.Now(),
		RootStatus: i.root.Status(),
		NodeStatus: statuses,
		Blackboard: i.bb.Snapshot(),
	}
}

// Reload swaps in a newly compiled tree while preserving the
// blackboard, tick counter, history and debug state. The old tree is
// shut down and the new one set up when the instance was already
// initialized.
func (i *Instance) Reload(ctx context.Context, compiled *compiler.Result) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state == StateShutdown {
		return fmt.Errorf("reload in state %s: %w", i.state, domain.ErrInvalidTransition)
	}

	initialized := i.state != StateCreated
	if initialized {
		if err := i.shutdownTree(ctx); err != nil {
			return err
		}
	}
	i.mount(compiled)
	if initialized {
		if err := i.setupTree(ctx); err != nil {
			return err
		}
	}
	i.log.Info("instance reloaded", "tree_id", i.treeID, "tick", i.tick)
	return nil
}

// Shutdown is terminal. Safe to call from a goroutine other than the
// one ticking; it waits for any in-flight tick via the instance lock.
func (i *Instance) Shutdown(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state == StateShutdown {
		return fmt.Errorf("already shut down: %w", domain.ErrInvalidTransition)
	}
	err := i.shutdownTree(ctx)
	i.state = StateShutdown
	i.log.Info("instance shut down", "tick", i.tick)
	return err
}

func (i *Instance) shutdownTree(ctx context.Context) error {
	var err error
	node.Walk(i.root, func(n node.Node) {
		if e := n.Shutdown(ctx, i.scope); e != nil && err == nil {
			err = fmt.Errorf("shutdown node %s: %w", n.ID(), e)
		}
	})
	return err
}
