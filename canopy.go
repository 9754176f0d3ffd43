package canopy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/canopy/internal/compiler"
	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/pkg/adapters/memory"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/execution"
	"github.com/aretw0/canopy/pkg/node"
	"github.com/aretw0/canopy/pkg/observability"
	"github.com/aretw0/canopy/pkg/ports"
	"github.com/aretw0/canopy/pkg/registry"
	"github.com/aretw0/canopy/pkg/scheduler"
)

// Engine is the top-level entrypoint. It wires a tree store, a node
// registry, the compiler and a scheduler behind one object so hosts
// (CLIs, servers, tests) don't assemble the internals by hand.
type Engine struct {
	store   ports.TreeStore
	reg     *registry.Registry
	comp    *compiler.Compiler
	sched   *scheduler.Scheduler
	logger  *slog.Logger
	metrics *observability.Metrics

	historyCap int
}

// Option configures the Engine during New.
type Option func(*Engine)

// WithStore injects a tree store adapter. Defaults to the in-memory store.
func WithStore(store ports.TreeStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithRegistry injects a node registry. Defaults to the builtin palette;
// use this to add custom node types on top of it.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) {
		e.reg = reg
	}
}

// WithLogger injects a structured logger shared by the scheduler and
// every instance the engine creates. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHistoryCapacity sets the per-instance history ring size.
func WithHistoryCapacity(n int) Option {
	return func(e *Engine) {
		e.historyCap = n
	}
}

// WithMetrics attaches a metrics collector to every instance the
// engine creates.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New builds an engine. Every dependency has a working default, so
// New() with no options yields a fully in-memory engine.
func New(opts ...Option) *Engine {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	if eng.reg == nil {
		eng.reg = registry.Builtins()
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	eng.comp = compiler.New(eng.reg, eng.store)
	eng.sched = scheduler.New(scheduler.WithLogger(logging.For(eng.logger, "scheduler")))
	return eng
}

// Registry returns the node registry backing the engine.
func (e *Engine) Registry() *registry.Registry { return e.reg }

// Store returns the tree store backing the engine.
func (e *Engine) Store() ports.TreeStore { return e.store }

// Scheduler returns the scheduler owning the engine's instances.
func (e *Engine) Scheduler() *scheduler.Scheduler { return e.sched }

// SaveTree persists a definition and returns the version it was stored
// under. Validation happens at instantiation, not on save, so editors
// can persist work-in-progress documents.
func (e *Engine) SaveTree(ctx context.Context, def *domain.TreeDefinition) (string, error) {
	return e.store.Save(ctx, def)
}

// LoadTree retrieves a stored definition. Version "" loads the latest.
func (e *Engine) LoadTree(ctx context.Context, id, version string) (*domain.TreeDefinition, error) {
	return e.store.Load(ctx, id, version)
}

// ListTrees returns summaries of the stored trees matching the filter.
func (e *Engine) ListTrees(ctx context.Context, filter ports.TreeFilter) ([]ports.TreeSummary, error) {
	return e.store.List(ctx, filter)
}

// Versions returns the stored versions of a tree in save order.
func (e *Engine) Versions(ctx context.Context, id string) ([]string, error) {
	return e.store.Versions(ctx, id)
}

// Validate compiles a definition without instantiating it. Returns a
// *domain.SchemaError listing every violation, or nil.
func (e *Engine) Validate(ctx context.Context, def *domain.TreeDefinition) error {
	_, err := e.comp.Translate(ctx, def)
	return err
}

// ExtractTree recovers a definition from a live node tree, for
// round-tripping programmatically assembled trees into the store.
func (e *Engine) ExtractTree(root node.Node) (domain.TreeNodeDefinition, []domain.ExtractionWarning) {
	return e.comp.Extract(root)
}

// CreateInstance compiles the stored tree and registers a runnable
// instance with the scheduler under the given config. The instance is
// returned already set up: the caller ticks it through the scheduler
// (or directly, in MANUAL mode).
func (e *Engine) CreateInstance(ctx context.Context, treeID, version string, cfg scheduler.Config, opts ...execution.Option) (*execution.Instance, error) {
	def, err := e.store.Load(ctx, treeID, version)
	if err != nil {
		return nil, err
	}
	return e.createFrom(ctx, def, cfg, opts...)
}

// CreateInstanceFromDefinition compiles an unsaved definition directly.
// Useful for tests and one-off documents that never touch the store.
func (e *Engine) CreateInstanceFromDefinition(ctx context.Context, def *domain.TreeDefinition, cfg scheduler.Config, opts ...execution.Option) (*execution.Instance, error) {
	return e.createFrom(ctx, def, cfg, opts...)
}

func (e *Engine) createFrom(ctx context.Context, def *domain.TreeDefinition, cfg scheduler.Config, opts ...execution.Option) (*execution.Instance, error) {
	compiled, err := e.comp.Translate(ctx, def)
	if err != nil {
		return nil, err
	}
	instOpts := []execution.Option{
		execution.WithLogger(logging.For(e.logger, "execution")),
	}
	if e.historyCap > 0 {
		instOpts = append(instOpts, execution.WithHistoryCapacity(e.historyCap))
	}
	instOpts = append(instOpts, opts...)

	inst := execution.New(def.ID, compiled, instOpts...)
	if e.metrics != nil {
		e.metrics.Attach(inst.Events())
	}
	if err := inst.Setup(ctx); err != nil {
		return nil, err
	}
	if err := e.sched.Add(inst, cfg); err != nil {
		_ = inst.Shutdown(ctx)
		return nil, err
	}
	return inst, nil
}

// Instance returns a registered instance by id.
func (e *Engine) Instance(id string) (*execution.Instance, error) {
	return e.sched.Get(id)
}

// Instances returns every registered instance.
func (e *Engine) Instances() []*execution.Instance {
	return e.sched.List()
}

// Tick advances a MANUAL-mode instance by n ticks.
func (e *Engine) Tick(ctx context.Context, id string, n int) (execution.TickResult, error) {
	return e.sched.Tick(ctx, id, n)
}

// Reload recompiles the stored tree and hot-swaps it into a running
// instance, preserving blackboard state and history.
func (e *Engine) Reload(ctx context.Context, id, treeID, version string) error {
	inst, err := e.sched.Get(id)
	if err != nil {
		return err
	}
	def, err := e.store.Load(ctx, treeID, version)
	if err != nil {
		return fmt.Errorf("reload %s: %w", id, err)
	}
	compiled, err := e.comp.Translate(ctx, def)
	if err != nil {
		return fmt.Errorf("reload %s: %w", id, err)
	}
	return inst.Reload(ctx, compiled)
}

// Close stops every loop and shuts every instance down. The engine is
// unusable afterwards.
func (e *Engine) Close(ctx context.Context) error {
	return e.sched.Close(ctx)
}
