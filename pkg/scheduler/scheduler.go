/*
Package scheduler drives tick cadence across many execution instances.

Each AUTO or INTERVAL instance gets its own loop goroutine fed by a
command channel; MANUAL instances tick synchronously on the caller.
Commands (pause, resume, stop) are processed between ticks, so an
in-flight tick always completes before the loop reacts. Stop is
terminal for a loop; a stopped instance cannot be restarted.
*/
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/execution"
)

// Mode selects how an instance's ticks are issued.
type Mode string

const (
	// ModeManual ticks only when the caller asks.
	ModeManual Mode = "MANUAL"
	// ModeAuto ticks continuously, yielding between ticks.
	ModeAuto Mode = "AUTO"
	// ModeInterval ticks once per period, queueing a bounded backlog
	// while paused or lagging.
	ModeInterval Mode = "INTERVAL"
)

// DefaultBacklog bounds the INTERVAL backlog when none is configured.
const DefaultBacklog = 10

// LagReport tells the host an INTERVAL instance fell behind and ticks
// were dropped from the backlog.
type LagReport struct {
	ExecutionID string
	Pending     int
	Dropped     int
}

// LagFunc receives lag reports. Called from the loop goroutine.
type LagFunc func(LagReport)

// Config schedules one instance.
type Config struct {
	Mode Mode
	// Interval is the tick period for ModeInterval.
	Interval time.Duration
	// Backlog bounds queued ticks for ModeInterval; 0 means
	// DefaultBacklog.
	Backlog int
	// OnLag is invoked when backlog overflows.
	OnLag LagFunc
}

// Scheduler owns the instance registry and the per-instance loops.
type Scheduler struct {
	log *slog.Logger

	mu     sync.Mutex
	loops  map[string]*loop
	closed bool
}

// Option configures a scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.log = logging.For(logger, "scheduler") }
}

// New creates a scheduler with no instances.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		log:   logging.NewNop(),
		loops: make(map[string]*loop),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers an instance and starts its loop for AUTO/INTERVAL.
// The instance must already be set up.
func (s *Scheduler) Add(inst *execution.Instance, cfg Config) error {
	switch cfg.Mode {
	case ModeManual, ModeAuto:
	case ModeInterval:
		if cfg.Interval <= 0 {
			return fmt.Errorf("interval mode needs a positive interval")
		}
	default:
		return fmt.Errorf("unknown scheduler mode %q", cfg.Mode)
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = DefaultBacklog
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrLoopStopped
	}
	if _, ok := s.loops[inst.ID()]; ok {
		return fmt.Errorf("instance %s already scheduled", inst.ID())
	}

	l := newLoop(inst, cfg, s.log)
	s.loops[inst.ID()] = l
	if cfg.Mode != ModeManual {
		go l.run()
	}
	s.log.Info("instance scheduled", "execution_id", inst.ID(), "mode", string(cfg.Mode))
	return nil
}

// Get returns a scheduled instance.
func (s *Scheduler) Get(id string) (*execution.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loops[id]
	if !ok {
		return nil, domain.ErrInstanceNotFound
	}
	return l.inst, nil
}

// List returns scheduled instances sorted by id.
func (s *Scheduler) List() []*execution.Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*execution.Instance, 0, len(s.loops))
	for _, l := range s.loops {
		out = append(out, l.inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Tick issues n synchronous ticks to a MANUAL instance.
func (s *Scheduler) Tick(ctx context.Context, id string, n int) (execution.TickResult, error) {
	s.mu.Lock()
	l, ok := s.loops[id]
	s.mu.Unlock()
	if !ok {
		return execution.TickResult{}, domain.ErrInstanceNotFound
	}
	if l.cfg.Mode != ModeManual {
		return execution.TickResult{}, fmt.Errorf("instance %s is in %s mode, not MANUAL", id, l.cfg.Mode)
	}
	if l.isStopped() {
		return execution.TickResult{}, domain.ErrLoopStopped
	}
	return l.inst.Tick(ctx, n)
}

// Pause suspends tick issuing. Idempotent.
func (s *Scheduler) Pause(id string) error {
	return s.command(id, cmdPause)
}

// Resume restarts tick issuing after a pause or a debug break.
// Idempotent; returns ErrLoopStopped after Stop.
func (s *Scheduler) Resume(id string) error {
	return s.command(id, cmdResume)
}

// Stop terminally stops an instance's loop and shuts the instance
// down. Any in-flight tick completes first. A second Stop returns
// ErrLoopStopped.
func (s *Scheduler) Stop(ctx context.Context, id string) error {
	s.mu.Lock()
	l, ok := s.loops[id]
	s.mu.Unlock()
	if !ok {
		return domain.ErrInstanceNotFound
	}
	if !l.stop() {
		return domain.ErrLoopStopped
	}
	return l.inst.Shutdown(ctx)
}

// Remove stops an instance (if still running) and drops it from the
// registry.
func (s *Scheduler) Remove(ctx context.Context, id string) error {
	err := s.Stop(ctx, id)
	if err == domain.ErrLoopStopped {
		err = nil
	}
	if err == domain.ErrInstanceNotFound {
		return err
	}

	s.mu.Lock()
	delete(s.loops, id)
	s.mu.Unlock()
	return err
}

// Close stops every instance. The scheduler accepts no new instances
// afterwards.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	loops := make([]*loop, 0, len(s.loops))
	for _, l := range s.loops {
		loops = append(loops, l)
	}
	s.loops = make(map[string]*loop)
	s.mu.Unlock()

	var firstErr error
	for _, l := range loops {
		if !l.stop() {
			continue
		}
		if err := l.inst.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Scheduler) command(id string, c command) error {
	s.mu.Lock()
	l, ok := s.loops[id]
	s.mu.Unlock()
	if !ok {
		return domain.ErrInstanceNotFound
	}
	return l.send(c)
}

type command int

const (
	cmdPause command = iota
	cmdResume
	cmdStop
)

// loop drives one instance. All tick issuing happens on the loop
// goroutine (or the caller for MANUAL), giving each instance a single
// writer.
type loop struct {
	inst *execution.Instance
	cfg  Config
	log  *slog.Logger

	cmds    chan command
	stopped chan struct{}

	mu       sync.Mutex
	stopFlag bool
	paused   bool
}

func newLoop(inst *execution.Instance, cfg Config, log *slog.Logger) *loop {
	return &loop{
		inst:    inst,
		cfg:     cfg,
		log:     log.With(slog.String("execution_id", inst.ID())),
		cmds:    make(chan command, 16),
		stopped: make(chan struct{}),
	}
}

func (l *loop) isStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopFlag
}

// stop requests termination and waits for the loop goroutine to drain.
// Returns false when already stopped.
func (l *loop) stop() bool {
	l.mu.Lock()
	if l.stopFlag {
		l.mu.Unlock()
		return false
	}
	l.stopFlag = true
	l.mu.Unlock()

	if l.cfg.Mode == ModeManual {
		return true
	}
	l.cmds <- cmdStop
	<-l.stopped
	return true
}

func (l *loop) send(c command) error {
	l.mu.Lock()
	stopped := l.stopFlag
	l.mu.Unlock()
	if stopped {
		return domain.ErrLoopStopped
	}
	if l.cfg.Mode == ModeManual {
		// No goroutine to deliver to; apply directly.
		l.apply(c)
		return nil
	}
	l.cmds <- c
	return nil
}

func (l *loop) apply(c command) {
	switch c {
	case cmdPause:
		l.mu.Lock()
		l.paused = true
		l.mu.Unlock()
		l.inst.Debug().Pause()
	case cmdResume:
		l.mu.Lock()
		l.paused = false
		l.mu.Unlock()
		l.inst.Debug().Resume()
	}
}

func (l *loop) idle() bool {
	l.mu.Lock()
	paused := l.paused
	l.mu.Unlock()
	return paused || l.inst.Debug().Paused()
}

func (l *loop) run() {
	defer close(l.stopped)
	switch l.cfg.Mode {
	case ModeAuto:
		l.runAuto()
	case ModeInterval:
		l.runInterval()
	}
}

// runAuto ticks back-to-back, yielding the processor once per tick so
// a busy tree cannot starve the host.
func (l *loop) runAuto() {
	for {
		select {
		case c := <-l.cmds:
			if c == cmdStop {
				return
			}
			l.apply(c)
		default:
			if l.idle() {
				// Blocked on a debug pause; wait for commands.
				select {
				case c := <-l.cmds:
					if c == cmdStop {
						return
					}
					l.apply(c)
				case <-time.After(5 * time.Millisecond):
				}
				continue
			}
			if !l.tickOnce() {
				return
			}
			runtime.Gosched()
		}
	}
}

// runInterval ticks once per period. Periods that elapse while the
// loop is paused or behind queue up, bounded by the backlog; overflow
// is dropped and reported.
func (l *loop) runInterval() {
	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	pending := 0
	for {
		select {
		case c := <-l.cmds:
			if c == cmdStop {
				return
			}
			l.apply(c)
		case <-ticker.C:
			pending++
			if pending > l.cfg.Backlog {
				dropped := pending - l.cfg.Backlog
				pending = l.cfg.Backlog
				l.log.Warn("tick backlog overflow", "pending", pending, "dropped", dropped)
				l.inst.Events().EmitType(domain.EventErrorOccurred, domain.ErrorPayload{
					Message: fmt.Sprintf("interval backlog overflow: %d tick(s) dropped", dropped),
				})
				if l.cfg.OnLag != nil {
					l.cfg.OnLag(LagReport{ExecutionID: l.inst.ID(), Pending: pending, Dropped: dropped})
				}
			}
			for pending > 0 && !l.idle() {
				if !l.tickOnce() {
					return
				}
				pending--
			}
		}
	}
}

// tickOnce issues one tick. Returns false when the loop should exit
// because the instance can no longer run.
func (l *loop) tickOnce() bool {
	if _, err := l.inst.Tick(context.Background(), 1); err != nil {
		l.log.Error("tick failed, stopping loop", "error", err)
		l.mu.Lock()
		l.stopFlag = true
		l.mu.Unlock()
		return false
	}
	return true
}
