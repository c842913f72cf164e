package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/randalmurphal/eventkit/pkg/eventkit/config"
)

// Loop is a cooperative scheduler. Callbacks queued with CallSoon run one
// tick at a time on the goroutine executing Run (or Tick); a callback queued
// during a tick runs on the following tick. Tasks started with Go run on
// their own goroutines.
type Loop struct {
	logger   *slog.Logger
	capacity int

	running atomic.Bool

	mu    sync.Mutex
	queue []func()
	wake  chan struct{}

	tasks *tasks
}

// LoopOption configures a Loop.
type LoopOption func(*loopConfig)

type loopConfig struct {
	logger   *slog.Logger
	maxTasks int
	capacity int
}

// WithLogger sets the logger used for panics escaping callbacks and tasks.
func WithLogger(logger *slog.Logger) LoopOption {
	return func(c *loopConfig) {
		c.logger = logger
	}
}

// WithMaxTasks bounds how many tasks started with Go execute at once.
// Excess tasks are still accepted and wait for a slot. Zero means unbounded.
func WithMaxTasks(n int) LoopOption {
	return func(c *loopConfig) {
		c.maxTasks = n
	}
}

// WithQueueCapacity preallocates room for n queued callbacks per tick.
func WithQueueCapacity(n int) LoopOption {
	return func(c *loopConfig) {
		c.capacity = n
	}
}

// LoopOptionsFromConfig maps configuration keys to loop options.
//
// Keys: max_tasks (int), queue_capacity (int).
func LoopOptionsFromConfig(cfg config.Config) []LoopOption {
	var opts []LoopOption
	if n := cfg.Int("max_tasks", 0); n > 0 {
		opts = append(opts, WithMaxTasks(n))
	}
	if n := cfg.Int("queue_capacity", 0); n > 0 {
		opts = append(opts, WithQueueCapacity(n))
	}
	return opts
}

// NewLoop creates an idle loop. Call Run to start processing.
func NewLoop(opts ...LoopOption) *Loop {
	cfg := loopConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Loop{
		logger:   cfg.logger,
		capacity: cfg.capacity,
		queue:    make([]func(), 0, cfg.capacity),
		wake:     make(chan struct{}, 1),
		tasks:    newTasks(cfg.logger, cfg.maxTasks),
	}
}

// Compile-time interface check.
var _ Scheduler = (*Loop)(nil)

// State returns LoopRunning while Run or Tick is executing, LoopIdle otherwise.
func (l *Loop) State() State {
	if l.running.Load() {
		return LoopRunning
	}
	return LoopIdle
}

// CallSoon queues fn for the next tick.
func (l *Loop) CallSoon(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Go starts fn as a tracked task.
func (l *Loop) Go(fn func()) {
	l.tasks.spawn(fn)
}

// Run processes ticks until ctx is done and returns ctx.Err().
// Only one Run may be active on a loop; a concurrent call returns ErrLoopRunning.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer l.running.Store(false)

	for {
		if l.tick() > 0 {
			// Callbacks may have queued more work; check ctx between ticks.
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Tick runs a single tick on the calling goroutine: every callback queued
// before the call. It returns how many callbacks ran.
// It fails with ErrLoopRunning if Run is active.
func (l *Loop) Tick() (int, error) {
	if !l.running.CompareAndSwap(false, true) {
		return 0, ErrLoopRunning
	}
	defer l.running.Store(false)
	return l.tick(), nil
}

func (l *Loop) tick() int {
	l.mu.Lock()
	batch := l.queue
	l.queue = make([]func(), 0, l.capacity)
	l.mu.Unlock()

	for _, fn := range batch {
		protect(l.logger, "callback", fn)
	}
	return len(batch)
}

// Yield waits until every callback queued before the call has run.
// It needs Run active on another goroutine.
func (l *Loop) Yield(ctx context.Context) error {
	done := make(chan struct{})
	l.CallSoon(func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until no task started with Go is in flight.
func (l *Loop) Wait(ctx context.Context) error {
	return l.tasks.wait(ctx)
}

// Pending returns the number of callbacks waiting for the next tick.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// InFlight returns the number of tasks that have not completed.
func (l *Loop) InFlight() int {
	return l.tasks.count()
}
