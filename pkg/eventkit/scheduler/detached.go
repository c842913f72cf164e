package scheduler

import (
	"context"
	"log/slog"
)

// Detached is the scheduler used when no cooperative loop exists.
// CallSoon runs the callback immediately on the caller's goroutine; Go
// starts a tracked goroutine.
type Detached struct {
	logger *slog.Logger
	tasks  *tasks
}

// NewDetached creates a Detached scheduler. WithLogger and WithMaxTasks apply;
// other loop options are ignored.
func NewDetached(opts ...LoopOption) *Detached {
	cfg := loopConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Detached{
		logger: cfg.logger,
		tasks:  newTasks(cfg.logger, cfg.maxTasks),
	}
}

// Compile-time interface check.
var _ Scheduler = (*Detached)(nil)

// State always returns NoLoop.
func (d *Detached) State() State {
	return NoLoop
}

// CallSoon runs fn now.
func (d *Detached) CallSoon(fn func()) {
	protect(d.logger, "callback", fn)
}

// Go starts fn as a tracked task.
func (d *Detached) Go(fn func()) {
	d.tasks.spawn(fn)
}

// Wait blocks until no task started with Go is in flight.
func (d *Detached) Wait(ctx context.Context) error {
	return d.tasks.wait(ctx)
}

// InFlight returns the number of tasks that have not completed.
func (d *Detached) InFlight() int {
	return d.tasks.count()
}
