package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/randalmurphal/eventkit/pkg/eventkit/observability"
)

// tasks tracks spawned goroutines. Every task stays referenced in live until
// it returns, so nothing scheduled can be dropped before it runs.
type tasks struct {
	logger *slog.Logger
	sem    *semaphore.Weighted

	mu   sync.Mutex
	next uint64
	live map[uint64]func()
	idle chan struct{} // closed when live drains to zero
}

func newTasks(logger *slog.Logger, maxTasks int) *tasks {
	t := &tasks{
		logger: logger,
		live:   make(map[uint64]func()),
	}
	if maxTasks > 0 {
		t.sem = semaphore.NewWeighted(int64(maxTasks))
	}
	return t
}

func (t *tasks) spawn(fn func()) {
	t.mu.Lock()
	if len(t.live) == 0 {
		t.idle = make(chan struct{})
	}
	t.next++
	id := t.next
	t.live[id] = fn
	t.mu.Unlock()

	go func() {
		defer t.finish(id)
		if t.sem != nil {
			// Acquire with a background context cannot fail.
			_ = t.sem.Acquire(context.Background(), 1)
			defer t.sem.Release(1)
		}
		protect(t.logger, "task", fn)
	}()
}

func (t *tasks) finish(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.live, id)
	if len(t.live) == 0 && t.idle != nil {
		close(t.idle)
		t.idle = nil
	}
}

// wait blocks until no task is in flight or ctx is done.
func (t *tasks) wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		if len(t.live) == 0 {
			t.mu.Unlock()
			return nil
		}
		idle := t.idle
		t.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (t *tasks) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

// protect runs fn and logs a panic instead of letting it crash the process.
func protect(logger *slog.Logger, scope string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			observability.LogTaskPanic(logger, scope, r)
		}
	}()
	fn()
}
