// Package scheduler is the boundary between eventkit dispatch and the
// cooperative runtime it runs inside.
//
// Dispatch asks a Scheduler three things: is a loop currently running, run
// this on the next tick, and run this as an independent task. Two adapters
// are provided:
//
//   - Loop: a cooperative single-goroutine loop. While Run is active its State
//     is LoopRunning and synchronous handlers are deferred to the next tick.
//   - Detached: no loop at all. Synchronous handlers run inline and tasks run
//     on their own goroutines.
//
// A process-wide default handle is available through Default and SetDefault
// for code that does not inject a Scheduler explicitly.
package scheduler

import (
	"errors"
	"sync"
)

// State is the scheduler state observed at the moment an event fires.
type State int

const (
	// NoLoop means there is no cooperative loop at all.
	NoLoop State = iota

	// LoopIdle means a loop exists but is not currently running.
	LoopIdle

	// LoopRunning means a loop is running and will process queued callbacks.
	LoopRunning
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case NoLoop:
		return "no_loop"
	case LoopIdle:
		return "loop_idle"
	case LoopRunning:
		return "loop_running"
	default:
		return "unknown"
	}
}

// Scheduler is the adapter consumed by event dispatch.
// Implementations must be safe for concurrent use.
type Scheduler interface {
	// State reports the current scheduler state. Callers query it fresh on
	// every firing and never cache it.
	State() State

	// CallSoon schedules fn for the next tick of the loop.
	CallSoon(fn func())

	// Go runs fn as an independent task. The scheduler retains fn until it
	// completes.
	Go(fn func())
}

// ErrLoopRunning is returned when Run or Tick is called on a loop that is already running.
var ErrLoopRunning = errors.New("scheduler: loop already running")

var (
	defaultMu        sync.RWMutex
	defaultScheduler Scheduler
)

// Default returns the process-wide scheduler.
// Until SetDefault is called it is a lazily created Detached scheduler.
func Default() Scheduler {
	defaultMu.RLock()
	s := defaultScheduler
	defaultMu.RUnlock()
	if s != nil {
		return s
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultScheduler == nil {
		defaultScheduler = NewDetached()
	}
	return defaultScheduler
}

// SetDefault installs s as the process-wide scheduler and returns the
// previous one so callers can restore it. A nil s resets to a fresh Detached
// scheduler on next use.
func SetDefault(s Scheduler) Scheduler {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultScheduler
	defaultScheduler = s
	return prev
}

// ResetDefault tears down the process-wide handle.
func ResetDefault() {
	SetDefault(nil)
}
