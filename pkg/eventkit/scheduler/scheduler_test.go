package scheduler

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventkit/pkg/eventkit/config"
)

// startLoop runs l on a goroutine and waits until it reports LoopRunning.
func startLoop(t *testing.T, l *Loop) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	require.Eventually(t, func() bool { return l.State() == LoopRunning }, time.Second, time.Millisecond)
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "no_loop", NoLoop.String())
	assert.Equal(t, "loop_idle", LoopIdle.String())
	assert.Equal(t, "loop_running", LoopRunning.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestLoopState(t *testing.T) {
	l := NewLoop()
	assert.Equal(t, LoopIdle, l.State())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	require.Eventually(t, func() bool { return l.State() == LoopRunning }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, LoopIdle, l.State())
}

func TestLoopRejectsSecondRun(t *testing.T) {
	l := NewLoop()
	startLoop(t, l)

	err := l.Run(context.Background())
	assert.ErrorIs(t, err, ErrLoopRunning)

	_, err = l.Tick()
	assert.ErrorIs(t, err, ErrLoopRunning)
}

func TestLoopCallSoonRunsInOrder(t *testing.T) {
	l := NewLoop()
	startLoop(t, l)

	var mu sync.Mutex
	var order []int
	for i := range 5 {
		l.CallSoon(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	require.NoError(t, l.Yield(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestTickDefersNestedCallbacks(t *testing.T) {
	l := NewLoop()

	var ran []string
	l.CallSoon(func() {
		ran = append(ran, "outer")
		assert.Equal(t, LoopRunning, l.State())
		l.CallSoon(func() { ran = append(ran, "inner") })
	})

	n, err := l.Tick()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"outer"}, ran)
	assert.Equal(t, 1, l.Pending())

	n, err = l.Tick()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"outer", "inner"}, ran)
	assert.Equal(t, LoopIdle, l.State())
}

func TestLoopContainsCallbackPanic(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoop(WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
	startLoop(t, l)

	var after atomic.Bool
	l.CallSoon(func() { panic("boom") })
	l.CallSoon(func() { after.Store(true) })

	require.NoError(t, l.Yield(context.Background()))
	assert.True(t, after.Load())
	assert.Contains(t, buf.String(), "scheduled work panicked")
}

func TestLoopYieldHonoursContext(t *testing.T) {
	l := NewLoop() // never started
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Yield(ctx), context.DeadlineExceeded)
}

func TestLoopGoTracksTasks(t *testing.T) {
	l := NewLoop()

	release := make(chan struct{})
	var ran atomic.Int32
	for range 3 {
		l.Go(func() {
			<-release
			ran.Add(1)
		})
	}
	assert.Equal(t, 3, l.InFlight())

	close(release)
	require.NoError(t, l.Wait(context.Background()))
	assert.Equal(t, int32(3), ran.Load())
	assert.Equal(t, 0, l.InFlight())
}

func TestLoopMaxTasks(t *testing.T) {
	l := NewLoop(WithMaxTasks(1))

	var current, peak atomic.Int32
	for range 5 {
		l.Go(func() {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			current.Add(-1)
		})
	}

	require.NoError(t, l.Wait(context.Background()))
	assert.Equal(t, int32(1), peak.Load())
}

func TestWaitHonoursContext(t *testing.T) {
	l := NewLoop()
	block := make(chan struct{})
	defer close(block)
	l.Go(func() { <-block })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.DeadlineExceeded)
}

func TestDetached(t *testing.T) {
	d := NewDetached()
	assert.Equal(t, NoLoop, d.State())

	ran := false
	d.CallSoon(func() { ran = true })
	assert.True(t, ran, "CallSoon runs inline without a loop")

	assert.NotPanics(t, func() { d.CallSoon(func() { panic("contained") }) })

	var tasks atomic.Int32
	d.Go(func() { tasks.Add(1) })
	d.Go(func() { panic("contained too") })
	require.NoError(t, d.Wait(context.Background()))
	assert.Equal(t, int32(1), tasks.Load())
	assert.Equal(t, 0, d.InFlight())
}

func TestDefaultHandle(t *testing.T) {
	prev := SetDefault(nil)
	t.Cleanup(func() { SetDefault(prev) })

	s := Default()
	require.NotNil(t, s)
	assert.Equal(t, NoLoop, s.State())
	assert.Same(t, s, Default())

	l := NewLoop()
	SetDefault(l)
	assert.Same(t, Scheduler(l), Default())

	ResetDefault()
	assert.Equal(t, NoLoop, Default().State())
}

func TestLoopOptionsFromConfig(t *testing.T) {
	cfg := config.New(map[string]any{"max_tasks": 2, "queue_capacity": 16})
	opts := LoopOptionsFromConfig(cfg)
	assert.Len(t, opts, 2)

	var c loopConfig
	for _, opt := range opts {
		opt(&c)
	}
	assert.Equal(t, 2, c.maxTasks)
	assert.Equal(t, 16, c.capacity)

	assert.Empty(t, LoopOptionsFromConfig(config.New(nil)))
}
