package eventkit

import (
	"context"
	"iter"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"

	"github.com/randalmurphal/eventkit/pkg/eventkit/observability"
	"github.com/randalmurphal/eventkit/pkg/eventkit/scheduler"
)

// BoundEvent is an event resolved at one level: the owner type, or a single
// instance of it. A per-instance BoundEvent has the type-level one as parent
// and fires it first.
type BoundEvent[P, R any] struct {
	meta     *identity
	cfg      *settings
	parent   *BoundEvent[P, R]
	owner    func() any
	handlers *handlerSet[P, R]
}

func newBoundEvent[P, R any](meta *identity, cfg *settings, parent *BoundEvent[P, R], owner func() any) *BoundEvent[P, R] {
	b := &BoundEvent[P, R]{
		meta:   meta,
		cfg:    cfg,
		parent: parent,
		owner:  owner,
	}
	b.handlers = newHandlerSet[P, R](func(handler string) {
		event := meta.qualname()
		observability.LogEviction(cfg.log(), event, handler)
		cfg.metrics.RecordEviction(context.Background(), event)
	})
	return b
}

// Doc returns the documentation string given to Declare.
func (b *BoundEvent[P, R]) Doc() string {
	return b.meta.doc
}

// QualifiedName returns the declaration's qualified name, or "" before Attach.
func (b *BoundEvent[P, R]) QualifiedName() string {
	return b.meta.qualname()
}

// Parent returns the type-level event for a per-instance event, nil otherwise.
func (b *BoundEvent[P, R]) Parent() *BoundEvent[P, R] {
	return b.parent
}

// Register adds h and returns it unchanged. Registering a handler that is
// already present is a no-op. It panics with ErrNilHandler if h is nil.
func (b *BoundEvent[P, R]) Register(h *Handler[P, R], opts ...RegisterOption) *Handler[P, R] {
	if h == nil {
		panic(ErrNilHandler)
	}
	var cfg registerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.weak && !h.reclaimable() {
		observability.LogRetainedType(b.cfg.log(), "receiver", h.name)
	}
	if b.handlers.add(h, cfg.weak) {
		observability.EnrichLogger(b.cfg.log(), b.meta.qualname()).Debug("handler registered",
			slog.String("handler", h.name),
			slog.String("kind", h.kind.String()),
			slog.Bool("weak", cfg.weak),
		)
	}
	return h
}

// Handle registers fn strongly as a synchronous handler.
func (b *BoundEvent[P, R]) Handle(fn Func[P, R], opts ...HandlerOption) *Handler[P, R] {
	return b.Register(Sync(fn, opts...))
}

// HandleAsync registers fn strongly as an asynchronous handler.
func (b *BoundEvent[P, R]) HandleAsync(fn Func[P, R], opts ...HandlerOption) *Handler[P, R] {
	return b.Register(Async(fn, opts...))
}

// Unregister removes h and reports whether it was registered.
func (b *BoundEvent[P, R]) Unregister(h *Handler[P, R]) bool {
	if h == nil {
		return false
	}
	return b.handlers.remove(h)
}

// Len returns the number of live handlers registered at this level.
func (b *BoundEvent[P, R]) Len() int {
	return b.handlers.len()
}

// sender resolves the owning instance, nil for type-level events or
// collected owners.
func (b *BoundEvent[P, R]) sender() any {
	if b.owner == nil {
		return nil
	}
	return b.owner()
}

// Trigger fires the event with payload. The parent level fires first. Each
// handler runs according to its kind and the scheduler state observed now:
//
//   - async handlers are started as tasks;
//   - sync handlers are queued for the next tick when a loop is running;
//   - otherwise sync handlers run inline, in registration order.
//
// Handler errors and panics are contained: they are logged and never reach
// the caller or stop the remaining handlers.
func (b *BoundEvent[P, R]) Trigger(ctx context.Context, payload P) {
	b.trigger(ctx, firing{id: uuid.NewString(), sender: b.sender()}, payload)
}

// Func returns Trigger as a plain function value.
func (b *BoundEvent[P, R]) Func() func(ctx context.Context, payload P) {
	return b.Trigger
}

func (b *BoundEvent[P, R]) trigger(ctx context.Context, f firing, payload P) {
	if b.parent != nil {
		b.parent.trigger(ctx, f, payload)
	}

	cfg := b.cfg
	event := b.meta.qualname()
	handlers := b.handlers.snapshot()

	cfg.metrics.RecordFiring(ctx, event, len(handlers))
	observability.LogFiring(cfg.log(), event, f.id, len(handlers))
	if len(handlers) == 0 {
		return
	}

	ctx, span := cfg.spans.StartTriggerSpan(ctx, event, f.id)
	defer span.End()
	ctx = withFiring(ctx, f)
	deferred := context.WithoutCancel(ctx)

	sched := cfg.sched()
	loopRunning := sched.State() == scheduler.LoopRunning

	for _, inv := range handlers {
		switch {
		case inv.kind == KindAsync:
			sched.Go(func() { b.invoke(deferred, event, f.id, inv, payload) })
		case loopRunning:
			sched.CallSoon(func() { b.invoke(deferred, event, f.id, inv, payload) })
		default:
			b.invoke(ctx, event, f.id, inv, payload)
		}
	}
}

// invoke runs one handler with failure containment.
func (b *BoundEvent[P, R]) invoke(ctx context.Context, event, firingID string, inv invocation[P, R], payload P) {
	cfg := b.cfg
	kind := inv.kind.String()

	ctx, span := cfg.spans.StartHandlerSpan(ctx, event, inv.name, kind)
	defer span.End()

	elapsed := observability.TimedOperation()
	herr := call(ctx, inv, payload)
	duration := elapsed()
	if cfg.slowAfter > 0 && duration > cfg.slowAfter {
		observability.LogSlowHandler(cfg.log(), event, inv.name, kind, firingID, duration, cfg.slowAfter)
	}

	if herr == nil {
		cfg.metrics.RecordHandler(ctx, event, inv.name, kind, duration, nil)
		cfg.spans.EndSpanWithError(span, nil)
		return
	}

	herr.Event = event
	herr.FiringID = firingID
	cfg.metrics.RecordHandler(ctx, event, inv.name, kind, duration, herr)
	cfg.spans.EndSpanWithError(span, herr)

	if herr.Panicked {
		observability.LogHandlerPanic(cfg.log(), event, inv.name, kind, firingID, herr.Recovered, herr.Stack)
	} else {
		observability.LogHandlerError(cfg.log(), event, inv.name, kind, firingID, herr.Err)
	}
	if cfg.onError != nil {
		cfg.onError(herr)
	}
}

func call[P, R any](ctx context.Context, inv invocation[P, R], payload P) (herr *HandlerError) {
	defer func() {
		if r := recover(); r != nil {
			herr = &HandlerError{
				Handler:   inv.name,
				Kind:      inv.kind,
				Panicked:  true,
				Recovered: r,
				Stack:     debug.Stack(),
			}
		}
	}()

	if _, err := inv.fn(ctx, payload); err != nil {
		return &HandlerError{Handler: inv.name, Kind: inv.kind, Err: err}
	}
	return nil
}

// CallEach returns a lazy sequence of handler results, parent level first,
// each handler called synchronously with no scheduling and regardless of
// kind. The first handler error is yielded and ends the sequence. Panics
// are not contained. Stopping the iteration skips the remaining handlers.
func (b *BoundEvent[P, R]) CallEach(ctx context.Context, payload P) iter.Seq2[R, error] {
	return func(yield func(R, error) bool) {
		b.callEach(ctx, firing{id: uuid.NewString(), sender: b.sender()}, payload, yield)
	}
}

func (b *BoundEvent[P, R]) callEach(ctx context.Context, f firing, payload P, yield func(R, error) bool) bool {
	if b.parent != nil && !b.parent.callEach(ctx, f, payload, yield) {
		return false
	}

	ctx = withFiring(ctx, f)
	for _, inv := range b.handlers.snapshot() {
		r, err := inv.fn(ctx, payload)
		if err != nil {
			yield(r, err)
			return false
		}
		if !yield(r, nil) {
			return false
		}
	}
	return true
}
