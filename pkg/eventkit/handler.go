package eventkit

import (
	"context"
	"reflect"
	"runtime"
	"weak"
)

// Kind is how a handler is invoked by Trigger.
type Kind int

const (
	// KindSync handlers run inline when no loop is running, or on the next
	// loop tick when one is.
	KindSync Kind = iota

	// KindAsync handlers always run as independent tasks.
	KindAsync
)

// String returns "sync" or "async".
func (k Kind) String() string {
	if k == KindAsync {
		return "async"
	}
	return "sync"
}

// Func is the signature of every handler. R is the per-handler result
// surfaced by CallEach; Trigger discards it.
type Func[P, R any] func(ctx context.Context, payload P) (R, error)

// Action adapts a handler with no result into a Func.
func Action[P, R any](fn func(ctx context.Context, payload P) error) Func[P, R] {
	return func(ctx context.Context, payload P) (R, error) {
		var zero R
		return zero, fn(ctx, payload)
	}
}

// Handler is a registrable callable. Its identity is its pointer, except for
// handlers built by SyncMethod and AsyncMethod, whose identity is the
// (receiver, method) pair.
type Handler[P, R any] struct {
	name  string
	kind  Kind
	fn    Func[P, R]
	bound *binding[P, R]
}

// binding ties a method handler to its receiver.
type binding[P, R any] struct {
	key  any        // methodKey
	call Func[P, R] // holds the receiver strongly

	// weakCall builds a resolver that holds the receiver weakly. Only called
	// once watch has confirmed the receiver can be collected.
	weakCall func() func() (Func[P, R], bool)
	watch    func(evict func()) runtime.Cleanup

	reclaimable bool
}

// methodKey identifies a (receiver, method) pair. recv is an address only;
// entries keyed by it verify the receiver through a weak pointer.
type methodKey struct {
	recv   uintptr
	method uintptr
}

// HandlerOption configures a Handler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	name string
}

// WithName overrides the name used in logs, metrics and spans.
// The default is the function's symbol name.
func WithName(name string) HandlerOption {
	return func(c *handlerConfig) {
		c.name = name
	}
}

// Sync creates a synchronous handler.
func Sync[P, R any](fn Func[P, R], opts ...HandlerOption) *Handler[P, R] {
	return newHandler(KindSync, fn, opts)
}

// Async creates a handler that always runs as an independent task.
func Async[P, R any](fn Func[P, R], opts ...HandlerOption) *Handler[P, R] {
	return newHandler(KindAsync, fn, opts)
}

// SyncMethod creates a synchronous handler from a receiver and a method
// expression such as (*Cache).Invalidate. Registered weakly, the entry lives
// as long as recv does, however short-lived the returned Handler is.
// Registered strongly, the entry keeps recv alive.
func SyncMethod[T, P, R any](recv *T, method func(*T, context.Context, P) (R, error), opts ...HandlerOption) *Handler[P, R] {
	return newMethodHandler(KindSync, recv, method, opts)
}

// AsyncMethod is SyncMethod for handlers that run as independent tasks.
func AsyncMethod[T, P, R any](recv *T, method func(*T, context.Context, P) (R, error), opts ...HandlerOption) *Handler[P, R] {
	return newMethodHandler(KindAsync, recv, method, opts)
}

func newHandler[P, R any](kind Kind, fn Func[P, R], opts []HandlerOption) *Handler[P, R] {
	if fn == nil {
		panic(ErrNilHandler)
	}
	cfg := handlerConfig{name: funcName(fn)}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Handler[P, R]{name: cfg.name, kind: kind, fn: fn}
}

func newMethodHandler[T, P, R any](kind Kind, recv *T, method func(*T, context.Context, P) (R, error), opts []HandlerOption) *Handler[P, R] {
	if recv == nil || method == nil {
		panic(ErrNilHandler)
	}
	cfg := handlerConfig{name: funcName(method)}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Handler[P, R]{
		name: cfg.name,
		kind: kind,
		bound: &binding[P, R]{
			key: methodKey{recv: reflect.ValueOf(recv).Pointer(), method: reflect.ValueOf(method).Pointer()},
			call: func(ctx context.Context, payload P) (R, error) {
				return method(recv, ctx, payload)
			},
			weakCall: func() func() (Func[P, R], bool) {
				wp := weak.Make(recv)
				// Must capture only wp, never recv.
				return func() (Func[P, R], bool) {
					r := wp.Value()
					if r == nil {
						return nil, false
					}
					return func(ctx context.Context, payload P) (R, error) {
						return method(r, ctx, payload)
					}, true
				}
			},
			watch: func(evict func()) runtime.Cleanup {
				return runtime.AddCleanup(recv, func(fn func()) { fn() }, evict)
			},
			reclaimable: reclaimable(reflect.TypeFor[T]()),
		},
	}
}

// Name returns the handler's name.
func (h *Handler[P, R]) Name() string {
	return h.name
}

// Kind returns how the handler is invoked.
func (h *Handler[P, R]) Kind() Kind {
	return h.kind
}

// key is the handler's identity in a registry.
func (h *Handler[P, R]) key() any {
	if h.bound != nil {
		return h.bound.key
	}
	return weak.Make(h)
}

func (h *Handler[P, R]) strong() Func[P, R] {
	if h.bound != nil {
		return h.bound.call
	}
	return h.fn
}

func (h *Handler[P, R]) weakResolver() func() (Func[P, R], bool) {
	if h.bound != nil {
		return h.bound.weakCall()
	}
	wp := weak.Make(h)
	return func() (Func[P, R], bool) {
		hp := wp.Value()
		if hp == nil {
			return nil, false
		}
		return hp.fn, true
	}
}

// watch arranges for evict to run once the handler's referent is collected.
// It reports false, registering nothing, when the referent is not heap
// allocated and therefore never collected.
func (h *Handler[P, R]) watch(evict func()) (runtime.Cleanup, bool) {
	var c runtime.Cleanup
	if h.bound != nil {
		c = h.bound.watch(evict)
	} else {
		c = runtime.AddCleanup(h, func(fn func()) { fn() }, evict)
	}
	return c, c != (runtime.Cleanup{})
}

// reclaimable reports whether the referent's memory is released when it
// becomes unreachable. Weak references to a method receiver that is not
// reclaimable stay live.
func (h *Handler[P, R]) reclaimable() bool {
	return h.bound == nil || h.bound.reclaimable
}

func funcName(fn any) string {
	if f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()); f != nil {
		return f.Name()
	}
	return "unknown"
}
