/*
Package eventkit provides declared, typed events with per-instance and
type-level subscription for code running inside a cooperative scheduler.

# Overview

An event is declared once on an owner type and attached under a name.
Handlers subscribe either at type level, where they observe every firing
of the event on any instance, or on a single instance. Firing an
instance's event runs the type-level handlers first, then the instance's.

	type Order struct{ ID string }

	var Paid = eventkit.Declare[Order, Receipt, struct{}]("Raised once payment clears.").
	    MustAttach("Paid")

	func main() {
	    Paid.Type().Handle(func(ctx context.Context, r Receipt) (struct{}, error) {
	        order, _ := eventkit.SenderAs[Order](ctx)
	        log.Printf("order %s paid %d", order.ID, r.Amount)
	        return struct{}{}, nil
	    })

	    order := &Order{ID: "A-17"}
	    Paid.Resolve(order).Trigger(context.Background(), Receipt{Amount: 42})
	}

# Handlers

A Handler is built with Sync or Async, which fixes how Trigger runs it:

  - Async handlers are always started as independent tasks.
  - Sync handlers are queued for the next loop tick while a loop is
    running, and run inline before Trigger returns otherwise.

SyncMethod and AsyncMethod bind a method expression to a receiver. Their
identity is the (receiver, method) pair, so the same method on the same
receiver registers once however many Handler values are built for it.

# Weak Registration

Register(h, Weak()) does not keep the handler alive. For plain handlers the
entry lives as long as the *Handler; for method handlers, as long as the
receiver. Collected entries are never invoked and are removed eagerly.

# Instance Lifetime

Per-instance events, and weak registrations, end when the collector frees
the instance or receiver. Two kinds of value are never freed:

  - values not allocated on the heap, such as package-level variables. They
    work normally and their events live for the whole process.
  - values of pointer-free types under 16 bytes, which the runtime packs
    into shared blocks. Their events and weak handlers are retained; a
    warning is logged when such an owner type is declared or such a
    receiver is registered weakly. Add a pointer field, or grow the type,
    to make them reclaimable.

Owner types must have non-zero size: Declare panics and NewDeclaration
returns ErrZeroSizeOwner otherwise.

# Failure Containment

Trigger never returns handler failures. Errors and panics are logged with
the event, handler and firing ID, recorded in metrics and spans when those
are enabled, passed to the WithErrorHook callback, and do not prevent the
remaining handlers from running.

CallEach is the exception: it runs handlers synchronously in order,
yields each result, and stops at the first error. Panics propagate.

# Scheduling

Dispatch consults a scheduler.Scheduler on every firing. Inject one with
WithScheduler, or rely on the process-wide scheduler.Default.

# Observability

Metrics and tracing are opt-in via WithMetrics and WithTracing, or from
configuration via OptionsFromConfig. Both use the global OpenTelemetry
providers.
*/
package eventkit
