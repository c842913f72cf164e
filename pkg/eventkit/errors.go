package eventkit

import (
	"errors"
	"fmt"
)

// Sentinel errors for eventkit operations.
var (
	// ErrAlreadyAttached is returned when a declaration is attached twice, or
	// when its owner already has an event under the requested name.
	ErrAlreadyAttached = errors.New("eventkit: event already attached")

	// ErrEmptyName is returned when Attach is called with an empty name.
	ErrEmptyName = errors.New("eventkit: event name is empty")

	// ErrImmutable is returned on any attempt to replace an event slot.
	ErrImmutable = errors.New("eventkit: event slot is read-only")

	// ErrNilHandler is the panic value for a nil handler or receiver.
	ErrNilHandler = errors.New("eventkit: nil handler")

	// ErrZeroSizeOwner is returned by NewDeclaration, and is the panic value of
	// Declare, for an owner type with no size. Distinct values of such a type
	// share one address, so they cannot have distinct events.
	ErrZeroSizeOwner = errors.New("eventkit: owner type has zero size")
)

// HandlerError describes a handler that failed during Trigger.
// Trigger never returns it; it reaches the log, the error hook, metrics and
// the handler span.
type HandlerError struct {
	Event    string
	Handler  string
	Kind     Kind
	FiringID string

	// Err is the error returned by the handler, nil if it panicked.
	Err error

	Panicked  bool
	Recovered any
	Stack     []byte
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("event %s: handler %s panicked: %v", e.Event, e.Handler, e.Recovered)
	}
	return fmt.Sprintf("event %s: handler %s: %v", e.Event, e.Handler, e.Err)
}

// Unwrap returns the handler's error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// ImmutableError is returned by Declaration.Set.
type ImmutableError struct {
	Event    string
	Instance bool
}

// Error implements the error interface.
func (e *ImmutableError) Error() string {
	level := "type"
	if e.Instance {
		level = "instance"
	}
	return fmt.Sprintf("eventkit: cannot assign to event %s on %s", e.Event, level)
}

// Is reports whether target is ErrImmutable.
func (e *ImmutableError) Is(target error) bool {
	return target == ErrImmutable
}
