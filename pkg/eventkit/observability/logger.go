// Package observability provides the logging, metrics and tracing hooks used
// by eventkit dispatch.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// Metrics and tracing are opt-in and have no-op implementations when disabled.
// Logging is always on: a contained handler failure must leave a trace.
package observability

import (
	"fmt"
	"log/slog"
	"time"
)

// EnrichLogger adds event context to a logger.
// Returns a new logger with the event field set.
//
// Example:
//
//	enriched := EnrichLogger(logger, "shop.Order.paid")
//	enriched.Info("registering") // includes event
func EnrichLogger(logger *slog.Logger, event string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("event", event))
}

// LogFiring logs the start of one firing of an event.
func LogFiring(logger *slog.Logger, event, firingID string, handlers int) {
	if logger == nil {
		return
	}
	logger.Debug("event fired",
		slog.String("event", event),
		slog.String("firing_id", firingID),
		slog.Int("handlers", handlers),
	)
}

// LogHandlerError logs a handler that returned an error during dispatch.
// The error has been contained; this record is the only place it surfaces.
func LogHandlerError(logger *slog.Logger, event, handler, kind, firingID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("event handler failed",
		slog.String("event", event),
		slog.String("handler", handler),
		slog.String("kind", kind),
		slog.String("firing_id", firingID),
		slog.String("error", err.Error()),
	)
}

// LogHandlerPanic logs a handler that panicked during dispatch.
func LogHandlerPanic(logger *slog.Logger, event, handler, kind, firingID string, recovered any, stack []byte) {
	if logger == nil {
		return
	}
	logger.Error("event handler panicked",
		slog.String("event", event),
		slog.String("handler", handler),
		slog.String("kind", kind),
		slog.String("firing_id", firingID),
		slog.String("panic", fmt.Sprint(recovered)),
		slog.String("stack", string(stack)),
	)
}

// LogEviction logs removal of a weak handler whose referent was collected.
func LogEviction(logger *slog.Logger, event, handler string) {
	if logger == nil {
		return
	}
	logger.Debug("weak handler evicted",
		slog.String("event", event),
		slog.String("handler", handler),
	)
}

// LogSlowHandler warns about a handler invocation that exceeded threshold.
func LogSlowHandler(logger *slog.Logger, event, handler, kind, firingID string, elapsed, threshold time.Duration) {
	if logger == nil {
		return
	}
	logger.Warn("event handler slow",
		slog.String("event", event),
		slog.String("handler", handler),
		slog.String("kind", kind),
		slog.String("firing_id", firingID),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
		slog.Int64("threshold_ms", threshold.Milliseconds()),
	)
}

// LogRetainedType warns that values of a type are never reclaimed once
// weakly referenced. what is "owner" or "receiver"; name identifies the
// type or handler.
func LogRetainedType(logger *slog.Logger, what, name string) {
	if logger == nil {
		return
	}
	logger.Warn("weakly referenced values are never reclaimed",
		slog.String("what", what),
		slog.String("name", name),
		slog.String("reason", "pointer-free type under 16 bytes"),
	)
}

// LogTaskPanic logs a panic that escaped a scheduled callback or task.
// scope is "callback" for loop ticks and "task" for spawned goroutines.
func LogTaskPanic(logger *slog.Logger, scope string, recovered any) {
	if logger == nil {
		return
	}
	logger.Error("scheduled work panicked",
		slog.String("scope", scope),
		slog.String("panic", fmt.Sprint(recovered)),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
//
// Example:
//
//	done := TimedOperation()
//	// ... invoke handler ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
