package eventkit

import (
	"log/slog"
	"os"
	"time"

	"github.com/randalmurphal/eventkit/pkg/eventkit/config"
	"github.com/randalmurphal/eventkit/pkg/eventkit/observability"
	"github.com/randalmurphal/eventkit/pkg/eventkit/scheduler"
)

// Option configures a Declaration. Options apply to the type-level event and
// every per-instance event resolved from it.
type Option func(*settings)

type settings struct {
	scheduler scheduler.Scheduler
	logger    *slog.Logger
	metrics   observability.MetricsRecorder
	spans     observability.SpanManager
	onError   func(*HandlerError)
	slowAfter time.Duration
}

func newSettings(opts []Option) *settings {
	s := &settings{
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// sched returns the injected scheduler, or the process-wide default as of now.
func (s *settings) sched() scheduler.Scheduler {
	if s.scheduler != nil {
		return s.scheduler
	}
	return scheduler.Default()
}

func (s *settings) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// WithScheduler injects the scheduler dispatch consults on every firing.
// Without it the process-wide scheduler.Default is used.
func WithScheduler(s scheduler.Scheduler) Option {
	return func(c *settings) {
		c.scheduler = s
	}
}

// WithLogger sets the logger for contained handler failures and evictions.
// Without it slog.Default is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *settings) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics using the global meter provider.
func WithMetrics() Option {
	return WithMetricsRecorder(observability.NewMetricsRecorder())
}

// WithMetricsRecorder sets a custom metrics recorder. Nil restores the no-op.
func WithMetricsRecorder(m observability.MetricsRecorder) Option {
	return func(c *settings) {
		if m == nil {
			m = observability.NoopMetrics{}
		}
		c.metrics = m
	}
}

// WithTracing enables OpenTelemetry spans using the global tracer provider.
func WithTracing() Option {
	return WithSpanManager(observability.NewSpanManager())
}

// WithSpanManager sets a custom span manager. Nil restores the no-op.
func WithSpanManager(sm observability.SpanManager) Option {
	return func(c *settings) {
		if sm == nil {
			sm = observability.NoopSpanManager{}
		}
		c.spans = sm
	}
}

// WithErrorHook registers fn to receive every contained handler failure,
// after it has been logged. fn runs on the goroutine that ran the handler.
func WithErrorHook(fn func(*HandlerError)) Option {
	return func(c *settings) {
		c.onError = fn
	}
}

// WithSlowHandlerThreshold logs a warning for every handler invocation that
// takes longer than d. Zero disables the check.
func WithSlowHandlerThreshold(d time.Duration) Option {
	return func(c *settings) {
		c.slowAfter = d
	}
}

// OptionsFromConfig maps configuration keys to declaration options.
//
// Keys:
//
//	metrics:      bool, enable OpenTelemetry metrics
//	tracing:      bool, enable OpenTelemetry spans
//	log_level:    debug|info|warn|error, log to stderr at that level
//	log_format:   json|text, format used with log_level (default json)
//	slow_handler: duration ("250ms", or seconds as a number), see WithSlowHandlerThreshold
func OptionsFromConfig(cfg config.Config) []Option {
	var opts []Option
	if cfg.Bool("metrics", false) {
		opts = append(opts, WithMetrics())
	}
	if cfg.Bool("tracing", false) {
		opts = append(opts, WithTracing())
	}
	if cfg.Has("log_level") {
		handlerOpts := &slog.HandlerOptions{Level: cfg.Level("log_level", slog.LevelInfo)}
		var handler slog.Handler
		if cfg.String("log_format", "json") == "text" {
			handler = slog.NewTextHandler(os.Stderr, handlerOpts)
		} else {
			handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
		}
		opts = append(opts, WithLogger(slog.New(handler)))
	}
	if d := cfg.Duration("slow_handler", 0); d > 0 {
		opts = append(opts, WithSlowHandlerThreshold(d))
	}
	return opts
}
