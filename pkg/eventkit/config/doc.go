/*
Package config provides type-safe configuration extraction from map[string]any.

Config wraps a decoded YAML or JSON document and returns defaults for missing
keys or mismatched types, so eventkit components can read their settings
without verbose type assertions.

# Basic Usage

	cfg, err := config.FromFile("events.yaml")
	if err != nil {
	    log.Fatal(err)
	}

	metrics := cfg.Bool("metrics", false)
	level := cfg.Level("log_level", slog.LevelInfo)
	loop := cfg.Section("scheduler")
	maxTasks := loop.Int("max_tasks", 0)

A typical file:

	metrics: true
	tracing: false
	log_level: debug
	scheduler:
	  max_tasks: 64
	  queue_capacity: 128

# Type Coercion

Duration accepts strings ("30s"), numbers (seconds) and time.Duration.
Int accepts float64 values without a fractional part, which is how JSON
numbers decode.

# Thread Safety

Config is safe for concurrent read access. The underlying map is not
modified after creation.
*/
package config
