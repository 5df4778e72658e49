package executor

import (
	"log/slog"
	"time"
)

// SchedulerOption configures the scheduler at creation time.
type SchedulerOption func(*schedulerConfig)

type schedulerConfig struct {
	logger         *slog.Logger
	maxWorkers     int64
	defaultTimeout time.Duration
}

func defaultSchedulerConfig() schedulerConfig {
	return schedulerConfig{maxWorkers: 0} // 0 = one goroutine per in-flight task
}

// WithLogger sets the logger for detach warnings and registry events.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(c *schedulerConfig) {
		c.logger = l
	}
}

// WithMaxWorkers bounds the number of concurrently executing tasks across
// all languages. Zero means unbounded (a dedicated goroutine per task).
func WithMaxWorkers(n int64) SchedulerOption {
	return func(c *schedulerConfig) {
		c.maxWorkers = n
	}
}

// WithDefaultTimeout overrides the limits' default deadline for tasks
// spawned without an explicit SpawnTimeout.
func WithDefaultTimeout(d time.Duration) SchedulerOption {
	return func(c *schedulerConfig) {
		c.defaultTimeout = d
	}
}

// SpawnOption configures one task.
type SpawnOption func(*spawnConfig)

type spawnConfig struct {
	timeout time.Duration
}

// SpawnTimeout overrides the process default deadline for one block
// (the per-block timeout annotation).
func SpawnTimeout(d time.Duration) SpawnOption {
	return func(c *spawnConfig) {
		c.timeout = d
	}
}
