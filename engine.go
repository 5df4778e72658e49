package naab

import (
	"log/slog"
	"time"

	"github.com/naab-lang/naab/executor"
	"github.com/naab-lang/naab/ffi"
	"github.com/naab-lang/naab/hostcall"
	"github.com/naab-lang/naab/language/javascript"
	"github.com/naab-lang/naab/language/python"
	"github.com/naab-lang/naab/language/shell"
	"github.com/naab-lang/naab/language/subprocess"
	"github.com/naab-lang/naab/value"
)

// Engine wires the executor registry, scheduler, and host callback registry
// into one entry point. The built-in languages are registered on creation;
// further command-line runners can be added with WithLanguage.
type Engine struct {
	registry  *executor.Registry
	scheduler *executor.Scheduler
	hostcalls *hostcall.Registry
}

type config struct {
	limits     ffi.Limits
	logger     *slog.Logger
	maxWorkers int64
	extra      []extraLanguage
}

type extraLanguage struct {
	tag       string
	template  string
	extension string
	policy    executor.ConcurrencyPolicy
}

// Option configures an Engine.
type Option func(*config)

// WithLimits overrides the default marshalling and validation limits.
func WithLimits(l ffi.Limits) Option {
	return func(c *config) { c.limits = l }
}

// WithLogger sets the structured logger used by the registry and scheduler.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMaxWorkers bounds the number of concurrently running blocks.
func WithMaxWorkers(n int64) Option {
	return func(c *config) { c.maxWorkers = n }
}

// WithLanguage registers an additional language backed by the generic
// subprocess executor. template must contain "{}" for the code (or, when
// fileExtension is non-empty, for a temp source file path).
func WithLanguage(tag, template, fileExtension string, policy executor.ConcurrencyPolicy) Option {
	return func(c *config) {
		c.extra = append(c.extra, extraLanguage{tag, template, fileExtension, policy})
	}
}

// New builds an Engine with python, javascript, and shell registered.
// Executors are instantiated lazily: a missing python3 binary only surfaces
// when a python block is spawned.
func New(opts ...Option) (*Engine, error) {
	cfg := config{
		limits: ffi.DefaultLimits(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	hostcalls := hostcall.NewRegistry()
	registry := executor.NewRegistry(cfg.logger)

	registry.Register("python", func() (executor.Executor, error) {
		return python.New(cfg.limits)
	}, executor.Parallel)
	registry.Register("javascript", func() (executor.Executor, error) {
		return javascript.New(hostcalls, cfg.limits)
	}, executor.Serialized)
	registry.Register("shell", func() (executor.Executor, error) {
		return shell.New(cfg.limits), nil
	}, executor.Parallel)
	for _, lang := range cfg.extra {
		lang := lang
		registry.Register(lang.tag, func() (executor.Executor, error) {
			return subprocess.New(lang.tag, lang.template, lang.extension, cfg.limits), nil
		}, lang.policy)
	}

	schedOpts := []executor.SchedulerOption{executor.WithLogger(cfg.logger)}
	if cfg.maxWorkers > 0 {
		schedOpts = append(schedOpts, executor.WithMaxWorkers(cfg.maxWorkers))
	}

	return &Engine{
		registry:  registry,
		scheduler: executor.NewScheduler(registry, cfg.limits, schedOpts...),
		hostcalls: hostcalls,
	}, nil
}

// Spawn validates the arguments and starts the block without waiting for it.
func (e *Engine) Spawn(block value.Block, args []value.Value, opts ...executor.SpawnOption) (*executor.Future, error) {
	return e.scheduler.Spawn(block, args, opts...)
}

// Run executes the block and blocks until it settles.
func (e *Engine) Run(block value.Block, args []value.Value, opts ...executor.SpawnOption) (value.Value, error) {
	fut, err := e.Spawn(block, args, opts...)
	if err != nil {
		return value.Null, err
	}
	return fut.Force()
}

// RunWithTimeout is Run with a per-block deadline.
func (e *Engine) RunWithTimeout(block value.Block, args []value.Value, timeout time.Duration) (value.Value, error) {
	return e.Run(block, args, executor.SpawnTimeout(timeout))
}

// RegisterCallback exposes a host closure to foreign code under name.
func (e *Engine) RegisterCallback(name string, fn *value.Closure, sig ffi.Signature) {
	hostcall.Bind(e.hostcalls, "javascript", name, fn, sig)
}

// Languages lists the registered language tags, sorted.
func (e *Engine) Languages() []string { return e.registry.Languages() }

// Supported reports whether a language tag is registered.
func (e *Engine) Supported(tag string) bool { return e.registry.Supported(tag) }

// ForeignInvocations reports how many blocks have crossed the boundary.
func (e *Engine) ForeignInvocations() int64 { return e.scheduler.ForeignInvocations() }

// Close shuts down every instantiated executor.
func (e *Engine) Close() error { return e.registry.Close() }
