package executor

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/naab-lang/naab/ffi"
)

// Registry maps language tags to executor descriptors. It is populated at
// startup by the bootstrap collaborator and read-only from task-spawn time
// onward; the RWMutex exists for the registration phase and for Close.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*descriptor
	logger  *slog.Logger
}

// descriptor pairs a factory with its declared concurrency policy. The
// executor itself is built on first resolve and reused for every later task.
type descriptor struct {
	tag     string
	factory Factory
	policy  ConcurrencyPolicy

	once sync.Once
	exec Executor
	err  error
}

// NewRegistry returns an empty registry. A nil logger means slog.Default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{entries: make(map[string]*descriptor), logger: logger}
}

// Register adds a language. Called once per supported language at startup.
// Re-registering a tag replaces the previous descriptor and logs a warning,
// it never fails silently.
func (r *Registry) Register(tag string, factory Factory, policy ConcurrencyPolicy) {
	if factory == nil {
		panic("executor: nil factory for language " + tag)
	}
	r.mu.Lock()
	if _, exists := r.entries[tag]; exists {
		r.logger.Warn("overwriting registered executor", "language", tag)
	}
	r.entries[tag] = &descriptor{tag: tag, factory: factory, policy: policy}
	r.mu.Unlock()
}

// Resolve returns the executor and policy for a tag. The factory runs at
// most once; a factory failure is remembered and surfaces as a resource
// error on every resolve for that tag.
func (r *Registry) Resolve(tag string) (Executor, ConcurrencyPolicy, error) {
	r.mu.RLock()
	d, ok := r.entries[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, Parallel, fmt.Errorf("%w: %q", ffi.ErrUnknownLanguage, tag)
	}

	d.once.Do(func() {
		exec, err := d.factory()
		if err != nil {
			d.err = &ffi.ExecError{
				Kind:     ffi.KindResource,
				Language: tag,
				Message:  fmt.Sprintf("executor start failed: %v", err),
			}
			return
		}
		d.exec = exec
	})
	if d.err != nil {
		return nil, d.policy, d.err
	}
	return d.exec, d.policy, nil
}

// Supported reports whether a tag has a registered executor.
func (r *Registry) Supported(tag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[tag]
	return ok
}

// Languages lists registered tags, sorted for stable output.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.entries))
	for tag := range r.entries {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Close shuts down every instantiated executor. Errors are collected; the
// first one is returned.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var first error
	for _, d := range r.entries {
		if d.exec == nil {
			continue
		}
		if err := d.exec.Close(); err != nil && first == nil {
			first = fmt.Errorf("close %s executor: %w", d.tag, err)
		}
	}
	return first
}
