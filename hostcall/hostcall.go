// Package hostcall holds the named host functions an executor may expose to
// foreign code. Every entry is a trampoline built by the ffi package, so a
// foreign caller can never reach a raw host closure.
package hostcall

import (
	"sync"

	"github.com/naab-lang/naab/ffi"
)

// Registry maps callback names to validated trampolines.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]ffi.Callback
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]ffi.Callback)}
}

// Register stores a trampoline under name, replacing any previous entry.
func (r *Registry) Register(name string, cb ffi.Callback) {
	r.mu.Lock()
	r.funcs[name] = cb
	r.mu.Unlock()
}

// Get looks up a trampoline.
func (r *Registry) Get(name string) (ffi.Callback, bool) {
	r.mu.RLock()
	cb, ok := r.funcs[name]
	r.mu.RUnlock()
	return cb, ok
}

// Names lists the registered callback names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	return names
}
