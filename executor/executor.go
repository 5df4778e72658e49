// Package executor provides the polyglot execution core: the per-language
// executor contract, the registry that resolves language tags, and the
// scheduler that runs blocks on workers behind futures.
//
// # Overview
//
// The host evaluator hands a parsed block and already-evaluated argument
// values to the scheduler; the scheduler resolves an executor through the
// registry, validates the arguments fail-closed, and returns a Future
// immediately. The future is forced the first time the evaluator needs the
// concrete value, which is the mechanism behind "parallel by default":
// independent spawns overlap, and a data dependency serializes naturally
// when one block's argument is the forced result of another.
//
// # Adding a language
//
// Implement [Executor], then register a factory:
//
//	reg.Register("ruby", func() (executor.Executor, error) {
//	    return subprocess.New("ruby", "ruby -e '{}'", "", limits), nil
//	}, executor.Parallel)
package executor

import (
	"context"

	"github.com/naab-lang/naab/value"
)

// ConcurrencyPolicy declares whether a language's runtime tolerates true
// parallel execution or needs its tasks serialized behind a single lock
// (the moral equivalent of a global interpreter lock). It is an explicit
// declaration per executor, never an incidental property of how the runtime
// happens to be embedded.
type ConcurrencyPolicy uint8

const (
	// Parallel runtimes accept any number of concurrent tasks.
	Parallel ConcurrencyPolicy = iota
	// Serialized runtimes run at most one task at a time; tasks for other
	// language tags are unaffected.
	Serialized
)

func (p ConcurrencyPolicy) String() string {
	if p == Serialized {
		return "serialized"
	}
	return "parallel"
}

// Executor runs blocks for one language. Run is invoked on a scheduler
// worker; implementations must honor ctx cancellation where the underlying
// runtime allows it, and must translate foreign failures into *ffi.ExecError
// (compile, runtime, or resource kind) rather than returning raw runtime
// errors.
type Executor interface {
	// Language returns the tag this executor serves (e.g. "python").
	Language() string

	// Run executes the block with marshalled arguments bound to the block's
	// bound-variable names and returns the block's result value.
	Run(ctx context.Context, block value.Block, args []value.Value) (value.Value, error)

	// Close releases any long-lived runtime the executor holds.
	Close() error
}

// Factory builds an executor lazily, once per language tag. A factory error
// means the foreign runtime could not be started and surfaces as a resource
// error on every task for that tag.
type Factory func() (Executor, error)
