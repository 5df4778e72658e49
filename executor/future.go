package executor

import (
	"context"
	"sync"

	"github.com/naab-lang/naab/value"
)

// FutureState is the lifecycle of a future: Pending, then exactly one
// transition to Resolved or Rejected.
type FutureState uint8

const (
	Pending FutureState = iota
	Resolved
	Rejected
)

// Future is the handle returned by Spawn. Forcing blocks until the task
// completes and then yields the stored outcome; a second force returns the
// same outcome without re-executing the block.
type Future struct {
	done chan struct{}

	mu    sync.Mutex
	state FutureState
	val   value.Value
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// resolve completes the future with a value. The first transition wins;
// later calls are ignored.
func (f *Future) resolve(v value.Value) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Pending {
		return
	}
	f.state = Resolved
	f.val = v
	close(f.done)
}

// reject completes the future with an error.
func (f *Future) reject(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Pending {
		return
	}
	f.state = Rejected
	f.err = err
	close(f.done)
}

// Force blocks until the future completes, then returns the stored value or
// re-raises the stored error. Idempotent.
func (f *Future) Force() (value.Value, error) {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.val, f.err
}

// ForceContext is Force with caller cancellation. The task itself keeps
// running; only the wait is abandoned.
func (f *Future) ForceContext(ctx context.Context) (value.Value, error) {
	select {
	case <-f.done:
		return f.Force()
	case <-ctx.Done():
		return value.Null, ctx.Err()
	}
}

// Done is closed when the future leaves Pending.
func (f *Future) Done() <-chan struct{} { return f.done }

// State reports the current lifecycle state.
func (f *Future) State() FutureState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Value wraps the future as a host value so it can flow through the
// evaluator until something forces it.
func (f *Future) Value() value.Value { return value.Future(f) }

var _ value.Forcer = (*Future)(nil)
