package executor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/naab-lang/naab/value"
)

// fakeExecutor runs blocks in-process so scheduler behavior can be tested
// without a real foreign runtime. The "source text" selects a canned
// behavior; the run counter backs the idempotence and fail-closed tests.
type fakeExecutor struct {
	tag        string
	delay      time.Duration
	runs       atomic.Int64
	active     atomic.Int64
	peakActive atomic.Int64
	honorCtx   bool
	result     func(block value.Block, args []value.Value) (value.Value, error)
}

func (f *fakeExecutor) Language() string { return f.tag }
func (f *fakeExecutor) Close() error     { return nil }

func (f *fakeExecutor) Run(ctx context.Context, block value.Block, args []value.Value) (value.Value, error) {
	f.runs.Add(1)
	n := f.active.Add(1)
	for {
		peak := f.peakActive.Load()
		if n <= peak || f.peakActive.CompareAndSwap(peak, n) {
			break
		}
	}
	defer f.active.Add(-1)

	if f.delay > 0 {
		if f.honorCtx {
			select {
			case <-time.After(f.delay):
			case <-ctx.Done():
				return value.Null, ctx.Err()
			}
		} else {
			time.Sleep(f.delay)
		}
	}
	if f.result != nil {
		return f.result(block, args)
	}
	return value.Int(40 + 2), nil
}
