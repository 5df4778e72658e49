package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/naab-lang/naab/ffi"
	"github.com/naab-lang/naab/value"
)

// Scheduler owns worker dispatch. Spawn launches a task and returns its
// future without blocking; Force on the future is the only suspension point.
type Scheduler struct {
	registry       *Registry
	validator      *ffi.Validator
	limits         ffi.Limits
	defaultTimeout time.Duration
	logger         *slog.Logger
	pool           *semaphore.Weighted // nil when unbounded

	serialMu sync.Mutex
	serial   map[string]*sync.Mutex

	// invocations counts foreign executor invocations; the fail-closed
	// property is that a rejected payload leaves it untouched.
	invocations atomic.Int64
}

// NewScheduler builds a scheduler over a registry and process limits.
func NewScheduler(reg *Registry, limits ffi.Limits, opts ...SchedulerOption) *Scheduler {
	cfg := defaultSchedulerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	defaultTimeout := cfg.defaultTimeout
	if defaultTimeout <= 0 {
		defaultTimeout = limits.DefaultTimeout
	}

	s := &Scheduler{
		registry:       reg,
		validator:      ffi.NewValidator(limits),
		limits:         limits,
		defaultTimeout: defaultTimeout,
		logger:         logger,
		serial:         make(map[string]*sync.Mutex),
	}
	if cfg.maxWorkers > 0 {
		s.pool = semaphore.NewWeighted(cfg.maxWorkers)
	}
	return s
}

// Limits returns the scheduler's process limits.
func (s *Scheduler) Limits() ffi.Limits { return s.limits }

// ForeignInvocations reports how many times a foreign executor has been
// invoked since the scheduler was created.
func (s *Scheduler) ForeignInvocations() int64 { return s.invocations.Load() }

// Spawn resolves the block's executor, validates the arguments fail-closed,
// snapshots them, and launches execution on a worker. It returns the task's
// future immediately; validation and unknown-language failures are returned
// here, before any foreign process or interpreter is touched.
func (s *Scheduler) Spawn(block value.Block, args []value.Value, opts ...SpawnOption) (*Future, error) {
	cfg := spawnConfig{timeout: s.defaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	exec, policy, err := s.registry.Resolve(block.Language())
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateArguments(args, block.Language()); err != nil {
		return nil, err
	}

	// Snapshot at spawn time: primitives are copied by the value semantics,
	// containers stay reference-shared (loaned, not owned). Copying the
	// slice itself means later host mutation of the argument list cannot
	// race with the in-flight task.
	snapshot := append([]value.Value(nil), args...)

	fut := newFuture()
	go s.runTask(exec, policy, block, snapshot, cfg.timeout, fut)
	return fut, nil
}

type outcome struct {
	val value.Value
	err error
}

func (s *Scheduler) runTask(exec Executor, policy ConcurrencyPolicy, block value.Block, args []value.Value, timeout time.Duration, fut *Future) {
	if s.pool != nil {
		// Acquire with Background: a pool slot is part of being scheduled,
		// not part of the task deadline.
		if err := s.pool.Acquire(context.Background(), 1); err != nil {
			fut.reject(&ffi.ExecError{
				Kind:     ffi.KindResource,
				Language: block.Language(),
				Message:  fmt.Sprintf("worker pool: %v", err),
			})
			return
		}
	}

	var lock *sync.Mutex
	if policy == Serialized {
		lock = s.serialLock(block.Language())
		lock.Lock()
	}

	release := func() {
		if lock != nil {
			lock.Unlock()
		}
		if s.pool != nil {
			s.pool.Release(1)
		}
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	s.invocations.Add(1)
	start := time.Now()

	results := make(chan outcome, 1)
	go func() {
		v, err := ffi.RunGuarded(block.Language(), func() (value.Value, error) {
			return exec.Run(ctx, block, args)
		})
		results <- outcome{v, err}
	}()

	select {
	case out := <-results:
		cancel()
		s.settle(fut, block, out, timeout)
		release()

	case <-ctx.Done():
		// Deadline expired. cancel() already fired via the context; the
		// executor is asked to stop cooperatively. If its runtime offers no
		// interrupt mechanism the worker is detached, never silently
		// dropped: the serial lock and pool slot stay held until it
		// actually finishes, and its completion is logged.
		fut.reject(&ffi.ExecError{
			Kind:     ffi.KindTimeout,
			Language: block.Language(),
			Message:  fmt.Sprintf("block exceeded deadline of %v", timeout),
		})
		go func() {
			out := <-results
			cancel()
			release()
			s.logger.Warn("detached block finished after timeout",
				"language", block.Language(),
				"elapsed", time.Since(start),
				"failed", out.err != nil)
		}()
	}
}

// settle validates the foreign result under the same rules as outbound
// arguments and completes the future.
func (s *Scheduler) settle(fut *Future, block value.Block, out outcome, timeout time.Duration) {
	if out.err != nil {
		// An executor that noticed cancellation itself still reports one
		// uniform timeout error.
		var execErr *ffi.ExecError
		if errors.As(out.err, &execErr) && execErr.Kind == ffi.KindTimeout {
			execErr.Message = fmt.Sprintf("block exceeded deadline of %v", timeout)
		}
		fut.reject(out.err)
		return
	}
	if err := s.validator.ValidateReturn(out.val, block.Language()); err != nil {
		fut.reject(err)
		return
	}
	fut.resolve(out.val)
}

func (s *Scheduler) serialLock(tag string) *sync.Mutex {
	s.serialMu.Lock()
	defer s.serialMu.Unlock()
	if m, ok := s.serial[tag]; ok {
		return m
	}
	m := &sync.Mutex{}
	s.serial[tag] = m
	return m
}
