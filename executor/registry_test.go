package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/naab-lang/naab/ffi"
	"github.com/naab-lang/naab/value"
)

func TestResolveUnknownLanguage(t *testing.T) {
	reg := NewRegistry(quietLogger())
	_, _, err := reg.Resolve("fortran")
	if !errors.Is(err, ffi.ErrUnknownLanguage) {
		t.Errorf("expected ErrUnknownLanguage, got %v", err)
	}
}

func TestFactoryRunsOnce(t *testing.T) {
	count := 0
	reg := NewRegistry(quietLogger())
	reg.Register("python", func() (Executor, error) {
		count++
		return &fakeExecutor{tag: "python"}, nil
	}, Parallel)

	for i := 0; i < 3; i++ {
		if _, _, err := reg.Resolve("python"); err != nil {
			t.Fatalf("resolve: %v", err)
		}
	}
	if count != 1 {
		t.Errorf("factory ran %d times, expected once", count)
	}
}

func TestFactoryFailureIsResourceError(t *testing.T) {
	reg := NewRegistry(quietLogger())
	reg.Register("rust", func() (Executor, error) {
		return nil, errors.New("librustffi.so not found")
	}, Parallel)

	for i := 0; i < 2; i++ {
		_, _, err := reg.Resolve("rust")
		var execErr *ffi.ExecError
		if !errors.As(err, &execErr) || execErr.Kind != ffi.KindResource {
			t.Fatalf("expected resource error, got %v", err)
		}
	}
}

func TestPolicyReported(t *testing.T) {
	reg := NewRegistry(quietLogger())
	reg.Register("javascript", func() (Executor, error) {
		return &fakeExecutor{tag: "javascript"}, nil
	}, Serialized)
	_, policy, err := reg.Resolve("javascript")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if policy != Serialized {
		t.Errorf("expected serialized policy, got %v", policy)
	}
}

func TestLanguagesSorted(t *testing.T) {
	reg := NewRegistry(quietLogger())
	for _, tag := range []string{"shell", "javascript", "python"} {
		tag := tag
		reg.Register(tag, func() (Executor, error) { return &fakeExecutor{tag: tag}, nil }, Parallel)
	}
	langs := reg.Languages()
	want := []string{"javascript", "python", "shell"}
	for i := range want {
		if langs[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, langs)
		}
	}
}

func TestRegistryClose(t *testing.T) {
	closed := false
	reg := NewRegistry(quietLogger())
	reg.Register("mock", func() (Executor, error) {
		return &closeTracker{onClose: func() { closed = true }}, nil
	}, Parallel)
	reg.Resolve("mock")
	if err := reg.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !closed {
		t.Error("instantiated executor was not closed")
	}
}

type closeTracker struct {
	onClose func()
}

func (c *closeTracker) Language() string { return "mock" }
func (c *closeTracker) Run(context.Context, value.Block, []value.Value) (value.Value, error) {
	return value.Null, nil
}
func (c *closeTracker) Close() error {
	c.onClose()
	return nil
}
