package python

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/naab-lang/naab/ffi"
	"github.com/naab-lang/naab/value"
)

func newExecutor(t *testing.T) *Executor {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}
	e, err := New(ffi.DefaultLimits())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func run(t *testing.T, e *Executor, source string, bound []string, args ...value.Value) (value.Value, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	return e.Run(ctx, value.NewBlock("python", source, bound), args)
}

func TestLastExpressionResult(t *testing.T) {
	e := newExecutor(t)
	got, err := run(t, e, "x = 2\nx + 40", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Kind() != value.KindInt || got.AsInt() != 42 {
		t.Fatalf("got %v, want 42", got)
	}
}

func TestBoundArguments(t *testing.T) {
	e := newExecutor(t)
	got, err := run(t, e, "greeting + ', ' + str(n)", []string{"greeting", "n"},
		value.Str("hello"), value.Int(7))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Kind() != value.KindString || got.AsString() != "hello, 7" {
		t.Fatalf("got %v, want %q", got, "hello, 7")
	}
}

func TestPrintsDoNotCorruptResult(t *testing.T) {
	e := newExecutor(t)
	got, err := run(t, e, "print('noise')\nprint('more noise')\n[1, 2, 3]", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := value.List(value.Int(1), value.Int(2), value.Int(3))
	if !value.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNoTrailingExpressionIsNull(t *testing.T) {
	e := newExecutor(t)
	got, err := run(t, e, "x = 1", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Kind() != value.KindNull {
		t.Fatalf("got %v, want null", got)
	}
}

func TestSyntaxError(t *testing.T) {
	e := newExecutor(t)
	_, err := run(t, e, "def broken(:", nil)
	var execErr *ffi.ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("want ExecError, got %v", err)
	}
	if execErr.Kind != ffi.KindCompile {
		t.Fatalf("kind = %v, want compile", execErr.Kind)
	}
	if !strings.Contains(execErr.Message, "SyntaxError") {
		t.Fatalf("message %q does not name SyntaxError", execErr.Message)
	}
}

func TestRuntimeErrorCarriesTrace(t *testing.T) {
	e := newExecutor(t)
	_, err := run(t, e, "def inner():\n    return 1 / 0\ninner()", nil)
	var execErr *ffi.ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("want ExecError, got %v", err)
	}
	if execErr.Kind != ffi.KindRuntime {
		t.Fatalf("kind = %v, want runtime", execErr.Kind)
	}
	if !strings.Contains(execErr.Message, "ZeroDivisionError") {
		t.Fatalf("message %q does not name ZeroDivisionError", execErr.Message)
	}
	if len(execErr.ForeignTrace) == 0 {
		t.Fatal("missing foreign trace frames")
	}
	found := false
	for _, fr := range execErr.ForeignTrace {
		if fr.Function == "inner" && fr.File == "<block>" {
			found = true
		}
	}
	if !found {
		t.Fatalf("trace %v does not include inner frame", execErr.ForeignTrace)
	}
}

func TestUnserializableResult(t *testing.T) {
	e := newExecutor(t)
	_, err := run(t, e, "set([1, 2])", nil)
	var execErr *ffi.ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("want ExecError, got %v", err)
	}
	if execErr.Kind != ffi.KindRuntime || !strings.Contains(execErr.Message, "not serializable") {
		t.Fatalf("got %v, want runtime not-serializable error", execErr)
	}
}

func TestTimeout(t *testing.T) {
	e := newExecutor(t)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err := e.Run(ctx, value.NewBlock("python", "import time\ntime.sleep(10)", nil), nil)
	var execErr *ffi.ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("want ExecError, got %v", err)
	}
	if execErr.Kind != ffi.KindTimeout {
		t.Fatalf("kind = %v, want timeout", execErr.Kind)
	}
}

func TestBoundCountMismatch(t *testing.T) {
	e := newExecutor(t)
	_, err := run(t, e, "n", []string{"n"})
	var valErr *ffi.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}
