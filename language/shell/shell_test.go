package shell

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/naab-lang/naab/ffi"
	"github.com/naab-lang/naab/value"
)

func run(t *testing.T, src string, bound []string, args []value.Value) (value.Value, error) {
	t.Helper()
	e := New(ffi.DefaultLimits())
	return e.Run(context.Background(), value.NewBlock("shell", src, bound), args)
}

func TestCapturesBothStreams(t *testing.T) {
	v, err := run(t, `echo out; echo err 1>&2`, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := v.AsDict()
	if code, _ := d.Get("exit_code"); code.AsInt() != 0 {
		t.Errorf("exit_code = %v", code)
	}
	if out, _ := d.Get("stdout"); out.AsString() != "out" {
		t.Errorf("stdout = %q", out.AsString())
	}
	if errOut, _ := d.Get("stderr"); errOut.AsString() != "err" {
		t.Errorf("stderr = %q", errOut.AsString())
	}
}

func TestNonZeroExitSurfacesStderr(t *testing.T) {
	_, err := run(t, `echo broken 1>&2; exit 3`, nil, nil)
	var execErr *ffi.ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	if execErr.Kind != ffi.KindRuntime || execErr.ExitCode != 3 {
		t.Errorf("classification: %+v", execErr)
	}
	if !strings.Contains(execErr.Stderr, "broken") {
		t.Errorf("captured stderr lost: %q", execErr.Stderr)
	}
}

func TestBoundVariablesReachEnvironment(t *testing.T) {
	v, err := run(t, `echo "$greeting, $count"`,
		[]string{"greeting", "count"},
		[]value.Value{value.Str("hello"), value.Int(7)},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, _ := v.AsDict().Get("stdout")
	if out.AsString() != "hello, 7" {
		t.Errorf("stdout = %q", out.AsString())
	}
}

func TestContainerBindingIsJSON(t *testing.T) {
	v, err := run(t, `echo "$items"`,
		[]string{"items"},
		[]value.Value{value.List(value.Int(1), value.Int(2))},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, _ := v.AsDict().Get("stdout")
	if out.AsString() != "[1,2]" {
		t.Errorf("stdout = %q", out.AsString())
	}
}

func TestDeadlineBecomesTimeout(t *testing.T) {
	e := New(ffi.DefaultLimits())
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := e.Run(ctx, value.NewBlock("shell", "sleep 5", nil), nil)
	var execErr *ffi.ExecError
	if !errors.As(err, &execErr) || execErr.Kind != ffi.KindTimeout {
		t.Errorf("expected timeout classification, got %v", err)
	}
}

func TestBoundCountMismatch(t *testing.T) {
	_, err := run(t, `true`, []string{"a"}, nil)
	var verr *ffi.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}
