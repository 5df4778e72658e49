package subprocess

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/naab-lang/naab/ffi"
	"github.com/naab-lang/naab/value"
)

// The tests configure the generic executor with sh itself as the "foreign
// runner" so they exercise the template, temp-file, and parsing paths
// without needing ruby or go toolchains installed.

func shInline(t *testing.T) *Executor {
	t.Helper()
	return New("shgen", `{}`, "", ffi.DefaultLimits())
}

func TestInlineTemplateSubstitution(t *testing.T) {
	e := shInline(t)
	v, err := e.Run(context.Background(), value.NewBlock("shgen", `echo 41`, nil), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if v.Kind() != value.KindInt || v.AsInt() != 41 {
		t.Errorf("expected int 41, got %v", v)
	}
}

func TestFileModeWritesTempSource(t *testing.T) {
	e := New("shfile", `sh {}`, ".sh", ffi.DefaultLimits())
	v, err := e.Run(context.Background(), value.NewBlock("shfile", `printf '"from file"'`, nil), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if v.AsString() != "from file" {
		t.Errorf("got %v", v)
	}
}

func TestJSONOutputBecomesStructure(t *testing.T) {
	e := shInline(t)
	v, err := e.Run(context.Background(),
		value.NewBlock("shgen", `printf '{"n": 3, "items": [1, 2.5]}'`, nil), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := value.NewDict()
	want.Set("items", value.List(value.Int(1), value.Float(2.5)))
	want.Set("n", value.Int(3))
	if !value.Equal(v, value.Dict(want)) {
		t.Errorf("mismatch (got %s, want %s)", v, value.Dict(want))
	}
}

func TestNonJSONOutputIsString(t *testing.T) {
	e := shInline(t)
	v, err := e.Run(context.Background(), value.NewBlock("shgen", `echo plain text here`, nil), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff("plain text here", v.AsString()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyOutputIsNull(t *testing.T) {
	e := shInline(t)
	v, err := e.Run(context.Background(), value.NewBlock("shgen", `true`, nil), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !v.IsNull() {
		t.Errorf("expected null, got %v", v)
	}
}

func TestArgsDeliveredAsJSON(t *testing.T) {
	e := shInline(t)
	v, err := e.Run(context.Background(),
		value.NewBlock("shgen", `printf '%s' "$NAAB_ARGS"`, []string{"x"}),
		[]value.Value{value.Int(9)},
	)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := value.NewDict()
	want.Set("x", value.Int(9))
	if !value.Equal(v, value.Dict(want)) {
		t.Errorf("NAAB_ARGS round trip failed: %v", v)
	}
}

func TestRunnerFailureIsRuntimeError(t *testing.T) {
	e := shInline(t)
	_, err := e.Run(context.Background(), value.NewBlock("shgen", `echo oops 1>&2; exit 2`, nil), nil)
	var execErr *ffi.ExecError
	if !errors.As(err, &execErr) || execErr.Kind != ffi.KindRuntime {
		t.Fatalf("expected runtime error, got %v", err)
	}
	if execErr.ExitCode != 2 || execErr.Stderr != "oops" {
		t.Errorf("lost process details: %+v", execErr)
	}
}
