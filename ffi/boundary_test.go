package ffi

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/naab-lang/naab/value"
)

func TestRunGuardedSuccess(t *testing.T) {
	v, err := RunGuarded("python", func() (value.Value, error) {
		return value.Int(42), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.AsInt() != 42 {
		t.Errorf("expected 42, got %v", v)
	}
}

func TestRunGuardedRecoversPanic(t *testing.T) {
	_, err := RunGuarded("javascript", func() (value.Value, error) {
		panic("boom")
	})
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	if execErr.Kind != KindRuntime || execErr.Language != "javascript" {
		t.Errorf("unexpected classification: %+v", execErr)
	}
	if !strings.Contains(execErr.Message, "boom") {
		t.Errorf("panic payload lost: %q", execErr.Message)
	}
}

func TestRunGuardedWrapsPlainError(t *testing.T) {
	_, err := RunGuarded("python", func() (value.Value, error) {
		return value.Null, fmt.Errorf("read pipe: %w", errors.New("EOF"))
	})
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	if len(execErr.HostTrace) == 0 {
		t.Error("host frames should be attached")
	}
}

func TestUnifiedTraceSpansLanguages(t *testing.T) {
	foreign := &ExecError{
		Kind:     KindRuntime,
		Language: "python",
		Message:  "ZeroDivisionError: division by zero",
		ForeignTrace: []TraceFrame{
			{Language: "python", Function: "compute", File: "<block>", Line: 3},
		},
	}
	_, err := RunGuarded("python", func() (value.Value, error) {
		return value.Null, foreign
	})
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	trace := execErr.UnifiedTrace()
	if !strings.Contains(trace, "ZeroDivisionError") {
		t.Error("foreign message missing from unified trace")
	}
	if !strings.Contains(trace, "[python]") || !strings.Contains(trace, "[naab]") {
		t.Errorf("trace should span both languages:\n%s", trace)
	}
}

func TestValidationErrorPassesThroughUnchanged(t *testing.T) {
	in := &ValidationError{Language: "python", Path: "args[0]", Reason: "bad"}
	_, err := RunGuarded("python", func() (value.Value, error) {
		return value.Null, in
	})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr != in {
		t.Errorf("validation errors must not be reclassified: %v", err)
	}
}
