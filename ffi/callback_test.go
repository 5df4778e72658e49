package ffi

import (
	"errors"
	"strings"
	"testing"

	"github.com/naab-lang/naab/value"
)

func addClosure() *value.Closure {
	return &value.Closure{
		Name:  "add",
		Arity: 2,
		Fn: func(args []value.Value) (value.Value, error) {
			return value.Int(args[0].AsInt() + args[1].AsInt()), nil
		},
	}
}

func TestCallbackHappyPath(t *testing.T) {
	cb := WrapCallback("python", addClosure(), Signature{Params: []value.Kind{value.KindInt, value.KindInt}})
	v, err := cb([]value.Value{value.Int(40), value.Int(2)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.AsInt() != 42 {
		t.Errorf("expected 42, got %v", v)
	}
}

func TestCallbackNilHandle(t *testing.T) {
	cb := WrapCallback("python", nil, Signature{})
	_, err := cb(nil)
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	if !strings.Contains(execErr.Message, "nil host function") {
		t.Errorf("unexpected message %q", execErr.Message)
	}
}

func TestCallbackArityMismatchFailsBeforeHostCode(t *testing.T) {
	ran := false
	fn := &value.Closure{Name: "f", Fn: func([]value.Value) (value.Value, error) {
		ran = true
		return value.Null, nil
	}}
	cb := WrapCallback("javascript", fn, Signature{Params: []value.Kind{value.KindInt}})
	_, err := cb([]value.Value{value.Int(1), value.Int(2)})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ran {
		t.Error("host function must not run on arity mismatch")
	}
}

func TestCallbackTypeMismatch(t *testing.T) {
	cb := WrapCallback("javascript", addClosure(), Signature{Params: []value.Kind{value.KindInt, value.KindInt}})
	_, err := cb([]value.Value{value.Int(1), value.Str("two")})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(verr.Reason, "expected int, got string") {
		t.Errorf("unexpected reason %q", verr.Reason)
	}
}

func TestCallbackAnyParamAcceptsEverything(t *testing.T) {
	fn := &value.Closure{Name: "id", Fn: func(args []value.Value) (value.Value, error) {
		return args[0], nil
	}}
	cb := WrapCallback("python", fn, Signature{Params: []value.Kind{value.KindNull}})
	v, err := cb([]value.Value{value.Str("anything")})
	if err != nil || v.AsString() != "anything" {
		t.Errorf("any-typed param should pass values through: %v %v", v, err)
	}
}

func TestCallbackHostPanicBecomesTypedError(t *testing.T) {
	fn := &value.Closure{Name: "explode", Fn: func([]value.Value) (value.Value, error) {
		panic("nested polyglot failure")
	}}
	cb := WrapCallback("python", fn, Signature{})
	_, err := cb(nil)
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	if execErr.Kind != KindRuntime {
		t.Errorf("expected runtime kind, got %v", execErr.Kind)
	}
	// The trampoline's error is data the executor can hand to the foreign
	// runtime in its native convention.
	ev := execErr.AsValue()
	if msg, _ := ev.AsDict().Get("error"); !strings.Contains(msg.AsString(), "nested polyglot failure") {
		t.Errorf("error value lost the message: %v", ev)
	}
}
