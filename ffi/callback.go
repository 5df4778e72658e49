package ffi

import (
	"fmt"

	"github.com/naab-lang/naab/value"
)

// Signature declares what a host function expects from foreign callers.
// A param of value.KindNull accepts any serializable kind.
type Signature struct {
	Params   []value.Kind
	Variadic bool
}

// Callback is the validated entry point handed to executors. Foreign code
// reaches host functions only through a Callback, never through the raw
// closure. A Callback never panics and never returns a raw host error: on
// failure both results are delivered as data the executor can translate to
// the foreign runtime's native error convention.
type Callback func(args []value.Value) (value.Value, error)

// WrapCallback builds the trampoline for one host function. On every
// invocation it (1) rejects a nil handle, (2) checks the argument count
// against the signature, (3) checks each argument's marshalled kind — any
// mismatch fails the call before host code runs — and (4) runs the host
// function inside the exception boundary, so an error raised inside it
// (including by a nested polyglot call) comes back as a typed error value.
func WrapCallback(lang string, fn *value.Closure, sig Signature) Callback {
	return func(args []value.Value) (value.Value, error) {
		if fn == nil || fn.Fn == nil {
			return value.Null, &ExecError{
				Kind:     KindRuntime,
				Language: lang,
				Message:  "callback: nil host function handle",
			}
		}
		if err := checkSignature(lang, fn.Name, args, sig); err != nil {
			return value.Null, err
		}
		return RunGuarded(lang, func() (value.Value, error) {
			return fn.Fn(args)
		})
	}
}

func checkSignature(lang, name string, args []value.Value, sig Signature) error {
	if sig.Variadic {
		if len(args) < len(sig.Params) {
			return &ValidationError{
				Language: lang,
				Path:     "callback:" + name,
				Reason:   fmt.Sprintf("argument count mismatch: expected at least %d, got %d", len(sig.Params), len(args)),
			}
		}
	} else if len(args) != len(sig.Params) {
		return &ValidationError{
			Language: lang,
			Path:     "callback:" + name,
			Reason:   fmt.Sprintf("argument count mismatch: expected %d, got %d", len(sig.Params), len(args)),
		}
	}
	for i, want := range sig.Params {
		if want == value.KindNull {
			continue // any
		}
		if got := args[i].Kind(); got != want {
			return &ValidationError{
				Language: lang,
				Path:     fmt.Sprintf("callback:%s args[%d]", name, i),
				Reason:   fmt.Sprintf("type mismatch: expected %s, got %s", want, got),
			}
		}
	}
	return nil
}
