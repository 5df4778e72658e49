package ffi

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/naab-lang/naab/value"
)

// RunGuarded executes fn and guarantees that no panic and no untyped error
// crosses the boundary: every failure comes back as an *ExecError carrying
// the language tag. Outbound failures (argument preparation, marshalling)
// are raised before the foreign call is attempted, so there is never a
// partially-executed foreign call; inbound foreign failures keep their
// foreign trace and gain the host frames captured at the recovery site.
func RunGuarded(lang string, fn func() (value.Value, error)) (out value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = value.Null
			err = &ExecError{
				Kind:      KindRuntime,
				Language:  lang,
				Message:   fmt.Sprintf("host panic: %v", r),
				HostTrace: hostFrames(3),
			}
		}
	}()

	out, err = fn()
	if err == nil {
		return out, nil
	}

	var execErr *ExecError
	if errors.As(err, &execErr) {
		if len(execErr.HostTrace) == 0 {
			execErr.HostTrace = hostFrames(2)
		}
		return value.Null, execErr
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return value.Null, valErr
	}

	return value.Null, &ExecError{
		Kind:      KindRuntime,
		Language:  lang,
		Message:   err.Error(),
		HostTrace: hostFrames(2),
	}
}

// hostFrames captures the host-side call stack, skipping boundary internals.
func hostFrames(skip int) []TraceFrame {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	var out []TraceFrame
	for {
		f, more := frames.Next()
		out = append(out, TraceFrame{
			Language: "naab",
			Function: f.Function,
			File:     f.File,
			Line:     f.Line,
		})
		if !more || len(out) >= 16 {
			break
		}
	}
	return out
}
