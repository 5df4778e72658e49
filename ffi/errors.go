// Package ffi owns the trust boundary between host values and foreign
// execution: validation limits, the argument/return validator, the exception
// boundary, and the callback trampoline.
package ffi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/naab-lang/naab/value"
)

// ErrUnknownLanguage is returned when no executor is registered for a tag.
var ErrUnknownLanguage = errors.New("unknown block language")

// ValidationError reports a payload rejected before any foreign execution.
// Path names the offending value (e.g. "args[2].items[5]"). Fail-closed:
// a validation failure means zero foreign processes or interpreters ran.
type ValidationError struct {
	Language string
	Path     string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("ffi validation (%s): %s", e.Language, e.Reason)
	}
	return fmt.Sprintf("ffi validation (%s) at %s: %s", e.Language, e.Path, e.Reason)
}

// ErrorKind classifies a foreign execution failure.
type ErrorKind uint8

const (
	// KindCompile is a foreign syntax error, surfaced verbatim.
	KindCompile ErrorKind = iota
	// KindRuntime is a foreign exception or panic.
	KindRuntime
	// KindTimeout means the task deadline expired.
	KindTimeout
	// KindResource means the foreign runtime or process failed to start.
	KindResource
)

func (k ErrorKind) String() string {
	switch k {
	case KindCompile:
		return "compile error"
	case KindRuntime:
		return "runtime error"
	case KindTimeout:
		return "timeout"
	case KindResource:
		return "resource error"
	default:
		return "error"
	}
}

// TraceFrame is one frame of a stack trace, host or foreign.
type TraceFrame struct {
	Language string
	Function string
	File     string
	Line     int
}

func (f TraceFrame) String() string {
	loc := f.File
	if f.Line > 0 {
		loc = fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	if loc == "" {
		return fmt.Sprintf("  [%s] %s", f.Language, f.Function)
	}
	return fmt.Sprintf("  [%s] %s (%s)", f.Language, f.Function, loc)
}

// ExecError is a foreign failure translated into the host exception model.
// It carries the originating language tag, the foreign message, and any
// foreign stack frames so the user sees one trace spanning both languages.
type ExecError struct {
	Kind         ErrorKind
	Language     string
	Message      string
	ExitCode     int          // subprocess executors only
	Stderr       string       // subprocess executors only
	ForeignTrace []TraceFrame // innermost first
	HostTrace    []TraceFrame
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Language, e.Message)
}

// UnifiedTrace renders the merged foreign+host stack, foreign frames first.
func (e *ExecError) UnifiedTrace() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", e.Error())
	for _, f := range e.ForeignTrace {
		b.WriteString(f.String())
		b.WriteByte('\n')
	}
	for _, f := range e.HostTrace {
		b.WriteString(f.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// AsValue renders the error as a host-visible error value for callbacks:
// foreign runtimes cannot safely receive a host exception object, so errors
// cross the boundary as plain data.
func (e *ExecError) AsValue() value.Value {
	d := value.NewDict()
	d.Set("error", value.Str(e.Message))
	d.Set("kind", value.Str(e.Kind.String()))
	d.Set("language", value.Str(e.Language))
	return value.Dict(d)
}
