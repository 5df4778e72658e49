// Package shell executes shell blocks as child processes and returns the
// captured process record as a structured value.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/naab-lang/naab/ffi"
	"github.com/naab-lang/naab/marshal"
	"github.com/naab-lang/naab/value"
)

// Executor runs blocks with `sh -c`. Bound variables are exported to the
// child as environment variables: primitives in their textual form,
// containers as JSON.
type Executor struct {
	shellPath string
	marshal   *marshal.Marshaller
}

// New returns a shell executor bounded by limits.
func New(limits ffi.Limits) *Executor {
	return &Executor{shellPath: "sh", marshal: marshal.New(limits)}
}

// Language returns "shell".
func (e *Executor) Language() string { return "shell" }

// Close is a no-op; nothing outlives a Run call.
func (e *Executor) Close() error { return nil }

// Run executes the block and returns {exit_code, stdout, stderr}. A
// non-zero exit is surfaced as a runtime error carrying the captured
// stderr; a command that cannot start at all is a resource error.
func (e *Executor) Run(ctx context.Context, block value.Block, args []value.Value) (value.Value, error) {
	env, err := e.bindEnv(block, args)
	if err != nil {
		return value.Null, err
	}

	cmd := exec.CommandContext(ctx, e.shellPath, "-c", block.Source())
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return value.Null, &ffi.ExecError{
			Kind:     ffi.KindTimeout,
			Language: "shell",
			Message:  "command killed after deadline",
			Stderr:   trimNewlines(stderr.String()),
		}
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return value.Null, &ffi.ExecError{
				Kind:     ffi.KindRuntime,
				Language: "shell",
				Message:  fmt.Sprintf("command exited with code %d: %s", exitErr.ExitCode(), trimNewlines(stderr.String())),
				ExitCode: exitErr.ExitCode(),
				Stderr:   trimNewlines(stderr.String()),
			}
		}
		return value.Null, &ffi.ExecError{
			Kind:     ffi.KindResource,
			Language: "shell",
			Message:  fmt.Sprintf("start shell: %v", runErr),
		}
	}

	return Result(0, trimNewlines(stdout.String()), trimNewlines(stderr.String())), nil
}

// Result builds the {exit_code, stdout, stderr} record exposed to host code
// via field access.
func Result(exitCode int, stdout, stderr string) value.Value {
	d := value.NewDict()
	d.Set("exit_code", value.Int(int64(exitCode)))
	d.Set("stdout", value.Str(stdout))
	d.Set("stderr", value.Str(stderr))
	return value.Dict(d)
}

// bindEnv exports the block's bound variables to the child environment.
// Missing arguments for bound names were caught by the scheduler's
// validation; a count mismatch here is a programming error in the caller.
func (e *Executor) bindEnv(block value.Block, args []value.Value) ([]string, error) {
	bound := block.Bound()
	if len(args) != len(bound) {
		return nil, &ffi.ValidationError{
			Language: "shell",
			Path:     "args",
			Reason:   fmt.Sprintf("bound variable count mismatch: block binds %d, got %d", len(bound), len(args)),
		}
	}

	env := os.Environ()
	for i, name := range bound {
		f, err := e.marshal.ToForeign(args[i], "shell")
		if err != nil {
			return nil, err
		}
		var text string
		switch t := f.(type) {
		case nil:
			text = ""
		case string:
			text = t
		default:
			data, err := marshal.EncodeJSON(f)
			if err != nil {
				return nil, err
			}
			text = string(data)
		}
		env = append(env, name+"="+text)
	}
	return env, nil
}

func trimNewlines(s string) string {
	return strings.TrimRight(s, "\n")
}
