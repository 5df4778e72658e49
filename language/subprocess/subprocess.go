// Package subprocess provides the generic command-template executor: any
// language with a command-line runner can be registered by giving the
// command template (`ruby -e '{}'`, `go run {}`) and, when the runner needs
// a source file instead of inline code, a file extension.
package subprocess

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/naab-lang/naab/ffi"
	"github.com/naab-lang/naab/marshal"
	"github.com/naab-lang/naab/value"
)

// Executor runs one configured language via a child process. The block's
// result is the last line of stdout: parsed as JSON when it is JSON, else
// returned as a trimmed string.
type Executor struct {
	tag       string
	template  string // contains "{}" for the code or file path
	extension string // non-empty switches to temp-file mode
	marshal   *marshal.Marshaller
}

// New builds a generic subprocess executor.
func New(tag, commandTemplate, fileExtension string, limits ffi.Limits) *Executor {
	return &Executor{
		tag:       tag,
		template:  commandTemplate,
		extension: fileExtension,
		marshal:   marshal.New(limits),
	}
}

// Language returns the configured tag.
func (e *Executor) Language() string { return e.tag }

// Close is a no-op; nothing outlives a Run call.
func (e *Executor) Close() error { return nil }

// Run substitutes the source into the command template (writing a temp file
// first when an extension is configured), executes it, and parses stdout.
// Bound variables reach the child as NAAB_ARGS, a JSON object keyed by
// bound name.
func (e *Executor) Run(ctx context.Context, block value.Block, args []value.Value) (value.Value, error) {
	argsJSON, err := e.bindArgs(block, args)
	if err != nil {
		return value.Null, err
	}

	insert := block.Source()
	if e.extension != "" {
		tmp, err := os.CreateTemp("", "naab-*"+e.extension)
		if err != nil {
			return value.Null, &ffi.ExecError{
				Kind:     ffi.KindResource,
				Language: e.tag,
				Message:  fmt.Sprintf("create temp source file: %v", err),
			}
		}
		defer os.Remove(tmp.Name())
		if _, err := tmp.WriteString(block.Source()); err != nil {
			tmp.Close()
			return value.Null, &ffi.ExecError{
				Kind:     ffi.KindResource,
				Language: e.tag,
				Message:  fmt.Sprintf("write temp source file: %v", err),
			}
		}
		tmp.Close()
		insert = tmp.Name()
	}

	line := strings.ReplaceAll(e.template, "{}", insert)
	cmd := exec.CommandContext(ctx, "sh", "-c", line)
	cmd.Env = append(os.Environ(), "NAAB_ARGS="+argsJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return value.Null, &ffi.ExecError{
			Kind:     ffi.KindTimeout,
			Language: e.tag,
			Message:  "process killed after deadline",
		}
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return value.Null, &ffi.ExecError{
				Kind:     ffi.KindRuntime,
				Language: e.tag,
				Message:  fmt.Sprintf("process exited with code %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String())),
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return value.Null, &ffi.ExecError{
			Kind:     ffi.KindResource,
			Language: e.tag,
			Message:  fmt.Sprintf("start %s runner: %v", e.tag, runErr),
		}
	}

	return e.parseOutput(stdout.String())
}

func (e *Executor) bindArgs(block value.Block, args []value.Value) (string, error) {
	bound := block.Bound()
	if len(args) != len(bound) {
		return "", &ffi.ValidationError{
			Language: e.tag,
			Path:     "args",
			Reason:   fmt.Sprintf("bound variable count mismatch: block binds %d, got %d", len(bound), len(args)),
		}
	}
	obj := make(map[string]marshal.Foreign, len(bound))
	for i, name := range bound {
		f, err := e.marshal.ToForeign(args[i], e.tag)
		if err != nil {
			return "", err
		}
		obj[name] = f
	}
	data, err := marshal.EncodeJSON(obj)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// parseOutput turns process stdout into a host value: valid JSON becomes
// the corresponding structure, anything else is a trimmed string, and empty
// output is null.
func (e *Executor) parseOutput(out string) (value.Value, error) {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return value.Null, nil
	}
	if f, err := marshal.DecodeJSON([]byte(trimmed)); err == nil {
		return e.marshal.FromForeign(f, e.tag)
	}
	return parseSimple(trimmed), nil
}

// parseSimple mirrors JSON's scalar forms for runners that print bare
// values without quoting.
func parseSimple(s string) value.Value {
	switch s {
	case "true":
		return value.Bool(true)
	case "false":
		return value.Bool(false)
	case "null", "nil", "None":
		return value.Null
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return value.Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return value.Float(f)
	}
	return value.Str(s)
}
