// Package python executes python blocks through a child CPython process.
// Each run pipes a JSON request into an embedded harness that binds the
// block's variables, captures the trailing expression as the result, and
// reports outcome and traceback through NUL-delimited stdout markers.
package python

import (
	_ "embed"

	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/naab-lang/naab/ffi"
	"github.com/naab-lang/naab/marshal"
	"github.com/naab-lang/naab/value"
)

//go:embed harness.py
var harness string

const (
	resultMarker = "\x00NAAB_RESULT:"
	errorMarker  = "\x00NAAB_ERROR:"
	markerEnd    = "\x00"
)

// Executor runs python blocks. Each task gets a fresh interpreter process,
// so there is no shared interpreter state and no GIL to serialize behind.
type Executor struct {
	pythonPath string
	marshal    *marshal.Marshaller
}

// New locates the python3 binary. A missing interpreter is reported here so
// the registry can surface it as a resource error for every python task.
func New(limits ffi.Limits) (*Executor, error) {
	path, err := exec.LookPath("python3")
	if err != nil {
		return nil, fmt.Errorf("python3 not found: %w", err)
	}
	return &Executor{pythonPath: path, marshal: marshal.New(limits)}, nil
}

// Language returns "python".
func (e *Executor) Language() string { return "python" }

// Close is a no-op; interpreter processes never outlive their Run call.
func (e *Executor) Close() error { return nil }

// Run executes the block and unmarshals its result.
func (e *Executor) Run(ctx context.Context, block value.Block, args []value.Value) (value.Value, error) {
	request, err := e.buildRequest(block, args)
	if err != nil {
		return value.Null, err
	}

	cmd := exec.CommandContext(ctx, e.pythonPath, "-c", harness)
	cmd.Stdin = bytes.NewReader(request)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return value.Null, &ffi.ExecError{
			Kind:     ffi.KindTimeout,
			Language: "python",
			Message:  "interpreter killed after deadline",
		}
	}

	if payload, ok := extractMarker(stdout.String(), errorMarker); ok {
		return value.Null, e.foreignError(payload)
	}
	if payload, ok := extractMarker(stdout.String(), resultMarker); ok {
		f, err := marshal.DecodeJSON([]byte(payload))
		if err != nil {
			return value.Null, &ffi.ExecError{
				Kind:     ffi.KindRuntime,
				Language: "python",
				Message:  fmt.Sprintf("malformed result payload: %v", err),
			}
		}
		return e.marshal.FromForeign(f, "python")
	}

	// No marker at all: the harness itself never ran to completion.
	if runErr != nil {
		return value.Null, &ffi.ExecError{
			Kind:     ffi.KindResource,
			Language: "python",
			Message:  fmt.Sprintf("interpreter failed: %v: %s", runErr, strings.TrimSpace(stderr.String())),
		}
	}
	return value.Null, &ffi.ExecError{
		Kind:     ffi.KindResource,
		Language: "python",
		Message:  "interpreter produced no result marker",
	}
}

func (e *Executor) buildRequest(block value.Block, args []value.Value) ([]byte, error) {
	bound := block.Bound()
	if len(args) != len(bound) {
		return nil, &ffi.ValidationError{
			Language: "python",
			Path:     "args",
			Reason:   fmt.Sprintf("bound variable count mismatch: block binds %d, got %d", len(bound), len(args)),
		}
	}
	bindings := make(map[string]marshal.Foreign, len(bound))
	for i, name := range bound {
		f, err := e.marshal.ToForeign(args[i], "python")
		if err != nil {
			return nil, err
		}
		bindings[name] = f
	}
	return marshal.EncodeJSON(map[string]marshal.Foreign{
		"source": block.Source(),
		"args":   bindings,
	})
}

// foreignError rebuilds a typed error from the harness's error payload.
func (e *Executor) foreignError(payload string) error {
	f, err := marshal.DecodeJSON([]byte(payload))
	if err != nil {
		return &ffi.ExecError{
			Kind:     ffi.KindRuntime,
			Language: "python",
			Message:  fmt.Sprintf("malformed error payload: %v", err),
		}
	}
	obj, _ := f.(map[string]marshal.Foreign)
	kind := ffi.KindRuntime
	if k, _ := obj["kind"].(string); k == "compile" {
		kind = ffi.KindCompile
	}
	msg, _ := obj["message"].(string)

	var frames []ffi.TraceFrame
	if rawFrames, ok := obj["frames"].([]marshal.Foreign); ok {
		for _, rf := range rawFrames {
			fr, ok := rf.(map[string]marshal.Foreign)
			if !ok {
				continue
			}
			fn, _ := fr["function"].(string)
			file, _ := fr["file"].(string)
			line, _ := fr["line"].(int64)
			frames = append(frames, ffi.TraceFrame{
				Language: "python",
				Function: fn,
				File:     file,
				Line:     int(line),
			})
		}
	}
	return &ffi.ExecError{
		Kind:         kind,
		Language:     "python",
		Message:      msg,
		ForeignTrace: frames,
	}
}

// extractMarker finds the last NUL-delimited marker payload in stdout.
// JSON escapes control characters, so a payload can never contain a raw
// NUL of its own.
func extractMarker(out, prefix string) (string, bool) {
	start := strings.LastIndex(out, prefix)
	if start < 0 {
		return "", false
	}
	rest := out[start+len(prefix):]
	end := strings.Index(rest, markerEnd)
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}
