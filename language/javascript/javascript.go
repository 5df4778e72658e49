// Package javascript executes javascript blocks on an embedded QuickJS
// interpreter compiled to WASM. The interpreter runs inside a wazero
// sandbox, so no system javascript runtime is required; host callbacks
// reach Go through a stderr/stdin protocol.
package javascript

import (
	_ "embed"

	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	quickjswasi "github.com/paralin/go-quickjs-wasi"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/naab-lang/naab/ffi"
	"github.com/naab-lang/naab/hostcall"
	"github.com/naab-lang/naab/marshal"
	"github.com/naab-lang/naab/value"
)

//go:embed stdlib.js
var stdlib string

const (
	resultMarker = "\x00NAAB_RESULT:"
	errorMarker  = "\x00NAAB_ERROR:"
	markerEnd    = "\x00"
)

// The block source is evaluated with eval so the value of a trailing
// expression statement becomes the block's result.
const runner = `
(function () {
    var __result;
    try {
        __result = eval(%s);
    } catch (e) {
        __naab_report_error(e instanceof SyntaxError ? "compile" : "runtime", e);
        return;
    }
    __naab_report_result(__result);
})();
`

// Executor owns one wazero runtime shared by every block it runs. The
// QuickJS module compiles once and is reused; each Run instantiates a fresh
// module so blocks never share interpreter state.
type Executor struct {
	runtime  wazero.Runtime
	registry *hostcall.Registry
	marshal  *marshal.Marshaller

	mu       sync.RWMutex
	compiled wazero.CompiledModule
	closed   bool
}

// New builds the QuickJS executor. The registry supplies the host functions
// reachable from javascript via __naab_call; a nil registry exposes none.
func New(registry *hostcall.Registry, limits ffi.Limits) (*Executor, error) {
	ctx := context.Background()

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}

	if registry == nil {
		registry = hostcall.NewRegistry()
	}
	return &Executor{
		runtime:  rt,
		registry: registry,
		marshal:  marshal.New(limits),
	}, nil
}

// Language returns "javascript".
func (e *Executor) Language() string { return "javascript" }

// Run executes the block in a fresh QuickJS instance.
func (e *Executor) Run(ctx context.Context, block value.Block, args []value.Value) (value.Value, error) {
	wrapped, err := e.wrap(block, args)
	if err != nil {
		return value.Null, err
	}

	compiled, err := e.getCompiled(ctx)
	if err != nil {
		return value.Null, &ffi.ExecError{
			Kind:     ffi.KindResource,
			Language: "javascript",
			Message:  fmt.Sprintf("compile interpreter module: %v", err),
		}
	}

	var stdout bytes.Buffer
	stdinReader, stdinWriter := io.Pipe()
	protocol := newProtocolHandler("javascript", e.registry, e.marshal, stdinWriter)

	moduleConfig := wazero.NewModuleConfig().
		WithStdout(&stdout).
		WithStderr(protocol).
		WithStdin(stdinReader).
		WithArgs("qjs", "--std", "-e", wrapped).
		WithName("")

	errCh := make(chan error, 1)
	go func() {
		_, err := e.runtime.InstantiateModule(ctx, compiled, moduleConfig)
		stdinWriter.Close()
		errCh <- err
	}()
	runErr := <-errCh

	if ctx.Err() == context.DeadlineExceeded {
		return value.Null, &ffi.ExecError{
			Kind:     ffi.KindTimeout,
			Language: "javascript",
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
				Language: "javascript",
				Message:  fmt.Sprintf("malformed result payload: %v", err),
			}
		}
		return e.marshal.FromForeign(f, "javascript")
	}

	msg := "interpreter produced no result marker"
	if runErr != nil {
		msg = fmt.Sprintf("interpreter failed: %v", runErr)
	}
	if diag := strings.TrimSpace(protocol.Stderr()); diag != "" {
		msg += ": " + diag
	}
	return value.Null, &ffi.ExecError{
		Kind:     ffi.KindResource,
		Language: "javascript",
		Message:  msg,
	}
}

// Close releases the wazero runtime and its compiled module.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.runtime.Close(context.Background())
}

// wrap assembles the script: stdlib prologue, bound variable assignments,
// then the runner around the block source.
func (e *Executor) wrap(block value.Block, args []value.Value) (string, error) {
	bound := block.Bound()
	if len(args) != len(bound) {
		return "", &ffi.ValidationError{
			Language: "javascript",
			Path:     "args",
			Reason:   fmt.Sprintf("bound variable count mismatch: block binds %d, got %d", len(bound), len(args)),
		}
	}

	var b strings.Builder
	b.WriteString(stdlib)
	b.WriteString("\n")
	for i, name := range bound {
		f, err := e.marshal.ToForeign(args[i], "javascript")
		if err != nil {
			return "", err
		}
		lit, err := marshal.EncodeJSON(f)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "globalThis[%q] = %s;\n", name, lit)
	}

	srcLit, err := marshal.EncodeJSON(block.Source())
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&b, runner, srcLit)
	return b.String(), nil
}

func (e *Executor) getCompiled(ctx context.Context) (wazero.CompiledModule, error) {
	e.mu.RLock()
	if e.compiled != nil {
		defer e.mu.RUnlock()
		return e.compiled, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.compiled != nil {
		return e.compiled, nil
	}
	compiled, err := e.runtime.CompileModule(ctx, quickjswasi.QuickJSWASM)
	if err != nil {
		return nil, err
	}
	e.compiled = compiled
	return compiled, nil
}

func (e *Executor) foreignError(payload string) error {
	f, err := marshal.DecodeJSON([]byte(payload))
	if err != nil {
		return &ffi.ExecError{
			Kind:     ffi.KindRuntime,
			Language: "javascript",
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
				Language: "javascript",
				Function: fn,
				File:     file,
				Line:     int(line),
			})
		}
	}
	return &ffi.ExecError{
		Kind:         kind,
		Language:     "javascript",
		Message:      msg,
		ForeignTrace: frames,
	}
}

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
