package javascript

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/naab-lang/naab/hostcall"
	"github.com/naab-lang/naab/marshal"
	"github.com/naab-lang/naab/value"
)

// Host call framing. Foreign code writes \x00NAAB:{json}\x00 to stderr and
// reads the JSON response as a single line from stdin. Anything on stderr
// outside the frames is ordinary diagnostic output and passes through.
const (
	callPrefix = "\x00NAAB:"
	callSuffix = "\x00"
)

type callRequest struct {
	Fn   string            `json:"fn"`
	Args []json.RawMessage `json:"args"`
}

type callResponse struct {
	Data  marshal.Foreign `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// protocolHandler sits on the interpreter's stderr, splits host call frames
// out of the stream, and dispatches them against the callback registry.
type protocolHandler struct {
	lang        string
	registry    *hostcall.Registry
	marshal     *marshal.Marshaller
	stdinWriter *io.PipeWriter
	realStderr  bytes.Buffer
	buf         bytes.Buffer
	mu          sync.Mutex
}

func newProtocolHandler(lang string, registry *hostcall.Registry, m *marshal.Marshaller, stdinWriter *io.PipeWriter) *protocolHandler {
	return &protocolHandler{
		lang:        lang,
		registry:    registry,
		marshal:     m,
		stdinWriter: stdinWriter,
	}
}

func (p *protocolHandler) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf.Write(data)

	for {
		content := p.buf.String()
		start := strings.Index(content, callPrefix)
		if start == -1 {
			p.realStderr.WriteString(content)
			p.buf.Reset()
			break
		}

		p.realStderr.WriteString(content[:start])

		end := strings.Index(content[start+len(callPrefix):], callSuffix)
		if end == -1 {
			// Incomplete frame, wait for more bytes.
			p.buf.Reset()
			p.buf.WriteString(content[start:])
			break
		}

		frame := content[start+len(callPrefix) : start+len(callPrefix)+end]
		p.buf.Reset()
		p.buf.WriteString(content[start+len(callPrefix)+end+1:])

		var req callRequest
		if err := json.Unmarshal([]byte(frame), &req); err != nil {
			p.respond(callResponse{Error: "malformed host call frame"})
			continue
		}
		p.respond(p.dispatch(req))
	}

	return len(data), nil
}

func (p *protocolHandler) dispatch(req callRequest) callResponse {
	cb, ok := p.registry.Get(req.Fn)
	if !ok {
		return callResponse{Error: "unknown host function: " + req.Fn}
	}

	args := make([]value.Value, len(req.Args))
	for i, raw := range req.Args {
		f, err := marshal.DecodeJSON(raw)
		if err != nil {
			return callResponse{Error: err.Error()}
		}
		v, err := p.marshal.FromForeign(f, p.lang)
		if err != nil {
			return callResponse{Error: err.Error()}
		}
		args[i] = v
	}

	result, err := cb(args)
	if err != nil {
		return callResponse{Error: err.Error()}
	}
	f, err := p.marshal.ToForeign(result, p.lang)
	if err != nil {
		return callResponse{Error: err.Error()}
	}
	return callResponse{Data: f}
}

func (p *protocolHandler) respond(resp callResponse) {
	data, _ := json.Marshal(resp)
	// Written from a fresh goroutine: the pipe blocks until the interpreter
	// reads, and the interpreter only reads after this Write returns.
	go p.stdinWriter.Write(append(data, '\n'))
}

// Stderr returns the non-protocol stderr output seen so far.
func (p *protocolHandler) Stderr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.realStderr.String()
}
