package ffi

import "time"

// Limits bounds what may cross the FFI boundary. Loaded once at process
// start; read-only afterward.
type Limits struct {
	// MaxPayloadBytes caps the estimated serialized size of a whole call
	// (all arguments together, or a single return value).
	MaxPayloadBytes int64
	// MaxStringBytes caps any single string.
	MaxStringBytes int64
	// MaxDepth caps collection nesting.
	MaxDepth int
	// MaxArgs caps the argument count of a single block call.
	MaxArgs int
	// DefaultTimeout applies to tasks with no per-block deadline.
	DefaultTimeout time.Duration
}

// DefaultLimits mirrors the process defaults: 10 MB payloads, 100 MB
// strings, depth 100, 1000 arguments, 30 second deadline.
func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 10 * 1024 * 1024,
		MaxStringBytes:  100 * 1024 * 1024,
		MaxDepth:        100,
		MaxArgs:         1000,
		DefaultTimeout:  30 * time.Second,
	}
}
