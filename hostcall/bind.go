package hostcall

import (
	"github.com/naab-lang/naab/ffi"
	"github.com/naab-lang/naab/value"
)

// Bind wraps a host closure in the callback trampoline and registers it.
// lang tags errors with the language the registry serves.
func Bind(r *Registry, lang, name string, fn *value.Closure, sig ffi.Signature) {
	r.Register(name, ffi.WrapCallback(lang, fn, sig))
}
