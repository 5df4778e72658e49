// Package marshal converts host values to and from the foreign
// representation used at the FFI boundary. The foreign representation is the
// JSON-compatible tree nil | bool | int64 | float64 | string | []Foreign |
// map[string]Foreign; every executor speaks it, whatever its wire format.
//
// The type map is fixed: int↔int, float↔float, string↔string, bool↔bool,
// list↔array, dict↔map. Struct instances, closures, and futures are not
// serializable and are rejected at the boundary. Round-trip is exact for
// primitives and structurally exact for containers within the depth limit.
package marshal

import (
	"fmt"
	"math"
	"strings"

	"github.com/naab-lang/naab/ffi"
	"github.com/naab-lang/naab/value"
)

// Foreign is the language-neutral representation of a marshalled value.
type Foreign = any

// Marshaller performs recursive conversion bounded by the process limits.
type Marshaller struct {
	limits ffi.Limits
}

// New builds a marshaller over the given limits.
func New(limits ffi.Limits) *Marshaller {
	return &Marshaller{limits: limits}
}

// ToForeign converts a host value for the named language. The path in any
// error names the offending value, e.g. "args[2].items[5]".
func (m *Marshaller) ToForeign(v value.Value, lang string) (Foreign, error) {
	return m.toForeign(v, lang, "value", 0)
}

// ToForeignArgs converts a whole argument list, reporting per-argument paths.
func (m *Marshaller) ToForeignArgs(args []value.Value, lang string) ([]Foreign, error) {
	out := make([]Foreign, len(args))
	for i, a := range args {
		f, err := m.toForeign(a, lang, fmt.Sprintf("args[%d]", i), 0)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func (m *Marshaller) toForeign(v value.Value, lang, path string, depth int) (Foreign, error) {
	if depth > m.limits.MaxDepth {
		return nil, &ffi.ValidationError{
			Language: lang,
			Path:     path,
			Reason:   fmt.Sprintf("nesting too deep: %d > %d", depth, m.limits.MaxDepth),
		}
	}

	switch v.Kind() {
	case value.KindNull:
		return nil, nil
	case value.KindBool:
		return v.AsBool(), nil
	case value.KindInt:
		return v.AsInt(), nil
	case value.KindFloat:
		f := v.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &ffi.ValidationError{
				Language: lang,
				Path:     path,
				Reason:   "non-finite float not allowed across the FFI boundary",
			}
		}
		return f, nil
	case value.KindString:
		s := v.AsString()
		if strings.IndexByte(s, 0) >= 0 {
			return nil, &ffi.ValidationError{
				Language: lang,
				Path:     path,
				Reason:   "string contains embedded NUL byte",
			}
		}
		return s, nil
	case value.KindList:
		items := v.AsList().Items
		out := make([]Foreign, len(items))
		for i, it := range items {
			f, err := m.toForeign(it, lang, fmt.Sprintf("%s[%d]", path, i), depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	case value.KindDict:
		d := v.AsDict()
		out := make(map[string]Foreign, d.Len())
		for _, k := range d.Keys() {
			entry, _ := d.Get(k)
			f, err := m.toForeign(entry, lang, fmt.Sprintf("%s.%s", path, k), depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = f
		}
		return out, nil
	default:
		return nil, &ffi.ValidationError{
			Language: lang,
			Path:     path,
			Reason:   fmt.Sprintf("type %s cannot cross the FFI boundary", v.Kind()),
		}
	}
}

// FromForeign converts a foreign tree back into a host value under the same
// limits and type map. Unknown foreign node types are rejected, not coerced:
// the foreign side is untrusted.
func (m *Marshaller) FromForeign(f Foreign, lang string) (value.Value, error) {
	return m.fromForeign(f, lang, "return", 0)
}

func (m *Marshaller) fromForeign(f Foreign, lang, path string, depth int) (value.Value, error) {
	if depth > m.limits.MaxDepth {
		return value.Null, &ffi.ValidationError{
			Language: lang,
			Path:     path,
			Reason:   fmt.Sprintf("nesting too deep: %d > %d", depth, m.limits.MaxDepth),
		}
	}

	switch t := f.(type) {
	case nil:
		return value.Null, nil
	case bool:
		return value.Bool(t), nil
	case int64:
		return value.Int(t), nil
	case int:
		return value.Int(int64(t)), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return value.Null, &ffi.ValidationError{
				Language: lang,
				Path:     path,
				Reason:   "non-finite float not allowed across the FFI boundary",
			}
		}
		return value.Float(t), nil
	case string:
		if strings.IndexByte(t, 0) >= 0 {
			return value.Null, &ffi.ValidationError{
				Language: lang,
				Path:     path,
				Reason:   "string contains embedded NUL byte",
			}
		}
		return value.Str(t), nil
	case []Foreign:
		items := make([]value.Value, len(t))
		for i, el := range t {
			v, err := m.fromForeign(el, lang, fmt.Sprintf("%s[%d]", path, i), depth+1)
			if err != nil {
				return value.Null, err
			}
			items[i] = v
		}
		return value.List(items...), nil
	case map[string]Foreign:
		d := value.NewDict()
		for _, k := range sortedMapKeys(t) {
			v, err := m.fromForeign(t[k], lang, fmt.Sprintf("%s.%s", path, k), depth+1)
			if err != nil {
				return value.Null, err
			}
			d.Set(k, v)
		}
		return value.Dict(d), nil
	default:
		return value.Null, &ffi.ValidationError{
			Language: lang,
			Path:     path,
			Reason:   fmt.Sprintf("unsupported foreign type %T", f),
		}
	}
}
