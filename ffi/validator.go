package ffi

import (
	"fmt"
	"math"
	"strings"

	"github.com/naab-lang/naab/value"
)

// Validator applies the same rule set symmetrically to outbound arguments
// and inbound return values: foreign output is treated as untrusted input,
// exactly like host input on the way out. All checks run before any foreign
// process or interpreter is invoked.
type Validator struct {
	limits Limits
}

// NewValidator builds a validator over the given limits.
func NewValidator(limits Limits) *Validator {
	return &Validator{limits: limits}
}

// Limits returns the configured limits.
func (v *Validator) Limits() Limits { return v.limits }

// ValidateArguments checks every argument of a block call plus the total
// payload size of the call.
func (v *Validator) ValidateArguments(args []value.Value, lang string) error {
	if len(args) > v.limits.MaxArgs {
		return &ValidationError{
			Language: lang,
			Path:     "args",
			Reason:   fmt.Sprintf("too many arguments: %d > %d", len(args), v.limits.MaxArgs),
		}
	}
	var total int64
	for i, a := range args {
		path := fmt.Sprintf("args[%d]", i)
		size, err := v.walk(a, lang, path, 0)
		if err != nil {
			return err
		}
		total += size
	}
	if total > v.limits.MaxPayloadBytes {
		return &ValidationError{
			Language: lang,
			Path:     "args",
			Reason:   fmt.Sprintf("total payload too large: %d > %d bytes", total, v.limits.MaxPayloadBytes),
		}
	}
	return nil
}

// ValidateReturn checks a single foreign return value under the same rules.
func (v *Validator) ValidateReturn(ret value.Value, lang string) error {
	size, err := v.walk(ret, lang, "return", 0)
	if err != nil {
		return err
	}
	if size > v.limits.MaxPayloadBytes {
		return &ValidationError{
			Language: lang,
			Path:     "return",
			Reason:   fmt.Sprintf("payload too large: %d > %d bytes", size, v.limits.MaxPayloadBytes),
		}
	}
	return nil
}

// walk validates one value recursively and estimates its serialized size.
func (v *Validator) walk(val value.Value, lang, path string, depth int) (int64, error) {
	if depth > v.limits.MaxDepth {
		return 0, &ValidationError{
			Language: lang,
			Path:     path,
			Reason:   fmt.Sprintf("nesting too deep: %d > %d", depth, v.limits.MaxDepth),
		}
	}

	switch val.Kind() {
	case value.KindNull, value.KindBool:
		return 8, nil

	case value.KindInt:
		return 8, nil

	case value.KindFloat:
		f := val.AsFloat()
		if math.IsNaN(f) {
			return 0, &ValidationError{Language: lang, Path: path, Reason: "NaN not allowed across the FFI boundary"}
		}
		if math.IsInf(f, 0) {
			return 0, &ValidationError{Language: lang, Path: path, Reason: "Infinity not allowed across the FFI boundary"}
		}
		return 8, nil

	case value.KindString:
		s := val.AsString()
		if int64(len(s)) > v.limits.MaxStringBytes {
			return 0, &ValidationError{
				Language: lang,
				Path:     path,
				Reason:   fmt.Sprintf("string too long: %d > %d bytes", len(s), v.limits.MaxStringBytes),
			}
		}
		if strings.IndexByte(s, 0) >= 0 {
			return 0, &ValidationError{Language: lang, Path: path, Reason: "string contains embedded NUL byte"}
		}
		return int64(len(s)) + 16, nil

	case value.KindList:
		items := val.AsList().Items
		total := int64(16)
		for i, it := range items {
			size, err := v.walk(it, lang, fmt.Sprintf("%s[%d]", path, i), depth+1)
			if err != nil {
				return 0, err
			}
			total += size
		}
		return total, nil

	case value.KindDict:
		d := val.AsDict()
		total := int64(16)
		for _, k := range d.Keys() {
			if strings.IndexByte(k, 0) >= 0 {
				return 0, &ValidationError{
					Language: lang,
					Path:     fmt.Sprintf("%s[key]", path),
					Reason:   "dict key contains embedded NUL byte",
				}
			}
			entry, _ := d.Get(k)
			size, err := v.walk(entry, lang, fmt.Sprintf("%s.%s", path, k), depth+1)
			if err != nil {
				return 0, err
			}
			total += int64(len(k)) + size
		}
		return total, nil

	default:
		// Struct instances, closures, and futures are not serializable
		// across the boundary.
		return 0, &ValidationError{
			Language: lang,
			Path:     path,
			Reason:   fmt.Sprintf("type %s cannot cross the FFI boundary", val.Kind()),
		}
	}
}
