// Package value defines the host runtime's dynamic value model shared by the
// evaluator and the polyglot execution core.
//
// Primitives (null, bool, int, float, string) are copied by value. Lists,
// dicts, and struct instances are heap containers shared by reference:
// mutation through one holder is visible to every other holder. A container
// handed across the FFI boundary is loaned, not owned — the foreign side does
// not observe later host-side mutation, and foreign-side mutation is not
// synchronized back.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind tags the runtime type of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindDict
	KindStruct
	KindClosure
	KindFuture
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	case KindStruct:
		return "struct"
	case KindClosure:
		return "closure"
	case KindFuture:
		return "future"
	default:
		return "unknown"
	}
}

// Value is the host's dynamic value. The zero Value is null.
type Value struct {
	kind Kind
	data any
}

// ListObject is the backing store for a list value. Shared by reference.
type ListObject struct {
	Items []Value
}

// DictObject is an insertion-ordered string-keyed map. Shared by reference.
type DictObject struct {
	keys    []string
	entries map[string]Value
}

// NewDict returns an empty ordered dict.
func NewDict() *DictObject {
	return &DictObject{entries: make(map[string]Value)}
}

// Set inserts or replaces a key, preserving first-insertion order.
func (d *DictObject) Set(key string, v Value) {
	if _, ok := d.entries[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.entries[key] = v
}

// Get looks up a key.
func (d *DictObject) Get(key string) (Value, bool) {
	v, ok := d.entries[key]
	return v, ok
}

// Delete removes a key if present.
func (d *DictObject) Delete(key string) {
	if _, ok := d.entries[key]; !ok {
		return
	}
	delete(d.entries, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order. The slice is a copy.
func (d *DictObject) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Len reports the number of entries.
func (d *DictObject) Len() int { return len(d.keys) }

// StructObject is a named record with ordered fields. Shared by reference.
type StructObject struct {
	Name   string
	Fields *DictObject
}

// Field returns a struct field by name.
func (s *StructObject) Field(name string) (Value, bool) {
	return s.Fields.Get(name)
}

// Closure is a host function handle. Foreign code never sees the Go function
// directly; it reaches it through the callback trampoline.
type Closure struct {
	Name  string
	Arity int
	Fn    func(args []Value) (Value, error)
}

// Forcer is the handle interface a Future value carries. Defined here so the
// value model does not depend on the scheduler package.
type Forcer interface {
	// Force blocks until the underlying task completes, then returns its
	// value or error. Idempotent.
	Force() (Value, error)
}

// Null is the null value.
var Null = Value{}

// Bool wraps a bool.
func Bool(b bool) Value { return Value{kind: KindBool, data: b} }

// Int wraps an int64.
func Int(i int64) Value { return Value{kind: KindInt, data: i} }

// Float wraps a float64.
func Float(f float64) Value { return Value{kind: KindFloat, data: f} }

// Str wraps a string.
func Str(s string) Value { return Value{kind: KindString, data: s} }

// List wraps items in a fresh shared list container.
func List(items ...Value) Value {
	return Value{kind: KindList, data: &ListObject{Items: items}}
}

// ListOf wraps an existing list container.
func ListOf(l *ListObject) Value { return Value{kind: KindList, data: l} }

// Dict wraps an existing dict container.
func Dict(d *DictObject) Value { return Value{kind: KindDict, data: d} }

// Struct wraps an existing struct instance.
func Struct(s *StructObject) Value { return Value{kind: KindStruct, data: s} }

// ClosureVal wraps a host function handle.
func ClosureVal(c *Closure) Value { return Value{kind: KindClosure, data: c} }

// Future wraps a pending-result handle.
func Future(f Forcer) Value { return Value{kind: KindFuture, data: f} }

// Kind reports the runtime type tag.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsFuture() bool { return v.kind == KindFuture }

// AsBool returns the bool payload. Panics on kind mismatch, like the
// accessors below; callers check Kind first.
func (v Value) AsBool() bool             { return v.data.(bool) }
func (v Value) AsInt() int64             { return v.data.(int64) }
func (v Value) AsFloat() float64         { return v.data.(float64) }
func (v Value) AsString() string         { return v.data.(string) }
func (v Value) AsList() *ListObject      { return v.data.(*ListObject) }
func (v Value) AsDict() *DictObject      { return v.data.(*DictObject) }
func (v Value) AsStruct() *StructObject  { return v.data.(*StructObject) }
func (v Value) AsClosure() *Closure      { return v.data.(*Closure) }
func (v Value) AsFuture() Forcer         { return v.data.(Forcer) }

// Equal reports deep structural equality. Closures and futures compare by
// identity.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.AsBool() == b.AsBool()
	case KindInt:
		return a.AsInt() == b.AsInt()
	case KindFloat:
		return a.AsFloat() == b.AsFloat()
	case KindString:
		return a.AsString() == b.AsString()
	case KindList:
		la, lb := a.AsList(), b.AsList()
		if len(la.Items) != len(lb.Items) {
			return false
		}
		for i := range la.Items {
			if !Equal(la.Items[i], lb.Items[i]) {
				return false
			}
		}
		return true
	case KindDict:
		da, db := a.AsDict(), b.AsDict()
		if da.Len() != db.Len() {
			return false
		}
		for _, k := range da.keys {
			vb, ok := db.Get(k)
			if !ok || !Equal(da.entries[k], vb) {
				return false
			}
		}
		return true
	case KindStruct:
		sa, sb := a.AsStruct(), b.AsStruct()
		return sa.Name == sb.Name && Equal(Dict(sa.Fields), Dict(sb.Fields))
	default:
		return a.data == b.data
	}
}

// String renders a value for diagnostics and the CLI.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.AsBool())
	case KindInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case KindFloat:
		return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64)
	case KindString:
		return v.AsString()
	case KindList:
		var b strings.Builder
		b.WriteByte('[')
		for i, it := range v.AsList().Items {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(it.quoted())
		}
		b.WriteByte(']')
		return b.String()
	case KindDict:
		d := v.AsDict()
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range d.keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%q: %s", k, d.entries[k].quoted())
		}
		b.WriteByte('}')
		return b.String()
	case KindStruct:
		s := v.AsStruct()
		return s.Name + " " + Dict(s.Fields).String()
	case KindClosure:
		c := v.AsClosure()
		return fmt.Sprintf("<closure %s/%d>", c.Name, c.Arity)
	case KindFuture:
		return "<future>"
	default:
		return "<unknown>"
	}
}

func (v Value) quoted() string {
	if v.kind == KindString {
		return strconv.Quote(v.AsString())
	}
	return v.String()
}

// SortedKeys returns dict keys sorted lexically, for deterministic output
// paths independent of insertion order.
func (d *DictObject) SortedKeys() []string {
	ks := d.Keys()
	sort.Strings(ks)
	return ks
}
