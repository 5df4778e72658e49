package hostcall

import (
	"sort"
	"testing"

	"github.com/naab-lang/naab/ffi"
	"github.com/naab-lang/naab/value"
)

func TestBindAndInvoke(t *testing.T) {
	r := NewRegistry()
	Bind(r, "javascript", "greet", &value.Closure{
		Name:  "greet",
		Arity: 1,
		Fn: func(args []value.Value) (value.Value, error) {
			return value.Str("hello, " + args[0].AsString()), nil
		},
	}, ffi.Signature{Params: []value.Kind{value.KindString}})

	cb, ok := r.Get("greet")
	if !ok {
		t.Fatal("callback not registered")
	}
	v, err := cb([]value.Value{value.Str("world")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.AsString() != "hello, world" {
		t.Errorf("got %q", v.AsString())
	}
}

func TestNames(t *testing.T) {
	r := NewRegistry()
	r.Register("a", nil)
	r.Register("b", nil)
	names := r.Names()
	sort.Strings(names)
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("unexpected names %v", names)
	}
}

func TestUnknownName(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get("missing"); ok {
		t.Error("lookup of unregistered name must fail")
	}
}
