// Package naab is the polyglot execution core of the NAAb language: it runs
// blocks of foreign code (python, javascript, shell, or any configured
// command-line runner) and exchanges values with them across a validated
// boundary.
//
// # Overview
//
// Every block runs through the same pipeline: arguments are validated
// against the marshalling limits, the block is handed to the executor
// registered for its language tag, and the result comes back as a Future
// that resolves to a host value or a typed error. Spawning never blocks;
// forcing a Future blocks until the block settles.
//
// # Basic Usage
//
//	engine, _ := naab.New()
//	defer engine.Close()
//
//	// Run a block and wait for its result.
//	v, _ := engine.Run(value.NewBlock("python", "x * 2", []string{"x"}),
//	    []value.Value{value.Int(21)})
//
//	// Or spawn concurrently and force later.
//	fut, _ := engine.Spawn(value.NewBlock("shell", "echo hi", nil), nil)
//	v, _ = fut.Force()
//
// # Host Callbacks
//
//	engine.RegisterCallback("greet", &value.Closure{
//	    Name: "greet", Arity: 1,
//	    Fn: func(args []value.Value) (value.Value, error) {
//	        return value.Str("hi, " + args[0].AsString()), nil
//	    },
//	}, ffi.Signature{Params: []value.Kind{value.KindString}})
//
// See the [executor], [ffi], [marshal], and [language/python],
// [language/javascript], [language/shell], [language/subprocess] packages
// for detailed API documentation.
package naab
