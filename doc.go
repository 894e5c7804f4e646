// Package tether exposes native Go data to a dynamic calling environment.
//
// # Overview
//
// tether projects Go structs, slices and maps into dynamic values while
// keeping Go's reference semantics intact:
//
//   - Alias projections reference native storage; writes on either side
//     are visible on the other
//   - Copy projections own an independent snapshot
//   - Struct fields can be readonly from the dynamic side
//   - Two projections of one native location are the same object, however
//     many wrappers exist
//
// The package models dynamic values with [Obj]. The luahost package binds
// them to a Lua state.
//
// # Quick Start
//
//	type Rocket struct {
//	    MaxSpeed float64 `tether:"max_speed"`
//	    Engines  int32   `tether:"number_of_engines,readonly"`
//	    Name     string  `tether:"name"`
//	}
//
//	r := &Rocket{MaxSpeed: 100, Engines: 2, Name: "Rocket v1"}
//	obj := tether.Alias(r)
//	h, _ := obj.Handle()
//	h.Set("name", tether.String("Rocket v2")) // r.Name == "Rocket v2"
//	h.Set("number_of_engines", tether.Int(4)) // *ImmutableFieldError
//
// # Choosing a Mode
//
// The mode is picked where the value crosses the boundary, never guessed:
//
//	tether.Alias(&r)        // handle over r
//	tether.Copy(r)          // handle over a private copy of r
//	tether.Alias(&rockets)  // sequence view over the rockets slice
//	tether.Alias(&fleet)    // map view over the fleet map
//
// Values reached from a projection inherit its mode: a struct field of an
// alias handle is an alias handle over that field. Pointer fields always
// alias their target.
//
// Sequence elements and map entries come back as handles over the element
// location. Mutating one mutates the container:
//
//	seq, _ := tether.Alias(&rockets).Sequence()
//	first, _ := seq.Index(0)
//	h, _ := first.Handle()
//	h.Set("name", tether.String("X")) // rockets[0].Name == "X"
//
// Map iteration is in ascending key order.
//
// # Bridging Functions
//
// A [Module] groups native functions. [Module.Def] accepts any Go function
// and converts arguments and results:
//
//	m := tether.NewModule("rocket").
//	    Def("make", func() Rocket { return Rocket{} }).      // copy result
//	    Def("launch", func(r *Rocket, where string) {}).     // r is native
//	    Def("fleet", func() *[]Rocket { return &fleet })     // alias result
//
//	b := tether.New()
//	defer b.Close()
//	b.Open(m)
//	r, _ := b.Call("rocket", "make")
//	_, err := b.Call("rocket", "launch", r, tether.String("Cape Canaveral"))
//
// # Globals
//
// [Global] is a named process-wide value with explicit start and stop.
// Register it on the module that exposes it and the bridge manages the
// lifecycle:
//
//	var fleet = tether.NewGlobal("fleet", func() map[string]Rocket { ... })
//	m.Global(fleet).Def("get_fleet", func() (*map[string]Rocket, error) {
//	    return fleet.Get()
//	})
//
// # Errors
//
// Operations return typed errors; match them with errors.As:
//
//   - [NoSuchFieldError], [ImmutableFieldError], [TypeMismatchError]
//   - [IndexOutOfRangeError], [KeyNotFoundError]
//   - [ArgumentCountError], [ArgumentTypeError], [NativeFailure]
//
// # Thread Safety
//
// A [Bridge] runs calls on the caller's goroutine and does not lock native
// data. Callers sharing native values across goroutines must synchronize.
package tether
