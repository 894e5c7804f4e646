package tether

import (
	"fmt"
	"sync"
)

// Module groups bridged functions and the globals they expose.
//
//	m := tether.NewModule("rocket").
//	    Def("make_rocket_v1", MakeRocketV1).
//	    Def("get_global_map", GlobalMap, tether.ReturnAlias()).
//	    Global(globalMap)
type Module struct {
	name string

	mu      sync.RWMutex
	funcs   map[string]*Function
	order   []string
	globals []globalValue
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{name: name, funcs: make(map[string]*Function)}
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// Def adds a function with automatic argument and result conversion.
//
// The function's signature determines how arguments are converted:
//   - scalar parameters accept dynamic scalars of a compatible kind
//   - *T parameters accept a projection of T and receive its native location
//   - T, []T and map[K]V parameters receive copies
//   - *Obj parameters receive the dynamic value unconverted
//   - a variadic last parameter consumes the remaining arguments
//
// Results are projected: pointers alias by default, values are copied.
// A trailing error result fails the call. Def panics if fn is not a
// function, if the name is taken, or if ReturnAlias is requested for a
// value result.
func (m *Module) Def(name string, fn any, opts ...DefOption) *Module {
	f := newFunction(m.name+"."+name, fn, opts...)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.funcs[name]; dup {
		panic(fmt.Sprintf("Def %s.%s: already defined", m.name, name))
	}
	m.funcs[name] = f
	m.order = append(m.order, name)
	return m
}

// Global registers a global whose lifecycle follows the module's: it is
// started when a bridge opens the module and stopped when the bridge closes.
func (m *Module) Global(g globalValue) *Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.globals = append(m.globals, g)
	return m
}

// Func looks up a function by its exposed name.
func (m *Module) Func(name string) (*Function, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.funcs[name]
	return f, ok
}

// Funcs returns the function names in definition order.
func (m *Module) Funcs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Globals returns the registered global names.
func (m *Module) Globals() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.globals))
	for i, g := range m.globals {
		out[i] = g.Name()
	}
	return out
}

func (m *Module) start() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, g := range m.globals {
		g.Start()
	}
}

func (m *Module) stop() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.globals) - 1; i >= 0; i-- {
		m.globals[i].Stop()
	}
}
