package tether

import "fmt"

// globalValue is the lifecycle surface a Module needs from a Global.
type globalValue interface {
	Name() string
	Start()
	Stop()
	Running() bool
}

// Global is a named process-wide value with an explicit lifecycle.
//
// The value is created by init on the first Start and destroyed when the
// last Stop balances the Starts, so several bridges can share it. Get
// outside that window fails with ErrGlobalStopped. Globals are not locked;
// callers on several goroutines must synchronize.
type Global[T any] struct {
	name  string
	init  func() T
	refs  int
	value *T
}

// NewGlobal declares a global. init may be nil for a zero value.
func NewGlobal[T any](name string, init func() T) *Global[T] {
	return &Global[T]{name: name, init: init}
}

// Name returns the exposed name.
func (g *Global[T]) Name() string { return g.name }

// Start creates the value on the first call.
func (g *Global[T]) Start() {
	g.refs++
	if g.refs > 1 {
		return
	}
	v := new(T)
	if g.init != nil {
		*v = g.init()
	}
	g.value = v
}

// Stop releases one Start. The value is dropped when none remain.
func (g *Global[T]) Stop() {
	if g.refs == 0 {
		return
	}
	g.refs--
	if g.refs == 0 {
		g.value = nil
	}
}

// Running reports whether the value currently exists.
func (g *Global[T]) Running() bool { return g.value != nil }

// Get returns the live value. The pointer stays valid after Stop, but the
// global no longer hands it out.
func (g *Global[T]) Get() (*T, error) {
	if g.value == nil {
		return nil, fmt.Errorf("%s: %w", g.name, ErrGlobalStopped)
	}
	return g.value, nil
}

// MustGet is Get for native code that runs only while the global is started.
func (g *Global[T]) MustGet() *T {
	v, err := g.Get()
	if err != nil {
		panic(err)
	}
	return v
}
