package tether

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Bridge is the set of modules opened for one dynamic environment.
//
// Create a bridge with [New] and always call [Bridge.Close] when done, so
// module globals are released.
//
//	b := tether.New(tether.WithLogger(log))
//	defer b.Close()
//	if err := b.Open(rocket.Module()); err != nil {
//	    return err
//	}
//	r, err := b.Call("rocket", "make_rocket_v1")
//
// Calls run synchronously on the caller's goroutine. Native data reached
// through projections is not locked.
type Bridge struct {
	log   *zap.Logger
	trace bool

	mu      sync.RWMutex
	modules map[string]*Module
	opened  []*Module
	closed  bool
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(b *Bridge) {
		if log != nil {
			b.log = log
		}
	}
}

// WithTraceCalls logs every bridged call at debug level.
func WithTraceCalls(on bool) Option {
	return func(b *Bridge) { b.trace = on }
}

// New creates a bridge with no modules.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		log:     zap.NewNop(),
		modules: make(map[string]*Module),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Logger returns the bridge logger.
func (b *Bridge) Logger() *zap.Logger { return b.log }

// Open makes m callable and starts its globals.
func (b *Bridge) Open(m *Module) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if _, dup := b.modules[m.Name()]; dup {
		return fmt.Errorf("open %s: module already open", m.Name())
	}
	m.start()
	b.modules[m.Name()] = m
	b.opened = append(b.opened, m)
	b.log.Debug("module opened",
		zap.String("module", m.Name()),
		zap.Strings("functions", m.Funcs()),
		zap.Strings("globals", m.Globals()))
	return nil
}

// Module returns an open module.
func (b *Bridge) Module(name string) (*Module, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m, ok := b.modules[name]
	return m, ok
}

// Modules returns the open module names in opening order.
func (b *Bridge) Modules() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, len(b.opened))
	for i, m := range b.opened {
		names[i] = m.Name()
	}
	return names
}

// Lookup resolves module.fn.
func (b *Bridge) Lookup(module, fn string) (*Function, error) {
	b.mu.RLock()
	closed := b.closed
	m, ok := b.modules[module]
	b.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownModule, module)
	}
	f, ok := m.Func(fn)
	if !ok {
		return nil, fmt.Errorf("%w %q in module %s", ErrUnknownFunction, fn, module)
	}
	return f, nil
}

// Call invokes module.fn with args.
func (b *Bridge) Call(module, fn string, args ...*Obj) (*Obj, error) {
	f, err := b.Lookup(module, fn)
	if err != nil {
		return nil, err
	}
	return b.Invoke(f, args...)
}

// Invoke calls f, tracing the call if enabled.
func (b *Bridge) Invoke(f *Function, args ...*Obj) (*Obj, error) {
	if !b.trace {
		return f.Call(args...)
	}
	start := time.Now()
	result, err := f.Call(args...)
	fields := []zap.Field{
		zap.String("function", f.Name()),
		zap.Int("args", len(args)),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		b.log.Debug("call failed", append(fields, zap.Error(err))...)
	} else {
		b.log.Debug("call", append(fields, zap.String("result", result.Type()))...)
	}
	return result, err
}

// Close stops the globals of every open module in reverse opening order.
// Close is idempotent.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for i := len(b.opened) - 1; i >= 0; i-- {
		m := b.opened[i]
		m.stop()
		b.log.Debug("module closed", zap.String("module", m.Name()))
	}
	b.opened = nil
	b.modules = make(map[string]*Module)
	return nil
}
