// Package luahost runs Lua scripts against tether modules.
//
// Each opened module becomes a global table of functions. Projected native
// values are Lua userdata: handles index by field name, sequences by
// 1-based position, maps by key. Errors raised by the bridge reach Lua as
// positioned messages, tether.last_error() names their kind, and they come
// back out of [Host.DoString] as the typed Go error that was raised.
package luahost

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/Shopify/go-lua"
	"go.uber.org/zap"

	"github.com/feather-lang/tether"
)

// Host is a Lua state bound to a bridge.
// A Host is not safe for concurrent use from multiple goroutines.
type Host struct {
	bridge *tether.Bridge
	state  *lua.State
	trail  *errorTrail
	log    *zap.Logger
	out    io.Writer
}

// Option configures a Host.
type Option func(*Host)

// WithOutput redirects Lua's print. The default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(h *Host) { h.out = w }
}

// New creates a Lua state with the standard libraries and the tether library.
func New(b *tether.Bridge, opts ...Option) *Host {
	h := &Host{
		bridge: b,
		state:  lua.NewState(),
		log:    b.Logger(),
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(h)
	}
	lua.OpenLibraries(h.state)
	h.trail = newTrail(h.state)
	h.registerTypes()
	h.registerLibrary()
	h.state.PushGoFunction(h.print)
	h.state.SetGlobal("print")
	return h
}

// State returns the underlying Lua state.
func (h *Host) State() *lua.State { return h.state }

// Open exposes an open bridge module as a global table named after it.
func (h *Host) Open(module string) error {
	m, ok := h.bridge.Module(module)
	if !ok {
		return fmt.Errorf("%w %q", tether.ErrUnknownModule, module)
	}
	l := h.state
	names := m.Funcs()
	l.CreateTable(0, len(names))
	for _, name := range names {
		f, _ := m.Func(name)
		l.PushGoFunction(h.bind(f))
		l.SetField(-2, name)
	}
	l.SetGlobal(module)
	h.log.Debug("lua module exposed", zap.String("module", module), zap.Int("functions", len(names)))
	return nil
}

// bind wraps a bridged function as a Lua function.
func (h *Host) bind(f *tether.Function) lua.Function {
	return func(l *lua.State) int {
		n := l.Top()
		args := make([]*tether.Obj, n)
		for i := 1; i <= n; i++ {
			arg, err := toObj(l, i)
			if err != nil {
				return raise(l, &tether.ArgumentTypeError{Function: f.Name(), Position: i, Err: err})
			}
			args[i-1] = arg
		}
		result, err := h.bridge.Invoke(f, args...)
		if err != nil {
			return raise(l, err)
		}
		if f.NumOut() == 0 {
			return 0
		}
		push(l, result)
		return 1
	}
}

// SetGlobal assigns a Lua global.
func (h *Host) SetGlobal(name string, v *tether.Obj) {
	push(h.state, v)
	h.state.SetGlobal(name)
}

// Global reads a Lua global.
func (h *Host) Global(name string) (*tether.Obj, error) {
	h.state.Global(name)
	defer h.state.Pop(1)
	return toObj(h.state, -1)
}

// DoString runs a chunk.
func (h *Host) DoString(src string) error {
	_, err := h.exec(func() error { return lua.LoadString(h.state, src) }, false)
	return err
}

// DoFile runs a script file.
func (h *Host) DoFile(path string) error {
	_, err := h.exec(func() error { return lua.LoadFile(h.state, path, "") }, false)
	return err
}

// Eval runs src and returns its results rendered with tostring. An
// expression is evaluated as if it were returned.
func (h *Host) Eval(src string) ([]string, error) {
	results, err := h.exec(func() error { return lua.LoadString(h.state, "return "+src) }, true)
	if _, ok := err.(*SyntaxError); !ok {
		return results, err
	}
	return h.exec(func() error { return lua.LoadString(h.state, src) }, true)
}

// Incomplete reports whether src compiles neither as an expression nor as
// a chunk, and fails only because it ends too early.
func (h *Host) Incomplete(src string) bool {
	l := h.state
	top := l.Top()
	defer l.SetTop(top)

	atEOF := false
	for _, chunk := range []string{"return " + src, src} {
		if err := lua.LoadString(l, chunk); err == nil {
			return false
		}
		msg, _ := l.ToString(-1)
		atEOF = atEOF || strings.HasSuffix(msg, "<eof>")
		l.SetTop(top)
	}
	return atEOF
}

// exec loads a chunk with load and calls it, returning the rendered
// results when collect is set.
func (h *Host) exec(load func() error, collect bool) ([]string, error) {
	l := h.state
	top := l.Top()
	defer l.SetTop(top)

	h.trail.reset()
	if err := load(); err != nil {
		msg, _ := l.ToString(-1)
		return nil, &SyntaxError{Message: msg}
	}
	if err := l.ProtectedCall(0, lua.MultipleReturns, 0); err != nil {
		return nil, errorFromStack(l, err)
	}
	if !collect {
		return nil, nil
	}
	var results []string
	for i := top + 1; i <= l.Top(); i++ {
		s, _ := lua.ToStringMeta(l, i)
		l.Pop(1)
		results = append(results, s)
	}
	return results, nil
}

// print writes its arguments through tostring, tab separated.
func (h *Host) print(l *lua.State) int {
	n := l.Top()
	var b strings.Builder
	for i := 1; i <= n; i++ {
		s, ok := lua.ToStringMeta(l, i)
		if !ok {
			lua.Errorf(l, "'tostring' must return a string to 'print'")
		}
		l.Pop(1)
		if i > 1 {
			b.WriteByte('\t')
		}
		b.WriteString(s)
	}
	b.WriteByte('\n')
	io.WriteString(h.out, b.String())
	return 0
}

// Complete returns completions for the identifier path ending prefix:
// globals, module functions, and fields of projected aggregates.
func (h *Host) Complete(prefix string) []string {
	start := strings.LastIndexFunc(prefix, func(r rune) bool {
		return !(r == '_' || r == '.' || r == ':' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	}) + 1
	lead, word := prefix[:start], prefix[start:]

	path := strings.Split(word, ".")
	partial := path[len(path)-1]
	l := h.state
	top := l.Top()
	defer l.SetTop(top)

	l.PushGlobalTable()
	for _, part := range path[:len(path)-1] {
		switch l.TypeOf(-1) {
		case lua.TypeTable, lua.TypeUserData:
		default:
			return nil
		}
		if _, err := h.field(-1, part); err != nil {
			return nil
		}
	}

	var names []string
	switch l.TypeOf(-1) {
	case lua.TypeTable:
		l.PushNil()
		for l.Next(-2) {
			if l.TypeOf(-2) == lua.TypeString {
				k, _ := l.ToString(-2)
				names = append(names, k)
			}
			l.Pop(1)
		}
	case lua.TypeUserData:
		if o, ok := l.ToUserData(-1).(*tether.Obj); ok {
			if hd, ok := o.Handle(); ok {
				names = hd.Fields()
			}
		}
	}

	base := strings.Join(path[:len(path)-1], ".")
	if base != "" {
		base += "."
	}
	var out []string
	for _, n := range names {
		if strings.HasPrefix(n, partial) {
			out = append(out, lead+base+n)
		}
	}
	sort.Strings(out)
	return out
}

// field replaces the value at index with value[name] under a protected
// call, so metamethod errors do not escape.
func (h *Host) field(index int, name string) (lua.Type, error) {
	l := h.state
	index = l.AbsIndex(index)
	l.PushGoFunction(func(l *lua.State) int {
		l.Field(1, name)
		return 1
	})
	l.PushValue(index)
	if err := l.ProtectedCall(1, 1, 0); err != nil {
		l.Pop(1)
		return lua.TypeNil, err
	}
	l.Remove(index)
	return l.TypeOf(-1), nil
}
