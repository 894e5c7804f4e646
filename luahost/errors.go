package luahost

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/feather-lang/tether"
)

// SyntaxError reports a chunk that failed to compile.
type SyntaxError struct {
	Message string
}

func (e *SyntaxError) Error() string { return e.Message }

// RuntimeError reports a Lua error that did not come from the bridge,
// such as error("...") or indexing nil.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string { return e.Message }

// IndexError reports a 1-based sequence position outside [1, Len].
// It unwraps to the bridge's *tether.IndexOutOfRangeError.
type IndexError struct {
	Index int
	Len   int
	Err   error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range [1, %d]", e.Index, e.Len)
}

func (e *IndexError) Unwrap() error { return e.Err }

// errorTrail remembers the last Go error raised into a state. Lua error
// values must be strings, so the typed error stays here and is matched
// back by message when it surfaces from a protected call.
type errorTrail struct {
	err error
	msg string
}

const trailKey = "tether.errors"

func newTrail(l *lua.State) *errorTrail {
	t := &errorTrail{}
	l.PushUserData(t)
	l.SetField(lua.RegistryIndex, trailKey)
	return t
}

func trailOf(l *lua.State) *errorTrail {
	l.Field(lua.RegistryIndex, trailKey)
	t, _ := l.ToUserData(-1).(*errorTrail)
	l.Pop(1)
	return t
}

func (t *errorTrail) reset() { t.err, t.msg = nil, "" }

// match returns the recorded error if msg is its message, possibly
// rethrown with a position prefix by error().
func (t *errorTrail) match(msg string) error {
	if t.err == nil || !strings.HasSuffix(msg, t.msg) {
		return nil
	}
	return t.err
}

// raise throws err into Lua as a positioned message. It does not return.
func raise(l *lua.State, err error) int {
	lua.Where(l, 1)
	msg, _ := l.ToString(-1)
	l.Pop(1)
	msg += err.Error()
	if t := trailOf(l); t != nil {
		t.err, t.msg = err, msg
	}
	l.PushString(msg)
	l.Error()
	return 0
}

// errorFromStack recovers the Go error for the error value a failed
// protected call left on top of the stack.
func errorFromStack(l *lua.State, err error) error {
	msg, ok := l.ToString(-1)
	if !ok {
		return err
	}
	if t := trailOf(l); t != nil {
		if raised := t.match(msg); raised != nil {
			return raised
		}
	}
	return &RuntimeError{Message: msg}
}

// oneBased rewrites a zero-based range error from a sequence as an
// IndexError on the script's 1-based position.
func oneBased(err error) error {
	var ie *tether.IndexOutOfRangeError
	if errors.As(err, &ie) {
		return &IndexError{Index: ie.Index + 1, Len: ie.Len, Err: err}
	}
	return err
}

// errorKind names err's bridge error type, for script-side dispatch.
func errorKind(err error) string {
	// wrappers first
	for _, target := range []any{
		new(*tether.ArgumentTypeError),
		new(*tether.ArgumentCountError),
		new(*tether.NativeFailure),
		new(*tether.NoSuchFieldError),
		new(*tether.ImmutableFieldError),
		new(*tether.TypeMismatchError),
		new(*IndexError),
		new(*tether.IndexOutOfRangeError),
		new(*tether.KeyNotFoundError),
	} {
		if errors.As(err, target) {
			return reflect.TypeOf(target).Elem().Elem().Name()
		}
	}
	return "Error"
}
