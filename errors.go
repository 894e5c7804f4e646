package tether

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedType is returned when a Go type cannot be projected.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrGlobalStopped is returned when a global is read outside its lifecycle.
	ErrGlobalStopped = errors.New("global is not running")

	// ErrUnknownModule is returned for calls into a module that is not open.
	ErrUnknownModule = errors.New("unknown module")

	// ErrUnknownFunction is returned for calls to a function a module does not define.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrClosed is returned by a bridge after Close.
	ErrClosed = errors.New("bridge is closed")
)

// NoSuchFieldError reports access to a field an aggregate does not expose.
type NoSuchFieldError struct {
	Type  string
	Field string
}

func (e *NoSuchFieldError) Error() string {
	return fmt.Sprintf("%s has no field %q", e.Type, e.Field)
}

// ImmutableFieldError reports a write to a readonly field.
type ImmutableFieldError struct {
	Type  string
	Field string
}

func (e *ImmutableFieldError) Error() string {
	return fmt.Sprintf("field %q of %s is readonly", e.Field, e.Type)
}

// TypeMismatchError reports a value that does not convert to the declared type.
// Context names what was being assigned: a field, an element, a key.
type TypeMismatchError struct {
	Context string
	Want    string
	Got     string
}

func (e *TypeMismatchError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("expected %s but got %s", e.Want, e.Got)
	}
	return fmt.Sprintf("%s: expected %s but got %s", e.Context, e.Want, e.Got)
}

// IndexOutOfRangeError reports a sequence index outside [0, Len).
type IndexOutOfRangeError struct {
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index %d out of range [0, %d)", e.Index, e.Len)
}

// KeyNotFoundError reports a lookup of an absent map key.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("key %q not found", e.Key)
}

// ArgumentCountError reports a bridged call with the wrong number of arguments.
type ArgumentCountError struct {
	Function string
	Want     int
	Got      int
	Variadic bool
}

func (e *ArgumentCountError) Error() string {
	if e.Variadic {
		return fmt.Sprintf("%s: wrong # args: expected at least %d, got %d", e.Function, e.Want, e.Got)
	}
	return fmt.Sprintf("%s: wrong # args: expected %d, got %d", e.Function, e.Want, e.Got)
}

// ArgumentTypeError reports an argument that could not be marshalled.
// Position is 1-based.
type ArgumentTypeError struct {
	Function string
	Position int
	Err      error
}

func (e *ArgumentTypeError) Error() string {
	return fmt.Sprintf("%s: argument %d: %v", e.Function, e.Position, e.Err)
}

func (e *ArgumentTypeError) Unwrap() error { return e.Err }

// NativeFailure wraps an error returned or a panic raised by native code
// during a bridged call.
type NativeFailure struct {
	Function string
	Message  string
	Err      error
}

func (e *NativeFailure) Error() string {
	return fmt.Sprintf("%s: %s", e.Function, e.Message)
}

func (e *NativeFailure) Unwrap() error { return e.Err }

func mismatch(context string, want string, got *Obj) *TypeMismatchError {
	return &TypeMismatchError{Context: context, Want: want, Got: got.Type()}
}
