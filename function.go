package tether

import (
	"errors"
	"fmt"
	"reflect"
)

// DefOption configures a bridged function.
type DefOption func(*Function)

// ReturnCopy makes the function return copy projections.
// A returned pointer is followed and its target copied.
func ReturnCopy() DefOption {
	return func(f *Function) {
		f.ret = ModeCopy
		f.retSet = true
	}
}

// ReturnAlias makes the function return alias projections. Only functions
// returning a pointer can alias; Def panics otherwise.
func ReturnAlias() DefOption {
	return func(f *Function) {
		f.ret = ModeAlias
		f.retSet = true
	}
}

// Function is a native function callable from the dynamic side.
type Function struct {
	name   string
	fn     reflect.Value
	typ    reflect.Type
	ret    Mode
	retSet bool
	out    []int // indices of value results, excluding a trailing error
	hasErr bool
}

func newFunction(name string, fn any, opts ...DefOption) *Function {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		panic(fmt.Sprintf("Def %s: expected function, got %T", name, fn))
	}
	ft := fv.Type()
	f := &Function{name: name, fn: fv, typ: ft}
	for i := 0; i < ft.NumOut(); i++ {
		if i == ft.NumOut()-1 && ft.Out(i) == errorType {
			f.hasErr = true
			continue
		}
		f.out = append(f.out, i)
	}
	for _, opt := range opts {
		opt(f)
	}
	if !f.retSet {
		f.ret = ModeCopy
		if len(f.out) == 1 && ft.Out(f.out[0]).Kind() == reflect.Pointer {
			f.ret = ModeAlias
		}
	}
	if f.ret == ModeAlias {
		for _, i := range f.out {
			if ft.Out(i).Kind() != reflect.Pointer && ft.Out(i) != objPtrType {
				panic(fmt.Sprintf("Def %s: alias return requires a pointer result, got %v", name, ft.Out(i)))
			}
		}
	}
	return f
}

// Name returns the exposed name.
func (f *Function) Name() string { return f.name }

// ReturnMode returns the projection mode of the function's results.
func (f *Function) ReturnMode() Mode { return f.ret }

// NumIn returns the number of declared parameters.
func (f *Function) NumIn() int { return f.typ.NumIn() }

// NumOut returns the number of value results, not counting a trailing error.
func (f *Function) NumOut() int { return len(f.out) }

// Signature renders the Go signature for help output.
func (f *Function) Signature() string { return f.name + f.typ.String()[len("func"):] }

// Call invokes the native function.
//
// Arguments are converted to the declared parameter types. A handle passed
// for a *T parameter hands the function the native location itself, so
// mutations are visible on the dynamic side once Call returns. A trailing
// error result or a panic becomes a *NativeFailure.
func (f *Function) Call(args ...*Obj) (result *Obj, err error) {
	numIn := f.typ.NumIn()
	variadic := f.typ.IsVariadic()
	if variadic {
		if len(args) < numIn-1 {
			return nil, &ArgumentCountError{Function: f.name, Want: numIn - 1, Got: len(args), Variadic: true}
		}
	} else if len(args) != numIn {
		return nil, &ArgumentCountError{Function: f.name, Want: numIn, Got: len(args)}
	}

	c := converter{borrow: true}
	in := make([]reflect.Value, len(args))
	for j, arg := range args {
		var paramType reflect.Type
		if variadic && j >= numIn-1 {
			paramType = f.typ.In(numIn - 1).Elem()
		} else {
			paramType = f.typ.In(j)
		}
		if paramType == objPtrType {
			in[j] = reflect.ValueOf(arg)
			continue
		}
		v, err := c.convert("", arg, paramType)
		if err != nil {
			return nil, &ArgumentTypeError{Function: f.name, Position: j + 1, Err: err}
		}
		in[j] = v
	}

	results, err := f.invoke(in)
	if cerr := c.commit(); err == nil && cerr != nil {
		err = &NativeFailure{Function: f.name, Message: cerr.Error(), Err: cerr}
	}
	if err != nil {
		return nil, err
	}
	return f.results(results)
}

func (f *Function) invoke(in []reflect.Value) (results []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			perr, _ := r.(error)
			err = &NativeFailure{Function: f.name, Message: fmt.Sprint(r), Err: perr}
		}
	}()
	results = f.fn.Call(in)
	if f.hasErr {
		if last := results[len(results)-1]; !last.IsNil() {
			nerr := last.Interface().(error)
			var failure *NativeFailure
			if errors.As(nerr, &failure) {
				return nil, nerr
			}
			return nil, &NativeFailure{Function: f.name, Message: nerr.Error(), Err: nerr}
		}
	}
	return results, nil
}

func (f *Function) results(results []reflect.Value) (*Obj, error) {
	switch len(f.out) {
	case 0:
		return nil, nil
	case 1:
		return f.result(results[f.out[0]])
	}
	items := make([]*Obj, len(f.out))
	for j, i := range f.out {
		obj, err := f.result(results[i])
		if err != nil {
			return nil, err
		}
		items[j] = obj
	}
	return List(items...), nil
}

func (f *Function) result(v reflect.Value) (*Obj, error) {
	if v.Type() == objPtrType {
		obj := v.Interface().(*Obj)
		if f.ret == ModeCopy {
			return obj.Copy(), nil
		}
		return obj, nil
	}
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return nil, nil
		}
		if f.ret == ModeAlias {
			return project(newRoot(v.Elem()), ModeAlias)
		}
		return project(privateRoot(v.Elem()), ModeCopy)
	case reflect.Struct, reflect.Slice, reflect.Map:
		return project(privateRoot(v), ModeCopy)
	case reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return f.result(v.Elem())
	}
	if obj, ok := scalarObj(v); ok {
		return obj, nil
	}
	return nil, fmt.Errorf("%s: %w: result %v", f.name, ErrUnsupportedType, v.Type())
}
