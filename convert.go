package tether

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

var (
	objPtrType = reflect.TypeOf((*Obj)(nil))
	errorType  = reflect.TypeOf((*error)(nil)).Elem()
)

// AsInt converts o to int64, shimmering if needed.
func AsInt(o *Obj) (int64, error) {
	if o == nil {
		return 0, nil
	}
	if c, ok := o.intrep.(IntoInt); ok {
		if v, ok := c.IntoInt(); ok {
			return v, nil
		}
	}
	v, err := strconv.ParseInt(o.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("expected integer but got %q", o.String())
	}
	if o.intrep == nil {
		o.intrep = IntType(v)
	}
	return v, nil
}

// AsDouble converts o to float64, shimmering if needed.
func AsDouble(o *Obj) (float64, error) {
	if o == nil {
		return 0, nil
	}
	if c, ok := o.intrep.(IntoDouble); ok {
		if v, ok := c.IntoDouble(); ok {
			return v, nil
		}
	}
	v, err := strconv.ParseFloat(o.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("expected floating-point number but got %q", o.String())
	}
	if o.intrep == nil {
		o.intrep = DoubleType(v)
	}
	return v, nil
}

// AsBool converts o to a boolean, shimmering if needed.
func AsBool(o *Obj) (bool, error) {
	if o == nil {
		return false, nil
	}
	if c, ok := o.intrep.(IntoBool); ok {
		if v, ok := c.IntoBool(); ok {
			return v, nil
		}
	}
	switch strings.ToLower(o.String()) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected boolean but got %q", o.String())
}

// AsList converts o to a list.
// Sequence views are materialized: alias views yield alias element handles.
func AsList(o *Obj) ([]*Obj, error) {
	if o == nil {
		return nil, nil
	}
	if c, ok := o.intrep.(IntoList); ok {
		if v, ok := c.IntoList(); ok {
			return v, nil
		}
	}
	if seq, ok := o.Sequence(); ok {
		return seq.List()
	}
	return nil, fmt.Errorf("expected list but got %s", o.Type())
}

// AsDict converts o to a dictionary if it has a dict-compatible internal representation.
func AsDict(o *Obj) (*DictType, error) {
	if o == nil {
		return &DictType{Items: make(map[string]*Obj)}, nil
	}
	if c, ok := o.intrep.(IntoDict); ok {
		if items, order, ok := c.IntoDict(); ok {
			return &DictType{Items: items, Order: order}, nil
		}
	}
	return nil, fmt.Errorf("expected dict but got %s", o.Type())
}

// ValueOf converts a Go value to a dynamic value.
//
// Scalars become scalar values. Pointers to structs, slices and maps become
// alias projections; struct, slice and map values become copy projections.
// An *Obj is returned unchanged.
func ValueOf(v any) *Obj {
	switch val := v.(type) {
	case nil:
		return nil
	case *Obj:
		return val
	case []*Obj:
		return List(val...)
	case error:
		return String(val.Error())
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		if obj, err := project(newRoot(rv.Elem()), ModeAlias); err == nil {
			return obj
		}
	case reflect.Struct, reflect.Slice, reflect.Map:
		if obj, err := project(privateRoot(rv), ModeCopy); err == nil {
			return obj
		}
	default:
		if obj, ok := scalarObj(rv); ok {
			return obj
		}
	}
	return String(fmt.Sprint(v))
}

// project wraps the value stored in s according to its type.
// Nested aggregates share the mode of the projection that reached them;
// pointers always alias their target.
func project(s slot, mode Mode) (*Obj, error) {
	t := s.typ()
	switch t.Kind() {
	case reflect.Struct:
		schema, err := SchemaOf(t)
		if err != nil {
			return nil, err
		}
		return &Obj{intrep: &Handle{schema: schema, slot: s, mode: mode}}, nil
	case reflect.Slice:
		if err := checkFieldType(t); err != nil {
			return nil, err
		}
		return &Obj{intrep: &SequenceView{slot: s, mode: mode}}, nil
	case reflect.Map:
		if err := checkFieldType(t); err != nil {
			return nil, err
		}
		return &Obj{intrep: &MapView{slot: s, mode: mode}}, nil
	}

	v, err := s.load()
	if err != nil {
		return nil, err
	}
	switch t.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return nil, nil
		}
		return project(newRoot(v.Elem()), ModeAlias)
	case reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return ValueOf(v.Elem().Interface()), nil
	}
	if obj, ok := scalarObj(v); ok {
		return obj, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, t)
}

func scalarObj(v reflect.Value) (*Obj, bool) {
	switch v.Kind() {
	case reflect.Bool:
		return Bool(v.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Uint(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return Double(v.Float()), true
	case reflect.String:
		return String(v.String()), true
	}
	return nil, false
}

// converter turns dynamic values into Go values of a declared type.
//
// Handles passed where a pointer is expected are unwrapped to the native
// location. A location inside a map entry has no address, so the converter
// borrows a temporary and records a commit that writes it back. Each entry
// is borrowed once per call, so two arguments reaching the same entry share
// one temporary. Only bridged calls can run commits after the native code
// returns; other callers leave borrowing off and get a TypeMismatchError
// instead.
type converter struct {
	borrow  bool
	temps   map[Ref]reflect.Value
	commits []func() error
}

func (c *converter) commit() error {
	commits := c.commits
	c.commits, c.temps = nil, nil
	for _, fn := range commits {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

// resolve returns a settable value for s. Locations under a map entry
// resolve into the entry's shared temporary.
func (c *converter) resolve(s slot) (reflect.Value, error) {
	if s.addressable() {
		v, _, err := s.borrow()
		return v, err
	}
	switch s := s.(type) {
	case *fieldSlot:
		pv, err := c.resolve(s.parent)
		if err != nil {
			return reflect.Value{}, err
		}
		return pv.Field(s.field.index), nil
	case *entrySlot:
		ref := s.ref()
		if v, ok := c.temps[ref]; ok {
			return v, nil
		}
		v, commit, err := s.borrow()
		if err != nil {
			return reflect.Value{}, err
		}
		if c.temps == nil {
			c.temps = make(map[Ref]reflect.Value)
		}
		c.temps[ref] = v
		c.commits = append(c.commits, commit)
		return v, nil
	}
	v, commit, err := s.borrow()
	if err != nil {
		return reflect.Value{}, err
	}
	c.commits = append(c.commits, commit)
	return v, nil
}

// assign converts o for storage into a location of type t.
func assign(context string, o *Obj, t reflect.Type) (reflect.Value, error) {
	var c converter
	return c.convert(context, o, t)
}

func (c *converter) convert(context string, o *Obj, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		b, ok := o.InternalRep().(BoolType)
		if !ok {
			return out, mismatch(context, "bool", o)
		}
		out.SetBool(bool(b))

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := o.InternalRep().(IntType)
		if !ok || out.OverflowInt(int64(n)) {
			return out, mismatch(context, t.String(), o)
		}
		out.SetInt(int64(n))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var n uint64
		switch rep := o.InternalRep().(type) {
		case IntType:
			if rep < 0 {
				return out, mismatch(context, t.String(), o)
			}
			n = uint64(rep)
		case UintType:
			n = uint64(rep)
		default:
			return out, mismatch(context, t.String(), o)
		}
		if out.OverflowUint(n) {
			return out, mismatch(context, t.String(), o)
		}
		out.SetUint(n)

	case reflect.Float32, reflect.Float64:
		var f float64
		switch rep := o.InternalRep().(type) {
		case IntType:
			f = float64(rep)
		case UintType:
			f = float64(rep)
		case DoubleType:
			f = float64(rep)
		default:
			return out, mismatch(context, t.String(), o)
		}
		if t.Kind() == reflect.Float32 && out.OverflowFloat(f) {
			return out, mismatch(context, t.String(), o)
		}
		out.SetFloat(f)

	case reflect.String:
		if o == nil || o.intrep != nil {
			return out, mismatch(context, "string", o)
		}
		out.SetString(o.bytes)

	case reflect.Struct:
		h, ok := o.Handle()
		if !ok || h.schema.typ != t {
			return out, mismatch(context, t.Name(), o)
		}
		v, err := h.slot.load()
		if err != nil {
			return out, err
		}
		out.Set(deepCopy(v))

	case reflect.Pointer:
		if o == nil {
			return out, nil
		}
		s, ok := slotOf(o)
		if !ok || s.typ() != t.Elem() {
			return out, mismatch(context, t.String(), o)
		}
		if !s.addressable() && !c.borrow {
			return out, mismatch(context, "addressable "+t.Elem().String(), o)
		}
		v, err := c.resolve(s)
		if err != nil {
			return out, err
		}
		out.Set(v.Addr())

	case reflect.Slice:
		if seq, ok := o.Sequence(); ok {
			if seq.slot.typ() != t {
				return out, mismatch(context, t.String(), o)
			}
			v, err := seq.slot.load()
			if err != nil {
				return out, err
			}
			out.Set(deepCopy(v))
			break
		}
		if o == nil {
			return out, nil
		}
		items, ok := o.intrep.(IntoList)
		if !ok {
			return out, mismatch(context, t.String(), o)
		}
		list, _ := items.IntoList()
		out.Set(reflect.MakeSlice(t, len(list), len(list)))
		for i, item := range list {
			ev, err := c.convert(fmt.Sprintf("%s[%d]", context, i), item, t.Elem())
			if err != nil {
				return out, err
			}
			out.Index(i).Set(ev)
		}

	case reflect.Map:
		if m, ok := o.Map(); ok {
			if m.slot.typ() != t {
				return out, mismatch(context, t.String(), o)
			}
			v, err := m.slot.load()
			if err != nil {
				return out, err
			}
			out.Set(deepCopy(v))
			break
		}
		if o == nil {
			return out, nil
		}
		if _, ok := o.intrep.(IntoDict); !ok {
			return out, mismatch(context, t.String(), o)
		}
		d, err := AsDict(o)
		if err != nil {
			return out, mismatch(context, t.String(), o)
		}
		out.Set(reflect.MakeMapWithSize(t, len(d.Order)))
		for _, k := range d.Order {
			kv, err := mapKey(context, String(k), t.Key())
			if err != nil {
				return out, err
			}
			ev, err := c.convert(fmt.Sprintf("%s[%s]", context, k), d.Items[k], t.Elem())
			if err != nil {
				return out, err
			}
			out.SetMapIndex(kv, ev)
		}

	case reflect.Interface:
		if o == nil {
			return out, nil
		}
		gv := reflect.ValueOf(goValue(o))
		if !gv.IsValid() {
			return out, nil
		}
		if !gv.Type().AssignableTo(t) {
			return out, mismatch(context, t.String(), o)
		}
		out.Set(gv)

	default:
		return out, fmt.Errorf("%s: %w: %v", context, ErrUnsupportedType, t)
	}
	return out, nil
}

// mapKey converts o to a key of type t. Dict keys arrive as strings, so
// numeric key types also accept their decimal string form.
func mapKey(context string, o *Obj, t reflect.Type) (reflect.Value, error) {
	if o != nil && o.intrep == nil && t.Kind() != reflect.String {
		if n, err := strconv.ParseInt(o.bytes, 10, 64); err == nil {
			o = Int(n)
		} else if u, err := strconv.ParseUint(o.bytes, 10, 64); err == nil {
			o = Uint(u)
		} else if f, err := strconv.ParseFloat(o.bytes, 64); err == nil {
			o = Double(f)
		}
	}
	return assign(context+" key", o, t)
}

// slotOf returns the native location o projects.
func slotOf(o *Obj) (slot, bool) {
	switch rep := o.InternalRep().(type) {
	case *Handle:
		return rep.slot, true
	case *SequenceView:
		return rep.slot, true
	case *MapView:
		return rep.slot, true
	}
	return nil, false
}

// goValue returns the plain Go value of o for untyped destinations.
// Alias projections of addressable storage become pointers into it.
func goValue(o *Obj) any {
	switch rep := o.InternalRep().(type) {
	case nil:
		if o == nil {
			return nil
		}
		return o.bytes
	case IntType:
		return int64(rep)
	case UintType:
		return uint64(rep)
	case DoubleType:
		return float64(rep)
	case BoolType:
		return bool(rep)
	case ListType:
		out := make([]any, len(rep))
		for i, item := range rep {
			out[i] = goValue(item)
		}
		return out
	case *DictType:
		out := make(map[string]any, len(rep.Items))
		for k, v := range rep.Items {
			out[k] = goValue(v)
		}
		return out
	}
	if s, ok := slotOf(o); ok {
		mode, _ := o.Mode()
		if mode == ModeAlias && s.addressable() {
			if v, _, err := s.borrow(); err == nil {
				return v.Addr().Interface()
			}
		}
		if v, err := s.load(); err == nil {
			return deepCopy(v).Interface()
		}
		return nil
	}
	return o.String()
}

// deepCopy returns an independent copy of v. Structs, slices, maps and
// arrays are copied recursively; pointers, interfaces, channels and funcs
// are shared, as in an ordinary Go assignment.
func deepCopy(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			if !v.Type().Field(i).IsExported() {
				continue
			}
			switch v.Field(i).Kind() {
			case reflect.Struct, reflect.Slice, reflect.Map, reflect.Array:
				out.Field(i).Set(deepCopy(v.Field(i)))
			}
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
		}
		return out
	}
	return v
}
