package tether

import "math"

// Obj is a dynamic-side value.
// It has a string representation and an optional internal representation.
// Projected native data (handles, sequence and map views) lives in the
// internal representation.
//
// A nil *Obj is the dynamic nil.
type Obj struct {
	bytes  string  // string representation ("" = empty string if intrep == nil)
	intrep ObjType // internal representation (nil = pure string)
}

// ObjType defines the core behavior for an internal representation.
type ObjType interface {
	// Name returns the type name (e.g., "int", "Rocket", "sequence<Rocket>").
	Name() string

	// UpdateString regenerates string representation from this internal rep.
	UpdateString() string

	// Dup creates a copy of this internal representation.
	// For projected native data Dup is a copy projection.
	Dup() ObjType
}

// referenceRep marks internal representations backed by native memory.
// Their string form is never cached because native code can change it.
type referenceRep interface {
	ObjType
	Mode() Mode
	Ref() Ref
}

// IntoInt can convert directly to int64.
type IntoInt interface {
	IntoInt() (int64, bool)
}

// IntoDouble can convert directly to float64.
type IntoDouble interface {
	IntoDouble() (float64, bool)
}

// IntoList can convert directly to a list.
type IntoList interface {
	IntoList() ([]*Obj, bool)
}

// IntoDict can convert directly to a dictionary.
type IntoDict interface {
	IntoDict() (map[string]*Obj, []string, bool)
}

// IntoBool can convert directly to a boolean.
type IntoBool interface {
	IntoBool() (bool, bool)
}

// NewObj creates an object with a custom internal representation.
func NewObj(intrep ObjType) *Obj {
	return &Obj{intrep: intrep}
}

// String creates a string object.
func String(s string) *Obj {
	return &Obj{bytes: s}
}

// Int creates an integer object.
func Int(v int64) *Obj {
	return &Obj{intrep: IntType(v)}
}

// Uint creates an integer object from an unsigned value.
func Uint(v uint64) *Obj {
	if v <= math.MaxInt64 {
		return Int(int64(v))
	}
	return &Obj{intrep: UintType(v)}
}

// Double creates a floating-point object.
func Double(v float64) *Obj {
	return &Obj{intrep: DoubleType(v)}
}

// Bool creates a boolean object.
func Bool(v bool) *Obj {
	return &Obj{intrep: BoolType(v)}
}

// List creates a dynamic list object from the given items.
func List(items ...*Obj) *Obj {
	return &Obj{intrep: ListType(items)}
}

// Dict creates a dynamic dict from alternating key-value pairs.
// Keys are taken by their string representation.
func Dict(kvs ...*Obj) *Obj {
	d := &DictType{Items: make(map[string]*Obj)}
	for j := 0; j+1 < len(kvs); j += 2 {
		d.Set(kvs[j].String(), kvs[j+1])
	}
	return &Obj{intrep: d}
}

// String returns the string representation of the object.
// If the string representation is empty and there's an internal representation,
// it regenerates the string from the internal rep.
func (o *Obj) String() string {
	if o == nil {
		return ""
	}
	if ref, ok := o.intrep.(referenceRep); ok {
		return ref.UpdateString()
	}
	if o.bytes == "" && o.intrep != nil {
		o.bytes = o.intrep.UpdateString()
	}
	return o.bytes
}

// Type returns the type name of the object.
// Returns "string" for pure string objects and "nil" for the nil object.
func (o *Obj) Type() string {
	if o == nil {
		return "nil"
	}
	if o.intrep == nil {
		return "string"
	}
	return o.intrep.Name()
}

// IsNil reports whether o is the dynamic nil.
func (o *Obj) IsNil() bool {
	return o == nil
}

// InternalRep returns the internal representation of the object.
// Returns nil for pure string objects.
func (o *Obj) InternalRep() ObjType {
	if o == nil {
		return nil
	}
	return o.intrep
}

// Copy creates a copy of the object.
// If the object has an internal representation, it is duplicated via Dup(),
// which turns any projected native data into an independent copy projection.
func (o *Obj) Copy() *Obj {
	if o == nil {
		return nil
	}
	if o.intrep == nil {
		return &Obj{bytes: o.bytes}
	}
	if _, ok := o.intrep.(referenceRep); ok {
		return &Obj{intrep: o.intrep.Dup()}
	}
	return &Obj{bytes: o.bytes, intrep: o.intrep.Dup()}
}

// Handle returns the projected aggregate held by o.
func (o *Obj) Handle() (*Handle, bool) {
	h, ok := o.InternalRep().(*Handle)
	return h, ok
}

// Sequence returns the sequence view held by o.
func (o *Obj) Sequence() (*SequenceView, bool) {
	s, ok := o.InternalRep().(*SequenceView)
	return s, ok
}

// Map returns the map view held by o.
func (o *Obj) Map() (*MapView, bool) {
	m, ok := o.InternalRep().(*MapView)
	return m, ok
}

// Mode returns the projection mode of o and whether o holds projected
// native data at all.
func (o *Obj) Mode() (Mode, bool) {
	ref, ok := o.InternalRep().(referenceRep)
	if !ok {
		return 0, false
	}
	return ref.Mode(), true
}

// Same reports whether a and b project the same native location.
// Wrapper identity is irrelevant: two distinct Objs from two separate
// projections of one native value are Same.
func Same(a, b *Obj) bool {
	ra, ok := a.InternalRep().(referenceRep)
	if !ok {
		return false
	}
	rb, ok := b.InternalRep().(referenceRep)
	if !ok {
		return false
	}
	return ra.Ref() == rb.Ref()
}

// Int returns the integer value of this object, shimmering if needed.
func (o *Obj) Int() (int64, error) {
	return AsInt(o)
}

// Double returns the float64 value of this object, shimmering if needed.
func (o *Obj) Double() (float64, error) {
	return AsDouble(o)
}

// Bool returns the boolean value of this object.
func (o *Obj) Bool() (bool, error) {
	return AsBool(o)
}

// List returns the list elements of this object.
// Sequence views are materialized element by element.
func (o *Obj) List() ([]*Obj, error) {
	return AsList(o)
}
