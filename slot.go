package tether

import (
	"fmt"
	"reflect"
)

// Ref identifies a native storage location.
//
// Addressable locations are identified by type and address. Map entries are
// not addressable in Go, so a location inside a map entry is identified by
// the map, the key, and the field path below the entry.
type Ref struct {
	Type reflect.Type
	Base uintptr
	Key  any
	Path string
}

// slot is a native storage location a projection reads and writes through.
// Slots never cache the value they reference: every load walks the chain
// from the root, so native mutation is always observed.
type slot interface {
	// typ is the static type stored in the slot.
	typ() reflect.Type

	// load returns the current value. It may not be addressable.
	load() (reflect.Value, error)

	// store replaces the current value.
	store(v reflect.Value) error

	// borrow returns an addressable value for in-place mutation. The commit
	// function must be called after mutating to write the value back to
	// locations that are not addressable (map entries).
	borrow() (reflect.Value, func() error, error)

	// addressable reports whether borrow hands out the native location
	// itself rather than a temporary.
	addressable() bool

	ref() Ref
}

func noCommit() error { return nil }

// rootSlot is an addressable location: the target of a pointer handed to
// an alias projection, or the private copy owned by a copy projection.
type rootSlot struct {
	v reflect.Value
}

func newRoot(v reflect.Value) *rootSlot {
	if !v.CanAddr() {
		panic(fmt.Sprintf("tether: root slot over non-addressable %v", v.Type()))
	}
	return &rootSlot{v: v}
}

// privateRoot allocates projection-owned storage holding a deep copy of v.
func privateRoot(v reflect.Value) *rootSlot {
	p := reflect.New(v.Type()).Elem()
	p.Set(deepCopy(v))
	return &rootSlot{v: p}
}

func (s *rootSlot) typ() reflect.Type             { return s.v.Type() }
func (s *rootSlot) load() (reflect.Value, error) { return s.v, nil }
func (s *rootSlot) addressable() bool             { return true }

func (s *rootSlot) store(v reflect.Value) error {
	s.v.Set(v)
	return nil
}

func (s *rootSlot) borrow() (reflect.Value, func() error, error) {
	return s.v, noCommit, nil
}

func (s *rootSlot) ref() Ref {
	return Ref{Type: s.v.Type(), Base: s.v.UnsafeAddr()}
}

// fieldSlot is a struct field of its parent.
type fieldSlot struct {
	parent slot
	field  Field
}

func (s *fieldSlot) typ() reflect.Type  { return s.field.Type }
func (s *fieldSlot) addressable() bool { return s.parent.addressable() }

func (s *fieldSlot) load() (reflect.Value, error) {
	pv, err := s.parent.load()
	if err != nil {
		return reflect.Value{}, err
	}
	return pv.Field(s.field.index), nil
}

func (s *fieldSlot) store(v reflect.Value) error {
	pv, commit, err := s.parent.borrow()
	if err != nil {
		return err
	}
	pv.Field(s.field.index).Set(v)
	return commit()
}

func (s *fieldSlot) borrow() (reflect.Value, func() error, error) {
	pv, commit, err := s.parent.borrow()
	if err != nil {
		return reflect.Value{}, nil, err
	}
	return pv.Field(s.field.index), commit, nil
}

func (s *fieldSlot) ref() Ref {
	pr := s.parent.ref()
	if pr.Key == nil {
		sf := s.parent.typ().Field(s.field.index)
		return Ref{Type: s.field.Type, Base: pr.Base + sf.Offset}
	}
	return Ref{Type: s.field.Type, Base: pr.Base, Key: pr.Key, Path: pr.Path + "." + s.field.Name}
}

// elemSlot is an element of the slice held by its parent. Slice elements
// are addressable even when the slice header is not.
type elemSlot struct {
	parent slot
	index  int
}

func (s *elemSlot) typ() reflect.Type  { return s.parent.typ().Elem() }
func (s *elemSlot) addressable() bool { return true }

func (s *elemSlot) load() (reflect.Value, error) {
	sv, err := s.parent.load()
	if err != nil {
		return reflect.Value{}, err
	}
	if s.index < 0 || s.index >= sv.Len() {
		return reflect.Value{}, &IndexOutOfRangeError{Index: s.index, Len: sv.Len()}
	}
	return sv.Index(s.index), nil
}

func (s *elemSlot) store(v reflect.Value) error {
	ev, err := s.load()
	if err != nil {
		return err
	}
	ev.Set(v)
	return nil
}

func (s *elemSlot) borrow() (reflect.Value, func() error, error) {
	ev, err := s.load()
	if err != nil {
		return reflect.Value{}, nil, err
	}
	return ev, noCommit, nil
}

func (s *elemSlot) ref() Ref {
	t := s.typ()
	sv, err := s.parent.load()
	if err != nil || sv.Pointer() == 0 {
		pr := s.parent.ref()
		return Ref{Type: t, Base: pr.Base, Key: pr.Key, Path: fmt.Sprintf("%s[%d]", pr.Path, s.index)}
	}
	return Ref{Type: t, Base: sv.Pointer() + uintptr(s.index)*t.Size()}
}

// entrySlot is the value stored under key in the map held by its parent.
// Map entries are not addressable, so mutation copies the entry out and
// stores it back.
type entrySlot struct {
	parent slot
	key    reflect.Value
}

func (s *entrySlot) typ() reflect.Type  { return s.parent.typ().Elem() }
func (s *entrySlot) addressable() bool { return false }

func (s *entrySlot) load() (reflect.Value, error) {
	mv, err := s.parent.load()
	if err != nil {
		return reflect.Value{}, err
	}
	v := mv.MapIndex(s.key)
	if !v.IsValid() {
		return reflect.Value{}, &KeyNotFoundError{Key: fmt.Sprint(s.key.Interface())}
	}
	return v, nil
}

func (s *entrySlot) store(v reflect.Value) error {
	mv, commit, err := s.parent.borrow()
	if err != nil {
		return err
	}
	if mv.IsNil() {
		mv.Set(reflect.MakeMap(mv.Type()))
	}
	mv.SetMapIndex(s.key, v)
	return commit()
}

func (s *entrySlot) borrow() (reflect.Value, func() error, error) {
	v, err := s.load()
	if err != nil {
		return reflect.Value{}, nil, err
	}
	tmp := reflect.New(v.Type()).Elem()
	tmp.Set(v)
	return tmp, func() error { return s.store(tmp) }, nil
}

func (s *entrySlot) ref() Ref {
	t := s.typ()
	mv, err := s.parent.load()
	if err != nil || mv.IsNil() {
		pr := s.parent.ref()
		return Ref{Type: t, Base: pr.Base, Key: s.key.Interface(), Path: pr.Path + "[]"}
	}
	return Ref{Type: t, Base: mv.Pointer(), Key: s.key.Interface()}
}
