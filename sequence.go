package tether

import (
	"fmt"
	"iter"
	"reflect"
	"strings"
)

// SequenceView projects a native slice.
//
// A copy view reads a private deep copy of the slice. An alias view reads
// the native slice on every operation, so native appends and truncations
// are observed immediately.
type SequenceView struct {
	slot slot
	mode Mode
}

func (s *SequenceView) elemType() reflect.Type { return s.slot.typ().Elem() }

// Name returns "sequence<Elem>".
func (s *SequenceView) Name() string {
	return "sequence<" + typeName(s.elemType()) + ">"
}

func (s *SequenceView) UpdateString() string {
	var b strings.Builder
	for i, item := range s.All() {
		if i > 0 {
			b.WriteByte(' ')
		}
		writeQuoted(&b, item.String())
	}
	return b.String()
}

// Dup returns a copy view of the current contents.
func (s *SequenceView) Dup() ObjType {
	v, err := s.slot.load()
	if err != nil {
		v = reflect.Zero(s.slot.typ())
	}
	return &SequenceView{slot: privateRoot(v), mode: ModeCopy}
}

// Mode reports whether s aliases native storage or owns a copy.
func (s *SequenceView) Mode() Mode { return s.mode }

// Ref identifies the native slice location.
func (s *SequenceView) Ref() Ref { return s.slot.ref() }

// Same reports whether s and other view the same native slice.
func (s *SequenceView) Same(other *SequenceView) bool {
	return other != nil && s.Ref() == other.Ref()
}

// Len returns the current native length. A view whose referent no longer
// exists has length zero.
func (s *SequenceView) Len() int {
	v, err := s.slot.load()
	if err != nil {
		return 0
	}
	return v.Len()
}

// Index returns element i. Aggregate elements come back as handles that
// track position i of the slice.
func (s *SequenceView) Index(i int) (*Obj, error) {
	es := &elemSlot{parent: s.slot, index: i}
	if _, err := es.load(); err != nil {
		return nil, err
	}
	return project(es, s.mode)
}

// SetIndex overwrites element i.
func (s *SequenceView) SetIndex(i int, v *Obj) error {
	es := &elemSlot{parent: s.slot, index: i}
	if _, err := es.load(); err != nil {
		return err
	}
	val, err := assign(fmt.Sprintf("%s[%d]", s.Name(), i), v, s.elemType())
	if err != nil {
		return err
	}
	return es.store(val)
}

// Append adds values at the end of the slice.
func (s *SequenceView) Append(vals ...*Obj) error {
	cur, err := s.slot.load()
	if err != nil {
		return err
	}
	add := make([]reflect.Value, len(vals))
	for j, v := range vals {
		if add[j], err = assign(fmt.Sprintf("%s[%d]", s.Name(), cur.Len()+j), v, s.elemType()); err != nil {
			return err
		}
	}
	return s.slot.store(reflect.Append(cur, add...))
}

// Delete removes element i, shifting later elements down.
func (s *SequenceView) Delete(i int) error {
	cur, err := s.slot.load()
	if err != nil {
		return err
	}
	n := cur.Len()
	if i < 0 || i >= n {
		return &IndexOutOfRangeError{Index: i, Len: n}
	}
	reflect.Copy(cur.Slice(i, n), cur.Slice(i+1, n))
	cur.Index(n - 1).Set(reflect.Zero(s.elemType()))
	return s.slot.store(cur.Slice(0, n-1))
}

// All iterates the elements in index order. The iteration reads the native
// length at each step and may be restarted.
func (s *SequenceView) All() iter.Seq2[int, *Obj] {
	return func(yield func(int, *Obj) bool) {
		for i := 0; i < s.Len(); i++ {
			item, err := s.Index(i)
			if err != nil {
				return
			}
			if !yield(i, item) {
				return
			}
		}
	}
}

// List materializes the elements. Elements of an alias view are alias
// projections, so mutating one mutates the native slice.
func (s *SequenceView) List() ([]*Obj, error) {
	n := s.Len()
	out := make([]*Obj, 0, n)
	for i := 0; i < n; i++ {
		item, err := s.Index(i)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// Interface returns a snapshot of the native slice.
func (s *SequenceView) Interface() (any, error) {
	v, err := s.slot.load()
	if err != nil {
		return nil, err
	}
	return deepCopy(v).Interface(), nil
}

func typeName(t reflect.Type) string {
	if n := t.Name(); n != "" {
		return n
	}
	return t.String()
}
