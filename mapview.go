package tether

import (
	"cmp"
	"fmt"
	"iter"
	"reflect"
	"slices"
	"strings"
)

// MapView projects a native map with an ordered key type.
//
// Iteration visits entries in ascending key order, the order of an ordered
// native map. Lookups of absent keys fail; they never insert a default.
type MapView struct {
	slot slot
	mode Mode
}

func (m *MapView) mapType() reflect.Type { return m.slot.typ() }

// Name returns "map<Key,Value>".
func (m *MapView) Name() string {
	t := m.mapType()
	return "map<" + typeName(t.Key()) + "," + typeName(t.Elem()) + ">"
}

func (m *MapView) UpdateString() string {
	var b strings.Builder
	first := true
	for k, v := range m.Items() {
		if !first {
			b.WriteByte(' ')
		}
		first = false
		writeQuoted(&b, k.String())
		b.WriteByte(' ')
		writeQuoted(&b, v.String())
	}
	return b.String()
}

// Dup returns a copy view of the current contents.
func (m *MapView) Dup() ObjType {
	v, err := m.slot.load()
	if err != nil {
		v = reflect.Zero(m.mapType())
	}
	return &MapView{slot: privateRoot(v), mode: ModeCopy}
}

// Mode reports whether m aliases native storage or owns a copy.
func (m *MapView) Mode() Mode { return m.mode }

// Ref identifies the native map location.
func (m *MapView) Ref() Ref { return m.slot.ref() }

// Same reports whether m and other view the same native map.
func (m *MapView) Same(other *MapView) bool {
	return other != nil && m.Ref() == other.Ref()
}

// Len returns the current number of entries.
func (m *MapView) Len() int {
	v, err := m.slot.load()
	if err != nil {
		return 0
	}
	return v.Len()
}

func (m *MapView) key(k *Obj) (reflect.Value, error) {
	return mapKey(m.Name(), k, m.mapType().Key())
}

// Contains reports whether key is present. Keys of the wrong type are
// simply absent.
func (m *MapView) Contains(key *Obj) bool {
	kv, err := m.key(key)
	if err != nil {
		return false
	}
	mv, err := m.slot.load()
	if err != nil {
		return false
	}
	return mv.MapIndex(kv).IsValid()
}

// Get returns the value under key. Aggregate values come back as handles
// over the map entry; writes through them are stored back into the map.
func (m *MapView) Get(key *Obj) (*Obj, error) {
	kv, err := m.key(key)
	if err != nil {
		return nil, err
	}
	es := &entrySlot{parent: m.slot, key: kv}
	if _, err := es.load(); err != nil {
		return nil, err
	}
	return project(es, m.mode)
}

// Set inserts or overwrites the value under key.
func (m *MapView) Set(key, v *Obj) error {
	kv, err := m.key(key)
	if err != nil {
		return err
	}
	val, err := assign(fmt.Sprintf("%s[%v]", m.Name(), kv.Interface()), v, m.mapType().Elem())
	if err != nil {
		return err
	}
	return (&entrySlot{parent: m.slot, key: kv}).store(val)
}

// Delete removes key.
func (m *MapView) Delete(key *Obj) error {
	kv, err := m.key(key)
	if err != nil {
		return err
	}
	mv, err := m.slot.load()
	if err != nil {
		return err
	}
	if !mv.MapIndex(kv).IsValid() {
		return &KeyNotFoundError{Key: fmt.Sprint(kv.Interface())}
	}
	mv.SetMapIndex(kv, reflect.Value{})
	return nil
}

// Keys returns the keys in ascending order.
func (m *MapView) Keys() []*Obj {
	mv, err := m.slot.load()
	if err != nil {
		return nil
	}
	keys := sortedKeys(mv)
	out := make([]*Obj, len(keys))
	for i, k := range keys {
		out[i], _ = scalarObj(k)
	}
	return out
}

// Items iterates the entries in ascending key order. Keys are taken when
// iteration starts; entries deleted during iteration are skipped.
func (m *MapView) Items() iter.Seq2[*Obj, *Obj] {
	return func(yield func(*Obj, *Obj) bool) {
		mv, err := m.slot.load()
		if err != nil {
			return
		}
		for _, k := range sortedKeys(mv) {
			es := &entrySlot{parent: m.slot, key: k}
			if _, err := es.load(); err != nil {
				continue
			}
			v, err := project(es, m.mode)
			if err != nil {
				return
			}
			ko, _ := scalarObj(k)
			if !yield(ko, v) {
				return
			}
		}
	}
}

// Interface returns a snapshot of the native map.
func (m *MapView) Interface() (any, error) {
	v, err := m.slot.load()
	if err != nil {
		return nil, err
	}
	return deepCopy(v).Interface(), nil
}

func orderedKind(k reflect.Kind) bool {
	switch k {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func sortedKeys(mv reflect.Value) []reflect.Value {
	keys := mv.MapKeys()
	slices.SortFunc(keys, compareKeys)
	return keys
}

func compareKeys(a, b reflect.Value) int {
	switch a.Kind() {
	case reflect.String:
		return cmp.Compare(a.String(), b.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cmp.Compare(a.Int(), b.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return cmp.Compare(a.Uint(), b.Uint())
	case reflect.Float32, reflect.Float64:
		return cmp.Compare(a.Float(), b.Float())
	}
	panic(fmt.Sprintf("tether: unordered key kind %v", a.Kind()))
}
