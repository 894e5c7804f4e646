package luahost

import (
	"errors"
	"math"

	"github.com/Shopify/go-lua"

	"github.com/feather-lang/tether"
)

func (h *Host) registerTypes() {
	l := h.state
	types := []struct {
		name string
		fns  []lua.RegistryFunction
	}{
		{handleMeta, []lua.RegistryFunction{
			{Name: "__index", Function: handleIndex},
			{Name: "__newindex", Function: handleNewIndex},
			{Name: "__pairs", Function: handlePairs},
			{Name: "__tostring", Function: objToString},
			{Name: "__eq", Function: objEqual},
		}},
		{sequenceMeta, []lua.RegistryFunction{
			{Name: "__index", Function: sequenceIndex},
			{Name: "__newindex", Function: sequenceNewIndex},
			{Name: "__len", Function: sequenceLen},
			{Name: "__pairs", Function: sequencePairs},
			{Name: "__ipairs", Function: sequencePairs},
			{Name: "__tostring", Function: objToString},
			{Name: "__eq", Function: objEqual},
		}},
		{mapMeta, []lua.RegistryFunction{
			{Name: "__index", Function: mapIndex},
			{Name: "__newindex", Function: mapNewIndex},
			{Name: "__len", Function: mapLen},
			{Name: "__pairs", Function: mapPairs},
			{Name: "__tostring", Function: objToString},
			{Name: "__eq", Function: objEqual},
		}},
	}
	for _, t := range types {
		lua.NewMetaTable(l, t.name)
		lua.SetFunctions(l, t.fns, 0)
		l.Pop(1)
	}
}

func handleAt(l *lua.State, index int) *tether.Handle {
	if hd, ok := objAt(l, index).Handle(); ok {
		return hd
	}
	lua.ArgumentError(l, index, "aggregate expected")
	return nil
}

func sequenceAt(l *lua.State, index int) *tether.SequenceView {
	if s, ok := objAt(l, index).Sequence(); ok {
		return s
	}
	lua.ArgumentError(l, index, "sequence expected")
	return nil
}

func mapAt(l *lua.State, index int) *tether.MapView {
	if m, ok := objAt(l, index).Map(); ok {
		return m
	}
	lua.ArgumentError(l, index, "map expected")
	return nil
}

func valueAt(l *lua.State, index int) *tether.Obj {
	o, err := toObj(l, index)
	if err != nil {
		raise(l, err)
	}
	return o
}

func objToString(l *lua.State) int {
	l.PushString(objAt(l, 1).String())
	return 1
}

func objEqual(l *lua.State) int {
	a, _ := l.ToUserData(1).(*tether.Obj)
	b, _ := l.ToUserData(2).(*tether.Obj)
	l.PushBoolean(tether.Same(a, b))
	return 1
}

// =============================================================================
// Aggregates
// =============================================================================

func handleIndex(l *lua.State) int {
	hd := handleAt(l, 1)
	v, err := hd.Get(lua.CheckString(l, 2))
	if err != nil {
		return raise(l, err)
	}
	push(l, v)
	return 1
}

func handleNewIndex(l *lua.State) int {
	hd := handleAt(l, 1)
	name := lua.CheckString(l, 2)
	if err := hd.Set(name, valueAt(l, 3)); err != nil {
		return raise(l, err)
	}
	return 0
}

// handlePairs iterates fields in declaration order.
func handlePairs(l *lua.State) int {
	hd := handleAt(l, 1)
	names := hd.Fields()
	next := 0
	l.PushGoFunction(func(l *lua.State) int {
		if next >= len(names) {
			l.PushNil()
			return 1
		}
		name := names[next]
		next++
		v, err := hd.Get(name)
		if err != nil {
			return raise(l, err)
		}
		l.PushString(name)
		push(l, v)
		return 2
	})
	l.PushValue(1)
	l.PushNil()
	return 3
}

// =============================================================================
// Sequences
// =============================================================================

// position reads a 1-based sequence position.
func position(l *lua.State, index int) int {
	if l.TypeOf(index) == lua.TypeNumber {
		if n, _ := l.ToNumber(index); n == math.Trunc(n) {
			return int(n)
		}
	}
	raise(l, &tether.TypeMismatchError{Context: "sequence index", Want: "integer", Got: lua.TypeNameOf(l, index)})
	return 0
}

func sequenceIndex(l *lua.State) int {
	s := sequenceAt(l, 1)
	v, err := s.Index(position(l, 2) - 1)
	if err != nil {
		return raise(l, oneBased(err))
	}
	push(l, v)
	return 1
}

// sequenceNewIndex stores an element. Assigning one past the end appends.
func sequenceNewIndex(l *lua.State) int {
	s := sequenceAt(l, 1)
	i := position(l, 2)
	v := valueAt(l, 3)
	var err error
	if i == s.Len()+1 {
		err = s.Append(v)
	} else {
		err = s.SetIndex(i-1, v)
	}
	if err != nil {
		return raise(l, oneBased(err))
	}
	return 0
}

func sequenceLen(l *lua.State) int {
	l.PushInteger(sequenceAt(l, 1).Len())
	return 1
}

func sequencePairs(l *lua.State) int {
	s := sequenceAt(l, 1)
	i := 0
	l.PushGoFunction(func(l *lua.State) int {
		if i >= s.Len() {
			l.PushNil()
			return 1
		}
		v, err := s.Index(i)
		if err != nil {
			return raise(l, oneBased(err))
		}
		i++
		l.PushInteger(i)
		push(l, v)
		return 2
	})
	l.PushValue(1)
	l.PushInteger(0)
	return 3
}

// =============================================================================
// Maps
// =============================================================================

func mapIndex(l *lua.State) int {
	m := mapAt(l, 1)
	v, err := m.Get(valueAt(l, 2))
	if err != nil {
		return raise(l, err)
	}
	push(l, v)
	return 1
}

// mapNewIndex stores an entry. Assigning nil deletes it.
func mapNewIndex(l *lua.State) int {
	m := mapAt(l, 1)
	key := valueAt(l, 2)
	if l.IsNil(3) {
		var nf *tether.KeyNotFoundError
		if err := m.Delete(key); err != nil && !errors.As(err, &nf) {
			return raise(l, err)
		}
		return 0
	}
	if err := m.Set(key, valueAt(l, 3)); err != nil {
		return raise(l, err)
	}
	return 0
}

func mapLen(l *lua.State) int {
	l.PushInteger(mapAt(l, 1).Len())
	return 1
}

// mapPairs iterates entries in ascending key order. Keys deleted during
// the loop are skipped.
func mapPairs(l *lua.State) int {
	m := mapAt(l, 1)
	keys := m.Keys()
	next := 0
	l.PushGoFunction(func(l *lua.State) int {
		for next < len(keys) {
			k := keys[next]
			next++
			v, err := m.Get(k)
			var nf *tether.KeyNotFoundError
			if errors.As(err, &nf) {
				continue
			}
			if err != nil {
				return raise(l, err)
			}
			push(l, k)
			push(l, v)
			return 2
		}
		l.PushNil()
		return 1
	})
	l.PushValue(1)
	l.PushNil()
	return 3
}
