package luahost

import (
	"github.com/Shopify/go-lua"

	"github.com/feather-lang/tether"
)

// registerLibrary installs the global "tether" table of helpers.
func (h *Host) registerLibrary() {
	lua.NewLibrary(h.state, []lua.RegistryFunction{
		{Name: "same", Function: libSame},
		{Name: "contains", Function: libContains},
		{Name: "list", Function: libList},
		{Name: "items", Function: libItems},
		{Name: "keys", Function: libKeys},
		{Name: "fields", Function: libFields},
		{Name: "copy", Function: libCopy},
		{Name: "mode", Function: libMode},
		{Name: "type", Function: libType},
		{Name: "append", Function: libAppend},
		{Name: "delete", Function: libDelete},
		{Name: "last_error", Function: libLastError},
	})
	h.state.SetGlobal("tether")
}

func libSame(l *lua.State) int {
	l.PushBoolean(tether.Same(valueAt(l, 1), valueAt(l, 2)))
	return 1
}

func libContains(l *lua.State) int {
	l.PushBoolean(mapAt(l, 1).Contains(valueAt(l, 2)))
	return 1
}

// libList materializes a sequence as a table. Elements of an alias view
// stay aliases.
func libList(l *lua.State) int {
	items, err := sequenceAt(l, 1).List()
	if err != nil {
		return raise(l, err)
	}
	push(l, tether.List(items...))
	return 1
}

func libItems(l *lua.State) int {
	o := objAt(l, 1)
	l.SetTop(1)
	switch o.InternalRep().(type) {
	case *tether.Handle:
		return handlePairs(l)
	case *tether.SequenceView:
		return sequencePairs(l)
	}
	return mapPairs(l)
}

func libKeys(l *lua.State) int {
	push(l, tether.List(mapAt(l, 1).Keys()...))
	return 1
}

func libFields(l *lua.State) int {
	names := handleAt(l, 1).Fields()
	l.CreateTable(len(names), 0)
	for i, name := range names {
		l.PushString(name)
		l.RawSetInt(-2, i+1)
	}
	return 1
}

func libCopy(l *lua.State) int {
	push(l, valueAt(l, 1).Copy())
	return 1
}

// libMode returns "alias", "copy" or nil for values that project nothing.
func libMode(l *lua.State) int {
	if mode, ok := valueAt(l, 1).Mode(); ok {
		l.PushString(mode.String())
	} else {
		l.PushNil()
	}
	return 1
}

func libType(l *lua.State) int {
	l.PushString(valueAt(l, 1).Type())
	return 1
}

func libAppend(l *lua.State) int {
	s := sequenceAt(l, 1)
	vals := make([]*tether.Obj, 0, l.Top()-1)
	for i := 2; i <= l.Top(); i++ {
		vals = append(vals, valueAt(l, i))
	}
	if err := s.Append(vals...); err != nil {
		return raise(l, err)
	}
	return 0
}

// libDelete removes a sequence position or a map key.
func libDelete(l *lua.State) int {
	o := objAt(l, 1)
	var err error
	if s, ok := o.Sequence(); ok {
		err = oneBased(s.Delete(position(l, 2) - 1))
	} else {
		err = mapAt(l, 1).Delete(valueAt(l, 2))
	}
	if err != nil {
		return raise(l, err)
	}
	return 0
}

// libLastError returns the kind and message of the last error the bridge
// raised in the current chunk, or nil.
func libLastError(l *lua.State) int {
	t := trailOf(l)
	if t == nil || t.err == nil {
		l.PushNil()
		return 1
	}
	l.PushString(errorKind(t.err))
	l.PushString(t.err.Error())
	return 2
}
