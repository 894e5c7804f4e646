package luahost

import (
	"fmt"
	"math"

	"github.com/Shopify/go-lua"

	"github.com/feather-lang/tether"
)

// Metatable names registered in every state.
const (
	handleMeta   = "tether.handle"
	sequenceMeta = "tether.sequence"
	mapMeta      = "tether.map"
)

// push pushes o onto the stack. Projected native data becomes userdata;
// lists and dicts become fresh tables.
func push(l *lua.State, o *tether.Obj) {
	if o.IsNil() {
		l.PushNil()
		return
	}
	switch rep := o.InternalRep().(type) {
	case nil:
		l.PushString(o.String())
	case tether.IntType:
		l.PushInteger(int(rep))
	case tether.UintType:
		l.PushNumber(float64(rep))
	case tether.DoubleType:
		l.PushNumber(float64(rep))
	case tether.BoolType:
		l.PushBoolean(bool(rep))
	case tether.ListType:
		l.CreateTable(len(rep), 0)
		for i, item := range rep {
			push(l, item)
			l.RawSetInt(-2, i+1)
		}
	case *tether.DictType:
		l.CreateTable(0, len(rep.Order))
		for _, k := range rep.Order {
			push(l, rep.Items[k])
			l.SetField(-2, k)
		}
	case *tether.Handle:
		pushUserData(l, o, handleMeta)
	case *tether.SequenceView:
		pushUserData(l, o, sequenceMeta)
	case *tether.MapView:
		pushUserData(l, o, mapMeta)
	default:
		l.PushString(o.String())
	}
}

func pushUserData(l *lua.State, v any, meta string) {
	l.PushUserData(v)
	lua.SetMetaTableNamed(l, meta)
}

// toObj converts the value at index. Integral numbers become ints; array
// tables become lists and other tables dicts keyed by tostring.
func toObj(l *lua.State, index int) (*tether.Obj, error) {
	switch l.TypeOf(index) {
	case lua.TypeNil, lua.TypeNone:
		return nil, nil
	case lua.TypeBoolean:
		return tether.Bool(l.ToBoolean(index)), nil
	case lua.TypeNumber:
		n, _ := l.ToNumber(index)
		return number(n), nil
	case lua.TypeString:
		s, _ := l.ToString(index)
		return tether.String(s), nil
	case lua.TypeTable:
		return tableObj(l, index)
	case lua.TypeUserData:
		if v, ok := l.ToUserData(index).(*tether.Obj); ok {
			return v, nil
		}
	}
	return nil, &tether.TypeMismatchError{Want: "value", Got: lua.TypeNameOf(l, index)}
}

func number(n float64) *tether.Obj {
	if n == math.Trunc(n) && n >= math.MinInt64 && n < math.MaxInt64 {
		return tether.Int(int64(n))
	}
	return tether.Double(n)
}

func tableObj(l *lua.State, index int) (*tether.Obj, error) {
	index = l.AbsIndex(index)
	n := l.RawLength(index)
	var keys []string
	values := make(map[string]*tether.Obj)
	count := 0
	l.PushNil()
	for l.Next(index) {
		v, err := toObj(l, -1)
		if err != nil {
			l.Pop(2)
			return nil, err
		}
		l.Pop(1)
		var key string
		switch l.TypeOf(-1) {
		case lua.TypeNumber:
			f, _ := l.ToNumber(-1)
			key = number(f).String()
		case lua.TypeString:
			// ToString on a number key would corrupt the traversal
			key, _ = l.ToString(-1)
		default:
			got := lua.TypeNameOf(l, -1)
			l.Pop(1)
			return nil, &tether.TypeMismatchError{Context: "table key", Want: "string or number", Got: got}
		}
		if _, ok := values[key]; !ok {
			keys = append(keys, key)
		}
		values[key] = v
		count++
	}
	if count == n {
		items := make([]*tether.Obj, n)
		for i := 1; i <= n; i++ {
			items[i-1] = values[fmt.Sprint(i)]
		}
		return tether.List(items...), nil
	}
	return tether.NewObj(&tether.DictType{Items: values, Order: keys}), nil
}

// objAt returns the projected value at index or raises an argument error.
func objAt(l *lua.State, index int) *tether.Obj {
	if o, ok := l.ToUserData(index).(*tether.Obj); ok {
		return o
	}
	lua.ArgumentError(l, index, "tether value expected, got "+lua.TypeNameOf(l, index))
	return nil
}
