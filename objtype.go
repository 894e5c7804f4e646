package tether

import (
	"math"
	"slices"
	"strconv"
	"strings"
)

// IntType is the internal representation for integer values.
type IntType int64

func (t IntType) Name() string         { return "int" }
func (t IntType) Dup() ObjType         { return t }
func (t IntType) UpdateString() string { return strconv.FormatInt(int64(t), 10) }

func (t IntType) IntoInt() (int64, bool)      { return int64(t), true }
func (t IntType) IntoDouble() (float64, bool) { return float64(t), true }
func (t IntType) IntoBool() (bool, bool)      { return t != 0, true }

// UintType is the internal representation for unsigned integers above
// the int64 range. Smaller unsigned values are IntType.
type UintType uint64

func (t UintType) Name() string         { return "int" }
func (t UintType) Dup() ObjType         { return t }
func (t UintType) UpdateString() string { return strconv.FormatUint(uint64(t), 10) }

func (t UintType) IntoInt() (int64, bool)      { return int64(t), t <= math.MaxInt64 }
func (t UintType) IntoDouble() (float64, bool) { return float64(t), true }
func (t UintType) IntoBool() (bool, bool)      { return t != 0, true }

// DoubleType is the internal representation for floating-point values.
type DoubleType float64

func (t DoubleType) Name() string { return "double" }
func (t DoubleType) Dup() ObjType { return t }
func (t DoubleType) UpdateString() string {
	s := strconv.FormatFloat(float64(t), 'g', -1, 64)
	if s == "+Inf" {
		s = "Inf"
	}
	// Add .0 for round numbers, but not for NaN/Inf
	if !strings.Contains(s, ".") && !strings.Contains(s, "e") &&
		!strings.Contains(s, "NaN") && !strings.Contains(s, "Inf") {
		s += ".0"
	}
	return s
}

func (t DoubleType) IntoDouble() (float64, bool) { return float64(t), true }

// BoolType is the internal representation for boolean values.
type BoolType bool

func (t BoolType) Name() string { return "bool" }
func (t BoolType) Dup() ObjType { return t }
func (t BoolType) UpdateString() string {
	if t {
		return "true"
	}
	return "false"
}

func (t BoolType) IntoBool() (bool, bool) { return bool(t), true }

// ListType is the internal representation for dynamic list values.
type ListType []*Obj

func (t ListType) Name() string { return "list" }
func (t ListType) Dup() ObjType { return ListType(slices.Clone(t)) }
func (t ListType) UpdateString() string {
	var result strings.Builder
	for i, item := range t {
		if i > 0 {
			result.WriteByte(' ')
		}
		writeQuoted(&result, item.String())
	}
	return result.String()
}

func (t ListType) IntoList() ([]*Obj, bool) { return t, true }

func (t ListType) IntoDict() (map[string]*Obj, []string, bool) {
	if len(t)%2 != 0 {
		return nil, nil, false
	}
	d := &DictType{Items: make(map[string]*Obj)}
	for i := 0; i < len(t); i += 2 {
		d.Set(t[i].String(), t[i+1])
	}
	return d.Items, d.Order, true
}

// DictType is the internal representation for dynamic dictionary values.
// Order records insertion order of the keys.
type DictType struct {
	Items map[string]*Obj
	Order []string
}

func (t *DictType) Name() string { return "dict" }

func (t *DictType) Dup() ObjType {
	newItems := make(map[string]*Obj, len(t.Items))
	for k, v := range t.Items {
		newItems[k] = v
	}
	return &DictType{Items: newItems, Order: slices.Clone(t.Order)}
}

func (t *DictType) UpdateString() string {
	var result strings.Builder
	for i, key := range t.Order {
		if i > 0 {
			result.WriteByte(' ')
		}
		writeQuoted(&result, key)
		result.WriteByte(' ')
		writeQuoted(&result, t.Items[key].String())
	}
	return result.String()
}

func (t *DictType) IntoDict() (map[string]*Obj, []string, bool) {
	return t.Items, t.Order, true
}

// Set inserts or overwrites key, keeping first-insertion order.
func (t *DictType) Set(key string, val *Obj) {
	if t.Items == nil {
		t.Items = make(map[string]*Obj)
	}
	if _, exists := t.Items[key]; !exists {
		t.Order = append(t.Order, key)
	}
	t.Items[key] = val
}

// writeQuoted writes s, braced if it is empty or contains separators.
func writeQuoted(b *strings.Builder, s string) {
	if len(s) == 0 || strings.ContainsAny(s, " \t\n{}") {
		b.WriteByte('{')
		b.WriteString(s)
		b.WriteByte('}')
		return
	}
	b.WriteString(s)
}
