package tether

import (
	"fmt"
	"reflect"
	"strings"
)

// Handle is a projected native aggregate.
//
// A handle references exactly one native struct location. Alias handles
// read and write the caller's storage; copy handles own a private deep copy.
// Handles never cache field values: every Get reads native memory.
type Handle struct {
	schema *Schema
	slot   slot
	mode   Mode
}

// ProjectAlias projects the struct ptr points to. Writes through the
// projection are visible to native code and the other way around.
func ProjectAlias(ptr any) (*Obj, error) {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, fmt.Errorf("alias projection: expected non-nil pointer, got %T", ptr)
	}
	if err := checkProjectable(rv.Type().Elem()); err != nil {
		return nil, err
	}
	return project(newRoot(rv.Elem()), ModeAlias)
}

// ProjectCopy projects an independent snapshot of v. If v is a pointer the
// value it points to is copied.
func ProjectCopy(v any) (*Obj, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("copy projection: nil %T", v)
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, fmt.Errorf("copy projection: nil value")
	}
	if err := checkProjectable(rv.Type()); err != nil {
		return nil, err
	}
	return project(privateRoot(rv), ModeCopy)
}

// Alias is the typed form of ProjectAlias. It panics if T cannot be projected.
func Alias[T any](p *T) *Obj {
	obj, err := ProjectAlias(p)
	if err != nil {
		panic(fmt.Sprintf("tether.Alias: %v", err))
	}
	return obj
}

// Copy is the typed form of ProjectCopy. It panics if T cannot be projected.
func Copy[T any](v T) *Obj {
	obj, err := ProjectCopy(v)
	if err != nil {
		panic(fmt.Sprintf("tether.Copy: %v", err))
	}
	return obj
}

func checkProjectable(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Struct:
		_, err := SchemaOf(t)
		return err
	case reflect.Slice, reflect.Map:
		return checkFieldType(t)
	}
	return fmt.Errorf("%w: %v is not a struct, slice or map", ErrUnsupportedType, t)
}

// Name returns the aggregate type name.
func (h *Handle) Name() string { return h.schema.Name() }

// UpdateString renders the current field values as "Type{a=1, b=x}".
func (h *Handle) UpdateString() string {
	var b strings.Builder
	b.WriteString(h.schema.Name())
	b.WriteByte('{')
	for i, f := range h.schema.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteByte('=')
		v, err := h.Get(f.Name)
		if err != nil {
			b.WriteString("?")
			continue
		}
		switch {
		case v == nil:
			b.WriteString("nil")
		case f.Type.Kind() == reflect.Pointer:
			// pointees may link back to h
			b.WriteString("&" + v.Type())
		default:
			b.WriteString(v.String())
		}
	}
	b.WriteByte('}')
	return b.String()
}

// Dup returns a copy projection of the current native value.
func (h *Handle) Dup() ObjType {
	v, err := h.slot.load()
	if err != nil {
		v = reflect.Zero(h.schema.typ)
	}
	return &Handle{schema: h.schema, slot: privateRoot(v), mode: ModeCopy}
}

// Schema returns the aggregate's field table.
func (h *Handle) Schema() *Schema { return h.schema }

// Mode reports whether h aliases native storage or owns a copy.
func (h *Handle) Mode() Mode { return h.mode }

// Owned reports whether the projection owns the memory it references.
func (h *Handle) Owned() bool { return h.mode == ModeCopy }

// Ref identifies the referenced native location.
func (h *Handle) Ref() Ref { return h.slot.ref() }

// Same reports whether h and other reference the same native location.
func (h *Handle) Same(other *Handle) bool {
	return other != nil && h.Ref() == other.Ref()
}

// Fields returns the exposed member names in declaration order.
func (h *Handle) Fields() []string {
	names := make([]string, len(h.schema.fields))
	for i, f := range h.schema.fields {
		names[i] = f.Name
	}
	return names
}

// Get reads a field from native memory.
//
// Struct fields come back as handles over the field itself, slices and
// maps as views, pointers as alias handles to their target.
func (h *Handle) Get(name string) (*Obj, error) {
	f, ok := h.schema.Field(name)
	if !ok {
		return nil, &NoSuchFieldError{Type: h.schema.Name(), Field: name}
	}
	return project(&fieldSlot{parent: h.slot, field: f}, h.mode)
}

// Set writes a field in native memory.
func (h *Handle) Set(name string, v *Obj) error {
	f, ok := h.schema.Field(name)
	if !ok {
		return &NoSuchFieldError{Type: h.schema.Name(), Field: name}
	}
	if !f.Mutable {
		return &ImmutableFieldError{Type: h.schema.Name(), Field: name}
	}
	val, err := assign(h.schema.Name()+"."+name, v, f.Type)
	if err != nil {
		return err
	}
	return (&fieldSlot{parent: h.slot, field: f}).store(val)
}

// Interface returns a snapshot of the referenced native value.
func (h *Handle) Interface() (any, error) {
	v, err := h.slot.load()
	if err != nil {
		return nil, err
	}
	return deepCopy(v).Interface(), nil
}
