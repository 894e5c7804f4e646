package tether

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
)

// Mode selects how native data crosses the boundary.
type Mode uint8

const (
	// ModeCopy projections read and write an independent snapshot owned by
	// the projection. Nothing propagates in either direction.
	ModeCopy Mode = iota

	// ModeAlias projections reference native storage. Writes through any alias
	// are visible to native code and to every other alias of the same storage.
	ModeAlias
)

func (m Mode) String() string {
	switch m {
	case ModeCopy:
		return "copy"
	case ModeAlias:
		return "alias"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

// Field describes one exposed member of an aggregate.
type Field struct {
	// Name is the dynamic-side name.
	Name string

	// GoName is the struct field name.
	GoName string

	// Type is the declared Go type.
	Type reflect.Type

	// Mutable is false for fields tagged readonly.
	Mutable bool

	index int
}

// Schema is the field table of a Go struct type exposed to the dynamic side.
//
// Fields come from exported struct fields. The struct tag controls exposure:
//
//	type Rocket struct {
//	    MaxSpeed float64 `tether:"max_speed"`
//	    Engines  int32   `tether:"number_of_engines,readonly"`
//	    internal string  // unexported: never exposed
//	    Debug    bool    `tether:"-"`
//	}
//
// Without a tag the dynamic name is the snake_case form of the Go name.
type Schema struct {
	typ    reflect.Type
	fields []Field
	byName map[string]int
}

var schemas sync.Map // reflect.Type -> *Schema

// SchemaOf returns the cached schema for struct type t.
func SchemaOf(t reflect.Type) (*Schema, error) {
	if cached, ok := schemas.Load(t); ok {
		return cached.(*Schema), nil
	}
	s, err := buildSchema(t)
	if err != nil {
		return nil, err
	}
	actual, _ := schemas.LoadOrStore(t, s)
	return actual.(*Schema), nil
}

func buildSchema(t reflect.Type) (*Schema, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v is not a struct", ErrUnsupportedType, t)
	}
	s := &Schema{typ: t, byName: make(map[string]int)}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(sf.Tag.Get("tether"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = snakeCase(sf.Name)
		}
		if err := checkFieldType(sf.Type); err != nil {
			return nil, fmt.Errorf("%v.%s: %w", t, sf.Name, err)
		}
		if _, dup := s.byName[name]; dup {
			return nil, fmt.Errorf("%v: duplicate field name %q", t, name)
		}
		f := Field{
			Name:    name,
			GoName:  sf.Name,
			Type:    sf.Type,
			Mutable: !hasOption(opts, "readonly"),
			index:   i,
		}
		s.byName[name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// checkFieldType rejects kinds that have no dynamic counterpart.
// Struct element types are checked lazily when they are projected, which
// keeps self-referential types (linked nodes) legal.
func checkFieldType(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Bool, reflect.String, reflect.Interface, reflect.Struct,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return nil
	case reflect.Slice:
		return checkFieldType(t.Elem())
	case reflect.Map:
		if !orderedKind(t.Key().Kind()) {
			return fmt.Errorf("%w: map key %v is not ordered", ErrUnsupportedType, t.Key())
		}
		return checkFieldType(t.Elem())
	case reflect.Pointer:
		switch t.Elem().Kind() {
		case reflect.Struct, reflect.Slice, reflect.Map:
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrUnsupportedType, t)
}

// Name returns the aggregate's type name.
func (s *Schema) Name() string {
	if n := s.typ.Name(); n != "" {
		return n
	}
	return s.typ.String()
}

// Type returns the Go struct type.
func (s *Schema) Type() reflect.Type { return s.typ }

// Fields returns the exposed fields in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up an exposed field by its dynamic name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if strings.TrimSpace(opt) == want {
			return true
		}
	}
	return false
}

// snakeCase converts a Go identifier to snake_case, keeping acronyms together:
// MaxSpeed -> max_speed, HTTPPort -> http_port, Apollo11 -> apollo11.
func snakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
