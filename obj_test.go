package tether_test

import (
	"testing"

	"github.com/feather-lang/tether"
	"github.com/google/go-cmp/cmp"
)

// =============================================================================
// Constructing Values - Primitives
// =============================================================================

func TestConstructPrimitives(t *testing.T) {
	t.Run("String", func(t *testing.T) {
		s := tether.String("hello")
		if s.String() != "hello" {
			t.Errorf("expected 'hello', got %q", s.String())
		}
		if s.Type() != "string" {
			t.Errorf("expected type 'string', got %q", s.Type())
		}
	})

	t.Run("Int", func(t *testing.T) {
		i := tether.Int(42)
		if i.String() != "42" {
			t.Errorf("expected '42', got %q", i.String())
		}
		if i.Type() != "int" {
			t.Errorf("expected type 'int', got %q", i.Type())
		}
		n, err := tether.AsInt(i)
		if err != nil || n != 42 {
			t.Errorf("AsInt() = %d, %v; want 42, nil", n, err)
		}
	})

	t.Run("Double", func(t *testing.T) {
		d := tether.Double(3.14)
		f, err := tether.AsDouble(d)
		if err != nil || f != 3.14 {
			t.Errorf("AsDouble() = %f, %v; want 3.14, nil", f, err)
		}
		if d.Type() != "double" {
			t.Errorf("expected type 'double', got %q", d.Type())
		}
		if got := tether.Double(100).String(); got != "100.0" {
			t.Errorf("expected '100.0', got %q", got)
		}
	})

	t.Run("Bool", func(t *testing.T) {
		b, err := tether.AsBool(tether.String("true"))
		if err != nil || !b {
			t.Errorf("AsBool() = %v, %v; want true, nil", b, err)
		}
		if got := tether.Bool(false).String(); got != "false" {
			t.Errorf("expected 'false', got %q", got)
		}
	})

	t.Run("Nil", func(t *testing.T) {
		var o *tether.Obj
		if !o.IsNil() || o.Type() != "nil" || o.String() != "" {
			t.Errorf("nil Obj: IsNil=%v Type=%q String=%q", o.IsNil(), o.Type(), o.String())
		}
	})

	t.Run("ShimmerFromString", func(t *testing.T) {
		s := tether.String("17")
		n, err := s.Int()
		if err != nil || n != 17 {
			t.Fatalf("Int() = %d, %v; want 17, nil", n, err)
		}
		if s.Type() != "int" {
			t.Errorf("expected shimmer to int, got %q", s.Type())
		}
		if _, err := tether.String("seventeen").Int(); err == nil {
			t.Error("expected error for non-numeric string")
		}
	})
}

// =============================================================================
// Constructing Values - Collections
// =============================================================================

func TestConstructLists(t *testing.T) {
	list := tether.List(tether.String("a"), tether.String("b c"), tether.Int(3))
	if got := list.String(); got != "a {b c} 3" {
		t.Errorf("expected 'a {b c} 3', got %q", got)
	}
	items, err := list.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	dup := list.Copy()
	dupItems, _ := dup.List()
	dupItems[0] = tether.String("z")
	if items[0].String() != "a" {
		t.Errorf("Copy shares list storage: %q", items[0].String())
	}
}

func TestConstructDicts(t *testing.T) {
	d := tether.Dict(
		tether.String("name"), tether.String("Rocket v1"),
		tether.String("price"), tether.Int(333222000),
		tether.String("name"), tether.String("Rocket v2"),
	)
	dict, err := tether.AsDict(d)
	if err != nil {
		t.Fatalf("AsDict failed: %v", err)
	}
	if diff := cmp.Diff([]string{"name", "price"}, dict.Order); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}
	if got := dict.Items["name"].String(); got != "Rocket v2" {
		t.Errorf("expected overwrite to 'Rocket v2', got %q", got)
	}
	if got := d.String(); got != "name {Rocket v2} price 333222000" {
		t.Errorf("unexpected string form %q", got)
	}
}

// =============================================================================
// ValueOf
// =============================================================================

func TestValueOf(t *testing.T) {
	r := &Rocket{Name: "Rocket v1"}

	tests := []struct {
		name     string
		in       any
		wantType string
		wantMode tether.Mode
		isProj   bool
	}{
		{"nil", nil, "nil", 0, false},
		{"int32", int32(7), "int", 0, false},
		{"uint8", uint8(7), "int", 0, false},
		{"float32", float32(1.5), "double", 0, false},
		{"bool", true, "bool", 0, false},
		{"string", "x", "string", 0, false},
		{"struct pointer", r, "Rocket", tether.ModeAlias, true},
		{"struct value", *r, "Rocket", tether.ModeCopy, true},
		{"slice pointer", &[]int{1}, "sequence<int>", tether.ModeAlias, true},
		{"slice value", []Rocket{}, "sequence<Rocket>", tether.ModeCopy, true},
		{"map value", map[string]int{}, "map<string,int>", tether.ModeCopy, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := tether.ValueOf(tt.in)
			if o.Type() != tt.wantType {
				t.Errorf("expected type %q, got %q", tt.wantType, o.Type())
			}
			mode, ok := o.Mode()
			if ok != tt.isProj {
				t.Fatalf("expected projection=%v, got %v", tt.isProj, ok)
			}
			if ok && mode != tt.wantMode {
				t.Errorf("expected mode %v, got %v", tt.wantMode, mode)
			}
		})
	}

	obj := tether.Int(1)
	if tether.ValueOf(obj) != obj {
		t.Error("ValueOf(*Obj) should return its argument")
	}
}
