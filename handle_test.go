package tether_test

import (
	"errors"
	"math"
	"testing"

	"github.com/feather-lang/tether"
	"github.com/google/go-cmp/cmp"
)

func mustHandle(t *testing.T, o *tether.Obj) *tether.Handle {
	t.Helper()
	h, ok := o.Handle()
	if !ok {
		t.Fatalf("expected handle, got %s", o.Type())
	}
	return h
}

func mustGet(t *testing.T, h *tether.Handle, field string) *tether.Obj {
	t.Helper()
	v, err := h.Get(field)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", field, err)
	}
	return v
}

// =============================================================================
// Schema
// =============================================================================

func TestSchema(t *testing.T) {
	h := mustHandle(t, tether.Alias(&Vehicle{}))
	want := []string{"name", "main", "stages", "crew", "escort", "payload", "serial", "reusable"}
	if diff := cmp.Diff(want, h.Fields()); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}

	sealed := mustHandle(t, tether.Alias(&SealedRocket{}))
	f, ok := sealed.Schema().Field("number_of_engines")
	if !ok || f.Mutable || f.GoName != "Engines" {
		t.Errorf("unexpected field %+v", f)
	}

	type Bad struct{ C chan int }
	if _, err := tether.ProjectAlias(&Bad{}); !errors.Is(err, tether.ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}

	type BadKey struct{ M map[Stage]int }
	if _, err := tether.ProjectCopy(BadKey{}); !errors.Is(err, tether.ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType for unordered key, got %v", err)
	}

	if _, err := tether.ProjectAlias(Rocket{}); err == nil {
		t.Error("expected alias projection of a non-pointer to fail")
	}
}

// =============================================================================
// Alias Projection
// =============================================================================

func TestAliasWriteThrough(t *testing.T) {
	r := &Rocket{MaxSpeed: 100, Price: 333222000, NumberOfEngines: 2, Name: "Rocket v1"}
	h := mustHandle(t, tether.Alias(r))

	tests := []struct {
		field string
		value *tether.Obj
		check func() bool
	}{
		{"name", tether.String("Rocket v2"), func() bool { return r.Name == "Rocket v2" }},
		{"price", tether.Int(444333000), func() bool { return r.Price == 444333000 }},
		{"max_speed", tether.Int(250), func() bool { return r.MaxSpeed == 250 }},
		{"max_speed", tether.Double(99.5), func() bool { return r.MaxSpeed == 99.5 }},
		{"number_of_engines", tether.Int(3), func() bool { return r.NumberOfEngines == 3 }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			if err := h.Set(tt.field, tt.value); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if !tt.check() {
				t.Errorf("native value not updated: %+v", *r)
			}
			if got := mustGet(t, h, tt.field).String(); got != tt.value.String() && tt.field != "max_speed" {
				t.Errorf("Get after Set: expected %q, got %q", tt.value.String(), got)
			}
		})
	}

	// native writes are visible immediately
	r.Name = "patched"
	if got := mustGet(t, h, "name").String(); got != "patched" {
		t.Errorf("expected 'patched', got %q", got)
	}
	if h.Owned() || h.Mode() != tether.ModeAlias {
		t.Errorf("alias handle reports Owned=%v Mode=%v", h.Owned(), h.Mode())
	}
}

func TestCopyIndependence(t *testing.T) {
	r := Rocket{Name: "Rocket v1", Price: 1}
	h := mustHandle(t, tether.Copy(r))

	if err := h.Set("name", tether.String("changed")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if r.Name != "Rocket v1" {
		t.Errorf("copy write leaked into native value: %q", r.Name)
	}
	r.Price = 2
	if n, _ := mustGet(t, h, "price").Int(); n != 1 {
		t.Errorf("native write leaked into copy: %d", n)
	}
	if !h.Owned() {
		t.Error("copy handle should own its storage")
	}

	v := &Vehicle{Stages: []Stage{{Name: "s1"}}, Crew: map[string]int{"pilot": 1}}
	vh := mustHandle(t, tether.Copy(v))
	stages, _ := mustGet(t, vh, "stages").Sequence()
	first, _ := stages.Index(0)
	if err := mustHandle(t, first).Set("name", tether.String("copied")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v.Stages[0].Name != "s1" {
		t.Errorf("deep copy shares slice storage: %q", v.Stages[0].Name)
	}
	crew, _ := mustGet(t, vh, "crew").Map()
	if err := crew.Set(tether.String("pilot"), tether.Int(9)); err != nil {
		t.Fatalf("map Set failed: %v", err)
	}
	if v.Crew["pilot"] != 1 {
		t.Errorf("deep copy shares map storage: %d", v.Crew["pilot"])
	}
}

func TestObjCopyDetaches(t *testing.T) {
	r := &Rocket{Name: "Rocket v1"}
	alias := tether.Alias(r)
	dup := alias.Copy()
	if mode, _ := dup.Mode(); mode != tether.ModeCopy {
		t.Fatalf("expected copy mode, got %v", mode)
	}
	mustHandle(t, dup).Set("name", tether.String("dup"))
	if r.Name != "Rocket v1" {
		t.Errorf("Obj.Copy aliases native storage: %q", r.Name)
	}
	if tether.Same(alias, dup) {
		t.Error("copy should not be Same as its source")
	}
}

// =============================================================================
// Mutability
// =============================================================================

func TestReadonlyInEveryMode(t *testing.T) {
	s := &SealedRocket{Name: "sealed", Engines: 2}
	for _, o := range []*tether.Obj{tether.Alias(s), tether.Copy(*s)} {
		h := mustHandle(t, o)
		mode, _ := o.Mode()
		t.Run(mode.String(), func(t *testing.T) {
			err := h.Set("number_of_engines", tether.Int(4))
			var immutable *tether.ImmutableFieldError
			if !errors.As(err, &immutable) {
				t.Fatalf("expected ImmutableFieldError, got %v", err)
			}
			if immutable.Field != "number_of_engines" || immutable.Type != "SealedRocket" {
				t.Errorf("unexpected error fields %+v", immutable)
			}
			if n, _ := mustGet(t, h, "number_of_engines").Int(); n != 2 {
				t.Errorf("readonly field changed to %d", n)
			}
			if err := h.Set("name", tether.String("ok")); err != nil {
				t.Errorf("mutable sibling should be writable: %v", err)
			}
		})
	}
	if s.Engines != 2 {
		t.Errorf("native readonly field changed to %d", s.Engines)
	}
}

func TestFieldErrors(t *testing.T) {
	v := &Vehicle{}
	h := mustHandle(t, tether.Alias(v))

	t.Run("NoSuchField", func(t *testing.T) {
		for _, name := range []string{"nope", "debug", "internal", "Name"} {
			_, err := h.Get(name)
			var nsf *tether.NoSuchFieldError
			if !errors.As(err, &nsf) {
				t.Errorf("Get(%q): expected NoSuchFieldError, got %v", name, err)
			}
			if err := h.Set(name, tether.Int(1)); !errors.As(err, &nsf) {
				t.Errorf("Set(%q): expected NoSuchFieldError, got %v", name, err)
			}
		}
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		tests := []struct {
			field string
			value *tether.Obj
		}{
			{"name", tether.Int(1)},
			{"serial", tether.Int(-1)},
			{"serial", tether.Int(70000)},
			{"reusable", tether.String("yes")},
			{"main", tether.String("stage")},
			{"main", tether.Alias(&Rocket{})},
			{"escort", tether.Alias(&Stage{})},
			{"stages", tether.Int(1)},
			{"crew", tether.List(tether.String("odd"))},
		}
		for _, tt := range tests {
			err := h.Set(tt.field, tt.value)
			var tm *tether.TypeMismatchError
			if !errors.As(err, &tm) {
				t.Errorf("Set(%q, %s): expected TypeMismatchError, got %v", tt.field, tt.value.Type(), err)
			}
		}
	})
}

// =============================================================================
// Nested Values
// =============================================================================

func TestNestedAggregates(t *testing.T) {
	v := &Vehicle{Main: Stage{Name: "core"}}
	h := mustHandle(t, tether.Alias(v))

	main := mustHandle(t, mustGet(t, h, "main"))
	if err := main.Set("thrust", tether.Double(7.5)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v.Main.Thrust != 7.5 {
		t.Errorf("nested write did not reach native: %v", v.Main.Thrust)
	}

	// replacing the struct copies it
	other := Stage{Name: "booster"}
	if err := h.Set("main", tether.Alias(&other)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	other.Name = "changed"
	if v.Main.Name != "booster" {
		t.Errorf("expected 'booster', got %q", v.Main.Name)
	}

	if esc := mustGet(t, h, "escort"); !esc.IsNil() {
		t.Errorf("nil pointer field should project to nil, got %s", esc.Type())
	}
	escort := &Rocket{Name: "chase"}
	if err := h.Set("escort", tether.Alias(escort)); err != nil {
		t.Fatalf("Set pointer failed: %v", err)
	}
	if v.Escort != escort {
		t.Fatal("pointer field should reference the aliased rocket")
	}
	eh := mustHandle(t, mustGet(t, h, "escort"))
	eh.Set("name", tether.String("chase 2"))
	if escort.Name != "chase 2" {
		t.Errorf("expected write through pointer field, got %q", escort.Name)
	}
	if err := h.Set("escort", nil); err != nil || v.Escort != nil {
		t.Errorf("Set(nil) = %v, escort=%v", err, v.Escort)
	}

	if err := h.Set("payload", tether.Int(12)); err != nil {
		t.Fatalf("Set any failed: %v", err)
	}
	if v.Payload != int64(12) {
		t.Errorf("expected int64(12), got %#v", v.Payload)
	}
}

func TestHandleString(t *testing.T) {
	r := &Rocket{MaxSpeed: 100, Price: 333222000, NumberOfEngines: 2, Name: "Rocket v1"}
	o := tether.Alias(r)
	want := "Rocket{max_speed=100.0, price=333222000, number_of_engines=2, name=Rocket v1}"
	if got := o.String(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	r.Price = 1
	if got := o.String(); got == want {
		t.Error("string form of a handle must follow native changes")
	}
}

func TestHandleInterface(t *testing.T) {
	r := &Rocket{Name: "Rocket v1"}
	got, err := mustHandle(t, tether.Alias(r)).Interface()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(*r, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

// =============================================================================
// Unsigned Fields
// =============================================================================

func TestUnsignedFields(t *testing.T) {
	odo := &Odometer{Total: math.MaxUint64 - 1, Trips: 7}
	h := mustHandle(t, tether.Alias(odo))

	total := mustGet(t, h, "total")
	if total.String() != "18446744073709551614" || total.Type() != "int" {
		t.Fatalf("expected 18446744073709551614 (int), got %s (%s)", total.String(), total.Type())
	}
	if err := h.Set("total", total); err != nil {
		t.Fatalf("Set(Get) round trip failed: %v", err)
	}
	if odo.Total != math.MaxUint64-1 {
		t.Errorf("round trip changed value to %d", odo.Total)
	}
	if err := h.Set("total", tether.Uint(math.MaxUint64)); err != nil || odo.Total != math.MaxUint64 {
		t.Errorf("Set(MaxUint64) = %v, value %d", err, odo.Total)
	}
	if f, err := total.Double(); err != nil || f != float64(math.MaxUint64-1) {
		t.Errorf("Double() = %v, %v", f, err)
	}

	tests := []struct {
		name  string
		field string
		v     *tether.Obj
	}{
		{"negative", "total", tether.Int(-1)},
		{"overflow", "trips", tether.Int(256)},
		{"huge into uint8", "trips", tether.Uint(math.MaxUint64)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tm *tether.TypeMismatchError
			if err := h.Set(tt.field, tt.v); !errors.As(err, &tm) {
				t.Errorf("expected TypeMismatchError, got %v", err)
			}
		})
	}
}
