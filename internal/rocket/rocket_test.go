package rocket

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/feather-lang/tether"
)

func openDemo(t *testing.T) (*tether.Bridge, *Demo, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	d := NewDemo(&out)
	b := tether.New()
	if err := b.Open(d.Module()); err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b, d, &out
}

func TestLaunchObservesScriptWrites(t *testing.T) {
	b, _, out := openDemo(t)

	r, err := b.Call("rocket", "make_rocket_v1")
	if err != nil {
		t.Fatalf("make_rocket_v1: %v", err)
	}
	h, _ := r.Handle()
	if name, _ := h.Get("name"); name.String() != "Rocket v1" {
		t.Fatalf("expected 'Rocket v1', got %q", name.String())
	}
	h.Set("name", tether.String("Rocket v2"))
	h.Set("price", tether.Int(444333000))

	if _, err := b.Call("rocket", "launch_rocket_v1", r, tether.String("florida"), tether.String("June 11 2020")); err != nil {
		t.Fatalf("launch_rocket_v1: %v", err)
	}
	want := "launching rocket Rocket v2\n" +
		"speed = 100mph\n" +
		"price = 444333000\n" +
		"engines = 2\n" +
		"location = florida\n" +
		"time = June 11 2020\n"
	if out.String() != want {
		t.Errorf("expected %q, got %q", want, out.String())
	}
}

func TestGlobalMapWriteThrough(t *testing.T) {
	b, _, out := openDemo(t)

	g, err := b.Call("rocket", "get_global_map")
	if err != nil {
		t.Fatalf("get_global_map: %v", err)
	}
	m, _ := g.Map()
	entry, err := m.Get(tether.String("apollo11"))
	if err != nil {
		t.Fatal(err)
	}
	h, _ := entry.Handle()
	if err := h.Set("name", tether.String("X")); err != nil {
		t.Fatal(err)
	}
	if got := (*GlobalMap.MustGet())["apollo11"].Name; got != "X" {
		t.Fatalf("native global_map not updated: %q", got)
	}
	if _, err := b.Call("rocket", "print_global_map"); err != nil {
		t.Fatalf("print_global_map: %v", err)
	}
	want := "global_map : apollo11=X, apollo12=Rocket v2, apollo13=Rocket v3\n"
	if out.String() != want {
		t.Errorf("expected %q, got %q", want, out.String())
	}
}

func TestPrintGlobalMapReadsNative(t *testing.T) {
	_, d, out := openDemo(t)
	fleet := GlobalMap.MustGet()
	r := (*fleet)["apollo13"]
	r.Name = "Native"
	(*fleet)["apollo13"] = r
	(*fleet)["apollo10"] = Rocket{Name: "Early"}

	if err := d.PrintGlobalMap(); err != nil {
		t.Fatal(err)
	}
	want := "global_map : apollo10=Early, apollo11=Rocket v1, apollo12=Rocket v2, apollo13=Native\n"
	if out.String() != want {
		t.Errorf("expected %q, got %q", want, out.String())
	}
}

func TestGlobalMapLifecycle(t *testing.T) {
	var out bytes.Buffer
	d := NewDemo(&out)
	if err := d.PrintGlobalMap(); !errors.Is(err, tether.ErrGlobalStopped) {
		t.Fatalf("expected ErrGlobalStopped before open, got %v", err)
	}
	b := tether.New()
	b.Open(d.Module())
	if err := d.PrintGlobalMap(); err != nil {
		t.Fatalf("PrintGlobalMap: %v", err)
	}
	b.Close()
	if GlobalMap.Running() {
		t.Error("global_map should stop with the bridge")
	}
}

func TestContainerModes(t *testing.T) {
	b, d, _ := openDemo(t)

	star, _ := b.Call("rocket", "vector_star_example")
	if mode, _ := star.Mode(); mode != tether.ModeAlias {
		t.Fatalf("vector_star_example should alias, got %v", mode)
	}
	seq, _ := star.Sequence()
	el, _ := seq.Index(2)
	h, _ := el.Handle()
	h.Set("name", tether.String("starred"))
	if d.Rockets()[2].Name != "starred" {
		t.Errorf("expected write-through to native slice, got %q", d.Rockets()[2].Name)
	}

	vec, _ := b.Call("rocket", "vector_example")
	if mode, _ := vec.Mode(); mode != tether.ModeCopy {
		t.Errorf("vector_example should copy, got %v", mode)
	}
	mp, _ := b.Call("rocket", "map_example")
	view, _ := mp.Map()
	if view.Len() != 3 || view.Contains(tether.String("apollo10")) || !view.Contains(tether.String("apollo11")) {
		t.Errorf("unexpected map_example contents %s", mp)
	}
}

func TestSealedRocket(t *testing.T) {
	b, _, out := openDemo(t)

	r, err := b.Call("rocket", "make_sealed_rocket", tether.String("Sealed"), tether.Int(6))
	if err != nil {
		t.Fatal(err)
	}
	h, _ := r.Handle()
	var immutable *tether.ImmutableFieldError
	if err := h.Set("number_of_engines", tether.Int(1)); !errors.As(err, &immutable) {
		t.Fatalf("expected ImmutableFieldError, got %v", err)
	}
	if _, err := b.Call("rocket", "launch_sealed_rocket", r); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Sealed with 6 engines") {
		t.Errorf("unexpected output %q", out.String())
	}
}
