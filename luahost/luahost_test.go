package luahost_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/feather-lang/tether"
	"github.com/feather-lang/tether/internal/rocket"
	"github.com/feather-lang/tether/luahost"
)

func newHost(t *testing.T) (*luahost.Host, *bytes.Buffer, *rocket.Demo) {
	t.Helper()
	var out bytes.Buffer
	demo := rocket.NewDemo(&out)
	b := tether.New()
	t.Cleanup(func() { b.Close() })
	if err := b.Open(demo.Module()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	h := luahost.New(b, luahost.WithOutput(&out))
	if err := h.Open("rocket"); err != nil {
		t.Fatalf("host Open failed: %v", err)
	}
	return h, &out, demo
}

func run(t *testing.T, h *luahost.Host, src string) {
	t.Helper()
	if err := h.DoString(src); err != nil {
		t.Fatalf("script failed: %v\n%s", err, src)
	}
}

// =============================================================================
// Scenarios
// =============================================================================

func TestLaunchModifiedRocket(t *testing.T) {
	h, out, _ := newHost(t)
	run(t, h, `
		local r = rocket.make_rocket_v1()
		assert(r.name == "Rocket v1")
		r.name = "Rocket v2"
		r.price = 444333000
		rocket.launch_rocket_v1(r, "florida", "June 11 2020")
	`)
	want := "launching rocket Rocket v2\n" +
		"speed = 100mph\n" +
		"price = 444333000\n" +
		"engines = 2\n" +
		"location = florida\n" +
		"time = June 11 2020\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestGlobalMapWriteThrough(t *testing.T) {
	h, out, _ := newHost(t)
	run(t, h, `
		local g = rocket.get_global_map()
		g["apollo11"].name = "X"
		rocket.print_global_map()
	`)
	want := "global_map : apollo11=X, apollo12=Rocket v2, apollo13=Rocket v3\n"
	if out.String() != want {
		t.Errorf("expected %q, got %q", want, out.String())
	}
}

// =============================================================================
// Containers
// =============================================================================

func TestSequenceModes(t *testing.T) {
	h, out, demo := newHost(t)
	run(t, h, `
		local copy = rocket.vector_example()
		copy[1].name = "ignored"
		local live = rocket.vector_star_example()
		live[2].name = "renamed"
		live[#live + 1] = rocket.make_rocket_v1()
		print(#copy, #live, tether.mode(copy), tether.mode(live))
		for i, r in ipairs(live) do
			print(i, r.name)
		end
	`)
	rockets := demo.Rockets()
	if len(rockets) != 4 || rockets[1].Name != "renamed" || rockets[0].Name != "Rocket v1" {
		t.Errorf("native fleet not updated through alias: %+v", rockets)
	}
	want := "3\t4\tcopy\talias\n" +
		"1\tRocket v1\n" +
		"2\trenamed\n" +
		"3\tRocket v3\n" +
		"4\tRocket v1\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestMapIteration(t *testing.T) {
	h, out, _ := newHost(t)
	run(t, h, `
		local m = rocket.map_example()
		m["apollo12"] = nil
		for k, r in pairs(m) do
			print(k, r.name)
		end
		print(#m, tether.contains(m, "apollo12"), tether.contains(m, "apollo13"))
	`)
	want := "apollo11\tRocket v1\n" +
		"apollo13\tRocket v3\n" +
		"2\tfalse\ttrue\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestLibrary(t *testing.T) {
	h, out, _ := newHost(t)
	run(t, h, `
		local a = rocket.get_global_map()
		local b = rocket.get_global_map()
		print(tether.same(a, b), a == b, tether.same(a, tether.copy(a)))
		local r = rocket.make_rocket_v1()
		print(tether.type(r), tether.mode(r), tether.mode(42))
		print(table.concat(tether.fields(r), ","))
		print(table.concat(tether.keys(a), ","))
		for name, v in tether.items(r) do
			if name == "name" then print(v) end
		end
	`)
	want := "true\ttrue\tfalse\n" +
		"Rocket\tcopy\tnil\n" +
		"max_speed,price,number_of_engines,name\n" +
		"apollo11,apollo12,apollo13\n" +
		"Rocket v1\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

// =============================================================================
// Errors
// =============================================================================

func TestScriptErrors(t *testing.T) {
	h, _, _ := newHost(t)

	t.Run("immutable", func(t *testing.T) {
		err := h.DoString(`local s = rocket.make_sealed_rocket("s", 4); s.number_of_engines = 5`)
		var ife *tether.ImmutableFieldError
		if !errors.As(err, &ife) || ife.Field != "number_of_engines" {
			t.Errorf("expected ImmutableFieldError, got %v", err)
		}
	})

	t.Run("no such field", func(t *testing.T) {
		err := h.DoString(`local r = rocket.make_rocket_v1(); return r.altitude`)
		var nsf *tether.NoSuchFieldError
		if !errors.As(err, &nsf) || nsf.Field != "altitude" {
			t.Errorf("expected NoSuchFieldError, got %v", err)
		}
	})

	t.Run("index", func(t *testing.T) {
		err := h.DoString(`local v = rocket.vector_example(); return v[10]`)
		var ie *luahost.IndexError
		if !errors.As(err, &ie) || ie.Index != 10 || ie.Len != 3 {
			t.Fatalf("expected IndexError, got %v", err)
		}
		var oor *tether.IndexOutOfRangeError
		if !errors.As(err, &oor) || oor.Index != 9 {
			t.Errorf("IndexError should wrap the zero-based error, got %v", err)
		}
	})

	t.Run("argument", func(t *testing.T) {
		err := h.DoString(`rocket.launch_rocket_v1(rocket.make_rocket_v1(), 1, "now")`)
		var ate *tether.ArgumentTypeError
		if !errors.As(err, &ate) || ate.Position != 2 {
			t.Errorf("expected ArgumentTypeError at 2, got %v", err)
		}
	})

	t.Run("runtime", func(t *testing.T) {
		err := h.DoString(`error("boom")`)
		var re *luahost.RuntimeError
		if !errors.As(err, &re) {
			t.Errorf("expected RuntimeError, got %v", err)
		}
	})

	t.Run("syntax", func(t *testing.T) {
		err := h.DoString(`local = 1`)
		var se *luahost.SyntaxError
		if !errors.As(err, &se) {
			t.Errorf("expected SyntaxError, got %v", err)
		}
	})
}

func TestErrorsCatchable(t *testing.T) {
	h, out, _ := newHost(t)
	run(t, h, `
		local s = rocket.make_sealed_rocket("s", 4)
		print(tether.last_error())
		local ok, e = pcall(function() s.number_of_engines = 5 end)
		local kind, msg = tether.last_error()
		print(ok, kind)
		print(msg)
		print(e:sub(-#msg) == msg)
		print(s.number_of_engines)
	`)
	want := "nil\n" +
		"false\tImmutableFieldError\n" +
		"field \"number_of_engines\" of SealedRocket is readonly\n" +
		"true\n" +
		"4\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"no such field", `return rocket.make_rocket_v1().altitude`, "NoSuchFieldError"},
		{"index", `return rocket.vector_example()[10]`, "IndexError"},
		{"argument", `rocket.launch_rocket_v1(rocket.make_rocket_v1(), 1, "now")`, "ArgumentTypeError"},
		{"argument count", `rocket.make_rocket_v1(1)`, "ArgumentCountError"},
		{"key", `return rocket.map_example()["apollo99"]`, "KeyNotFoundError"},
		{"mismatch", `local r = rocket.make_rocket_v1(); r.price = "cheap"`, "TypeMismatchError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, out, _ := newHost(t)
			run(t, h, "local ok = pcall(function() "+tt.src+" end)\nprint(ok, (tether.last_error()))")
			if got, want := out.String(), "false\t"+tt.want+"\n"; got != want {
				t.Errorf("expected %q, got %q", want, got)
			}
		})
	}
}

func TestRethrownErrorKeepsType(t *testing.T) {
	h, _, _ := newHost(t)
	err := h.DoString(`
		local s = rocket.make_sealed_rocket("s", 4)
		local ok, e = pcall(function() s.number_of_engines = 5 end)
		error(e)
	`)
	var ife *tether.ImmutableFieldError
	if !errors.As(err, &ife) {
		t.Errorf("expected ImmutableFieldError, got %v", err)
	}

	err = h.DoString(`error("unrelated")`)
	var re *luahost.RuntimeError
	if !errors.As(err, &re) {
		t.Errorf("stale bridge error leaked into %v", err)
	}
}

// =============================================================================
// REPL Support
// =============================================================================

func TestEval(t *testing.T) {
	h, _, _ := newHost(t)
	tests := []struct {
		src  string
		want []string
	}{
		{"1 + 2", []string{"3"}},
		{"x = 5", nil},
		{"x, x * 2", []string{"5", "10"}},
		{"rocket.make_rocket_v1().name", []string{"Rocket v1"}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := h.Eval(tt.src)
			if err != nil {
				t.Fatalf("Eval failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("results mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIncomplete(t *testing.T) {
	h, _, _ := newHost(t)
	tests := []struct {
		src  string
		want bool
	}{
		{"for i = 1, 2 do", true},
		{"x = {", true},
		{"x = 1", false},
		{"x = )", false},
	}
	for _, tt := range tests {
		if got := h.Incomplete(tt.src); got != tt.want {
			t.Errorf("Incomplete(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestComplete(t *testing.T) {
	h, _, _ := newHost(t)
	run(t, h, `r = rocket.make_rocket_v1()`)
	tests := []struct {
		prefix string
		want   []string
	}{
		{"rocket.make_", []string{"rocket.make_rocket_v1", "rocket.make_sealed_rocket"}},
		{"print(r.n", []string{"print(r.name", "print(r.number_of_engines"}},
		{"nothing.", nil},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, h.Complete(tt.prefix)); diff != "" {
				t.Errorf("completions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDoFile(t *testing.T) {
	h, out, _ := newHost(t)
	path := filepath.Join(t.TempDir(), "launch.lua")
	src := `rocket.launch_sealed_rocket(rocket.make_sealed_rocket("Falcon", 9))`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := h.DoFile(path); err != nil {
		t.Fatalf("DoFile failed: %v", err)
	}
	if got := out.String(); got != "launching sealed rocket Falcon with 9 engines\n" {
		t.Errorf("unexpected output %q", got)
	}
}
