// Package rocket is the demonstration module exposed to scripts: a rocket
// aggregate, sequences and maps of rockets, and a process-wide fleet.
package rocket

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/feather-lang/tether"
)

// Rocket is a plain aggregate with every field writable.
type Rocket struct {
	MaxSpeed        float64 `tether:"max_speed"`
	Price           int64   `tether:"price"`
	NumberOfEngines int32   `tether:"number_of_engines"`
	Name            string  `tether:"name"`
}

// SealedRocket is a Rocket whose engine count is fixed at construction.
type SealedRocket struct {
	MaxSpeed        float64 `tether:"max_speed"`
	Price           int64   `tether:"price"`
	NumberOfEngines int32   `tether:"number_of_engines,readonly"`
	Name            string  `tether:"name"`
}

// GlobalMap is the process-wide fleet, keyed by mission.
var GlobalMap = tether.NewGlobal("global_map", MapExample)

func fleet() []Rocket {
	return []Rocket{
		{100.0, 333222000, 2, "Rocket v1"},
		{200.0, 444222000, 4, "Rocket v2"},
		{300.0, 555222000, 8, "Rocket v3"},
	}
}

// MakeRocketV1 returns the default rocket.
func MakeRocketV1() Rocket {
	return Rocket{MaxSpeed: 100.0, Price: 333222000, NumberOfEngines: 2, Name: "Rocket v1"}
}

// MakeSealedRocket returns a rocket with a readonly engine count.
func MakeSealedRocket(name string, engines int32) SealedRocket {
	return SealedRocket{MaxSpeed: 100.0, Price: 333222000, NumberOfEngines: engines, Name: name}
}

// VectorExample returns a fresh fleet. Scripts receive a copy.
func VectorExample() []Rocket { return fleet() }

// MapExample returns a fresh fleet keyed by mission.
func MapExample() map[string]Rocket {
	f := fleet()
	return map[string]Rocket{
		"apollo11": f[0],
		"apollo12": f[1],
		"apollo13": f[2],
	}
}

// Demo holds the per-module native state behind the bridged functions.
type Demo struct {
	out     io.Writer
	rockets *[]Rocket
}

// NewDemo creates demo state writing diagnostics to out.
func NewDemo(out io.Writer) *Demo {
	f := fleet()
	return &Demo{out: out, rockets: &f}
}

// Rockets returns the native slice handed out by vector_star_example.
func (d *Demo) Rockets() []Rocket { return *d.rockets }

// VectorStarExample returns the demo's own fleet. Scripts alias it.
func (d *Demo) VectorStarExample() *[]Rocket { return d.rockets }

// LaunchRocketV1 reports the rocket as native code sees it.
func (d *Demo) LaunchRocketV1(r *Rocket, where, when string) {
	fmt.Fprintf(d.out, "launching rocket %s\n", r.Name)
	fmt.Fprintf(d.out, "speed = %smph\n", strconv.FormatFloat(r.MaxSpeed, 'g', -1, 64))
	fmt.Fprintf(d.out, "price = %d\n", r.Price)
	fmt.Fprintf(d.out, "engines = %d\n", r.NumberOfEngines)
	fmt.Fprintf(d.out, "location = %s\n", where)
	fmt.Fprintf(d.out, "time = %s\n", when)
}

// LaunchSealedRocket reports a sealed rocket.
func (d *Demo) LaunchSealedRocket(r *SealedRocket) {
	fmt.Fprintf(d.out, "launching sealed rocket %s with %d engines\n", r.Name, r.NumberOfEngines)
}

// GetGlobalMap returns the live fleet. Scripts alias it.
func (d *Demo) GetGlobalMap() (*map[string]Rocket, error) {
	return GlobalMap.Get()
}

// PrintGlobalMap writes the fleet names in key order.
func (d *Demo) PrintGlobalMap() error {
	m, err := GlobalMap.Get()
	if err != nil {
		return err
	}
	var parts []string
	for _, k := range slices.Sorted(maps.Keys(*m)) {
		parts = append(parts, k+"="+(*m)[k].Name)
	}
	fmt.Fprintf(d.out, "global_map : %s\n", strings.Join(parts, ", "))
	return nil
}

// Module builds the "rocket" module over d.
func (d *Demo) Module() *tether.Module {
	return tether.NewModule("rocket").
		Global(GlobalMap).
		Def("make_rocket_v1", MakeRocketV1).
		Def("launch_rocket_v1", d.LaunchRocketV1).
		Def("vector_example", VectorExample).
		Def("vector_star_example", d.VectorStarExample).
		Def("map_example", MapExample).
		Def("get_global_map", d.GetGlobalMap).
		Def("print_global_map", d.PrintGlobalMap).
		Def("make_sealed_rocket", MakeSealedRocket).
		Def("launch_sealed_rocket", d.LaunchSealedRocket)
}

// Module builds the "rocket" module writing diagnostics to out.
func Module(out io.Writer) *tether.Module {
	return NewDemo(out).Module()
}
