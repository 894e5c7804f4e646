package tether_test

type Rocket struct {
	MaxSpeed        float64 `tether:"max_speed"`
	Price           int64   `tether:"price"`
	NumberOfEngines int32   `tether:"number_of_engines"`
	Name            string  `tether:"name"`
}

type SealedRocket struct {
	Name    string
	Engines int32 `tether:"number_of_engines,readonly"`
}

type Stage struct {
	Name   string
	Thrust float64
}

type Vehicle struct {
	Name     string
	Main     Stage
	Stages   []Stage
	Crew     map[string]int
	Escort   *Rocket
	Payload  any
	Serial   uint16
	Reusable bool
	Debug    bool `tether:"-"`
	internal int
}

func newFleet() map[string]Rocket {
	return map[string]Rocket{
		"apollo11": {MaxSpeed: 100, Price: 333222000, NumberOfEngines: 2, Name: "Rocket v1"},
		"apollo12": {MaxSpeed: 200, Price: 444222000, NumberOfEngines: 4, Name: "Rocket v2"},
		"apollo13": {MaxSpeed: 300, Price: 555222000, NumberOfEngines: 8, Name: "Rocket v3"},
	}
}

type Odometer struct {
	Total uint64
	Trips uint8
}
