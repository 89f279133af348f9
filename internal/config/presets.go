package config

// Presets are the bundled scenarios, keyed by name.
var Presets = map[string]*Config{
	"two-planets": Default(),

	// Two equal planets on crossing eccentric orbits; encounters come
	// quickly, which makes this the better demo of the merge loop.
	"crossing": {
		Name:        "crossing",
		G:           1.0,
		Integrator:  "rk45",
		Dt:          1e-3,
		Duration:    200.0,
		Tolerance:   1e-9,
		MinDistance: 0.02,
		Merge:       true,
		SampleEvery: 100,
		Bodies: []BodyConfig{
			{ID: "star", Mass: 1.0},
			{ID: "p1", Mass: 2e-3, A: 1.0, E: 0.15},
			{ID: "p2", Mass: 2e-3, A: 1.1, E: 0.1, Nu: 3.1},
		},
	},

	// Equal-mass binary, no planets: a stable reference case for
	// integrator comparisons.
	"binary": {
		Name:        "binary",
		G:           1.0,
		Integrator:  "leapfrog",
		Dt:          1e-3,
		Duration:    50.0,
		Tolerance:   1e-9,
		MinDistance: 0,
		Merge:       false,
		SampleEvery: 50,
		Bodies: []BodyConfig{
			{ID: "a", Mass: 0.5, Pos: &[3]float64{0.5, 0, 0}, Vel: &[3]float64{0, 0.5, 0}},
			{ID: "b", Mass: 0.5, Pos: &[3]float64{-0.5, 0, 0}, Vel: &[3]float64{0, -0.5, 0}},
		},
	},
}

// Preset returns the named scenario, or nil if it does not exist.
func Preset(name string) *Config {
	return Presets[name]
}

// ListPresets returns the preset names in no particular order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
