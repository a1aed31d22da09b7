package config

import (
	"math"
	"sort"
)

func circularSpeed(mu, r float64) float64 {
	return math.Sqrt(mu / r)
}

var Presets = map[string]*Config{
	"leo": {
		Name: "leo", Integrator: "rk4", Dt: 10, Duration: 5400,
		Agents: []string{"X", "Y", "Z"},
		InitState: InitStateConfig{
			Position: [3]float64{7000, 0, 0},
			Velocity: [3]float64{0, circularSpeed(EarthMu, 7000) * math.Cos(0.9), circularSpeed(EarthMu, 7000) * math.Sin(0.9)},
		},
		Gravity: []GravityConfig{{Name: "earth", Radius: EarthRadius, Mu: EarthMu, J2: EarthJ2}},
	},
	"leo_point_mass": {
		Name: "leo_point_mass", Integrator: "rk4", Dt: 10, Duration: 5400,
		Agents: []string{"X", "Y", "Z"},
		InitState: InitStateConfig{
			Position: [3]float64{7000, 0, 0},
			Velocity: [3]float64{0, circularSpeed(EarthMu, 7000), 0},
		},
		Gravity: []GravityConfig{{Name: "earth", Radius: EarthRadius, Mu: EarthMu}},
	},
	"leo_full_state": {
		Name: "leo_full_state", Integrator: "rk45", Dt: 30, Duration: 5400,
		Adaptive: true, Tolerance: 1e-10, MaxDt: 120, MinDt: 1e-6,
		Agents: []string{"X", "Y", "Z", "dX", "dY", "dZ"},
		InitState: InitStateConfig{
			Position: [3]float64{6524.834, 6862.875, 6448.296},
			Velocity: [3]float64{4.901327, 5.533756, -1.976341},
		},
		Gravity: []GravityConfig{{Name: "earth", Radius: EarthRadius, Mu: EarthMu, J2: EarthJ2}},
	},
	"geo_lunar": {
		Name: "geo_lunar", Integrator: "rk45", Dt: 60, Duration: 86400,
		Adaptive: true, Tolerance: 1e-10, MaxDt: 600, MinDt: 1e-6,
		Agents: []string{"X", "Y", "Z"},
		InitState: InitStateConfig{
			Position: [3]float64{42164, 0, 0},
			Velocity: [3]float64{0, circularSpeed(EarthMu, 42164), 0},
		},
		Gravity:     []GravityConfig{{Name: "earth", Radius: EarthRadius, Mu: EarthMu, J2: EarthJ2}},
		ThirdBodies: []ThirdBodyConfig{{Name: "moon", Mu: MoonMu, Position: [3]float64{MoonRange, 0, 0}}},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := *p
	cfg.Agents = append([]string(nil), p.Agents...)
	cfg.Gravity = append([]GravityConfig(nil), p.Gravity...)
	cfg.ThirdBodies = append([]ThirdBodyConfig(nil), p.ThirdBodies...)
	if cfg.Tolerance == 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if cfg.MaxDt == 0 {
		cfg.MaxDt = DefaultMaxDt
	}
	if cfg.MinDt == 0 {
		cfg.MinDt = DefaultMinDt
	}
	return &cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
