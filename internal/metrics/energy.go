package metrics

import (
	"math"

	"github.com/san-kum/orbitekf/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// SpecificEnergy returns the two-body specific orbital energy v²/2 − μ/r.
func SpecificEnergy(x dynamo.State, mu float64) float64 {
	r := floats.Norm(x.Position(), 2)
	v := floats.Norm(x.Velocity(), 2)
	return 0.5*v*v - mu/r
}

// Energy is the mean specific orbital energy over the run.
type Energy struct {
	name        string
	mu          float64
	samples     int
	totalEnergy float64
}

func NewEnergy(mu float64) *Energy {
	return &Energy{
		name: "energy",
		mu:   mu,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(x dynamo.State, t float64) {
	if len(x) < 6 {
		return
	}
	e.totalEnergy += SpecificEnergy(x, e.mu)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift is the largest relative departure of the specific orbital
// energy from its value at the first sample. Only a point-mass field
// conserves it exactly.
type EnergyDrift struct {
	name          string
	mu            float64
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(mu float64) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		mu:   mu,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(x dynamo.State, t float64) {
	if len(x) < 6 {
		return
	}
	energy := SpecificEnergy(x, e.mu)

	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
