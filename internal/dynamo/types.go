package dynamo

import (
	"math"
)

// State is the flat augmented state [X Y Z dX dY dZ | STM row-major].
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Position returns the first three components. The slice aliases s.
func (s State) Position() []float64 { return s[0:3] }

// Velocity returns components 3..6. The slice aliases s.
func (s State) Velocity() []float64 { return s[3:6] }

// System is an ODE right-hand side written in the (state_in, derivative_out,
// time) convention. Derive must not write dxdt unless it returns nil.
type System interface {
	Derive(x, dxdt State, t float64) error
	StateDim() int
	// Validate reports whether a state of the given length fits the
	// system's layout. It is called once before an integration run.
	Validate(stateLen int) error
}

type Integrator interface {
	Step(dyn System, x State, t float64, dt float64) (State, error)
}

type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(dyn System, x State, t, dt, tol float64) (State, float64, error)
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, t float64)
}
