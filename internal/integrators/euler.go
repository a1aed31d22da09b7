package integrators

import "github.com/san-kum/orbitekf/internal/dynamo"

type Euler struct {
	dx dynamo.State
}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, t float64, dt float64) (dynamo.State, error) {
	if len(e.dx) != len(x) {
		e.dx = make(dynamo.State, len(x))
	}
	if err := dyn.Derive(x, e.dx, t); err != nil {
		return nil, err
	}
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*e.dx[i]
	}
	return result, nil
}
