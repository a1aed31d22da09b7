package integrators

import (
	"testing"

	"github.com/san-kum/orbitekf/internal/dynamo"
	"github.com/san-kum/orbitekf/internal/ekf"
	"github.com/san-kum/orbitekf/internal/force"
	"github.com/san-kum/orbitekf/internal/stm"
)

type benchDynamics struct{}

func (b *benchDynamics) StateDim() int               { return 2 }
func (b *benchDynamics) Validate(stateLen int) error { return nil }
func (b *benchDynamics) Derive(x, dxdt dynamo.State, t float64) error {
	dxdt[0] = x[1]
	dxdt[1] = -x[0]
	return nil
}

func BenchmarkEuler(b *testing.B) {
	integrator := NewEuler()
	dyn := &benchDynamics{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x, _ = integrator.Step(dyn, x, 0, 0.01)
	}
}

func BenchmarkRK4(b *testing.B) {
	integrator := NewRK4()
	dyn := &benchDynamics{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x, _ = integrator.Step(dyn, x, 0, 0.01)
	}
}

func BenchmarkRK45(b *testing.B) {
	integrator := NewRK45()
	dyn := &benchDynamics{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x, _ = integrator.Step(dyn, x, 0, 0.01)
	}
}

func BenchmarkRK4_EarthJ2_STM6(b *testing.B) {
	integrator := NewRK4()
	earth := force.NewGravity("earth", 6378.137, 398600.4418, 1.08262668e-3)
	agents := []string{"X", "Y", "Z", "dX", "dY", "dZ"}
	dyn := ekf.New([]force.Model{earth}, agents)
	x := stm.NewState([3]float64{7000, 0, 0}, [3]float64{0, 7.5, 0}, len(agents))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x, _ = integrator.Step(dyn, x, 0, 10)
	}
}
