package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/orbitekf/internal/dynamo"
	"github.com/san-kum/orbitekf/internal/stm"
)

const mu = 398600.4418

func TestSpecificEnergy(t *testing.T) {
	// circular orbit: v² = μ/r, energy = −μ/(2r)
	r := 7000.0
	v := math.Sqrt(mu / r)
	x := stm.NewState([3]float64{r, 0, 0}, [3]float64{0, v, 0}, 0)

	expected := -mu / (2 * r)
	if got := SpecificEnergy(x, mu); math.Abs(got-expected) > 1e-9 {
		t.Errorf("expected energy %f, got %f", expected, got)
	}
}

func TestEnergyReset(t *testing.T) {
	m := NewEnergy(mu)

	x := stm.NewState([3]float64{7000, 0, 0}, [3]float64{0, 7.5, 0}, 0)
	m.Observe(x, 0)
	if m.Value() == 0 {
		t.Error("expected non-zero energy")
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyDrift(t *testing.T) {
	m := NewEnergyDrift(mu)

	m.Observe(stm.NewState([3]float64{7000, 0, 0}, [3]float64{0, 7.5, 0}, 0), 0)
	if m.Value() != 0 {
		t.Errorf("expected zero drift after one sample, got %e", m.Value())
	}

	m.Observe(stm.NewState([3]float64{7000, 0, 0}, [3]float64{0, 7.6, 0}, 0), 1)
	if m.Value() <= 0 {
		t.Error("expected positive drift after velocity change")
	}
}

func TestSTMDeterminant(t *testing.T) {
	m := NewSTMDeterminant()

	x := stm.NewState([3]float64{7000, 0, 0}, [3]float64{0, 7.5, 0}, 2)
	m.Observe(x, 0)
	if m.Value() > 1e-15 {
		t.Errorf("identity STM should have det 1, drift %e", m.Value())
	}

	copy(stm.Block(x, 2), []float64{2, 0, 0, 1})
	m.Observe(x, 1)
	if math.Abs(m.Value()-1) > 1e-12 {
		t.Errorf("expected drift 1, got %e", m.Value())
	}

	m.Observe(dynamo.State{1, 2, 3}, 2)
	if math.Abs(m.Value()-1) > 1e-12 {
		t.Error("malformed state should be ignored")
	}
}

func TestRadius(t *testing.T) {
	minR := NewMinRadius()
	maxR := NewMaxRadius()

	for _, r := range []float64{7000, 6900, 7100} {
		x := dynamo.State{0, r, 0, 0, 0, 0}
		minR.Observe(x, 0)
		maxR.Observe(x, 0)
	}

	if minR.Value() != 6900 {
		t.Errorf("expected min 6900, got %f", minR.Value())
	}
	if maxR.Value() != 7100 {
		t.Errorf("expected max 7100, got %f", maxR.Value())
	}
}
