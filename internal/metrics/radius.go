package metrics

import (
	"math"

	"github.com/san-kum/orbitekf/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// Radius records the smallest or largest orbital radius seen.
type Radius struct {
	name    string
	largest bool
	value   float64
	samples int
}

func NewMinRadius() *Radius {
	return &Radius{name: "radius_min"}
}

func NewMaxRadius() *Radius {
	return &Radius{name: "radius_max", largest: true}
}

func (r *Radius) Name() string {
	return r.name
}

func (r *Radius) Observe(x dynamo.State, t float64) {
	if len(x) < 3 {
		return
	}
	radius := floats.Norm(x.Position(), 2)
	switch {
	case r.samples == 0:
		r.value = radius
	case r.largest:
		r.value = math.Max(r.value, radius)
	default:
		r.value = math.Min(r.value, radius)
	}
	r.samples++
}

func (r *Radius) Value() float64 {
	return r.value
}

func (r *Radius) Reset() {
	r.value = 0
	r.samples = 0
}

// Defaults returns the metrics recorded for every scenario run.
func Defaults(mu float64) []dynamo.Metric {
	return []dynamo.Metric{
		NewEnergy(mu),
		NewEnergyDrift(mu),
		NewSTMDeterminant(),
		NewMinRadius(),
		NewMaxRadius(),
	}
}
