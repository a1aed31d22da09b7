package force

import (
	"fmt"
	"math"

	"github.com/san-kum/orbitekf/internal/dynamo"
)

// Model is the capability set every force model exposes.
//
// Acceleration adds the model's contribution into accel (length 3).
// Partials adds, for every ordered pair (agents[i], agents[j]), the partial
// "d<agents[i]> wrt <agents[j]>" into partials[i*N+j]. Neither method writes
// its output unless it returns nil.
type Model interface {
	Name() string
	Acceleration(accel []float64, x dynamo.State) error
	Partials(partials []float64, x dynamo.State, agents []string) error
}

// partialTable maps partial names to values for a single state. It is built
// fresh on every Partials call.
type partialTable map[string]float64

func partialName(top, bottom string) string {
	return "d" + top + " wrt " + bottom
}

// lookup returns 0 for partials the model does not implement.
func (p partialTable) lookup(top, bottom string) float64 {
	return p[partialName(top, bottom)]
}

func (p partialTable) accumulate(partials []float64, agents []string) error {
	n := len(agents)
	if len(partials) != n*n {
		return fmt.Errorf("%w: partials buffer has %d elements for %d agents",
			dynamo.ErrLayoutMismatch, len(partials), n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			partials[i*n+j] += p.lookup(agents[i], agents[j])
		}
	}
	return nil
}

var axes = [3]string{"X", "Y", "Z"}

func position(x dynamo.State) (px, py, pz, r float64, err error) {
	if len(x) < 3 {
		return 0, 0, 0, 0, fmt.Errorf("%w: state has %d elements, need a position", dynamo.ErrLayoutMismatch, len(x))
	}
	px, py, pz = x[0], x[1], x[2]
	r = math.Sqrt(px*px + py*py + pz*pz)
	if r == 0 {
		return 0, 0, 0, 0, dynamo.ErrSingularPosition
	}
	return px, py, pz, r, nil
}

func checkAccel(accel []float64) error {
	if len(accel) != 3 {
		return fmt.Errorf("%w: acceleration buffer has %d elements", dynamo.ErrLayoutMismatch, len(accel))
	}
	return nil
}
