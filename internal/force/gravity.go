package force

import (
	"fmt"

	"github.com/san-kum/orbitekf/internal/dynamo"
)

// Gravity is a central body with the J2 oblateness correction.
//
// Only the nine position partials of the acceleration are implemented.
// Partials with respect to velocity, body radius, mu and J2 are not, and
// read as zero.
type Gravity struct {
	Body   string
	Radius float64
	Mu     float64
	J2     float64
}

func NewGravity(name string, radius, mu, j2 float64) *Gravity {
	return &Gravity{
		Body:   name,
		Radius: radius,
		Mu:     mu,
		J2:     j2,
	}
}

func (g *Gravity) Name() string { return g.Body }

// J2Factor returns the multiplier applied to the two-body acceleration
// along axis ('x', 'y' or 'z') at position pos.
func (g *Gravity) J2Factor(pos []float64, axis byte) (float64, error) {
	_, _, z, r, err := position(pos)
	if err != nil {
		return 0, err
	}
	return g.j2Factor(z, r, axis)
}

func (g *Gravity) j2Factor(z, r float64, axis byte) (float64, error) {
	rr := g.Radius / r
	zr := z / r

	switch axis {
	case 'x', 'y':
		return 1.0 - 1.5*g.J2*rr*rr*(5*zr*zr-1), nil
	case 'z':
		return 1.0 - 1.5*g.J2*rr*rr*(5*zr*zr-3), nil
	default:
		return 0, fmt.Errorf("%w: %q", dynamo.ErrInvalidAxis, axis)
	}
}

func (g *Gravity) Acceleration(accel []float64, x dynamo.State) error {
	if err := checkAccel(accel); err != nil {
		return err
	}
	px, py, pz, r, err := position(x)
	if err != nil {
		return fmt.Errorf("gravity %s: %w", g.Body, err)
	}

	var contrib [3]float64
	pos := [3]float64{px, py, pz}
	r3 := r * r * r
	for k, axis := range []byte{'x', 'y', 'z'} {
		f, err := g.j2Factor(pz, r, axis)
		if err != nil {
			return fmt.Errorf("gravity %s: %w", g.Body, err)
		}
		contrib[k] = -g.Mu * pos[k] / r3 * f
	}

	for k := range contrib {
		accel[k] += contrib[k]
	}
	return nil
}

func (g *Gravity) Partials(partials []float64, x dynamo.State, agents []string) error {
	table, err := g.evalPartials(x)
	if err != nil {
		return fmt.Errorf("gravity %s: %w", g.Body, err)
	}
	return table.accumulate(partials, agents)
}

// evalPartials builds the position partials of the acceleration.
func (g *Gravity) evalPartials(x dynamo.State) (partialTable, error) {
	X, Y, Z, r, err := position(x)
	if err != nil {
		return nil, err
	}

	mu := g.Mu
	J2 := g.J2
	r2 := r * r
	r3 := r2 * r
	r5 := r3 * r2
	rr2 := (g.Radius / r) * (g.Radius / r)
	zr2 := (Z / r) * (Z / r)

	// diagonal leading terms
	diagXY := -mu / r3 * (1 - 1.5*J2*rr2*(5*zr2-1))
	diagZ := -mu / r3 * (1 - 1.5*J2*rr2*(5*zr2-3))

	// cross terms
	horiz := 3 * mu / r5 * (1 - 2.5*J2*rr2*(7*zr2-1))
	vert := 3 * mu / r5 * (1 - 2.5*J2*rr2*(7*zr2-3))
	polar := 3 * mu / r5 * (1 - 2.5*J2*rr2*(7*zr2-5))

	return partialTable{
		"dX wrt X": diagXY + horiz*X*X,
		"dX wrt Y": horiz * X * Y,
		"dX wrt Z": vert * X * Z,

		"dY wrt X": horiz * X * Y,
		"dY wrt Y": diagXY + horiz*Y*Y,
		"dY wrt Z": vert * Y * Z,

		"dZ wrt X": vert * X * Z,
		"dZ wrt Y": vert * Y * Z,
		"dZ wrt Z": diagZ + polar*Z*Z,
	}, nil
}
