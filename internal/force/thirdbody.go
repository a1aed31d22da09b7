package force

import (
	"fmt"
	"math"

	"github.com/san-kum/orbitekf/internal/dynamo"
)

// ThirdBody is a point-mass perturber held at a fixed position in the
// integration frame, e.g. the Moon over a short arc. The constant indirect
// term accounts for the perturber pulling on the central body.
type ThirdBody struct {
	Body     string
	Mu       float64
	Position [3]float64
}

func NewThirdBody(name string, mu float64, pos [3]float64) *ThirdBody {
	return &ThirdBody{Body: name, Mu: mu, Position: pos}
}

func (b *ThirdBody) Name() string { return b.Body }

// geometry returns rho = r - S with its norm, and |S|.
func (b *ThirdBody) geometry(x dynamo.State) (rho [3]float64, rhoNorm, sNorm float64, err error) {
	if len(x) < 3 {
		return rho, 0, 0, fmt.Errorf("%w: state has %d elements, need a position", dynamo.ErrLayoutMismatch, len(x))
	}
	s := b.Position
	for k := 0; k < 3; k++ {
		rho[k] = x[k] - s[k]
	}
	rhoNorm = math.Sqrt(rho[0]*rho[0] + rho[1]*rho[1] + rho[2]*rho[2])
	sNorm = math.Sqrt(s[0]*s[0] + s[1]*s[1] + s[2]*s[2])
	if rhoNorm == 0 || sNorm == 0 {
		return rho, 0, 0, dynamo.ErrSingularPosition
	}
	return rho, rhoNorm, sNorm, nil
}

func (b *ThirdBody) Acceleration(accel []float64, x dynamo.State) error {
	if err := checkAccel(accel); err != nil {
		return err
	}
	rho, rhoNorm, sNorm, err := b.geometry(x)
	if err != nil {
		return fmt.Errorf("third body %s: %w", b.Body, err)
	}

	rho3 := rhoNorm * rhoNorm * rhoNorm
	s3 := sNorm * sNorm * sNorm
	for k := 0; k < 3; k++ {
		accel[k] += -b.Mu*rho[k]/rho3 - b.Mu*b.Position[k]/s3
	}
	return nil
}

func (b *ThirdBody) Partials(partials []float64, x dynamo.State, agents []string) error {
	rho, rhoNorm, _, err := b.geometry(x)
	if err != nil {
		return fmt.Errorf("third body %s: %w", b.Body, err)
	}

	rho2 := rhoNorm * rhoNorm
	rho3 := rho2 * rhoNorm
	rho5 := rho3 * rho2

	table := make(partialTable, 9)
	for i, top := range axes {
		for j, bottom := range axes {
			v := 3 * b.Mu * rho[i] * rho[j] / rho5
			if i == j {
				v -= b.Mu / rho3
			}
			table[partialName(top, bottom)] = v
		}
	}
	return table.accumulate(partials, agents)
}
