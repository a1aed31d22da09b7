package metrics

import (
	"math"

	"github.com/san-kum/orbitekf/internal/dynamo"
	"github.com/san-kum/orbitekf/internal/stm"
	"gonum.org/v1/gonum/mat"
)

// STMDeterminant tracks max |det Φ − 1|. For a trace-free A (any harmonic
// gravity field over the position agents) det Φ stays 1, so growth here
// points at integration error.
type STMDeterminant struct {
	name     string
	maxDrift float64
	samples  int
}

func NewSTMDeterminant() *STMDeterminant {
	return &STMDeterminant{name: "stm_det_drift"}
}

func (s *STMDeterminant) Name() string {
	return s.name
}

func (s *STMDeterminant) Observe(x dynamo.State, t float64) {
	n, err := stm.AgentCount(len(x))
	if err != nil || n == 0 {
		return
	}
	s.samples++
	det := mat.Det(stm.ToMatrix(stm.Block(x, n), n))
	s.maxDrift = math.Max(s.maxDrift, math.Abs(det-1))
}

func (s *STMDeterminant) Value() float64 {
	return s.maxDrift
}

func (s *STMDeterminant) Reset() {
	s.maxDrift = 0
	s.samples = 0
}
