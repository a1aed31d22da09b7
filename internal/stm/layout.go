// Package stm centralizes the row-major packing of the state transition
// matrix inside a flat state vector.
//
// A state for N active agents has length 6+N². Element STM[i][j] lives at
// index Offset + j + i*N.
package stm

import (
	"fmt"
	"math"

	"github.com/san-kum/orbitekf/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Offset is the index of the first STM element in a state vector.
const Offset = 6

// StateLen returns the state vector length for n active agents.
func StateLen(n int) int {
	return Offset + n*n
}

// AgentCount recovers N from a state vector length.
func AgentCount(stateLen int) (int, error) {
	block := stateLen - Offset
	if block < 0 {
		return 0, fmt.Errorf("%w: length %d is shorter than the %d-element cartesian state",
			dynamo.ErrLayoutMismatch, stateLen, Offset)
	}
	n := int(math.Round(math.Sqrt(float64(block))))
	if n*n != block {
		return 0, fmt.Errorf("%w: STM block of %d elements is not square", dynamo.ErrLayoutMismatch, block)
	}
	return n, nil
}

// Block returns the trailing STM slice of a state. The slice aliases x.
func Block(x dynamo.State, n int) []float64 {
	return x[Offset : Offset+n*n]
}

// ToMatrix copies a row-major flat slice of length n² into an n×n matrix.
// It returns nil for n == 0, since gonum has no empty dense matrices.
func ToMatrix(flat []float64, n int) *mat.Dense {
	if n == 0 {
		return nil
	}
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			m.Set(i, j, flat[j+i*n])
		}
	}
	return m
}

// FromMatrix writes m into dst using the same row-major convention.
// dst must hold at least r*c elements.
func FromMatrix(m mat.Matrix, dst []float64) {
	if m == nil {
		return
	}
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			dst[j+i*c] = m.At(i, j)
		}
	}
}

// Identity returns the flattened n×n identity, the STM at the epoch.
func Identity(n int) []float64 {
	flat := make([]float64, n*n)
	for i := 0; i < n; i++ {
		flat[i+i*n] = 1
	}
	return flat
}

// NewState builds an augmented state from position, velocity and an n×n
// STM seeded with the identity.
func NewState(pos, vel [3]float64, n int) dynamo.State {
	x := make(dynamo.State, StateLen(n))
	copy(x[0:3], pos[:])
	copy(x[3:6], vel[:])
	copy(x[Offset:], Identity(n))
	return x
}
