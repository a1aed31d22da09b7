package stm

import (
	"testing"

	"github.com/san-kum/orbitekf/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestStateLenAndAgentCount(t *testing.T) {
	for n := 0; n <= 9; n++ {
		got, err := AgentCount(StateLen(n))
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

func TestAgentCount_Rejects(t *testing.T) {
	tests := []struct {
		name string
		len  int
	}{
		{"too short", 5},
		{"empty", 0},
		{"not square", 6 + 5},
		{"one short of square", 6 + 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AgentCount(tt.len)
			assert.ErrorIs(t, err, dynamo.ErrLayoutMismatch)
		})
	}
}

func TestToMatrix_RowMajor(t *testing.T) {
	m := ToMatrix([]float64{1, 2, 3, 4}, 2)

	assert.Equal(t, 1.0, m.At(0, 0))
	assert.Equal(t, 2.0, m.At(0, 1))
	assert.Equal(t, 3.0, m.At(1, 0))
	assert.Equal(t, 4.0, m.At(1, 1))
}

func TestFromMatrix_RoundTrip(t *testing.T) {
	flat := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	dst := make([]float64, 9)

	FromMatrix(ToMatrix(flat, 3), dst)
	assert.Equal(t, flat, dst)
}

func TestFromMatrix_Product(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	var p mat.Dense
	p.Mul(a, mat.NewDense(2, 2, Identity(2)))

	dst := make([]float64, 4)
	FromMatrix(&p, dst)
	assert.Equal(t, []float64{1, 2, 3, 4}, dst)
}

func TestZeroAgents(t *testing.T) {
	assert.Nil(t, ToMatrix(nil, 0))
	FromMatrix(nil, nil)
	assert.Empty(t, Identity(0))
}

func TestNewState(t *testing.T) {
	x := NewState([3]float64{7000, 0, 0}, [3]float64{0, 7.5, 0}, 3)

	require.Len(t, x, 15)
	assert.Equal(t, 7000.0, x[0])
	assert.Equal(t, 7.5, x[4])
	assert.Equal(t, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}, Block(x, 3))
}
