package force

import (
	"math"
	"testing"

	"github.com/san-kum/orbitekf/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const moonMu = 4902.800066

var moonPosition = [3]float64{384400, 0, 0}

func TestThirdBody_AccelerationDirection(t *testing.T) {
	moon := NewThirdBody("moon", moonMu, moonPosition)

	// at the central body the direct and indirect terms cancel
	accel := make([]float64, 3)
	require.NoError(t, moon.Acceleration(accel, dynamo.State{1e-9, 0, 0}))
	assert.InDelta(t, 0, accel[0], 1e-15)

	// between the bodies the satellite is pulled toward the moon
	accel = make([]float64, 3)
	require.NoError(t, moon.Acceleration(accel, dynamo.State{42164, 0, 0}))
	assert.Greater(t, accel[0], 0.0)
	assert.Zero(t, accel[1])
	assert.Zero(t, accel[2])
}

func TestThirdBody_PartialsMatchFiniteDifferences(t *testing.T) {
	moon := NewThirdBody("moon", moonMu, moonPosition)
	agents := []string{"X", "Y", "Z"}

	for _, pos := range samplePositions {
		partials := make([]float64, 9)
		require.NoError(t, moon.Partials(partials, pos, agents))

		want := numericPartials(t, moon, pos, 1.0)
		scale := 0.0
		for _, v := range want {
			scale = math.Max(scale, math.Abs(v))
		}
		for k := range want {
			assert.InDelta(t, want[k], partials[k], scale*1e-6, "pos=%v entry=%d", pos, k)
		}
	}
}

func TestThirdBody_Singular(t *testing.T) {
	moon := NewThirdBody("moon", moonMu, moonPosition)

	accel := make([]float64, 3)
	err := moon.Acceleration(accel, dynamo.State{384400, 0, 0})
	assert.ErrorIs(t, err, dynamo.ErrSingularPosition)

	origin := NewThirdBody("nowhere", moonMu, [3]float64{})
	err = origin.Partials(make([]float64, 1), dynamo.State{7000, 0, 0}, []string{"X"})
	assert.ErrorIs(t, err, dynamo.ErrSingularPosition)
}

func TestModelsImplementInterface(t *testing.T) {
	var _ Model = (*Gravity)(nil)
	var _ Model = (*ThirdBody)(nil)

	assert.Equal(t, "earth", NewGravity("earth", earthRadius, earthMu, earthJ2).Name())
	assert.Equal(t, "moon", NewThirdBody("moon", moonMu, moonPosition).Name())
}
