package experiment

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/orbitekf/internal/config"
	"github.com/san-kum/orbitekf/internal/dynamo"
	"github.com/san-kum/orbitekf/internal/propagate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shortPreset(t *testing.T, name string) *config.Config {
	t.Helper()
	cfg := config.GetPreset(name)
	require.NotNil(t, cfg)
	cfg.Duration = 600
	return cfg
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"euler", "rk4", "rk45"}, r.ListIntegrators())

	integ, err := r.GetIntegrator("rk45")
	require.NoError(t, err)
	_, ok := integ.(dynamo.AdaptiveIntegrator)
	assert.True(t, ok)

	_, err = r.GetIntegrator("verlet")
	assert.ErrorIs(t, err, dynamo.ErrUnknownModel)
}

func TestNew_RejectsBadScenario(t *testing.T) {
	cfg := shortPreset(t, "leo")
	cfg.Integrator = "midpoint"
	_, err := New(cfg, NewRegistry(), nil)
	assert.ErrorIs(t, err, dynamo.ErrUnknownModel)

	cfg = shortPreset(t, "leo")
	cfg.Dt = 0
	_, err = New(cfg, NewRegistry(), nil)
	assert.Error(t, err)
}

func TestNew_RejectsThirdBodyAtOrigin(t *testing.T) {
	cfg := shortPreset(t, "geo_lunar")
	cfg.ThirdBodies[0].Position = [3]float64{}

	exp, err := New(cfg, NewRegistry(), nil)
	assert.ErrorIs(t, err, dynamo.ErrSingularPosition)
	assert.Nil(t, exp)
}

func TestRun_Presets(t *testing.T) {
	for _, name := range config.ListPresets() {
		t.Run(name, func(t *testing.T) {
			exp, err := New(shortPreset(t, name), NewRegistry(), nil)
			require.NoError(t, err)

			result, err := exp.Run(context.Background())
			require.NoError(t, err)
			assert.InDelta(t, 600, result.Times[len(result.Times)-1], 1e-6)
			assert.Contains(t, result.Metrics, "energy_drift")
			assert.Contains(t, result.Metrics, "stm_det_drift")
			assert.Len(t, result.Final(), len(exp.Dynamics().Agents())*len(exp.Dynamics().Agents())+6)
		})
	}
}

func TestDerive(t *testing.T) {
	exp, err := New(shortPreset(t, "leo"), NewRegistry(), nil)
	require.NoError(t, err)

	x0, dxdt, err := exp.Derive(0)
	require.NoError(t, err)
	require.Len(t, dxdt, len(x0))

	assert.Equal(t, []float64(x0[3:6]), []float64(dxdt[0:3]))

	// J2 only nudges the point-mass magnitude
	r := math.Sqrt(x0[0]*x0[0] + x0[1]*x0[1] + x0[2]*x0[2])
	a := math.Sqrt(dxdt[3]*dxdt[3] + dxdt[4]*dxdt[4] + dxdt[5]*dxdt[5])
	assert.InEpsilon(t, config.EarthMu/(r*r), a, 5e-3)

	// Φ(0) = I, so the STM derivative is A itself, which is symmetric
	assert.InDelta(t, dxdt[6+1], dxdt[6+3], 1e-18)
	assert.InDelta(t, dxdt[6+2], dxdt[6+6], 1e-18)
	// radial stretching along X
	assert.Greater(t, dxdt[6+0], 0.0)
}

func TestJob_Ensemble(t *testing.T) {
	var jobs []propagate.Job
	for _, name := range []string{"leo", "leo_point_mass"} {
		exp, err := New(shortPreset(t, name), NewRegistry(), nil)
		require.NoError(t, err)
		jobs = append(jobs, exp.Job())
	}

	results, err := propagate.NewEnsemble(jobs, 2, nil).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NotEqual(t, results[0].Final(), results[1].Final())
}
