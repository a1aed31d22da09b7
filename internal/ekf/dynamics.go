// Package ekf assembles force-model contributions into the time derivative
// of the augmented EKF state: position, velocity and the state transition
// matrix Φ, with dΦ/dt = A·Φ.
package ekf

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/orbitekf/internal/dynamo"
	"github.com/san-kum/orbitekf/internal/force"
	"github.com/san-kum/orbitekf/internal/stm"
	"gonum.org/v1/gonum/mat"
)

// Dynamics is the derivative function handed to an integrator. It owns no
// physics: every evaluation fans out to the registered force models in
// registration order and sums what they return.
//
// The model list and agent list are shared with the caller and must not be
// changed while an integration run is in progress.
type Dynamics struct {
	models []force.Model
	agents []string

	logger      *slog.Logger
	diagnostics bool
}

type Option func(*Dynamics)

// WithDiagnostics reports A, Φ and dΦ/dt through logger at debug level on
// every evaluation. Results are unaffected.
func WithDiagnostics(logger *slog.Logger) Option {
	return func(d *Dynamics) {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger
		d.diagnostics = true
	}
}

// New builds an assembler over models and the ordered active agents. A nil
// model list and agent list is valid and yields zero acceleration with an
// empty STM block.
func New(models []force.Model, agents []string, opts ...Option) *Dynamics {
	d := &Dynamics{
		models: models,
		agents: agents,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dynamics) Models() []force.Model { return d.models }
func (d *Dynamics) Agents() []string      { return d.agents }

// StateDim is 6+N² for N active agents.
func (d *Dynamics) StateDim() int { return stm.StateLen(len(d.agents)) }

// Validate checks the agent list and that a state of length stateLen
// matches it. Call it before starting an integration loop.
func (d *Dynamics) Validate(stateLen int) error {
	seen := make(map[string]struct{}, len(d.agents))
	for _, a := range d.agents {
		if _, dup := seen[a]; dup {
			return fmt.Errorf("%w: duplicate active agent %q", dynamo.ErrLayoutMismatch, a)
		}
		seen[a] = struct{}{}
	}
	n, err := stm.AgentCount(stateLen)
	if err != nil {
		return err
	}
	if n != len(d.agents) {
		return fmt.Errorf("%w: state holds a %dx%d STM but %d agents are active",
			dynamo.ErrLayoutMismatch, n, n, len(d.agents))
	}
	return nil
}

// Derive writes d(x)/dt into dxdt. It follows the integrator calling
// convention (state_in, derivative_out, time). On error dxdt is left
// untouched.
func (d *Dynamics) Derive(x, dxdt dynamo.State, t float64) error {
	n := len(d.agents)
	if len(x) != stm.StateLen(n) {
		return fmt.Errorf("%w: state has %d elements, want %d for %d agents",
			dynamo.ErrLayoutMismatch, len(x), stm.StateLen(n), n)
	}
	if len(dxdt) != len(x) {
		return fmt.Errorf("%w: derivative has %d elements, state has %d",
			dynamo.ErrLayoutMismatch, len(dxdt), len(x))
	}

	accel := make([]float64, 3)
	for _, m := range d.models {
		if err := m.Acceleration(accel, x); err != nil {
			return fmt.Errorf("acceleration from %s: %w", m.Name(), err)
		}
	}

	partials := make([]float64, n*n)
	for _, m := range d.models {
		if err := m.Partials(partials, x, d.agents); err != nil {
			return fmt.Errorf("partials from %s: %w", m.Name(), err)
		}
	}

	dstm := make([]float64, n*n)
	if n > 0 {
		a := stm.ToMatrix(partials, n)
		phi := stm.ToMatrix(stm.Block(x, n), n)

		var prod mat.Dense
		prod.Mul(a, phi)
		stm.FromMatrix(&prod, dstm)

		if d.diagnostics {
			d.report(t, a, phi, &prod)
		}
	}

	copy(dxdt[0:3], x[3:6])
	copy(dxdt[3:6], accel)
	copy(dxdt[stm.Offset:], dstm)
	return nil
}

// Evaluate returns a freshly allocated derivative of x.
func (d *Dynamics) Evaluate(x dynamo.State, t float64) (dynamo.State, error) {
	dxdt := make(dynamo.State, len(x))
	if err := d.Derive(x, dxdt, t); err != nil {
		return nil, err
	}
	return dxdt, nil
}

func (d *Dynamics) report(t float64, a, phi, dphi mat.Matrix) {
	d.logger.Debug("partials matrix",
		slog.Float64("t", t),
		slog.String("A", fmt.Sprintf("%v", mat.Formatted(a, mat.Squeeze()))))
	d.logger.Debug("state transition matrix",
		slog.Float64("t", t),
		slog.String("stm", fmt.Sprintf("%v", mat.Formatted(phi, mat.Squeeze()))))
	d.logger.Debug("state transition matrix derivative",
		slog.Float64("t", t),
		slog.String("dstm", fmt.Sprintf("%v", mat.Formatted(dphi, mat.Squeeze()))))
}
