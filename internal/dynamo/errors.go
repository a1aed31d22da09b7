package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for derivative evaluation and propagation.
var (
	// ErrLayoutMismatch indicates the state length does not match 6+N² for
	// the configured active agents.
	ErrLayoutMismatch = errors.New("dynamo: state layout does not match active agent count")

	// ErrInvalidAxis indicates a request for an axis other than x, y or z.
	ErrInvalidAxis = errors.New("dynamo: invalid axis")

	// ErrSingularPosition indicates a position at the coordinate origin.
	ErrSingularPosition = errors.New("dynamo: position at the origin")

	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrUnknownModel indicates a named model, integrator or preset that is
	// not registered.
	ErrUnknownModel = errors.New("dynamo: unknown model")
)

// SimulationError wraps an error with propagation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
