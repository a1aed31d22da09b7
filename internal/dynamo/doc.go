// Package dynamo provides the core primitives shared by the orbit
// propagation packages.
//
// The package defines the fundamental interfaces and types for numerical
// integration of the augmented EKF state:
//
//   - [State]: flat vector [X Y Z dX dY dZ | STM row-major]
//   - [System]: interface for ODE systems written as Derive(x, dxdt, t)
//   - [Integrator]: numerical stepper interface
//   - [Observer] and [Metric]: per-step hooks used by the propagator
//
// # Example
//
//	dyn := ekf.New(models, agents)
//	integ := integrators.NewRK4()
//	p := propagate.New(dyn, integ)
//	result, _ := p.Run(ctx, x0, cfg)
//
// # Thread Safety
//
// A System is evaluated from a single goroutine. Force models keep no
// mutable state, so independent systems built over the same models may run
// concurrently.
package dynamo
