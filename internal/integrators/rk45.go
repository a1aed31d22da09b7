package integrators

import (
	"math"

	"github.com/san-kum/orbitekf/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64

	k       [7]dynamo.State
	scratch dynamo.State
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) ensureScratch(n int) {
	if len(r.scratch) != n {
		for i := range r.k {
			r.k[i] = make(dynamo.State, n)
		}
		r.scratch = make(dynamo.State, n)
	}
}

// Step takes one fixed step of size dt using the fifth-order solution.
func (r *RK45) Step(dyn dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, error) {
	xNew, _, err := r.attempt(dyn, x, t, dt)
	return xNew, err
}

// StepAdaptive attempts a step of size dt. If the local error estimate
// exceeds tol the step is rejected: the returned state is nil and the
// returned dt is the smaller step to retry with. On acceptance the returned
// dt is the suggested size of the next step.
func (r *RK45) StepAdaptive(dyn dynamo.System, x dynamo.State, t, dt, tol float64) (dynamo.State, float64, error) {
	xNew, errMax, err := r.attempt(dyn, x, t, dt)
	if err != nil {
		return nil, 0, err
	}

	errRatio := errMax / tol

	if errRatio > 1 {
		scale := math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
		return nil, dt * scale, nil
	}

	var dtNew float64
	if errRatio > 0 {
		scale := math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
		dtNew = dt * scale
	} else {
		dtNew = dt * r.maxScale
	}

	return xNew, dtNew, nil
}

// stage evaluates k[idx] at x + dt*sum(coef[m]*k[m]).
func (r *RK45) stage(dyn dynamo.System, x dynamo.State, t float64, dt float64, idx int, coef ...float64) error {
	for i := range x {
		acc := 0.0
		for m, c := range coef {
			acc += c * r.k[m][i]
		}
		r.scratch[i] = x[i] + dt*acc
	}
	return dyn.Derive(r.scratch, r.k[idx], t)
}

func (r *RK45) attempt(dyn dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, float64, error) {
	n := len(x)
	r.ensureScratch(n)
	k := r.k

	if err := dyn.Derive(x, k[0], t); err != nil {
		return nil, 0, err
	}
	if err := r.stage(dyn, x, t+a2*dt, dt, 1, b21); err != nil {
		return nil, 0, err
	}
	if err := r.stage(dyn, x, t+a3*dt, dt, 2, b31, b32); err != nil {
		return nil, 0, err
	}
	if err := r.stage(dyn, x, t+a4*dt, dt, 3, b41, b42, b43); err != nil {
		return nil, 0, err
	}
	if err := r.stage(dyn, x, t+a5*dt, dt, 4, b51, b52, b53, b54); err != nil {
		return nil, 0, err
	}
	if err := r.stage(dyn, x, t+dt, dt, 5, b61, b62, b63, b64, b65); err != nil {
		return nil, 0, err
	}

	xNew := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + dt*(c1*k[0][i]+c3*k[2][i]+c4*k[3][i]+c5*k[4][i]+c6*k[5][i])
	}

	if err := dyn.Derive(xNew, k[6], t+dt); err != nil {
		return nil, 0, err
	}

	errMax := 0.0
	for i := 0; i < n; i++ {
		errEst := dt * (dc1*k[0][i] + dc3*k[2][i] + dc4*k[3][i] + dc5*k[4][i] + dc6*k[5][i] + dc7*k[6][i])
		scale := math.Abs(x[i]) + math.Abs(dt*k[0][i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}

	return xNew, errMax, nil
}
