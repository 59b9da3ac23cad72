package integrators

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/diffbase/internal/dynamo"
)

// RK4 is the classic fourth-order stepper used for the plant's ground truth.
// Stage buffers are reused across steps, so an RK4 is not safe for
// concurrent use.
type RK4 struct {
	k1, k2, k3, k4 dynamo.State
	stage          dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) grow(n int) {
	if len(r.k1) == n {
		return
	}
	r.k1 = make(dynamo.State, n)
	r.k2 = make(dynamo.State, n)
	r.k3 = make(dynamo.State, n)
	r.k4 = make(dynamo.State, n)
	r.stage = make(dynamo.State, n)
}

func (r *RK4) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	r.grow(len(x))
	half := dt / 2

	copy(r.k1, sys.Derive(x, u, t))
	floats.AddScaledTo(r.stage, x, half, r.k1)
	copy(r.k2, sys.Derive(r.stage, u, t+half))
	floats.AddScaledTo(r.stage, x, half, r.k2)
	copy(r.k3, sys.Derive(r.stage, u, t+half))
	floats.AddScaledTo(r.stage, x, dt, r.k3)
	copy(r.k4, sys.Derive(r.stage, u, t+dt))

	// x + dt/6 (k1 + 2 k2 + 2 k3 + k4)
	next := x.Clone()
	floats.AddScaled(next, dt/6, r.k1)
	floats.AddScaled(next, dt/3, r.k2)
	floats.AddScaled(next, dt/3, r.k3)
	floats.AddScaled(next, dt/6, r.k4)
	return next
}
