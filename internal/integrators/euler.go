package integrators

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/diffbase/internal/dynamo"
)

// Euler is the explicit first-order stepper. It shares the first-order error
// of the controller's own odometry update and is kept for comparison runs.
type Euler struct{}

func NewEuler() *Euler { return &Euler{} }

func (Euler) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	next := make(dynamo.State, len(x))
	floats.AddScaledTo(next, x, dt, sys.Derive(x, u, t))
	return next
}
