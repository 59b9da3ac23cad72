package plant

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/diffbase/internal/base"
	"github.com/san-kum/diffbase/internal/dynamo"
	"github.com/san-kum/diffbase/internal/hw"
)

var ErrInvalidSetpoint = errors.New("plant: non-finite wheel setpoint")

// Plant steps a DiffDrive in simulated time and exposes its wheels as joints.
// It is driven from a single goroutine, like the control loop it serves.
type Plant struct {
	sys   *DiffDrive
	integ dynamo.Integrator

	x dynamo.State
	u dynamo.Control
	t float64

	// FailWrites, when set, is returned by every wheel setpoint write.
	FailWrites error
	// CorruptFeedback, when set, makes both wheels report NaN positions.
	CorruptFeedback bool
}

func New(sys *DiffDrive, integ dynamo.Integrator) (*Plant, error) {
	if err := sys.Validate(); err != nil {
		return nil, err
	}
	return &Plant{
		sys:   sys,
		integ: integ,
		x:     make(dynamo.State, sys.StateDim()),
		u:     make(dynamo.Control, sys.ControlDim()),
	}, nil
}

// Step advances the plant by dt under the current setpoints.
func (p *Plant) Step(dt float64) error {
	if p.sys.TimeConstant <= 0 {
		p.x[LeftVel], p.x[RightVel] = p.u[0], p.u[1]
	}
	next := p.integ.Step(p.sys, p.x, p.u, p.t, dt)
	if err := dynamo.CheckDims(p.sys, next, p.u); err != nil {
		return &dynamo.StepError{Time: p.t, State: next, Wrapped: err}
	}
	if !next.IsValid() {
		return &dynamo.StepError{Time: p.t, State: next, Wrapped: dynamo.ErrInvalidState}
	}
	p.x = next
	p.t += dt
	return nil
}

func (p *Plant) Time() float64 { return p.t }

func (p *Plant) State() dynamo.State { return p.x.Clone() }

func (p *Plant) Setpoints() (left, right float64) { return p.u[0], p.u[1] }

// TruePose is the ground-truth body pose, with theta unwrapped like the
// controller's odometry.
func (p *Plant) TruePose() base.Pose2D {
	return base.Pose2D{X: p.x[X], Y: p.x[Y], Theta: p.x[Theta]}
}

func (p *Plant) TrueTwist() base.Twist2D {
	lin, ang := p.sys.BodyTwist(p.x)
	return base.Twist2D{Linear: lin, Angular: ang}
}

// Joints names the two wheels for a controller lookup.
func (p *Plant) Joints(left, right string) hw.Set {
	return hw.Set{
		left:  &wheel{plant: p, pos: LeftPos, vel: LeftVel, ctrl: 0},
		right: &wheel{plant: p, pos: RightPos, vel: RightVel, ctrl: 1},
	}
}

type wheel struct {
	plant          *Plant
	pos, vel, ctrl int
}

func (w *wheel) Position() float64 {
	if w.plant.CorruptFeedback {
		return math.NaN()
	}
	return w.plant.x[w.pos]
}

func (w *wheel) Velocity() float64 { return w.plant.x[w.vel] }

func (w *wheel) SetVelocity(radPerSec float64) error {
	if w.plant.FailWrites != nil {
		return w.plant.FailWrites
	}
	if math.IsNaN(radPerSec) || math.IsInf(radPerSec, 0) {
		return fmt.Errorf("%w: %g", ErrInvalidSetpoint, radPerSec)
	}
	w.plant.u[w.ctrl] = radPerSec
	return nil
}
