package base

import "time"

// Ramp limits how fast the issued twist may change. Each axis is limited
// independently.
type Ramp struct {
	MaxLinearAccel  float64 // m/s^2
	MaxAngularAccel float64 // rad/s^2

	issued Twist2D
}

func NewRamp(maxLinearAccel, maxAngularAccel float64) *Ramp {
	return &Ramp{MaxLinearAccel: maxLinearAccel, MaxAngularAccel: maxAngularAccel}
}

// Advance moves the issued twist toward desired by at most one elapsed step of
// acceleration per axis and returns the new issued twist.
func (r *Ramp) Advance(desired Twist2D, elapsed time.Duration) Twist2D {
	dt := elapsed.Seconds()
	if dt < 0 {
		dt = 0
	}
	r.issued.Linear = approach(r.issued.Linear, desired.Linear, r.MaxLinearAccel*dt)
	r.issued.Angular = approach(r.issued.Angular, desired.Angular, r.MaxAngularAccel*dt)
	return r.issued
}

func (r *Ramp) Issued() Twist2D { return r.issued }

func (r *Ramp) Reset() { r.issued = Twist2D{} }

// approach steps current toward target by step, snapping to target instead of
// crossing it.
func approach(current, target, step float64) float64 {
	if target > current {
		current += step
		if current > target {
			current = target
		}
		return current
	}
	current -= step
	if current < target {
		current = target
	}
	return current
}
