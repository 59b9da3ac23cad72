package base

import (
	"fmt"
	"math"

	"github.com/san-kum/diffbase/internal/hw"
)

// Mix converts a body twist into left and right wheel angular velocities.
func Mix(issued Twist2D, trackWidth, radiansPerMeter float64) (left, right float64) {
	half := issued.Angular / 2 * trackWidth
	left = (issued.Linear - half) * radiansPerMeter
	right = (issued.Linear + half) * radiansPerMeter
	return left, right
}

// Mixer writes mixed setpoints to a pair of wheel joints.
type Mixer struct {
	left, right     hw.Joint
	trackWidth      float64
	radiansPerMeter float64
	movingThreshold float64

	// holding is true while the last written setpoint was non-zero or failed.
	holding bool
}

func NewMixer(left, right hw.Joint, trackWidth, radiansPerMeter, movingThreshold float64) *Mixer {
	return &Mixer{
		left:            left,
		right:           right,
		trackWidth:      trackWidth,
		radiansPerMeter: radiansPerMeter,
		movingThreshold: movingThreshold,
	}
}

// ShouldWrite is false only when nothing is being issued, the wheels were
// last told to hold zero, and the base is measured as still, so idle
// actuators are not fed a stream of zeros.
func (m *Mixer) ShouldWrite(issued, measured Twist2D) bool {
	if !issued.IsZero() || m.holding {
		return true
	}
	return math.Abs(measured.Linear) > m.movingThreshold || math.Abs(measured.Angular) > m.movingThreshold
}

// Write sends setpoints for issued unless gated off. It reports whether a
// write happened. Both wheels are attempted even if the first fails.
func (m *Mixer) Write(issued, measured Twist2D) (bool, error) {
	if !m.ShouldWrite(issued, measured) {
		return false, nil
	}
	left, right := Mix(issued, m.trackWidth, m.radiansPerMeter)
	errL := m.left.SetVelocity(left)
	errR := m.right.SetVelocity(right)
	m.holding = !issued.IsZero() || errL != nil || errR != nil
	switch {
	case errL != nil && errR != nil:
		return true, fmt.Errorf("%w: left: %v; right: %v", ErrActuation, errL, errR)
	case errL != nil:
		return true, fmt.Errorf("%w: left: %v", ErrActuation, errL)
	case errR != nil:
		return true, fmt.Errorf("%w: right: %v", ErrActuation, errR)
	}
	return true, nil
}

// Holding reports whether the wheels still need a zero written.
func (m *Mixer) Holding() bool { return m.holding }
