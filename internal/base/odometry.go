package base

import (
	"fmt"
	"math"
)

// minTrackWidth guards the turn division against a zero or denormal width.
const minTrackWidth = 1e-6

// Integrate applies one wheel-sample delta to pose and returns the new pose and
// the instantaneous twist implied by current's wheel velocities.
//
// The pose update is first order: translation is applied along the heading
// held before this tick's rotation. Over a tick with rotation dθ the chord
// error grows with dθ², so low tick rates at high turn rates drift.
func Integrate(pose Pose2D, previous, current WheelSample, trackWidth, radiansPerMeter float64) (Pose2D, Twist2D) {
	left := (current.LeftPosition - previous.LeftPosition) / radiansPerMeter
	right := (current.RightPosition - previous.RightPosition) / radiansPerMeter

	forward := (left + right) / 2
	turn := (right - left) / trackWidth

	pose.X += forward * math.Cos(pose.Theta)
	pose.Y += forward * math.Sin(pose.Theta)
	pose.Theta += turn

	twist := Twist2D{
		Linear:  (current.LeftVelocity + current.RightVelocity) / (2 * radiansPerMeter),
		Angular: (current.RightVelocity - current.LeftVelocity) / (radiansPerMeter * trackWidth),
	}
	return pose, twist
}

// Odometry holds the integrated pose and the one previous sample needed to
// form the next delta.
type Odometry struct {
	trackWidth      float64
	radiansPerMeter float64

	pose  Pose2D
	twist Twist2D
	last  WheelSample
}

// NewOdometry starts at the zero pose with initial as the reference sample.
func NewOdometry(trackWidth, radiansPerMeter float64, initial WheelSample) *Odometry {
	return &Odometry{
		trackWidth:      trackWidth,
		radiansPerMeter: radiansPerMeter,
		last:            initial,
	}
}

// Update integrates sample against the previous one. A rejected sample leaves
// pose, twist and the reference sample untouched, so the next good sample
// carries the whole displacement.
func (o *Odometry) Update(sample WheelSample) error {
	if !sample.IsValid() {
		return fmt.Errorf("%w: %+v", ErrInvalidFeedback, sample)
	}
	if math.Abs(o.trackWidth) < minTrackWidth || o.radiansPerMeter == 0 {
		return fmt.Errorf("%w: track width %g, radians per meter %g", ErrDegenerateGeometry, o.trackWidth, o.radiansPerMeter)
	}
	pose, twist := Integrate(o.pose, o.last, sample, o.trackWidth, o.radiansPerMeter)
	if !finite(pose.X) || !finite(pose.Y) || !finite(pose.Theta) || !twist.IsValid() {
		return fmt.Errorf("%w: integration produced %+v", ErrInvalidFeedback, pose)
	}
	o.pose, o.twist, o.last = pose, twist, sample
	return nil
}

func (o *Odometry) Pose() Pose2D { return o.pose }

func (o *Odometry) Twist() Twist2D { return o.twist }

// Last returns the reference sample the next delta is taken against.
func (o *Odometry) Last() WheelSample { return o.last }
