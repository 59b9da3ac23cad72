// Package odom carries dead-reckoned odometry out of the control loop.
//
// The controller hands one [Record] per tick to a [Publisher] and, when
// configured, one [Transform] to a [Broadcaster]. Publishers must not block:
// the call happens inside the control tick.
package odom

import (
	"errors"
	"math"
	"time"
)

// ErrDropped is returned by a publisher that had to discard a record rather
// than block.
var ErrDropped = errors.New("odom: record dropped")

type Quaternion struct {
	X, Y, Z, W float64
}

// YawQuaternion is the rotation of theta radians about +z.
func YawQuaternion(theta float64) Quaternion {
	return Quaternion{Z: math.Sin(theta / 2), W: math.Cos(theta / 2)}
}

// Yaw recovers the heading in (-pi, pi].
func (q Quaternion) Yaw() float64 {
	return math.Atan2(2*(q.W*q.Z+q.X*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z))
}

type Record struct {
	Stamp      time.Time
	Frame      string
	ChildFrame string

	X, Y float64
	// Theta is the unwrapped heading as accumulated by the integrator.
	Theta       float64
	Orientation Quaternion

	Linear  float64
	Angular float64
}

// Transform places the child (base) frame inside the parent (odometry) frame.
type Transform struct {
	Stamp    time.Time
	Parent   string
	Child    string
	X, Y     float64
	Rotation Quaternion
}

func (r Record) Transform() Transform {
	return Transform{
		Stamp:    r.Stamp,
		Parent:   r.Frame,
		Child:    r.ChildFrame,
		X:        r.X,
		Y:        r.Y,
		Rotation: r.Orientation,
	}
}

// NormalizeAngle wraps theta into (-pi, pi] for display.
func NormalizeAngle(theta float64) float64 {
	a := math.Mod(theta, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	} else if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

type Publisher interface {
	Publish(r Record) error
}

type Broadcaster interface {
	SendTransform(t Transform) error
}
