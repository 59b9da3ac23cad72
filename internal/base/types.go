package base

import (
	"math"
	"time"
)

// Pose2D is a dead-reckoned planar pose. Theta is unwrapped.
type Pose2D struct {
	X, Y  float64
	Theta float64
}

// Twist2D is a planar body velocity: Linear in m/s, Angular in rad/s.
type Twist2D struct {
	Linear  float64
	Angular float64
}

func (t Twist2D) IsZero() bool { return t.Linear == 0 && t.Angular == 0 }

func (t Twist2D) IsValid() bool { return finite(t.Linear) && finite(t.Angular) }

// WheelSample is one read of both wheels: positions in rad, velocities in rad/s.
type WheelSample struct {
	LeftPosition  float64
	RightPosition float64
	LeftVelocity  float64
	RightVelocity float64
}

func (s WheelSample) IsValid() bool {
	return finite(s.LeftPosition) && finite(s.RightPosition) &&
		finite(s.LeftVelocity) && finite(s.RightVelocity)
}

type VelocityCommand struct {
	Desired    Twist2D
	ReceivedAt time.Time
}

type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseIdle
	PhaseRunning
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseStopped:
		return "stopped"
	}
	return "unknown"
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, bool) {
	for p := PhaseUninitialized; p <= PhaseStopped; p++ {
		if p.String() == s {
			return p, true
		}
	}
	return PhaseUninitialized, false
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
