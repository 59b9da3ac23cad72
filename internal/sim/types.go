package sim

import (
	"github.com/san-kum/diffbase/internal/base"
)

// Sample is the state of one simulated tick: what the controller believes,
// what the plant actually did, and what was asked of it.
type Sample struct {
	Time float64

	Pose      base.Pose2D
	TruePose  base.Pose2D
	Twist     base.Twist2D
	TrueTwist base.Twist2D

	Issued  base.Twist2D
	Desired base.Twist2D
	// Setpoints are the wheel velocities in effect, rad/s.
	Setpoints [2]float64
	Phase     base.Phase
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Sample)
}

type Result struct {
	Samples    []Sample
	Metrics    map[string]float64
	StepsTaken int
	// Errors holds the failed ticks; a failed tick does not end the run.
	Errors []error
}

// Final returns the last sample, or the zero sample for an empty run.
func (r *Result) Final() Sample {
	if len(r.Samples) == 0 {
		return Sample{}
	}
	return r.Samples[len(r.Samples)-1]
}
