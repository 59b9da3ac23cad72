package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/diffbase/internal/sim"
)

// ControlEffort is the mean absolute wheel setpoint, in rad/s per wheel.
type ControlEffort struct {
	name   string
	values []float64
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(s sim.Sample) {
	c.values = append(c.values, (math.Abs(s.Setpoints[0])+math.Abs(s.Setpoints[1]))/2)
}

func (c *ControlEffort) Value() float64 {
	if len(c.values) == 0 {
		return 0
	}
	return stat.Mean(c.values, nil)
}

func (c *ControlEffort) Reset() {
	c.values = c.values[:0]
}
