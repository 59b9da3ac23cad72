// Package plant simulates a differential-drive base: two first-order wheel
// motors and the body pose they carry. It stands in for the real motor board
// so the controller can run against ground truth.
package plant

import (
	"fmt"
	"math"

	"github.com/san-kum/diffbase/internal/dynamo"
)

// State layout of DiffDrive.
const (
	LeftPos = iota
	LeftVel
	RightPos
	RightVel
	X
	Y
	Theta
	stateDim
)

// DiffDrive is the plant as an ODE. Controls are the left and right wheel
// velocity setpoints in rad/s.
type DiffDrive struct {
	TrackWidth      float64 // m
	RadiansPerMeter float64 // wheel rad per m of travel
	TimeConstant    float64 // motor lag in s; 0 tracks setpoints instantly
}

func NewDiffDrive(trackWidth, radiansPerMeter, timeConstant float64) *DiffDrive {
	return &DiffDrive{
		TrackWidth:      trackWidth,
		RadiansPerMeter: radiansPerMeter,
		TimeConstant:    timeConstant,
	}
}

func (d *DiffDrive) StateDim() int   { return stateDim }
func (d *DiffDrive) ControlDim() int { return 2 }

func (d *DiffDrive) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	lv, rv, theta := x[LeftVel], x[RightVel], x[Theta]

	var la, ra float64
	if d.TimeConstant > 0 && len(u) >= 2 {
		la = (u[0] - lv) / d.TimeConstant
		ra = (u[1] - rv) / d.TimeConstant
	}

	v := (lv + rv) / (2 * d.RadiansPerMeter)
	w := (rv - lv) / (d.RadiansPerMeter * d.TrackWidth)

	dx := make(dynamo.State, stateDim)
	dx[LeftPos] = lv
	dx[LeftVel] = la
	dx[RightPos] = rv
	dx[RightVel] = ra
	dx[X] = v * math.Cos(theta)
	dx[Y] = v * math.Sin(theta)
	dx[Theta] = w
	return dx
}

// BodyTwist is the true body velocity carried by the wheel speeds in x.
func (d *DiffDrive) BodyTwist(x dynamo.State) (linear, angular float64) {
	lv, rv := x[LeftVel], x[RightVel]
	return (lv + rv) / (2 * d.RadiansPerMeter), (rv - lv) / (d.RadiansPerMeter * d.TrackWidth)
}

func (d *DiffDrive) Validate() error {
	if !(d.TrackWidth > 0) || !(d.RadiansPerMeter > 0) {
		return fmt.Errorf("%w: track width %g, radians per meter %g", dynamo.ErrParameterBounds, d.TrackWidth, d.RadiansPerMeter)
	}
	if d.TimeConstant < 0 || math.IsNaN(d.TimeConstant) {
		return fmt.Errorf("%w: time constant %g", dynamo.ErrParameterBounds, d.TimeConstant)
	}
	return nil
}

// ParamNames lists the parameters GetParams reports, in display order.
var ParamNames = []string{"track_width", "radians_per_meter", "time_constant"}

func (d *DiffDrive) GetParams() map[string]float64 {
	return map[string]float64{
		"track_width":       d.TrackWidth,
		"radians_per_meter": d.RadiansPerMeter,
		"time_constant":     d.TimeConstant,
	}
}

// SetParam changes one parameter. A value that fails Validate is rejected and
// the previous value kept.
func (d *DiffDrive) SetParam(name string, value float64) error {
	prev := *d
	switch name {
	case "track_width":
		d.TrackWidth = value
	case "radians_per_meter":
		d.RadiansPerMeter = value
	case "time_constant":
		d.TimeConstant = value
	default:
		return fmt.Errorf("%w: unknown parameter %q", dynamo.ErrParameterBounds, name)
	}
	if err := d.Validate(); err != nil {
		*d = prev
		return err
	}
	return nil
}
