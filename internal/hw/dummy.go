package hw

import "log/slog"

// dummyHistory is the default number of setpoints a Dummy keeps.
const dummyHistory = 64

// Dummy is a joint with no hardware behind it. Position and velocity are set
// directly; setpoints are recorded and optionally logged.
type Dummy struct {
	Name string
	Pos  float64
	Vel  float64
	// Fail, when set, is returned from every SetVelocity call.
	Fail error

	// Setpoints holds the most recent Capacity writes, all of them when
	// Capacity is zero.
	Setpoints []float64
	Capacity  int
	Logger    *slog.Logger
}

func NewDummy(name string, logger *slog.Logger) *Dummy {
	return &Dummy{Name: name, Capacity: dummyHistory, Logger: logger}
}

func (d *Dummy) Position() float64 { return d.Pos }
func (d *Dummy) Velocity() float64 { return d.Vel }

func (d *Dummy) SetVelocity(v float64) error {
	if d.Fail != nil {
		return d.Fail
	}
	d.Setpoints = append(d.Setpoints, v)
	if d.Capacity > 0 && len(d.Setpoints) > d.Capacity {
		d.Setpoints = d.Setpoints[len(d.Setpoints)-d.Capacity:]
	}
	if d.Logger != nil {
		d.Logger.Debug("setpoint", "joint", d.Name, "rad_per_sec", v)
	}
	return nil
}

// Last returns the most recent setpoint, or false if none was written.
func (d *Dummy) Last() (float64, bool) {
	if len(d.Setpoints) == 0 {
		return 0, false
	}
	return d.Setpoints[len(d.Setpoints)-1], true
}

var _ Joint = (*Dummy)(nil)
