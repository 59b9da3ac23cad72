package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/diffbase/internal/sim"
)

// PathLength is the distance the base actually travelled.
type PathLength struct {
	last   []float64
	length float64
}

func NewPathLength() *PathLength { return &PathLength{} }

func (p *PathLength) Name() string { return "path_length" }

func (p *PathLength) Observe(s sim.Sample) {
	pos := []float64{s.TruePose.X, s.TruePose.Y}
	if p.last != nil {
		p.length += floats.Distance(p.last, pos, 2)
	}
	p.last = pos
}

func (p *PathLength) Value() float64 { return p.length }

func (p *PathLength) Reset() {
	p.last = nil
	p.length = 0
}

// Drift is the worst position error of odometry against ground truth, in m.
type Drift struct {
	worst float64
}

func NewDrift() *Drift { return &Drift{} }

func (d *Drift) Name() string { return "pose_drift" }

func (d *Drift) Observe(s sim.Sample) {
	gap := floats.Distance(
		[]float64{s.Pose.X, s.Pose.Y},
		[]float64{s.TruePose.X, s.TruePose.Y}, 2)
	d.worst = math.Max(d.worst, gap)
}

func (d *Drift) Value() float64 { return d.worst }

func (d *Drift) Reset() { d.worst = 0 }

// PeakAcceleration is the largest linear rate of change of the issued twist
// between samples, in m/s^2. It stays at or below the configured limit.
type PeakAcceleration struct {
	times  []float64
	issued []float64
}

func NewPeakAcceleration() *PeakAcceleration { return &PeakAcceleration{} }

func (p *PeakAcceleration) Name() string { return "peak_accel" }

func (p *PeakAcceleration) Observe(s sim.Sample) {
	p.times = append(p.times, s.Time)
	p.issued = append(p.issued, s.Issued.Linear)
}

func (p *PeakAcceleration) Value() float64 {
	if len(p.issued) < 2 {
		return 0
	}
	rates := make([]float64, len(p.issued)-1)
	for i := range rates {
		dt := p.times[i+1] - p.times[i]
		if dt > 0 {
			rates[i] = math.Abs(p.issued[i+1]-p.issued[i]) / dt
		}
	}
	return floats.Max(rates)
}

func (p *PeakAcceleration) Reset() {
	p.times = p.times[:0]
	p.issued = p.issued[:0]
}

// Default is the metric set attached to every simulated run.
func Default() []sim.Metric {
	return []sim.Metric{
		NewLinearTracking(),
		NewAngularTracking(),
		NewControlEffort(),
		NewPathLength(),
		NewDrift(),
		NewPeakAcceleration(),
	}
}
