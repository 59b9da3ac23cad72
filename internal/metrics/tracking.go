package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/diffbase/internal/sim"
)

// Tracking is the RMS gap between the issued twist and the twist measured
// from the wheels on one axis.
type Tracking struct {
	name string
	axis func(sim.Sample) (issued, measured float64)
	errs []float64
}

func NewLinearTracking() *Tracking {
	return &Tracking{
		name: "tracking_linear",
		axis: func(s sim.Sample) (float64, float64) { return s.Issued.Linear, s.Twist.Linear },
	}
}

func NewAngularTracking() *Tracking {
	return &Tracking{
		name: "tracking_angular",
		axis: func(s sim.Sample) (float64, float64) { return s.Issued.Angular, s.Twist.Angular },
	}
}

func (t *Tracking) Name() string { return t.name }

func (t *Tracking) Observe(s sim.Sample) {
	issued, measured := t.axis(s)
	t.errs = append(t.errs, issued-measured)
}

func (t *Tracking) Value() float64 {
	if len(t.errs) == 0 {
		return 0
	}
	return floats.Norm(t.errs, 2) / math.Sqrt(float64(len(t.errs)))
}

func (t *Tracking) Reset() { t.errs = t.errs[:0] }
