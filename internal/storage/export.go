package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/diffbase/internal/sim"
)

type ExportData struct {
	Run     RunMetadata `json:"run"`
	Samples []jsonPoint `json:"samples"`
}

type jsonPoint struct {
	Time     float64    `json:"t"`
	Pose     [3]float64 `json:"pose"`
	TruePose [3]float64 `json:"true_pose"`
	Twist    [2]float64 `json:"twist"`
	Issued   [2]float64 `json:"issued"`
	Desired  [2]float64 `json:"desired"`
	Wheels   [2]float64 `json:"wheels"`
	Phase    string     `json:"phase"`
}

// ExportJSON writes a stored run as one JSON document.
func ExportJSON(w io.Writer, meta RunMetadata, samples []sim.Sample) error {
	data := ExportData{Run: meta, Samples: make([]jsonPoint, len(samples))}
	for i, s := range samples {
		data.Samples[i] = jsonPoint{
			Time:     s.Time,
			Pose:     [3]float64{s.Pose.X, s.Pose.Y, s.Pose.Theta},
			TruePose: [3]float64{s.TruePose.X, s.TruePose.Y, s.TruePose.Theta},
			Twist:    [2]float64{s.Twist.Linear, s.Twist.Angular},
			Issued:   [2]float64{s.Issued.Linear, s.Issued.Angular},
			Desired:  [2]float64{s.Desired.Linear, s.Desired.Angular},
			Wheels:   s.Setpoints,
			Phase:    s.Phase.String(),
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
