// Package storage keeps simulated runs on disk: one directory per run with
// metadata.json and samples.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/diffbase/internal/base"
	"github.com/san-kum/diffbase/internal/config"
	"github.com/san-kum/diffbase/internal/sim"
)

var ErrBadSamples = errors.New("storage: malformed samples file")

// Columns is the samples.csv header.
var Columns = []string{
	"time",
	"x", "y", "theta",
	"true_x", "true_y", "true_theta",
	"linear", "angular",
	"issued_linear", "issued_angular",
	"desired_linear", "desired_angular",
	"left_setpoint", "right_setpoint",
	"phase",
}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID           string             `json:"id"`
	Scenario     string             `json:"scenario"`
	Timestamp    time.Time          `json:"timestamp"`
	Dt           float64            `json:"dt"`
	Duration     float64            `json:"duration"`
	Integrator   string             `json:"integrator"`
	TimeConstant float64            `json:"time_constant"`
	Base         config.BaseConfig  `json:"base"`
	Steps        int                `json:"steps"`
	FailedTicks  int                `json:"failed_ticks"`
	Metrics      map[string]float64 `json:"metrics"`
}

func newRunID(scenario string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s", scenario, at.Format("20060102-150405"), uuid.NewString()[:8])
}

// Save writes result under a fresh run ID and returns the ID.
func (s *Store) Save(scenario string, cfg *config.Config, result *sim.Result) (string, error) {
	now := time.Now()
	runID := newRunID(scenario, now)
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:           runID,
		Scenario:     scenario,
		Timestamp:    now,
		Dt:           cfg.Sim.Dt,
		Duration:     cfg.Sim.Duration,
		Integrator:   cfg.Plant.Integrator,
		TimeConstant: cfg.Plant.TimeConstant,
		Base:         cfg.Base,
		Steps:        result.StepsTaken,
		FailedTicks:  len(result.Errors),
		Metrics:      result.Metrics,
	}
	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeSamples(filepath.Join(runDir, "samples.csv"), result.Samples); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSamples(path string, samples []sim.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return err
	}
	for _, sm := range samples {
		row := make([]string, 0, len(Columns))
		for _, v := range []float64{
			sm.Time,
			sm.Pose.X, sm.Pose.Y, sm.Pose.Theta,
			sm.TruePose.X, sm.TruePose.Y, sm.TruePose.Theta,
			sm.Twist.Linear, sm.Twist.Angular,
			sm.Issued.Linear, sm.Issued.Angular,
			sm.Desired.Linear, sm.Desired.Angular,
			sm.Setpoints[0], sm.Setpoints[1],
		} {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		row = append(row, sm.Phase.String())
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadSamples reads a run's samples back.
func (s *Store) LoadSamples(runID string) ([]sim.Sample, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "samples.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Columns)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSamples, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("%w: missing header", ErrBadSamples)
	}

	samples := make([]sim.Sample, 0, len(records)-1)
	for i, rec := range records[1:] {
		v := make([]float64, len(Columns)-1)
		for j := range v {
			if v[j], err = strconv.ParseFloat(rec[j], 64); err != nil {
				return nil, fmt.Errorf("%w: row %d column %s: %v", ErrBadSamples, i+1, Columns[j], err)
			}
		}
		phase, ok := base.ParsePhase(rec[len(Columns)-1])
		if !ok {
			return nil, fmt.Errorf("%w: row %d: unknown phase %q", ErrBadSamples, i+1, rec[len(Columns)-1])
		}
		samples = append(samples, sim.Sample{
			Time:      v[0],
			Pose:      base.Pose2D{X: v[1], Y: v[2], Theta: v[3]},
			TruePose:  base.Pose2D{X: v[4], Y: v[5], Theta: v[6]},
			Twist:     base.Twist2D{Linear: v[7], Angular: v[8]},
			Issued:    base.Twist2D{Linear: v[9], Angular: v[10]},
			Desired:   base.Twist2D{Linear: v[11], Angular: v[12]},
			Setpoints: [2]float64{v[13], v[14]},
			Phase:     phase,
		})
	}
	return samples, nil
}

// Series extracts one numeric column from samples by its header name.
func Series(samples []sim.Sample, column string) ([]float64, error) {
	get, ok := columnGetters[column]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", column)
	}
	out := make([]float64, len(samples))
	for i, sm := range samples {
		out[i] = get(sm)
	}
	return out, nil
}

var columnGetters = map[string]func(sim.Sample) float64{
	"time":            func(s sim.Sample) float64 { return s.Time },
	"x":               func(s sim.Sample) float64 { return s.Pose.X },
	"y":               func(s sim.Sample) float64 { return s.Pose.Y },
	"theta":           func(s sim.Sample) float64 { return s.Pose.Theta },
	"true_x":          func(s sim.Sample) float64 { return s.TruePose.X },
	"true_y":          func(s sim.Sample) float64 { return s.TruePose.Y },
	"true_theta":      func(s sim.Sample) float64 { return s.TruePose.Theta },
	"linear":          func(s sim.Sample) float64 { return s.Twist.Linear },
	"angular":         func(s sim.Sample) float64 { return s.Twist.Angular },
	"issued_linear":   func(s sim.Sample) float64 { return s.Issued.Linear },
	"issued_angular":  func(s sim.Sample) float64 { return s.Issued.Angular },
	"desired_linear":  func(s sim.Sample) float64 { return s.Desired.Linear },
	"desired_angular": func(s sim.Sample) float64 { return s.Desired.Angular },
	"left_setpoint":   func(s sim.Sample) float64 { return s.Setpoints[0] },
	"right_setpoint":  func(s sim.Sample) float64 { return s.Setpoints[1] },
}
