package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/diffbase/internal/base"
	"github.com/san-kum/diffbase/internal/config"
	"github.com/san-kum/diffbase/internal/sim"
)

func simulate(t *testing.T, preset string) (*config.Config, *sim.Result) {
	t.Helper()
	cfg := config.GetPreset(preset)
	s, err := sim.New(cfg)
	require.NoError(t, err)
	res, err := s.Run(context.Background())
	require.NoError(t, err)
	res.Metrics["pose_drift"] = 0.25
	return cfg, res
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	cfg, res := simulate(t, "straight")
	runID, err := st.Save("straight", cfg, res)
	require.NoError(t, err)
	assert.Regexp(t, `^straight_\d{8}-\d{6}_[0-9a-f]{8}$`, runID)

	meta, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, "straight", meta.Scenario)
	assert.Equal(t, 30, meta.Steps)
	assert.Equal(t, "rk4", meta.Integrator)
	assert.Equal(t, cfg.Base, meta.Base)
	assert.Equal(t, 0.25, meta.Metrics["pose_drift"])

	samples, err := st.LoadSamples(runID)
	require.NoError(t, err)
	require.Len(t, samples, len(res.Samples))
	assert.Equal(t, res.Samples, samples, "'g' formatting is exact for float64")
}

func TestListSkipsForeignDirectories(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)

	runs, err := New(filepath.Join(dir, "missing")).List()
	require.NoError(t, err)
	assert.Empty(t, runs)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "not-a-run"), 0755))
	cfg, res := simulate(t, "straight")
	first, err := st.Save("straight", cfg, res)
	require.NoError(t, err)
	second, err := st.Save("straight", cfg, res)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.False(t, runs[1].Timestamp.Before(runs[0].Timestamp))
}

func TestLoadSamplesRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	run := filepath.Join(dir, "broken")
	require.NoError(t, os.MkdirAll(run, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(run, "samples.csv"), []byte("time,x\n0,1\n"), 0644))

	_, err := st.LoadSamples("broken")
	assert.ErrorIs(t, err, ErrBadSamples)
}

func TestSeries(t *testing.T) {
	samples := []sim.Sample{
		{Time: 0.1, Issued: base.Twist2D{Linear: 0.1}},
		{Time: 0.2, Issued: base.Twist2D{Linear: 0.2}},
	}
	got, err := Series(samples, "issued_linear")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2}, got)

	_, err = Series(samples, "phase")
	assert.Error(t, err)

	for _, col := range Columns[:len(Columns)-1] {
		_, err := Series(samples, col)
		assert.NoError(t, err, col)
	}
}

func TestExportJSON(t *testing.T) {
	samples := []sim.Sample{{Time: 0.5, Pose: base.Pose2D{X: 1}, Phase: base.PhaseRunning}}
	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, RunMetadata{ID: "r1"}, samples))

	var out struct {
		Run     RunMetadata `json:"run"`
		Samples []struct {
			T     float64    `json:"t"`
			Pose  [3]float64 `json:"pose"`
			Phase string     `json:"phase"`
		} `json:"samples"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "r1", out.Run.ID)
	require.Len(t, out.Samples, 1)
	assert.Equal(t, [3]float64{1, 0, 0}, out.Samples[0].Pose)
	assert.Equal(t, "running", out.Samples[0].Phase)
}
