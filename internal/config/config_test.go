package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if err := cfg.BaseParams().Validate(); err != nil {
		t.Fatalf("default base params should validate: %v", err)
	}
	if cfg.Base.Timeout != 250*time.Millisecond {
		t.Errorf("expected 250ms timeout, got %v", cfg.Base.Timeout)
	}
	if cfg.Period() != 20*time.Millisecond {
		t.Errorf("expected 20ms period at 50Hz, got %v", cfg.Period())
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "base.yaml")
	data := []byte(`
rate: 100
base:
  track_width: 0.5
  timeout: 400ms
sim:
  script:
    - {start: 0, duration: 1.5, linear: 0.2}
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Rate != 100 {
		t.Errorf("expected rate 100, got %f", cfg.Rate)
	}
	if cfg.Base.TrackWidth != 0.5 {
		t.Errorf("expected track width 0.5, got %f", cfg.Base.TrackWidth)
	}
	if cfg.Base.Timeout != 400*time.Millisecond {
		t.Errorf("expected 400ms timeout, got %v", cfg.Base.Timeout)
	}
	if cfg.Base.RadiansPerMeter != DefaultConfig().Base.RadiansPerMeter {
		t.Errorf("radians_per_meter should keep its default, got %f", cfg.Base.RadiansPerMeter)
	}
	if len(cfg.Sim.Script) != 1 || cfg.Sim.Script[0].Duration != 1.5 {
		t.Errorf("unexpected script %+v", cfg.Sim.Script)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := GetPreset("square")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("config changed across save/load (-saved +loaded):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero rate", func(c *Config) { c.Rate = 0 }},
		{"no controllers", func(c *Config) { c.Controllers = nil }},
		{"duplicate controller", func(c *Config) { c.Controllers = append(c.Controllers, c.Controllers[0]) }},
		{"zero dt", func(c *Config) { c.Sim.Dt = 0 }},
		{"negative duration", func(c *Config) { c.Sim.Duration = -1 }},
		{"zero command rate", func(c *Config) { c.Sim.CommandRate = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestPresets(t *testing.T) {
	for _, name := range ListPresets() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("preset %s is nil", name)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}
	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}

	a, b := GetPreset("straight"), GetPreset("straight")
	a.Sim.Script[0].Linear = 9
	if b.Sim.Script[0].Linear == 9 {
		t.Error("presets should not share state")
	}
}
