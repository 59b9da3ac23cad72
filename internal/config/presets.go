package config

import (
	"sort"

	"github.com/san-kum/diffbase/internal/command"
)

// Presets are named simulation scenarios. Each builder starts from the
// defaults and changes only what the scenario is about.
var Presets = map[string]func() *Config{
	// Reference base: 0.5 m/s for 2 s at a 10 Hz loop, ideal motors.
	"straight": func() *Config {
		c := DefaultConfig()
		c.Base.TrackWidth = 0.336
		c.Base.RadiansPerMeter = 17.5
		c.Plant.TimeConstant = 0
		c.Sim.Dt = 0.1
		c.Sim.Duration = 3.0
		c.Sim.Script = []command.Segment{{Start: 0, Duration: 2.0, Linear: 0.5}}
		return c
	},
	"spin": func() *Config {
		c := DefaultConfig()
		c.Sim.Duration = 6.0
		c.Sim.Script = []command.Segment{{Start: 0, Duration: 4.0, Angular: 2.0}}
		return c
	},
	"arc": func() *Config {
		c := DefaultConfig()
		c.Sim.Duration = 12.0
		c.Sim.Script = []command.Segment{{Start: 0, Duration: 10.0, Linear: 0.4, Angular: 0.8}}
		return c
	},
	"square": func() *Config {
		c := DefaultConfig()
		c.Sim.Duration = 24.0
		var segs []command.Segment
		t := 0.0
		for i := 0; i < 4; i++ {
			segs = append(segs,
				command.Segment{Start: t, Duration: 3.0, Linear: 0.4},
				command.Segment{Start: t + 3.0, Duration: 2.0, Angular: 0.7854},
			)
			t += 5.5
		}
		c.Sim.Script = segs
		return c
	},
	// Commands stop mid-drive; the base must ramp to rest on its own.
	"stale": func() *Config {
		c := DefaultConfig()
		c.Sim.Duration = 5.0
		c.Sim.Script = []command.Segment{{Start: 0, Duration: 2.0, Linear: 0.8}}
		return c
	},
	// Coarse loop at a high turn rate, where the first-order update drifts.
	"drift": func() *Config {
		c := DefaultConfig()
		c.Sim.Dt = 0.1
		c.Sim.Duration = 8.0
		c.Sim.Script = []command.Segment{{Start: 0, Duration: 7.0, Linear: 0.8, Angular: 4.0}}
		return c
	},
}

// GetPreset returns a fresh copy of the named scenario, or nil.
func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
