package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/diffbase/internal/base"
	"github.com/san-kum/diffbase/internal/command"
)

const (
	DefaultRate         = 50.0
	DefaultDt           = 0.02
	DefaultDuration     = 10.0
	DefaultCommandRate  = 10.0
	DefaultTimeConstant = 0.08
	DefaultBaud         = 115200
)

type Config struct {
	// Rate is the control loop frequency in Hz for real-time runs.
	Rate        float64            `yaml:"rate"`
	Controllers []ControllerConfig `yaml:"controllers"`
	Base        BaseConfig         `yaml:"base"`
	Plant       PlantConfig        `yaml:"plant"`
	Sim         SimConfig          `yaml:"sim"`
	Serial      SerialConfig       `yaml:"serial"`
	Log         LogConfig          `yaml:"log"`
}

type ControllerConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type BaseConfig struct {
	LeftJoint        string        `yaml:"left_joint"`
	RightJoint       string        `yaml:"right_joint"`
	TrackWidth       float64       `yaml:"track_width"`
	RadiansPerMeter  float64       `yaml:"radians_per_meter"`
	MaxVelocityX     float64       `yaml:"max_velocity_x"`
	MaxVelocityR     float64       `yaml:"max_velocity_r"`
	MaxAccelerationX float64       `yaml:"max_acceleration_x"`
	MaxAccelerationR float64       `yaml:"max_acceleration_r"`
	Timeout          time.Duration `yaml:"timeout"`
	MovingThreshold  float64       `yaml:"moving_threshold"`
	PublishTF        bool          `yaml:"publish_tf"`
	OdometryFrame    string        `yaml:"odometry_frame"`
	BaseFrame        string        `yaml:"base_frame"`
}

type PlantConfig struct {
	// TimeConstant is the first-order wheel motor lag in seconds.
	TimeConstant float64 `yaml:"time_constant"`
	Integrator   string  `yaml:"integrator"`
}

type SimConfig struct {
	Dt          float64           `yaml:"dt"`
	Duration    float64           `yaml:"duration"`
	CommandRate float64           `yaml:"command_rate"`
	Script      []command.Segment `yaml:"script"`
}

type SerialConfig struct {
	Port        string        `yaml:"port"`
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() *Config {
	p := base.DefaultParams()
	return &Config{
		Rate: DefaultRate,
		Controllers: []ControllerConfig{
			{Name: "base_controller", Type: "diff_drive"},
		},
		Base: BaseConfig{
			LeftJoint:        p.LeftJoint,
			RightJoint:       p.RightJoint,
			TrackWidth:       p.TrackWidth,
			RadiansPerMeter:  p.RadiansPerMeter,
			MaxVelocityX:     p.MaxLinearVelocity,
			MaxVelocityR:     p.MaxAngularVelocity,
			MaxAccelerationX: p.MaxLinearAccel,
			MaxAccelerationR: p.MaxAngularAccel,
			Timeout:          p.CommandTimeout,
			MovingThreshold:  p.MovingThreshold,
			PublishTF:        p.PublishTransform,
			OdometryFrame:    p.OdometryFrame,
			BaseFrame:        p.BaseFrame,
		},
		Plant: PlantConfig{
			TimeConstant: DefaultTimeConstant,
			Integrator:   "rk4",
		},
		Sim: SimConfig{
			Dt:          DefaultDt,
			Duration:    DefaultDuration,
			CommandRate: DefaultCommandRate,
			Script: []command.Segment{
				{Start: 0, Duration: 3, Linear: 0.5},
				{Start: 3, Duration: 2, Linear: 0.3, Angular: 1.0},
				{Start: 5, Duration: 3, Linear: 0.5},
			},
		},
		Serial: SerialConfig{
			Port:        "/dev/ttyACM0",
			Baud:        DefaultBaud,
			ReadTimeout: 50 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML file over the defaults, so a partial file only overrides
// what it names.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks everything except the base parameters, which the
// controller validates itself at Init.
func (c *Config) Validate() error {
	if !(c.Rate > 0) {
		return fmt.Errorf("rate must be positive, got %g", c.Rate)
	}
	if len(c.Controllers) == 0 {
		return fmt.Errorf("at least one controller must be configured")
	}
	seen := make(map[string]bool)
	for i, cc := range c.Controllers {
		if cc.Name == "" || cc.Type == "" {
			return fmt.Errorf("controllers[%d]: name and type are required", i)
		}
		if seen[cc.Name] {
			return fmt.Errorf("controllers[%d]: duplicate name %q", i, cc.Name)
		}
		seen[cc.Name] = true
	}
	if c.Sim.Dt <= 0 {
		return fmt.Errorf("sim.dt must be positive, got %g", c.Sim.Dt)
	}
	if c.Sim.Duration <= 0 {
		return fmt.Errorf("sim.duration must be positive, got %g", c.Sim.Duration)
	}
	if c.Plant.TimeConstant < 0 {
		return fmt.Errorf("plant.time_constant must be non-negative, got %g", c.Plant.TimeConstant)
	}
	script := command.NewScript(c.Sim.Script, c.Sim.CommandRate)
	if err := script.Validate(); err != nil {
		return fmt.Errorf("sim: %w", err)
	}
	return nil
}

// BaseParams converts the base section into controller parameters.
func (c *Config) BaseParams() base.Params {
	b := c.Base
	return base.Params{
		LeftJoint:          b.LeftJoint,
		RightJoint:         b.RightJoint,
		TrackWidth:         b.TrackWidth,
		RadiansPerMeter:    b.RadiansPerMeter,
		MaxLinearVelocity:  b.MaxVelocityX,
		MaxAngularVelocity: b.MaxVelocityR,
		MaxLinearAccel:     b.MaxAccelerationX,
		MaxAngularAccel:    b.MaxAccelerationR,
		CommandTimeout:     b.Timeout,
		MovingThreshold:    b.MovingThreshold,
		PublishTransform:   b.PublishTF,
		OdometryFrame:      b.OdometryFrame,
		BaseFrame:          b.BaseFrame,
	}
}

// Period is the control tick for real-time runs.
func (c *Config) Period() time.Duration {
	return time.Duration(float64(time.Second) / c.Rate)
}

func (c *Config) Script() *command.Script {
	return command.NewScript(c.Sim.Script, c.Sim.CommandRate)
}

func (c *Config) Clone() *Config {
	cp := *c
	cp.Controllers = append([]ControllerConfig(nil), c.Controllers...)
	cp.Sim.Script = append([]command.Segment(nil), c.Sim.Script...)
	return &cp
}
