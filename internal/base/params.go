package base

import (
	"fmt"
	"math"
	"time"
)

const (
	DefaultTrackWidth         = 0.33665
	DefaultRadiansPerMeter    = 17.4978147374
	DefaultMaxLinearVelocity  = 1.0
	DefaultMaxAngularVelocity = 4.5
	DefaultMaxLinearAccel     = 0.75
	DefaultMaxAngularAccel    = 3.0
	DefaultCommandTimeout     = 250 * time.Millisecond
	DefaultMovingThreshold    = 0.05
)

// Params is the immutable configuration of one base controller.
type Params struct {
	LeftJoint  string
	RightJoint string

	TrackWidth      float64 // m
	RadiansPerMeter float64 // wheel rad per m of travel

	MaxLinearVelocity  float64 // m/s
	MaxAngularVelocity float64 // rad/s
	MaxLinearAccel     float64 // m/s^2
	MaxAngularAccel    float64 // rad/s^2

	CommandTimeout  time.Duration
	MovingThreshold float64

	PublishTransform bool
	OdometryFrame    string
	BaseFrame        string
}

func DefaultParams() Params {
	return Params{
		LeftJoint:          "base_l_wheel_joint",
		RightJoint:         "base_r_wheel_joint",
		TrackWidth:         DefaultTrackWidth,
		RadiansPerMeter:    DefaultRadiansPerMeter,
		MaxLinearVelocity:  DefaultMaxLinearVelocity,
		MaxAngularVelocity: DefaultMaxAngularVelocity,
		MaxLinearAccel:     DefaultMaxLinearAccel,
		MaxAngularAccel:    DefaultMaxAngularAccel,
		CommandTimeout:     DefaultCommandTimeout,
		MovingThreshold:    DefaultMovingThreshold,
		PublishTransform:   true,
		OdometryFrame:      "odom",
		BaseFrame:          "base_link",
	}
}

func (p Params) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"track_width", p.TrackWidth},
		{"radians_per_meter", p.RadiansPerMeter},
		{"max_velocity_x", p.MaxLinearVelocity},
		{"max_velocity_r", p.MaxAngularVelocity},
		{"max_acceleration_x", p.MaxLinearAccel},
		{"max_acceleration_r", p.MaxAngularAccel},
	}
	for _, f := range positive {
		if !(f.v > 0) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s must be positive and finite, got %g", ErrInvalidConfig, f.name, f.v)
		}
	}
	if p.CommandTimeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidConfig, p.CommandTimeout)
	}
	if p.MovingThreshold < 0 || math.IsNaN(p.MovingThreshold) {
		return fmt.Errorf("%w: moving_threshold must be non-negative, got %g", ErrInvalidConfig, p.MovingThreshold)
	}
	if p.LeftJoint == "" || p.RightJoint == "" {
		return fmt.Errorf("%w: both wheel joints must be named", ErrInvalidConfig)
	}
	if p.LeftJoint == p.RightJoint {
		return fmt.Errorf("%w: left and right joint are both %q", ErrInvalidConfig, p.LeftJoint)
	}
	return nil
}
