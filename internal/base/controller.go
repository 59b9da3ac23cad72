package base

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/san-kum/diffbase/internal/hw"
	"github.com/san-kum/diffbase/internal/odom"
)

// timeoutLogEvery throttles the mid-run timeout diagnostic.
const timeoutLogEvery = 5 * time.Second

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option { return func(c *Controller) { c.logger = l } }

func WithPublisher(p odom.Publisher) Option { return func(c *Controller) { c.publisher = p } }

func WithBroadcaster(b odom.Broadcaster) Option { return func(c *Controller) { c.broadcaster = b } }

// Controller drives a differential base from velocity commands and
// dead-reckons its pose from wheel feedback.
type Controller struct {
	name        string
	params      Params
	logger      *slog.Logger
	publisher   odom.Publisher
	broadcaster odom.Broadcaster

	initialized  atomic.Bool
	requestStart func()

	left, right hw.Joint
	lifecycle   *Lifecycle
	ramp        *Ramp
	mixer       *Mixer
	odometry    *Odometry

	lastTimeoutLog time.Time
}

func New(name string, params Params, opts ...Option) *Controller {
	c := &Controller{
		name:   name,
		params: params,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "base", "controller", name)
	return c
}

func (c *Controller) Name() string { return c.name }

func (c *Controller) Params() Params { return c.params }

// Init validates the configuration, resolves both wheel joints and primes
// odometry with their current positions. It fails if either joint has not
// reported a position yet. requestStart, if non-nil, is called
// from the command path each time a command is accepted.
func (c *Controller) Init(joints hw.Lookup, requestStart func()) error {
	if err := c.params.Validate(); err != nil {
		c.logger.Error("refusing to initialize", "err", err)
		return err
	}
	left, err := joints.Joint(c.params.LeftJoint)
	if err != nil {
		c.logger.Error("cannot get wheel joints", "err", err)
		return fmt.Errorf("%w: %v", ErrMissingJoint, err)
	}
	right, err := joints.Joint(c.params.RightJoint)
	if err != nil {
		c.logger.Error("cannot get wheel joints", "err", err)
		return fmt.Errorf("%w: %v", ErrMissingJoint, err)
	}
	if err := hw.CheckReady(left, right); err != nil {
		c.logger.Error("wheel feedback not available", "err", err)
		return fmt.Errorf("%w: %v", ErrInvalidFeedback, err)
	}
	initial := sample(left, right)
	if !initial.IsValid() {
		return fmt.Errorf("%w: initial sample %+v", ErrInvalidFeedback, initial)
	}

	p := c.params
	c.left, c.right = left, right
	c.requestStart = requestStart
	c.lifecycle = NewLifecycle(p.CommandTimeout)
	c.ramp = NewRamp(p.MaxLinearAccel, p.MaxAngularAccel)
	c.mixer = NewMixer(left, right, p.TrackWidth, p.RadiansPerMeter, p.MovingThreshold)
	c.odometry = NewOdometry(p.TrackWidth, p.RadiansPerMeter, initial)
	c.initialized.Store(true)
	c.logger.Debug("initialized", "left", p.LeftJoint, "right", p.RightJoint)
	return nil
}

// OnCommand accepts a velocity command. Safe to call from any goroutine.
func (c *Controller) OnCommand(cmd VelocityCommand) {
	if !c.initialized.Load() {
		c.logger.Error("unable to accept command, not initialized")
		return
	}
	if !cmd.Desired.IsValid() {
		c.logger.Warn("dropping non-finite command", "linear", cmd.Desired.Linear, "angular", cmd.Desired.Angular)
		return
	}
	cmd.Desired.Linear = clamp(cmd.Desired.Linear, c.params.MaxLinearVelocity)
	cmd.Desired.Angular = clamp(cmd.Desired.Angular, c.params.MaxAngularVelocity)
	c.lifecycle.OnCommand(cmd)
	if c.requestStart != nil {
		c.requestStart()
	}
}

// Start claims control if a fresh command is present. Failure is an expected
// outcome and is only logged at debug.
func (c *Controller) Start(now time.Time) bool {
	if !c.initialized.Load() {
		c.logger.Error("unable to start, not initialized")
		return false
	}
	if !c.lifecycle.Start(now) {
		c.logger.Debug("unable to start, no fresh command")
		return false
	}
	return true
}

// Preempt reports whether control should be given up at now.
func (c *Controller) Preempt(now time.Time, force bool) bool {
	if !c.initialized.Load() {
		return true
	}
	return c.lifecycle.ShouldPreempt(now, c.ramp.Issued(), force)
}

// Stop relinquishes control. The issued twist keeps ramping to zero on the
// following updates.
func (c *Controller) Stop(now time.Time) {
	if !c.initialized.Load() {
		return
	}
	if c.lifecycle.Phase() == PhaseRunning {
		c.logger.Debug("stopping", "issued_linear", c.ramp.Issued().Linear, "issued_angular", c.ramp.Issued().Angular)
	}
	c.lifecycle.Stop()
}

// Update runs one control tick. Wheel feedback is sampled and integrated
// every tick; the ramp and the wheel writes run only while engaged, against
// the twist just measured.
func (c *Controller) Update(now time.Time, elapsed time.Duration) error {
	if !c.initialized.Load() {
		return ErrNotInitialized
	}
	var errs []error

	if err := c.odometry.Update(sample(c.left, c.right)); err != nil {
		errs = append(errs, err)
	}

	if c.engaged() {
		if c.lifecycle.Phase() == PhaseRunning && c.lifecycle.TimedOut(now) {
			c.logTimeout(now)
		}
		issued := c.ramp.Advance(c.lifecycle.Desired(now), elapsed)
		if _, err := c.mixer.Write(issued, c.odometry.Twist()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Publish hands the current odometry to the publisher and, when enabled, the
// odom to base transform to the broadcaster.
func (c *Controller) Publish(now time.Time) error {
	if !c.initialized.Load() {
		return ErrNotInitialized
	}
	rec := c.Record(now)
	var errs []error
	if c.publisher != nil {
		if err := c.publisher.Publish(rec); err != nil {
			errs = append(errs, err)
		}
	}
	if c.params.PublishTransform && c.broadcaster != nil {
		if err := c.broadcaster.SendTransform(rec.Transform()); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	if errors.Is(err, odom.ErrDropped) {
		c.logger.Debug("odometry consumer is behind", "err", err)
	}
	return err
}

// Record is the odometry as of the last update, stamped now.
func (c *Controller) Record(now time.Time) odom.Record {
	pose, twist := c.odometry.Pose(), c.odometry.Twist()
	return odom.Record{
		Stamp:       now,
		Frame:       c.params.OdometryFrame,
		ChildFrame:  c.params.BaseFrame,
		X:           pose.X,
		Y:           pose.Y,
		Theta:       pose.Theta,
		Orientation: odom.YawQuaternion(pose.Theta),
		Linear:      twist.Linear,
		Angular:     twist.Angular,
	}
}

func (c *Controller) Joints() []string {
	return []string{c.params.LeftJoint, c.params.RightJoint}
}

func (c *Controller) Phase() Phase {
	if !c.initialized.Load() {
		return PhaseUninitialized
	}
	return c.lifecycle.Phase()
}

// Pose, Twist and Issued are zero before Init.
func (c *Controller) Pose() Pose2D {
	if !c.initialized.Load() {
		return Pose2D{}
	}
	return c.odometry.Pose()
}

func (c *Controller) Twist() Twist2D {
	if !c.initialized.Load() {
		return Twist2D{}
	}
	return c.odometry.Twist()
}

func (c *Controller) Issued() Twist2D {
	if !c.initialized.Load() {
		return Twist2D{}
	}
	return c.ramp.Issued()
}

// Desired is the twist the ramp is chasing at now.
func (c *Controller) Desired(now time.Time) Twist2D {
	if !c.initialized.Load() {
		return Twist2D{}
	}
	return c.lifecycle.Desired(now)
}

// engaged is true while running, and after a stop until the ramp reaches zero
// and that zero has been written.
func (c *Controller) engaged() bool {
	return c.lifecycle.Phase() == PhaseRunning || !c.ramp.Issued().IsZero() || c.mixer.Holding()
}

func (c *Controller) logTimeout(now time.Time) {
	if !c.lastTimeoutLog.IsZero() && now.Sub(c.lastTimeoutLog) < timeoutLogEvery {
		return
	}
	c.lastTimeoutLog = now
	c.logger.Debug("command timed out")
}

func sample(left, right hw.Joint) WheelSample {
	return WheelSample{
		LeftPosition:  left.Position(),
		RightPosition: right.Position(),
		LeftVelocity:  left.Velocity(),
		RightVelocity: right.Velocity(),
	}
}

func clamp(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}
