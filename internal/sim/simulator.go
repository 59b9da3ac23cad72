// Package sim runs the base controller against the simulated plant in
// simulated time. A run sends the scripted commands, steps the plant, ticks
// the manager and records one Sample per tick.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/san-kum/diffbase/internal/base"
	"github.com/san-kum/diffbase/internal/command"
	"github.com/san-kum/diffbase/internal/config"
	"github.com/san-kum/diffbase/internal/dynamo"
	"github.com/san-kum/diffbase/internal/integrators"
	"github.com/san-kum/diffbase/internal/manager"
	"github.com/san-kum/diffbase/internal/odom"
	"github.com/san-kum/diffbase/internal/plant"
)

// Epoch is simulated time zero on the controller's clock.
var Epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// readback is what the simulator reads back from the controller each tick.
type readback interface {
	Pose() base.Pose2D
	Twist() base.Twist2D
	Issued() base.Twist2D
	Desired(now time.Time) base.Twist2D
	Phase() base.Phase
}

type Option func(*options)

type options struct {
	logger      *slog.Logger
	publisher   odom.Publisher
	broadcaster odom.Broadcaster
	manual      bool
}

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

func WithPublisher(p odom.Publisher) Option { return func(o *options) { o.publisher = p } }

func WithBroadcaster(b odom.Broadcaster) Option { return func(o *options) { o.broadcaster = b } }

// Manual disables the configured script; commands come only from Command.
func Manual() Option { return func(o *options) { o.manual = true } }

type Simulator struct {
	cfg    *config.Config
	logger *slog.Logger

	plant   *plant.Plant
	mgr     *manager.Manager
	name    string
	ctrl    readback
	script  *command.Script
	metrics []Metric
	obs     []Observer

	dt   float64
	step int
}

// New builds the plant, loads the configured controller onto its wheels and
// prepares the script. The first configured controller is the one driven.
func New(cfg *config.Config, opts ...Option) (*Simulator, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	integ, err := integrators.New(cfg.Plant.Integrator)
	if err != nil {
		return nil, err
	}
	sys := plant.NewDiffDrive(cfg.Base.TrackWidth, cfg.Base.RadiansPerMeter, cfg.Plant.TimeConstant)
	p, err := plant.New(sys, integ)
	if err != nil {
		return nil, fmt.Errorf("plant: %w", err)
	}

	mgr := manager.New(p.Joints(cfg.Base.LeftJoint, cfg.Base.RightJoint), nil, manager.Deps{
		Publisher:   o.publisher,
		Broadcaster: o.broadcaster,
		Logger:      o.logger,
	})
	if err := mgr.Load(cfg); err != nil {
		return nil, err
	}
	name := cfg.Controllers[0].Name
	c, err := mgr.Controller(name)
	if err != nil {
		return nil, err
	}
	pr, ok := c.(readback)
	if !ok {
		return nil, fmt.Errorf("controller %s cannot be simulated", name)
	}

	s := &Simulator{
		cfg:    cfg,
		logger: o.logger.With("component", "sim"),
		plant:  p,
		mgr:    mgr,
		name:   name,
		ctrl:   pr,
		dt:     cfg.Sim.Dt,
	}
	if !o.manual {
		s.script = cfg.Script()
	}
	return s, nil
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.obs = append(s.obs, o) }

// Time is the current simulated time in seconds.
func (s *Simulator) Time() float64 { return float64(s.step) * s.dt }

func (s *Simulator) Now() time.Time { return clock(s.Time()) }

func (s *Simulator) Plant() *plant.Plant { return s.plant }

// Command sends a twist to the controller stamped with the current
// simulated time.
func (s *Simulator) Command(linear, angular float64) error {
	return s.mgr.Send(s.name, linear, angular, s.Now())
}

// Step runs one tick: any due scripted command, the plant advance, then the
// control cycle at the new time. A failed control cycle is returned with the
// sample; a diverged plant is returned without one.
func (s *Simulator) Step() (Sample, error) {
	if s.script != nil {
		if lin, ang, ok := s.script.Due(s.Time()); ok {
			if err := s.Command(lin, ang); err != nil {
				return Sample{}, err
			}
		}
	}

	if err := s.plant.Step(s.dt); err != nil {
		return Sample{}, err
	}
	s.step++

	now := s.Now()
	var tickErr error
	if err := s.mgr.Tick(now, seconds(s.dt)); err != nil {
		tickErr = &dynamo.StepError{Step: s.step, Time: s.Time(), State: s.plant.State(), Wrapped: err}
	}

	sample := s.sample(now)
	for _, m := range s.metrics {
		m.Observe(sample)
	}
	for _, o := range s.obs {
		o.OnStep(sample)
	}
	return sample, tickErr
}

// Run steps for the configured duration.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	steps := int(math.Round(s.cfg.Sim.Duration / s.dt))
	result := &Result{
		Samples: make([]Sample, 0, steps),
		Metrics: make(map[string]float64),
	}
	for _, m := range s.metrics {
		m.Reset()
	}

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		sample, err := s.Step()
		if err != nil {
			result.Errors = append(result.Errors, err)
			if fatal(err) {
				s.logger.Error("simulation stopped", "step", i, "err", err)
				return result, err
			}
			s.logger.Debug("tick failed", "step", i, "err", err)
		}
		result.Samples = append(result.Samples, sample)
		result.StepsTaken++
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	if n := len(result.Errors); n > 0 {
		s.logger.Warn("run finished with failed ticks", "failed", n, "steps", result.StepsTaken)
	}
	return result, nil
}

func (s *Simulator) sample(now time.Time) Sample {
	l, r := s.plant.Setpoints()
	return Sample{
		Time:      s.Time(),
		Pose:      s.ctrl.Pose(),
		TruePose:  s.plant.TruePose(),
		Twist:     s.ctrl.Twist(),
		TrueTwist: s.plant.TrueTwist(),
		Issued:    s.ctrl.Issued(),
		Desired:   s.ctrl.Desired(now),
		Setpoints: [2]float64{l, r},
		Phase:     s.ctrl.Phase(),
	}
}

// fatal separates a diverged plant from a failed control cycle, which the
// run records and steps past.
func fatal(err error) bool {
	var se *dynamo.StepError
	return !errors.As(err, &se) || errors.Is(err, dynamo.ErrInvalidState) || errors.Is(err, dynamo.ErrDimensionMismatch)
}

func clock(t float64) time.Time { return Epoch.Add(seconds(t)) }

func seconds(t float64) time.Duration {
	return time.Duration(math.Round(t * float64(time.Second)))
}
