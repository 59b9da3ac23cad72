// Package manager hosts controllers: it builds them from configuration,
// hands them their joints, serializes start requests and ticks them at a
// fixed rate on one goroutine.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/san-kum/diffbase/internal/base"
	"github.com/san-kum/diffbase/internal/config"
	"github.com/san-kum/diffbase/internal/hw"
)

// ErrUnknownController is returned for a name no loaded controller has.
var ErrUnknownController = errors.New("manager: unknown controller")

// startQueue bounds pending start requests between two ticks.
const startQueue = 16

// Controller is the contract between the manager and a hosted controller.
// Every method except the command path runs on the manager's goroutine.
type Controller interface {
	Name() string
	Init(joints hw.Lookup, requestStart func()) error
	Start(now time.Time) bool
	Update(now time.Time, elapsed time.Duration) error
	Publish(now time.Time) error
	Preempt(now time.Time, force bool) bool
	Stop(now time.Time)
	Joints() []string
}

// Commandable controllers accept velocity commands from any goroutine.
type Commandable interface {
	OnCommand(cmd base.VelocityCommand)
}

type Manager struct {
	joints   hw.Lookup
	registry *Registry
	deps     Deps
	logger   *slog.Logger
	period   time.Duration

	order       []string
	controllers map[string]Controller
	running     map[string]bool
	starts      chan string
	last        time.Time
}

func New(joints hw.Lookup, registry *Registry, deps Deps) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &Manager{
		joints:      joints,
		registry:    registry,
		deps:        deps,
		logger:      deps.Logger.With("component", "manager"),
		controllers: make(map[string]Controller),
		running:     make(map[string]bool),
		starts:      make(chan string, startQueue),
	}
}

// Load builds and initializes every configured controller. It must complete
// before Tick or Run.
func (m *Manager) Load(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		m.logger.Error("invalid configuration", "err", err)
		return err
	}
	m.period = cfg.Period()
	for _, cc := range cfg.Controllers {
		c, err := m.registry.Build(cc.Type, cc.Name, cfg, m.deps)
		if err != nil {
			m.logger.Error("cannot build controller", "name", cc.Name, "type", cc.Type, "err", err)
			return err
		}
		if err := m.Add(c); err != nil {
			return err
		}
	}
	return nil
}

// Add initializes c against the manager's joints and hosts it.
func (m *Manager) Add(c Controller) error {
	name := c.Name()
	if _, dup := m.controllers[name]; dup {
		return fmt.Errorf("controller %q already loaded", name)
	}
	if err := c.Init(m.joints, func() { m.RequestStart(name) }); err != nil {
		return fmt.Errorf("init %s: %w", name, err)
	}
	m.controllers[name] = c
	m.order = append(m.order, name)
	sort.Strings(m.order)
	m.logger.Info("loaded controller", "name", name, "joints", c.Joints())
	return nil
}

// RequestStart queues a start for name. Safe from any goroutine; a request
// made while the queue is full is dropped, and the next command repeats it.
func (m *Manager) RequestStart(name string) {
	select {
	case m.starts <- name:
	default:
		m.logger.Warn("start queue full, dropping request", "name", name)
	}
}

// Send delivers a command to the named controller.
func (m *Manager) Send(name string, linear, angular float64, now time.Time) error {
	c, ok := m.controllers[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownController, name)
	}
	cc, ok := c.(Commandable)
	if !ok {
		return fmt.Errorf("controller %s does not accept commands", name)
	}
	cc.OnCommand(base.VelocityCommand{
		Desired:    base.Twist2D{Linear: linear, Angular: angular},
		ReceivedAt: now,
	})
	return nil
}

// Tick runs one control cycle: pending starts, then update, preemption and
// publish for every controller. Preemption is polled after the update, since
// a controller that has just started has issued nothing yet. Errors from all
// controllers are joined.
func (m *Manager) Tick(now time.Time, elapsed time.Duration) error {
	m.drainStarts(now)

	var errs []error
	for _, name := range m.order {
		c := m.controllers[name]
		if err := c.Update(now, elapsed); err != nil {
			errs = append(errs, fmt.Errorf("%s: update: %w", name, err))
		}
		if m.running[name] && c.Preempt(now, false) {
			m.logger.Debug("preempting", "name", name)
			c.Stop(now)
			m.running[name] = false
		}
		if err := c.Publish(now); err != nil {
			errs = append(errs, fmt.Errorf("%s: publish: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) drainStarts(now time.Time) {
	for {
		select {
		case name := <-m.starts:
			c, ok := m.controllers[name]
			if !ok || m.running[name] {
				continue
			}
			if c.Start(now) {
				m.running[name] = true
				m.logger.Debug("started", "name", name)
			}
		default:
			return
		}
	}
}

// Run ticks on the wall clock until ctx is done. A failed tick is logged and
// the loop keeps going. On exit every running controller is stopped.
func (m *Manager) Run(ctx context.Context) error {
	period := m.period
	if period <= 0 {
		period = config.DefaultConfig().Period()
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	m.last = time.Now()
	for {
		select {
		case <-ctx.Done():
			m.StopAll(time.Now())
			return ctx.Err()
		case now := <-ticker.C:
			elapsed := now.Sub(m.last)
			m.last = now
			if err := m.Tick(now, elapsed); err != nil {
				m.logger.Warn("tick failed", "err", err)
			}
		}
	}
}

// StopAll force-preempts every running controller.
func (m *Manager) StopAll(now time.Time) {
	for _, name := range m.order {
		if !m.running[name] {
			continue
		}
		c := m.controllers[name]
		c.Preempt(now, true)
		c.Stop(now)
		m.running[name] = false
	}
}

func (m *Manager) Controller(name string) (Controller, error) {
	c, ok := m.controllers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownController, name)
	}
	return c, nil
}

func (m *Manager) Names() []string {
	return append([]string(nil), m.order...)
}

func (m *Manager) Running(name string) bool { return m.running[name] }

func (m *Manager) Period() time.Duration { return m.period }

var _ Controller = (*base.Controller)(nil)
var _ Commandable = (*base.Controller)(nil)
