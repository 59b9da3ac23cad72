package base

import (
	"sync/atomic"
	"time"
)

// Lifecycle tracks command freshness and the controller phase.
//
// The command cell is written by OnCommand from any goroutine and read by the
// control goroutine; it is the only shared state. The phase belongs to the
// control goroutine.
type Lifecycle struct {
	timeout time.Duration
	cmd     atomic.Pointer[VelocityCommand]
	phase   Phase
}

func NewLifecycle(timeout time.Duration) *Lifecycle {
	return &Lifecycle{timeout: timeout, phase: PhaseIdle}
}

func (l *Lifecycle) Timeout() time.Duration { return l.timeout }

// OnCommand replaces the latest command. It does not change the phase.
func (l *Lifecycle) OnCommand(cmd VelocityCommand) {
	l.cmd.Store(&cmd)
}

// Latest returns the most recent command, if any.
func (l *Lifecycle) Latest() (VelocityCommand, bool) {
	p := l.cmd.Load()
	if p == nil {
		return VelocityCommand{}, false
	}
	return *p, true
}

// TimedOut reports whether the latest command is at least timeout old at now.
// No command at all counts as timed out.
func (l *Lifecycle) TimedOut(now time.Time) bool {
	cmd, ok := l.Latest()
	if !ok {
		return true
	}
	return now.Sub(cmd.ReceivedAt) >= l.timeout
}

// Start moves to Running if a fresh command exists. Starting while already
// running succeeds without side effects.
func (l *Lifecycle) Start(now time.Time) bool {
	if l.TimedOut(now) {
		return false
	}
	l.phase = PhaseRunning
	return true
}

// ShouldPreempt reports whether control should be relinquished: the command
// has timed out, nothing is being issued, or the caller forces it.
func (l *Lifecycle) ShouldPreempt(now time.Time, lastIssued Twist2D, forced bool) bool {
	if l.TimedOut(now) {
		return true
	}
	if lastIssued.IsZero() {
		return true
	}
	return forced
}

// Desired is the twist the ramp should chase this tick: the latest command
// while running and fresh, zero otherwise.
func (l *Lifecycle) Desired(now time.Time) Twist2D {
	if l.phase != PhaseRunning || l.TimedOut(now) {
		return Twist2D{}
	}
	cmd, _ := l.Latest()
	return cmd.Desired
}

func (l *Lifecycle) Stop() {
	if l.phase == PhaseRunning {
		l.phase = PhaseStopped
	}
}

func (l *Lifecycle) Phase() Phase { return l.phase }
