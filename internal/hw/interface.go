// Package hw defines the actuation boundary the base controller drives.
//
// A [Joint] is one wheel: it reports cumulative position and velocity and
// accepts a velocity setpoint. Controllers look joints up by name through a
// [Lookup]; concrete backends are the serial [Board], the simulated plant in
// package plant, and [Dummy] for dry runs.
package hw

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownJoint = errors.New("hw: unknown joint")

type Joint interface {
	// Position returns cumulative wheel rotation in radians.
	Position() float64
	// Velocity returns wheel angular velocity in rad/s.
	Velocity() float64
	// SetVelocity commands a wheel angular velocity in rad/s. It must not block
	// on I/O for longer than a bounded write.
	SetVelocity(radPerSec float64) error
}

// Readier is implemented by joints whose position is not known until the
// hardware reports it.
type Readier interface {
	Ready() error
}

// CheckReady returns the first Ready error among joints that implement Readier.
func CheckReady(joints ...Joint) error {
	for _, j := range joints {
		if r, ok := j.(Readier); ok {
			if err := r.Ready(); err != nil {
				return err
			}
		}
	}
	return nil
}

type Lookup interface {
	Joint(name string) (Joint, error)
}

// Set is a static name to joint table.
type Set map[string]Joint

func (s Set) Joint(name string) (Joint, error) {
	j, ok := s[name]
	if !ok || j == nil {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownJoint, name, s.Names())
	}
	return j, nil
}

func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var _ Lookup = Set(nil)
