// Package command produces velocity commands for the base controller: timed
// script segments for simulation and text lines for teleoperation.
package command

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var ErrBadLine = errors.New("command: malformed line")

// Segment holds a constant twist over [Start, Start+Duration) seconds.
type Segment struct {
	Start    float64 `yaml:"start"`
	Duration float64 `yaml:"duration"`
	Linear   float64 `yaml:"linear"`
	Angular  float64 `yaml:"angular"`
}

func (s Segment) End() float64 { return s.Start + s.Duration }

// Script publishes the active segment's twist at a fixed rate. Outside every
// segment it publishes nothing, which is how a script exercises the command
// timeout.
type Script struct {
	Segments []Segment
	Rate     float64 // commands per second

	nextSend float64
}

func NewScript(segments []Segment, rate float64) *Script {
	sorted := append([]Segment(nil), segments...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	return &Script{Segments: sorted, Rate: rate}
}

func (s *Script) Validate() error {
	if !(s.Rate > 0) {
		return fmt.Errorf("command rate must be positive, got %g", s.Rate)
	}
	for i, seg := range s.Segments {
		if seg.Start < 0 || !(seg.Duration > 0) {
			return fmt.Errorf("segment %d: start must be >= 0 and duration > 0, got start %g duration %g", i, seg.Start, seg.Duration)
		}
		if math.IsNaN(seg.Linear) || math.IsNaN(seg.Angular) {
			return fmt.Errorf("segment %d: NaN velocity", i)
		}
	}
	return nil
}

// Active returns the segment covering t, if any. Later segments win on overlap.
func (s *Script) Active(t float64) (Segment, bool) {
	var found Segment
	ok := false
	for _, seg := range s.Segments {
		if t >= seg.Start && t < seg.End() {
			found, ok = seg, true
		}
	}
	return found, ok
}

// Due reports the twist to send at time t, if a command is due. Call it once
// per tick with non-decreasing t.
func (s *Script) Due(t float64) (linear, angular float64, ok bool) {
	seg, active := s.Active(t)
	if !active {
		return 0, 0, false
	}
	// Small slack so float tick accumulation does not skip a send.
	if t+1e-9 < s.nextSend {
		return 0, 0, false
	}
	s.nextSend = t + 1/s.Rate
	return seg.Linear, seg.Angular, true
}

// End is the time the last segment finishes.
func (s *Script) End() float64 {
	end := 0.0
	for _, seg := range s.Segments {
		end = math.Max(end, seg.End())
	}
	return end
}

func (s *Script) Reset() { s.nextSend = 0 }

// ParseLine reads a teleop line "<linear> <angular>". A lone "stop" or "s"
// is the zero twist.
func ParseLine(line string) (linear, angular float64, err error) {
	fields := strings.Fields(line)
	if len(fields) == 1 && (fields[0] == "stop" || fields[0] == "s") {
		return 0, 0, nil
	}
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("%w: want \"<linear> <angular>\", got %q", ErrBadLine, line)
	}
	linear, err = strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: linear: %v", ErrBadLine, err)
	}
	angular, err = strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: angular: %v", ErrBadLine, err)
	}
	return linear, angular, nil
}
