package base

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/diffbase/internal/hw"
)

func TestMixInverse(t *testing.T) {
	for _, v := range []float64{-1, -0.25, 0, 0.3, 1} {
		for _, w := range []float64{-4.5, -1, 0, 0.7, 3} {
			l, r := Mix(Twist2D{Linear: v, Angular: w}, testTrack, testRPM)
			l, r = l/testRPM, r/testRPM
			forward := (l + r) / 2
			turn := (r - l) / testTrack
			if math.Abs(forward-v) > 1e-12 || math.Abs(turn-w) > 1e-12 {
				t.Errorf("(%g, %g) came back as (%g, %g)", v, w, forward, turn)
			}
		}
	}
}

func TestMixerGate(t *testing.T) {
	tests := []struct {
		name     string
		issued   Twist2D
		measured Twist2D
		write    bool
	}{
		{"idle and still", Twist2D{}, Twist2D{}, false},
		{"idle within threshold", Twist2D{}, Twist2D{Linear: 0.04, Angular: -0.05}, false},
		{"idle but coasting", Twist2D{}, Twist2D{Linear: 0.06}, true},
		{"idle but spinning", Twist2D{}, Twist2D{Angular: -0.2}, true},
		{"issuing a tiny command", Twist2D{Linear: 0.001}, Twist2D{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left, right := hw.NewDummy("l", nil), hw.NewDummy("r", nil)
			m := NewMixer(left, right, testTrack, testRPM, 0.05)
			wrote, err := m.Write(tt.issued, tt.measured)
			if err != nil {
				t.Fatalf("write: %v", err)
			}
			if wrote != tt.write {
				t.Errorf("wrote = %v, want %v", wrote, tt.write)
			}
			if got := len(left.Setpoints) == 1 && len(right.Setpoints) == 1; got != tt.write {
				t.Errorf("setpoints left=%v right=%v", left.Setpoints, right.Setpoints)
			}
		})
	}
}

func TestMixerReportsActuationFailure(t *testing.T) {
	left, right := hw.NewDummy("l", nil), hw.NewDummy("r", nil)
	left.Fail = errors.New("bus error")
	m := NewMixer(left, right, testTrack, testRPM, 0.05)
	_, err := m.Write(Twist2D{Linear: 0.5}, Twist2D{})
	if !errors.Is(err, ErrActuation) {
		t.Fatalf("expected ErrActuation, got %v", err)
	}
	if len(right.Setpoints) != 1 {
		t.Error("right wheel should still be commanded when left fails")
	}
}

func TestMixerWritesTheFinalZero(t *testing.T) {
	left, right := hw.NewDummy("l", nil), hw.NewDummy("r", nil)
	m := NewMixer(left, right, testTrack, testRPM, 0.05)

	// Creeping below the threshold: the zero must still go out once.
	if _, err := m.Write(Twist2D{Linear: 0.01}, Twist2D{Linear: 0.01}); err != nil {
		t.Fatal(err)
	}
	if !m.Holding() {
		t.Fatal("expected the mixer to hold after a non-zero write")
	}
	wrote, err := m.Write(Twist2D{}, Twist2D{Linear: 0.01})
	if err != nil || !wrote {
		t.Fatalf("expected the zero to be written, wrote=%v err=%v", wrote, err)
	}
	if l, _ := left.Last(); l != 0 {
		t.Errorf("expected a zero setpoint, got %g", l)
	}

	wrote, _ = m.Write(Twist2D{}, Twist2D{Linear: 0.01})
	if wrote {
		t.Error("expected no further writes once zero is held")
	}
}
