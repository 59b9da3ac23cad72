package base

import (
	"errors"
	"math"
	"testing"
)

const (
	testTrack = 0.336
	testRPM   = 17.5
)

func TestIntegrateStraightLine(t *testing.T) {
	for _, theta0 := range []float64{0, 0.4, -2.0, math.Pi} {
		const (
			d = 0.02
			n = 50
		)
		pose := Pose2D{Theta: theta0}
		prev := WheelSample{}
		for i := 1; i <= n; i++ {
			cur := WheelSample{
				LeftPosition:  float64(i) * d * testRPM,
				RightPosition: float64(i) * d * testRPM,
			}
			pose, _ = Integrate(pose, prev, cur, testTrack, testRPM)
			prev = cur
		}
		if math.Abs(pose.X-n*d*math.Cos(theta0)) > 1e-9 || math.Abs(pose.Y-n*d*math.Sin(theta0)) > 1e-9 {
			t.Errorf("theta0 %.2f: expected (%.4f, %.4f), got (%.4f, %.4f)",
				theta0, n*d*math.Cos(theta0), n*d*math.Sin(theta0), pose.X, pose.Y)
		}
		if pose.Theta != theta0 {
			t.Errorf("theta0 %.2f: heading changed to %f", theta0, pose.Theta)
		}
	}
}

func TestIntegratePureRotation(t *testing.T) {
	const d = 0.01
	pose := Pose2D{}
	prev := WheelSample{}
	for i := 1; i <= 200; i++ {
		cur := WheelSample{
			LeftPosition:  -float64(i) * d * testRPM,
			RightPosition: float64(i) * d * testRPM,
		}
		before := pose.Theta
		pose, _ = Integrate(pose, prev, cur, testTrack, testRPM)
		if step := pose.Theta - before; math.Abs(step-2*d/testTrack) > 1e-9 {
			t.Fatalf("tick %d: heading step %f, want %f", i, step, 2*d/testTrack)
		}
		prev = cur
	}
	if math.Abs(pose.X) > 1e-9 || math.Abs(pose.Y) > 1e-9 {
		t.Errorf("position moved during pure rotation: (%g, %g)", pose.X, pose.Y)
	}
	// 200 ticks of 2d/track is well past pi; heading must not wrap.
	if pose.Theta < math.Pi {
		t.Errorf("heading should accumulate unwrapped, got %f", pose.Theta)
	}
}

func TestIntegrateTwist(t *testing.T) {
	cur := WheelSample{LeftVelocity: 7, RightVelocity: 10.5}
	_, twist := Integrate(Pose2D{}, WheelSample{}, cur, testTrack, testRPM)
	wantLinear := (7 + 10.5) / (2 * testRPM)
	wantAngular := (10.5 - 7) / (testRPM * testTrack)
	if math.Abs(twist.Linear-wantLinear) > 1e-12 || math.Abs(twist.Angular-wantAngular) > 1e-12 {
		t.Errorf("got %+v, want linear %f angular %f", twist, wantLinear, wantAngular)
	}
}

func TestOdometryRejectsNaNWithoutLosingDisplacement(t *testing.T) {
	o := NewOdometry(testTrack, testRPM, WheelSample{})
	if err := o.Update(WheelSample{LeftPosition: testRPM * 0.1, RightPosition: testRPM * 0.1}); err != nil {
		t.Fatalf("update: %v", err)
	}
	before := o.Pose()

	err := o.Update(WheelSample{LeftPosition: math.NaN(), RightPosition: testRPM * 0.2})
	if !errors.Is(err, ErrInvalidFeedback) {
		t.Fatalf("expected ErrInvalidFeedback, got %v", err)
	}
	if o.Pose() != before {
		t.Fatalf("pose changed on rejected sample: %+v -> %+v", before, o.Pose())
	}

	if err := o.Update(WheelSample{LeftPosition: testRPM * 0.3, RightPosition: testRPM * 0.3}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if math.Abs(o.Pose().X-0.3) > 1e-12 {
		t.Errorf("expected x=0.3 after recovering, got %f", o.Pose().X)
	}
}

func TestOdometryDegenerateTrack(t *testing.T) {
	o := NewOdometry(0, testRPM, WheelSample{})
	if err := o.Update(WheelSample{LeftPosition: 1}); !errors.Is(err, ErrDegenerateGeometry) {
		t.Errorf("expected ErrDegenerateGeometry, got %v", err)
	}
	if o.Pose() != (Pose2D{}) {
		t.Errorf("pose should stay at origin, got %+v", o.Pose())
	}
}
