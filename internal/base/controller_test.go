package base

import (
	"context"
	"errors"
	"io"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/diffbase/internal/hw"
	"github.com/san-kum/diffbase/internal/odom"
)

var _ = Describe("Controller", func() {
	const tick = 100 * time.Millisecond
	var (
		params      Params
		left, right *hw.Dummy
		joints      hw.Set
		recorder    *odom.Recorder
		ctrl        *Controller
		t0          time.Time
		starts      int
	)

	BeforeEach(func() {
		params = DefaultParams()
		params.TrackWidth = 0.336
		params.RadiansPerMeter = 17.5
		left = hw.NewDummy(params.LeftJoint, nil)
		right = hw.NewDummy(params.RightJoint, nil)
		joints = hw.Set{params.LeftJoint: left, params.RightJoint: right}
		recorder = odom.NewRecorder(0)
		t0 = time.Unix(5000, 0)
		starts = 0
	})

	JustBeforeEach(func() {
		ctrl = New("base", params, WithPublisher(recorder), WithBroadcaster(recorder))
	})

	initialized := func() {
		Expect(ctrl.Init(joints, func() { starts++ })).To(Succeed())
	}

	// advanceWheels moves both dummy wheels as if they tracked their last setpoint for dt.
	advanceWheels := func(dt time.Duration) {
		for _, w := range []*hw.Dummy{left, right} {
			if v, ok := w.Last(); ok {
				w.Vel = v
			}
			w.Pos += w.Vel * dt.Seconds()
		}
	}

	Describe("Init", func() {
		It("is uninitialized before Init", func() {
			Expect(ctrl.Phase()).To(Equal(PhaseUninitialized))
			Expect(ctrl.Update(t0, tick)).To(MatchError(ErrNotInitialized))
			Expect(ctrl.Start(t0)).To(BeFalse())
			Expect(ctrl.Pose()).To(Equal(Pose2D{}))
			Expect(ctrl.Twist()).To(Equal(Twist2D{}))
			Expect(ctrl.Issued()).To(Equal(Twist2D{}))
		})

		Context("with a zero track width", func() {
			BeforeEach(func() { params.TrackWidth = 0 })

			It("refuses to initialize", func() {
				Expect(ctrl.Init(joints, nil)).To(MatchError(ErrInvalidConfig))
				Expect(ctrl.Phase()).To(Equal(PhaseUninitialized))
			})
		})

		It("fails when a wheel joint is missing", func() {
			delete(joints, params.RightJoint)
			err := ctrl.Init(joints, nil)
			Expect(errors.Is(err, ErrMissingJoint)).To(BeTrue())
		})

		It("primes odometry from the current wheel positions", func() {
			left.Pos, right.Pos = 3, 3
			initialized()
			Expect(ctrl.Phase()).To(Equal(PhaseIdle))
			Expect(ctrl.Update(t0, tick)).To(Succeed())
			Expect(ctrl.Pose()).To(Equal(Pose2D{}))
		})

		Context("on a serial board", func() {
			var (
				feed   *io.PipeWriter
				board  *hw.Board
				cancel context.CancelFunc
			)

			BeforeEach(func() {
				var r *io.PipeReader
				r, feed = io.Pipe()
				board = hw.NewBoard(boardPort{r}, nil)
				var ctx context.Context
				ctx, cancel = context.WithCancel(context.Background())
				board.Start(ctx)
				joints = board.Joints(params.LeftJoint, params.RightJoint)
			})

			AfterEach(func() { cancel() })

			It("refuses to initialize before the first encoder frame", func() {
				Expect(ctrl.Init(joints, nil)).To(MatchError(ErrInvalidFeedback))
				Expect(ctrl.Phase()).To(Equal(PhaseUninitialized))
			})

			It("primes from the first frame so stationary wheels stay at the origin", func() {
				go func() { _, _ = io.WriteString(feed, "E 350 350 0 0\n") }()
				Expect(board.WaitFirstFrame(context.Background(), time.Second)).To(Succeed())
				initialized()
				Expect(ctrl.Update(t0, tick)).To(Succeed())
				Expect(ctrl.Pose()).To(Equal(Pose2D{}))
			})
		})
	})

	Describe("commands", func() {
		It("ignores commands before Init", func() {
			ctrl.OnCommand(VelocityCommand{Desired: Twist2D{Linear: 0.5}, ReceivedAt: t0})
			initialized()
			Expect(ctrl.Start(t0)).To(BeFalse())
			Expect(starts).To(Equal(0))
		})

		It("requests a start and clamps to the velocity limits", func() {
			initialized()
			ctrl.OnCommand(VelocityCommand{Desired: Twist2D{Linear: 9, Angular: -9}, ReceivedAt: t0})
			Expect(starts).To(Equal(1))
			Expect(ctrl.Start(t0)).To(BeTrue())
			Expect(ctrl.Desired(t0)).To(Equal(Twist2D{Linear: params.MaxLinearVelocity, Angular: -params.MaxAngularVelocity}))
		})

		It("drops non-finite commands", func() {
			initialized()
			ctrl.OnCommand(VelocityCommand{Desired: Twist2D{Linear: math.NaN()}, ReceivedAt: t0})
			Expect(starts).To(Equal(0))
			Expect(ctrl.Start(t0)).To(BeFalse())
		})
	})

	Describe("running", func() {
		JustBeforeEach(func() {
			initialized()
			ctrl.OnCommand(VelocityCommand{Desired: Twist2D{Linear: 0.5}, ReceivedAt: t0})
			Expect(ctrl.Start(t0)).To(BeTrue())
		})

		It("ramps the issued twist and writes mixed setpoints", func() {
			Expect(ctrl.Update(t0.Add(tick), tick)).To(Succeed())
			Expect(ctrl.Issued().Linear).To(BeNumerically("~", 0.075, 1e-12))
			l, r := Mix(ctrl.Issued(), params.TrackWidth, params.RadiansPerMeter)
			Expect(lastSetpoint(left)).To(BeNumerically("~", l, 1e-12))
			Expect(lastSetpoint(right)).To(BeNumerically("~", r, 1e-12))
		})

		It("does not write while idle and still", func() {
			ctrl.Stop(t0)
			Expect(ctrl.Update(t0.Add(tick), tick)).To(Succeed())
			Expect(left.Setpoints).To(BeEmpty())
		})

		It("ramps down instead of stopping dead when the command goes stale", func() {
			now := t0
			for i := 0; i < 2; i++ {
				now = now.Add(tick)
				ctrl.OnCommand(VelocityCommand{Desired: Twist2D{Linear: 0.5}, ReceivedAt: now})
				Expect(ctrl.Update(now, tick)).To(Succeed())
				advanceWheels(tick)
			}
			peak := ctrl.Issued().Linear
			Expect(peak).To(BeNumerically("~", 0.15, 1e-12))

			now = now.Add(params.CommandTimeout)
			Expect(ctrl.Preempt(now, false)).To(BeTrue())
			ctrl.Stop(now)
			Expect(ctrl.Phase()).To(Equal(PhaseStopped))

			var seen []float64
			for i := 0; i < 5; i++ {
				now = now.Add(tick)
				Expect(ctrl.Update(now, tick)).To(Succeed())
				advanceWheels(tick)
				seen = append(seen, ctrl.Issued().Linear)
			}
			Expect(seen[0]).To(BeNumerically("~", peak-0.075, 1e-12))
			Expect(seen[1]).To(BeNumerically("~", 0, 1e-12))
			Expect(ctrl.Issued().IsZero()).To(BeTrue())
			Expect(lastSetpoint(left)).To(BeNumerically("~", 0, 1e-12))
		})

		It("fails the tick on an actuator error but still integrates odometry", func() {
			left.Fail = errors.New("driver fault")
			right.Pos = 1.75
			left.Pos = 1.75
			err := ctrl.Update(t0.Add(tick), tick)
			Expect(errors.Is(err, ErrActuation)).To(BeTrue())
			Expect(ctrl.Pose().X).To(BeNumerically("~", 0.1, 1e-12))
		})

		It("fails the tick on NaN feedback and keeps the pose", func() {
			left.Pos, right.Pos = 1.75, 1.75
			Expect(ctrl.Update(t0.Add(tick), tick)).To(Succeed())
			before := ctrl.Pose()

			left.Pos = math.NaN()
			err := ctrl.Update(t0.Add(2*tick), tick)
			Expect(errors.Is(err, ErrInvalidFeedback)).To(BeTrue())
			Expect(ctrl.Pose()).To(Equal(before))
		})
	})

	Describe("Publish", func() {
		It("sends a record with the yaw quaternion and the transform", func() {
			initialized()
			left.Pos, right.Pos = -1, 1
			Expect(ctrl.Update(t0, tick)).To(Succeed())
			Expect(ctrl.Publish(t0)).To(Succeed())

			rec, ok := recorder.Last()
			Expect(ok).To(BeTrue())
			theta := 2 / params.RadiansPerMeter / params.TrackWidth
			Expect(rec.Theta).To(BeNumerically("~", theta, 1e-12))
			Expect(rec.Orientation.Z).To(BeNumerically("~", math.Sin(theta/2), 1e-12))
			Expect(rec.Orientation.W).To(BeNumerically("~", math.Cos(theta/2), 1e-12))
			Expect(rec.Frame).To(Equal("odom"))
			Expect(rec.ChildFrame).To(Equal("base_link"))
			Expect(recorder.Transforms).To(HaveLen(1))
		})

		Context("without transform publishing", func() {
			BeforeEach(func() { params.PublishTransform = false })

			It("sends only the record", func() {
				initialized()
				Expect(ctrl.Publish(t0)).To(Succeed())
				Expect(recorder.Records).To(HaveLen(1))
				Expect(recorder.Transforms).To(BeEmpty())
			})
		})
	})
})

func lastSetpoint(d *hw.Dummy) float64 {
	v, ok := d.Last()
	Expect(ok).To(BeTrue(), "no setpoint written to %s", d.Name)
	return v
}

// boardPort is a serial port whose output is fed through a pipe and whose
// input is discarded.
type boardPort struct{ *io.PipeReader }

func (boardPort) Write(b []byte) (int, error) { return len(b), nil }
