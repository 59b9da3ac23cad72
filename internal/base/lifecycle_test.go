package base

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Lifecycle", func() {
	const timeout = 250 * time.Millisecond
	var (
		l  *Lifecycle
		t0 time.Time
	)

	BeforeEach(func() {
		l = NewLifecycle(timeout)
		t0 = time.Unix(1000, 0)
	})

	It("starts idle and refuses to start without a command", func() {
		Expect(l.Phase()).To(Equal(PhaseIdle))
		Expect(l.Start(t0)).To(BeFalse())
		Expect(l.Phase()).To(Equal(PhaseIdle))
	})

	It("does not change phase when a command arrives", func() {
		l.OnCommand(VelocityCommand{Desired: Twist2D{Linear: 0.3}, ReceivedAt: t0})
		Expect(l.Phase()).To(Equal(PhaseIdle))
	})

	It("starts on a fresh command and is re-entrant", func() {
		l.OnCommand(VelocityCommand{Desired: Twist2D{Linear: 0.3}, ReceivedAt: t0})
		Expect(l.Start(t0.Add(100 * time.Millisecond))).To(BeTrue())
		Expect(l.Phase()).To(Equal(PhaseRunning))
		Expect(l.Start(t0.Add(200 * time.Millisecond))).To(BeTrue())
		Expect(l.Phase()).To(Equal(PhaseRunning))
	})

	It("refuses to start on a command exactly timeout old", func() {
		l.OnCommand(VelocityCommand{Desired: Twist2D{Linear: 0.3}, ReceivedAt: t0})
		Expect(l.Start(t0.Add(timeout))).To(BeFalse())
		Expect(l.Phase()).To(Equal(PhaseIdle))
	})

	Describe("ShouldPreempt", func() {
		moving := Twist2D{Linear: 0.2}

		BeforeEach(func() {
			l.OnCommand(VelocityCommand{Desired: moving, ReceivedAt: t0})
			Expect(l.Start(t0)).To(BeTrue())
		})

		It("holds before the timeout and preempts from the timeout on", func() {
			for _, dt := range []time.Duration{0, time.Millisecond, 100 * time.Millisecond, timeout - time.Nanosecond} {
				Expect(l.ShouldPreempt(t0.Add(dt), moving, false)).To(BeFalse(), "at +%v", dt)
			}
			for _, dt := range []time.Duration{timeout, timeout + time.Nanosecond, time.Second} {
				Expect(l.ShouldPreempt(t0.Add(dt), moving, false)).To(BeTrue(), "at +%v", dt)
			}
		})

		It("preempts when nothing is being issued", func() {
			Expect(l.ShouldPreempt(t0, Twist2D{}, false)).To(BeTrue())
		})

		It("preempts when forced", func() {
			Expect(l.ShouldPreempt(t0, moving, true)).To(BeTrue())
		})
	})

	Describe("Desired", func() {
		BeforeEach(func() {
			l.OnCommand(VelocityCommand{Desired: Twist2D{Linear: 0.4, Angular: 1}, ReceivedAt: t0})
		})

		It("is zero until started", func() {
			Expect(l.Desired(t0).IsZero()).To(BeTrue())
		})

		It("follows the command while fresh and drops to zero on timeout", func() {
			Expect(l.Start(t0)).To(BeTrue())
			Expect(l.Desired(t0.Add(timeout / 2))).To(Equal(Twist2D{Linear: 0.4, Angular: 1}))
			Expect(l.Desired(t0.Add(timeout)).IsZero()).To(BeTrue())
		})

		It("is zero once stopped, and a restart picks the command back up", func() {
			Expect(l.Start(t0)).To(BeTrue())
			l.Stop()
			Expect(l.Phase()).To(Equal(PhaseStopped))
			Expect(l.Desired(t0).IsZero()).To(BeTrue())

			l.OnCommand(VelocityCommand{Desired: Twist2D{Linear: -0.1}, ReceivedAt: t0.Add(time.Second)})
			Expect(l.Start(t0.Add(time.Second))).To(BeTrue())
			Expect(l.Desired(t0.Add(time.Second))).To(Equal(Twist2D{Linear: -0.1}))
		})
	})

	It("never exposes a torn command to a concurrent reader", func() {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				v := float64(i)
				l.OnCommand(VelocityCommand{Desired: Twist2D{Linear: v, Angular: -v}, ReceivedAt: t0})
			}
		}()
		for i := 0; i < 2000; i++ {
			if cmd, ok := l.Latest(); ok {
				Expect(cmd.Desired.Angular).To(Equal(-cmd.Desired.Linear))
			}
		}
		wg.Wait()
	})
})
