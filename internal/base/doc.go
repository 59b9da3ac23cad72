// Package base implements a differential-drive base controller.
//
// Each control tick the [Controller] runs, in order:
//
//   - [Odometry]: integrates the wheel feedback sampled this tick into a
//     pose and twist
//   - [Lifecycle]: gates actuation on command freshness and phase
//   - [Ramp]: moves the issued twist toward the desired twist under
//     acceleration limits
//   - [Mixer]: converts the issued twist into wheel setpoints
//
// The last three run only while the controller is engaged. The odometry
// record is published after the tick.
//
// # Usage
//
//	ctrl := base.New("base_controller", params, base.WithPublisher(rec))
//	if err := ctrl.Init(joints, nil); err != nil { ... }
//	ctrl.OnCommand(base.VelocityCommand{Desired: base.Twist2D{Linear: 0.5}, ReceivedAt: now})
//	ctrl.Start(now)
//	err := ctrl.Update(now, dt)
//
// # Thread Safety
//
// OnCommand may be called from any goroutine. Every other method belongs to
// the single control goroutine.
package base
