// Package dynamo provides the numerical primitives behind the simulated base.
//
// The package defines the vector and interface types shared by the plant and
// its integrators:
//
//   - [State]: vector representing plant state
//   - [Control]: vector of actuator inputs, here wheel setpoints
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepper interface
//
// # Example
//
//	sys := plant.NewDiffDrive(0.336, 17.5, 0.08)
//	integ := integrators.NewRK4()
//	x = integ.Step(sys, x, u, t, dt)
package dynamo
