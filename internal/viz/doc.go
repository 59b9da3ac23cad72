// Package viz draws the simulated base in the terminal.
//
// The package implements a live teleop view using the Bubble Tea framework
// and static plots of stored runs:
//
//   - [Model]: live view driving the simulator from the keyboard or a preset
//   - [Menu]: preset picker that opens a live view
//   - [Canvas]: Braille-based pixel canvas for the trajectory
//   - [PlotSeries] and [Trajectory]: static renderings for the CLI
//
// # Key Bindings
//
//	↑/↓   - Linear velocity command (±0.1 m/s)
//	←/→   - Angular velocity command (±0.5 rad/s)
//	S     - Command zero
//	H     - Stop sending commands; the base ramps down on timeout
//	Space - Pause/Resume
//	R     - Reset
//	Q     - Quit
package viz
