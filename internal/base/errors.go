package base

import "errors"

var (
	// ErrInvalidConfig indicates geometry or limits the controller cannot run with.
	ErrInvalidConfig = errors.New("base: invalid configuration")

	// ErrMissingJoint indicates a wheel joint could not be resolved at Init.
	ErrMissingJoint = errors.New("base: missing wheel joint")

	// ErrNotInitialized indicates Update was called before a successful Init.
	ErrNotInitialized = errors.New("base: controller not initialized")

	// ErrActuation indicates a wheel setpoint write was rejected.
	ErrActuation = errors.New("base: actuation failed")

	// ErrInvalidFeedback indicates a NaN or Inf wheel sample.
	ErrInvalidFeedback = errors.New("base: invalid wheel feedback (NaN or Inf)")

	// ErrDegenerateGeometry indicates a track width too small to divide by.
	ErrDegenerateGeometry = errors.New("base: degenerate track width")
)
