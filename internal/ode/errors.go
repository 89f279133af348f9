package ode

import "errors"

// Domain errors for integration.
var (
	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("ode: invalid state (NaN or Inf detected)")

	// ErrStepTooSmall indicates the adaptive step fell below its minimum.
	ErrStepTooSmall = errors.New("ode: adaptive timestep below minimum")

	// ErrDimensionMismatch indicates state and system dimensions disagree.
	ErrDimensionMismatch = errors.New("ode: dimension mismatch between state and system")
)
