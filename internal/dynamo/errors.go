package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidConfig indicates a run configuration that cannot be executed.
	ErrInvalidConfig = errors.New("dilasim: invalid run configuration")

	// ErrLengthMismatch indicates two particle sets of different sizes were compared.
	ErrLengthMismatch = errors.New("dilasim: particle count mismatch")

	// ErrBackend indicates the parallel backend failed to execute a step.
	ErrBackend = errors.New("dilasim: compute backend failure")

	// ErrInvalidState indicates a particle diverged to NaN or Inf.
	ErrInvalidState = errors.New("dilasim: invalid particle state (NaN or Inf detected)")
)

// RunError wraps a failure with the step it happened on. A failed step
// invalidates the whole run.
type RunError struct {
	Step    int
	Wrapped error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("step %d: %v", e.Step, e.Wrapped)
}

func (e *RunError) Unwrap() error {
	return e.Wrapped
}
