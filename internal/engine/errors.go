package engine

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when the run's context is cancelled between
// bars. No partial result accompanies it.
var ErrCancelled = errors.New("backtest cancelled")

// InsufficientDataError signals fewer candles than the strategy's
// indicator warm-up requires.
type InsufficientDataError struct {
	Required int
	Got      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: strategy requires %d candles for warm-up, got %d", e.Required, e.Got)
}

// InvalidConfigurationError signals malformed conditions or risk
// parameters.
type InvalidConfigurationError struct {
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// ExecutionError signals an unexpected fault during replay.
type ExecutionError struct {
	Cause string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error during replay: %s", e.Cause)
}
