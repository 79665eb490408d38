package motor

import (
	"errors"
	"fmt"
)

// Configuration and lifecycle errors. Validation failures wrap one of these,
// so callers can test with errors.Is.
var (
	ErrInvalidChannel      = errors.New("motor: invalid pwm channel")
	ErrInvalidPin          = errors.New("motor: invalid direction pin")
	ErrInvalidPolarity     = errors.New("motor: invalid direction polarity")
	ErrInvalidClockDivider = errors.New("motor: invalid clock divider")
	ErrInvalidRange        = errors.New("motor: invalid pwm range")
	ErrInvalidDutyOffset   = errors.New("motor: invalid duty offset")
	ErrInvalidDuty         = errors.New("motor: invalid duty cycle")
	ErrNotInitialized      = errors.New("motor: driver not initialized")
	ErrResourceConflict    = errors.New("motor: resource already in use")
)

// HardwareError reports a failed call into the peripheral layer.
type HardwareError struct {
	Op  string
	Err error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("motor: %s: %v", e.Op, e.Err)
}

func (e *HardwareError) Unwrap() error { return e.Err }
