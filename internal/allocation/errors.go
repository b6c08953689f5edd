package allocation

import "errors"

var (
	// ErrEndBeforeStart is returned when the end reading does not exceed the start reading.
	ErrEndBeforeStart = errors.New("allocation: end reading must be greater than start reading")
	// ErrNegativeReading is returned when a meter reading is negative.
	ErrNegativeReading = errors.New("allocation: meter readings cannot be negative")
	// ErrNonPositiveFactor is returned when multiplier or rate is zero or negative.
	ErrNonPositiveFactor = errors.New("allocation: multiplier and rate must be positive")
	// ErrNegativeLoss is returned when the transmission loss ratio is negative.
	ErrNegativeLoss = errors.New("allocation: loss ratio cannot be negative")
	// ErrNegativeTotal is returned when a shared cost to distribute is negative.
	ErrNegativeTotal = errors.New("allocation: total cost cannot be negative")
)
