package period

import "errors"

var (
	// ErrPeriodNotFound is returned when a period id resolves to nothing.
	ErrPeriodNotFound = errors.New("period: not found")
	// ErrPeriodClosed is returned when mutating or billing a closed period.
	ErrPeriodClosed = errors.New("period: closed")
	// ErrStartNotFirstOfMonth is returned when a start date is not the first day of a month.
	ErrStartNotFirstOfMonth = errors.New("period: start date must be the first day of the month")
	// ErrMonthsOutOfRange is returned when the month count is outside 1..12.
	ErrMonthsOutOfRange = errors.New("period: period months must be between 1 and 12")
)
