package billing

import "errors"

// ErrNoElectricityData is returned when a shared electricity run is asked
// of a period without captured meter parameters.
var ErrNoElectricityData = errors.New("billing: period has no electricity readings")
