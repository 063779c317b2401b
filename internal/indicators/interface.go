package indicators

import "errors"

// ErrInsufficientData is returned when the window is shorter than the warm-up
var ErrInsufficientData = errors.New("insufficient data for indicator calculation")

// Indicator is implemented by every indicator of this package. Calculations
// are pure functions of the trailing window passed in; indicators hold only
// their parameters.
type Indicator interface {
	GetName() string
	GetRequiredPeriods() int
}
