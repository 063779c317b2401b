package indicators

import "fmt"

// EMA represents the Exponential Moving Average technical indicator
type EMA struct {
	period int
	alpha  float64
}

// NewEMA creates a new EMA indicator
func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1), // Standard EMA alpha calculation
	}
}

// Series returns the EMA for every value from index period-1 onwards, so
// out[j] belongs to values[j+period-1]. The first point is seeded with the
// SMA of the first period values.
func (e *EMA) Series(values []float64) ([]float64, error) {
	if e.period <= 0 || len(values) < e.period {
		return nil, fmt.Errorf("EMA(%d) over %d values: %w", e.period, len(values), ErrInsufficientData)
	}

	out := make([]float64, 0, len(values)-e.period+1)
	last := Mean(values[:e.period])
	out = append(out, last)

	// EMA = (Value * Alpha) + (Previous EMA * (1 - Alpha))
	for _, v := range values[e.period:] {
		last = v*e.alpha + last*(1-e.alpha)
		out = append(out, last)
	}
	return out, nil
}

// Calculate returns the EMA of the last value
func (e *EMA) Calculate(values []float64) (float64, error) {
	series, err := e.Series(values)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}

// GetName returns the indicator name
func (e *EMA) GetName() string {
	return fmt.Sprintf("EMA(%d)", e.period)
}

// GetRequiredPeriods returns the minimum number of periods needed
func (e *EMA) GetRequiredPeriods() int {
	return e.period
}
