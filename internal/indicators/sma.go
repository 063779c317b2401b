package indicators

import (
	"fmt"
	"math"
)

// SMA represents the Simple Moving Average technical indicator
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

// Calculate returns the mean of the last period values
func (s *SMA) Calculate(values []float64) (float64, error) {
	if s.period <= 0 || len(values) < s.period {
		return 0, fmt.Errorf("SMA(%d) over %d values: %w", s.period, len(values), ErrInsufficientData)
	}
	return Mean(values[len(values)-s.period:]), nil
}

// GetName returns the indicator name
func (s *SMA) GetName() string {
	return fmt.Sprintf("SMA(%d)", s.period)
}

// GetRequiredPeriods returns the minimum number of periods needed
func (s *SMA) GetRequiredPeriods() int {
	return s.period
}

// Mean returns the arithmetic mean, 0 for an empty slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation around mean
func StdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
