package indicators

import "fmt"

// RSI calculates the Relative Strength Index with Wilder smoothing
type RSI struct {
	period int
}

// NewRSI creates a new RSI instance with the given period
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

// Calculate computes the RSI of the last price. The first average gain and
// loss are simple means over the first period changes; later changes are
// smoothed as avg = (prev*(period-1) + current) / period.
func (r *RSI) Calculate(prices []float64) (float64, error) {
	if r.period <= 0 || len(prices) < r.period+1 {
		return 0, fmt.Errorf("RSI(%d) over %d prices: %w", r.period, len(prices), ErrInsufficientData)
	}

	var avgGain, avgLoss float64
	for i := 1; i <= r.period; i++ {
		gain, loss := splitChange(prices[i] - prices[i-1])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= float64(r.period)
	avgLoss /= float64(r.period)

	n := float64(r.period)
	for i := r.period + 1; i < len(prices); i++ {
		gain, loss := splitChange(prices[i] - prices[i-1])
		avgGain = (avgGain*(n-1) + gain) / n
		avgLoss = (avgLoss*(n-1) + loss) / n
	}

	switch {
	case avgLoss == 0 && avgGain == 0:
		return 50, nil
	case avgLoss == 0:
		return 100, nil
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), nil
}

func splitChange(change float64) (gain, loss float64) {
	if change > 0 {
		return change, 0
	}
	return 0, -change
}

// GetName returns the indicator name
func (r *RSI) GetName() string {
	return fmt.Sprintf("RSI(%d)", r.period)
}

// GetRequiredPeriods returns the minimum number of prices needed
func (r *RSI) GetRequiredPeriods() int {
	return r.period + 1
}
