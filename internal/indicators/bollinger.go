package indicators

import "fmt"

// Bands is one Bollinger Bands reading. PercentB is the position of the
// price within the bands: 0 at the lower band, 1 at the upper band.
type Bands struct {
	Upper    float64
	Middle   float64
	Lower    float64
	PercentB float64
}

// BollingerBands represents the Bollinger Bands indicator
type BollingerBands struct {
	period int
	stdDev float64
}

// NewBollingerBands creates a new BollingerBands instance with the given period and standard deviation multiplier
func NewBollingerBands(period int, stdDev float64) *BollingerBands {
	return &BollingerBands{
		period: period,
		stdDev: stdDev,
	}
}

// Calculate computes the bands over the last period prices using the
// population standard deviation.
func (bb *BollingerBands) Calculate(prices []float64) (Bands, error) {
	if bb.period <= 0 || len(prices) < bb.period {
		return Bands{}, fmt.Errorf("BB(%d) over %d prices: %w", bb.period, len(prices), ErrInsufficientData)
	}

	recent := prices[len(prices)-bb.period:]
	middle := Mean(recent)
	dev := StdDev(recent, middle)

	b := Bands{
		Upper:  middle + bb.stdDev*dev,
		Middle: middle,
		Lower:  middle - bb.stdDev*dev,
	}

	current := prices[len(prices)-1]
	if b.Upper == b.Lower {
		b.PercentB = 0.5
	} else {
		b.PercentB = (current - b.Lower) / (b.Upper - b.Lower)
	}
	return b, nil
}

// GetName returns the indicator name
func (bb *BollingerBands) GetName() string {
	return fmt.Sprintf("BB(%d,%.1f)", bb.period, bb.stdDev)
}

// GetRequiredPeriods returns the minimum number of periods needed
func (bb *BollingerBands) GetRequiredPeriods() int {
	return bb.period
}
