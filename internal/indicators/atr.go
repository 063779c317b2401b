package indicators

import (
	"fmt"
	"math"

	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

// ATR represents the Average True Range technical indicator
type ATR struct {
	period int
}

// NewATR creates a new ATR indicator
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

// Calculate returns the ATR of the last bar with Wilder smoothing. The first
// average is the mean of the first period true ranges; the first bar only
// provides the previous close.
func (a *ATR) Calculate(bars []types.OHLCV) (float64, error) {
	if a.period <= 0 || len(bars) < a.period+1 {
		return 0, fmt.Errorf("ATR(%d) over %d bars: %w", a.period, len(bars), ErrInsufficientData)
	}

	atr := 0.0
	for i := 1; i <= a.period; i++ {
		atr += TrueRange(bars[i], bars[i-1].Close)
	}
	atr /= float64(a.period)

	n := float64(a.period)
	for i := a.period + 1; i < len(bars); i++ {
		atr = (atr*(n-1) + TrueRange(bars[i], bars[i-1].Close)) / n
	}
	return atr, nil
}

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|)
func TrueRange(bar types.OHLCV, prevClose float64) float64 {
	hl := bar.High - bar.Low
	hc := math.Abs(bar.High - prevClose)
	lc := math.Abs(bar.Low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}

// GetName returns the indicator name
func (a *ATR) GetName() string {
	return fmt.Sprintf("ATR(%d)", a.period)
}

// GetRequiredPeriods returns the minimum number of bars needed
func (a *ATR) GetRequiredPeriods() int {
	return a.period + 1
}
