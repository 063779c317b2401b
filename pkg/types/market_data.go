package types

import (
	"fmt"
	"time"
)

// OHLCV is a single bar of the feed. Bars are immutable once produced and
// ordered by strictly increasing Timestamp.
type OHLCV struct {
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks price sanity of a single bar
func (b OHLCV) Validate() error {
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return fmt.Errorf("bar %s: prices must be positive", b.Timestamp.Format(time.RFC3339))
	}
	if b.High < b.Low {
		return fmt.Errorf("bar %s: high (%.4f) below low (%.4f)", b.Timestamp.Format(time.RFC3339), b.High, b.Low)
	}
	if b.High < b.Open || b.High < b.Close || b.Low > b.Open || b.Low > b.Close {
		return fmt.Errorf("bar %s: open/close outside high-low range", b.Timestamp.Format(time.RFC3339))
	}
	return nil
}

// Closes extracts the close series of a bar window
func Closes(bars []OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// CheckSequence verifies that timestamps are strictly increasing.
func CheckSequence(bars []OHLCV) error {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Timestamp.After(bars[i-1].Timestamp) {
			return fmt.Errorf("bar %d (%s) is not after bar %d (%s)", i,
				bars[i].Timestamp.Format(time.RFC3339), i-1, bars[i-1].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}
