package indicators

import "fmt"

// MACDValue is one point of the MACD indicator
type MACDValue struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD computes EMA(fast) - EMA(slow) with an EMA signal line
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD creates a new MACD instance with specified fast, slow, and signal periods
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fastPeriod:   fast,
		slowPeriod:   slow,
		signalPeriod: signal,
	}
}

// Series returns MACD points from the first index where the signal line is
// defined to the last price.
func (m *MACD) Series(prices []float64) ([]MACDValue, error) {
	if m.fastPeriod <= 0 || m.fastPeriod >= m.slowPeriod || m.signalPeriod <= 0 {
		return nil, fmt.Errorf("MACD(%d,%d,%d): invalid periods", m.fastPeriod, m.slowPeriod, m.signalPeriod)
	}
	if len(prices) < m.GetRequiredPeriods() {
		return nil, fmt.Errorf("MACD(%d,%d,%d) over %d prices: %w",
			m.fastPeriod, m.slowPeriod, m.signalPeriod, len(prices), ErrInsufficientData)
	}

	fast, err := NewEMA(m.fastPeriod).Series(prices)
	if err != nil {
		return nil, err
	}
	slow, err := NewEMA(m.slowPeriod).Series(prices)
	if err != nil {
		return nil, err
	}

	// align both series on input index: fast[i-(fast-1)], slow[i-(slow-1)]
	offset := m.slowPeriod - m.fastPeriod
	line := make([]float64, len(slow))
	for j := range slow {
		line[j] = fast[j+offset] - slow[j]
	}

	signal, err := NewEMA(m.signalPeriod).Series(line)
	if err != nil {
		return nil, err
	}

	out := make([]MACDValue, len(signal))
	for j := range signal {
		v := line[j+m.signalPeriod-1]
		out[j] = MACDValue{MACD: v, Signal: signal[j], Histogram: v - signal[j]}
	}
	return out, nil
}

// Calculate returns the MACD point of the last price
func (m *MACD) Calculate(prices []float64) (MACDValue, error) {
	series, err := m.Series(prices)
	if err != nil {
		return MACDValue{}, err
	}
	return series[len(series)-1], nil
}

// BullishCrossover reports the MACD line crossing the signal line from below
func BullishCrossover(prev, curr MACDValue) bool {
	return prev.MACD <= prev.Signal && curr.MACD > curr.Signal
}

// BearishCrossover reports the MACD line crossing the signal line from above
func BearishCrossover(prev, curr MACDValue) bool {
	return prev.MACD >= prev.Signal && curr.MACD < curr.Signal
}

// GetName returns the indicator name
func (m *MACD) GetName() string {
	return fmt.Sprintf("MACD(%d,%d,%d)", m.fastPeriod, m.slowPeriod, m.signalPeriod)
}

// GetRequiredPeriods returns the number of prices for the first signal point
func (m *MACD) GetRequiredPeriods() int {
	return m.slowPeriod + m.signalPeriod - 1
}
