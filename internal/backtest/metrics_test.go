package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

func curve(values ...float64) []types.EquityPoint {
	points := make([]types.EquityPoint, len(values))
	for i, v := range values {
		points[i] = types.EquityPoint{Timestamp: testBar(i, 1).Timestamp, Cash: v}
	}
	return points
}

func TestAnalyze_FlatEquity(t *testing.T) {
	r := Analyze(nil, curve(1000, 1000, 1000), 1000, 365)

	assert.Equal(t, 0.0, r.TotalReturn)
	assert.Equal(t, 0.0, r.AnnualizedReturn)
	assert.Equal(t, 0.0, r.AnnualizedVolatility)
	assert.Equal(t, 0.0, r.SharpeRatio, "zero volatility resolves Sharpe to 0")
	assert.Equal(t, 0.0, r.SortinoRatio)
	assert.Equal(t, 0.0, r.MaxDrawdown)
	assert.Equal(t, 0.0, r.CalmarRatio)
	assert.Equal(t, 0.0, r.WinRate, "no trades resolves win rate to 0")
	assert.Equal(t, 0, r.TradeCount)
	assert.Equal(t, 3, r.BarCount)
}

func TestAnalyze_Empty(t *testing.T) {
	r := Analyze(nil, nil, 1000, 365)
	assert.Equal(t, 1000.0, r.FinalEquity)
	assert.Equal(t, 0.0, r.TotalReturn)
	assert.Equal(t, 0.0, r.AnnualizedReturn)
	assert.False(t, math.IsNaN(r.SharpeRatio))
}

func TestAnalyze_ReturnsAndDrawdown(t *testing.T) {
	r := Analyze(nil, curve(100, 110, 99, 120), 100, 252)

	assert.InDelta(t, 0.2, r.TotalReturn, 1e-12)
	assert.InDelta(t, 120.0, r.FinalEquity, 1e-12)
	assert.InDelta(t, 0.1, r.MaxDrawdown, 1e-12)

	returns := []float64{0.1, 99.0/110 - 1, 120.0/99 - 1}
	mean := (returns[0] + returns[1] + returns[2]) / 3
	variance := 0.0
	for _, x := range returns {
		variance += (x - mean) * (x - mean)
	}
	std := math.Sqrt(variance / 3)

	assert.InDelta(t, std*math.Sqrt(252), r.AnnualizedVolatility, 1e-12)
	assert.InDelta(t, mean*252/(std*math.Sqrt(252)), r.SharpeRatio, 1e-9)
	assert.Greater(t, r.SortinoRatio, 0.0)
	assert.InEpsilon(t, r.AnnualizedReturn/0.1, r.CalmarRatio, 1e-9)
}

func TestAnalyze_AnnualizedReturn(t *testing.T) {
	r := Analyze(nil, curve(100, 110), 100, 4)
	// (1.1)^(4/2) - 1
	assert.InDelta(t, 0.21, r.AnnualizedReturn, 1e-12)
}

func TestAnalyze_DrawdownBounds(t *testing.T) {
	wiped := Analyze(nil, curve(100, 50, 0), 100, 365)
	assert.Equal(t, 1.0, wiped.MaxDrawdown)
	assert.Equal(t, -1.0, wiped.TotalReturn)
	assert.Equal(t, -1.0, wiped.AnnualizedReturn)

	rising := Analyze(nil, curve(100, 101, 102, 103), 100, 365)
	assert.Equal(t, 0.0, rising.MaxDrawdown)
	assert.Equal(t, 0.0, rising.SortinoRatio, "no negative returns")
}

func TestAnalyze_TradeStats(t *testing.T) {
	trades := []types.Trade{
		{EntryPrice: 100, ExitPrice: 110, Size: 1, RealizedPnL: 10},
		{EntryPrice: 100, ExitPrice: 95, Size: 1, RealizedPnL: -5},
		{EntryPrice: 50, ExitPrice: 55, Size: 2, RealizedPnL: 10},
		{EntryPrice: 50, ExitPrice: 50, Size: 2, RealizedPnL: 0},
	}

	r := Analyze(trades, curve(1000, 1015), 1000, 365)

	assert.Equal(t, 4, r.TradeCount)
	assert.Equal(t, 2, r.WinningTrades)
	assert.Equal(t, 1, r.LosingTrades)
	assert.InDelta(t, 0.5, r.WinRate, 1e-12)
	assert.InDelta(t, (0.1-0.05+0.1+0)/4, r.AverageTradeReturn, 1e-12)
	assert.InDelta(t, 4.0, r.ProfitFactor, 1e-12)
}

func TestAnalyze_ProfitFactorWithoutLosses(t *testing.T) {
	trades := []types.Trade{{EntryPrice: 100, Size: 1, RealizedPnL: 3}}
	r := Analyze(trades, curve(100, 103), 100, 365)
	assert.Equal(t, 0.0, r.ProfitFactor)
	assert.Equal(t, 1.0, r.WinRate)
}

func TestAnalyze_Pure(t *testing.T) {
	trades := []types.Trade{{EntryPrice: 100, Size: 1, RealizedPnL: 3}}
	eq := curve(100, 97, 103)
	assert.Equal(t, Analyze(trades, eq, 100, 365), Analyze(trades, eq, 100, 365))
}
