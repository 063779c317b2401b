package backtest

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bterrors "github.com/ducminhle1904/btc-strategy-backtest/internal/errors"
	"github.com/ducminhle1904/btc-strategy-backtest/internal/monitoring"
	"github.com/ducminhle1904/btc-strategy-backtest/internal/strategy"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

func scenarioGrid() config.GridConfig {
	return config.GridConfig{
		GridSpacing:      5,
		GridLevels:       3,
		BaseOrderSize:    1,
		MartingaleFactor: 1,
		MaxPosition:      10,
		TakeProfitPct:    0.05,
		Rebase:           config.RebaseOnLiquidation,
	}
}

func newGrid(t *testing.T, cfg config.GridConfig) *strategy.GridStrategy {
	t.Helper()
	s, err := strategy.NewGridStrategy(cfg, nil)
	require.NoError(t, err)
	return s
}

func TestBacktestEngine_GridScenario(t *testing.T) {
	engine := NewBacktestEngine(testConfig(1000, 0, 0))

	res, err := engine.Run(context.Background(), newGrid(t, scenarioGrid()), testBars(100, 95, 90, 95, 100))
	require.NoError(t, err)

	require.Len(t, res.Equity, 5, "one equity point per bar")
	equity := make([]float64, len(res.Equity))
	for i, p := range res.Equity {
		equity[i] = p.Equity()
	}
	assert.InDeltaSlice(t, []float64{1000, 1000, 995, 1005, 1010}, equity, 1e-9)

	require.Len(t, res.Trades, 2)
	assert.Empty(t, res.Skipped)
	assert.InDelta(t, 1010.0, res.FinalCash, 1e-9)
	assert.Equal(t, 0.0, res.FinalHoldings)

	assert.InDelta(t, 0.01, res.Report.TotalReturn, 1e-12)
	assert.InDelta(t, 0.005, res.Report.MaxDrawdown, 1e-12)
	assert.Equal(t, 1.0, res.Report.WinRate)
	assert.Equal(t, 2, res.Report.TradeCount)
	assert.Contains(t, res.Summary(), "grid BTCUSDT")
}

func TestBacktestEngine_RejectedIntentsAreSkipped(t *testing.T) {
	metrics := monitoring.NewMetrics()
	engine := NewBacktestEngine(testConfig(100, 0, 0), WithMetrics(metrics))

	cfg := scenarioGrid()
	cfg.TakeProfitPct = 0.5
	s := newGrid(t, cfg)

	res, err := engine.Run(context.Background(), s, testBars(100, 95, 90, 85))
	require.NoError(t, err)

	// 95 fills, 90 and 85 exceed the remaining cash
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, 90.0, res.Skipped[0].Intent.Price)
	assert.Contains(t, res.Skipped[0].Reason, "insufficient cash")
	assert.Equal(t, 1, s.OpenCount())
	assert.InDelta(t, 5.0, res.FinalCash, 1e-9)

	expected := `
# HELP backtest_orders_rejected_total Total number of intents rejected by the simulator
# TYPE backtest_orders_rejected_total counter
backtest_orders_rejected_total{strategy="grid"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(expected), "backtest_orders_rejected_total"))
}

func TestBacktestEngine_EmptyBars(t *testing.T) {
	engine := NewBacktestEngine(testConfig(1000, 0, 0))
	_, err := engine.Run(context.Background(), newGrid(t, scenarioGrid()), nil)
	assert.ErrorIs(t, err, bterrors.ErrDataUnavailable)
}

func TestBacktestEngine_UnorderedBars(t *testing.T) {
	engine := NewBacktestEngine(testConfig(1000, 0, 0))
	bars := testBars(100, 95)
	bars[1].Timestamp = bars[0].Timestamp

	s := newGrid(t, scenarioGrid())
	_, err := engine.Run(context.Background(), s, bars)
	assert.ErrorIs(t, err, bterrors.ErrDataUnavailable)
	assert.Equal(t, 0, s.Stats().BarsProcessed)
}

func TestBacktestEngine_Cancelled(t *testing.T) {
	engine := NewBacktestEngine(testConfig(1000, 0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Run(ctx, newGrid(t, scenarioGrid()), testBars(100, 95))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBacktestEngine_Deterministic(t *testing.T) {
	bars := randomWalk(500, 7)
	engine := NewBacktestEngine(testConfig(100000, 0.001, 5))

	for _, id := range config.SupportedStrategies() {
		cfg := config.NewDefaultStrategyConfig(id)
		cfg.Grid.GridSpacing = 50

		a, err := strategy.New(id, cfg, nil)
		require.NoError(t, err)
		b, err := strategy.New(id, cfg, nil)
		require.NoError(t, err)

		ra, err := engine.Run(context.Background(), a, bars)
		require.NoError(t, err)
		rb, err := engine.Run(context.Background(), b, bars)
		require.NoError(t, err)

		assert.Equal(t, ra.Report, rb.Report, id)
		assert.Equal(t, ra.Trades, rb.Trades, id)
		assert.Len(t, ra.Equity, len(bars), id)
	}
}

// randomWalk builds a deterministic price path around 30000
func randomWalk(n int, seed uint64) []types.OHLCV {
	closes := make([]float64, n)
	price := 30000.0
	state := seed
	for i := range closes {
		state = state*6364136223846793005 + 1442695040888963407
		step := float64(int64(state>>33)%201-100) / 100 // [-1, 1]
		price *= 1 + step*0.02
		closes[i] = price
	}
	return testBars(closes...)
}
