package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bterrors "github.com/ducminhle1904/btc-strategy-backtest/internal/errors"
	"github.com/ducminhle1904/btc-strategy-backtest/internal/monitoring"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
)

func compareSpecs() []RunSpec {
	wide := gridStrategyConfig()
	wide.Grid.TakeProfitPct = 0.12

	broken := gridStrategyConfig()
	broken.Grid.GridLevels = 0

	return []RunSpec{
		{Name: "grid-wide", StrategyID: config.StrategyGrid, Config: wide},
		{Name: "grid-broken", StrategyID: config.StrategyGrid, Config: broken},
		{Name: "grid-tight", StrategyID: config.StrategyGrid, Config: gridStrategyConfig()},
		{Name: "rsi", StrategyID: config.StrategyRSI, Config: config.NewDefaultStrategyConfig(config.StrategyRSI)},
	}
}

func TestCompare_RanksAndIsolatesFailures(t *testing.T) {
	health := monitoring.NewHealthChecker()
	opts := CompareOptions{Backtest: testConfig(1000, 0, 0), Workers: 2, Health: health}

	results, err := Compare(context.Background(), testBars(100, 95, 90, 95, 100), compareSpecs(), opts)
	require.NoError(t, err)
	require.Len(t, results, 4)

	// tight: +10 realized; rsi: flat; wide: 2 units marked at 100 vs 92.5 cost
	assert.Equal(t, "grid-wide", results[0].Name)
	assert.InDelta(t, 0.015, results[0].Report.TotalReturn, 1e-12)
	assert.Equal(t, "grid-tight", results[1].Name)
	assert.Equal(t, "rsi", results[2].Name)

	assert.Equal(t, "grid-broken", results[3].Name)
	assert.True(t, results[3].Failed())
	assert.ErrorIs(t, results[3].Err, bterrors.ErrConfigInvalid)

	for i, r := range results[:3] {
		assert.Equal(t, i+1, r.Rank)
		assert.NoError(t, r.Err)
		assert.NotEmpty(t, r.RunID)
	}
	assert.Equal(t, 0, results[3].Rank)

	snap := health.Snapshot()
	assert.Equal(t, 3, snap.Completed)
	assert.Equal(t, 1, snap.Failed)
}

func TestCompare_RankByDrawdownAscending(t *testing.T) {
	opts := CompareOptions{Backtest: testConfig(1000, 0, 0), RankBy: RankMaxDrawdown}

	results, err := Compare(context.Background(), testBars(100, 95, 90, 95, 100), compareSpecs(), opts)
	require.NoError(t, err)

	// rsi never trades so it has no drawdown
	assert.Equal(t, "rsi", results[0].Name)
	for i := 1; i < 3; i++ {
		assert.LessOrEqual(t, results[i-1].Report.MaxDrawdown, results[i].Report.MaxDrawdown)
	}
	assert.True(t, results[3].Failed())
}

func TestCompare_Idempotent(t *testing.T) {
	bars := randomWalk(300, 11)
	specs := make([]RunSpec, 0)
	for _, id := range config.SupportedStrategies() {
		cfg := config.NewDefaultStrategyConfig(id)
		cfg.Grid.GridSpacing = 100
		specs = append(specs, RunSpec{Name: id, StrategyID: id, Config: cfg})
	}
	opts := CompareOptions{Backtest: testConfig(100000, 0.001, 2), Workers: 4}

	first, err := Compare(context.Background(), bars, specs, opts)
	require.NoError(t, err)
	second, err := Compare(context.Background(), bars, specs, opts)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Name, second[i].Name)
		assert.Equal(t, first[i].Rank, second[i].Rank)
		assert.Equal(t, first[i].Report, second[i].Report)
		assert.NotEqual(t, first[i].RunID, second[i].RunID)
	}
}

func TestCompare_InvalidOptions(t *testing.T) {
	_, err := Compare(context.Background(), testBars(100), compareSpecs(), CompareOptions{Backtest: testConfig(1000, 0, 0), RankBy: "luck"})
	assert.ErrorIs(t, err, bterrors.ErrConfigInvalid)

	_, err = Compare(context.Background(), testBars(100), compareSpecs(), CompareOptions{Backtest: testConfig(-1, 0, 0)})
	assert.ErrorIs(t, err, bterrors.ErrConfigInvalid)
}

func TestCompare_EmptyBarsFailEveryRun(t *testing.T) {
	results, err := Compare(context.Background(), nil, compareSpecs()[:1], CompareOptions{Backtest: testConfig(1000, 0, 0)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, bterrors.ErrDataUnavailable)
}

func TestCompare_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := Compare(ctx, randomWalk(50, 3), compareSpecs(), CompareOptions{Backtest: testConfig(1000, 0, 0)})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 4)
	for _, r := range results {
		assert.True(t, r.Failed(), r.Name)
		if r.Name == "grid-broken" {
			assert.ErrorIs(t, r.Err, bterrors.ErrConfigInvalid)
		} else {
			assert.ErrorIs(t, r.Err, context.Canceled, r.Name)
		}
	}
}

func TestRank_TiesBrokenByName(t *testing.T) {
	results := []RunResult{
		{Name: "b", Report: PerformanceReport{TotalReturn: 0.1}},
		{Name: "failed", Err: bterrors.ConfigInvalid("test", "boom")},
		{Name: "a", Report: PerformanceReport{TotalReturn: 0.1}},
		{Name: "c", Report: PerformanceReport{TotalReturn: 0.2}},
	}

	Rank(results, RankTotalReturn)

	names := []string{results[0].Name, results[1].Name, results[2].Name, results[3].Name}
	assert.Equal(t, []string{"c", "a", "b", "failed"}, names)
	assert.Equal(t, []int{1, 2, 3, 0}, []int{results[0].Rank, results[1].Rank, results[2].Rank, results[3].Rank})
}

func TestParameterOptimizer_Grid(t *testing.T) {
	opt := NewParameterOptimizer(testBars(100, 95, 90, 95, 100), CompareOptions{Backtest: testConfig(1000, 0, 0)})

	res, err := opt.OptimizeGrid(context.Background(), scenarioGrid(), []float64{5, 20}, []int{1, 3})
	require.NoError(t, err)
	require.Len(t, res.All, 4)
	assert.Equal(t, 1, res.Best.Rank)
	assert.Contains(t, res.Best.Name, "grid-s5-")
	assert.Equal(t, 5.0, res.BestConfig.Grid.GridSpacing)

	_, err = opt.OptimizeRSI(context.Background(), config.NewDefaultRSIConfig(), nil, nil)
	assert.ErrorIs(t, err, bterrors.ErrConfigInvalid)
}
