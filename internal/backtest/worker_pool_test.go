package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/btc-strategy-backtest/internal/monitoring"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

// explodingStrategy panics on the first bar
type explodingStrategy struct{}

func (explodingStrategy) Name() string                     { return "exploding" }
func (explodingStrategy) OnBar(types.OHLCV) []types.Intent { panic("indicator window out of range") }
func (explodingStrategy) OnFill(types.Fill)                {}
func (explodingStrategy) OnReject(types.Intent, error)     {}
func (explodingStrategy) Trades() []types.Trade            { return nil }

func TestWorkerPool_RecoversPanickingRun(t *testing.T) {
	health := monitoring.NewHealthChecker()
	engine := NewBacktestEngine(testConfig(1000, 0, 0))
	pool := NewWorkerPool(context.Background(), engine, 2, 2, WithHealth(health))
	pool.Start()

	bars := testBars(100, 95, 90)
	require.NoError(t, pool.SubmitJob(BacktestJob{
		ID: "a", Index: 0, Bars: bars,
		Spec:     RunSpec{Name: "exploding", StrategyID: "exploding"},
		Strategy: explodingStrategy{},
	}))
	require.NoError(t, pool.SubmitJob(BacktestJob{
		ID: "b", Index: 1, Bars: bars,
		Spec: RunSpec{Name: "grid", StrategyID: config.StrategyGrid, Config: gridStrategyConfig()},
	}))
	pool.Stop()

	results := map[string]RunResult{}
	for res := range pool.GetResults() {
		results[res.Name] = res
	}
	require.Len(t, results, 2)

	exploded := results["exploding"]
	require.Error(t, exploded.Err)
	assert.Contains(t, exploded.Err.Error(), "panicked")
	assert.Nil(t, exploded.Results)

	assert.NoError(t, results["grid"].Err)
	assert.NotNil(t, results["grid"].Results)
	snap := health.Snapshot()
	assert.Empty(t, snap.ActiveRuns)
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, 1, snap.Completed)
}
