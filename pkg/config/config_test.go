package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bterrors "github.com/ducminhle1904/btc-strategy-backtest/internal/errors"
)

func TestGridConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GridConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*GridConfig) {}},
		{name: "zero levels", mutate: func(c *GridConfig) { c.GridLevels = 0 }, wantErr: true},
		{name: "negative levels", mutate: func(c *GridConfig) { c.GridLevels = -3 }, wantErr: true},
		{name: "zero max position", mutate: func(c *GridConfig) { c.MaxPosition = 0 }, wantErr: true},
		{name: "zero spacing", mutate: func(c *GridConfig) { c.GridSpacing = 0 }, wantErr: true},
		{name: "base above max", mutate: func(c *GridConfig) { c.BaseOrderSize = 1 }, wantErr: true},
		{name: "zero take profit", mutate: func(c *GridConfig) { c.TakeProfitPct = 0 }, wantErr: true},
		{name: "stop loss of one", mutate: func(c *GridConfig) { c.StopLossPct = 1 }, wantErr: true},
		{name: "unknown rebase", mutate: func(c *GridConfig) { c.Rebase = "daily" }, wantErr: true},
		{name: "sma rebase without period", mutate: func(c *GridConfig) {
			c.Rebase = RebaseSMA
			c.SMAPeriod = 0
		}, wantErr: true},
		{name: "empty rebase", mutate: func(c *GridConfig) { c.Rebase = "" }},
		{name: "unknown spacing mode", mutate: func(c *GridConfig) { c.SpacingMode = "stddev" }, wantErr: true},
		{name: "atr spacing", mutate: func(c *GridConfig) { c.SpacingMode = SpacingATR }},
		{name: "atr spacing without period", mutate: func(c *GridConfig) {
			c.SpacingMode = SpacingATR
			c.ATRPeriod = 0
		}, wantErr: true},
		{name: "atr spacing without multiplier", mutate: func(c *GridConfig) {
			c.SpacingMode = SpacingATR
			c.ATRMultiplier = 0
		}, wantErr: true},
		{name: "rsi gate", mutate: func(c *GridConfig) { c.RSIPeriod = 14 }},
		{name: "negative rsi period", mutate: func(c *GridConfig) { c.RSIPeriod = -1 }, wantErr: true},
		{name: "rsi thresholds inverted", mutate: func(c *GridConfig) {
			c.RSIPeriod = 14
			c.RSIOversold, c.RSIOverbought = 70, 30
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultGridConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, bterrors.ErrConfigInvalid))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGridConfig_LayerSize(t *testing.T) {
	cfg := GridConfig{BaseOrderSize: 0.01, MartingaleFactor: 1.5}
	assert.InDelta(t, 0.01, cfg.LayerSize(0), 1e-12)
	assert.InDelta(t, 0.015, cfg.LayerSize(1), 1e-12)
	assert.InDelta(t, 0.0225, cfg.LayerSize(2), 1e-12)

	for k := 1; k < 20; k++ {
		assert.GreaterOrEqual(t, cfg.LayerSize(k), cfg.LayerSize(k-1))
	}
}

func TestGridConfig_CalculateRequiredSize(t *testing.T) {
	cfg := GridConfig{GridLevels: 3, BaseOrderSize: 1, MartingaleFactor: 2, MaxPosition: 10}
	assert.InDelta(t, 7.0, cfg.CalculateRequiredSize(), 1e-12)

	cfg.MaxPosition = 5
	assert.InDelta(t, 5.0, cfg.CalculateRequiredSize(), 1e-12)
	assert.Contains(t, cfg.GetGridInfo(), "Levels: 3")
}

func TestGridConfig_Boundaries(t *testing.T) {
	cfg := GridConfig{GridSpacing: 40, GridLevels: 5}
	assert.Equal(t, []float64{60, 20}, cfg.Boundaries(100, cfg.GridSpacing))

	cfg.GridSpacing = 5
	assert.Equal(t, []float64{95, 90, 85, 80, 75}, cfg.Boundaries(100, cfg.GridSpacing))
}

func TestGridConfig_VolatilitySpacing(t *testing.T) {
	cfg := GridConfig{GridSpacing: 500, GridLevels: 3, ATRMultiplier: 2}
	assert.Equal(t, 500.0, cfg.VolatilitySpacing(100), "grid_spacing is the floor")
	assert.Equal(t, 800.0, cfg.VolatilitySpacing(400))
	assert.Equal(t, []float64{9200, 8400, 7600}, cfg.Boundaries(10000, 800))
	assert.Equal(t, SpacingFixed, cfg.SpacingStrategy())
}

func TestStrategyConfig_Validate(t *testing.T) {
	for _, id := range SupportedStrategies() {
		cfg := NewDefaultStrategyConfig(id)
		assert.NoError(t, cfg.Validate(), id)
	}

	unknown := NewDefaultStrategyConfig("ichimoku")
	err := unknown.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, bterrors.ErrConfigInvalid)

	rsi := NewDefaultStrategyConfig(StrategyRSI)
	rsi.RSI.Oversold = 80
	assert.Error(t, rsi.Validate())

	macd := NewDefaultStrategyConfig(StrategyMACD)
	macd.MACD.FastPeriod = 30
	assert.Error(t, macd.Validate())

	bb := NewDefaultStrategyConfig(StrategyBollinger)
	bb.Bollinger.Mode = "squeeze"
	assert.Error(t, bb.Validate())

	bb = NewDefaultStrategyConfig(StrategyBollinger)
	bb.Bollinger.PositionSize = 1.5
	assert.Error(t, bb.Validate())
}

func TestBacktestConfig_EffectiveBarsPerYear(t *testing.T) {
	cfg := NewDefaultBacktestConfig()
	assert.InDelta(t, 365.0, cfg.EffectiveBarsPerYear(), 1e-9)

	cfg.Interval = "1h"
	assert.InDelta(t, 8760.0, cfg.EffectiveBarsPerYear(), 1e-9)

	cfg.BarsPerYear = 252
	assert.Equal(t, 252.0, cfg.EffectiveBarsPerYear())

	cfg.BarsPerYear = 0
	cfg.Interval = "7m"
	assert.Error(t, cfg.Validate())
}

func TestParseRange(t *testing.T) {
	start, end, err := ParseRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.True(t, end.After(time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC)))

	_, _, err = ParseRange("2024-02-01", "2024-01-01")
	assert.ErrorIs(t, err, bterrors.ErrConfigInvalid)

	_, _, err = ParseRange("01/01/2024", "2024-01-01")
	assert.Error(t, err)
}

func TestLoadSuite(t *testing.T) {
	content := []byte(`
backtest:
  symbol: BTCUSDT
  interval: 1d
  initial_cash: 50000
from: "2023-01-01"
to: "2023-12-31"
rank_by: sharpe_ratio
data:
  source: csv
  dir: ./data
runs:
  - name: rsi-fast
    type: rsi
    rsi:
      period: 7
  - type: grid
    grid:
      grid_spacing: 1000
      grid_levels: 5
archive:
  type: s3
  s3:
    bucket: results
    access_key: ${BTCBT_TEST_ACCESS_KEY}
`)

	t.Setenv("BTCBT_TEST_ACCESS_KEY", "AKIA-test")

	path := filepath.Join(t.TempDir(), "suite.yaml")
	require.NoError(t, os.WriteFile(path, content, 0644))

	suite, err := LoadSuite(path)
	require.NoError(t, err)

	assert.Equal(t, 50000.0, suite.Backtest.InitialCash)
	assert.Equal(t, 0.001, suite.Backtest.Commission, "unset fields keep defaults")
	assert.Equal(t, "sharpe_ratio", suite.RankBy)
	assert.Equal(t, "AKIA-test", suite.Archive.S3.AccessKey)

	require.Len(t, suite.Runs, 2)
	assert.Equal(t, "rsi-fast", suite.Runs[0].Name)
	assert.Equal(t, 7, suite.Runs[0].Strategy.RSI.Period)
	assert.Equal(t, 70.0, suite.Runs[0].Strategy.RSI.Overbought, "run keeps strategy defaults")

	assert.Equal(t, "grid-2", suite.Runs[1].Name)
	assert.Equal(t, StrategyGrid, suite.Runs[1].Strategy.Type)
	assert.Equal(t, 1000.0, suite.Runs[1].Strategy.Grid.GridSpacing)
	assert.Equal(t, 5, suite.Runs[1].Strategy.Grid.GridLevels)
	assert.Equal(t, 1.2, suite.Runs[1].Strategy.Grid.MartingaleFactor)
}

func TestLoadSuite_EnvOverride(t *testing.T) {
	content := []byte(`
from: "2023-01-01"
to: "2023-03-01"
runs:
  - type: macd
`)
	t.Setenv("BTCBT_BACKTEST_INITIAL_CASH", "2500")

	path := filepath.Join(t.TempDir(), "suite.yaml")
	require.NoError(t, os.WriteFile(path, content, 0644))

	suite, err := LoadSuite(path)
	require.NoError(t, err)
	assert.Equal(t, 2500.0, suite.Backtest.InitialCash)
}

func TestLoadSuite_Invalid(t *testing.T) {
	noRuns := []byte(`
from: "2023-01-01"
to: "2023-03-01"
`)
	path := filepath.Join(t.TempDir(), "suite.yaml")
	require.NoError(t, os.WriteFile(path, noRuns, 0644))

	_, err := LoadSuite(path)
	assert.ErrorIs(t, err, bterrors.ErrConfigInvalid)

	_, err = LoadSuite(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
