package config

import (
	"time"

	bterrors "github.com/ducminhle1904/btc-strategy-backtest/internal/errors"
)

// BacktestConfig holds account and market settings of one run
type BacktestConfig struct {
	Symbol      string  `json:"symbol" mapstructure:"symbol"`
	Interval    string  `json:"interval" mapstructure:"interval"` // e.g. 1h, 4h, 1d
	InitialCash float64 `json:"initial_cash" mapstructure:"initial_cash"`
	Commission  float64 `json:"commission" mapstructure:"commission"`       // fraction of notional per fill
	SlippageBps float64 `json:"slippage_bps" mapstructure:"slippage_bps"`   // adverse price move per fill
	BarsPerYear float64 `json:"bars_per_year" mapstructure:"bars_per_year"` // 0 derives from Interval
}

// NewDefaultBacktestConfig returns daily BTCUSDT with 100k cash and 0.1% fees
func NewDefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		Symbol:      "BTCUSDT",
		Interval:    "1d",
		InitialCash: 100000,
		Commission:  0.001,
		SlippageBps: 0,
	}
}

// Validate checks the backtest account settings
func (c *BacktestConfig) Validate() error {
	if c.Symbol == "" {
		return bterrors.ConfigInvalid("backtest", "symbol is required")
	}
	if c.InitialCash <= 0 {
		return bterrors.ConfigInvalid("backtest", "initial_cash must be positive, got: %f", c.InitialCash)
	}
	if c.Commission < 0 || c.Commission >= 1 {
		return bterrors.ConfigInvalid("backtest", "commission must be within [0, 1), got: %f", c.Commission)
	}
	if c.SlippageBps < 0 || c.SlippageBps >= 10000 {
		return bterrors.ConfigInvalid("backtest", "slippage_bps must be within [0, 10000), got: %f", c.SlippageBps)
	}
	if c.EffectiveBarsPerYear() <= 0 {
		return bterrors.ConfigInvalid("backtest", "bars_per_year must be positive or derivable from interval %q", c.Interval)
	}
	return nil
}

// EffectiveBarsPerYear returns BarsPerYear, or derives it from Interval when unset
func (c *BacktestConfig) EffectiveBarsPerYear() float64 {
	if c.BarsPerYear > 0 {
		return c.BarsPerYear
	}
	d, ok := IntervalDuration(c.Interval)
	if !ok {
		return 0
	}
	return float64(365*24*time.Hour) / float64(d)
}

// SlippageRate returns slippage as a fraction of price
func (c *BacktestConfig) SlippageRate() float64 {
	return c.SlippageBps / 10000
}

var intervalDurations = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// IntervalDuration maps a bar interval label to its duration
func IntervalDuration(interval string) (time.Duration, bool) {
	d, ok := intervalDurations[interval]
	return d, ok
}
