package config

import (
	"strings"

	bterrors "github.com/ducminhle1904/btc-strategy-backtest/internal/errors"
)

// Strategy identifiers accepted by the factory and the CLI
const (
	StrategyRSI       = "rsi"
	StrategyMACD      = "macd"
	StrategyBollinger = "bollinger"
	StrategyGrid      = "grid"
)

// Bollinger trading modes
const (
	BollingerBreakout      = "breakout"
	BollingerMeanReversion = "mean_reversion"
)

// SupportedStrategies lists the strategy ids in display order
func SupportedStrategies() []string {
	return []string{StrategyRSI, StrategyMACD, StrategyBollinger, StrategyGrid}
}

// ExitConfig holds the percentage exits shared by the single-position strategies
type ExitConfig struct {
	StopLoss     float64 `json:"stop_loss" mapstructure:"stop_loss"`         // fraction below entry fill
	TakeProfit   float64 `json:"take_profit" mapstructure:"take_profit"`     // fraction above entry fill
	PositionSize float64 `json:"position_size" mapstructure:"position_size"` // fraction of cash per entry
}

func (e *ExitConfig) validate(component string) error {
	if e.StopLoss < 0 || e.StopLoss >= 1 {
		return bterrors.ConfigInvalid(component, "stop_loss must be within [0, 1), got: %f", e.StopLoss)
	}
	if e.TakeProfit < 0 {
		return bterrors.ConfigInvalid(component, "take_profit cannot be negative, got: %f", e.TakeProfit)
	}
	if e.PositionSize <= 0 || e.PositionSize > 1 {
		return bterrors.ConfigInvalid(component, "position_size must be within (0, 1], got: %f", e.PositionSize)
	}
	return nil
}

func defaultExits() ExitConfig {
	return ExitConfig{StopLoss: 0.05, TakeProfit: 0.10, PositionSize: 0.95}
}

// RSIConfig configures the RSI strategy
type RSIConfig struct {
	Period     int     `json:"period" mapstructure:"period"`
	Oversold   float64 `json:"oversold" mapstructure:"oversold"`
	Overbought float64 `json:"overbought" mapstructure:"overbought"`
	ExitConfig `mapstructure:",squash"`
}

// NewDefaultRSIConfig returns RSI(14) with 30/70 thresholds
func NewDefaultRSIConfig() RSIConfig {
	return RSIConfig{Period: 14, Oversold: 30, Overbought: 70, ExitConfig: defaultExits()}
}

// Validate checks the RSI parameters
func (c *RSIConfig) Validate() error {
	if c.Period < 2 {
		return bterrors.ConfigInvalid(StrategyRSI, "period must be at least 2, got: %d", c.Period)
	}
	if c.Oversold <= 0 || c.Overbought >= 100 || c.Oversold >= c.Overbought {
		return bterrors.ConfigInvalid(StrategyRSI, "thresholds must satisfy 0 < oversold < overbought < 100, got: %.1f/%.1f",
			c.Oversold, c.Overbought)
	}
	return c.ExitConfig.validate(StrategyRSI)
}

// MACDConfig configures the MACD crossover strategy
type MACDConfig struct {
	FastPeriod   int     `json:"fast_period" mapstructure:"fast_period"`
	SlowPeriod   int     `json:"slow_period" mapstructure:"slow_period"`
	SignalPeriod int     `json:"signal_period" mapstructure:"signal_period"`
	MinDiff      float64 `json:"min_diff" mapstructure:"min_diff"` // minimum |macd - signal| at a crossover
	ExitConfig   `mapstructure:",squash"`
}

// NewDefaultMACDConfig returns MACD(12,26,9)
func NewDefaultMACDConfig() MACDConfig {
	exits := defaultExits()
	exits.StopLoss = 0.08
	exits.TakeProfit = 0.15
	return MACDConfig{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9, MinDiff: 0.001, ExitConfig: exits}
}

// Validate checks the MACD parameters
func (c *MACDConfig) Validate() error {
	if c.FastPeriod <= 0 || c.SlowPeriod <= 0 || c.SignalPeriod <= 0 {
		return bterrors.ConfigInvalid(StrategyMACD, "periods must be positive, got: %d/%d/%d",
			c.FastPeriod, c.SlowPeriod, c.SignalPeriod)
	}
	if c.FastPeriod >= c.SlowPeriod {
		return bterrors.ConfigInvalid(StrategyMACD, "fast_period (%d) must be less than slow_period (%d)",
			c.FastPeriod, c.SlowPeriod)
	}
	if c.MinDiff < 0 {
		return bterrors.ConfigInvalid(StrategyMACD, "min_diff cannot be negative, got: %f", c.MinDiff)
	}
	return c.ExitConfig.validate(StrategyMACD)
}

// BollingerConfig configures the Bollinger Bands strategy
type BollingerConfig struct {
	Period          int     `json:"period" mapstructure:"period"`
	StdDev          float64 `json:"std_dev" mapstructure:"std_dev"`
	Mode            string  `json:"mode" mapstructure:"mode"`
	VolumeFilter    bool    `json:"volume_filter" mapstructure:"volume_filter"`
	VolumePeriod    int     `json:"volume_period" mapstructure:"volume_period"`
	VolumeThreshold float64 `json:"volume_threshold" mapstructure:"volume_threshold"`
	ExitConfig      `mapstructure:",squash"`
}

// NewDefaultBollingerConfig returns BB(20, 2) in breakout mode
func NewDefaultBollingerConfig() BollingerConfig {
	exits := defaultExits()
	exits.StopLoss = 0.06
	exits.TakeProfit = 0.12
	return BollingerConfig{
		Period:          20,
		StdDev:          2.0,
		Mode:            BollingerBreakout,
		VolumeFilter:    true,
		VolumePeriod:    20,
		VolumeThreshold: 1.2,
		ExitConfig:      exits,
	}
}

// Validate checks the Bollinger parameters
func (c *BollingerConfig) Validate() error {
	if c.Period < 2 {
		return bterrors.ConfigInvalid(StrategyBollinger, "period must be at least 2, got: %d", c.Period)
	}
	if c.StdDev <= 0 {
		return bterrors.ConfigInvalid(StrategyBollinger, "std_dev must be positive, got: %f", c.StdDev)
	}
	switch c.Mode {
	case BollingerBreakout, BollingerMeanReversion:
	default:
		return bterrors.ConfigInvalid(StrategyBollinger, "mode must be '%s' or '%s', got: %s",
			BollingerBreakout, BollingerMeanReversion, c.Mode)
	}
	if c.VolumeFilter {
		if c.VolumePeriod <= 0 {
			return bterrors.ConfigInvalid(StrategyBollinger, "volume_period must be positive, got: %d", c.VolumePeriod)
		}
		if c.VolumeThreshold <= 0 {
			return bterrors.ConfigInvalid(StrategyBollinger, "volume_threshold must be positive, got: %f", c.VolumeThreshold)
		}
	}
	return c.ExitConfig.validate(StrategyBollinger)
}

// StrategyConfig selects one strategy and carries its parameters. Only the
// section matching Type is consulted.
type StrategyConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	RSI       RSIConfig       `json:"rsi" mapstructure:"rsi"`
	MACD      MACDConfig      `json:"macd" mapstructure:"macd"`
	Bollinger BollingerConfig `json:"bollinger" mapstructure:"bollinger"`
	Grid      GridConfig      `json:"grid" mapstructure:"grid"`
}

// NewDefaultStrategyConfig returns defaults for every strategy with Type set
func NewDefaultStrategyConfig(strategyType string) StrategyConfig {
	return StrategyConfig{
		Type:      strings.ToLower(strategyType),
		RSI:       NewDefaultRSIConfig(),
		MACD:      NewDefaultMACDConfig(),
		Bollinger: NewDefaultBollingerConfig(),
		Grid:      NewDefaultGridConfig(),
	}
}

// Validate checks the section selected by Type
func (c *StrategyConfig) Validate() error {
	switch strings.ToLower(c.Type) {
	case StrategyRSI:
		return c.RSI.Validate()
	case StrategyMACD:
		return c.MACD.Validate()
	case StrategyBollinger:
		return c.Bollinger.Validate()
	case StrategyGrid:
		return c.Grid.Validate()
	default:
		return bterrors.ConfigInvalid("strategy", "unknown strategy type %q (supported: %s)",
			c.Type, strings.Join(SupportedStrategies(), ", "))
	}
}
