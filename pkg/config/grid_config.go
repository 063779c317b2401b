package config

import (
	"fmt"
	"math"

	bterrors "github.com/ducminhle1904/btc-strategy-backtest/internal/errors"
)

// Anchor re-basing modes for the grid
const (
	RebaseOnLiquidation = "on_liquidation" // anchor resets to the next close after all layers close
	RebaseSMA           = "sma"            // anchor resets to the SMA of recent closes after liquidation
	RebaseNone          = "none"           // anchor is fixed for the whole run
)

// Grid spacing modes
const (
	SpacingFixed = "fixed" // grid_spacing as configured
	SpacingATR   = "atr"   // max(grid_spacing, atr_multiplier * ATR) taken when the anchor is set
)

// GridConfig represents the configuration for the multi-layer grid strategy.
// Immutable for the duration of one run.
type GridConfig struct {
	// Ladder
	GridSpacing      float64 `json:"grid_spacing" mapstructure:"grid_spacing"`           // absolute price distance between levels
	GridLevels       int     `json:"grid_levels" mapstructure:"grid_levels"`             // max concurrent layers
	BaseOrderSize    float64 `json:"base_order_size" mapstructure:"base_order_size"`     // size of level 0 in base units
	MartingaleFactor float64 `json:"martingale_factor" mapstructure:"martingale_factor"` // size multiplier per level
	MaxPosition      float64 `json:"max_position" mapstructure:"max_position"`           // cap on total committed size

	// Exits
	TakeProfitPct float64 `json:"take_profit_pct" mapstructure:"take_profit_pct"` // per-layer exit threshold
	StopLossPct   float64 `json:"stop_loss_pct" mapstructure:"stop_loss_pct"`     // aggregate position stop, 0 disables

	// Anchor
	StartPrice float64 `json:"start_price,omitempty" mapstructure:"start_price"` // fixed first anchor, 0 uses first close
	Rebase     string  `json:"rebase" mapstructure:"rebase"`
	SMAPeriod  int     `json:"sma_period,omitempty" mapstructure:"sma_period"`

	// Volatility spacing
	SpacingMode   string  `json:"spacing_mode,omitempty" mapstructure:"spacing_mode"`
	ATRPeriod     int     `json:"atr_period,omitempty" mapstructure:"atr_period"`
	ATRMultiplier float64 `json:"atr_multiplier,omitempty" mapstructure:"atr_multiplier"`

	// RSI gate, disabled when RSIPeriod is 0. Entries need RSI below
	// RSIOversold unless the close is already 0.5% through the boundary;
	// open layers also exit early above RSIOverbought with 1% profit.
	RSIPeriod     int     `json:"rsi_period,omitempty" mapstructure:"rsi_period"`
	RSIOversold   float64 `json:"rsi_oversold,omitempty" mapstructure:"rsi_oversold"`
	RSIOverbought float64 `json:"rsi_overbought,omitempty" mapstructure:"rsi_overbought"`
}

// NewDefaultGridConfig returns the BTC defaults of the grid strategy
func NewDefaultGridConfig() GridConfig {
	return GridConfig{
		GridSpacing:      500,
		GridLevels:       10,
		BaseOrderSize:    0.01,
		MartingaleFactor: 1.2,
		MaxPosition:      0.5,
		TakeProfitPct:    0.02,
		StopLossPct:      0,
		Rebase:           RebaseOnLiquidation,
		SMAPeriod:        50,
		SpacingMode:      SpacingFixed,
		ATRPeriod:        14,
		ATRMultiplier:    2,
		RSIOversold:      35,
		RSIOverbought:    65,
	}
}

// Validate performs validation of grid configuration. Every failure is a
// CONFIG_INVALID error raised before any bar is processed.
func (gc *GridConfig) Validate() error {
	if gc.GridSpacing <= 0 {
		return bterrors.ConfigInvalid("grid", "grid_spacing must be positive, got: %f", gc.GridSpacing)
	}
	if gc.GridLevels <= 0 {
		return bterrors.ConfigInvalid("grid", "grid_levels must be positive, got: %d", gc.GridLevels)
	}
	if gc.GridLevels > 1000 {
		return bterrors.ConfigInvalid("grid", "grid_levels too large (max 1000), got: %d", gc.GridLevels)
	}
	if gc.BaseOrderSize <= 0 {
		return bterrors.ConfigInvalid("grid", "base_order_size must be positive, got: %f", gc.BaseOrderSize)
	}
	if gc.MartingaleFactor <= 0 {
		return bterrors.ConfigInvalid("grid", "martingale_factor must be positive, got: %f", gc.MartingaleFactor)
	}
	if gc.MaxPosition <= 0 {
		return bterrors.ConfigInvalid("grid", "max_position must be positive, got: %f", gc.MaxPosition)
	}
	if gc.BaseOrderSize > gc.MaxPosition {
		return bterrors.ConfigInvalid("grid", "base_order_size (%f) exceeds max_position (%f)", gc.BaseOrderSize, gc.MaxPosition)
	}
	if gc.TakeProfitPct <= 0 || gc.TakeProfitPct > 1.0 {
		return bterrors.ConfigInvalid("grid", "take_profit_pct must be within (0, 1], got: %f", gc.TakeProfitPct)
	}
	if gc.StopLossPct < 0 || gc.StopLossPct >= 1.0 {
		return bterrors.ConfigInvalid("grid", "stop_loss_pct must be within [0, 1), got: %f", gc.StopLossPct)
	}
	if gc.StartPrice < 0 {
		return bterrors.ConfigInvalid("grid", "start_price cannot be negative, got: %f", gc.StartPrice)
	}

	switch gc.Rebase {
	case "", RebaseOnLiquidation, RebaseNone:
	case RebaseSMA:
		if gc.SMAPeriod <= 1 {
			return bterrors.ConfigInvalid("grid", "sma_period must be greater than 1 for sma rebase, got: %d", gc.SMAPeriod)
		}
	default:
		return bterrors.ConfigInvalid("grid", "rebase must be '%s', '%s' or '%s', got: %s",
			RebaseOnLiquidation, RebaseSMA, RebaseNone, gc.Rebase)
	}

	switch gc.SpacingMode {
	case "", SpacingFixed:
	case SpacingATR:
		if gc.ATRPeriod <= 0 {
			return bterrors.ConfigInvalid("grid", "atr_period must be positive for atr spacing, got: %d", gc.ATRPeriod)
		}
		if gc.ATRMultiplier <= 0 {
			return bterrors.ConfigInvalid("grid", "atr_multiplier must be positive for atr spacing, got: %f", gc.ATRMultiplier)
		}
	default:
		return bterrors.ConfigInvalid("grid", "spacing_mode must be '%s' or '%s', got: %s",
			SpacingFixed, SpacingATR, gc.SpacingMode)
	}

	if gc.RSIPeriod < 0 {
		return bterrors.ConfigInvalid("grid", "rsi_period cannot be negative, got: %d", gc.RSIPeriod)
	}
	if gc.RSIPeriod > 0 {
		if gc.RSIOversold <= 0 || gc.RSIOverbought >= 100 || gc.RSIOversold >= gc.RSIOverbought {
			return bterrors.ConfigInvalid("grid", "rsi thresholds must satisfy 0 < oversold < overbought < 100, got: %.1f / %.1f",
				gc.RSIOversold, gc.RSIOverbought)
		}
	}

	return nil
}

// RebaseMode returns the effective re-basing mode
func (gc *GridConfig) RebaseMode() string {
	if gc.Rebase == "" {
		return RebaseOnLiquidation
	}
	return gc.Rebase
}

// SpacingStrategy returns the effective spacing mode
func (gc *GridConfig) SpacingStrategy() string {
	if gc.SpacingMode == "" {
		return SpacingFixed
	}
	return gc.SpacingMode
}

// VolatilitySpacing widens grid_spacing to atr_multiplier * atr
func (gc *GridConfig) VolatilitySpacing(atr float64) float64 {
	return math.Max(gc.GridSpacing, gc.ATRMultiplier*atr)
}

// LayerSize returns the order size for 0-indexed level k
func (gc *GridConfig) LayerSize(level int) float64 {
	if level <= 0 {
		return gc.BaseOrderSize
	}
	return gc.BaseOrderSize * math.Pow(gc.MartingaleFactor, float64(level))
}

// Boundaries computes the grid boundary prices spacing apart below anchor,
// nearest first. Non-positive prices are dropped.
func (gc *GridConfig) Boundaries(anchor, spacing float64) []float64 {
	levels := make([]float64, 0, gc.GridLevels)
	for k := 0; k < gc.GridLevels; k++ {
		price := anchor - float64(k+1)*spacing
		if price <= 0 {
			break
		}
		levels = append(levels, price)
	}
	return levels
}

// CalculateRequiredSize returns the committed size if every level is filled,
// capped by MaxPosition.
func (gc *GridConfig) CalculateRequiredSize() float64 {
	total := 0.0
	for k := 0; k < gc.GridLevels; k++ {
		total += gc.LayerSize(k)
	}
	return math.Min(total, gc.MaxPosition)
}

// GetGridInfo returns formatted information about the grid configuration
func (gc *GridConfig) GetGridInfo() string {
	return fmt.Sprintf(
		"Grid Configuration:\n"+
			"  Spacing: %.2f\n"+
			"  Levels: %d\n"+
			"  Base Order Size: %.6f\n"+
			"  Martingale Factor: %.2f\n"+
			"  Max Position: %.6f\n"+
			"  Take Profit: %.2f%%\n"+
			"  Stop Loss: %.2f%%\n"+
			"  Rebase: %s\n"+
			"  Spacing Mode: %s",
		gc.GridSpacing, gc.GridLevels, gc.BaseOrderSize, gc.MartingaleFactor,
		gc.MaxPosition, gc.TakeProfitPct*100, gc.StopLossPct*100, gc.RebaseMode(), gc.SpacingStrategy(),
	)
}
