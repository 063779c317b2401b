package backtest

import (
	"context"
	"fmt"

	bterrors "github.com/ducminhle1904/btc-strategy-backtest/internal/errors"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

// ParameterOptimizer sweeps strategy parameters over one bar series by
// expanding them into a comparison.
type ParameterOptimizer struct {
	bars []types.OHLCV
	opts CompareOptions
}

func NewParameterOptimizer(bars []types.OHLCV, opts CompareOptions) *ParameterOptimizer {
	return &ParameterOptimizer{bars: bars, opts: opts}
}

// OptimizationResult is the best configuration of a sweep plus every run
type OptimizationResult struct {
	Best       RunResult
	BestConfig config.StrategyConfig
	All        []RunResult
}

// OptimizeRSI tries every period/oversold pair on top of base
func (o *ParameterOptimizer) OptimizeRSI(ctx context.Context, base config.RSIConfig, periods []int, oversold []float64) (*OptimizationResult, error) {
	var specs []RunSpec
	for _, period := range periods {
		for _, level := range oversold {
			cfg := config.NewDefaultStrategyConfig(config.StrategyRSI)
			cfg.RSI = base
			cfg.RSI.Period = period
			cfg.RSI.Oversold = level
			specs = append(specs, RunSpec{
				Name:       fmt.Sprintf("rsi-p%d-os%g", period, level),
				StrategyID: config.StrategyRSI,
				Config:     cfg,
			})
		}
	}
	return o.run(ctx, specs)
}

// OptimizeGrid tries every spacing/levels pair on top of base
func (o *ParameterOptimizer) OptimizeGrid(ctx context.Context, base config.GridConfig, spacings []float64, levels []int) (*OptimizationResult, error) {
	var specs []RunSpec
	for _, spacing := range spacings {
		for _, n := range levels {
			cfg := config.NewDefaultStrategyConfig(config.StrategyGrid)
			cfg.Grid = base
			cfg.Grid.GridSpacing = spacing
			cfg.Grid.GridLevels = n
			specs = append(specs, RunSpec{
				Name:       fmt.Sprintf("grid-s%g-l%d", spacing, n),
				StrategyID: config.StrategyGrid,
				Config:     cfg,
			})
		}
	}
	return o.run(ctx, specs)
}

func (o *ParameterOptimizer) run(ctx context.Context, specs []RunSpec) (*OptimizationResult, error) {
	if len(specs) == 0 {
		return nil, bterrors.ConfigInvalid("optimizer", "empty parameter grid")
	}

	results, err := Compare(ctx, o.bars, specs, o.opts)
	if err != nil {
		return nil, err
	}
	if results[0].Failed() {
		return nil, fmt.Errorf("every configuration failed, first error: %w", results[0].Err)
	}

	best := results[0]
	return &OptimizationResult{Best: best, BestConfig: specs[best.Index].Config, All: results}, nil
}
