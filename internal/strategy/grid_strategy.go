package strategy

import (
	"go.uber.org/zap"

	"github.com/ducminhle1904/btc-strategy-backtest/internal/grid"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
)

// GridStrategy implements the Strategy interface using the grid state machine
type GridStrategy struct {
	*grid.Engine
}

// NewGridStrategy creates a new grid trading strategy
func NewGridStrategy(cfg config.GridConfig, logger *zap.Logger) (*GridStrategy, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	engine, err := grid.New(cfg, grid.WithLogger(logger.With(zap.String("strategy", config.StrategyGrid))))
	if err != nil {
		return nil, err
	}
	return &GridStrategy{Engine: engine}, nil
}
