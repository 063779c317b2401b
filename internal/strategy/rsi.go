package strategy

import (
	"go.uber.org/zap"

	"github.com/ducminhle1904/btc-strategy-backtest/internal/indicators"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

// warmupFactor sizes the trailing window as a multiple of the indicator
// warm-up so smoothed indicators settle before they are read.
const warmupFactor = 5

// RSIStrategy buys oversold and sells overbought
type RSIStrategy struct {
	singlePosition
	cfg config.RSIConfig
	rsi *indicators.RSI
}

// NewRSIStrategy creates the RSI mean reversion strategy
func NewRSIStrategy(cfg config.RSIConfig, logger *zap.Logger) (*RSIStrategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rsi := indicators.NewRSI(cfg.Period)
	return &RSIStrategy{
		singlePosition: newSinglePosition(config.StrategyRSI, cfg.ExitConfig, rsi.GetRequiredPeriods()*warmupFactor, logger),
		cfg:            cfg,
		rsi:            rsi,
	}, nil
}

// OnBar implements Strategy
func (s *RSIStrategy) OnBar(bar types.OHLCV) []types.Intent {
	s.push(bar)
	if s.pending {
		return nil
	}
	if intent, ok := s.riskExit(bar); ok {
		return []types.Intent{intent}
	}

	value, err := s.rsi.Calculate(s.closes)
	if err != nil {
		return nil
	}

	switch {
	case s.state == StateFlat && value < s.cfg.Oversold:
		s.logger.Debug("rsi oversold", zap.Float64("rsi", value), zap.Float64("price", bar.Close))
		return []types.Intent{s.enter(bar)}
	case s.state == StateLong && value > s.cfg.Overbought:
		s.logger.Debug("rsi overbought", zap.Float64("rsi", value), zap.Float64("price", bar.Close))
		return []types.Intent{s.exit(bar, types.ReasonSignal)}
	}
	return nil
}
