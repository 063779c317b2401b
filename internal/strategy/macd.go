package strategy

import (
	"math"

	"go.uber.org/zap"

	"github.com/ducminhle1904/btc-strategy-backtest/internal/indicators"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

// MACDStrategy trades MACD / signal line crossovers
type MACDStrategy struct {
	singlePosition
	cfg  config.MACDConfig
	macd *indicators.MACD
}

// NewMACDStrategy creates the MACD crossover strategy
func NewMACDStrategy(cfg config.MACDConfig, logger *zap.Logger) (*MACDStrategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	macd := indicators.NewMACD(cfg.FastPeriod, cfg.SlowPeriod, cfg.SignalPeriod)
	return &MACDStrategy{
		singlePosition: newSinglePosition(config.StrategyMACD, cfg.ExitConfig, (macd.GetRequiredPeriods()+1)*warmupFactor, logger),
		cfg:            cfg,
		macd:           macd,
	}, nil
}

// OnBar implements Strategy
func (s *MACDStrategy) OnBar(bar types.OHLCV) []types.Intent {
	s.push(bar)
	if s.pending {
		return nil
	}
	if intent, ok := s.riskExit(bar); ok {
		return []types.Intent{intent}
	}

	series, err := s.macd.Series(s.closes)
	if err != nil || len(series) < 2 {
		return nil
	}
	prev, curr := series[len(series)-2], series[len(series)-1]
	if math.Abs(curr.MACD-curr.Signal) <= s.cfg.MinDiff {
		return nil
	}

	switch {
	case s.state == StateFlat && indicators.BullishCrossover(prev, curr):
		s.logger.Debug("macd bullish crossover", zap.Float64("macd", curr.MACD), zap.Float64("signal", curr.Signal))
		return []types.Intent{s.enter(bar)}
	case s.state == StateLong && indicators.BearishCrossover(prev, curr):
		s.logger.Debug("macd bearish crossover", zap.Float64("macd", curr.MACD), zap.Float64("signal", curr.Signal))
		return []types.Intent{s.exit(bar, types.ReasonSignal)}
	}
	return nil
}
