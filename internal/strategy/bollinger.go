package strategy

import (
	"go.uber.org/zap"

	"github.com/ducminhle1904/btc-strategy-backtest/internal/indicators"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

// %B thresholds of the mean reversion mode
const (
	meanReversionEntryPctB = 0.1
	meanReversionExitPctB  = 0.9
)

// BollingerStrategy trades band breakouts or band mean reversion
type BollingerStrategy struct {
	singlePosition
	cfg       config.BollingerConfig
	bands     *indicators.BollingerBands
	volumeSMA *indicators.SMA
}

// NewBollingerStrategy creates the Bollinger Bands strategy
func NewBollingerStrategy(cfg config.BollingerConfig, logger *zap.Logger) (*BollingerStrategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	window := cfg.Period
	if cfg.VolumeFilter && cfg.VolumePeriod > window {
		window = cfg.VolumePeriod
	}
	return &BollingerStrategy{
		singlePosition: newSinglePosition(config.StrategyBollinger, cfg.ExitConfig, window, logger),
		cfg:            cfg,
		bands:          indicators.NewBollingerBands(cfg.Period, cfg.StdDev),
		volumeSMA:      indicators.NewSMA(cfg.VolumePeriod),
	}, nil
}

// OnBar implements Strategy
func (s *BollingerStrategy) OnBar(bar types.OHLCV) []types.Intent {
	s.push(bar)
	if s.pending {
		return nil
	}
	if intent, ok := s.riskExit(bar); ok {
		return []types.Intent{intent}
	}

	b, err := s.bands.Calculate(s.closes)
	if err != nil {
		return nil
	}

	if s.state == StateFlat {
		if s.entrySignal(bar, b) && s.volumeConfirmed(bar) {
			s.logger.Debug("bollinger entry",
				zap.String("mode", s.cfg.Mode),
				zap.Float64("price", bar.Close),
				zap.Float64("percent_b", b.PercentB))
			return []types.Intent{s.enter(bar)}
		}
		return nil
	}

	if s.exitSignal(bar, b) {
		s.logger.Debug("bollinger exit",
			zap.String("mode", s.cfg.Mode),
			zap.Float64("price", bar.Close),
			zap.Float64("percent_b", b.PercentB))
		return []types.Intent{s.exit(bar, types.ReasonSignal)}
	}
	return nil
}

func (s *BollingerStrategy) entrySignal(bar types.OHLCV, b indicators.Bands) bool {
	if s.cfg.Mode == config.BollingerMeanReversion {
		return bar.Close <= b.Lower && b.PercentB <= meanReversionEntryPctB
	}
	return bar.Close > b.Upper
}

func (s *BollingerStrategy) exitSignal(bar types.OHLCV, b indicators.Bands) bool {
	if s.cfg.Mode == config.BollingerMeanReversion {
		return bar.Close >= b.Upper && b.PercentB >= meanReversionExitPctB
	}
	return bar.Close < b.Lower
}

// volumeConfirmed requires volume above its SMA times the threshold
func (s *BollingerStrategy) volumeConfirmed(bar types.OHLCV) bool {
	if !s.cfg.VolumeFilter {
		return true
	}
	avg, err := s.volumeSMA.Calculate(s.volumes)
	if err != nil {
		return false
	}
	return bar.Volume > avg*s.cfg.VolumeThreshold
}
