package strategy

import (
	"strings"

	"go.uber.org/zap"

	bterrors "github.com/ducminhle1904/btc-strategy-backtest/internal/errors"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
)

// New builds a fresh strategy instance for id. Every call returns an
// independent instance; no state is shared between them.
func New(id string, cfg config.StrategyConfig, logger *zap.Logger) (Strategy, error) {
	var (
		s   Strategy
		err error
	)

	switch strings.ToLower(id) {
	case config.StrategyRSI:
		s, err = wrap(NewRSIStrategy(cfg.RSI, logger))
	case config.StrategyMACD:
		s, err = wrap(NewMACDStrategy(cfg.MACD, logger))
	case config.StrategyBollinger:
		s, err = wrap(NewBollingerStrategy(cfg.Bollinger, logger))
	case config.StrategyGrid:
		s, err = wrap(NewGridStrategy(cfg.Grid, logger))
	default:
		return nil, bterrors.ConfigInvalid("strategy", "unknown strategy %q (supported: %s)",
			id, strings.Join(config.SupportedStrategies(), ", "))
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func wrap[T Strategy](s T, err error) (Strategy, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
