package backtest

import (
	bterrors "github.com/ducminhle1904/btc-strategy-backtest/internal/errors"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

// sizeEpsilon absorbs float error when comparing sizes against holdings
const sizeEpsilon = 1e-9

// Simulator fills intents synchronously against a single cash + holdings
// account. Buys fill above the reference price and sells below it by the
// configured slippage; commission is charged on every fill notional.
type Simulator struct {
	commission float64
	slippage   float64
	cash       float64
	holdings   float64
}

func NewSimulator(cfg config.BacktestConfig) *Simulator {
	return &Simulator{
		commission: cfg.Commission,
		slippage:   cfg.SlippageRate(),
		cash:       cfg.InitialCash,
	}
}

// Submit fills intent on bar or returns an OrderRejected error leaving the
// account untouched.
func (s *Simulator) Submit(intent types.Intent, bar types.OHLCV) (types.Fill, error) {
	if intent.Price <= 0 {
		return types.Fill{}, bterrors.OrderRejected("simulator", "intent %d has non-positive price %f", intent.Ref, intent.Price)
	}

	switch intent.Side {
	case types.SideBuy:
		return s.buy(intent, bar)
	case types.SideSell:
		return s.sell(intent, bar)
	default:
		return types.Fill{}, bterrors.OrderRejected("simulator", "intent %d has unknown side %q", intent.Ref, intent.Side)
	}
}

func (s *Simulator) buy(intent types.Intent, bar types.OHLCV) (types.Fill, error) {
	price := intent.Price * (1 + s.slippage)

	size := intent.Size
	if size == 0 && intent.CashFraction > 0 {
		size = s.cash * intent.CashFraction / (price * (1 + s.commission))
	}
	if size <= 0 {
		return types.Fill{}, bterrors.OrderRejected("simulator", "intent %d resolves to zero size", intent.Ref)
	}

	notional := price * size
	commission := notional * s.commission
	if notional+commission > s.cash*(1+sizeEpsilon) {
		return types.Fill{}, bterrors.OrderRejected("simulator",
			"insufficient cash for intent %d: need %.2f, have %.2f", intent.Ref, notional+commission, s.cash)
	}

	s.cash -= notional + commission
	if s.cash < 0 {
		s.cash = 0
	}
	s.holdings += size

	return types.Fill{
		Intent:     intent,
		Price:      price,
		Size:       size,
		Commission: commission,
		Time:       bar.Timestamp,
	}, nil
}

func (s *Simulator) sell(intent types.Intent, bar types.OHLCV) (types.Fill, error) {
	price := intent.Price * (1 - s.slippage)

	size := intent.Size
	if size == 0 {
		size = s.holdings
	}
	if size <= 0 {
		return types.Fill{}, bterrors.OrderRejected("simulator", "intent %d: nothing to sell", intent.Ref)
	}
	if size > s.holdings+sizeEpsilon {
		return types.Fill{}, bterrors.OrderRejected("simulator",
			"insufficient holdings for intent %d: need %f, have %f", intent.Ref, size, s.holdings)
	}

	notional := price * size
	commission := notional * s.commission

	s.cash += notional - commission
	s.holdings -= size
	if s.holdings < sizeEpsilon {
		s.holdings = 0
	}

	return types.Fill{
		Intent:     intent,
		Price:      price,
		Size:       size,
		Commission: commission,
		Time:       bar.Timestamp,
	}, nil
}

// Cash returns the free cash balance
func (s *Simulator) Cash() float64 { return s.cash }

// Holdings returns the base-asset units held
func (s *Simulator) Holdings() float64 { return s.holdings }

// Equity values the account at price
func (s *Simulator) Equity(price float64) float64 {
	return s.cash + s.holdings*price
}

// Mark samples the account at the bar close
func (s *Simulator) Mark(bar types.OHLCV) types.EquityPoint {
	return types.EquityPoint{
		Timestamp:    bar.Timestamp,
		Cash:         s.cash,
		MarkToMarket: s.holdings * bar.Close,
	}
}
