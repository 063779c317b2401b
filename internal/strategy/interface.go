package strategy

import (
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

// Strategy is driven bar by bar by the backtest loop. For every intent
// returned from OnBar the loop calls exactly one of OnFill or OnReject
// before the next OnBar.
type Strategy interface {
	// Name returns the strategy id
	Name() string

	// OnBar consumes the next bar close and returns zero or more order intents
	OnBar(bar types.OHLCV) []types.Intent

	// OnFill is called when the simulator filled an intent
	OnFill(fill types.Fill)

	// OnReject is called when the simulator refused an intent; the strategy
	// must leave its state as if the intent had never been emitted
	OnReject(intent types.Intent, err error)

	// Trades returns a copy of the closed trades so far
	Trades() []types.Trade
}

// PositionState is the state of a single-position strategy
type PositionState int

const (
	StateFlat PositionState = iota
	StateLong
)

func (s PositionState) String() string {
	switch s {
	case StateFlat:
		return "FLAT"
	case StateLong:
		return "LONG"
	default:
		return "UNKNOWN"
	}
}
