package types

import "time"

// Side of an order intent
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Reasons attached to intents and trades
const (
	ReasonGridEntry  = "grid_entry"
	ReasonSignal     = "signal"
	ReasonTakeProfit = "take_profit"
	ReasonStopLoss   = "stop_loss"
)

// NoLevel marks intents and trades that do not belong to a grid layer
const NoLevel = -1

// Intent is an order request emitted by a strategy for the current bar.
type Intent struct {
	Ref       int       `json:"ref"` // unique within one strategy instance
	Side      Side      `json:"side"`
	Price     float64   `json:"price"` // reference price before slippage
	Size      float64   `json:"size"`  // base units; 0 means size from CashFraction
	Level     int       `json:"level"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`

	// CashFraction sizes an entry as a fraction of available cash when Size is 0
	CashFraction float64 `json:"cash_fraction,omitempty"`
}

// Fill is the simulator's answer to an accepted intent.
type Fill struct {
	Intent     Intent    `json:"intent"`
	Price      float64   `json:"price"`
	Size       float64   `json:"size"`
	Commission float64   `json:"commission"`
	Time       time.Time `json:"time"`
}

// Trade is a closed round trip. Immutable once appended to a TradeLog.
type Trade struct {
	EntryTime   time.Time `json:"entry_time"`
	ExitTime    time.Time `json:"exit_time"`
	EntryPrice  float64   `json:"entry_price"`
	ExitPrice   float64   `json:"exit_price"`
	Size        float64   `json:"size"`
	RealizedPnL float64   `json:"realized_pnl"`
	Commission  float64   `json:"commission"` // entry + exit
	Level       int       `json:"level"`
	ExitReason  string    `json:"exit_reason"`
}

// Return is realized P&L relative to the entry notional
func (t Trade) Return() float64 {
	cost := t.EntryPrice * t.Size
	if cost <= 0 {
		return 0
	}
	return t.RealizedPnL / cost
}

// TradeLog is an append-only trade record for one run.
type TradeLog struct {
	trades []Trade
}

// Append adds a closed trade to the end of the log
func (l *TradeLog) Append(t Trade) {
	l.trades = append(l.trades, t)
}

// Len returns the number of trades recorded so far
func (l *TradeLog) Len() int {
	return len(l.trades)
}

// All returns a copy of the log
func (l *TradeLog) All() []Trade {
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// EquityPoint samples account value at a bar close.
type EquityPoint struct {
	Timestamp    time.Time `json:"timestamp"`
	Cash         float64   `json:"cash"`
	MarkToMarket float64   `json:"mark_to_market"`
}

// Equity is cash plus mark-to-market value of holdings
func (p EquityPoint) Equity() float64 {
	return p.Cash + p.MarkToMarket
}
