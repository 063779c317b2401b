package grid

import "time"

// LayerState is the lifecycle state of a grid layer
type LayerState int

const (
	LayerPending LayerState = iota // open intent emitted, waiting for fill
	LayerOpen
	LayerClosedProfit
	LayerClosedStop
)

// String returns the state name used in logs and reports
func (s LayerState) String() string {
	switch s {
	case LayerPending:
		return "pending"
	case LayerOpen:
		return "open"
	case LayerClosedProfit:
		return "closed_profit"
	case LayerClosedStop:
		return "closed_stop"
	default:
		return "unknown"
	}
}

// IsClosed reports a terminal state
func (s LayerState) IsClosed() bool {
	return s == LayerClosedProfit || s == LayerClosedStop
}

// Layer is one unit of position opened at a grid boundary
type Layer struct {
	Level           int        `json:"level"`       // 0-indexed distance from the anchor
	Boundary        float64    `json:"boundary"`    // grid price that triggered the layer
	EntryPrice      float64    `json:"entry_price"` // fill price, 0 while pending
	Size            float64    `json:"size"`
	State           LayerState `json:"state"`
	EntryTime       time.Time  `json:"entry_time"`
	EntryCommission float64    `json:"entry_commission"`

	ref     int    // intent ref of the entry order
	closing string // exit reason while an exit intent is in flight
}

// TakeProfitPrice returns the close at or above which the layer exits
func (l *Layer) TakeProfitPrice(takeProfitPct float64) float64 {
	return l.EntryPrice * (1 + takeProfitPct)
}

// Position is the aggregate of all Open layers. Derived, never stored.
type Position struct {
	Size     float64 `json:"size"`
	AvgEntry float64 `json:"avg_entry"` // size-weighted mean entry price
	Layers   int     `json:"layers"`
}

// Stats counts state machine events of one run
type Stats struct {
	BarsProcessed  int     `json:"bars_processed"`
	EntryIntents   int     `json:"entry_intents"`
	ExitIntents    int     `json:"exit_intents"`
	Rejected       int     `json:"rejected"`
	Rebases        int     `json:"rebases"`
	StopOuts       int     `json:"stop_outs"`
	MaxConcurrent  int     `json:"max_concurrent"`
	RealizedPnL    float64 `json:"realized_pnl"`
	LayersOpened   int     `json:"layers_opened"`
	LayersClosedTP int     `json:"layers_closed_tp"`
	SignalExits    int     `json:"signal_exits"`
}
