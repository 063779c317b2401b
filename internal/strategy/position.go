package strategy

import (
	"time"

	"go.uber.org/zap"

	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

// singlePosition is the Flat -> Long -> Flat machine shared by the
// indicator strategies. It keeps a bounded trailing window of bars and at
// most one outstanding intent.
type singlePosition struct {
	name   string
	exits  config.ExitConfig
	logger *zap.Logger

	// Trailing window
	closes    []float64
	volumes   []float64
	maxWindow int

	// Position
	state           PositionState
	entryPrice      float64
	size            float64
	entryCommission float64
	entryTime       time.Time

	pending bool
	nextRef int
	trades  types.TradeLog
}

func newSinglePosition(name string, exits config.ExitConfig, window int, logger *zap.Logger) singlePosition {
	if logger == nil {
		logger = zap.NewNop()
	}
	return singlePosition{
		name:      name,
		exits:     exits,
		logger:    logger.With(zap.String("strategy", name)),
		maxWindow: window,
		closes:    make([]float64, 0, window),
		volumes:   make([]float64, 0, window),
	}
}

// Name returns the strategy id
func (p *singlePosition) Name() string {
	return p.name
}

// State returns Flat or Long
func (p *singlePosition) State() PositionState {
	return p.state
}

// EntryPrice returns the fill price of the open position, 0 when flat
func (p *singlePosition) EntryPrice() float64 {
	return p.entryPrice
}

// push appends the bar to the trailing window
func (p *singlePosition) push(bar types.OHLCV) {
	p.closes = append(p.closes, bar.Close)
	p.volumes = append(p.volumes, bar.Volume)
	if len(p.closes) > p.maxWindow {
		p.closes = p.closes[len(p.closes)-p.maxWindow:]
		p.volumes = p.volumes[len(p.volumes)-p.maxWindow:]
	}
}

// riskExit checks stop-loss then take-profit against the entry fill price
func (p *singlePosition) riskExit(bar types.OHLCV) (types.Intent, bool) {
	if p.state != StateLong || p.entryPrice <= 0 {
		return types.Intent{}, false
	}
	if p.exits.StopLoss > 0 && bar.Close <= p.entryPrice*(1-p.exits.StopLoss) {
		return p.exit(bar, types.ReasonStopLoss), true
	}
	if p.exits.TakeProfit > 0 && bar.Close >= p.entryPrice*(1+p.exits.TakeProfit) {
		return p.exit(bar, types.ReasonTakeProfit), true
	}
	return types.Intent{}, false
}

func (p *singlePosition) enter(bar types.OHLCV) types.Intent {
	p.pending = true
	p.nextRef++
	return types.Intent{
		Ref:          p.nextRef,
		Side:         types.SideBuy,
		Price:        bar.Close,
		Level:        types.NoLevel,
		Reason:       types.ReasonSignal,
		Timestamp:    bar.Timestamp,
		CashFraction: p.exits.PositionSize,
	}
}

func (p *singlePosition) exit(bar types.OHLCV, reason string) types.Intent {
	p.pending = true
	p.nextRef++
	return types.Intent{
		Ref:       p.nextRef,
		Side:      types.SideSell,
		Price:     bar.Close,
		Size:      p.size,
		Level:     types.NoLevel,
		Reason:    reason,
		Timestamp: bar.Timestamp,
	}
}

// OnFill moves Flat -> Long on an entry fill and Long -> Flat on an exit
// fill, recording the round trip.
func (p *singlePosition) OnFill(fill types.Fill) {
	p.pending = false

	switch fill.Intent.Side {
	case types.SideBuy:
		p.state = StateLong
		p.entryPrice = fill.Price
		p.size = fill.Size
		p.entryCommission = fill.Commission
		p.entryTime = fill.Time

		p.logger.Debug("position opened",
			zap.Float64("price", fill.Price),
			zap.Float64("size", fill.Size))

	case types.SideSell:
		if p.state != StateLong {
			p.logger.Warn("exit fill while flat")
			return
		}
		pnl := (fill.Price-p.entryPrice)*p.size - p.entryCommission - fill.Commission
		p.trades.Append(types.Trade{
			EntryTime:   p.entryTime,
			ExitTime:    fill.Time,
			EntryPrice:  p.entryPrice,
			ExitPrice:   fill.Price,
			Size:        p.size,
			RealizedPnL: pnl,
			Commission:  p.entryCommission + fill.Commission,
			Level:       types.NoLevel,
			ExitReason:  fill.Intent.Reason,
		})

		p.logger.Debug("position closed",
			zap.String("reason", fill.Intent.Reason),
			zap.Float64("entry", p.entryPrice),
			zap.Float64("exit", fill.Price),
			zap.Float64("pnl", pnl))

		p.state = StateFlat
		p.entryPrice = 0
		p.size = 0
		p.entryCommission = 0
		p.entryTime = time.Time{}
	}
}

// OnReject clears the outstanding intent; position state is untouched
func (p *singlePosition) OnReject(intent types.Intent, err error) {
	p.pending = false
	p.logger.Debug("intent rejected",
		zap.String("side", string(intent.Side)),
		zap.String("reason", intent.Reason),
		zap.Error(err))
}

// Trades returns a copy of the closed trades
func (p *singlePosition) Trades() []types.Trade {
	return p.trades.All()
}
