package grid

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/ducminhle1904/btc-strategy-backtest/internal/indicators"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

// sizeEpsilon absorbs float rounding when comparing committed size to the cap
const sizeEpsilon = 1e-12

// warmupFactor sizes the trailing window of smoothed indicators (ATR, RSI)
// as a multiple of their warm-up.
const warmupFactor = 5

// RSI gate price tolerances
const (
	gateBreakthrough = 0.005 // close this far below a boundary enters without RSI
	gateMinProfit    = 0.01  // overbought exits need at least this gain
)

// Engine is the multi-layer grid state machine for one instrument. It is
// driven synchronously: OnBar, then OnFill or OnReject for every intent it
// returned, before the next OnBar. Not safe for concurrent use.
type Engine struct {
	cfg    config.GridConfig
	logger *zap.Logger

	// Anchor
	anchor        float64
	hasAnchor     bool
	rebasePending bool
	prevClose     float64

	// Ladder fixed at the last (re)anchor
	spacing    float64
	boundaries []float64

	// Trailing bars for sma re-basing, atr spacing and the rsi gate
	window     []types.OHLCV
	windowSize int
	sma        *indicators.SMA
	atr        *indicators.ATR
	rsi        *indicators.RSI
	rsiValue   float64
	rsiReady   bool

	// heldBoundary is a crossed boundary the rsi gate held back; it stays
	// eligible while the close remains below it.
	heldBoundary float64

	// Layers
	layers  map[int]*Layer // live (pending or open) layers by level
	nextRef int

	trades types.TradeLog
	stats  Stats
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates a grid engine. The configuration is validated before any bar
// is processed.
func New(cfg config.GridConfig, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		logger: zap.NewNop(),
		layers: make(map[int]*Layer, cfg.GridLevels),
	}
	if cfg.RebaseMode() == config.RebaseSMA {
		e.sma = indicators.NewSMA(cfg.SMAPeriod)
		e.windowSize = cfg.SMAPeriod
	}
	if cfg.SpacingStrategy() == config.SpacingATR {
		e.atr = indicators.NewATR(cfg.ATRPeriod)
		e.windowSize = max(e.windowSize, e.atr.GetRequiredPeriods()*warmupFactor)
	}
	if cfg.RSIPeriod > 0 {
		e.rsi = indicators.NewRSI(cfg.RSIPeriod)
		e.windowSize = max(e.windowSize, e.rsi.GetRequiredPeriods()*warmupFactor)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Name returns the strategy id
func (e *Engine) Name() string {
	return config.StrategyGrid
}

// OnBar decides layer actions for the bar close. Exits are evaluated before
// entries; a bar that triggers the aggregate stop opens nothing.
func (e *Engine) OnBar(bar types.OHLCV) []types.Intent {
	e.stats.BarsProcessed++
	e.record(bar)

	if !e.hasAnchor || e.rebasePending {
		e.setAnchor(bar)
		e.prevClose = bar.Close
		return nil
	}

	var intents []types.Intent
	if stops := e.stopIntents(bar); len(stops) > 0 {
		intents = stops
	} else {
		intents = append(intents, e.takeProfitIntents(bar)...)
		intents = append(intents, e.entryIntents(bar)...)
	}

	e.prevClose = bar.Close
	return intents
}

// setAnchor places the ladder. The very first anchor honours StartPrice;
// later anchors follow the re-basing mode.
func (e *Engine) setAnchor(bar types.OHLCV) {
	anchor := bar.Close
	switch {
	case !e.hasAnchor && e.cfg.StartPrice > 0:
		anchor = e.cfg.StartPrice
	case e.hasAnchor && e.sma != nil:
		if sma, err := e.sma.Calculate(types.Closes(e.window)); err == nil {
			anchor = sma
		}
	}

	spacing := e.cfg.GridSpacing
	if e.atr != nil {
		if atr, err := e.atr.Calculate(e.window); err == nil {
			spacing = e.cfg.VolatilitySpacing(atr)
		}
	}

	if e.hasAnchor {
		e.stats.Rebases++
		e.logger.Debug("grid re-based",
			zap.Float64("previous_anchor", e.anchor),
			zap.Float64("anchor", anchor),
			zap.Float64("spacing", spacing),
			zap.Time("time", bar.Timestamp))
	} else {
		e.logger.Debug("grid anchored",
			zap.Float64("anchor", anchor),
			zap.Float64("spacing", spacing),
			zap.Time("time", bar.Timestamp))
	}

	e.anchor = anchor
	e.spacing = spacing
	e.boundaries = e.cfg.Boundaries(anchor, spacing)
	e.heldBoundary = 0
	e.hasAnchor = true
	e.rebasePending = false
}

// record appends bar to the trailing window and refreshes the RSI gate
func (e *Engine) record(bar types.OHLCV) {
	if e.windowSize == 0 {
		return
	}
	e.window = append(e.window, bar)
	if len(e.window) > e.windowSize {
		e.window = e.window[len(e.window)-e.windowSize:]
	}

	if e.rsi != nil {
		value, err := e.rsi.Calculate(types.Closes(e.window))
		e.rsiValue, e.rsiReady = value, err == nil
	}
}

// stopIntents closes every open layer when the aggregate position has lost
// StopLossPct from its average entry.
func (e *Engine) stopIntents(bar types.OHLCV) []types.Intent {
	if e.cfg.StopLossPct <= 0 {
		return nil
	}
	pos := e.Position()
	if pos.Size <= 0 || pos.AvgEntry <= 0 {
		return nil
	}
	if (pos.AvgEntry-bar.Close)/pos.AvgEntry < e.cfg.StopLossPct {
		return nil
	}

	e.logger.Info("grid stop triggered",
		zap.Float64("avg_entry", pos.AvgEntry),
		zap.Float64("close", bar.Close),
		zap.Int("layers", pos.Layers))

	var intents []types.Intent
	for _, layer := range e.sortedLayers() {
		if layer.State != LayerOpen || layer.closing != "" {
			continue
		}
		intents = append(intents, e.exitIntent(layer, bar, types.ReasonStopLoss))
	}
	if len(intents) > 0 {
		e.stats.StopOuts++
	}
	return intents
}

// takeProfitIntents closes layers at their take profit, or earlier on an
// overbought RSI once the layer is gateMinProfit in profit.
func (e *Engine) takeProfitIntents(bar types.OHLCV) []types.Intent {
	overbought := e.rsiReady && e.rsiValue > e.cfg.RSIOverbought

	var intents []types.Intent
	for _, layer := range e.sortedLayers() {
		if layer.State != LayerOpen || layer.closing != "" {
			continue
		}
		switch {
		case bar.Close >= layer.TakeProfitPrice(e.cfg.TakeProfitPct):
			intents = append(intents, e.exitIntent(layer, bar, types.ReasonTakeProfit))
		case overbought && bar.Close > layer.EntryPrice*(1+gateMinProfit):
			intents = append(intents, e.exitIntent(layer, bar, types.ReasonSignal))
		}
	}
	return intents
}

// entryGated reports whether the RSI gate holds back an entry at boundary
func (e *Engine) entryGated(bar types.OHLCV, boundary float64) bool {
	if e.rsi == nil {
		return false
	}
	if e.rsiReady && e.rsiValue < e.cfg.RSIOversold {
		return false
	}
	return bar.Close >= boundary*(1-gateBreakthrough)
}

func (e *Engine) exitIntent(layer *Layer, bar types.OHLCV, reason string) types.Intent {
	layer.closing = reason
	e.stats.ExitIntents++
	return types.Intent{
		Ref:       e.ref(),
		Side:      types.SideSell,
		Price:     bar.Close,
		Size:      layer.Size,
		Level:     layer.Level,
		Reason:    reason,
		Timestamp: bar.Timestamp,
	}
}

// entryIntents opens layers at boundaries crossed downward since the
// previous close, nearest to the anchor first. Processing stops at the
// first boundary blocked by a cap or the rsi gate so levels are never
// skipped.
func (e *Engine) entryIntents(bar types.OHLCV) []types.Intent {
	var intents []types.Intent
	committed := e.committedSize()

	ceiling := e.prevClose
	if e.heldBoundary > ceiling {
		ceiling = math.Nextafter(e.heldBoundary, math.Inf(1))
	}
	e.heldBoundary = 0

	for level, boundary := range e.boundaries {
		if boundary >= ceiling {
			continue // crossed on an earlier bar or not below the previous close
		}
		if bar.Close > boundary {
			break // boundaries are descending, none further is crossed
		}
		if _, live := e.layers[level]; live {
			continue
		}

		if e.entryGated(bar, boundary) {
			e.logger.Debug("grid entry held by rsi gate",
				zap.Int("level", level),
				zap.Float64("rsi", e.rsiValue),
				zap.Bool("rsi_ready", e.rsiReady))
			e.heldBoundary = boundary
			break
		}

		size := e.cfg.LayerSize(level)
		if len(e.layers) >= e.cfg.GridLevels {
			e.logger.Debug("grid level cap reached", zap.Int("level", level), zap.Int("live", len(e.layers)))
			break
		}
		if committed+size > e.cfg.MaxPosition+sizeEpsilon {
			e.logger.Debug("grid position cap reached",
				zap.Int("level", level),
				zap.Float64("committed", committed),
				zap.Float64("size", size))
			break
		}

		ref := e.ref()
		e.layers[level] = &Layer{
			Level:    level,
			Boundary: boundary,
			Size:     size,
			State:    LayerPending,
			ref:      ref,
		}
		committed += size
		e.stats.EntryIntents++

		intents = append(intents, types.Intent{
			Ref:       ref,
			Side:      types.SideBuy,
			Price:     boundary,
			Size:      size,
			Level:     level,
			Reason:    types.ReasonGridEntry,
			Timestamp: bar.Timestamp,
		})
	}
	return intents
}

// OnFill applies a fill of an intent returned by OnBar
func (e *Engine) OnFill(fill types.Fill) {
	layer, ok := e.layers[fill.Intent.Level]
	if !ok {
		e.logger.Warn("fill for unknown grid level", zap.Int("level", fill.Intent.Level), zap.Int("ref", fill.Intent.Ref))
		return
	}

	switch fill.Intent.Side {
	case types.SideBuy:
		if layer.State != LayerPending || layer.ref != fill.Intent.Ref {
			e.logger.Warn("unexpected entry fill", zap.Int("level", layer.Level), zap.String("state", layer.State.String()))
			return
		}
		layer.State = LayerOpen
		layer.EntryPrice = fill.Price
		layer.Size = fill.Size
		layer.EntryTime = fill.Time
		layer.EntryCommission = fill.Commission
		e.stats.LayersOpened++

		if open := e.OpenCount(); open > e.stats.MaxConcurrent {
			e.stats.MaxConcurrent = open
		}

		e.logger.Debug("grid layer opened",
			zap.Int("level", layer.Level),
			zap.Float64("price", fill.Price),
			zap.Float64("size", fill.Size))

	case types.SideSell:
		if layer.State != LayerOpen {
			e.logger.Warn("exit fill for layer that is not open", zap.Int("level", layer.Level))
			return
		}
		e.closeLayer(layer, fill)
	}
}

// closeLayer realizes the layer P&L net of entry and exit commission and
// schedules a re-base when it was the last live layer.
func (e *Engine) closeLayer(layer *Layer, fill types.Fill) {
	reason := fill.Intent.Reason
	switch reason {
	case types.ReasonStopLoss:
		layer.State = LayerClosedStop
	case types.ReasonSignal:
		layer.State = LayerClosedProfit
		e.stats.SignalExits++
	default:
		layer.State = LayerClosedProfit
		e.stats.LayersClosedTP++
	}

	gross := (fill.Price - layer.EntryPrice) * layer.Size
	pnl := gross - layer.EntryCommission - fill.Commission

	e.trades.Append(types.Trade{
		EntryTime:   layer.EntryTime,
		ExitTime:    fill.Time,
		EntryPrice:  layer.EntryPrice,
		ExitPrice:   fill.Price,
		Size:        layer.Size,
		RealizedPnL: pnl,
		Commission:  layer.EntryCommission + fill.Commission,
		Level:       layer.Level,
		ExitReason:  reason,
	})
	e.stats.RealizedPnL += pnl
	delete(e.layers, layer.Level)

	e.logger.Debug("grid layer closed",
		zap.Int("level", layer.Level),
		zap.String("state", layer.State.String()),
		zap.Float64("entry", layer.EntryPrice),
		zap.Float64("exit", fill.Price),
		zap.Float64("pnl", pnl))

	if len(e.layers) == 0 && e.cfg.RebaseMode() != config.RebaseNone {
		e.rebasePending = true
	}
}

// OnReject drops the effect of a rejected intent. A rejected entry removes
// its pending layer; a rejected exit leaves the layer open.
func (e *Engine) OnReject(intent types.Intent, err error) {
	e.stats.Rejected++

	layer, ok := e.layers[intent.Level]
	if !ok {
		return
	}
	switch intent.Side {
	case types.SideBuy:
		if layer.State == LayerPending && layer.ref == intent.Ref {
			delete(e.layers, intent.Level)
		}
	case types.SideSell:
		layer.closing = ""
	}

	e.logger.Debug("grid intent rejected",
		zap.Int("level", intent.Level),
		zap.String("side", string(intent.Side)),
		zap.Error(err))
}

func (e *Engine) ref() int {
	e.nextRef++
	return e.nextRef
}

func (e *Engine) committedSize() float64 {
	total := 0.0
	for _, layer := range e.layers {
		total += layer.Size
	}
	return total
}

func (e *Engine) sortedLayers() []*Layer {
	out := make([]*Layer, 0, len(e.layers))
	for _, layer := range e.layers {
		out = append(out, layer)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}

// Anchor returns the current anchor price, 0 before the first bar
func (e *Engine) Anchor() float64 {
	return e.anchor
}

// Spacing returns the boundary spacing fixed at the last anchor
func (e *Engine) Spacing() float64 {
	return e.spacing
}

// Position aggregates the Open layers
func (e *Engine) Position() Position {
	var pos Position
	notional := 0.0
	for _, layer := range e.layers {
		if layer.State != LayerOpen {
			continue
		}
		pos.Size += layer.Size
		notional += layer.EntryPrice * layer.Size
		pos.Layers++
	}
	if pos.Size > 0 {
		pos.AvgEntry = notional / pos.Size
	}
	return pos
}

// Layers returns copies of the live layers ordered by level
func (e *Engine) Layers() []Layer {
	sorted := e.sortedLayers()
	out := make([]Layer, len(sorted))
	for i, layer := range sorted {
		out[i] = *layer
	}
	return out
}

// OpenCount returns the number of Open layers
func (e *Engine) OpenCount() int {
	return e.Position().Layers
}

// Trades returns a copy of the closed-layer trade log
func (e *Engine) Trades() []types.Trade {
	return e.trades.All()
}

// Stats returns the event counters
func (e *Engine) Stats() Stats {
	return e.stats
}

// String summarises the engine state
func (e *Engine) String() string {
	pos := e.Position()
	return fmt.Sprintf("grid anchor=%.2f open=%d size=%.6f avg=%.2f trades=%d",
		e.anchor, pos.Layers, pos.Size, pos.AvgEntry, e.trades.Len())
}
