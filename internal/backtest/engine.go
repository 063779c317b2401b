package backtest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	bterrors "github.com/ducminhle1904/btc-strategy-backtest/internal/errors"
	"github.com/ducminhle1904/btc-strategy-backtest/internal/monitoring"
	"github.com/ducminhle1904/btc-strategy-backtest/internal/strategy"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

// SkippedSignal records an intent the simulator refused
type SkippedSignal struct {
	Time   time.Time    `json:"time"`
	Intent types.Intent `json:"intent"`
	Reason string       `json:"reason"`
}

// BacktestResults is the full outcome of one run
type BacktestResults struct {
	Strategy      string              `json:"strategy"`
	Symbol        string              `json:"symbol"`
	Start         time.Time           `json:"start"`
	End           time.Time           `json:"end"`
	InitialCash   float64             `json:"initial_cash"`
	FinalCash     float64             `json:"final_cash"`
	FinalHoldings float64             `json:"final_holdings"`
	Report        PerformanceReport   `json:"report"`
	Trades        []types.Trade       `json:"trades"`
	Equity        []types.EquityPoint `json:"equity"`
	Skipped       []SkippedSignal     `json:"skipped"`
}

// BacktestEngine drives one strategy over a bar series against a fresh
// simulator. It holds no per-run state and may be shared across goroutines.
type BacktestEngine struct {
	cfg     config.BacktestConfig
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// Option configures engines, runners and comparisons
type Option func(*options)

type options struct {
	logger  *zap.Logger
	metrics *monitoring.Metrics
	health  *monitoring.HealthChecker
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records run counters on m
func WithMetrics(m *monitoring.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithHealth reports run progress to h
func WithHealth(h *monitoring.HealthChecker) Option {
	return func(o *options) { o.health = h }
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func NewBacktestEngine(cfg config.BacktestConfig, opts ...Option) *BacktestEngine {
	o := buildOptions(opts)
	return &BacktestEngine{
		cfg:     cfg,
		logger:  o.logger,
		metrics: o.metrics,
	}
}

// Run feeds bars to strat one at a time. Intents of a bar are submitted in
// emission order and answered with OnFill or OnReject before the next bar.
// One equity point is recorded per bar; ctx is checked between bars.
func (b *BacktestEngine) Run(ctx context.Context, strat strategy.Strategy, bars []types.OHLCV) (*BacktestResults, error) {
	if len(bars) == 0 {
		return nil, bterrors.DataUnavailable("engine", b.cfg.Symbol, "no bars to process")
	}
	if err := types.CheckSequence(bars); err != nil {
		return nil, bterrors.Wrap(err, bterrors.ErrorCategoryDataUnavailable, "engine", "check_sequence")
	}

	name := strat.Name()
	log := b.logger.With(zap.String("strategy", name), zap.String("symbol", b.cfg.Symbol))
	sim := NewSimulator(b.cfg)

	equity := make([]types.EquityPoint, 0, len(bars))
	var skipped []SkippedSignal

	for _, bar := range bars {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		intents := strat.OnBar(bar)
		b.metrics.RecordBar(name)

		for _, intent := range intents {
			b.metrics.RecordIntent(name, string(intent.Side))

			fill, err := sim.Submit(intent, bar)
			if err != nil {
				strat.OnReject(intent, err)
				skipped = append(skipped, SkippedSignal{Time: bar.Timestamp, Intent: intent, Reason: err.Error()})
				b.metrics.RecordRejection(name)
				log.Debug("intent rejected",
					zap.Int("ref", intent.Ref),
					zap.String("side", string(intent.Side)),
					zap.Float64("price", intent.Price),
					zap.Error(err))
				continue
			}
			strat.OnFill(fill)
		}

		equity = append(equity, sim.Mark(bar))
	}

	trades := strat.Trades()
	for _, t := range trades {
		b.metrics.RecordTrade(name, t.ExitReason)
	}

	results := &BacktestResults{
		Strategy:      name,
		Symbol:        b.cfg.Symbol,
		Start:         bars[0].Timestamp,
		End:           bars[len(bars)-1].Timestamp,
		InitialCash:   b.cfg.InitialCash,
		FinalCash:     sim.Cash(),
		FinalHoldings: sim.Holdings(),
		Report:        Analyze(trades, equity, b.cfg.InitialCash, b.cfg.EffectiveBarsPerYear()),
		Trades:        trades,
		Equity:        equity,
		Skipped:       skipped,
	}

	log.Info("backtest finished",
		zap.Int("bars", len(bars)),
		zap.Int("trades", len(trades)),
		zap.Int("skipped", len(skipped)),
		zap.Float64("total_return", results.Report.TotalReturn))

	return results, nil
}

// Summary returns a one-line description of the results
func (r *BacktestResults) Summary() string {
	return fmt.Sprintf("%s %s: return %.2f%%, sharpe %.2f, max dd %.2f%%, %d trades",
		r.Strategy, r.Symbol,
		r.Report.TotalReturn*100, r.Report.SharpeRatio, r.Report.MaxDrawdown*100, r.Report.TradeCount)
}
