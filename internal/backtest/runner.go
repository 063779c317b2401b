package backtest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ducminhle1904/btc-strategy-backtest/internal/monitoring"
	"github.com/ducminhle1904/btc-strategy-backtest/internal/strategy"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/data"
)

// Runner is the programmatic entry point: it fetches bars from a feed and
// runs one strategy over them.
type Runner struct {
	feed    data.BarFeed
	cfg     config.BacktestConfig
	opts    []Option
	logger  *zap.Logger
	metrics *monitoring.Metrics
	health  *monitoring.HealthChecker
}

func NewRunner(feed data.BarFeed, cfg config.BacktestConfig, opts ...Option) *Runner {
	o := buildOptions(opts)
	return &Runner{
		feed:    feed,
		cfg:     cfg,
		opts:    opts,
		logger:  o.logger,
		metrics: o.metrics,
		health:  o.health,
	}
}

// Run backtests strategyID with cfg over [start, end] and returns the report
func (r *Runner) Run(ctx context.Context, strategyID string, cfg config.StrategyConfig, start, end time.Time) (*PerformanceReport, error) {
	res, err := r.RunDetailed(ctx, strategyID, cfg, start, end)
	if err != nil {
		return nil, err
	}
	return &res.Report, nil
}

// RunDetailed is Run returning trades, equity curve and skipped signals too.
// Configuration errors surface before any bar is fetched.
func (r *Runner) RunDetailed(ctx context.Context, strategyID string, cfg config.StrategyConfig, start, end time.Time) (*BacktestResults, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}
	strat, err := strategy.New(strategyID, cfg, r.logger)
	if err != nil {
		return nil, err
	}
	return r.RunStrategy(ctx, strat, start, end)
}

// RunStrategy runs a pre-built strategy. A feed failure is returned before
// the strategy sees any bar.
func (r *Runner) RunStrategy(ctx context.Context, strat strategy.Strategy, start, end time.Time) (res *BacktestResults, err error) {
	name := strat.Name()
	began := time.Now()
	r.health.RunStarted(name)
	defer func() {
		r.health.RunFinished(name, err)
		r.metrics.RecordRun(name, err, time.Since(began))
	}()

	bars, err := r.feed.GetBars(ctx, r.cfg.Symbol, start, end)
	if err != nil {
		r.logger.Error("bar feed failed",
			zap.String("strategy", name),
			zap.String("symbol", r.cfg.Symbol),
			zap.Error(err))
		return nil, err
	}

	return NewBacktestEngine(r.cfg, r.opts...).Run(ctx, strat, bars)
}
