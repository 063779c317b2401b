package backtest

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bterrors "github.com/ducminhle1904/btc-strategy-backtest/internal/errors"
	"github.com/ducminhle1904/btc-strategy-backtest/internal/monitoring"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

// Rank keys
const (
	RankTotalReturn          = "total_return"
	RankSharpeRatio          = "sharpe_ratio"
	RankAnnualizedReturn     = "annualized_return"
	RankWinRate              = "win_rate"
	RankMaxDrawdown          = "max_drawdown"
	RankAnnualizedVolatility = "annualized_volatility"
)

// rankKeys maps a key to its metric and whether lower is better
var rankKeys = map[string]struct {
	value     func(PerformanceReport) float64
	ascending bool
}{
	RankTotalReturn:          {func(r PerformanceReport) float64 { return r.TotalReturn }, false},
	RankSharpeRatio:          {func(r PerformanceReport) float64 { return r.SharpeRatio }, false},
	RankAnnualizedReturn:     {func(r PerformanceReport) float64 { return r.AnnualizedReturn }, false},
	RankWinRate:              {func(r PerformanceReport) float64 { return r.WinRate }, false},
	RankMaxDrawdown:          {func(r PerformanceReport) float64 { return r.MaxDrawdown }, true},
	RankAnnualizedVolatility: {func(r PerformanceReport) float64 { return r.AnnualizedVolatility }, true},
}

// RankKeys lists the accepted rank keys
func RankKeys() []string {
	keys := make([]string, 0, len(rankKeys))
	for k := range rankKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RunSpec names one strategy configuration of a comparison
type RunSpec struct {
	Name       string
	StrategyID string
	Config     config.StrategyConfig
}

// RunResult is the outcome of one configuration. Err is set for failed runs,
// which keep Rank 0 and sort after every successful run.
type RunResult struct {
	RunID    string            `json:"run_id"`
	Index    int               `json:"-"`
	Name     string            `json:"name"`
	Strategy string            `json:"strategy"`
	Rank     int               `json:"rank"`
	Report   PerformanceReport `json:"report"`
	Results  *BacktestResults  `json:"-"`
	Err      error             `json:"-"`
	Duration time.Duration     `json:"duration"`
}

// Failed reports whether the run ended with an error
func (r RunResult) Failed() bool {
	return r.Err != nil
}

// CompareOptions configures a comparison
type CompareOptions struct {
	Backtest config.BacktestConfig
	RankBy   string // defaults to total_return
	Workers  int    // <= 0 uses one worker per CPU

	Logger  *zap.Logger
	Metrics *monitoring.Metrics
	Health  *monitoring.HealthChecker
}

// Compare backtests every spec over the same bars in parallel and returns the
// results ranked by opts.RankBy. A failing configuration is recorded and the
// others continue. An invalid rank key or backtest config fails the whole
// comparison. When ctx is cancelled the partial results are returned with
// ctx.Err(); runs that never finished carry their config error if they have
// one, ctx.Err() otherwise.
func Compare(ctx context.Context, bars []types.OHLCV, specs []RunSpec, opts CompareOptions) ([]RunResult, error) {
	rankBy := opts.RankBy
	if rankBy == "" {
		rankBy = RankTotalReturn
	}
	if _, ok := rankKeys[rankBy]; !ok {
		return nil, bterrors.ConfigInvalid("compare", "unknown rank key %q, expected one of %v", rankBy, RankKeys())
	}
	if err := opts.Backtest.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	poolOpts := []Option{WithLogger(logger), WithMetrics(opts.Metrics), WithHealth(opts.Health)}

	engine := NewBacktestEngine(opts.Backtest, poolOpts...)
	pool := NewWorkerPool(ctx, engine, opts.Workers, len(specs), poolOpts...)
	pool.Start()

	for i, spec := range specs {
		job := BacktestJob{ID: uuid.NewString(), Index: i, Spec: spec, Bars: bars}
		if err := pool.SubmitJob(job); err != nil {
			break
		}
	}

	results := make([]RunResult, len(specs))
	received := make([]bool, len(specs))
	progress := NewProgressTracker(len(specs))

collect:
	for n := 0; n < len(specs); n++ {
		select {
		case res := <-pool.GetResults():
			results[res.Index] = res
			received[res.Index] = true
			progress.Increment()
			done, total, pct, elapsed := progress.GetProgress()
			logger.Info("comparison progress",
				zap.String("run", res.Name),
				zap.Int("completed", done),
				zap.Int("total", total),
				zap.Float64("percent", pct),
				zap.Duration("elapsed", elapsed),
				zap.Duration("remaining", progress.EstimateTimeRemaining()))
		case <-ctx.Done():
			break collect
		}
	}
	pool.Stop()
	for res := range pool.GetResults() {
		results[res.Index] = res
		received[res.Index] = true
	}

	for i, spec := range specs {
		if received[i] {
			continue
		}
		err := ctx.Err()
		if cfgErr := spec.Config.Validate(); cfgErr != nil {
			err = cfgErr
		}
		results[i] = RunResult{
			RunID:    uuid.NewString(),
			Index:    i,
			Name:     spec.Name,
			Strategy: spec.StrategyID,
			Err:      err,
		}
	}

	Rank(results, rankBy)
	return results, ctx.Err()
}

// Rank sorts results in place by rankBy, breaking ties by name, with failed
// runs last, and assigns 1-based ranks to successful runs.
func Rank(results []RunResult, rankBy string) {
	key, ok := rankKeys[rankBy]
	if !ok {
		key = rankKeys[RankTotalReturn]
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Failed() != b.Failed() {
			return !a.Failed()
		}
		if !a.Failed() {
			va, vb := key.value(a.Report), key.value(b.Report)
			if va != vb {
				if key.ascending {
					return va < vb
				}
				return va > vb
			}
		}
		return a.Name < b.Name
	})

	rank := 0
	for i := range results {
		if results[i].Failed() {
			results[i].Rank = 0
			continue
		}
		rank++
		results[i].Rank = rank
	}
}
