package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ducminhle1904/btc-strategy-backtest/internal/backtest"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/reporting"
)

var optimizeFlags struct {
	symbol     string
	interval   string
	from       string
	to         string
	source     string
	dataDir    string
	configFile string
	rankBy     string
	workers    int
	periods    []int
	oversold   []float64
	spacings   []float64
	levels     []int
	save       string
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize <rsi|grid>",
	Short: "Sweep a parameter grid and report the best configuration",
	Long: `Backtest every combination of the given parameter values on top of the
base configuration (--config or defaults) and rank them.

  rsi:  --periods x --oversold
  grid: --spacings x --levels`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{config.StrategyRSI, config.StrategyGrid},
	RunE:      runOptimize,
}

func init() {
	def := config.DefaultSuite()
	f := optimizeCmd.Flags()
	f.StringVar(&optimizeFlags.symbol, "symbol", def.Backtest.Symbol, "symbol to backtest")
	f.StringVar(&optimizeFlags.interval, "interval", def.Backtest.Interval, "bar interval")
	f.StringVar(&optimizeFlags.from, "from", "", "start date YYYY-MM-DD (required)")
	f.StringVar(&optimizeFlags.to, "to", "", "end date YYYY-MM-DD, inclusive (required)")
	f.StringVar(&optimizeFlags.source, "data", def.Data.Source, "bar source: csv or bybit")
	f.StringVar(&optimizeFlags.dataDir, "data-dir", def.Data.Dir, "CSV data root")
	f.StringVar(&optimizeFlags.configFile, "config", "", "base strategy config file")
	f.StringVar(&optimizeFlags.rankBy, "rank-by", def.RankBy, "rank key")
	f.IntVar(&optimizeFlags.workers, "workers", def.Workers, "parallel runs")
	f.IntSliceVar(&optimizeFlags.periods, "periods", []int{7, 14, 21}, "RSI periods")
	f.Float64SliceVar(&optimizeFlags.oversold, "oversold", []float64{20, 25, 30}, "RSI oversold levels")
	f.Float64SliceVar(&optimizeFlags.spacings, "spacings", []float64{250, 500, 1000}, "grid spacings")
	f.IntSliceVar(&optimizeFlags.levels, "levels", []int{5, 10}, "grid level counts")
	f.StringVar(&optimizeFlags.save, "save", "", "write the best configuration to this JSON file")

	optimizeCmd.MarkFlagRequired("from")
	optimizeCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	strategyID := strings.ToLower(args[0])

	start, end, err := config.ParseRange(optimizeFlags.from, optimizeFlags.to)
	if err != nil {
		return err
	}
	base, err := config.LoadStrategyConfig(optimizeFlags.configFile, strategyID)
	if err != nil {
		return err
	}

	btCfg := config.NewDefaultBacktestConfig()
	btCfg.Symbol = strings.ToUpper(optimizeFlags.symbol)
	btCfg.Interval = optimizeFlags.interval

	dc := config.DefaultSuite().Data
	dc.Source = optimizeFlags.source
	dc.Dir = optimizeFlags.dataDir
	feed, err := newBarFeed(dc, btCfg.Interval)
	if err != nil {
		return err
	}
	bars, err := feed.GetBars(ctx, btCfg.Symbol, start, end)
	if err != nil {
		return err
	}

	opt := backtest.NewParameterOptimizer(bars, backtest.CompareOptions{
		Backtest: btCfg,
		RankBy:   optimizeFlags.rankBy,
		Workers:  optimizeFlags.workers,
		Logger:   log,
		Metrics:  metrics,
		Health:   health,
	})

	var res *backtest.OptimizationResult
	switch strategyID {
	case config.StrategyRSI:
		res, err = opt.OptimizeRSI(ctx, base.RSI, optimizeFlags.periods, optimizeFlags.oversold)
	case config.StrategyGrid:
		res, err = opt.OptimizeGrid(ctx, base.Grid, optimizeFlags.spacings, optimizeFlags.levels)
	default:
		return fmt.Errorf("optimize supports rsi and grid, got %q", strategyID)
	}
	if err != nil {
		return err
	}

	reporting.NewDefaultConsoleReporter().WriteComparison(cmd.OutOrStdout(), res.All)
	if err := reporting.PrintJSON(cmd.OutOrStdout(), res.BestConfig); err != nil {
		return err
	}

	if optimizeFlags.save != "" {
		if err := config.SaveStrategyConfig(res.BestConfig, optimizeFlags.save); err != nil {
			return err
		}
		log.Info("best configuration saved", zap.String("path", optimizeFlags.save))
	}

	log.Info("optimization finished",
		zap.String("best", res.Best.Name),
		zap.Float64("total_return", res.Best.Report.TotalReturn),
		zap.Int("combinations", len(res.All)))
	return nil
}
