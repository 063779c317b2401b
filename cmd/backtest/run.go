package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ducminhle1904/btc-strategy-backtest/internal/backtest"
	"github.com/ducminhle1904/btc-strategy-backtest/internal/logger"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/data"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/reporting"
)

var runFlags struct {
	symbol      string
	interval    string
	from        string
	to          string
	source      string
	dataDir     string
	template    string
	configFile  string
	cash        float64
	commission  float64
	slippageBps float64
	reportDir   string
	formats     []string
	archiveType string
	archivePath string
	logDir      string
	last        time.Duration
}

var runCmd = &cobra.Command{
	Use:   "run <strategy>",
	Short: "Backtest one strategy",
	Long: fmt.Sprintf(`Run one strategy (%s) over historical bars and print its
performance report. Strategy parameters come from --config or defaults.`,
		strings.Join(config.SupportedStrategies(), ", ")),
	Args: cobra.ExactArgs(1),
	RunE: runBacktest,
}

func init() {
	def := config.DefaultSuite()
	f := runCmd.Flags()
	f.StringVar(&runFlags.symbol, "symbol", def.Backtest.Symbol, "symbol to backtest")
	f.StringVar(&runFlags.interval, "interval", def.Backtest.Interval, "bar interval (1m, 5m, 15m, 30m, 1h, 4h, 1d)")
	f.StringVar(&runFlags.from, "from", "", "start date YYYY-MM-DD (required)")
	f.StringVar(&runFlags.to, "to", "", "end date YYYY-MM-DD, inclusive (required)")
	f.StringVar(&runFlags.source, "data", def.Data.Source, "bar source: csv or bybit")
	f.StringVar(&runFlags.dataDir, "data-dir", def.Data.Dir, "CSV data root")
	f.StringVar(&runFlags.template, "path-template", def.Data.PathTemplate, "CSV file name template under --data-dir")
	f.StringVar(&runFlags.configFile, "config", "", "strategy config file (YAML or JSON)")
	f.Float64Var(&runFlags.cash, "cash", def.Backtest.InitialCash, "initial cash")
	f.Float64Var(&runFlags.commission, "commission", def.Backtest.Commission, "commission rate per fill")
	f.Float64Var(&runFlags.slippageBps, "slippage-bps", def.Backtest.SlippageBps, "slippage per fill in basis points")
	f.StringVar(&runFlags.reportDir, "report-dir", def.Report.Dir, "output directory for report files")
	f.StringSliceVar(&runFlags.formats, "format", def.Report.Formats, "report formats: console, csv, json, excel")
	f.StringVar(&runFlags.archiveType, "archive", "", "archive report files: localfs or s3 (s3 settings come from BTCBT_ARCHIVE_S3_* env)")
	f.StringVar(&runFlags.archivePath, "archive-path", "archive", "localfs archive directory")
	f.DurationVar(&runFlags.last, "last", 0, "only backtest this trailing duration of the fetched bars, e.g. 720h")
	f.StringVar(&runFlags.logDir, "log-dir", "", "also write the run log to {SYMBOL}_{strategy}.log in this directory")

	runCmd.MarkFlagRequired("from")
	runCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(runCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	strategyID := strings.ToLower(args[0])

	start, end, err := config.ParseRange(runFlags.from, runFlags.to)
	if err != nil {
		return err
	}

	btCfg := config.NewDefaultBacktestConfig()
	btCfg.Symbol = strings.ToUpper(runFlags.symbol)
	btCfg.Interval = runFlags.interval
	btCfg.InitialCash = runFlags.cash
	btCfg.Commission = runFlags.commission
	btCfg.SlippageBps = runFlags.slippageBps

	if runFlags.logDir != "" {
		l, err := logger.New(logger.Options{
			Development: debug,
			File:        logger.RunFile(runFlags.logDir, btCfg.Symbol, strategyID),
		})
		if err != nil {
			return fmt.Errorf("creating run logger: %w", err)
		}
		log = l
	}

	stratCfg, err := config.LoadStrategyConfig(runFlags.configFile, strategyID)
	if err != nil {
		return err
	}
	if stratCfg.Type == config.StrategyGrid {
		log.Debug(stratCfg.Grid.GetGridInfo(),
			zap.Float64("max_committed_size", stratCfg.Grid.CalculateRequiredSize()))
	}

	dc := config.DefaultSuite().Data
	dc.Source = runFlags.source
	dc.Dir = runFlags.dataDir
	dc.PathTemplate = runFlags.template
	feed, err := newBarFeed(dc, btCfg.Interval)
	if err != nil {
		return err
	}
	if runFlags.last > 0 {
		feed = data.NewTrailingFeed(feed, runFlags.last)
	}

	reporter, err := reporting.NewReportingManager(config.ReportConfig{
		Dir:     runFlags.reportDir,
		Formats: runFlags.formats,
	}, cmd.OutOrStdout(), log)
	if err != nil {
		return err
	}

	log.Info("starting backtest",
		zap.String("strategy", strategyID),
		zap.String("symbol", btCfg.Symbol),
		zap.String("interval", btCfg.Interval),
		zap.Time("from", start),
		zap.Time("to", end))

	runner := backtest.NewRunner(feed, btCfg, runOptions()...)
	results, err := runner.RunDetailed(ctx, strategyID, stratCfg, start, end)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	files, err := reporter.ReportResults(results, btCfg.Interval, runID)
	if err != nil {
		return err
	}

	archiveArtifacts(ctx, runArchiveConfig(), runID, files)

	log.Info("backtest finished", zap.String("run_id", runID), zap.String("summary", results.Summary()))
	return nil
}

// runArchiveConfig builds the archive settings of a single run from flags.
// S3 settings are read with the same env overrides as suites.
func runArchiveConfig() config.ArchiveConfig {
	ac := config.ArchiveConfig{Type: runFlags.archiveType, Path: runFlags.archivePath}
	if ac.Type == config.ArchiveS3 {
		ac.S3 = config.S3ConfigFromEnv()
	}
	return ac
}
