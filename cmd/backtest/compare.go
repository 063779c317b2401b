package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ducminhle1904/btc-strategy-backtest/internal/backtest"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/reporting"
)

var compareFlags struct {
	suiteFile string
	rankBy    string
	workers   int
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Backtest every run of a suite over the same bars and rank them",
	Long: fmt.Sprintf(`Load a suite file (YAML or JSON) describing one bar feed and many
strategy configurations, backtest them in parallel and rank the results.
Rank keys: %s.`, strings.Join(backtest.RankKeys(), ", ")),
	Args: cobra.NoArgs,
	RunE: runCompare,
}

func init() {
	f := compareCmd.Flags()
	f.StringVarP(&compareFlags.suiteFile, "config", "c", "", "suite file (required)")
	f.StringVar(&compareFlags.rankBy, "rank-by", "", "override the suite rank key")
	f.IntVar(&compareFlags.workers, "workers", 0, "override the suite worker count")

	compareCmd.MarkFlagRequired("config")

	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	suite, err := config.LoadSuite(compareFlags.suiteFile)
	if err != nil {
		return err
	}
	if compareFlags.rankBy != "" {
		suite.RankBy = compareFlags.rankBy
	}
	if compareFlags.workers > 0 {
		suite.Workers = compareFlags.workers
	}

	start, end, err := suite.Range()
	if err != nil {
		return err
	}

	feed, err := newBarFeed(suite.Data, suite.Backtest.Interval)
	if err != nil {
		return err
	}
	bars, err := feed.GetBars(ctx, suite.Backtest.Symbol, start, end)
	if err != nil {
		return err
	}

	specs := make([]backtest.RunSpec, 0, len(suite.Runs))
	for _, r := range suite.Runs {
		specs = append(specs, backtest.RunSpec{Name: r.Name, StrategyID: r.Strategy.Type, Config: r.Strategy})
	}

	log.Info("starting comparison",
		zap.String("symbol", suite.Backtest.Symbol),
		zap.Int("bars", len(bars)),
		zap.Int("runs", len(specs)),
		zap.String("rank_by", suite.RankBy))

	results, err := backtest.Compare(ctx, bars, specs, backtest.CompareOptions{
		Backtest: suite.Backtest,
		RankBy:   suite.RankBy,
		Workers:  suite.Workers,
		Logger:   log,
		Metrics:  metrics,
		Health:   health,
	})
	if err != nil {
		return err
	}

	reporter, err := reporting.NewReportingManager(suite.Report, cmd.OutOrStdout(), log)
	if err != nil {
		return err
	}

	suiteID := uuid.NewString()
	files, err := reporter.ReportComparison(results, suite.Backtest.Symbol, suite.Backtest.Interval, suite.RankBy)
	if err != nil {
		return err
	}
	archiveArtifacts(ctx, suite.Archive, suiteID, files)

	// Per-run files only; the comparison table already covers the console.
	if reporter.Enabled(reporting.FormatCSV) || reporter.Enabled(reporting.FormatJSON) || reporter.Enabled(reporting.FormatExcel) {
		fileCfg := suite.Report
		fileCfg.Formats = withoutFormat(fileCfg.Formats, reporting.FormatConsole)
		runReporter, err := reporting.NewReportingManager(fileCfg, nil, log)
		if err != nil {
			return err
		}
		for _, res := range results {
			if res.Failed() || res.Results == nil {
				continue
			}
			runFiles, err := runReporter.ReportResults(res.Results, suite.Backtest.Interval, res.Name)
			if err != nil {
				return err
			}
			archiveArtifacts(ctx, suite.Archive, res.RunID, runFiles)
		}
	}

	failed := 0
	for _, res := range results {
		if res.Failed() {
			failed++
			log.Warn("run failed", zap.String("run", res.Name), zap.Error(res.Err))
		}
	}
	log.Info("comparison finished",
		zap.String("suite_id", suiteID),
		zap.Int("runs", len(results)),
		zap.Int("failed", failed))
	return nil
}

func withoutFormat(formats []string, drop string) []string {
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		if !strings.EqualFold(strings.TrimSpace(f), drop) {
			out = append(out, f)
		}
	}
	return out
}
