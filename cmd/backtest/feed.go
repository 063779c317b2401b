package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ducminhle1904/btc-strategy-backtest/internal/backtest"
	"github.com/ducminhle1904/btc-strategy-backtest/internal/exchange/bybit"
	"github.com/ducminhle1904/btc-strategy-backtest/internal/storage/archive"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/data"
)

// newBarFeed builds the bar feed selected by dc for interval bars
func newBarFeed(dc config.DataConfig, interval string) (data.BarFeed, error) {
	switch dc.Source {
	case config.DataSourceBybit:
		return bybit.NewFeed(bybitConfig(dc.Bybit), interval, bybit.WithLogger(log))

	case config.DataSourceCSV, "":
		locator := data.NewDefaultFileLocator(dc.Dir, dc.PathTemplate, log)
		var feed data.BarFeed = data.NewCSVFeed(locator, interval, data.WithLogger(log))
		if dc.Cache {
			feed = data.NewCachedFeed(feed)
		}
		return feed, nil

	default:
		return nil, fmt.Errorf("unknown data source %q", dc.Source)
	}
}

// bybitConfig fills credentials missing from the config from BYBIT_API_KEY
// and BYBIT_API_SECRET
func bybitConfig(bc config.BybitConfig) bybit.Config {
	cfg := bybit.DefaultConfig()
	if bc.BaseURL != "" {
		cfg.BaseURL = bc.BaseURL
	}
	if bc.Category != "" {
		cfg.Category = bc.Category
	}
	if bc.Timeout > 0 {
		cfg.Timeout = bc.Timeout
	}

	cfg.APIKey = bc.APIKey
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("BYBIT_API_KEY")
	}
	cfg.APISecret = bc.APISecret
	if cfg.APISecret == "" {
		cfg.APISecret = os.Getenv("BYBIT_API_SECRET")
	}
	return cfg
}

// runOptions are the engine options every command passes
func runOptions() []backtest.Option {
	return []backtest.Option{
		backtest.WithLogger(log),
		backtest.WithMetrics(metrics),
		backtest.WithHealth(health),
	}
}

// archiveArtifacts copies written report files to the configured archive.
// Archiving is best effort: failures are logged, not returned.
func archiveArtifacts(ctx context.Context, ac config.ArchiveConfig, runID string, files []string) {
	if len(files) == 0 {
		return
	}
	store, err := archive.New(ac)
	if err != nil {
		log.Warn("archive unavailable", zap.Error(err))
		return
	}
	if store == nil {
		return
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	if _, err := archive.NewArchiver(store, log).Archive(ctx, runID, files); err != nil {
		log.Warn("archiving failed", zap.String("run_id", runID), zap.Error(err))
	}
}
