package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/btc-strategy-backtest/internal/exchange/bybit"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/data"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

func writeBars(t *testing.T, dir string, n int) {
	t.Helper()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.OHLCV, n)
	for i := range bars {
		p := 40000 + 800*math.Sin(float64(i)/4)
		bars[i] = types.OHLCV{
			Timestamp: t0.Add(time.Duration(i) * time.Hour),
			Open:      p,
			High:      p + 50,
			Low:       p - 50,
			Close:     p,
			Volume:    10,
		}
	}

	f, err := os.Create(filepath.Join(dir, "BTCUSDT_1h.csv"))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, data.WriteCSV(f, bars))
}

func TestRunCommand_EndToEnd(t *testing.T) {
	dataDir := t.TempDir()
	reportDir := t.TempDir()
	writeBars(t, dataDir, 72)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"run", "rsi",
		"--interval", "1h",
		"--from", "2024-01-01",
		"--to", "2024-01-03",
		"--data-dir", dataDir,
		"--report-dir", reportDir,
		"--format", "console,json",
		"--env-file", "",
	})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "BACKTEST RESULTS: rsi BTCUSDT")

	matches, err := filepath.Glob(filepath.Join(reportDir, "BTCUSDT_1h", "*", "report.json"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestNewBarFeed(t *testing.T) {
	feed, err := newBarFeed(config.DataConfig{Source: config.DataSourceCSV, Dir: t.TempDir()}, "1h")
	require.NoError(t, err)
	assert.IsType(t, &data.CSVFeed{}, feed)

	feed, err = newBarFeed(config.DataConfig{Source: config.DataSourceCSV, Cache: true}, "1h")
	require.NoError(t, err)
	assert.IsType(t, &data.CachedFeed{}, feed)

	feed, err = newBarFeed(config.DataConfig{Source: config.DataSourceBybit}, "4h")
	require.NoError(t, err)
	assert.IsType(t, &bybit.Feed{}, feed)

	_, err = newBarFeed(config.DataConfig{Source: "ftp"}, "1h")
	assert.Error(t, err)
}

func TestBybitConfig_EnvCredentials(t *testing.T) {
	t.Setenv("BYBIT_API_KEY", "env-key")
	t.Setenv("BYBIT_API_SECRET", "env-secret")

	cfg := bybitConfig(config.BybitConfig{Category: "linear"})
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "env-secret", cfg.APISecret)
	assert.Equal(t, "linear", cfg.Category)

	cfg = bybitConfig(config.BybitConfig{APIKey: "file-key"})
	assert.Equal(t, "file-key", cfg.APIKey)
	assert.Equal(t, bybit.DefaultConfig().Category, cfg.Category)
}

func TestWithoutFormat(t *testing.T) {
	assert.Equal(t, []string{"csv", "json"}, withoutFormat([]string{"Console", "csv", " console ", "json"}, "console"))
}
