package data

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bterrors "github.com/ducminhle1904/btc-strategy-backtest/internal/errors"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

const sampleCSV = `timestamp,open,high,low,close,volume
2024-01-03 00:00:00,102,104,101,103,12
2024-01-01 00:00:00,100,101,99,100,10
2024-01-02 00:00:00,100,103,99,102,11
2024-01-02 00:00:00,100,103,99,102,11
2024-01-04 00:00:00,bad,104,101,103,12
2024-01-05 00:00:00,103,102,101,103,12
1704672000000,103,106,102,105,14
`

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func writeSeries(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVFeed_GetBars(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, dir, "BTCUSDT_1d.csv", sampleCSV)

	feed := NewCSVFeed(NewDefaultFileLocator(dir, "{symbol}_{interval}.csv", nil), "1d")

	bars, err := feed.GetBars(context.Background(), "btcusdt", day(1), day(31))
	require.NoError(t, err)

	// bad number and high < open rows are skipped, the duplicate is dropped
	require.Len(t, bars, 4)
	assert.NoError(t, types.CheckSequence(bars))
	assert.Equal(t, day(1), bars[0].Timestamp)
	assert.Equal(t, day(8), bars[3].Timestamp)
	assert.Equal(t, 105.0, bars[3].Close)
}

func TestCSVFeed_RangeIsInclusive(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, dir, "BTCUSDT_1d.csv", sampleCSV)
	feed := NewCSVFeed(NewDefaultFileLocator(dir, "{symbol}_{interval}.csv", nil), "1d")

	bars, err := feed.GetBars(context.Background(), "BTCUSDT", day(2), day(3))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 102.0, bars[0].Close)
	assert.Equal(t, 103.0, bars[1].Close)
}

func TestCSVFeed_DataUnavailable(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, dir, "BTCUSDT_1d.csv", sampleCSV)
	feed := NewCSVFeed(NewDefaultFileLocator(dir, "{symbol}_{interval}.csv", nil), "1d")

	_, err := feed.GetBars(context.Background(), "BTCUSDT", day(20), day(25))
	assert.ErrorIs(t, err, bterrors.ErrDataUnavailable)

	_, err = feed.GetBars(context.Background(), "ETHUSDT", day(1), day(31))
	assert.ErrorIs(t, err, bterrors.ErrDataUnavailable)
}

func TestCSVFeed_CancelledContext(t *testing.T) {
	feed := NewCSVFeed(NewDefaultFileLocator(t.TempDir(), "", nil), "1d")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := feed.GetBars(ctx, "BTCUSDT", day(1), day(2))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileLocator_ExchangeLayout(t *testing.T) {
	dir := t.TempDir()
	want := writeSeries(t, dir, filepath.Join("bybit", "linear", "BTCUSDT", "240", "candles.csv"), sampleCSV)

	locator := NewDefaultFileLocator(dir, "{symbol}_{interval}.csv", nil)
	assert.Equal(t, want, locator.Resolve("btcusdt", "4h"))
	assert.Equal(t, "", locator.Resolve("btcusdt", "1h"))
}

func TestConvertIntervalToMinutes(t *testing.T) {
	tests := map[string]string{
		"5m":  "5",
		"1h":  "60",
		"4h":  "240",
		"1d":  "1440",
		"1w":  "10080",
		"15":  "15",
		"abc": "abc",
	}
	for in, want := range tests {
		assert.Equal(t, want, ConvertIntervalToMinutes(in), in)
	}
	assert.Equal(t, "BTCUSDT/240.csv", ExpandTemplate("{symbol}/{minutes}.csv", "btcusdt", "4h"))
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	bars := []types.OHLCV{
		{Timestamp: day(1), Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 3},
		{Timestamp: day(2), Open: 100.5, High: 102, Low: 100, Close: 101, Volume: 4},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, bars))
	assert.True(t, strings.HasPrefix(buf.String(), "timestamp,open,high,low,close,volume\n"))

	got, err := NewCSVFeed(nil, "1d").Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, bars, got)
}

type countingFeed struct {
	calls int
	bars  []types.OHLCV
}

func (f *countingFeed) GetBars(_ context.Context, symbol string, _, _ time.Time) ([]types.OHLCV, error) {
	f.calls++
	if len(f.bars) == 0 {
		return nil, bterrors.DataUnavailable("test", symbol, "empty")
	}
	return f.bars, nil
}

func TestCachedFeed(t *testing.T) {
	inner := &countingFeed{bars: []types.OHLCV{{Timestamp: day(1), Open: 1, High: 1, Low: 1, Close: 1}}}
	feed := NewCachedFeed(inner)
	ctx := context.Background()

	first, err := feed.GetBars(ctx, "BTCUSDT", day(1), day(2))
	require.NoError(t, err)
	first[0].Close = 999

	second, err := feed.GetBars(ctx, "BTCUSDT", day(1), day(2))
	require.NoError(t, err)
	assert.Equal(t, 1.0, second[0].Close, "cache hands out copies")
	assert.Equal(t, 1, inner.calls)

	_, err = feed.GetBars(ctx, "BTCUSDT", day(1), day(3))
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)

	stats := feed.Stats()
	assert.Equal(t, int64(1), stats.HitCount)
	assert.Equal(t, int64(2), stats.MissCount)
	assert.Equal(t, 2, stats.Size)

	feed.ClearCache()
	assert.Equal(t, 0, feed.Stats().Size)
}

func TestCachedFeed_ErrorsNotCached(t *testing.T) {
	inner := &countingFeed{}
	feed := NewCachedFeed(inner)

	for i := 0; i < 2; i++ {
		_, err := feed.GetBars(context.Background(), "BTCUSDT", day(1), day(2))
		assert.ErrorIs(t, err, bterrors.ErrDataUnavailable)
	}
	assert.Equal(t, 2, inner.calls)
}

func TestFilters(t *testing.T) {
	bars := []types.OHLCV{
		{Timestamp: day(3)}, {Timestamp: day(1)}, {Timestamp: day(2)}, {Timestamp: day(1)},
	}
	norm := Normalize(bars)
	require.Len(t, norm, 3)
	assert.NoError(t, types.CheckSequence(norm))

	assert.Len(t, FilterByPeriod(norm, 24*time.Hour), 2)
	assert.Empty(t, FilterByDateRange(norm, day(5), day(6)))
	assert.Empty(t, FilterByDateRange(nil, day(1), day(2)))
}

func TestTrailingFeed(t *testing.T) {
	inner := &countingFeed{bars: []types.OHLCV{
		{Timestamp: day(1)}, {Timestamp: day(2)}, {Timestamp: day(3)}, {Timestamp: day(4)},
	}}

	bars, err := NewTrailingFeed(inner, 48*time.Hour).GetBars(context.Background(), "BTCUSDT", day(1), day(4))
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, day(2), bars[0].Timestamp)

	bars, err = NewTrailingFeed(inner, 0).GetBars(context.Background(), "BTCUSDT", day(1), day(4))
	require.NoError(t, err)
	assert.Len(t, bars, 4, "zero period keeps every bar")

	_, err = NewTrailingFeed(&countingFeed{}, time.Hour).GetBars(context.Background(), "BTCUSDT", day(1), day(4))
	assert.ErrorIs(t, err, bterrors.ErrDataUnavailable)
}
