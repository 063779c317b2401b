package data

import (
	"context"
	"sort"
	"time"

	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

// FilterByDateRange keeps bars with start <= timestamp <= end
func FilterByDateRange(data []types.OHLCV, start, end time.Time) []types.OHLCV {
	if len(data) == 0 {
		return nil
	}

	lo := sort.Search(len(data), func(i int) bool {
		return !data[i].Timestamp.Before(start)
	})
	hi := sort.Search(len(data), func(i int) bool {
		return data[i].Timestamp.After(end)
	})
	if lo >= hi {
		return nil
	}

	out := make([]types.OHLCV, hi-lo)
	copy(out, data[lo:hi])
	return out
}

// FilterByPeriod keeps the trailing period ending at the last bar
func FilterByPeriod(data []types.OHLCV, period time.Duration) []types.OHLCV {
	if period <= 0 || len(data) == 0 {
		return data
	}
	cutoff := data[len(data)-1].Timestamp.Add(-period)
	return FilterByDateRange(data, cutoff, data[len(data)-1].Timestamp)
}

// SortByTimestamp returns a copy sorted ascending by timestamp
func SortByTimestamp(data []types.OHLCV) []types.OHLCV {
	sorted := make([]types.OHLCV, len(data))
	copy(sorted, data)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

// RemoveDuplicates drops repeated timestamps, keeping the first occurrence
func RemoveDuplicates(data []types.OHLCV) []types.OHLCV {
	if len(data) <= 1 {
		return data
	}

	filtered := make([]types.OHLCV, 0, len(data))
	seen := make(map[int64]bool, len(data))
	for _, candle := range data {
		ts := candle.Timestamp.UnixNano()
		if seen[ts] {
			continue
		}
		seen[ts] = true
		filtered = append(filtered, candle)
	}
	return filtered
}

// Normalize sorts bars and removes duplicate timestamps so the result
// satisfies types.CheckSequence.
func Normalize(data []types.OHLCV) []types.OHLCV {
	return RemoveDuplicates(SortByTimestamp(data))
}

// TrailingFeed narrows another BarFeed to the trailing period ending at the
// last bar it returns.
type TrailingFeed struct {
	feed   BarFeed
	period time.Duration
}

func NewTrailingFeed(feed BarFeed, period time.Duration) *TrailingFeed {
	return &TrailingFeed{feed: feed, period: period}
}

// GetBars implements BarFeed
func (f *TrailingFeed) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]types.OHLCV, error) {
	bars, err := f.feed.GetBars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	return FilterByPeriod(bars, f.period), nil
}
