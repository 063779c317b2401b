package data

import (
	"context"
	"time"

	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

// BarFeed supplies historical bars for a symbol
type BarFeed interface {
	// GetBars returns the bars with start <= timestamp <= end in strictly
	// increasing time order, or a DataUnavailable error when none exist.
	GetBars(ctx context.Context, symbol string, start, end time.Time) ([]types.OHLCV, error)
}

// DataCache interface for caching loaded bars
type DataCache interface {
	// Get retrieves data from cache if available
	Get(key string) ([]types.OHLCV, bool)

	// Set stores data in cache
	Set(key string, data []types.OHLCV)

	// Clear removes all cached data
	Clear()

	// Size returns the number of cached entries
	Size() int
}

// CSVColumnMapping defines the column positions for different CSV formats
type CSVColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	MinColumns   int
	DateFormat   string
}

// Predefined CSV formats
var (
	DefaultCSVFormat = CSVColumnMapping{
		TimestampCol: 0,
		OpenCol:      1,
		HighCol:      2,
		LowCol:       3,
		CloseCol:     4,
		VolumeCol:    5,
		MinColumns:   6,
		DateFormat:   "2006-01-02 15:04:05",
	}

	// DailyCSVFormat matches exports with a plain date column
	DailyCSVFormat = CSVColumnMapping{
		TimestampCol: 0,
		OpenCol:      1,
		HighCol:      2,
		LowCol:       3,
		CloseCol:     4,
		VolumeCol:    5,
		MinColumns:   6,
		DateFormat:   "2006-01-02",
	}
)

// FileLocator finds the CSV file holding one symbol/interval series
type FileLocator interface {
	// Resolve returns the path for symbol/interval, or "" when no file exists
	Resolve(symbol, interval string) string
}
