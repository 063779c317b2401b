package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	bterrors "github.com/ducminhle1904/btc-strategy-backtest/internal/errors"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

// fallbackLayouts are tried when a timestamp does not match the column format
var fallbackLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// CSVHeader is written by WriteCSV and skipped by the reader
var CSVHeader = []string{"timestamp", "open", "high", "low", "close", "volume"}

// CSVFeed serves bars from one CSV file per symbol/interval
type CSVFeed struct {
	interval string
	locator  FileLocator
	format   CSVColumnMapping
	logger   *zap.Logger
}

// CSVOption configures a CSVFeed
type CSVOption func(*CSVFeed)

// WithFormat overrides the column mapping
func WithFormat(format CSVColumnMapping) CSVOption {
	return func(f *CSVFeed) { f.format = format }
}

// WithLogger sets the logger used for skipped rows
func WithLogger(logger *zap.Logger) CSVOption {
	return func(f *CSVFeed) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewCSVFeed creates a feed of interval bars located by locator
func NewCSVFeed(locator FileLocator, interval string, opts ...CSVOption) *CSVFeed {
	f := &CSVFeed{
		interval: interval,
		locator:  locator,
		format:   DefaultCSVFormat,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// GetBars implements BarFeed
func (f *CSVFeed) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]types.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := f.locator.Resolve(symbol, f.interval)
	if path == "" {
		return nil, bterrors.DataUnavailable("csv_feed", symbol,
			fmt.Sprintf("no data file for %s %s", symbol, f.interval))
	}

	bars, err := f.LoadFile(path)
	if err != nil {
		return nil, err
	}

	bars = FilterByDateRange(Normalize(bars), start, end)
	if len(bars) == 0 {
		return nil, bterrors.DataUnavailable("csv_feed", symbol,
			fmt.Sprintf("no bars between %s and %s", start.Format(time.RFC3339), end.Format(time.RFC3339)))
	}

	f.logger.Debug("bars loaded",
		zap.String("symbol", symbol),
		zap.String("path", path),
		zap.Int("bars", len(bars)))
	return bars, nil
}

// LoadFile reads every valid bar of a CSV file in file order. Malformed rows
// are skipped and logged.
func (f *CSVFeed) LoadFile(path string) ([]types.OHLCV, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, bterrors.Wrap(err, bterrors.ErrorCategoryDataUnavailable, "csv_feed", "open")
	}
	defer file.Close()

	return f.Read(file)
}

// Read parses bars from r. The first row is treated as a header.
func (f *CSVFeed) Read(r io.Reader) ([]types.OHLCV, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var data []types.OHLCV
	lineNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum, err)
		}
		lineNum++

		bar, err := f.parseRecord(record)
		if err != nil {
			f.logger.Warn("skipping csv row", zap.Int("line", lineNum), zap.Error(err))
			continue
		}
		data = append(data, bar)
	}

	return data, nil
}

func (f *CSVFeed) parseRecord(record []string) (types.OHLCV, error) {
	format := f.format
	if len(record) < format.MinColumns {
		return types.OHLCV{}, fmt.Errorf("expected %d columns, got %d", format.MinColumns, len(record))
	}

	timestamp, err := parseTimestamp(record[format.TimestampCol], format.DateFormat)
	if err != nil {
		return types.OHLCV{}, err
	}

	var values [5]float64
	cols := [5]int{format.OpenCol, format.HighCol, format.LowCol, format.CloseCol, format.VolumeCol}
	for i, col := range cols {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
		if err != nil {
			return types.OHLCV{}, fmt.Errorf("invalid number %q in column %d", record[col], col)
		}
		values[i] = v
	}

	bar := types.OHLCV{
		Timestamp: timestamp,
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}
	if err := bar.Validate(); err != nil {
		return types.OHLCV{}, err
	}
	return bar, nil
}

// parseTimestamp accepts the configured layout, common date layouts, or
// epoch milliseconds as exported by exchanges.
func parseTimestamp(raw, layout string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(layout, raw); err == nil {
		return t.UTC(), nil
	}
	for _, l := range fallbackLayouts {
		if t, err := time.Parse(l, raw); err == nil {
			return t.UTC(), nil
		}
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}

// WriteCSV writes bars in the default format with a header row
func WriteCSV(w io.Writer, bars []types.OHLCV) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return err
	}
	for _, b := range bars {
		record := []string{
			b.Timestamp.UTC().Format(DefaultCSVFormat.DateFormat),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
