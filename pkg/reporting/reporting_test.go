package reporting

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/btc-strategy-backtest/internal/backtest"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func sampleResults() *backtest.BacktestResults {
	return &backtest.BacktestResults{
		Strategy:    "grid",
		Symbol:      "BTCUSDT",
		Start:       t0,
		End:         t0.Add(2 * time.Hour),
		InitialCash: 1000,
		FinalCash:   1010,
		Report: backtest.PerformanceReport{
			TotalReturn:   0.01,
			MaxDrawdown:   0.005,
			TradeCount:    1,
			WinningTrades: 1,
			WinRate:       1,
			FinalEquity:   1010,
			BarCount:      3,
		},
		Trades: []types.Trade{{
			EntryTime:   t0,
			ExitTime:    t0.Add(time.Hour),
			EntryPrice:  100,
			ExitPrice:   110,
			Size:        1,
			RealizedPnL: 10,
			Level:       0,
			ExitReason:  "take_profit",
		}},
		Equity: []types.EquityPoint{
			{Timestamp: t0, Cash: 1000},
			{Timestamp: t0.Add(time.Hour), Cash: 900, MarkToMarket: 95},
			{Timestamp: t0.Add(2 * time.Hour), Cash: 1010},
		},
	}
}

func sampleRuns() []backtest.RunResult {
	return []backtest.RunResult{
		{RunID: "a", Rank: 1, Name: "wide", Strategy: "grid", Report: backtest.PerformanceReport{TotalReturn: 0.015, TradeCount: 2}},
		{RunID: "b", Rank: 2, Name: "rsi", Strategy: "rsi"},
		{RunID: "c", Name: "broken", Strategy: "grid", Err: errors.New("grid_levels must be positive")},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestConsole_WriteResults(t *testing.T) {
	var buf bytes.Buffer
	NewDefaultConsoleReporter().WriteResults(&buf, sampleResults())

	out := buf.String()
	assert.Contains(t, out, "BACKTEST RESULTS: grid BTCUSDT")
	assert.Contains(t, out, "Total Return")
	assert.Contains(t, out, "1.00%")
	assert.Contains(t, out, "$1010.00")
}

func TestConsole_WriteComparison(t *testing.T) {
	var buf bytes.Buffer
	NewDefaultConsoleReporter().WriteComparison(&buf, sampleRuns())

	out := buf.String()
	assert.Contains(t, out, "STRATEGY COMPARISON")
	assert.Contains(t, out, "wide")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "grid_levels must be positive")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("wide")), bytes.Index(buf.Bytes(), []byte("broken")))
}

func TestCSV_TradesAndEquity(t *testing.T) {
	dir := t.TempDir()
	r := NewDefaultCSVReporter()

	tradesPath := filepath.Join(dir, "nested", "trades.csv")
	require.NoError(t, r.WriteTradesCSV(sampleResults(), tradesPath))
	rows := readCSV(t, tradesPath)
	require.Len(t, rows, 2)
	assert.Equal(t, tradeHeader, rows[0])
	assert.Equal(t, "100.00", rows[1][3])
	assert.Equal(t, "10.0000", rows[1][8])
	assert.Equal(t, "take_profit", rows[1][9])

	equityPath := filepath.Join(dir, "equity.csv")
	require.NoError(t, r.WriteEquityCSV(sampleResults(), equityPath))
	rows = readCSV(t, equityPath)
	require.Len(t, rows, 4)
	assert.Equal(t, "995.0000", rows[2][3])
}

func TestCSV_Comparison(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comparison.csv")
	require.NoError(t, NewDefaultCSVReporter().WriteComparisonCSV(sampleRuns(), path))

	rows := readCSV(t, path)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"1", "wide", "grid"}, rows[1][:3])
	assert.Equal(t, "", rows[3][0])
	assert.Equal(t, "grid_levels must be positive", rows[3][10])
}

func TestNewComparisonReport(t *testing.T) {
	doc := NewComparisonReport(sampleRuns(), "total_return")
	require.Len(t, doc.Runs, 3)
	assert.Equal(t, "total_return", doc.RankBy)
	require.NotNil(t, doc.Runs[0].Report)
	assert.Equal(t, 0.015, doc.Runs[0].Report.TotalReturn)
	assert.Nil(t, doc.Runs[2].Report)
	assert.Equal(t, "grid_levels must be positive", doc.Runs[2].Error)

	data, err := marshalIndent(doc)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded["runs"], 3)
}

func TestExcel_Results(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	require.NoError(t, NewDefaultExcelReporter().WriteResultsXLSX(sampleResults(), path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.Equal(t, []string{SheetSummary, SheetTrades, SheetEquity}, fx.GetSheetList())

	v, err := fx.GetCellValue(SheetTrades, "J2")
	require.NoError(t, err)
	assert.Equal(t, "take_profit", v)

	rows, err := fx.GetRows(SheetEquity)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestExcel_Comparison(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comparison.xlsx")
	require.NoError(t, NewDefaultExcelReporter().WriteComparisonXLSX(sampleRuns(), path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	name, err := fx.GetCellValue(SheetComparison, "B2")
	require.NoError(t, err)
	assert.Equal(t, "wide", name)

	errCell, err := fx.GetCellValue(SheetComparison, "L4")
	require.NoError(t, err)
	assert.Equal(t, "grid_levels must be positive", errCell)
}

func TestReportingManager(t *testing.T) {
	root := t.TempDir()
	var buf bytes.Buffer

	m, err := NewReportingManager(config.ReportConfig{
		Dir:     root,
		Formats: []string{"console", "csv", "json", "excel"},
	}, &buf, nil)
	require.NoError(t, err)

	written, err := m.ReportResults(sampleResults(), "1h", "run-1")
	require.NoError(t, err)
	assert.Len(t, written, 4)
	for _, p := range written {
		assert.FileExists(t, p)
		assert.Equal(t, filepath.Join(root, "BTCUSDT_1h", "run-1"), filepath.Dir(p))
	}
	assert.Contains(t, buf.String(), "BACKTEST RESULTS")

	written, err = m.ReportComparison(sampleRuns(), "btcusdt", "1h", "total_return")
	require.NoError(t, err)
	assert.Len(t, written, 3)
	assert.FileExists(t, filepath.Join(root, "BTCUSDT_1h", "comparison.json"))
}

func TestReportingManager_ConsoleOnly(t *testing.T) {
	root := t.TempDir()
	m, err := NewReportingManager(config.ReportConfig{Dir: root, Formats: []string{"console"}}, &bytes.Buffer{}, nil)
	require.NoError(t, err)

	written, err := m.ReportResults(sampleResults(), "1h", "run-1")
	require.NoError(t, err)
	assert.Empty(t, written)
	assert.NoDirExists(t, filepath.Join(root, "BTCUSDT_1h"))
}

func TestNewReportingManager_UnknownFormat(t *testing.T) {
	_, err := NewReportingManager(config.ReportConfig{Formats: []string{"pdf"}}, nil, nil)
	assert.Error(t, err)
}

func TestDefaultOutputDir(t *testing.T) {
	assert.Equal(t, filepath.Join("results", "BTCUSDT_4h"), DefaultOutputDir(" btcusdt ", "4H"))
	assert.Equal(t, filepath.Join("results", "UNKNOWN_unknown"), DefaultOutputDir("", ""))
}
