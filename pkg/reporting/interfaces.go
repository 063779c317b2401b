// Package reporting renders backtest results and comparisons as console
// tables, CSV, JSON and Excel files.
package reporting

import (
	"io"

	"github.com/ducminhle1904/btc-strategy-backtest/internal/backtest"
)

// Output formats accepted in config.ReportConfig.Formats
const (
	FormatConsole = "console"
	FormatCSV     = "csv"
	FormatJSON    = "json"
	FormatExcel   = "excel"
)

// ConsoleReporter renders results as text tables
type ConsoleReporter interface {
	WriteResults(w io.Writer, results *backtest.BacktestResults)
	WriteComparison(w io.Writer, runs []backtest.RunResult)
}

// FileReporter writes result artifacts to disk
type FileReporter interface {
	WriteTradesCSV(results *backtest.BacktestResults, path string) error
	WriteEquityCSV(results *backtest.BacktestResults, path string) error
	WriteComparisonCSV(runs []backtest.RunResult, path string) error
	WriteReportJSON(v interface{}, path string) error
	WriteResultsXLSX(results *backtest.BacktestResults, path string) error
	WriteComparisonXLSX(runs []backtest.RunResult, path string) error
}

// PathManager defines interface for output path management
type PathManager interface {
	GetDefaultOutputDir(symbol, interval string) string
	EnsureDirectoryExists(path string) error
}

// Reporter combines all reporting interfaces
type Reporter interface {
	ConsoleReporter
	FileReporter
	PathManager
}

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle       int
	CurrencyStyle     int
	PercentStyle      int
	BaseStyle         int
	RedPercentStyle   int
	GreenPercentStyle int
	SummaryStyle      int
}
