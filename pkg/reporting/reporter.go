package reporting

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ducminhle1904/btc-strategy-backtest/internal/backtest"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
)

// DefaultReporter implements the complete Reporter interface
type DefaultReporter struct {
	console *DefaultConsoleReporter
	csv     *DefaultCSVReporter
	excel   *DefaultExcelReporter
	paths   *DefaultPathManager
}

var _ Reporter = (*DefaultReporter)(nil)

// NewDefaultReporter creates a reporter writing files under root
func NewDefaultReporter(root string) *DefaultReporter {
	return &DefaultReporter{
		console: NewDefaultConsoleReporter(),
		csv:     NewDefaultCSVReporter(),
		excel:   NewDefaultExcelReporter(),
		paths:   NewDefaultPathManager(root),
	}
}

// Console output methods
func (r *DefaultReporter) WriteResults(w io.Writer, results *backtest.BacktestResults) {
	r.console.WriteResults(w, results)
}

func (r *DefaultReporter) WriteComparison(w io.Writer, runs []backtest.RunResult) {
	r.console.WriteComparison(w, runs)
}

// File output methods
func (r *DefaultReporter) WriteTradesCSV(results *backtest.BacktestResults, path string) error {
	return r.csv.WriteTradesCSV(results, path)
}

func (r *DefaultReporter) WriteEquityCSV(results *backtest.BacktestResults, path string) error {
	return r.csv.WriteEquityCSV(results, path)
}

func (r *DefaultReporter) WriteComparisonCSV(runs []backtest.RunResult, path string) error {
	return r.csv.WriteComparisonCSV(runs, path)
}

func (r *DefaultReporter) WriteResultsXLSX(results *backtest.BacktestResults, path string) error {
	return r.excel.WriteResultsXLSX(results, path)
}

func (r *DefaultReporter) WriteComparisonXLSX(runs []backtest.RunResult, path string) error {
	return r.excel.WriteComparisonXLSX(runs, path)
}

// Path management methods
func (r *DefaultReporter) GetDefaultOutputDir(symbol, interval string) string {
	return r.paths.GetDefaultOutputDir(symbol, interval)
}

func (r *DefaultReporter) EnsureDirectoryExists(path string) error {
	return r.paths.EnsureDirectoryExists(path)
}

// ReportingManager writes the outputs selected by a config.ReportConfig
type ReportingManager struct {
	reporter *DefaultReporter
	formats  map[string]bool
	out      io.Writer
	logger   *zap.Logger
}

// NewReportingManager validates the configured formats. Console output goes to out.
func NewReportingManager(cfg config.ReportConfig, out io.Writer, logger *zap.Logger) (*ReportingManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	formats := make(map[string]bool, len(cfg.Formats))
	for _, f := range cfg.Formats {
		f = strings.ToLower(strings.TrimSpace(f))
		switch f {
		case FormatConsole, FormatCSV, FormatJSON, FormatExcel:
			formats[f] = true
		default:
			return nil, fmt.Errorf("unknown report format %q", f)
		}
	}

	return &ReportingManager{
		reporter: NewDefaultReporter(cfg.Dir),
		formats:  formats,
		out:      out,
		logger:   logger,
	}, nil
}

// Enabled reports whether format was selected
func (m *ReportingManager) Enabled(format string) bool {
	return m.formats[format]
}

// ReportResults outputs one run. Files go to <dir>/SYMBOL_interval/<name>/
// and their paths are returned.
func (m *ReportingManager) ReportResults(results *backtest.BacktestResults, interval, name string) ([]string, error) {
	if m.formats[FormatConsole] && m.out != nil {
		m.reporter.WriteResults(m.out, results)
	}

	dir := filepath.Join(m.reporter.GetDefaultOutputDir(results.Symbol, interval), name)
	var written []string

	if m.formats[FormatCSV] {
		tradesPath := filepath.Join(dir, "trades.csv")
		if err := m.reporter.WriteTradesCSV(results, tradesPath); err != nil {
			return written, fmt.Errorf("write trades csv: %w", err)
		}
		equityPath := filepath.Join(dir, "equity.csv")
		if err := m.reporter.WriteEquityCSV(results, equityPath); err != nil {
			return written, fmt.Errorf("write equity csv: %w", err)
		}
		written = append(written, tradesPath, equityPath)
	}

	if m.formats[FormatJSON] {
		path := filepath.Join(dir, "report.json")
		if err := m.reporter.WriteReportJSON(results, path); err != nil {
			return written, fmt.Errorf("write report json: %w", err)
		}
		written = append(written, path)
	}

	if m.formats[FormatExcel] {
		path := filepath.Join(dir, "results.xlsx")
		if err := m.reporter.WriteResultsXLSX(results, path); err != nil {
			return written, fmt.Errorf("write results xlsx: %w", err)
		}
		written = append(written, path)
	}

	for _, p := range written {
		m.logger.Info("report written", zap.String("path", p))
	}
	return written, nil
}

// ReportComparison outputs ranked runs. Files go to <dir>/SYMBOL_interval/.
func (m *ReportingManager) ReportComparison(runs []backtest.RunResult, symbol, interval, rankBy string) ([]string, error) {
	if m.formats[FormatConsole] && m.out != nil {
		m.reporter.WriteComparison(m.out, runs)
	}

	dir := m.reporter.GetDefaultOutputDir(symbol, interval)
	var written []string

	if m.formats[FormatCSV] {
		path := filepath.Join(dir, "comparison.csv")
		if err := m.reporter.WriteComparisonCSV(runs, path); err != nil {
			return written, fmt.Errorf("write comparison csv: %w", err)
		}
		written = append(written, path)
	}

	if m.formats[FormatJSON] {
		path := filepath.Join(dir, "comparison.json")
		if err := m.reporter.WriteReportJSON(NewComparisonReport(runs, rankBy), path); err != nil {
			return written, fmt.Errorf("write comparison json: %w", err)
		}
		written = append(written, path)
	}

	if m.formats[FormatExcel] {
		path := filepath.Join(dir, "comparison.xlsx")
		if err := m.reporter.WriteComparisonXLSX(runs, path); err != nil {
			return written, fmt.Errorf("write comparison xlsx: %w", err)
		}
		written = append(written, path)
	}

	for _, p := range written {
		m.logger.Info("report written", zap.String("path", p))
	}
	return written, nil
}
