package reporting

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/ducminhle1904/btc-strategy-backtest/internal/backtest"
)

// DefaultCSVReporter implements CSV output functionality
type DefaultCSVReporter struct{}

// NewDefaultCSVReporter creates a new CSV reporter
func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

var tradeHeader = []string{
	"Entry_Time",
	"Exit_Time",
	"Level",
	"Entry_Price",
	"Exit_Price",
	"Size",
	"Commission",
	"PnL",
	"Return_%",
	"Exit_Reason",
}

var equityHeader = []string{"Timestamp", "Cash", "Mark_To_Market", "Equity"}

// WriteTradesCSV writes the trade log, one closed round trip per row
func (r *DefaultCSVReporter) WriteTradesCSV(results *backtest.BacktestResults, path string) error {
	rows := make([][]string, 0, len(results.Trades))
	for _, tr := range results.Trades {
		rows = append(rows, []string{
			tr.EntryTime.Format(time.RFC3339),
			tr.ExitTime.Format(time.RFC3339),
			strconv.Itoa(tr.Level),
			formatFloat(tr.EntryPrice, 2),
			formatFloat(tr.ExitPrice, 2),
			formatFloat(tr.Size, 8),
			formatFloat(tr.Commission, 4),
			formatFloat(tr.RealizedPnL, 4),
			formatFloat(tr.Return()*100, 4),
			tr.ExitReason,
		})
	}
	return writeCSV(path, tradeHeader, rows)
}

// WriteEquityCSV writes the equity curve, one row per bar
func (r *DefaultCSVReporter) WriteEquityCSV(results *backtest.BacktestResults, path string) error {
	rows := make([][]string, 0, len(results.Equity))
	for _, p := range results.Equity {
		rows = append(rows, []string{
			p.Timestamp.Format(time.RFC3339),
			formatFloat(p.Cash, 4),
			formatFloat(p.MarkToMarket, 4),
			formatFloat(p.Equity(), 4),
		})
	}
	return writeCSV(path, equityHeader, rows)
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := NewDefaultPathManager("").EnsureDirectoryExists(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Sync()
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

var comparisonHeader = []string{
	"Rank", "Run", "Strategy", "Total_Return", "Annualized_Return", "Volatility",
	"Sharpe", "Max_Drawdown", "Win_Rate", "Trades", "Error",
}

// WriteComparisonCSV writes ranked runs; failed runs carry only their error
func (r *DefaultCSVReporter) WriteComparisonCSV(runs []backtest.RunResult, path string) error {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		if run.Failed() {
			rows = append(rows, []string{"", run.Name, run.Strategy, "", "", "", "", "", "", "", run.Err.Error()})
			continue
		}
		rep := run.Report
		rows = append(rows, []string{
			strconv.Itoa(run.Rank),
			run.Name,
			run.Strategy,
			formatFloat(rep.TotalReturn, 6),
			formatFloat(rep.AnnualizedReturn, 6),
			formatFloat(rep.AnnualizedVolatility, 6),
			formatFloat(rep.SharpeRatio, 4),
			formatFloat(rep.MaxDrawdown, 6),
			formatFloat(rep.WinRate, 4),
			strconv.Itoa(rep.TradeCount),
			"",
		})
	}
	return writeCSV(path, comparisonHeader, rows)
}
