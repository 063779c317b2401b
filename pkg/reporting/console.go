package reporting

import (
	"fmt"
	"io"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/btc-strategy-backtest/internal/backtest"
)

// DefaultConsoleReporter renders go-pretty tables
type DefaultConsoleReporter struct{}

// NewDefaultConsoleReporter creates a new console reporter
func NewDefaultConsoleReporter() *DefaultConsoleReporter {
	return &DefaultConsoleReporter{}
}

// WriteResults renders the summary of one run
func (r *DefaultConsoleReporter) WriteResults(w io.Writer, results *backtest.BacktestResults) {
	rep := results.Report

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("BACKTEST RESULTS: %s %s", results.Strategy, results.Symbol))
	t.SetStyle(table.StyleRounded)

	winRate := fmt.Sprintf("%s (%d/%d)", formatPercent(rep.WinRate), rep.WinningTrades, rep.TradeCount)

	t.AppendRows([]table.Row{
		{"Period", fmt.Sprintf("%s → %s", results.Start.Format("2006-01-02 15:04"), results.End.Format("2006-01-02 15:04"))},
		{"Bars", rep.BarCount},
		{"Initial Cash", formatCurrency(results.InitialCash)},
		{"Final Equity", formatCurrency(rep.FinalEquity)},
		{"Final Holdings", fmt.Sprintf("%.6f", results.FinalHoldings)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Total Return", formatPercent(rep.TotalReturn)},
		{"Annualized Return", formatPercent(rep.AnnualizedReturn)},
		{"Annualized Volatility", formatPercent(rep.AnnualizedVolatility)},
		{"Max Drawdown", formatPercent(rep.MaxDrawdown)},
		{"Sharpe Ratio", formatRatio(rep.SharpeRatio)},
		{"Sortino Ratio", formatRatio(rep.SortinoRatio)},
		{"Calmar Ratio", formatRatio(rep.CalmarRatio)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Trades", rep.TradeCount},
		{"Win Rate", winRate},
		{"Avg Trade Return", formatPercent(rep.AverageTradeReturn)},
		{"Profit Factor", formatRatio(rep.ProfitFactor)},
		{"Skipped Signals", len(results.Skipped)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 22, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, Align: text.AlignRight},
	})

	t.Render()
}

// WriteComparison renders ranked runs, failed runs last with their error
func (r *DefaultConsoleReporter) WriteComparison(w io.Writer, runs []backtest.RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("STRATEGY COMPARISON")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Run", "Strategy", "Return", "Ann. Return", "Sharpe", "Max DD", "Win Rate", "Trades"})

	for _, run := range runs {
		if run.Failed() {
			t.AppendRow(table.Row{"-", run.Name, run.Strategy, "FAILED", run.Err.Error(), "", "", "", ""})
			continue
		}
		rep := run.Report
		t.AppendRow(table.Row{
			run.Rank,
			run.Name,
			run.Strategy,
			formatPercent(rep.TotalReturn),
			formatPercent(rep.AnnualizedReturn),
			formatRatio(rep.SharpeRatio),
			formatPercent(rep.MaxDrawdown),
			formatPercent(rep.WinRate),
			rep.TradeCount,
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, WidthMin: 12, Align: text.AlignLeft},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
		{Number: 9, Align: text.AlignRight},
	})

	t.Render()
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func formatCurrency(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func formatRatio(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}
