package reporting

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/btc-strategy-backtest/internal/backtest"
)

// Sheet names
const (
	SheetSummary    = "Summary"
	SheetTrades     = "Trades"
	SheetEquity     = "Equity"
	SheetComparison = "Comparison"
)

// DefaultExcelReporter implements Excel output functionality
type DefaultExcelReporter struct{}

// NewDefaultExcelReporter creates a new Excel reporter
func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{}
}

// WriteResultsXLSX writes a workbook with Summary, Trades and Equity sheets
func (r *DefaultExcelReporter) WriteResultsXLSX(results *backtest.BacktestResults, path string) error {
	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	for _, sheet := range []string{SheetTrades, SheetEquity} {
		if _, err := fx.NewSheet(sheet); err != nil {
			return err
		}
	}

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeSummarySheet(fx, SheetSummary, results, styles); err != nil {
		return err
	}
	if err := r.writeTradesSheet(fx, SheetTrades, results, styles); err != nil {
		return err
	}
	if err := r.writeEquitySheet(fx, SheetEquity, results, styles); err != nil {
		return err
	}

	return r.save(fx, path)
}

// WriteComparisonXLSX writes a workbook with one Comparison sheet
func (r *DefaultExcelReporter) WriteComparisonXLSX(runs []backtest.RunResult, path string) error {
	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName("Sheet1", SheetComparison); err != nil {
		return err
	}

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}
	if err := r.writeComparisonSheet(fx, SheetComparison, runs, styles); err != nil {
		return err
	}

	return r.save(fx, path)
}

func (r *DefaultExcelReporter) save(fx *excelize.File, path string) error {
	if err := NewDefaultPathManager("").EnsureDirectoryExists(path); err != nil {
		return err
	}
	return fx.SaveAs(path)
}

// createExcelStyles registers the shared cell styles
func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	border := []excelize.Border{
		{Type: "left", Color: "E0E0E0", Style: 1},
		{Type: "right", Color: "E0E0E0", Style: 1},
		{Type: "bottom", Color: "E0E0E0", Style: 1},
	}

	// Header style - dark slate background with white text
	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7, // $#,##0.00
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	if err != nil {
		return styles, err
	}

	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10, // 0.00%
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	if err != nil {
		return styles, err
	}

	styles.RedPercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Font:      &excelize.Font{Color: "C00000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	if err != nil {
		return styles, err
	}

	styles.GreenPercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Font:      &excelize.Font{Color: "008000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left"},
		Border:    border,
	})
	if err != nil {
		return styles, err
	}

	styles.SummaryStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12, Color: "1F3864"},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"DDEBF7"},
			Pattern: 1,
		},
	})
	if err != nil {
		return styles, err
	}

	return styles, nil
}

// signedPercentStyle colors a percentage by its sign
func signedPercentStyle(v float64, styles ExcelStyles) int {
	switch {
	case v > 0:
		return styles.GreenPercentStyle
	case v < 0:
		return styles.RedPercentStyle
	default:
		return styles.PercentStyle
	}
}

func (r *DefaultExcelReporter) writeHeader(fx *excelize.File, sheet string, row int, headers []string, styles ExcelStyles) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, styles.HeaderStyle)
	}
}

// writeRow writes values starting at column A, applying cellStyles[i] when non-zero
func (r *DefaultExcelReporter) writeRow(fx *excelize.File, sheet string, row int, values []interface{}, cellStyles []int) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		fx.SetCellValue(sheet, cell, v)
		if i < len(cellStyles) && cellStyles[i] != 0 {
			fx.SetCellStyle(sheet, cell, cell, cellStyles[i])
		}
	}
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, results *backtest.BacktestResults, styles ExcelStyles) error {
	fx.SetColWidth(sheet, "A", "A", 26)
	fx.SetColWidth(sheet, "B", "B", 24)

	fx.SetCellValue(sheet, "A1", fmt.Sprintf("%s %s", results.Strategy, results.Symbol))
	fx.SetCellStyle(sheet, "A1", "B1", styles.SummaryStyle)
	fx.MergeCell(sheet, "A1", "B1")

	r.writeHeader(fx, sheet, 3, []string{"Metric", "Value"}, styles)

	rep := results.Report
	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Start", results.Start.Format("2006-01-02 15:04:05"), styles.BaseStyle},
		{"End", results.End.Format("2006-01-02 15:04:05"), styles.BaseStyle},
		{"Bars", rep.BarCount, styles.BaseStyle},
		{"Initial Cash", results.InitialCash, styles.CurrencyStyle},
		{"Final Equity", rep.FinalEquity, styles.CurrencyStyle},
		{"Final Cash", results.FinalCash, styles.CurrencyStyle},
		{"Final Holdings", results.FinalHoldings, styles.BaseStyle},
		{"Total Return", rep.TotalReturn, signedPercentStyle(rep.TotalReturn, styles)},
		{"Annualized Return", rep.AnnualizedReturn, signedPercentStyle(rep.AnnualizedReturn, styles)},
		{"Annualized Volatility", rep.AnnualizedVolatility, styles.PercentStyle},
		{"Max Drawdown", rep.MaxDrawdown, styles.RedPercentStyle},
		{"Sharpe Ratio", rep.SharpeRatio, styles.BaseStyle},
		{"Sortino Ratio", rep.SortinoRatio, styles.BaseStyle},
		{"Calmar Ratio", rep.CalmarRatio, styles.BaseStyle},
		{"Trades", rep.TradeCount, styles.BaseStyle},
		{"Winning Trades", rep.WinningTrades, styles.BaseStyle},
		{"Losing Trades", rep.LosingTrades, styles.BaseStyle},
		{"Win Rate", rep.WinRate, styles.PercentStyle},
		{"Avg Trade Return", rep.AverageTradeReturn, signedPercentStyle(rep.AverageTradeReturn, styles)},
		{"Profit Factor", rep.ProfitFactor, styles.BaseStyle},
		{"Skipped Signals", len(results.Skipped), styles.BaseStyle},
	}

	row := 4
	for _, item := range rows {
		r.writeRow(fx, sheet, row, []interface{}{item.label, item.value}, []int{styles.BaseStyle, item.style})
		row++
	}
	return nil
}

func (r *DefaultExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, results *backtest.BacktestResults, styles ExcelStyles) error {
	fx.SetColWidth(sheet, "A", "B", 20) // Entry / Exit time
	fx.SetColWidth(sheet, "C", "C", 8)  // Level
	fx.SetColWidth(sheet, "D", "I", 14)
	fx.SetColWidth(sheet, "J", "J", 14) // Exit reason

	r.writeHeader(fx, sheet, 1, []string{
		"Entry Time", "Exit Time", "Level", "Entry Price", "Exit Price",
		"Size", "Commission", "PnL", "Return", "Exit Reason",
	}, styles)

	for i, tr := range results.Trades {
		ret := tr.Return()
		r.writeRow(fx, sheet, i+2, []interface{}{
			tr.EntryTime.Format("2006-01-02 15:04:05"),
			tr.ExitTime.Format("2006-01-02 15:04:05"),
			tr.Level,
			tr.EntryPrice,
			tr.ExitPrice,
			tr.Size,
			tr.Commission,
			tr.RealizedPnL,
			ret,
			tr.ExitReason,
		}, []int{
			styles.BaseStyle, styles.BaseStyle, styles.BaseStyle,
			styles.CurrencyStyle, styles.CurrencyStyle, styles.BaseStyle,
			styles.CurrencyStyle, styles.CurrencyStyle,
			signedPercentStyle(ret, styles), styles.BaseStyle,
		})
	}

	if len(results.Trades) > 0 {
		fx.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}
	return nil
}

func (r *DefaultExcelReporter) writeEquitySheet(fx *excelize.File, sheet string, results *backtest.BacktestResults, styles ExcelStyles) error {
	fx.SetColWidth(sheet, "A", "A", 20)
	fx.SetColWidth(sheet, "B", "E", 16)

	r.writeHeader(fx, sheet, 1, []string{"Timestamp", "Cash", "Mark To Market", "Equity", "Drawdown"}, styles)

	peak := 0.0
	for i, p := range results.Equity {
		equity := p.Equity()
		if equity > peak {
			peak = equity
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - equity) / peak
		}
		r.writeRow(fx, sheet, i+2, []interface{}{
			p.Timestamp.Format("2006-01-02 15:04:05"),
			p.Cash,
			p.MarkToMarket,
			equity,
			dd,
		}, []int{styles.BaseStyle, styles.CurrencyStyle, styles.CurrencyStyle, styles.CurrencyStyle, styles.PercentStyle})
	}
	return nil
}

func (r *DefaultExcelReporter) writeComparisonSheet(fx *excelize.File, sheet string, runs []backtest.RunResult, styles ExcelStyles) error {
	fx.SetColWidth(sheet, "A", "A", 6)
	fx.SetColWidth(sheet, "B", "B", 24)
	fx.SetColWidth(sheet, "C", "C", 12)
	fx.SetColWidth(sheet, "D", "K", 14)
	fx.SetColWidth(sheet, "L", "L", 40)

	r.writeHeader(fx, sheet, 1, []string{
		"Rank", "Run", "Strategy", "Total Return", "Ann. Return", "Volatility",
		"Sharpe", "Sortino", "Max DD", "Win Rate", "Trades", "Error",
	}, styles)

	for i, run := range runs {
		row := i + 2
		if run.Failed() {
			r.writeRow(fx, sheet, row, []interface{}{"", run.Name, run.Strategy, "", "", "", "", "", "", "", "", run.Err.Error()},
				[]int{styles.BaseStyle, styles.BaseStyle, styles.BaseStyle})
			continue
		}
		rep := run.Report
		r.writeRow(fx, sheet, row, []interface{}{
			run.Rank,
			run.Name,
			run.Strategy,
			rep.TotalReturn,
			rep.AnnualizedReturn,
			rep.AnnualizedVolatility,
			rep.SharpeRatio,
			rep.SortinoRatio,
			rep.MaxDrawdown,
			rep.WinRate,
			rep.TradeCount,
		}, []int{
			styles.BaseStyle, styles.BaseStyle, styles.BaseStyle,
			signedPercentStyle(rep.TotalReturn, styles),
			signedPercentStyle(rep.AnnualizedReturn, styles),
			styles.PercentStyle, styles.BaseStyle, styles.BaseStyle,
			styles.RedPercentStyle, styles.PercentStyle, styles.BaseStyle,
		})
	}
	return nil
}
