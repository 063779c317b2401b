package backtest

import (
	"math"

	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

// degenerateThreshold is the volatility below which ratios resolve to 0
const degenerateThreshold = 1e-12

// PerformanceReport summarizes one run. All ratios and returns are
// fractions, not percentages.
type PerformanceReport struct {
	TotalReturn          float64 `json:"total_return"`
	AnnualizedReturn     float64 `json:"annualized_return"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	WinRate              float64 `json:"win_rate"`
	AverageTradeReturn   float64 `json:"average_trade_return"`
	TradeCount           int     `json:"trade_count"`

	FinalEquity   float64 `json:"final_equity"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	ProfitFactor  float64 `json:"profit_factor"`
	SortinoRatio  float64 `json:"sortino_ratio"`
	CalmarRatio   float64 `json:"calmar_ratio"`
	BarCount      int     `json:"bar_count"`
}

// Analyze reduces a trade log and an equity curve to a PerformanceReport.
// It is pure: the same inputs always produce the same report. Degenerate
// inputs (no trades, flat equity, no losses) resolve the affected metric to 0.
func Analyze(trades []types.Trade, equity []types.EquityPoint, initialCash, barsPerYear float64) PerformanceReport {
	report := PerformanceReport{
		TradeCount:  len(trades),
		BarCount:    len(equity),
		FinalEquity: initialCash,
	}

	if len(equity) > 0 {
		report.FinalEquity = equity[len(equity)-1].Equity()
	}
	if initialCash > 0 {
		report.TotalReturn = (report.FinalEquity - initialCash) / initialCash
	}
	report.AnnualizedReturn = annualizedReturn(report.TotalReturn, barsPerYear, len(equity))

	returns := barReturns(equity)
	mean, std := meanStdDev(returns)
	if barsPerYear > 0 {
		report.AnnualizedVolatility = std * math.Sqrt(barsPerYear)
		if std >= degenerateThreshold {
			report.SharpeRatio = mean * barsPerYear / report.AnnualizedVolatility
		}
		if downside := downsideDeviation(returns); downside >= degenerateThreshold {
			report.SortinoRatio = mean * barsPerYear / (downside * math.Sqrt(barsPerYear))
		}
	}

	report.MaxDrawdown = maxDrawdown(equity)
	if report.MaxDrawdown >= degenerateThreshold {
		report.CalmarRatio = report.AnnualizedReturn / report.MaxDrawdown
	}

	report.WinningTrades, report.LosingTrades = countWinsLosses(trades)
	if len(trades) > 0 {
		report.WinRate = float64(report.WinningTrades) / float64(len(trades))
		report.AverageTradeReturn = averageTradeReturn(trades)
	}
	report.ProfitFactor = profitFactor(trades)

	return report
}

// annualizedReturn compounds the total return to a yearly rate
func annualizedReturn(totalReturn, barsPerYear float64, barCount int) float64 {
	if barCount == 0 || barsPerYear <= 0 {
		return 0
	}
	growth := 1 + totalReturn
	if growth <= 0 {
		return -1
	}
	return math.Pow(growth, barsPerYear/float64(barCount)) - 1
}

// barReturns computes close-to-close returns along the equity curve
func barReturns(equity []types.EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity()
		if prev <= 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, equity[i].Equity()/prev-1)
	}
	return returns
}

// meanStdDev returns mean and population standard deviation
func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	return mean, math.Sqrt(variance)
}

// downsideDeviation is the root mean square of negative returns
func downsideDeviation(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range returns {
		if r < 0 {
			sum += r * r
		}
	}
	return math.Sqrt(sum / float64(len(returns)))
}

// maxDrawdown is the largest peak-to-trough decline as a fraction of the peak
func maxDrawdown(equity []types.EquityPoint) float64 {
	peak := 0.0
	worst := 0.0
	for _, p := range equity {
		v := p.Equity()
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak; dd > worst {
			worst = dd
		}
	}
	return math.Min(math.Max(worst, 0), 1)
}

func countWinsLosses(trades []types.Trade) (wins, losses int) {
	for _, t := range trades {
		switch {
		case t.RealizedPnL > 0:
			wins++
		case t.RealizedPnL < 0:
			losses++
		}
	}
	return wins, losses
}

func averageTradeReturn(trades []types.Trade) float64 {
	sum := 0.0
	for _, t := range trades {
		sum += t.Return()
	}
	return sum / float64(len(trades))
}

// profitFactor is gross profit over gross loss, 0 when there is no loss
func profitFactor(trades []types.Trade) float64 {
	profit, loss := 0.0, 0.0
	for _, t := range trades {
		if t.RealizedPnL > 0 {
			profit += t.RealizedPnL
		} else {
			loss += math.Abs(t.RealizedPnL)
		}
	}
	if loss == 0 {
		return 0
	}
	return profit / loss
}
