package engine

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// calculateMetrics derives the aggregate statistics from the completed
// trade log and equity curve. Called exactly once, after the replay.
func calculateMetrics(initialBalance float64, trades []ClosedTrade, curve []EquityPoint, maxDrawdownPct, periodsPerYear float64) Metrics {
	m := Metrics{
		TotalTrades:        len(trades),
		MaxDrawdownPercent: maxDrawdownPct,
	}

	for _, trade := range trades {
		m.TotalNetPnl += trade.NetPnl
		m.TotalFees += trade.Fees
		if trade.NetPnl > 0 {
			m.WinningTrades++
			m.GrossProfit += trade.NetPnl
		} else {
			m.LosingTrades++
			m.GrossLoss += trade.NetPnl
		}
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	}
	m.ProfitFactor = profitFactor(m.GrossProfit, m.GrossLoss)

	finalEquity := initialBalance
	if len(curve) > 0 {
		finalEquity = curve[len(curve)-1].Equity
	}
	m.TotalReturnPercent = (finalEquity/initialBalance - 1) * 100
	m.AnnualizedReturnPercent = annualizedReturn(initialBalance, finalEquity, len(curve)-1, periodsPerYear)

	returns := periodReturns(curve)
	m.SharpeRatio = sharpeRatio(returns, periodsPerYear)
	m.SortinoRatio = sortinoRatio(returns, periodsPerYear)
	m.CalmarRatio = calmarRatio(m.AnnualizedReturnPercent, maxDrawdownPct)

	return m
}

// profitFactor is grossProfit/|grossLoss|. Unbounded profit (wins and
// zero losses) reports the +Inf sentinel; no trades at all report 0.
func profitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return grossProfit / math.Abs(grossLoss)
}

// periodReturns converts the equity curve into per-bar returns.
func periodReturns(curve []EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, curve[i].Equity/prev-1)
	}
	return returns
}

func sharpeRatio(returns []float64, periodsPerYear float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sd := stat.PopStdDev(returns, nil)
	if sd == 0 {
		return 0
	}
	return stat.Mean(returns, nil) / sd * math.Sqrt(periodsPerYear)
}

// sortinoRatio uses the deviation of negative returns only; zero when
// the run has no losing periods.
func sortinoRatio(returns []float64, periodsPerYear float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return 0
	}
	sd := stat.PopStdDev(downside, nil)
	if sd == 0 {
		return 0
	}
	return stat.Mean(returns, nil) / sd * math.Sqrt(periodsPerYear)
}

func calmarRatio(annualizedReturnPct, maxDrawdownPct float64) float64 {
	if maxDrawdownPct == 0 {
		return 0
	}
	return annualizedReturnPct / math.Abs(maxDrawdownPct)
}

// annualizedReturn compounds the total return over the observed period
// count. With one bar or less there is nothing to annualize.
func annualizedReturn(initialBalance, finalEquity float64, periods int, periodsPerYear float64) float64 {
	total := finalEquity / initialBalance
	if periods < 1 || periodsPerYear <= 0 {
		return (total - 1) * 100
	}
	if total <= 0 {
		return -100
	}
	return (math.Pow(total, periodsPerYear/float64(periods)) - 1) * 100
}

// monthlyReturns groups the equity curve by calendar month; each
// bucket's return compares its last equity sample to its first.
func monthlyReturns(curve []EquityPoint) []MonthlyReturn {
	if len(curve) == 0 {
		return nil
	}

	var months []MonthlyReturn
	var firstEquity, lastEquity float64
	currentMonth := ""

	flush := func() {
		if currentMonth == "" {
			return
		}
		var ret float64
		if firstEquity != 0 {
			ret = (lastEquity/firstEquity - 1) * 100
		}
		months = append(months, MonthlyReturn{Month: currentMonth, ReturnPercent: ret})
	}

	for _, point := range curve {
		month := point.Timestamp.UTC().Format("2006-01")
		if month != currentMonth {
			flush()
			currentMonth = month
			firstEquity = point.Equity
		}
		lastEquity = point.Equity
	}
	flush()

	return months
}
