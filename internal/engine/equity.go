package engine

import "time"

// equityTracker maintains the realized balance, the marked-to-close
// equity curve, and the running drawdown.
type equityTracker struct {
	balance        float64
	peakEquity     float64
	maxDrawdownPct float64
	curve          []EquityPoint
}

func newEquityTracker(initialBalance float64) *equityTracker {
	return &equityTracker{
		balance:    initialBalance,
		peakEquity: initialBalance,
	}
}

// applyTrade realizes a closed trade into the balance.
func (t *equityTracker) applyTrade(trade ClosedTrade) {
	t.balance += trade.NetPnl
}

// markToMarket appends this bar's equity point and updates the peak and
// the worst drawdown. drawdownPercent is never positive.
func (t *equityTracker) markToMarket(ts time.Time, unrealizedPnl float64) EquityPoint {
	equity := t.balance + unrealizedPnl
	if equity > t.peakEquity {
		t.peakEquity = equity
	}

	var drawdown float64
	if t.peakEquity > 0 {
		drawdown = (equity - t.peakEquity) / t.peakEquity * 100
	}
	if drawdown < t.maxDrawdownPct {
		t.maxDrawdownPct = drawdown
	}

	point := EquityPoint{
		Timestamp:       ts,
		Balance:         t.balance,
		Equity:          equity,
		DrawdownPercent: drawdown,
	}
	t.curve = append(t.curve, point)
	return point
}

// drawdownBreached reports whether the worst observed drawdown has
// exceeded the configured limit (limit is positive, drawdown negative).
// A drawdown exactly at the limit does not breach it.
func (t *equityTracker) drawdownBreached(limitPercent float64) bool {
	return t.maxDrawdownPct < -limitPercent
}
