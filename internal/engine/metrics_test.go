package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfitFactor(t *testing.T) {
	tests := []struct {
		name        string
		grossProfit float64
		grossLoss   float64
		want        float64
	}{
		{"wins and losses", 300, -100, 3},
		{"wins without losses is unbounded", 300, 0, math.Inf(1)},
		{"no trades at all", 0, 0, 0},
		{"losses only", 0, -100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, profitFactor(tt.grossProfit, tt.grossLoss))
		})
	}
}

func TestSharpeAndSortino(t *testing.T) {
	t.Run("flat equity has zero ratios", func(t *testing.T) {
		returns := []float64{0, 0, 0}
		assert.Equal(t, 0.0, sharpeRatio(returns, 365))
		assert.Equal(t, 0.0, sortinoRatio(returns, 365))
	})

	t.Run("empty returns are zero", func(t *testing.T) {
		assert.Equal(t, 0.0, sharpeRatio(nil, 365))
		assert.Equal(t, 0.0, sortinoRatio(nil, 365))
	})

	t.Run("sortino is zero without losing periods", func(t *testing.T) {
		assert.Equal(t, 0.0, sortinoRatio([]float64{0.01, 0.02, 0.01}, 365))
	})

	t.Run("sharpe scales with the annualization factor", func(t *testing.T) {
		returns := []float64{0.01, -0.01, 0.02, 0.01}
		got := sharpeRatio(returns, 365)
		require.NotZero(t, got)
		assert.InDelta(t, got*math.Sqrt(8760.0/365.0), sharpeRatio(returns, 8760), 1e-9)
	})
}

func TestCalmarRatio(t *testing.T) {
	assert.Equal(t, 0.0, calmarRatio(25, 0))
	assert.InDelta(t, 2.5, calmarRatio(25, -10), 1e-12)
}

func TestAnnualizedReturn(t *testing.T) {
	t.Run("single bar returns the plain total", func(t *testing.T) {
		assert.InDelta(t, 10.0, annualizedReturn(1000, 1100, 0, 365), 1e-9)
	})

	t.Run("a full year compounds to itself", func(t *testing.T) {
		assert.InDelta(t, 10.0, annualizedReturn(1000, 1100, 365, 365), 1e-9)
	})

	t.Run("half a year doubles the exponent", func(t *testing.T) {
		want := (math.Pow(1.1, 2) - 1) * 100
		assert.InDelta(t, want, annualizedReturn(1000, 1100, 182, 364), 1e-9)
	})

	t.Run("wiped-out equity clamps at -100", func(t *testing.T) {
		assert.Equal(t, -100.0, annualizedReturn(1000, 0, 10, 365))
	})
}

func TestMonthlyReturns(t *testing.T) {
	point := func(year int, month time.Month, day int, equity float64) EquityPoint {
		return EquityPoint{
			Timestamp: time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
			Equity:    equity,
		}
	}

	t.Run("groups by calendar month in order", func(t *testing.T) {
		curve := []EquityPoint{
			point(2024, time.January, 1, 1000),
			point(2024, time.January, 20, 1100),
			point(2024, time.February, 5, 1100),
			point(2024, time.February, 25, 990),
			point(2024, time.March, 2, 990),
		}

		got := monthlyReturns(curve)
		require.Len(t, got, 3)

		assert.Equal(t, "2024-01", got[0].Month)
		assert.InDelta(t, 10.0, got[0].ReturnPercent, 1e-9)
		assert.Equal(t, "2024-02", got[1].Month)
		assert.InDelta(t, -10.0, got[1].ReturnPercent, 1e-9)
		assert.Equal(t, "2024-03", got[2].Month)
		assert.Equal(t, 0.0, got[2].ReturnPercent)
	})

	t.Run("empty curve has no months", func(t *testing.T) {
		assert.Nil(t, monthlyReturns(nil))
	})
}

func TestCalculateMetrics(t *testing.T) {
	trades := []ClosedTrade{
		{Pnl: 110, Fees: 10, NetPnl: 100},
		{Pnl: -45, Fees: 5, NetPnl: -50},
		{Pnl: 55, Fees: 5, NetPnl: 50},
	}
	curve := []EquityPoint{
		{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Equity: 1000},
		{Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Equity: 1050},
		{Timestamp: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Equity: 1100},
	}

	m := calculateMetrics(1000, trades, curve, -4.5, 365)

	assert.Equal(t, 3, m.TotalTrades)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades)
	assert.InDelta(t, 200.0/3.0, m.WinRate, 1e-9)
	assert.InDelta(t, 150.0, m.GrossProfit, 1e-9)
	assert.InDelta(t, -50.0, m.GrossLoss, 1e-9)
	assert.InDelta(t, 100.0, m.TotalNetPnl, 1e-9)
	assert.InDelta(t, 20.0, m.TotalFees, 1e-9)
	assert.InDelta(t, 3.0, m.ProfitFactor, 1e-9)
	assert.Equal(t, -4.5, m.MaxDrawdownPercent)
	assert.InDelta(t, 10.0, m.TotalReturnPercent, 1e-9)
}
