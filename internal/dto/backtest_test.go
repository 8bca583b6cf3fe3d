package dto

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-backtest/internal/engine"
)

func TestPeriodsPerYear(t *testing.T) {
	tests := []struct {
		interval string
		want     float64
	}{
		{"1m", 525600},
		{"1h", 8760},
		{"1d", 365},
		{"1w", 52},
		{"1M", 12},
	}
	for _, tt := range tests {
		got, ok := PeriodsPerYear(tt.interval)
		require.True(t, ok, tt.interval)
		assert.Equal(t, tt.want, got)
	}

	_, ok := PeriodsPerYear("7m")
	assert.False(t, ok)
}

func TestNewBacktestData_ClampsUnboundedProfitFactor(t *testing.T) {
	req := BacktestRequest{
		StrategyParams: StrategyParams{Symbol: "BTCUSDT", Interval: "1h"},
	}
	result := &engine.BacktestResult{
		InitialBalance: 1000,
		FinalBalance:   1100,
		FinalEquity:    1100,
		Metrics: engine.Metrics{
			TotalTrades:  1,
			ProfitFactor: math.Inf(1),
		},
	}

	data := NewBacktestData(req, result)

	assert.Equal(t, math.MaxFloat64, data.Summary.ProfitFactor)
	assert.Equal(t, "BTCUSDT", data.Summary.Symbol)
	assert.Equal(t, 1100.0, data.Summary.FinalEquity)

	// The payload must survive JSON encoding.
	_, err := json.Marshal(data)
	require.NoError(t, err)
}
