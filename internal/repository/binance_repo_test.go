package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-backtest/config"
	"crypto-backtest/pkg/logger"
)

func newTestRepository(baseURL string) CandleRepository {
	cfg := &config.Config{
		Binance: config.Binance{
			BaseURL:             baseURL,
			Timeout:             5 * time.Second,
			MaxRequestPerMinute: 60000,
		},
	}
	return NewBinanceCandleRepository(cfg, logger.NewNop())
}

// klineRow builds one raw klines row the way Binance serializes it:
// numeric timestamps, string prices.
func klineRow(openTime int64, open, high, low, close, volume string) []interface{} {
	return []interface{}{openTime, open, high, low, close, volume, openTime + 59999}
}

func TestGetCandles_ParsesKlines(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Minute)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1m", r.URL.Query().Get("interval"))

		// A malformed short row and one past the window, both dropped.
		rows := [][]interface{}{
			klineRow(start.UnixMilli(), "100.1", "101.5", "99.9", "100.8", "12.5"),
			klineRow(start.Add(time.Minute).UnixMilli(), "100.8", "102", "100.5", "101.2", "8"),
			{start.Add(2 * time.Minute).UnixMilli(), "101.2"},
			klineRow(end.Add(time.Minute).UnixMilli(), "1", "1", "1", "1", "1"),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rows)
	}))
	defer server.Close()

	candles, err := newTestRepository(server.URL).GetCandles(context.Background(), "BTCUSDT", "1m", start, end)
	require.NoError(t, err)

	require.Len(t, candles, 2)
	assert.Equal(t, start, candles[0].Timestamp)
	assert.Equal(t, 100.1, candles[0].Open)
	assert.Equal(t, 101.5, candles[0].High)
	assert.Equal(t, 99.9, candles[0].Low)
	assert.Equal(t, 100.8, candles[0].Close)
	assert.Equal(t, 12.5, candles[0].Volume)
	assert.Equal(t, 101.2, candles[1].Close)
}

func TestGetCandles_PagesThroughLongWindows(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	totalBars := int64(1500)
	intervalMs := int64(time.Minute / time.Millisecond)
	end := start.Add(time.Duration(totalBars-1) * time.Minute)

	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		from, err := strconv.ParseInt(r.URL.Query().Get("startTime"), 10, 64)
		require.NoError(t, err)
		to, err := strconv.ParseInt(r.URL.Query().Get("endTime"), 10, 64)
		require.NoError(t, err)

		var rows [][]interface{}
		for ts := from; ts <= to && len(rows) < klineBatchLimit; ts += intervalMs {
			rows = append(rows, klineRow(ts, "100", "101", "99", "100", "1"))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rows)
	}))
	defer server.Close()

	candles, err := newTestRepository(server.URL).GetCandles(context.Background(), "BTCUSDT", "1m", start, end)
	require.NoError(t, err)

	assert.Equal(t, int64(2), requests.Load())
	require.Len(t, candles, int(totalBars))

	// Open times come back strictly increasing with no overlap between pages.
	for i := 1; i < len(candles); i++ {
		assert.True(t, candles[i].Timestamp.After(candles[i-1].Timestamp))
	}
}

func TestGetCandles_Errors(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	t.Run("non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
		}))
		defer server.Close()

		_, err := newTestRepository(server.URL).GetCandles(context.Background(), "NOPE", "1m", start, end)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "418")
	})

	t.Run("unsupported interval fails before any request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("no request expected")
		}))
		defer server.Close()

		_, err := newTestRepository(server.URL).GetCandles(context.Background(), "BTCUSDT", "7m", start, end)
		assert.Error(t, err)
	})
}
