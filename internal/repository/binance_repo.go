package repository

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"crypto-backtest/config"
	"crypto-backtest/internal/dto"
	"crypto-backtest/internal/engine"
	"crypto-backtest/pkg/httpclient"
	"crypto-backtest/pkg/logger"
)

// klineBatchLimit is the maximum rows Binance returns per klines call.
const klineBatchLimit = 1000

// CandleRepository supplies the finite, time-ordered candle series a
// backtest replays. The engine itself never fetches anything.
type CandleRepository interface {
	GetCandles(ctx context.Context, symbol, interval string, startDate, endDate time.Time) ([]engine.Candle, error)
}

type binanceCandleRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

func NewBinanceCandleRepository(cfg *config.Config, log *logger.Logger) CandleRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.Binance.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	return &binanceCandleRepository{
		httpClient:     httpclient.New(cfg.Binance.BaseURL, cfg.Binance.Timeout),
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
	}
}

// GetCandles pages through /api/v3/klines until the requested window is
// covered, returning candles with strictly increasing open times.
func (r *binanceCandleRepository) GetCandles(ctx context.Context, symbol, interval string, startDate, endDate time.Time) ([]engine.Candle, error) {
	intervalMs, ok := dto.IntervalMillis[interval]
	if !ok {
		return nil, fmt.Errorf("unsupported interval %q", interval)
	}

	startMs := startDate.UnixMilli()
	endMs := endDate.UnixMilli()

	var candles []engine.Candle
	lastOpenTime := int64(-1)

	for startMs <= endMs {
		klines, err := r.fetchKlines(ctx, symbol, interval, startMs, endMs)
		if err != nil {
			return nil, err
		}
		if len(klines) == 0 {
			break
		}

		for _, k := range klines {
			if k.OpenTime <= lastOpenTime || k.OpenTime > endMs {
				continue
			}
			candles = append(candles, engine.Candle{
				Timestamp: time.UnixMilli(k.OpenTime).UTC(),
				Open:      k.Open,
				High:      k.High,
				Low:       k.Low,
				Close:     k.Close,
				Volume:    k.Volume,
			})
			lastOpenTime = k.OpenTime
		}

		if len(klines) < klineBatchLimit {
			break
		}
		startMs = klines[len(klines)-1].OpenTime + intervalMs
	}

	r.logger.Debug("Fetched candles from Binance",
		logger.StringField("symbol", symbol),
		logger.StringField("interval", interval),
		logger.IntField("count", len(candles)))

	return candles, nil
}

func (r *binanceCandleRepository) fetchKlines(ctx context.Context, symbol, interval string, startMs, endMs int64) ([]dto.BinanceKline, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := "/api/v3/klines"
	queryParams := map[string]string{
		"symbol":    symbol,
		"interval":  interval,
		"limit":     strconv.Itoa(klineBatchLimit),
		"startTime": strconv.FormatInt(startMs, 10),
		"endTime":   strconv.FormatInt(endMs, 10),
	}

	var rows [][]interface{}
	resp, err := r.httpClient.Get(ctx, endpoint, queryParams, nil, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch klines from binance: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		r.logger.Error("Binance API returned Non-OK status for klines",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("body", string(resp.Body)))
		return nil, fmt.Errorf("binance api returned status: %d", resp.StatusCode)
	}

	klines := make([]dto.BinanceKline, 0, len(rows))
	for _, k := range rows {
		if len(k) < 7 {
			continue
		}
		openTime, _ := k[0].(float64)
		open, _ := strconv.ParseFloat(asString(k[1]), 64)
		high, _ := strconv.ParseFloat(asString(k[2]), 64)
		low, _ := strconv.ParseFloat(asString(k[3]), 64)
		closePrice, _ := strconv.ParseFloat(asString(k[4]), 64)
		volume, _ := strconv.ParseFloat(asString(k[5]), 64)
		closeTime, _ := k[6].(float64)

		klines = append(klines, dto.BinanceKline{
			OpenTime:  int64(openTime),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
			CloseTime: int64(closeTime),
		})
	}

	return klines, nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}
