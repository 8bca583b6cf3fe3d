package service

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"crypto-backtest/config"
	"crypto-backtest/internal/dto"
	"crypto-backtest/internal/engine"
	"crypto-backtest/internal/repository"
	"crypto-backtest/pkg/cache"
	"crypto-backtest/pkg/logger"
	"crypto-backtest/pkg/utils"
)

// BacktestService runs backtesting simulations over historical candles.
type BacktestService interface {
	RunBacktest(ctx context.Context, req dto.BacktestRequest) (*dto.BacktestData, error)
	RunBatchBacktest(ctx context.Context, req dto.BacktestRequest, symbols []string) (map[string]*dto.BacktestData, error)
}

type backtestService struct {
	cfg        *config.Config
	log        *logger.Logger
	candleRepo repository.CandleRepository
	cache      cache.Cache
}

func NewBacktestService(
	cfg *config.Config,
	log *logger.Logger,
	candleRepo repository.CandleRepository,
	cache cache.Cache,
) BacktestService {
	return &backtestService{
		cfg:        cfg,
		log:        log,
		candleRepo: candleRepo,
		cache:      cache,
	}
}

// RunBacktest fetches the requested candle window, expands the strategy
// into the condition pipeline, and replays it through the engine. Runs
// are deterministic, so completed results are cached by request hash.
func (s *backtestService) RunBacktest(ctx context.Context, req dto.BacktestRequest) (*dto.BacktestData, error) {
	cacheKey, err := utils.HashJSON(req)
	if err == nil {
		if cached, found := cache.GetTyped[*dto.BacktestData](s.cache, backtestCacheKey(cacheKey)); found {
			s.log.Debug("Backtest result served from cache", logger.StringField("key", cacheKey))
			return cached, nil
		}
	}

	strategy, err := expandStrategy(req)
	if err != nil {
		return nil, err
	}

	periodsPerYear, ok := dto.PeriodsPerYear(req.StrategyParams.Interval)
	if !ok {
		return nil, &engine.InvalidConfigurationError{Reason: fmt.Sprintf("unsupported interval %q", req.StrategyParams.Interval)}
	}

	candles, err := s.candleRepo.GetCandles(ctx, req.StrategyParams.Symbol, req.StrategyParams.Interval, req.StartDate, req.EndDate)
	if err != nil {
		s.log.Error("Failed to fetch candles for backtest",
			logger.ErrorField(err),
			logger.StringField("symbol", req.StrategyParams.Symbol))
		return nil, fmt.Errorf("failed to fetch candles: %w", err)
	}

	eng := engine.New(engine.Config{
		FeeRate:        s.cfg.Backtest.FeeRate,
		PeriodsPerYear: periodsPerYear,
	}, s.log)

	risk := engine.RiskParameters{
		PositionSizeUSD:    req.StrategyParams.RiskParams.PositionSizeUsd,
		TakeProfitPercent:  req.StrategyParams.RiskParams.TakeProfitPercent,
		StopLossPercent:    req.StrategyParams.RiskParams.StopLossPercent,
		MaxDrawdownPercent: req.StrategyParams.RiskParams.MaxDrawdownPercent,
		MaxPositions:       req.StrategyParams.RiskParams.MaxPositions,
	}

	result, err := eng.Run(ctx, candles, strategy, risk, req.InitialBalance)
	if err != nil {
		return nil, err
	}

	data := dto.NewBacktestData(req, result)
	if cacheKey != "" {
		s.cache.Set(backtestCacheKey(cacheKey), data, s.cfg.Backtest.ResultCacheTTL)
	}

	s.log.Info("Backtest completed",
		logger.StringField("symbol", req.StrategyParams.Symbol),
		logger.StringField("strategy_type", string(req.StrategyType)),
		logger.IntField("total_trades", data.Summary.TotalTrades))

	return data, nil
}

// RunBatchBacktest runs the same strategy over several symbols as fully
// independent backtests with bounded concurrency. Each run owns its own
// candle slice and accumulators, so no state is shared.
func (s *backtestService) RunBatchBacktest(ctx context.Context, req dto.BacktestRequest, symbols []string) (map[string]*dto.BacktestData, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Backtest.MaxConcurrency)

	var mu sync.Mutex
	results := make(map[string]*dto.BacktestData, len(symbols))

	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			symbolReq := req
			symbolReq.StrategyParams.Symbol = symbol

			data, err := s.RunBacktest(gctx, symbolReq)
			if err != nil {
				return fmt.Errorf("backtest for %s: %w", symbol, err)
			}

			mu.Lock()
			results[symbol] = data
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func backtestCacheKey(hash string) string {
	return "backtest:" + hash
}

// expandStrategy reduces the closed strategy variants to the single
// condition/risk pipeline the engine runs.
func expandStrategy(req dto.BacktestRequest) (engine.Strategy, error) {
	params := mergeIndicatorParams(req.StrategyParams.IndicatorParams)

	switch req.StrategyType {
	case dto.StrategyRSI:
		return engine.Strategy{
			EntryConditions: []engine.Condition{
				{Indicator: engine.IndRSI, Operator: engine.OpCrossBelow, Value: 30},
			},
			ExitConditions: []engine.Condition{
				{Indicator: engine.IndRSI, Operator: engine.OpCrossAbove, Value: 70},
			},
			Indicators: params,
		}, nil
	case dto.StrategyMACD:
		return engine.Strategy{
			EntryConditions: []engine.Condition{
				{Indicator: engine.IndMACDHistogram, Operator: engine.OpCrossAbove, Value: 0},
			},
			ExitConditions: []engine.Condition{
				{Indicator: engine.IndMACDHistogram, Operator: engine.OpCrossBelow, Value: 0},
			},
			Indicators: params,
		}, nil
	case dto.StrategyCustom:
		if len(req.StrategyParams.EntryConditions) == 0 {
			return engine.Strategy{}, &engine.InvalidConfigurationError{Reason: "custom strategy requires entry conditions"}
		}
		return engine.Strategy{
			EntryConditions: mapConditions(req.StrategyParams.EntryConditions),
			ExitConditions:  mapConditions(req.StrategyParams.ExitConditions),
			Indicators:      params,
		}, nil
	default:
		return engine.Strategy{}, &engine.InvalidConfigurationError{Reason: fmt.Sprintf("unknown strategy type %q", req.StrategyType)}
	}
}

func mapConditions(conditions []dto.ConditionRequest) []engine.Condition {
	out := make([]engine.Condition, 0, len(conditions))
	for _, c := range conditions {
		out = append(out, engine.Condition{
			Indicator: c.Indicator,
			Operator:  engine.Operator(c.Operator),
			Value:     c.Value,
			Logic:     engine.Logic(c.Logic),
		})
	}
	return out
}

func mergeIndicatorParams(override *dto.IndicatorParamsRequest) engine.IndicatorParams {
	params := engine.DefaultIndicatorParams()
	if override == nil {
		return params
	}

	if override.SMAPeriod > 0 {
		params.SMAPeriod = override.SMAPeriod
	}
	if override.EMAPeriod > 0 {
		params.EMAPeriod = override.EMAPeriod
	}
	if override.RSIPeriod > 0 {
		params.RSIPeriod = override.RSIPeriod
	}
	if override.MACDFast > 0 {
		params.MACDFast = override.MACDFast
	}
	if override.MACDSlow > 0 {
		params.MACDSlow = override.MACDSlow
	}
	if override.MACDSignal > 0 {
		params.MACDSignal = override.MACDSignal
	}
	if override.BBPeriod > 0 {
		params.BBPeriod = override.BBPeriod
	}
	if override.BBStdDev > 0 {
		params.BBStdDev = override.BBStdDev
	}
	if override.StochPeriod > 0 {
		params.StochPeriod = override.StochPeriod
	}
	if override.StochSmoothing > 0 {
		params.StochSmoothing = override.StochSmoothing
	}
	if override.ATRPeriod > 0 {
		params.ATRPeriod = override.ATRPeriod
	}
	if override.WilliamsRPeriod > 0 {
		params.WilliamsRPeriod = override.WilliamsRPeriod
	}
	if override.VWAPWindow > 0 {
		params.VWAPWindow = override.VWAPWindow
	}
	return params
}
