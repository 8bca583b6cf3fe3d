// Package engine implements the backtesting simulation: a strictly
// single-threaded, deterministic replay of a historical candle series
// through a declarative strategy. The engine performs no I/O; candles
// arrive fully loaded and the result is assembled once, at the end.
package engine

import (
	"context"
	"fmt"

	"crypto-backtest/pkg/logger"
	"crypto-backtest/pkg/utils"
)

const (
	// DefaultFeeRate is applied to quantity·(entry+exit) when the
	// configuration leaves the fee rate unset.
	DefaultFeeRate = 0.001

	// DefaultPeriodsPerYear assumes daily bars on a market that trades
	// every day of the year.
	DefaultPeriodsPerYear = 365
)

// Config carries the run-independent engine settings.
type Config struct {
	FeeRate        float64
	PeriodsPerYear float64
}

// Engine replays candle series through strategies. It holds no per-run
// state, so one Engine may serve concurrent independent runs.
type Engine struct {
	cfg Config
	log *logger.Logger
}

func New(cfg Config, log *logger.Logger) *Engine {
	if cfg.FeeRate == 0 {
		cfg.FeeRate = DefaultFeeRate
	}
	if cfg.PeriodsPerYear <= 0 {
		cfg.PeriodsPerYear = DefaultPeriodsPerYear
	}
	return &Engine{cfg: cfg, log: log}
}

// Run replays candles chronologically through the strategy and returns
// the assembled result. It fails atomically: on any error the caller
// receives no result at all. Cancellation is checked between bars and
// reported as ErrCancelled, never as a truncated result.
func (e *Engine) Run(ctx context.Context, candles []Candle, strategy Strategy, risk RiskParameters, initialBalance float64) (result *BacktestResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &ExecutionError{Cause: fmt.Sprint(r)}
			e.log.Error("Backtest replay panicked", logger.ErrorField(err))
		}
	}()

	if err := validateRun(candles, strategy, risk, initialBalance); err != nil {
		return nil, err
	}

	state, err := newIndicatorState(strategy)
	if err != nil {
		return nil, err
	}
	if required := state.warmup(); len(candles) < required {
		return nil, &InsufficientDataError{Required: required, Got: len(candles)}
	}

	book := newPositionBook(risk, e.cfg.FeeRate)
	tracker := newEquityTracker(initialBalance)

	var prevSnapshot Snapshot
	lastIdx := len(candles) - 1

	for i, candle := range candles {
		if !utils.ShouldContinue(ctx, e.log) {
			return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}

		snapshot := state.update(candle)

		exitSignal := len(strategy.ExitConditions) > 0 &&
			EvaluateConditions(strategy.ExitConditions, snapshot, prevSnapshot)
		for _, trade := range book.processBar(candle, exitSignal) {
			tracker.applyTrade(trade)
		}

		if i == lastIdx {
			// Whatever survives the final bar is force-closed at its
			// close before the last equity point is taken.
			for _, trade := range book.closeAll(candle) {
				tracker.applyTrade(trade)
			}
		} else if book.canOpen() && EvaluateConditions(strategy.EntryConditions, snapshot, prevSnapshot) {
			book.openPosition(candle)
		}

		tracker.markToMarket(candle.Timestamp, book.unrealizedPnl(candle.Close))

		if !book.entriesHalted && tracker.drawdownBreached(risk.MaxDrawdownPercent) {
			book.haltEntries()
			e.log.Warn("Max drawdown breached, halting new entries",
				logger.Float64Field("max_drawdown_percent", tracker.maxDrawdownPct),
				logger.TimeField("bar_time", candle.Timestamp))
		}

		prevSnapshot = snapshot
	}

	metrics := calculateMetrics(initialBalance, book.closed, tracker.curve, tracker.maxDrawdownPct, e.cfg.PeriodsPerYear)

	result = &BacktestResult{
		InitialBalance: initialBalance,
		FinalBalance:   tracker.balance,
		FinalEquity:    tracker.curve[len(tracker.curve)-1].Equity,
		Metrics:        metrics,
		Trades:         book.closed,
		EquityCurve:    tracker.curve,
		MonthlyReturns: monthlyReturns(tracker.curve),
	}

	e.log.Info("Backtest simulation completed",
		logger.IntField("total_candles", len(candles)),
		logger.IntField("total_trades", metrics.TotalTrades),
		logger.Float64Field("final_equity", result.FinalEquity))

	return result, nil
}

func validateRun(candles []Candle, strategy Strategy, risk RiskParameters, initialBalance float64) error {
	if initialBalance <= 0 {
		return &InvalidConfigurationError{Reason: "initial balance must be positive"}
	}
	if len(candles) == 0 {
		return &InsufficientDataError{Required: 1, Got: 0}
	}
	for i := 1; i < len(candles); i++ {
		if !candles[i].Timestamp.After(candles[i-1].Timestamp) {
			return &InvalidConfigurationError{
				Reason: fmt.Sprintf("candles must have strictly increasing timestamps (violation at index %d)", i),
			}
		}
	}

	if len(strategy.EntryConditions) == 0 {
		return &InvalidConfigurationError{Reason: "strategy requires at least one entry condition"}
	}
	if err := validateConditions("entry", strategy.EntryConditions); err != nil {
		return err
	}
	if err := validateConditions("exit", strategy.ExitConditions); err != nil {
		return err
	}

	switch {
	case risk.PositionSizeUSD <= 0:
		return &InvalidConfigurationError{Reason: "position_size_usd must be positive"}
	case risk.TakeProfitPercent <= 0:
		return &InvalidConfigurationError{Reason: "take_profit_percent must be positive"}
	case risk.StopLossPercent <= 0:
		return &InvalidConfigurationError{Reason: "stop_loss_percent must be positive"}
	case risk.MaxDrawdownPercent <= 0:
		return &InvalidConfigurationError{Reason: "max_drawdown_percent must be positive"}
	case risk.MaxPositions < 1:
		return &InvalidConfigurationError{Reason: "max_positions must be at least 1"}
	}

	return nil
}

func validateConditions(kind string, conditions []Condition) error {
	for i, cond := range conditions {
		if !validOperator(cond.Operator) {
			return &InvalidConfigurationError{
				Reason: fmt.Sprintf("%s condition %d has unknown operator %q", kind, i, cond.Operator),
			}
		}
		if i > 0 && cond.Logic != LogicAnd && cond.Logic != LogicOr {
			return &InvalidConfigurationError{
				Reason: fmt.Sprintf("%s condition %d must chain with AND or OR", kind, i),
			}
		}
	}
	return nil
}
