package dto

import (
	"math"
	"time"

	"crypto-backtest/internal/engine"
)

// BacktestRequest is the body of POST /api/backtest, mirroring the
// public contract.
type BacktestRequest struct {
	StrategyType   StrategyType   `json:"strategy_type" validate:"required,oneof=RSI MACD CUSTOM"`
	StrategyParams StrategyParams `json:"strategy_params" validate:"required"`
	StartDate      time.Time      `json:"start_date" validate:"required"`
	EndDate        time.Time      `json:"end_date" validate:"required,gtefield=StartDate"`
	InitialBalance float64        `json:"initial_balance" validate:"required,gte=10,lte=1000000"`
}

// BatchBacktestRequest runs the same strategy over several symbols as
// independent backtests.
type BatchBacktestRequest struct {
	BacktestRequest
	Symbols []string `json:"symbols" validate:"required,min=1,dive,uppercase,alpha,min=2,max=10"`
}

type StrategyParams struct {
	Symbol          string                  `json:"symbol" validate:"omitempty,uppercase,alpha,min=2,max=10"`
	Interval        string                  `json:"interval" validate:"required,oneof=1m 3m 5m 15m 30m 1h 2h 4h 6h 8h 12h 1d 3d 1w 1M"`
	EntryConditions []ConditionRequest      `json:"entry_conditions" validate:"omitempty,dive"`
	ExitConditions  []ConditionRequest      `json:"exit_conditions" validate:"omitempty,dive"`
	RiskParams      RiskParamsRequest       `json:"risk_params" validate:"required"`
	IndicatorParams *IndicatorParamsRequest `json:"indicator_params"`
}

type ConditionRequest struct {
	Indicator string  `json:"indicator" validate:"required"`
	Operator  string  `json:"operator" validate:"required,oneof=gt lt gte lte eq cross_above cross_below"`
	Value     float64 `json:"value"`
	Logic     string  `json:"logic" validate:"omitempty,oneof=AND OR"`
}

type RiskParamsRequest struct {
	PositionSizeUsd    float64 `json:"position_size_usd" validate:"required,gt=0"`
	TakeProfitPercent  float64 `json:"take_profit_percent" validate:"required,gt=0,lte=50"`
	StopLossPercent    float64 `json:"stop_loss_percent" validate:"required,gt=0,lte=20"`
	MaxDrawdownPercent float64 `json:"max_drawdown_percent" validate:"required,gt=0,lte=50"`
	MaxPositions       int     `json:"max_positions" validate:"required,gte=1"`
}

// IndicatorParamsRequest overrides the default indicator periods; zero
// fields keep their defaults.
type IndicatorParamsRequest struct {
	SMAPeriod       int     `json:"sma_period" validate:"omitempty,gt=0"`
	EMAPeriod       int     `json:"ema_period" validate:"omitempty,gt=0"`
	RSIPeriod       int     `json:"rsi_period" validate:"omitempty,gt=0"`
	MACDFast        int     `json:"macd_fast" validate:"omitempty,gt=0"`
	MACDSlow        int     `json:"macd_slow" validate:"omitempty,gt=0"`
	MACDSignal      int     `json:"macd_signal" validate:"omitempty,gt=0"`
	BBPeriod        int     `json:"bb_period" validate:"omitempty,gt=0"`
	BBStdDev        float64 `json:"bb_std_dev" validate:"omitempty,gt=0"`
	StochPeriod     int     `json:"stoch_period" validate:"omitempty,gt=0"`
	StochSmoothing  int     `json:"stoch_smoothing" validate:"omitempty,gt=0"`
	ATRPeriod       int     `json:"atr_period" validate:"omitempty,gt=0"`
	WilliamsRPeriod int     `json:"williams_r_period" validate:"omitempty,gt=0"`
	VWAPWindow      int     `json:"vwap_window" validate:"omitempty,gt=0"`
}

// BacktestSummary flattens the engine metrics for the API reply.
type BacktestSummary struct {
	Symbol                  string    `json:"symbol"`
	Interval                string    `json:"interval"`
	StartDate               time.Time `json:"start_date"`
	EndDate                 time.Time `json:"end_date"`
	InitialBalance          float64   `json:"initial_balance"`
	FinalBalance            float64   `json:"final_balance"`
	FinalEquity             float64   `json:"final_equity"`
	TotalTrades             int       `json:"total_trades"`
	WinningTrades           int       `json:"winning_trades"`
	LosingTrades            int       `json:"losing_trades"`
	WinRate                 float64   `json:"win_rate"`
	GrossProfit             float64   `json:"gross_profit"`
	GrossLoss               float64   `json:"gross_loss"`
	TotalNetPnl             float64   `json:"total_net_pnl"`
	TotalFees               float64   `json:"total_fees"`
	ProfitFactor            float64   `json:"profit_factor"`
	MaxDrawdownPercent      float64   `json:"max_drawdown_percent"`
	TotalReturnPercent      float64   `json:"total_return_percent"`
	AnnualizedReturnPercent float64   `json:"annualized_return_percent"`
	SharpeRatio             float64   `json:"sharpe_ratio"`
	SortinoRatio            float64   `json:"sortino_ratio"`
	CalmarRatio             float64   `json:"calmar_ratio"`
}

// BacktestData is the success payload of POST /api/backtest.
type BacktestData struct {
	Summary        BacktestSummary        `json:"summary"`
	Trades         []engine.ClosedTrade   `json:"trades"`
	EquityCurve    []engine.EquityPoint   `json:"equity_curve"`
	MonthlyReturns []engine.MonthlyReturn `json:"monthly_returns"`
}

// NewBacktestData assembles the API payload from an engine result.
// encoding/json cannot represent IEEE +Inf, so an unbounded profit
// factor is clamped to math.MaxFloat64 at this boundary.
func NewBacktestData(req BacktestRequest, result *engine.BacktestResult) *BacktestData {
	m := result.Metrics
	return &BacktestData{
		Summary: BacktestSummary{
			Symbol:                  req.StrategyParams.Symbol,
			Interval:                req.StrategyParams.Interval,
			StartDate:               req.StartDate,
			EndDate:                 req.EndDate,
			InitialBalance:          result.InitialBalance,
			FinalBalance:            result.FinalBalance,
			FinalEquity:             result.FinalEquity,
			TotalTrades:             m.TotalTrades,
			WinningTrades:           m.WinningTrades,
			LosingTrades:            m.LosingTrades,
			WinRate:                 m.WinRate,
			GrossProfit:             m.GrossProfit,
			GrossLoss:               m.GrossLoss,
			TotalNetPnl:             m.TotalNetPnl,
			TotalFees:               m.TotalFees,
			ProfitFactor:            clampInf(m.ProfitFactor),
			MaxDrawdownPercent:      m.MaxDrawdownPercent,
			TotalReturnPercent:      m.TotalReturnPercent,
			AnnualizedReturnPercent: m.AnnualizedReturnPercent,
			SharpeRatio:             m.SharpeRatio,
			SortinoRatio:            m.SortinoRatio,
			CalmarRatio:             m.CalmarRatio,
		},
		Trades:         result.Trades,
		EquityCurve:    result.EquityCurve,
		MonthlyReturns: result.MonthlyReturns,
	}
}

func clampInf(v float64) float64 {
	if math.IsInf(v, 1) {
		return math.MaxFloat64
	}
	if math.IsInf(v, -1) {
		return -math.MaxFloat64
	}
	return v
}
