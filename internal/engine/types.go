package engine

import "time"

// Candle is a single OHLCV bar. Candle slices fed to the engine must
// have strictly increasing, unique timestamps.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Operator compares an indicator value against a condition threshold.
type Operator string

const (
	OpGt         Operator = "gt"
	OpLt         Operator = "lt"
	OpGte        Operator = "gte"
	OpLte        Operator = "lte"
	OpEq         Operator = "eq"
	OpCrossAbove Operator = "cross_above"
	OpCrossBelow Operator = "cross_below"
)

// Logic chains a condition onto the running result of the ones before it.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Condition is one entry of a declarative entry/exit condition list.
// Logic is empty on the first condition of a list.
type Condition struct {
	Indicator string   `json:"indicator"`
	Operator  Operator `json:"operator"`
	Value     float64  `json:"value"`
	Logic     Logic    `json:"logic,omitempty"`
}

// Indicator names a condition may reference.
const (
	IndClose         = "close"
	IndVolume        = "volume"
	IndSMA           = "sma"
	IndEMA           = "ema"
	IndRSI           = "rsi"
	IndMACD          = "macd"
	IndMACDSignal    = "macd_signal"
	IndMACDHistogram = "macd_histogram"
	IndBBUpper       = "bb_upper"
	IndBBMiddle      = "bb_middle"
	IndBBLower       = "bb_lower"
	IndStochK        = "stoch_k"
	IndStochD        = "stoch_d"
	IndATR           = "atr"
	IndWilliamsR     = "williams_r"
	IndVWAP          = "vwap"
	IndOBV           = "obv"
)

// IndicatorParams carries the periods used when a strategy references
// the corresponding indicator.
type IndicatorParams struct {
	SMAPeriod       int     `json:"sma_period"`
	EMAPeriod       int     `json:"ema_period"`
	RSIPeriod       int     `json:"rsi_period"`
	MACDFast        int     `json:"macd_fast"`
	MACDSlow        int     `json:"macd_slow"`
	MACDSignal      int     `json:"macd_signal"`
	BBPeriod        int     `json:"bb_period"`
	BBStdDev        float64 `json:"bb_std_dev"`
	StochPeriod     int     `json:"stoch_period"`
	StochSmoothing  int     `json:"stoch_smoothing"`
	ATRPeriod       int     `json:"atr_period"`
	WilliamsRPeriod int     `json:"williams_r_period"`
	VWAPWindow      int     `json:"vwap_window"`
}

// DefaultIndicatorParams returns the conventional periods.
func DefaultIndicatorParams() IndicatorParams {
	return IndicatorParams{
		SMAPeriod:       20,
		EMAPeriod:       20,
		RSIPeriod:       14,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		BBPeriod:        20,
		BBStdDev:        2.0,
		StochPeriod:     14,
		StochSmoothing:  3,
		ATRPeriod:       14,
		WilliamsRPeriod: 14,
		VWAPWindow:      20,
	}
}

// RiskParameters bound position sizing and exits. All values must be
// positive; percentage bounds are validated caller-side.
type RiskParameters struct {
	PositionSizeUSD    float64 `json:"position_size_usd"`
	TakeProfitPercent  float64 `json:"take_profit_percent"`
	StopLossPercent    float64 `json:"stop_loss_percent"`
	MaxDrawdownPercent float64 `json:"max_drawdown_percent"`
	MaxPositions       int     `json:"max_positions"`
}

// Strategy is the declarative trading strategy replayed by the engine.
type Strategy struct {
	EntryConditions []Condition     `json:"entry_conditions"`
	ExitConditions  []Condition     `json:"exit_conditions"`
	Indicators      IndicatorParams `json:"indicator_params"`
}

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitTakeProfit ExitReason = "TAKE_PROFIT"
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitSignal     ExitReason = "SIGNAL"
	ExitEndOfData  ExitReason = "END_OF_DATA"
)

// OpenPosition is a live simulated position, owned by the position book.
type OpenPosition struct {
	EntryTime       time.Time `json:"entry_time"`
	EntryPrice      float64   `json:"entry_price"`
	Quantity        float64   `json:"quantity"`
	StopLossPrice   float64   `json:"stop_loss_price"`
	TakeProfitPrice float64   `json:"take_profit_price"`
}

// ClosedTrade is an immutable trade-log entry. Pnl is gross
// (exit − entry) · quantity; NetPnl subtracts fees.
type ClosedTrade struct {
	EntryTime  time.Time  `json:"entry_time"`
	ExitTime   time.Time  `json:"exit_time"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	Quantity   float64    `json:"quantity"`
	Pnl        float64    `json:"pnl"`
	Fees       float64    `json:"fees"`
	NetPnl     float64    `json:"net_pnl"`
	ExitReason ExitReason `json:"exit_reason"`
}

// EquityPoint is one sample of the equity curve, appended once per bar.
type EquityPoint struct {
	Timestamp       time.Time `json:"timestamp"`
	Balance         float64   `json:"balance"`
	Equity          float64   `json:"equity"`
	DrawdownPercent float64   `json:"drawdown_percent"`
}

// MonthlyReturn is the equity return of one calendar month.
type MonthlyReturn struct {
	Month         string  `json:"month"`
	ReturnPercent float64 `json:"return_percent"`
}

// Metrics aggregates statistics derived from the completed trade log
// and equity curve.
type Metrics struct {
	TotalTrades             int     `json:"total_trades"`
	WinningTrades           int     `json:"winning_trades"`
	LosingTrades            int     `json:"losing_trades"`
	WinRate                 float64 `json:"win_rate"`
	GrossProfit             float64 `json:"gross_profit"`
	GrossLoss               float64 `json:"gross_loss"`
	TotalNetPnl             float64 `json:"total_net_pnl"`
	TotalFees               float64 `json:"total_fees"`
	ProfitFactor            float64 `json:"profit_factor"`
	MaxDrawdownPercent      float64 `json:"max_drawdown_percent"`
	TotalReturnPercent      float64 `json:"total_return_percent"`
	AnnualizedReturnPercent float64 `json:"annualized_return_percent"`
	SharpeRatio             float64 `json:"sharpe_ratio"`
	SortinoRatio            float64 `json:"sortino_ratio"`
	CalmarRatio             float64 `json:"calmar_ratio"`
}

// BacktestResult is the complete output of one run. It is assembled
// once after the final candle and never mutated afterwards.
type BacktestResult struct {
	InitialBalance float64         `json:"initial_balance"`
	FinalBalance   float64         `json:"final_balance"`
	FinalEquity    float64         `json:"final_equity"`
	Metrics        Metrics         `json:"metrics"`
	Trades         []ClosedTrade   `json:"trades"`
	EquityCurve    []EquityPoint   `json:"equity_curve"`
	MonthlyReturns []MonthlyReturn `json:"monthly_returns"`
}
