package dto

// StrategyType is the closed set of strategy variants. All of them
// reduce to the same condition/risk pipeline.
type StrategyType string

const (
	StrategyRSI    StrategyType = "RSI"
	StrategyMACD   StrategyType = "MACD"
	StrategyCustom StrategyType = "CUSTOM"
)

// Error codes returned in the failure envelope.
const (
	CodeValidationError         = "VALIDATION_ERROR"
	CodeBacktestValidationError = "BACKTEST_VALIDATION_ERROR"
	CodeBacktestFailed          = "BACKTEST_FAILED"
	CodeInternalError           = "INTERNAL_ERROR"
)

// intervalPeriodsPerYear maps a kline interval to the bar count of one
// year on a market that never closes.
var intervalPeriodsPerYear = map[string]float64{
	"1m":  525600,
	"3m":  175200,
	"5m":  105120,
	"15m": 35040,
	"30m": 17520,
	"1h":  8760,
	"2h":  4380,
	"4h":  2190,
	"6h":  1460,
	"8h":  1095,
	"12h": 730,
	"1d":  365,
	"3d":  365.0 / 3.0,
	"1w":  52,
	"1M":  12,
}

// PeriodsPerYear returns the annualization factor for an interval.
func PeriodsPerYear(interval string) (float64, bool) {
	p, ok := intervalPeriodsPerYear[interval]
	return p, ok
}

// IntervalMillis returns the bar duration of an interval in
// milliseconds, used to paginate kline fetches.
var IntervalMillis = map[string]int64{
	"1m":  60_000,
	"3m":  180_000,
	"5m":  300_000,
	"15m": 900_000,
	"30m": 1_800_000,
	"1h":  3_600_000,
	"2h":  7_200_000,
	"4h":  14_400_000,
	"6h":  21_600_000,
	"8h":  28_800_000,
	"12h": 43_200_000,
	"1d":  86_400_000,
	"3d":  259_200_000,
	"1w":  604_800_000,
	"1M":  2_592_000_000,
}
