// Package indicator provides pure technical-indicator functions over
// price/volume series. Every function returns nil when the input is
// shorter than its warm-up length; values are never back-filled.
package indicator

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"crypto-backtest/pkg/utils"
)

// MACDValue holds the three MACD outputs for a single bar.
type MACDValue struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// BollingerValue holds the three Bollinger band levels for a single bar.
type BollingerValue struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// StochasticValue holds %K and %D for a single bar.
type StochasticValue struct {
	K float64 `json:"k"`
	D float64 `json:"d"`
}

// SMA returns the mean of the last period values.
func SMA(prices []float64, period int) *float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}
	return utils.ToPointer(stat.Mean(prices[len(prices)-period:], nil))
}

// EMA seeds with the SMA of the first period values and applies the
// smoothing factor 2/(period+1) left-to-right over the rest.
func EMA(prices []float64, period int) *float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}
	series := emaSeries(prices, period)
	return utils.ToPointer(series[len(series)-1])
}

// emaSeries returns EMA values aligned to prices; entries before index
// period-1 are meaningless and must not be read.
func emaSeries(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	alpha := 2.0 / (float64(period) + 1.0)

	out[period-1] = stat.Mean(prices[:period], nil)
	for i := period; i < len(prices); i++ {
		out[i] = alpha*prices[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI averages gains and losses over the trailing period changes.
// Returns exactly 100 when the window has no losses.
func RSI(prices []float64, period int) *float64 {
	if period <= 0 || len(prices) < period+1 {
		return nil
	}

	window := prices[len(prices)-period-1:]
	var gains, losses float64
	for i := 1; i < len(window); i++ {
		change := window[i] - window[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return utils.ToPointer(100.0)
	}

	rs := avgGain / avgLoss
	return utils.ToPointer(100.0 - 100.0/(1.0+rs))
}

// MACD returns the MACD line, its signal line, and the histogram.
// Nil until slow+signal data points exist.
func MACD(prices []float64, fast, slow, signal int) *MACDValue {
	if fast <= 0 || slow <= 0 || signal <= 0 || fast >= slow {
		return nil
	}
	if len(prices) < slow+signal {
		return nil
	}

	emaFast := emaSeries(prices, fast)
	emaSlow := emaSeries(prices, slow)

	macdLine := make([]float64, 0, len(prices)-slow+1)
	for i := slow - 1; i < len(prices); i++ {
		macdLine = append(macdLine, emaFast[i]-emaSlow[i])
	}

	signalSeries := emaSeries(macdLine, signal)
	macd := macdLine[len(macdLine)-1]
	sig := signalSeries[len(signalSeries)-1]

	return &MACDValue{
		MACD:      macd,
		Signal:    sig,
		Histogram: macd - sig,
	}
}

// BollingerBands returns middle = SMA(period) and upper/lower at
// middle ± k population standard deviations.
func BollingerBands(prices []float64, period int, k float64) *BollingerValue {
	if period <= 0 || len(prices) < period {
		return nil
	}

	window := prices[len(prices)-period:]
	middle := stat.Mean(window, nil)
	sd := stat.PopStdDev(window, nil)

	return &BollingerValue{
		Upper:  middle + k*sd,
		Middle: middle,
		Lower:  middle - k*sd,
	}
}

// Stochastic returns %K over period and %D as the SMA of the last
// smoothing %K values. A flat window pins both at 50.
func Stochastic(highs, lows, closes []float64, period, smoothing int) *StochasticValue {
	if period <= 0 || smoothing <= 0 {
		return nil
	}
	n := len(closes)
	if len(highs) != n || len(lows) != n || n < period+smoothing-1 {
		return nil
	}

	kValues := make([]float64, 0, smoothing)
	for i := n - smoothing; i < n; i++ {
		hh := highest(highs[i-period+1 : i+1])
		ll := lowest(lows[i-period+1 : i+1])
		if hh == ll {
			kValues = append(kValues, 50.0)
			continue
		}
		kValues = append(kValues, (closes[i]-ll)/(hh-ll)*100.0)
	}

	return &StochasticValue{
		K: kValues[len(kValues)-1],
		D: stat.Mean(kValues, nil),
	}
}

// ATR is the SMA of the last period true ranges.
func ATR(highs, lows, closes []float64, period int) *float64 {
	if period <= 0 {
		return nil
	}
	n := len(closes)
	if len(highs) != n || len(lows) != n || n < period+1 {
		return nil
	}

	trs := make([]float64, 0, period)
	for i := n - period; i < n; i++ {
		prevClose := closes[i-1]
		tr := math.Max(highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-prevClose), math.Abs(lows[i]-prevClose)))
		trs = append(trs, tr)
	}
	return utils.ToPointer(stat.Mean(trs, nil))
}

// WilliamsR returns (highestHigh − close)/(highestHigh − lowestLow)·−100,
// bounded to [−100, 0]. A flat window yields the midpoint −50.
func WilliamsR(highs, lows, closes []float64, period int) *float64 {
	if period <= 0 {
		return nil
	}
	n := len(closes)
	if len(highs) != n || len(lows) != n || n < period {
		return nil
	}

	hh := highest(highs[n-period:])
	ll := lowest(lows[n-period:])
	if hh == ll {
		return utils.ToPointer(-50.0)
	}

	wr := (hh - closes[n-1]) / (hh - ll) * -100.0
	wr = math.Max(-100.0, math.Min(0.0, wr))
	return utils.ToPointer(wr)
}

// VWAP returns Σ(typicalPrice·volume)/Σvolume over the supplied window.
// Nil on an empty window or zero total volume.
func VWAP(highs, lows, closes, volumes []float64) *float64 {
	n := len(closes)
	if n == 0 || len(highs) != n || len(lows) != n || len(volumes) != n {
		return nil
	}

	var pvSum, volSum float64
	for i := 0; i < n; i++ {
		typical := (highs[i] + lows[i] + closes[i]) / 3.0
		pvSum += typical * volumes[i]
		volSum += volumes[i]
	}
	if volSum == 0 {
		return nil
	}
	return utils.ToPointer(pvSum / volSum)
}

// OBV is the cumulative volume flow seeded at the first volume: volume
// is added on up-closes, subtracted on down-closes, unchanged on ties.
func OBV(closes, volumes []float64) *float64 {
	n := len(closes)
	if n < 2 || len(volumes) != n {
		return nil
	}

	obv := volumes[0]
	for i := 1; i < n; i++ {
		switch {
		case closes[i] > closes[i-1]:
			obv += volumes[i]
		case closes[i] < closes[i-1]:
			obv -= volumes[i]
		}
	}
	return utils.ToPointer(obv)
}

func highest(values []float64) float64 {
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

func lowest(values []float64) float64 {
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}
