package engine

import (
	"fmt"

	"crypto-backtest/internal/indicator"
	"crypto-backtest/pkg/utils"
)

// Indicator families group the snapshot names that share one
// computation and warm-up length.
const (
	famSMA   = "sma"
	famEMA   = "ema"
	famRSI   = "rsi"
	famMACD  = "macd"
	famBB    = "bb"
	famStoch = "stoch"
	famATR   = "atr"
	famWR    = "williams_r"
	famVWAP  = "vwap"
	famOBV   = "obv"
)

// indicatorFamily maps a condition's indicator name to its family.
// close and volume come straight off the candle and need no family.
func indicatorFamily(name string) (string, bool) {
	switch name {
	case IndClose, IndVolume:
		return "", true
	case IndSMA:
		return famSMA, true
	case IndEMA:
		return famEMA, true
	case IndRSI:
		return famRSI, true
	case IndMACD, IndMACDSignal, IndMACDHistogram:
		return famMACD, true
	case IndBBUpper, IndBBMiddle, IndBBLower:
		return famBB, true
	case IndStochK, IndStochD:
		return famStoch, true
	case IndATR:
		return famATR, true
	case IndWilliamsR:
		return famWR, true
	case IndVWAP:
		return famVWAP, true
	case IndOBV:
		return famOBV, true
	}
	return "", false
}

// emaAccum carries EMA state across bars: SMA seed over the first
// period values, then the 2/(period+1) recurrence.
type emaAccum struct {
	period  int
	alpha   float64
	count   int
	seedSum float64
	value   float64
}

func newEMAAccum(period int) *emaAccum {
	return &emaAccum{period: period, alpha: 2.0 / (float64(period) + 1.0)}
}

func (a *emaAccum) push(v float64) {
	a.count++
	switch {
	case a.count < a.period:
		a.seedSum += v
	case a.count == a.period:
		a.value = (a.seedSum + v) / float64(a.period)
	default:
		a.value = a.alpha*v + (1-a.alpha)*a.value
	}
}

func (a *emaAccum) ready() bool {
	return a.count >= a.period
}

// macdAccum feeds the signal EMA with the MACD line once the slow EMA
// is seeded.
type macdAccum struct {
	fast    *emaAccum
	slow    *emaAccum
	signal  *emaAccum
	bars    int
	minBars int
}

func newMACDAccum(fast, slow, signal int) *macdAccum {
	return &macdAccum{
		fast:    newEMAAccum(fast),
		slow:    newEMAAccum(slow),
		signal:  newEMAAccum(signal),
		minBars: slow + signal,
	}
}

func (a *macdAccum) push(close float64) {
	a.bars++
	a.fast.push(close)
	a.slow.push(close)
	if a.slow.ready() {
		a.signal.push(a.fast.value - a.slow.value)
	}
}

func (a *macdAccum) ready() bool {
	return a.bars >= a.minBars && a.signal.ready()
}

func (a *macdAccum) values() (macd, signal, histogram float64) {
	macd = a.fast.value - a.slow.value
	signal = a.signal.value
	return macd, signal, macd - signal
}

// obvAccum is the running on-balance-volume total, seeded at the first
// bar's volume.
type obvAccum struct {
	count     int
	prevClose float64
	value     float64
}

func (a *obvAccum) push(close, volume float64) {
	a.count++
	if a.count == 1 {
		a.value = volume
		a.prevClose = close
		return
	}
	switch {
	case close > a.prevClose:
		a.value += volume
	case close < a.prevClose:
		a.value -= volume
	}
	a.prevClose = close
}

func (a *obvAccum) ready() bool {
	return a.count >= 2
}

// seriesBuffer keeps the minimal trailing OHLCV window the windowed
// indicators need, shifting in place once full.
type seriesBuffer struct {
	capacity int
	highs    []float64
	lows     []float64
	closes   []float64
	volumes  []float64
}

func newSeriesBuffer(capacity int) *seriesBuffer {
	return &seriesBuffer{
		capacity: capacity,
		highs:    make([]float64, 0, capacity),
		lows:     make([]float64, 0, capacity),
		closes:   make([]float64, 0, capacity),
		volumes:  make([]float64, 0, capacity),
	}
}

func (b *seriesBuffer) push(c Candle) {
	if len(b.closes) == b.capacity {
		shiftLeft(b.highs, c.High)
		shiftLeft(b.lows, c.Low)
		shiftLeft(b.closes, c.Close)
		shiftLeft(b.volumes, c.Volume)
		return
	}
	b.highs = append(b.highs, c.High)
	b.lows = append(b.lows, c.Low)
	b.closes = append(b.closes, c.Close)
	b.volumes = append(b.volumes, c.Volume)
}

func shiftLeft(s []float64, v float64) {
	copy(s, s[1:])
	s[len(s)-1] = v
}

// tail returns the last n elements, or the whole slice when shorter.
func tail(s []float64, n int) []float64 {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// indicatorState is the per-run indicator pipeline: one rolling buffer
// plus explicit accumulators, so concurrent runs never share state.
type indicatorState struct {
	params IndicatorParams
	need   map[string]bool

	buf  *seriesBuffer
	ema  *emaAccum
	macd *macdAccum
	obv  *obvAccum
}

func newIndicatorState(strategy Strategy) (*indicatorState, error) {
	need := make(map[string]bool)
	for _, cond := range append(append([]Condition{}, strategy.EntryConditions...), strategy.ExitConditions...) {
		family, ok := indicatorFamily(cond.Indicator)
		if !ok {
			return nil, &InvalidConfigurationError{Reason: fmt.Sprintf("unknown indicator %q", cond.Indicator)}
		}
		if family != "" {
			need[family] = true
		}
	}

	p := strategy.Indicators
	if err := validateIndicatorParams(need, p); err != nil {
		return nil, err
	}

	st := &indicatorState{
		params: p,
		need:   need,
		buf:    newSeriesBuffer(bufferCapacity(need, p)),
	}
	if need[famEMA] {
		st.ema = newEMAAccum(p.EMAPeriod)
	}
	if need[famMACD] {
		st.macd = newMACDAccum(p.MACDFast, p.MACDSlow, p.MACDSignal)
	}
	if need[famOBV] {
		st.obv = &obvAccum{}
	}
	return st, nil
}

func validateIndicatorParams(need map[string]bool, p IndicatorParams) error {
	check := func(used bool, value int, name string) error {
		if used && value <= 0 {
			return &InvalidConfigurationError{Reason: fmt.Sprintf("%s must be positive", name)}
		}
		return nil
	}
	checks := []error{
		check(need[famSMA], p.SMAPeriod, "sma_period"),
		check(need[famEMA], p.EMAPeriod, "ema_period"),
		check(need[famRSI], p.RSIPeriod, "rsi_period"),
		check(need[famMACD], p.MACDFast, "macd_fast"),
		check(need[famMACD], p.MACDSlow, "macd_slow"),
		check(need[famMACD], p.MACDSignal, "macd_signal"),
		check(need[famBB], p.BBPeriod, "bb_period"),
		check(need[famStoch], p.StochPeriod, "stoch_period"),
		check(need[famStoch], p.StochSmoothing, "stoch_smoothing"),
		check(need[famATR], p.ATRPeriod, "atr_period"),
		check(need[famWR], p.WilliamsRPeriod, "williams_r_period"),
		check(need[famVWAP], p.VWAPWindow, "vwap_window"),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	if need[famMACD] && p.MACDFast >= p.MACDSlow {
		return &InvalidConfigurationError{Reason: "macd_fast must be shorter than macd_slow"}
	}
	if need[famBB] && p.BBStdDev <= 0 {
		return &InvalidConfigurationError{Reason: "bb_std_dev must be positive"}
	}
	return nil
}

// warmup returns the candle count the strategy needs before every
// referenced indicator produces a value.
func (st *indicatorState) warmup() int {
	required := 1
	bump := func(n int) {
		if n > required {
			required = n
		}
	}
	p := st.params
	if st.need[famSMA] {
		bump(p.SMAPeriod)
	}
	if st.need[famEMA] {
		bump(p.EMAPeriod)
	}
	if st.need[famRSI] {
		bump(p.RSIPeriod + 1)
	}
	if st.need[famMACD] {
		bump(p.MACDSlow + p.MACDSignal)
	}
	if st.need[famBB] {
		bump(p.BBPeriod)
	}
	if st.need[famStoch] {
		bump(p.StochPeriod + p.StochSmoothing - 1)
	}
	if st.need[famATR] {
		bump(p.ATRPeriod + 1)
	}
	if st.need[famWR] {
		bump(p.WilliamsRPeriod)
	}
	if st.need[famOBV] {
		bump(2)
	}
	return required
}

// bufferCapacity sizes the rolling buffer for the largest window any
// windowed indicator reads.
func bufferCapacity(need map[string]bool, p IndicatorParams) int {
	capacity := 1
	bump := func(n int) {
		if n > capacity {
			capacity = n
		}
	}
	if need[famSMA] {
		bump(p.SMAPeriod)
	}
	if need[famRSI] {
		bump(p.RSIPeriod + 1)
	}
	if need[famBB] {
		bump(p.BBPeriod)
	}
	if need[famStoch] {
		bump(p.StochPeriod + p.StochSmoothing - 1)
	}
	if need[famATR] {
		bump(p.ATRPeriod + 1)
	}
	if need[famWR] {
		bump(p.WilliamsRPeriod)
	}
	if need[famVWAP] {
		bump(p.VWAPWindow)
	}
	return capacity
}

// update feeds one bar through the pipeline and returns the snapshot
// the condition evaluator sees. Missing keys read as nil (warming up).
func (st *indicatorState) update(c Candle) Snapshot {
	st.buf.push(c)
	if st.ema != nil {
		st.ema.push(c.Close)
	}
	if st.macd != nil {
		st.macd.push(c.Close)
	}
	if st.obv != nil {
		st.obv.push(c.Close, c.Volume)
	}

	snap := Snapshot{
		IndClose:  utils.ToPointer(c.Close),
		IndVolume: utils.ToPointer(c.Volume),
	}

	p := st.params
	if st.need[famSMA] {
		snap[IndSMA] = indicator.SMA(st.buf.closes, p.SMAPeriod)
	}
	if st.ema != nil && st.ema.ready() {
		snap[IndEMA] = utils.ToPointer(st.ema.value)
	}
	if st.need[famRSI] {
		snap[IndRSI] = indicator.RSI(st.buf.closes, p.RSIPeriod)
	}
	if st.macd != nil && st.macd.ready() {
		macd, signal, histogram := st.macd.values()
		snap[IndMACD] = utils.ToPointer(macd)
		snap[IndMACDSignal] = utils.ToPointer(signal)
		snap[IndMACDHistogram] = utils.ToPointer(histogram)
	}
	if st.need[famBB] {
		if bb := indicator.BollingerBands(st.buf.closes, p.BBPeriod, p.BBStdDev); bb != nil {
			snap[IndBBUpper] = utils.ToPointer(bb.Upper)
			snap[IndBBMiddle] = utils.ToPointer(bb.Middle)
			snap[IndBBLower] = utils.ToPointer(bb.Lower)
		}
	}
	if st.need[famStoch] {
		if stoch := indicator.Stochastic(st.buf.highs, st.buf.lows, st.buf.closes, p.StochPeriod, p.StochSmoothing); stoch != nil {
			snap[IndStochK] = utils.ToPointer(stoch.K)
			snap[IndStochD] = utils.ToPointer(stoch.D)
		}
	}
	if st.need[famATR] {
		snap[IndATR] = indicator.ATR(st.buf.highs, st.buf.lows, st.buf.closes, p.ATRPeriod)
	}
	if st.need[famWR] {
		snap[IndWilliamsR] = indicator.WilliamsR(st.buf.highs, st.buf.lows, st.buf.closes, p.WilliamsRPeriod)
	}
	if st.need[famVWAP] {
		w := p.VWAPWindow
		snap[IndVWAP] = indicator.VWAP(tail(st.buf.highs, w), tail(st.buf.lows, w), tail(st.buf.closes, w), tail(st.buf.volumes, w))
	}
	if st.obv != nil && st.obv.ready() {
		snap[IndOBV] = utils.ToPointer(st.obv.value)
	}

	return snap
}
