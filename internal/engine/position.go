package engine

// positionBook owns every simulated position of one run: it opens them
// under the risk constraints and is the only place they are closed.
type positionBook struct {
	risk    RiskParameters
	feeRate float64

	open   []OpenPosition
	closed []ClosedTrade

	entriesHalted bool
}

func newPositionBook(risk RiskParameters, feeRate float64) *positionBook {
	return &positionBook{risk: risk, feeRate: feeRate}
}

// canOpen reports whether a new entry is allowed on this bar.
func (b *positionBook) canOpen() bool {
	return !b.entriesHalted && len(b.open) < b.risk.MaxPositions
}

// haltEntries permanently blocks new entries; open positions are still
// managed to closure.
func (b *positionBook) haltEntries() {
	b.entriesHalted = true
}

// openPosition enters long at the bar's close, sized in quote currency.
func (b *positionBook) openPosition(c Candle) {
	entry := c.Close
	b.open = append(b.open, OpenPosition{
		EntryTime:       c.Timestamp,
		EntryPrice:      entry,
		Quantity:        b.risk.PositionSizeUSD / entry,
		StopLossPrice:   entry * (1 - b.risk.StopLossPercent/100),
		TakeProfitPrice: entry * (1 + b.risk.TakeProfitPercent/100),
	})
}

// processBar checks every open position against the bar's range and the
// exit signal, returning the trades closed on this bar. When a bar's
// range touches both levels, the stop-loss wins.
func (b *positionBook) processBar(c Candle, exitSignal bool) []ClosedTrade {
	var closedNow []ClosedTrade
	remaining := b.open[:0]

	for _, pos := range b.open {
		hitStop := c.Low <= pos.StopLossPrice
		hitTarget := c.High >= pos.TakeProfitPrice

		switch {
		case hitStop:
			closedNow = append(closedNow, b.closeTrade(pos, c, pos.StopLossPrice, ExitStopLoss))
		case hitTarget:
			closedNow = append(closedNow, b.closeTrade(pos, c, pos.TakeProfitPrice, ExitTakeProfit))
		case exitSignal:
			closedNow = append(closedNow, b.closeTrade(pos, c, c.Close, ExitSignal))
		default:
			remaining = append(remaining, pos)
		}
	}

	b.open = remaining
	return closedNow
}

// closeAll force-closes whatever is still open at the final candle.
func (b *positionBook) closeAll(c Candle) []ClosedTrade {
	var closedNow []ClosedTrade
	for _, pos := range b.open {
		closedNow = append(closedNow, b.closeTrade(pos, c, c.Close, ExitEndOfData))
	}
	b.open = b.open[:0]
	return closedNow
}

func (b *positionBook) closeTrade(pos OpenPosition, c Candle, exitPrice float64, reason ExitReason) ClosedTrade {
	pnl := (exitPrice - pos.EntryPrice) * pos.Quantity
	fees := b.feeRate * pos.Quantity * (pos.EntryPrice + exitPrice)

	trade := ClosedTrade{
		EntryTime:  pos.EntryTime,
		ExitTime:   c.Timestamp,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		Quantity:   pos.Quantity,
		Pnl:        pnl,
		Fees:       fees,
		NetPnl:     pnl - fees,
		ExitReason: reason,
	}
	b.closed = append(b.closed, trade)
	return trade
}

// unrealizedPnl marks every open position to the given price.
func (b *positionBook) unrealizedPnl(price float64) float64 {
	var total float64
	for _, pos := range b.open {
		total += (price - pos.EntryPrice) * pos.Quantity
	}
	return total
}
