package strategy

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/quibex/tradebot/shared"
)

// candleAt builds a closed candle with the provided close price, offset
// minutes from a fixed base time.
func candleAt(close float64, offset int) *shared.Candlestick {
	start := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC).Add(time.Duration(offset) * time.Minute)
	return &shared.Candlestick{
		Market:   "BTC-USD",
		Interval: shared.OneMinute,
		Open:     close,
		High:     close,
		Low:      close,
		Close:    close,
		Volume:   1,
		Start:    start,
		End:      start.Add(time.Minute),
	}
}

func TestTrendCrossHoldsUntilReady(t *testing.T) {
	strat := NewTrendCross(2, 4)

	// Holds on every candle until the slow average has its full period.
	for idx := range 3 {
		signal := strat.ProcessCandle(candleAt(100, idx))
		assert.Equal(t, shared.Hold, signal.Action)
	}
}

func TestTrendCrossBuyOnUpwardCross(t *testing.T) {
	strat := NewTrendCross(2, 4)
	offset := 0

	// Establish a downtrend so the fast average sits below the slow one.
	for _, close := range []float64{100, 98, 96, 94, 92} {
		signal := strat.ProcessCandle(candleAt(close, offset))
		assert.Equal(t, shared.Hold, signal.Action)
		offset++
	}

	// Rally until the fast average crosses above the slow one. Exactly one
	// buy fires across the whole rally.
	var buys, sells int
	for _, close := range []float64{100, 108, 116, 124, 132, 140} {
		signal := strat.ProcessCandle(candleAt(close, offset))
		switch signal.Action {
		case shared.Buy:
			buys++
		case shared.Sell:
			sells++
		}
		offset++
	}

	assert.Equal(t, 1, buys)
	assert.Equal(t, 0, sells)
}

func TestTrendCrossSellOnDownwardCross(t *testing.T) {
	strat := NewTrendCross(2, 4)
	offset := 0

	// Establish an uptrend.
	for _, close := range []float64{100, 102, 104, 106, 108} {
		strat.ProcessCandle(candleAt(close, offset))
		offset++
	}

	// Sell off until the fast average crosses below. Exactly one sell fires.
	var buys, sells int
	for _, close := range []float64{100, 92, 84, 76, 68, 60} {
		signal := strat.ProcessCandle(candleAt(close, offset))
		switch signal.Action {
		case shared.Buy:
			buys++
		case shared.Sell:
			sells++
		}
		offset++
	}

	assert.Equal(t, 0, buys)
	assert.Equal(t, 1, sells)
}

func TestTrendCrossSignalFields(t *testing.T) {
	strat := NewTrendCross(2, 4)
	candle := candleAt(100, 0)

	signal := strat.ProcessCandle(candle)
	assert.Equal(t, "trend-cross-2-4", signal.StrategyID)
	assert.Equal(t, strat.ID(), signal.StrategyID)
	assert.Equal(t, "BTC-USD", signal.Market)
	assert.Equal(t, candle.Close, signal.Price)
	assert.Equal(t, candle.End, signal.CreatedOn)
}
