package strategy

import (
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/quibex/tradebot/shared"
)

func TestMeanReversionHoldsUntilFullWindow(t *testing.T) {
	strat := NewMeanReversion(4, 1.0)

	for idx := range 3 {
		signal := strat.ProcessCandle(candleAt(100, idx))
		assert.Equal(t, shared.Hold, signal.Action)
	}
}

func TestMeanReversionBuyBelowBand(t *testing.T) {
	strat := NewMeanReversion(4, 1.0)
	offset := 0

	for _, close := range []float64{100, 100, 100} {
		strat.ProcessCandle(candleAt(close, offset))
		offset++
	}

	// A sharp drop below the lower band votes back toward the mean.
	signal := strat.ProcessCandle(candleAt(90, offset))
	assert.Equal(t, shared.Buy, signal.Action)
}

func TestMeanReversionSellAboveBand(t *testing.T) {
	strat := NewMeanReversion(4, 1.0)
	offset := 0

	for _, close := range []float64{100, 100, 100} {
		strat.ProcessCandle(candleAt(close, offset))
		offset++
	}

	signal := strat.ProcessCandle(candleAt(110, offset))
	assert.Equal(t, shared.Sell, signal.Action)
}

func TestMeanReversionHoldsInsideBand(t *testing.T) {
	strat := NewMeanReversion(4, 2.0)
	offset := 0

	for _, close := range []float64{100, 100, 100} {
		strat.ProcessCandle(candleAt(close, offset))
		offset++
	}

	// A small move stays inside the band.
	signal := strat.ProcessCandle(candleAt(100.2, offset))
	assert.Equal(t, shared.Hold, signal.Action)
}
