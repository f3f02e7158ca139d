package strategy

import (
	"fmt"

	"github.com/quibex/tradebot/indicator"
	"github.com/quibex/tradebot/shared"
)

// RangeBreakout represents a rolling range breakout strategy. It tracks the
// high and low of closes over a lookback window and votes when the current
// close clears the prior window's bounds by more than a threshold fraction.
// The current candle is excluded from the range it must break.
type RangeBreakout struct {
	id        string
	threshold float64
	window    *indicator.Window
}

// NewRangeBreakout initializes a range breakout strategy with the provided
// lookback and breakout threshold fraction.
func NewRangeBreakout(lookback int, threshold float64) *RangeBreakout {
	return &RangeBreakout{
		id:        fmt.Sprintf("range-breakout-%d", lookback),
		threshold: threshold,
		window:    indicator.NewWindow(lookback),
	}
}

// ID returns the strategy identifier.
func (s *RangeBreakout) ID() string {
	return s.id
}

// ProcessCandle consumes one closed candle and votes on it.
func (s *RangeBreakout) ProcessCandle(candle *shared.Candlestick) shared.Signal {
	s.window.Push(candle.Close)

	high, low, ok := s.window.PriorRange()
	if !ok {
		return newSignal(s.id, candle, shared.Hold)
	}

	action := shared.Hold
	switch {
	case candle.Close > high*(1+s.threshold):
		action = shared.Buy
	case candle.Close < low*(1-s.threshold):
		action = shared.Sell
	}

	return newSignal(s.id, candle, action)
}
