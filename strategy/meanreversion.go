package strategy

import (
	"fmt"

	"github.com/quibex/tradebot/indicator"
	"github.com/quibex/tradebot/shared"
)

// MeanReversion represents a band reversion strategy. A short exponential
// moving average anchors a band sized by the population standard deviation
// of the trailing window; closes beyond the band vote back toward the mean.
type MeanReversion struct {
	id     string
	ema    *indicator.EMA
	window *indicator.Window
	mult   float64
}

// NewMeanReversion initializes a mean reversion strategy with the provided
// lookback and band multiplier.
func NewMeanReversion(lookback int, mult float64) *MeanReversion {
	return &MeanReversion{
		id:     fmt.Sprintf("mean-reversion-%d", lookback),
		ema:    indicator.NewEMA(lookback),
		window: indicator.NewWindow(lookback),
		mult:   mult,
	}
}

// ID returns the strategy identifier.
func (s *MeanReversion) ID() string {
	return s.id
}

// ProcessCandle consumes one closed candle and votes on it.
func (s *MeanReversion) ProcessCandle(candle *shared.Candlestick) shared.Signal {
	mean := s.ema.Update(candle.Close)
	s.window.Push(candle.Close)

	if !s.window.Full() {
		return newSignal(s.id, candle, shared.Hold)
	}

	band := s.window.StdDev() * s.mult

	action := shared.Hold
	switch {
	case candle.Close < mean-band:
		action = shared.Buy
	case candle.Close > mean+band:
		action = shared.Sell
	}

	return newSignal(s.id, candle, action)
}
