package strategy

import (
	"fmt"

	"github.com/quibex/tradebot/indicator"
	"github.com/quibex/tradebot/shared"
)

// TrendCross represents a fast/slow exponential moving average crossover
// strategy. Signals are edge triggered: a buy fires only on the candle where
// the fast average crosses above the slow one, not on every candle it
// remains above.
type TrendCross struct {
	id       string
	fast     *indicator.EMA
	slow     *indicator.EMA
	prevFast float64
	prevSlow float64
	primed   bool
}

// NewTrendCross initializes a trend cross strategy with the provided fast
// and slow periods.
func NewTrendCross(fastPeriod int, slowPeriod int) *TrendCross {
	return &TrendCross{
		id:   fmt.Sprintf("trend-cross-%d-%d", fastPeriod, slowPeriod),
		fast: indicator.NewEMA(fastPeriod),
		slow: indicator.NewEMA(slowPeriod),
	}
}

// ID returns the strategy identifier.
func (s *TrendCross) ID() string {
	return s.id
}

// ProcessCandle consumes one closed candle and votes on it.
func (s *TrendCross) ProcessCandle(candle *shared.Candlestick) shared.Signal {
	fast := s.fast.Update(candle.Close)
	slow := s.slow.Update(candle.Close)

	if !s.slow.Ready() {
		s.prevFast = fast
		s.prevSlow = slow
		s.primed = true
		return newSignal(s.id, candle, shared.Hold)
	}

	action := shared.Hold
	if s.primed {
		switch {
		case s.prevFast <= s.prevSlow && fast > slow:
			action = shared.Buy
		case s.prevFast >= s.prevSlow && fast < slow:
			action = shared.Sell
		}
	}

	s.prevFast = fast
	s.prevSlow = slow
	s.primed = true

	return newSignal(s.id, candle, action)
}
