// Package strategy implements the candle driven trading strategies and the
// capability interface they share.
package strategy

import (
	"github.com/quibex/tradebot/shared"
)

// Strategy defines the requirements for a candle driven trading strategy.
// Implementations are stateful across calls and own a bounded history sized
// to their longest indicator lookback. They never share mutable state.
type Strategy interface {
	// ProcessCandle consumes one closed candle and returns the strategy's
	// vote for it. Insufficient history yields a hold vote, never an error.
	ProcessCandle(candle *shared.Candlestick) shared.Signal
	// ID returns the strategy's human readable identifier.
	ID() string
}

// newSignal builds a signal for the provided strategy and candle.
func newSignal(id string, candle *shared.Candlestick, action shared.Action) shared.Signal {
	return shared.Signal{
		StrategyID: id,
		Market:     candle.Market,
		Action:     action,
		Price:      candle.Close,
		CreatedOn:  candle.End,
	}
}
