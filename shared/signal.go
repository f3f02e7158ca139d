package shared

import (
	"time"
)

// Action represents the trade action advised by a strategy or by consensus.
type Action int

const (
	Hold Action = iota
	Buy
	Sell
)

// String stringifies the provided action.
func (a Action) String() string {
	switch a {
	case Hold:
		return "hold"
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Direction represents the direction of an open position.
type Direction int

const (
	Long Direction = iota
	Short
)

// String stringifies the provided direction.
func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "unknown"
	}
}

// Opposes reports whether the provided action argues against a position
// held in the direction.
func (d Direction) Opposes(action Action) bool {
	switch d {
	case Long:
		return action == Sell
	case Short:
		return action == Buy
	default:
		return false
	}
}

// Signal represents a single strategy's vote for a closed candle.
type Signal struct {
	StrategyID string
	Market     string
	Action     Action
	Price      float64
	CreatedOn  time.Time
}

// Decision represents the consensus outcome for one closed candle. The
// candle that produced it rides along so downstream consumers advance on
// the same data the vote was taken on.
type Decision struct {
	Market    string
	Action    Action
	Candle    Candlestick
	Signals   []Signal
	CreatedOn time.Time
}
