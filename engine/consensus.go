package engine

import (
	"github.com/quibex/tradebot/shared"
)

// Decide combines per-strategy signals for one symbol at one timestamp into
// a single trade action. A side must reach quorum to act; when both sides
// reach quorum simultaneously the vote is genuinely split and resolves to
// hold.
func Decide(signals []shared.Signal, quorum uint32) shared.Action {
	var buyVotes, sellVotes uint32
	for idx := range signals {
		switch signals[idx].Action {
		case shared.Buy:
			buyVotes++
		case shared.Sell:
			sellVotes++
		default:
			// hold votes carry no weight.
		}
	}

	switch {
	case buyVotes >= quorum && sellVotes >= quorum:
		return shared.Hold
	case buyVotes >= quorum:
		return shared.Buy
	case sellVotes >= quorum:
		return shared.Sell
	default:
		return shared.Hold
	}
}
