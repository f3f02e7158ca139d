package shared

import (
	"context"
	"time"
)

// OrderPlacer defines the requirements for placing orders with an execution
// venue. Paper implementations must be deterministic and free of side
// effects beyond their return value.
type OrderPlacer interface {
	// PlaceOrder submits the provided order and waits for an acknowledgement.
	PlaceOrder(ctx context.Context, order *Order) (*OrderConfirmation, error)
}

// CandleStore defines the requirements for durably storing market data and
// confirmed trades.
type CandleStore interface {
	// PersistCandle stores the provided closed candle.
	PersistCandle(ctx context.Context, candle *Candlestick) error
	// PersistClosedTrade stores the provided closed trade.
	PersistClosedTrade(ctx context.Context, trade *ClosedTrade) error
	// FetchCandles fetches stored candles for a market over a time range,
	// ordered by their start times.
	FetchCandles(ctx context.Context, market string, interval Interval, start time.Time, end time.Time) ([]Candlestick, error)
}

// TickSource defines the requirements for a time-ordered stream of market
// ticks. Sources may suffer transient disconnects, consumers tolerate the
// resulting gaps.
type TickSource interface {
	// Run streams ticks until the provided context is cancelled.
	Run(ctx context.Context)
}
