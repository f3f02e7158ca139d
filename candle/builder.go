// Package candle aggregates raw market ticks into fixed interval candles
// and fans closed candles out to the rest of the pipeline.
package candle

import (
	"time"

	"github.com/quibex/tradebot/shared"
)

// Builder aggregates raw ticks into fixed-duration candlesticks for a single
// market. Interval boundaries are derived solely from tick timestamps, so
// identical tick sequences always produce identical candles regardless of
// sampling jitter.
type Builder struct {
	market     string
	interval   shared.Interval
	current    *shared.Candlestick
	lastClosed time.Time
}

// NewBuilder initializes a candle builder for the provided market and interval.
func NewBuilder(market string, interval shared.Interval) *Builder {
	return &Builder{
		market:   market,
		interval: interval,
	}
}

// Ingest accumulates the provided tick into the currently open candle and
// returns the just-closed candle when the tick crosses into a new interval
// bucket. The first tick seen for the market opens a candle with all four
// price fields set to the tick's price. Intervals without ticks produce no
// candle at all.
func (b *Builder) Ingest(tick *shared.Tick) *shared.Candlestick {
	if tick.Market != b.market {
		return nil
	}

	start := b.interval.Truncate(tick.Timestamp)

	if b.current == nil {
		if !start.After(b.lastClosed) {
			// Backlogged tick from an already closed bucket, reopening it
			// would emit a second partial candle for the same start.
			return nil
		}
		b.current = shared.NewCandlestick(tick, b.interval)
		return nil
	}

	if start.Equal(b.current.Start) {
		b.current.Update(tick)
		return nil
	}

	if start.Before(b.current.Start) {
		// Late tick from an already closed bucket, drop it.
		return nil
	}

	closed := b.current
	b.current = shared.NewCandlestick(tick, b.interval)
	b.lastClosed = closed.Start

	return closed
}

// Flush closes and returns the open candle if its interval has fully elapsed
// at the provided time, else returns nil. Used by live feeds where a stall in
// ticks would otherwise leave the final candle of a run open indefinitely.
func (b *Builder) Flush(now time.Time) *shared.Candlestick {
	if b.current == nil {
		return nil
	}

	if now.Before(b.current.End) {
		return nil
	}

	closed := b.current
	b.current = nil
	b.lastClosed = closed.Start

	return closed
}
