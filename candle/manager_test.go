package candle

import (
	"context"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/quibex/tradebot/shared"
	"github.com/rs/zerolog/log"
)

func setupManager(t *testing.T, persist func(candle *shared.Candlestick) error) *Manager {
	cfg := &ManagerConfig{
		Markets:       []string{"BTC-USD", "ETH-USD"},
		Interval:      shared.OneMinute,
		PersistCandle: persist,
		Logger:        &log.Logger,
	}

	return NewManager(cfg)
}

func TestManager(t *testing.T) {
	persisted := make(chan shared.Candlestick, 5)
	mgr := setupManager(t, func(candle *shared.Candlestick) error {
		persisted <- *candle
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ensure the candle manager can be run.
	done := make(chan struct{})
	go func() {
		mgr.Run(ctx)
		close(done)
	}()

	// Ensure entities can subscribe for closed candles.
	sub := make(chan shared.Candlestick, 5)
	mgr.Subscribe(&sub)

	base := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	// Ticks within one bucket produce no closed candle.
	mgr.SendTick(shared.Tick{Market: "BTC-USD", Price: 100, Volume: 1, Timestamp: base})
	mgr.SendTick(shared.Tick{Market: "BTC-USD", Price: 104, Volume: 2, Timestamp: base.Add(time.Second * 30)})

	// The boundary crossing tick closes the candle and fans it out.
	mgr.SendTick(shared.Tick{Market: "BTC-USD", Price: 101, Volume: 1, Timestamp: base.Add(time.Second * 70)})

	closed := <-sub
	assert.Equal(t, "BTC-USD", closed.Market)
	assert.Equal(t, float64(100), closed.Open)
	assert.Equal(t, float64(104), closed.High)
	assert.Equal(t, float64(104), closed.Close)
	assert.Equal(t, base, closed.Start)

	// Closed candles are persisted as well as fanned out.
	stored := <-persisted
	assert.Equal(t, closed, stored)

	// Ticks for unknown markets are dropped.
	mgr.SendTick(shared.Tick{Market: "DOGE-USD", Price: 1, Volume: 1, Timestamp: base})

	// Markets aggregate independently of each other.
	mgr.SendTick(shared.Tick{Market: "ETH-USD", Price: 50, Volume: 1, Timestamp: base})
	mgr.SendTick(shared.Tick{Market: "ETH-USD", Price: 52, Volume: 1, Timestamp: base.Add(time.Second * 65)})

	ethClosed := <-sub
	assert.Equal(t, "ETH-USD", ethClosed.Market)
	assert.Equal(t, float64(50), ethClosed.Close)

	// Ensure the candle manager can be gracefully terminated.
	cancel()
	<-done
}

func TestManagerFlushStalled(t *testing.T) {
	mgr := setupManager(t, nil)

	sub := make(chan shared.Candlestick, 5)
	mgr.Subscribe(&sub)

	// Open a candle whose interval has long elapsed.
	past := time.Now().UTC().Add(-time.Hour)
	mgr.handleTick(&shared.Tick{Market: "BTC-USD", Price: 100, Volume: 1, Timestamp: past})

	mgr.flushStalled()

	closed := <-sub
	assert.Equal(t, "BTC-USD", closed.Market)
	assert.Equal(t, shared.OneMinute.Truncate(past), closed.Start)

	// A second flush with nothing open produces nothing.
	mgr.flushStalled()
	assert.Equal(t, 0, len(sub))
}

func TestManagerDrain(t *testing.T) {
	mgr := setupManager(t, nil)

	sub := make(chan shared.Candlestick, 5)
	mgr.Subscribe(&sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		mgr.Run(ctx)
		close(done)
	}()

	base := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	mgr.SendTickBlocking(shared.Tick{Market: "BTC-USD", Price: 100, Volume: 1, Timestamp: base})
	mgr.SendTickBlocking(shared.Tick{Market: "BTC-USD", Price: 104, Volume: 1, Timestamp: base.Add(time.Second * 70)})

	// Drain returns only once the queued ticks have been processed, so the
	// closed candle is already fanned out with no settling wait.
	mgr.Drain()

	select {
	case closed := <-sub:
		assert.Equal(t, base, closed.Start)
		assert.Equal(t, float64(100), closed.Close)
	default:
		t.Fatal("expected a closed candle after drain")
	}

	cancel()
	<-done
}

func TestFillManagerChannels(t *testing.T) {
	mgr := setupManager(t, nil)

	tick := shared.Tick{Market: "BTC-USD", Price: 100, Volume: 1, Timestamp: time.Now().UTC()}

	// Fill all the channels used by the manager.
	for range bufferSize + 1 {
		mgr.SendTick(tick)
	}

	assert.Equal(t, bufferSize, len(mgr.ticks))
}
