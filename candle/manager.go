package candle

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/quibex/tradebot/metrics"
	"github.com/quibex/tradebot/shared"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// minSubscriberBuffer is the minimum buffer size for subscribers.
	minSubscriberBuffer = 8
)

// ManagerConfig represents the candle manager configuration.
type ManagerConfig struct {
	// Markets represents the tracked markets.
	Markets []string
	// Interval is the candle aggregation interval.
	Interval shared.Interval
	// PersistCandle stores the provided closed candle.
	PersistCandle func(candle *shared.Candlestick) error
	// JobScheduler is the job scheduler used to flush stalled open candles.
	// Optional, replay driven sessions leave it unset so candle boundaries
	// stay purely tick driven.
	JobScheduler *gocron.Scheduler
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Manager aggregates ticks for all tracked markets and fans closed candles
// out to subscribers in close order.
type Manager struct {
	cfg            *ManagerConfig
	builders       map[string]*Builder
	ticks          chan shared.Tick
	barriers       chan chan struct{}
	subscribers    []*chan shared.Candlestick
	subscribersMtx sync.Mutex
}

// NewManager initializes a new candle manager.
func NewManager(cfg *ManagerConfig) *Manager {
	builders := make(map[string]*Builder, len(cfg.Markets))
	for idx := range cfg.Markets {
		builders[cfg.Markets[idx]] = NewBuilder(cfg.Markets[idx], cfg.Interval)
	}

	return &Manager{
		cfg:         cfg,
		builders:    builders,
		ticks:       make(chan shared.Tick, bufferSize),
		barriers:    make(chan chan struct{}),
		subscribers: make([]*chan shared.Candlestick, 0, minSubscriberBuffer),
	}
}

// Subscribe registers the provided subscriber for closed candle updates.
func (m *Manager) Subscribe(sub *chan shared.Candlestick) {
	m.subscribersMtx.Lock()
	m.subscribers = append(m.subscribers, sub)
	m.subscribersMtx.Unlock()
}

// SendTick relays the provided tick for processing.
func (m *Manager) SendTick(tick shared.Tick) {
	select {
	case m.ticks <- tick:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("tick channel at capacity: %d/%d",
			len(m.ticks), bufferSize)
	}
}

// SendTickBlocking relays the provided tick, waiting for channel capacity.
// Replay sources use this so no recorded tick is ever dropped.
func (m *Manager) SendTickBlocking(tick shared.Tick) {
	m.ticks <- tick
}

// Drain blocks until every tick queued before the call has been processed
// and its closed candles delivered to subscribers. The manager must be
// running.
func (m *Manager) Drain() {
	done := make(chan struct{})
	m.barriers <- done
	<-done
}

// drainTicks processes queued ticks without waiting for new ones.
func (m *Manager) drainTicks() {
	for {
		select {
		case tick := <-m.ticks:
			m.handleTick(&tick)
		default:
			return
		}
	}
}

// notifySubscribers notifies subscribers of the provided closed candle.
func (m *Manager) notifySubscribers(candle *shared.Candlestick) {
	m.subscribersMtx.Lock()
	defer m.subscribersMtx.Unlock()

	for k := range m.subscribers {
		*m.subscribers[k] <- *candle
	}
}

// publishClosedCandle persists the provided closed candle and relays it to
// subscribers.
func (m *Manager) publishClosedCandle(candle *shared.Candlestick) {
	metrics.CandlesClosed.WithLabelValues(candle.Market).Inc()

	if m.cfg.PersistCandle != nil {
		err := m.cfg.PersistCandle(candle)
		if err != nil {
			m.cfg.Logger.Error().Msgf("persisting closed candle for %s: %v", candle.Market, err)
		}
	}

	m.notifySubscribers(candle)
}

// handleTick processes the provided tick.
func (m *Manager) handleTick(tick *shared.Tick) {
	builder, ok := m.builders[tick.Market]
	if !ok {
		m.cfg.Logger.Error().Msgf("no builder found for market %s", tick.Market)
		return
	}

	metrics.TicksIngested.WithLabelValues(tick.Market).Inc()

	closed := builder.Ingest(tick)
	if closed != nil {
		m.publishClosedCandle(closed)
	}
}

// flushStalled closes open candles whose intervals have fully elapsed. A
// market whose feed stalls mid-candle would otherwise never deliver its
// final candle to subscribers.
func (m *Manager) flushStalled() {
	now := time.Now().UTC()
	for _, builder := range m.builders {
		closed := builder.Flush(now)
		if closed != nil {
			m.publishClosedCandle(closed)
		}
	}
}

// Run manages the lifecycle processes of the candle manager. Ticks are
// handled sequentially so subscribers observe candles strictly in close
// order per market.
func (m *Manager) Run(ctx context.Context) {
	if m.cfg.JobScheduler != nil {
		_, err := m.cfg.JobScheduler.Every(m.cfg.Interval.Duration()).Do(m.flushStalled)
		if err != nil {
			m.cfg.Logger.Error().Msgf("scheduling candle flush job: %v", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-m.ticks:
			m.handleTick(&tick)
		case done := <-m.barriers:
			m.drainTicks()
			close(done)
		}
	}
}
