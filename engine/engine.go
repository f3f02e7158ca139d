// Package engine runs the per market strategy sets over the closed candle
// stream and reduces their votes into consensus decisions.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/quibex/tradebot/metrics"
	"github.com/quibex/tradebot/shared"
	"github.com/quibex/tradebot/strategy"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
)

// EngineConfig represents the strategy engine configuration.
type EngineConfig struct {
	// Markets represents the tracked markets.
	Markets []string
	// Quorum is the minimum number of agreeing strategy votes required to act.
	Quorum uint32
	// NewStrategies builds the independent strategy set for a market.
	NewStrategies func(market string) []strategy.Strategy
	// SendDecision relays the provided consensus decision for execution.
	SendDecision func(decision shared.Decision)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Engine runs the independent strategy sets over the candle stream and
// reduces their votes to one decision per closed candle.
type Engine struct {
	cfg           *EngineConfig
	strategies    map[string][]strategy.Strategy
	updateSignals chan shared.Candlestick
	barriers      chan chan struct{}
	lastProcessed map[string]time.Time
}

// NewEngine initializes a new strategy engine.
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	if cfg.Quorum == 0 {
		return nil, fmt.Errorf("quorum cannot be zero")
	}

	strategies := make(map[string][]strategy.Strategy, len(cfg.Markets))
	for idx := range cfg.Markets {
		set := cfg.NewStrategies(cfg.Markets[idx])
		if len(set) == 0 {
			return nil, fmt.Errorf("no strategies provided for %s", cfg.Markets[idx])
		}
		if cfg.Quorum > uint32(len(set)) {
			return nil, fmt.Errorf("quorum (%d) exceeds strategy count (%d), the engine could never trade",
				cfg.Quorum, len(set))
		}

		strategies[cfg.Markets[idx]] = set
	}

	return &Engine{
		cfg:           cfg,
		strategies:    strategies,
		updateSignals: make(chan shared.Candlestick, bufferSize),
		barriers:      make(chan chan struct{}),
		lastProcessed: make(map[string]time.Time),
	}, nil
}

// SendMarketUpdate relays the provided closed candle for processing.
func (e *Engine) SendMarketUpdate(candle shared.Candlestick) {
	select {
	case e.updateSignals <- candle:
		// do nothing.
	default:
		e.cfg.Logger.Error().Msgf("market update channel at capacity: %d/%d",
			len(e.updateSignals), bufferSize)
	}
}

// Drain blocks until every candle queued before the call has been processed
// and its decision relayed. The engine must be running.
func (e *Engine) Drain() {
	done := make(chan struct{})
	e.barriers <- done
	<-done
}

// drainUpdates processes queued candles without waiting for new ones.
func (e *Engine) drainUpdates() {
	for {
		select {
		case candle := <-e.updateSignals:
			e.handleUpdateCandle(&candle)
		default:
			return
		}
	}
}

// Prime warms the strategy set for a market with historical candles. No
// decisions are emitted for primed candles, they only seed indicator state.
func (e *Engine) Prime(market string, candles []shared.Candlestick) {
	set, ok := e.strategies[market]
	if !ok {
		return
	}

	for idx := range candles {
		for k := range set {
			set[k].ProcessCandle(&candles[idx])
		}

		if candles[idx].Start.After(e.lastProcessed[market]) {
			e.lastProcessed[market] = candles[idx].Start
		}
	}
}

// handleUpdateCandle processes the provided closed candle.
func (e *Engine) handleUpdateCandle(candle *shared.Candlestick) {
	set, ok := e.strategies[candle.Market]
	if !ok {
		e.cfg.Logger.Error().Msgf("no strategies found for market %s", candle.Market)
		return
	}

	// Duplicate or out of order candle delivery is dropped so strategies
	// only ever consume the candle stream in close order.
	last, seen := e.lastProcessed[candle.Market]
	if seen && !candle.Start.After(last) {
		e.cfg.Logger.Debug().Msgf("dropping stale candle for %s at %s",
			candle.Market, candle.Start.Format(time.RFC3339))
		return
	}
	e.lastProcessed[candle.Market] = candle.Start

	signals := make([]shared.Signal, 0, len(set))
	for idx := range set {
		signal := set[idx].ProcessCandle(candle)
		signals = append(signals, signal)

		if signal.Action != shared.Hold {
			metrics.StrategySignals.WithLabelValues(signal.StrategyID, signal.Action.String()).Inc()
			e.cfg.Logger.Info().Msgf("%s signalled %s for %s @ %f",
				signal.StrategyID, signal.Action.String(), signal.Market, signal.Price)
		}
	}

	decision := shared.Decision{
		Market:    candle.Market,
		Action:    Decide(signals, e.cfg.Quorum),
		Candle:    *candle,
		Signals:   signals,
		CreatedOn: candle.End,
	}

	e.cfg.SendDecision(decision)
}

// Run manages the lifecycle processes of the strategy engine. Candles are
// handled sequentially to preserve per market close order.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case candle := <-e.updateSignals:
			e.handleUpdateCandle(&candle)
		case done := <-e.barriers:
			e.drainUpdates()
			close(done)
		}
	}
}
