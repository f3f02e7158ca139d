// Package trade implements the execution coordinator that owns the per
// market position lifecycle state machine and dispatches to the order
// placement interface.
package trade

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/quibex/tradebot/metrics"
	"github.com/quibex/tradebot/risk"
	"github.com/quibex/tradebot/shared"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
)

// State represents the position lifecycle state of a market.
type State int

const (
	Flat State = iota
	PendingEntry
	Open
	PendingExit
)

// String stringifies the provided state.
func (s State) String() string {
	switch s {
	case Flat:
		return "flat"
	case PendingEntry:
		return "pending entry"
	case Open:
		return "open"
	case PendingExit:
		return "pending exit"
	default:
		return "unknown"
	}
}

// CoordinatorConfig represents the execution coordinator configuration.
type CoordinatorConfig struct {
	// Markets represents the tracked markets.
	Markets []string
	// Mode is the order execution mode.
	Mode shared.Mode
	// OrderPlacer submits orders to the execution venue.
	OrderPlacer shared.OrderPlacer
	// RiskManager owns the session risk state.
	RiskManager *risk.Manager
	// PersistClosedTrade stores the provided confirmed closed trade.
	PersistClosedTrade func(trade *shared.ClosedTrade) error
	// Notify sends the provided message.
	Notify func(message string)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Coordinator advances the position lifecycle state machine once per closed
// candle. State only changes after order confirmation, so a rejected or
// timed out placement always reverts to the prior terminal state without
// touching the risk manager.
type Coordinator struct {
	cfg           *CoordinatorConfig
	states        map[string]State
	statesMtx     sync.Mutex
	lastProcessed map[string]time.Time
	decisions     chan shared.Decision
	barriers      chan chan struct{}
}

// NewCoordinator initializes a new execution coordinator.
func NewCoordinator(cfg *CoordinatorConfig) *Coordinator {
	states := make(map[string]State, len(cfg.Markets))
	for idx := range cfg.Markets {
		states[cfg.Markets[idx]] = Flat
	}

	return &Coordinator{
		cfg:           cfg,
		states:        states,
		lastProcessed: make(map[string]time.Time),
		decisions:     make(chan shared.Decision, bufferSize),
		barriers:      make(chan chan struct{}),
	}
}

// SendDecision relays the provided consensus decision for processing.
func (c *Coordinator) SendDecision(decision shared.Decision) {
	select {
	case c.decisions <- decision:
		// do nothing.
	default:
		c.cfg.Logger.Error().Msgf("decision channel at capacity: %d/%d",
			len(c.decisions), bufferSize)
	}
}

// Drain blocks until every decision queued before the call has been fully
// handled, including any order placement it triggered. The coordinator must
// be running.
func (c *Coordinator) Drain() {
	done := make(chan struct{})
	c.barriers <- done
	<-done
}

// drainDecisions handles queued decisions without waiting for new ones.
func (c *Coordinator) drainDecisions(ctx context.Context) {
	for {
		select {
		case decision := <-c.decisions:
			c.handleDecision(ctx, &decision)
		default:
			return
		}
	}
}

// FetchState returns the lifecycle state for the provided market.
func (c *Coordinator) FetchState(market string) State {
	c.statesMtx.Lock()
	defer c.statesMtx.Unlock()

	return c.states[market]
}

// setState updates the lifecycle state for the provided market.
func (c *Coordinator) setState(market string, state State) {
	c.statesMtx.Lock()
	c.states[market] = state
	c.statesMtx.Unlock()
}

// placeOrder submits the provided order with a bounded confirmation wait.
// A timeout is treated as a rejection, never as a fill.
func (c *Coordinator) placeOrder(ctx context.Context, order *shared.Order) (*shared.OrderConfirmation, error) {
	ctx, cancel := context.WithTimeout(ctx, shared.TimeoutDuration)
	defer cancel()

	metrics.OrdersPlaced.WithLabelValues(order.Market, order.Side.String(), order.Mode.String()).Inc()

	confirmation, err := c.cfg.OrderPlacer.PlaceOrder(ctx, order)
	if err != nil {
		metrics.OrdersRejected.WithLabelValues(order.Market, order.Side.String(), order.Mode.String()).Inc()
		return nil, err
	}

	return confirmation, nil
}

// enterPosition drives the flat to open transition for the market.
func (c *Coordinator) enterPosition(ctx context.Context, decision *shared.Decision) {
	market := decision.Market
	price := decision.Candle.Close

	if !c.cfg.RiskManager.CanOpen() {
		c.cfg.Logger.Info().Msgf("admission denied for %s, portfolio risk cap reached", market)
		return
	}

	quantity := c.cfg.RiskManager.PositionSize(price)
	if quantity <= 0 {
		c.cfg.Logger.Info().Msgf("sizing yielded no tradable quantity for %s @ %f", market, price)
		return
	}

	direction := shared.Long
	if decision.Action == shared.Sell {
		direction = shared.Short
	}

	c.setState(market, PendingEntry)
	order := &shared.Order{
		Market:   market,
		Side:     decision.Action,
		Quantity: quantity,
		Price:    price,
		Mode:     c.cfg.Mode,
	}

	confirmation, err := c.placeOrder(ctx, order)
	if err != nil {
		// Recoverable, the next candle may retry.
		c.cfg.Logger.Warn().Msgf("entry order for %s rejected: %v", market, err)
		c.setState(market, Flat)
		return
	}

	position, err := c.cfg.RiskManager.OpenPosition(market, direction, confirmation.Price,
		confirmation.Quantity, decision.Candle.End)
	if err != nil {
		c.handleRiskError(market, err)
		c.setState(market, Flat)
		return
	}

	c.setState(market, Open)
	c.notify("Opened " + direction.String() + " position (" + position.ID + ") for " + market)
}

// exitPosition drives the open to flat transition for the market.
func (c *Coordinator) exitPosition(ctx context.Context, decision *shared.Decision, reason string) {
	market := decision.Market
	price := decision.Candle.Close

	position, ok := c.cfg.RiskManager.FetchPosition(market)
	if !ok {
		c.cfg.Logger.Error().Msgf("exit requested for %s with no open position", market)
		c.setState(market, Flat)
		return
	}

	side := shared.Sell
	if position.Direction == shared.Short {
		side = shared.Buy
	}

	c.setState(market, PendingExit)
	order := &shared.Order{
		Market:   market,
		Side:     side,
		Quantity: position.Quantity,
		Price:    price,
		Mode:     c.cfg.Mode,
	}

	_, err := c.placeOrder(ctx, order)
	if err != nil {
		// Recoverable, the position stays protected by its stored levels.
		c.cfg.Logger.Warn().Msgf("exit order for %s rejected: %v", market, err)
		c.setState(market, Open)
		return
	}

	trade, err := c.cfg.RiskManager.ClosePosition(market, price, decision.Candle.End)
	if err != nil {
		c.handleRiskError(market, err)
		c.setState(market, Open)
		return
	}

	metrics.TradesClosed.WithLabelValues(market).Inc()

	if c.cfg.PersistClosedTrade != nil {
		err = c.cfg.PersistClosedTrade(trade)
		if err != nil {
			c.cfg.Logger.Error().Msgf("persisting closed trade for %s: %v", market, err)
		}
	}

	c.setState(market, Flat)
	c.notify("Closed " + position.Direction.String() + " position for " + market + " (" + reason + ")")
}

// handleRiskError logs risk manager failures. Contract violations indicate
// a state machine bug rather than a market condition, so they are loud.
func (c *Coordinator) handleRiskError(market string, err error) {
	switch {
	case errors.Is(err, risk.ErrDuplicatePosition), errors.Is(err, risk.ErrNoPosition):
		c.statesMtx.Lock()
		dump := spew.Sdump(c.states)
		c.statesMtx.Unlock()
		c.cfg.Logger.Error().Msgf("risk state contract violated for %s: %v, states: %s",
			market, err, dump)
	default:
		c.cfg.Logger.Warn().Msgf("risk manager refused %s transition: %v", market, err)
	}
}

// handleDecision advances the state machine for one closed candle.
// Re-processing a candle already seen for the market is a no-op, making the
// advance idempotent per candle.
func (c *Coordinator) handleDecision(ctx context.Context, decision *shared.Decision) {
	market := decision.Market

	last, seen := c.lastProcessed[market]
	if seen && !decision.Candle.Start.After(last) {
		c.cfg.Logger.Debug().Msgf("already processed candle for %s at %s",
			market, decision.Candle.Start.Format(time.RFC3339))
		return
	}
	c.lastProcessed[market] = decision.Candle.Start

	switch c.FetchState(market) {
	case Open:
		price := decision.Candle.Close

		// Protective exits outrank the fresh consensus read on the same
		// candle, a position must never outlive its stop merely because
		// consensus says hold.
		switch {
		case c.cfg.RiskManager.StopLossHit(market, price):
			c.exitPosition(ctx, decision, "stop loss hit")
		case c.cfg.RiskManager.TakeProfitHit(market, price):
			c.exitPosition(ctx, decision, "take profit hit")
		default:
			position, ok := c.cfg.RiskManager.FetchPosition(market)
			if ok && position.Direction.Opposes(decision.Action) {
				c.exitPosition(ctx, decision, "opposing consensus")
			}
		}

	case Flat:
		if decision.Action == shared.Hold {
			return
		}
		c.enterPosition(ctx, decision)

	default:
		// Pending states resolve synchronously within a single decision, a
		// decision arriving here means a prior transition was interrupted.
		c.cfg.Logger.Error().Msgf("decision for %s arrived in transient state %s",
			market, c.FetchState(market).String())
	}
}

// Run manages the lifecycle processes of the execution coordinator.
// Decisions are handled sequentially so per market transitions happen in
// candle close order, and pending states always resolve before shutdown
// completes.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case decision := <-c.decisions:
			c.handleDecision(ctx, &decision)
		case done := <-c.barriers:
			c.drainDecisions(ctx)
			close(done)
		}
	}
}

// notify relays the provided message when a notifier is configured.
func (c *Coordinator) notify(message string) {
	if c.cfg.Notify != nil {
		c.cfg.Notify(message)
	}
}
