// Package risk implements position sizing, protective levels, portfolio
// admission control and realized pnl accounting for one trading session.
package risk

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/quibex/tradebot/metrics"
	"github.com/quibex/tradebot/shared"
	"github.com/rs/zerolog"
)

var (
	// ErrAdmissionDenied is returned when opening a position would push the
	// portfolio past its risk cap.
	ErrAdmissionDenied = errors.New("portfolio risk cap reached")
	// ErrDuplicatePosition is returned when a position already exists for
	// the market. This indicates a state machine bug in the caller.
	ErrDuplicatePosition = errors.New("position already open for market")
	// ErrNoPosition is returned when closing a market with no open
	// position. This indicates a state machine bug in the caller.
	ErrNoPosition = errors.New("no open position for market")
)

// ManagerConfig represents the risk manager configuration.
type ManagerConfig struct {
	// InitialCapital is the session starting capital.
	InitialCapital float64
	// MaxRiskPerTrade is the fraction of capital risked per trade.
	MaxRiskPerTrade float64
	// MaxPortfolioRisk is the cap on aggregate open risk across markets.
	MaxPortfolioRisk float64
	// StopLossPct is the protective stop distance as a fraction of entry.
	StopLossPct float64
	// TakeProfitPct is the profit target distance as a fraction of entry.
	TakeProfitPct float64
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *ManagerConfig) Validate() error {
	var errs error

	if cfg.InitialCapital <= 0 {
		errs = errors.Join(errs, fmt.Errorf("initial capital must be positive"))
	}
	if cfg.MaxRiskPerTrade <= 0 {
		errs = errors.Join(errs, fmt.Errorf("max risk per trade must be positive"))
	}
	if cfg.MaxPortfolioRisk < cfg.MaxRiskPerTrade {
		errs = errors.Join(errs, fmt.Errorf("max portfolio risk cannot be below max risk per trade"))
	}
	if cfg.StopLossPct <= 0 {
		errs = errors.Join(errs, fmt.Errorf("stop loss percent must be positive"))
	}
	if cfg.TakeProfitPct <= 0 {
		errs = errors.Join(errs, fmt.Errorf("take profit percent must be positive"))
	}

	return errs
}

// Manager owns the session risk state: capital, open positions and the
// closed trade sequence. All capital and admission mutations happen behind
// a single mutex so concurrent market pipelines never act on a stale risk
// snapshot.
type Manager struct {
	cfg            *ManagerConfig
	currentCapital float64
	positions      map[string]*Position
	closedTrades   []shared.ClosedTrade
	mtx            sync.Mutex
}

// NewManager initializes a new risk manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating risk config: %w", err)
	}

	metrics.CurrentCapital.Set(cfg.InitialCapital)

	return &Manager{
		cfg:            cfg,
		currentCapital: cfg.InitialCapital,
		positions:      make(map[string]*Position),
	}, nil
}

// PositionSize returns the quantity to trade for the provided entry price,
// derived from capital at risk and the stop distance. Returns zero when the
// computed risk amount is not positive.
func (m *Manager) PositionSize(entryPrice float64) float64 {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	riskAmount := m.currentCapital * m.cfg.MaxRiskPerTrade
	if riskAmount <= 0 || entryPrice <= 0 {
		return 0
	}

	stopDistance := entryPrice * m.cfg.StopLossPct
	quantity := math.Floor(riskAmount / stopDistance)
	if quantity < 1 {
		quantity = 1
	}

	return quantity
}

// CanOpen reports whether a new position fits under the portfolio risk cap.
// This is a hard admission gate, callers must not open when it is false
// regardless of consensus.
func (m *Manager) CanOpen() bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.admitLocked()
}

// admitLocked applies the portfolio admission rule. Callers must hold the
// state mutex.
func (m *Manager) admitLocked() bool {
	newRisk := float64(len(m.positions)+1) * m.cfg.MaxRiskPerTrade
	return newRisk <= m.cfg.MaxPortfolioRisk
}

// OpenPosition records a new position for the market. The admission check
// runs under the same lock as the insertion so two markets can never both
// pass on a stale snapshot.
func (m *Manager) OpenPosition(market string, direction shared.Direction, entryPrice float64,
	quantity float64, openedOn time.Time) (*Position, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if _, ok := m.positions[market]; ok {
		return nil, fmt.Errorf("opening %s position: %w", market, ErrDuplicatePosition)
	}

	if !m.admitLocked() {
		return nil, fmt.Errorf("opening %s position: %w", market, ErrAdmissionDenied)
	}

	position := NewPosition(market, direction, entryPrice, quantity,
		m.cfg.StopLossPct, m.cfg.TakeProfitPct, openedOn)
	m.positions[market] = position

	m.cfg.Logger.Info().Msgf("opened %s position (%s) for %s: %f @ %f, stop %f, target %f",
		direction.String(), position.ID, market, quantity, entryPrice,
		position.StopLoss, position.TakeProfit)

	return position, nil
}

// FetchPosition returns a copy of the open position for the market, if any.
func (m *Manager) FetchPosition(market string) (Position, bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	position, ok := m.positions[market]
	if !ok {
		return Position{}, false
	}

	return *position, true
}

// StopLossHit reports whether the provided price has crossed the stored
// protective stop for the market. Markets without positions never trigger.
func (m *Manager) StopLossHit(market string, price float64) bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	position, ok := m.positions[market]
	if !ok {
		return false
	}

	return position.StopLossHit(price)
}

// TakeProfitHit reports whether the provided price has reached the stored
// profit target for the market. Markets without positions never trigger.
func (m *Manager) TakeProfitHit(market string, price float64) bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	position, ok := m.positions[market]
	if !ok {
		return false
	}

	return position.TakeProfitHit(price)
}

// ClosePosition removes the open position for the market and realizes its
// pnl. This is the only mutator of session capital.
func (m *Manager) ClosePosition(market string, exitPrice float64, closedOn time.Time) (*shared.ClosedTrade, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	position, ok := m.positions[market]
	if !ok {
		return nil, fmt.Errorf("closing %s position: %w", market, ErrNoPosition)
	}

	pnl := position.PNL(exitPrice)
	m.currentCapital += pnl
	metrics.CurrentCapital.Set(m.currentCapital)

	trade := shared.ClosedTrade{
		Market:     market,
		Direction:  position.Direction,
		EntryPrice: position.EntryPrice,
		ExitPrice:  exitPrice,
		Quantity:   position.Quantity,
		PNL:        pnl,
		OpenedOn:   position.OpenedOn,
		ClosedOn:   closedOn,
	}
	m.closedTrades = append(m.closedTrades, trade)
	delete(m.positions, market)

	m.cfg.Logger.Info().Msgf("closed %s position (%s) for %s @ %f, pnl %f, capital %f",
		position.Direction.String(), position.ID, market, exitPrice, pnl, m.currentCapital)

	return &trade, nil
}

// Stats derives aggregate session statistics from the closed trade
// sequence. The read is idempotent and never mutates state.
func (m *Manager) Stats() shared.Stats {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	stats := shared.Stats{
		TotalTrades:  len(m.closedTrades),
		FinalCapital: m.currentCapital,
	}

	var grossWin, grossLoss float64
	for idx := range m.closedTrades {
		pnl := m.closedTrades[idx].PNL
		stats.TotalPNL += pnl

		switch {
		case pnl > 0:
			stats.WinningTrades++
			grossWin += pnl
		case pnl < 0:
			stats.LosingTrades++
			grossLoss += pnl
		}
	}

	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades) * 100
	}
	if stats.WinningTrades > 0 {
		stats.AverageWin = grossWin / float64(stats.WinningTrades)
	}
	if stats.LosingTrades > 0 {
		stats.AverageLoss = grossLoss / float64(stats.LosingTrades)
	}
	if grossLoss < 0 {
		stats.ProfitFactor = grossWin / math.Abs(grossLoss)
	}

	return stats
}
