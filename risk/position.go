package risk

import (
	"time"

	"github.com/google/uuid"
	"github.com/quibex/tradebot/shared"
)

// Position represents an open market position. Exactly one position may be
// open per market at a time, and positions are owned exclusively by the
// risk manager.
type Position struct {
	ID         string
	Market     string
	Direction  shared.Direction
	EntryPrice float64
	Quantity   float64
	StopLoss   float64
	TakeProfit float64
	OpenedOn   time.Time
}

// NewPosition initializes a new position with protective levels derived
// from the provided stop loss and take profit fractions.
func NewPosition(market string, direction shared.Direction, entryPrice float64, quantity float64,
	stopLossPct float64, takeProfitPct float64, openedOn time.Time) *Position {
	var stopLoss, takeProfit float64
	switch direction {
	case shared.Long:
		stopLoss = entryPrice * (1 - stopLossPct)
		takeProfit = entryPrice * (1 + takeProfitPct)
	case shared.Short:
		stopLoss = entryPrice * (1 + stopLossPct)
		takeProfit = entryPrice * (1 - takeProfitPct)
	}

	return &Position{
		ID:         uuid.New().String(),
		Market:     market,
		Direction:  direction,
		EntryPrice: entryPrice,
		Quantity:   quantity,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		OpenedOn:   openedOn,
	}
}

// StopLossHit reports whether the provided price has crossed the position's
// protective stop.
func (p *Position) StopLossHit(price float64) bool {
	switch p.Direction {
	case shared.Long:
		return price <= p.StopLoss
	case shared.Short:
		return price >= p.StopLoss
	default:
		return false
	}
}

// TakeProfitHit reports whether the provided price has reached the
// position's profit target.
func (p *Position) TakeProfitHit(price float64) bool {
	switch p.Direction {
	case shared.Long:
		return price >= p.TakeProfit
	case shared.Short:
		return price <= p.TakeProfit
	default:
		return false
	}
}

// PNL returns the signed profit for the position at the provided exit price.
func (p *Position) PNL(exitPrice float64) float64 {
	switch p.Direction {
	case shared.Long:
		return (exitPrice - p.EntryPrice) * p.Quantity
	case shared.Short:
		return (p.EntryPrice - exitPrice) * p.Quantity
	default:
		return 0
	}
}
