package trade

import (
	"context"
	"fmt"

	"github.com/quibex/tradebot/shared"
	"github.com/rs/zerolog"
)

// PaperPlacer simulates order execution without moving real capital. Every
// placement succeeds synchronously and deterministically: confirmation ids
// are derived from the order itself, so replaying the same session yields
// identical confirmations.
type PaperPlacer struct {
	logger *zerolog.Logger
}

// Ensure the paper placer implements the OrderPlacer interface.
var _ shared.OrderPlacer = (*PaperPlacer)(nil)

// NewPaperPlacer initializes a new paper order placer.
func NewPaperPlacer(logger *zerolog.Logger) *PaperPlacer {
	return &PaperPlacer{
		logger: logger,
	}
}

// PlaceOrder fills the provided order immediately at its requested price.
func (p *PaperPlacer) PlaceOrder(ctx context.Context, order *shared.Order) (*shared.OrderConfirmation, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("placing paper order: %w", err)
	}

	confirmation := &shared.OrderConfirmation{
		OrderID:  fmt.Sprintf("paper-%s-%s-%.0f", order.Market, order.Side.String(), order.Quantity),
		Market:   order.Market,
		Side:     order.Side,
		Quantity: order.Quantity,
		Price:    order.Price,
	}

	p.logger.Info().Msgf("paper %s order filled for %s: %f @ %f",
		order.Side.String(), order.Market, order.Quantity, order.Price)

	return confirmation, nil
}
