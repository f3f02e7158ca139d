package shared

import (
	"time"
)

// ClosedTrade represents a fully confirmed round trip for a market. Closed
// trades are immutable once appended and are the sole source of aggregate
// session statistics.
type ClosedTrade struct {
	Market     string
	Direction  Direction
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	PNL        float64
	OpenedOn   time.Time
	ClosedOn   time.Time
}

// Stats represents aggregate trading statistics derived from the closed
// trade sequence.
type Stats struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	TotalPNL      float64
	AverageWin    float64
	AverageLoss   float64
	ProfitFactor  float64
	FinalCapital  float64
}
