package shared

import (
	"fmt"
	"time"
)

const (
	// TimeoutDuration is the maximum time to wait for an order confirmation
	// before treating the placement as rejected.
	TimeoutDuration = time.Second * 4
)

// Mode represents the order execution mode.
type Mode int

const (
	PaperMode Mode = iota
	LiveMode
)

// String stringifies the provided mode.
func (m Mode) String() string {
	switch m {
	case PaperMode:
		return "paper"
	case LiveMode:
		return "live"
	default:
		return "unknown"
	}
}

// ParseMode parses an execution mode from its string form.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "paper":
		return PaperMode, nil
	case "live":
		return LiveMode, nil
	default:
		return 0, fmt.Errorf("unknown execution mode: %s", s)
	}
}

// Order represents an order placement request.
type Order struct {
	Market   string
	Side     Action
	Quantity float64
	Price    float64
	Mode     Mode
}

// OrderConfirmation represents a broker acknowledgement for a placed order.
type OrderConfirmation struct {
	OrderID   string
	Market    string
	Side      Action
	Quantity  float64
	Price     float64
	CreatedOn time.Time
}
