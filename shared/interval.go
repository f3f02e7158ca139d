package shared

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the format layout for parsing dates.
	DateLayout = "2006-01-02 15:04:05"
)

// Interval represents the fixed duration of a candle.
type Interval int

const (
	OneMinute Interval = iota
	FiveMinute
	OneHour
)

// String stringifies the provided interval.
func (i Interval) String() string {
	switch i {
	case OneMinute:
		return "1m"
	case FiveMinute:
		return "5m"
	case OneHour:
		return "1h"
	default:
		return "unknown"
	}
}

// Duration returns the wall-clock duration covered by the interval.
func (i Interval) Duration() time.Duration {
	switch i {
	case OneMinute:
		return time.Minute
	case FiveMinute:
		return time.Minute * 5
	case OneHour:
		return time.Hour
	default:
		return 0
	}
}

// Truncate aligns the provided timestamp to the start of its interval bucket.
func (i Interval) Truncate(t time.Time) time.Time {
	return t.Truncate(i.Duration())
}

// ParseInterval parses an interval from its string form.
func ParseInterval(s string) (Interval, error) {
	switch s {
	case "1m":
		return OneMinute, nil
	case "5m":
		return FiveMinute, nil
	case "1h":
		return OneHour, nil
	default:
		return 0, fmt.Errorf("unknown interval: %s", s)
	}
}
