package shared

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// Tick represents a single trade print for a market. Ticks are ephemeral,
// they are consumed immediately by the candle builder and never persisted.
type Tick struct {
	Market    string
	Price     float64
	Volume    float64
	Timestamp time.Time
}

// Candlestick represents a unit candlestick for a market.
type Candlestick struct {
	Market   string
	Interval Interval
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
	Start    time.Time
	End      time.Time
}

// NewCandlestick opens a new candlestick from the first tick of an interval
// bucket. All four price fields start at the tick's price.
func NewCandlestick(tick *Tick, interval Interval) *Candlestick {
	start := interval.Truncate(tick.Timestamp)
	return &Candlestick{
		Market:   tick.Market,
		Interval: interval,
		Open:     tick.Price,
		High:     tick.Price,
		Low:      tick.Price,
		Close:    tick.Price,
		Volume:   tick.Volume,
		Start:    start,
		End:      start.Add(interval.Duration()),
	}
}

// Update applies the provided tick to a still-open candlestick.
func (c *Candlestick) Update(tick *Tick) {
	if tick.Price > c.High {
		c.High = tick.Price
	}
	if tick.Price < c.Low {
		c.Low = tick.Price
	}
	c.Close = tick.Price
	c.Volume += tick.Volume
}

// ParseCandlesticks parses candlesticks from the provided json data.
func ParseCandlesticks(data []gjson.Result, market string, interval Interval) ([]Candlestick, error) {
	candles := make([]Candlestick, 0, len(data))

	for idx := range data {
		var candle Candlestick

		candle.Open = data[idx].Get("open").Float()
		candle.Low = data[idx].Get("low").Float()
		candle.High = data[idx].Get("high").Float()
		candle.Close = data[idx].Get("close").Float()
		candle.Volume = data[idx].Get("volume").Float()

		candle.Market = market
		candle.Interval = interval

		start, err := time.Parse(DateLayout, data[idx].Get("start").String())
		if err != nil {
			return nil, fmt.Errorf("parsing candlestick start: %w", err)
		}

		candle.Start = interval.Truncate(start)
		candle.End = candle.Start.Add(interval.Duration())

		candles = append(candles, candle)
	}

	return candles, nil
}
