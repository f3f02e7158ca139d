package indicator

// EMA represents an exponential moving average over candle closes. It uses
// the standard recursive smoothing update with factor 2/(period+1), seeded
// with the first observed value.
type EMA struct {
	period    int
	smoothing float64
	value     float64
	count     int
}

// NewEMA initializes an exponential moving average for the provided period.
func NewEMA(period int) *EMA {
	if period <= 0 {
		period = 1
	}

	return &EMA{
		period:    period,
		smoothing: 2 / (float64(period) + 1),
	}
}

// Update feeds the provided close into the average and returns the updated
// value.
func (e *EMA) Update(close float64) float64 {
	e.count++
	if e.count == 1 {
		e.value = close
		return e.value
	}

	e.value = (close-e.value)*e.smoothing + e.value

	return e.value
}

// Value returns the current average value.
func (e *EMA) Value() float64 {
	return e.value
}

// Ready reports whether the average has consumed at least its period worth
// of closes.
func (e *EMA) Ready() bool {
	return e.count >= e.period
}
