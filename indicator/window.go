package indicator

import (
	"math"
)

// Window represents a bounded rolling window of candle closes, sized to the
// longest lookback of the indicator consuming it.
type Window struct {
	size   int
	closes []float64
}

// NewWindow initializes a rolling window with the provided capacity.
func NewWindow(size int) *Window {
	if size <= 0 {
		size = 1
	}

	return &Window{
		size:   size,
		closes: make([]float64, 0, size),
	}
}

// Push appends the provided close, evicting the oldest entry once the
// window is at capacity.
func (w *Window) Push(close float64) {
	if len(w.closes) == w.size {
		w.closes = w.closes[1:]
	}

	w.closes = append(w.closes, close)
}

// Len returns the number of closes currently held.
func (w *Window) Len() int {
	return len(w.closes)
}

// Full reports whether the window holds its full lookback of closes.
func (w *Window) Full() bool {
	return len(w.closes) == w.size
}

// PriorRange returns the high and low over the window excluding the most
// recent close, so a breakout candle never confirms against itself. The
// ok flag is false until the window is full.
func (w *Window) PriorRange() (float64, float64, bool) {
	if len(w.closes) < w.size {
		return 0, 0, false
	}

	prior := w.closes[:len(w.closes)-1]
	if len(prior) == 0 {
		// A lookback of one holds no prior closes to range over.
		return 0, 0, false
	}

	high := prior[0]
	low := prior[0]
	for idx := 1; idx < len(prior); idx++ {
		if prior[idx] > high {
			high = prior[idx]
		}
		if prior[idx] < low {
			low = prior[idx]
		}
	}

	return high, low, true
}

// Mean returns the arithmetic mean of the held closes.
func (w *Window) Mean() float64 {
	if len(w.closes) == 0 {
		return 0
	}

	var sum float64
	for idx := range w.closes {
		sum += w.closes[idx]
	}

	return sum / float64(len(w.closes))
}

// StdDev returns the population standard deviation of the held closes.
func (w *Window) StdDev() float64 {
	if len(w.closes) == 0 {
		return 0
	}

	mean := w.Mean()
	var variance float64
	for idx := range w.closes {
		diff := w.closes[idx] - mean
		variance += diff * diff
	}
	variance /= float64(len(w.closes))

	return math.Sqrt(variance)
}
