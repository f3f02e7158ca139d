package indicator

import (
	"math"
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestWindowPushEvictsOldest(t *testing.T) {
	window := NewWindow(3)

	window.Push(1)
	window.Push(2)
	window.Push(3)
	assert.True(t, window.Full())
	assert.Equal(t, 3, window.Len())

	// Pushing past capacity evicts the oldest close.
	window.Push(4)
	assert.Equal(t, 3, window.Len())
	assert.Equal(t, float64(3), window.Mean())
}

func TestWindowPriorRange(t *testing.T) {
	window := NewWindow(4)

	// Not ok until the window is full.
	window.Push(10)
	window.Push(15)
	window.Push(8)
	_, _, ok := window.PriorRange()
	assert.False(t, ok)

	window.Push(20)
	high, low, ok := window.PriorRange()
	assert.True(t, ok)

	// The most recent close (20) is excluded from the range.
	assert.Equal(t, float64(15), high)
	assert.Equal(t, float64(8), low)
}

func TestWindowPriorRangeSingleClose(t *testing.T) {
	window := NewWindow(1)

	// A full size-one window still has no prior closes, so the range is
	// never ok rather than a panic on the first push.
	window.Push(100)
	assert.True(t, window.Full())

	_, _, ok := window.PriorRange()
	assert.False(t, ok)
}

func TestWindowMeanAndStdDev(t *testing.T) {
	window := NewWindow(4)
	assert.Equal(t, float64(0), window.Mean())
	assert.Equal(t, float64(0), window.StdDev())

	window.Push(2)
	window.Push(4)
	window.Push(4)
	window.Push(6)

	assert.Equal(t, float64(4), window.Mean())

	// Population standard deviation: sqrt(((2-4)^2+0+0+(6-4)^2)/4) = sqrt(2).
	assert.True(t, math.Abs(window.StdDev()-math.Sqrt(2)) < 1e-9)
}
