package risk

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/quibex/tradebot/shared"
)

func TestNewPositionProtectiveLevels(t *testing.T) {
	openedOn := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	long := NewPosition("BTC-USD", shared.Long, 100, 1000, 0.02, 0.04, openedOn)
	assert.NotEqual(t, "", long.ID)
	assert.Equal(t, float64(98), long.StopLoss)
	assert.Equal(t, float64(104), long.TakeProfit)

	short := NewPosition("BTC-USD", shared.Short, 100, 1000, 0.02, 0.04, openedOn)
	assert.Equal(t, float64(102), short.StopLoss)
	assert.Equal(t, float64(96), short.TakeProfit)
}

func TestPositionStopLossHit(t *testing.T) {
	openedOn := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	long := NewPosition("BTC-USD", shared.Long, 100, 1000, 0.02, 0.04, openedOn)
	assert.False(t, long.StopLossHit(99))
	assert.True(t, long.StopLossHit(98))
	assert.True(t, long.StopLossHit(90))

	short := NewPosition("BTC-USD", shared.Short, 100, 1000, 0.02, 0.04, openedOn)
	assert.False(t, short.StopLossHit(101))
	assert.True(t, short.StopLossHit(102))
	assert.True(t, short.StopLossHit(110))
}

func TestPositionTakeProfitHit(t *testing.T) {
	openedOn := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	long := NewPosition("BTC-USD", shared.Long, 100, 1000, 0.02, 0.04, openedOn)
	assert.False(t, long.TakeProfitHit(103))
	assert.True(t, long.TakeProfitHit(104))

	short := NewPosition("BTC-USD", shared.Short, 100, 1000, 0.02, 0.04, openedOn)
	assert.False(t, short.TakeProfitHit(97))
	assert.True(t, short.TakeProfitHit(96))
}

func TestPositionPNL(t *testing.T) {
	openedOn := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	long := NewPosition("BTC-USD", shared.Long, 100, 1000, 0.02, 0.04, openedOn)
	assert.Equal(t, float64(5000), long.PNL(105))
	assert.Equal(t, float64(-5000), long.PNL(95))

	short := NewPosition("BTC-USD", shared.Short, 100, 1000, 0.02, 0.04, openedOn)
	assert.Equal(t, float64(-5000), short.PNL(105))
	assert.Equal(t, float64(5000), short.PNL(95))
}
