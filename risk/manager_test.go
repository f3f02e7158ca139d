package risk

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
	"github.com/quibex/tradebot/shared"
	"github.com/rs/zerolog/log"
)

func setupManager(t *testing.T) *Manager {
	cfg := &ManagerConfig{
		InitialCapital:   100000,
		MaxRiskPerTrade:  0.02,
		MaxPortfolioRisk: 0.06,
		StopLossPct:      0.02,
		TakeProfitPct:    0.04,
		Logger:           &log.Logger,
	}

	mgr, err := NewManager(cfg)
	assert.NoError(t, err)

	return mgr
}

func TestManagerConfigValidate(t *testing.T) {
	baseCfg := func() *ManagerConfig {
		return &ManagerConfig{
			InitialCapital:   100000,
			MaxRiskPerTrade:  0.02,
			MaxPortfolioRisk: 0.06,
			StopLossPct:      0.02,
			TakeProfitPct:    0.04,
			Logger:           &log.Logger,
		}
	}

	tests := []struct {
		name        string
		modify      func(cfg *ManagerConfig)
		wantErr     bool
		errContains string
	}{
		{
			name:    "valid config returns nil",
			modify:  func(cfg *ManagerConfig) {},
			wantErr: false,
		},
		{
			name:        "non-positive capital",
			modify:      func(cfg *ManagerConfig) { cfg.InitialCapital = 0 },
			wantErr:     true,
			errContains: "initial capital must be positive",
		},
		{
			name:        "non-positive per trade risk",
			modify:      func(cfg *ManagerConfig) { cfg.MaxRiskPerTrade = 0 },
			wantErr:     true,
			errContains: "max risk per trade must be positive",
		},
		{
			name:        "portfolio risk below per trade risk",
			modify:      func(cfg *ManagerConfig) { cfg.MaxPortfolioRisk = 0.01 },
			wantErr:     true,
			errContains: "max portfolio risk cannot be below max risk per trade",
		},
		{
			name:        "non-positive stop loss",
			modify:      func(cfg *ManagerConfig) { cfg.StopLossPct = 0 },
			wantErr:     true,
			errContains: "stop loss percent must be positive",
		},
		{
			name:        "non-positive take profit",
			modify:      func(cfg *ManagerConfig) { cfg.TakeProfitPct = 0 },
			wantErr:     true,
			errContains: "take profit percent must be positive",
		},
	}

	for _, test := range tests {
		cfg := baseCfg()
		test.modify(cfg)
		err := cfg.Validate()
		if test.wantErr {
			if err == nil {
				t.Errorf("%s: expected an error, got none", test.name)
				continue
			}
			if !strings.Contains(err.Error(), test.errContains) {
				t.Errorf("%s: expected error to contain %q, got %v", test.name, test.errContains, err)
			}
		} else if err != nil {
			t.Errorf("%s: expected no error, got %v", test.name, err)
		}
	}
}

func TestPositionSize(t *testing.T) {
	mgr := setupManager(t)

	// capital 100000, risk 2%, stop 2%: floor(2000 / (100 * 0.02)) = 1000.
	assert.Equal(t, float64(1000), mgr.PositionSize(100))

	// Sizing floors fractional quantities.
	assert.Equal(t, float64(333), mgr.PositionSize(300))

	// Sizes below one clamp to one.
	assert.Equal(t, float64(1), mgr.PositionSize(10000000))

	// A non-positive entry price yields no tradable quantity.
	assert.Equal(t, float64(0), mgr.PositionSize(0))
	assert.Equal(t, float64(0), mgr.PositionSize(-5))
}

func TestOpenPosition(t *testing.T) {
	mgr := setupManager(t)
	openedOn := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	position, err := mgr.OpenPosition("BTC-USD", shared.Long, 100, 1000, openedOn)
	assert.NoError(t, err)
	assert.Equal(t, float64(98), position.StopLoss)
	assert.Equal(t, float64(104), position.TakeProfit)

	fetched, ok := mgr.FetchPosition("BTC-USD")
	assert.True(t, ok)
	assert.Equal(t, position.ID, fetched.ID)

	// Opening a market that already has a position fails without mutating
	// state.
	_, err = mgr.OpenPosition("BTC-USD", shared.Short, 105, 500, openedOn)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicatePosition))

	fetched, ok = mgr.FetchPosition("BTC-USD")
	assert.True(t, ok)
	assert.Equal(t, shared.Long, fetched.Direction)
	assert.Equal(t, float64(100), fetched.EntryPrice)
}

func TestPortfolioAdmission(t *testing.T) {
	mgr := setupManager(t)
	openedOn := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	// Portfolio cap of 6% at 2% per trade admits exactly three positions.
	markets := []string{"BTC-USD", "ETH-USD", "SOL-USD"}
	for idx := range markets {
		assert.True(t, mgr.CanOpen())
		_, err := mgr.OpenPosition(markets[idx], shared.Long, 100, 10, openedOn)
		assert.NoError(t, err)
	}

	assert.False(t, mgr.CanOpen())
	_, err := mgr.OpenPosition("DOGE-USD", shared.Long, 100, 10, openedOn)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrAdmissionDenied))

	// Closing a position frees its slot.
	_, err = mgr.ClosePosition("BTC-USD", 101, openedOn.Add(time.Minute))
	assert.NoError(t, err)
	assert.True(t, mgr.CanOpen())
}

func TestProtectiveTriggers(t *testing.T) {
	mgr := setupManager(t)
	openedOn := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	// Markets without positions never trigger.
	assert.False(t, mgr.StopLossHit("BTC-USD", 1))
	assert.False(t, mgr.TakeProfitHit("BTC-USD", 1000000))

	_, err := mgr.OpenPosition("BTC-USD", shared.Long, 100, 1000, openedOn)
	assert.NoError(t, err)

	assert.False(t, mgr.StopLossHit("BTC-USD", 99))
	assert.True(t, mgr.StopLossHit("BTC-USD", 98))
	assert.False(t, mgr.TakeProfitHit("BTC-USD", 103))
	assert.True(t, mgr.TakeProfitHit("BTC-USD", 104))
}

func TestClosePosition(t *testing.T) {
	mgr := setupManager(t)
	openedOn := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	closedOn := openedOn.Add(time.Minute * 5)

	// Closing a market with no position is a contract violation.
	_, err := mgr.ClosePosition("BTC-USD", 100, closedOn)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoPosition))

	_, err = mgr.OpenPosition("BTC-USD", shared.Long, 100, 1000, openedOn)
	assert.NoError(t, err)

	// entry 100, exit 105, qty 1000: +5000 realized against capital.
	trade, err := mgr.ClosePosition("BTC-USD", 105, closedOn)
	assert.NoError(t, err)
	assert.Equal(t, float64(5000), trade.PNL)
	assert.Equal(t, openedOn, trade.OpenedOn)
	assert.Equal(t, closedOn, trade.ClosedOn)

	stats := mgr.Stats()
	assert.Equal(t, float64(105000), stats.FinalCapital)

	_, ok := mgr.FetchPosition("BTC-USD")
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	mgr := setupManager(t)
	openedOn := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	// No trades yet.
	stats := mgr.Stats()
	assert.Equal(t, 0, stats.TotalTrades)
	assert.Equal(t, float64(100000), stats.FinalCapital)
	assert.Equal(t, float64(0), stats.WinRate)

	// Two wins and one loss.
	closes := []struct {
		entry float64
		exit  float64
	}{
		{entry: 100, exit: 105},
		{entry: 100, exit: 102},
		{entry: 100, exit: 99},
	}
	for idx := range closes {
		_, err := mgr.OpenPosition("BTC-USD", shared.Long, closes[idx].entry, 100, openedOn)
		assert.NoError(t, err)
		_, err = mgr.ClosePosition("BTC-USD", closes[idx].exit, openedOn.Add(time.Minute))
		assert.NoError(t, err)
	}

	stats = mgr.Stats()
	assert.Equal(t, 3, stats.TotalTrades)
	assert.Equal(t, 2, stats.WinningTrades)
	assert.Equal(t, 1, stats.LosingTrades)
	assert.Equal(t, float64(600), stats.TotalPNL)
	assert.Equal(t, float64(350), stats.AverageWin)
	assert.Equal(t, float64(-100), stats.AverageLoss)
	assert.Equal(t, float64(7), stats.ProfitFactor)
	assert.Equal(t, float64(100600), stats.FinalCapital)

	// WinRate is a percentage of total trades.
	if stats.WinRate < 66.6 || stats.WinRate > 66.7 {
		t.Errorf("expected win rate near 66.67, got %v", stats.WinRate)
	}

	// Stats reads are idempotent.
	again := mgr.Stats()
	if !cmp.Equal(stats, again) {
		t.Errorf("expected identical stats on repeated reads, got %v", cmp.Diff(stats, again))
	}
}
