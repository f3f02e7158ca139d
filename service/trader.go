// Package service wires the tick feed, candle manager, strategy engine,
// risk manager and execution coordinator into one runnable trading service.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/quibex/tradebot/candle"
	"github.com/quibex/tradebot/database"
	"github.com/quibex/tradebot/engine"
	"github.com/quibex/tradebot/feed"
	"github.com/quibex/tradebot/metrics"
	"github.com/quibex/tradebot/risk"
	"github.com/quibex/tradebot/shared"
	"github.com/quibex/tradebot/strategy"
	"github.com/quibex/tradebot/trade"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	// statusInterval is the cadence of the periodic session status log.
	statusInterval = time.Minute * 5
	// warmupLookback is how far back strategies are primed from stored candles.
	warmupLookback = time.Hour * 24
	// bufferSize is the default buffer size for channels.
	bufferSize = 64

	// Default strategy parameters.
	fastEMAPeriod     = 9
	slowEMAPeriod     = 21
	breakoutLookback  = 20
	breakoutThreshold = 0.001
	reversionLookback = 20
	reversionMult     = 2.0
)

// TraderConfig represents the configuration struct for the trader service.
type TraderConfig struct {
	// Markets represents the tracked markets.
	Markets []string
	// Interval is the candle aggregation interval.
	Interval shared.Interval
	// Quorum is the minimum number of agreeing strategy votes required to act.
	Quorum uint32
	// Mode is the order execution mode.
	Mode shared.Mode
	// StreamURL is the websocket endpoint of the tick stream.
	StreamURL string
	// Replay is the replay session flag.
	Replay bool
	// ReplayDataFilepath is the filepath to the recorded replay ticks.
	ReplayDataFilepath string
	// DBEndpoint is the database connection endpoint.
	DBEndpoint string
	// DBUser is the database user.
	DBUser string
	// DBPass is the database user pass.
	DBPass string
	// MetricsAddr is the listen address of the metrics endpoint.
	MetricsAddr string
	// InitialCapital is the session starting capital.
	InitialCapital float64
	// MaxRiskPerTrade is the fraction of capital risked per trade.
	MaxRiskPerTrade float64
	// MaxPortfolioRisk is the cap on aggregate open risk across markets.
	MaxPortfolioRisk float64
	// StopLossPct is the protective stop distance as a fraction of entry.
	StopLossPct float64
	// TakeProfitPct is the profit target distance as a fraction of entry.
	TakeProfitPct float64
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config sane inputs.
func (cfg *TraderConfig) Validate() error {
	var errs error

	if len(cfg.Markets) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no markets provided for trader service"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}
	if cfg.Replay {
		if cfg.ReplayDataFilepath == "" {
			errs = errors.Join(errs, fmt.Errorf("replay data filepath cannot be an empty string"))
		}
	} else {
		if cfg.StreamURL == "" {
			errs = errors.Join(errs, fmt.Errorf("stream url cannot be an empty string"))
		}
	}
	if cfg.Mode == shared.LiveMode {
		errs = errors.Join(errs, fmt.Errorf("live order placement requires a venue client, run paper mode"))
	}

	return errs
}

// Trader represents the consensus trading service.
type Trader struct {
	cfg           *TraderConfig
	db            *database.Database
	tickSource    shared.TickSource
	candleManager *candle.Manager
	engine        *engine.Engine
	riskManager   *risk.Manager
	coordinator   *trade.Coordinator
	jobScheduler  *gocron.Scheduler
	candleUpdates chan shared.Candlestick
	forwardDrains chan chan struct{}
	logger        *zerolog.Logger
	wg            sync.WaitGroup
}

// NewTrader initializes a new trader service.
func NewTrader(ctx context.Context, cfg *TraderConfig) (*Trader, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating trader config: %w", err)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "trader").Logger()

	dbLogger := logger.With().Str("component", "database").Logger()
	db, err := database.NewDatabase(ctx, &database.DatabaseConfig{
		Endpoint: cfg.DBEndpoint,
		User:     cfg.DBUser,
		Pass:     cfg.DBPass,
		Logger:   &dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	riskLogger := logger.With().Str("component", "riskmanager").Logger()
	riskMgr, err := risk.NewManager(&risk.ManagerConfig{
		InitialCapital:   cfg.InitialCapital,
		MaxRiskPerTrade:  cfg.MaxRiskPerTrade,
		MaxPortfolioRisk: cfg.MaxPortfolioRisk,
		StopLossPct:      cfg.StopLossPct,
		TakeProfitPct:    cfg.TakeProfitPct,
		Logger:           &riskLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating risk manager: %w", err)
	}

	placerLogger := logger.With().Str("component", "orderplacer").Logger()
	placer := trade.NewPaperPlacer(&placerLogger)

	coordinatorLogger := logger.With().Str("component", "coordinator").Logger()
	coordinator := trade.NewCoordinator(&trade.CoordinatorConfig{
		Markets:     cfg.Markets,
		Mode:        cfg.Mode,
		OrderPlacer: placer,
		RiskManager: riskMgr,
		PersistClosedTrade: func(trade *shared.ClosedTrade) error {
			return db.PersistClosedTrade(ctx, trade)
		},
		Notify: func(message string) {
			logger.Info().Msg(message)
		},
		Logger: &coordinatorLogger,
	})

	engineLogger := logger.With().Str("component", "engine").Logger()
	tradeEngine, err := engine.NewEngine(&engine.EngineConfig{
		Markets: cfg.Markets,
		Quorum:  cfg.Quorum,
		NewStrategies: func(market string) []strategy.Strategy {
			return []strategy.Strategy{
				strategy.NewTrendCross(fastEMAPeriod, slowEMAPeriod),
				strategy.NewRangeBreakout(breakoutLookback, breakoutThreshold),
				strategy.NewMeanReversion(reversionLookback, reversionMult),
			}
		},
		SendDecision: coordinator.SendDecision,
		Logger:       &engineLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating strategy engine: %w", err)
	}

	var jobScheduler *gocron.Scheduler
	if !cfg.Replay {
		jobScheduler = gocron.NewScheduler(time.UTC)
	}

	candleLogger := logger.With().Str("component", "candlemanager").Logger()
	candleMgr := candle.NewManager(&candle.ManagerConfig{
		Markets:  cfg.Markets,
		Interval: cfg.Interval,
		PersistCandle: func(candle *shared.Candlestick) error {
			return db.PersistCandle(ctx, candle)
		},
		JobScheduler: jobScheduler,
		Logger:       &candleLogger,
	})

	service := &Trader{
		cfg:           cfg,
		db:            db,
		candleManager: candleMgr,
		engine:        tradeEngine,
		riskManager:   riskMgr,
		coordinator:   coordinator,
		jobScheduler:  jobScheduler,
		candleUpdates: make(chan shared.Candlestick, bufferSize),
		forwardDrains: make(chan chan struct{}),
		logger:        &logger,
	}
	candleMgr.Subscribe(&service.candleUpdates)

	switch {
	case cfg.Replay:
		replayLogger := logger.With().Str("component", "replay").Logger()
		replay, err := feed.NewReplay(&feed.ReplayConfig{
			FilePath: cfg.ReplayDataFilepath,
			SendTick: candleMgr.SendTickBlocking,
			Done: func() {
				// Settle in-flight work before reporting, so the summary
				// reflects every recorded tick.
				service.drainPipeline()
				logSessionSummary(&logger, riskMgr.Stats())
				cfg.Cancel()
			},
			Logger: &replayLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating replay source: %w", err)
		}

		service.tickSource = replay

	default:
		streamLogger := logger.With().Str("component", "stream").Logger()
		service.tickSource = feed.NewStream(&feed.StreamConfig{
			URL:      cfg.StreamURL,
			Markets:  cfg.Markets,
			SendTick: candleMgr.SendTick,
			Logger:   &streamLogger,
		})
	}

	err = service.warmup(ctx)
	if err != nil {
		return nil, fmt.Errorf("warming up strategies: %w", err)
	}

	return service, nil
}

// warmup primes the strategy sets from persisted candles so indicators carry
// real state before the first live candle closes.
func (t *Trader) warmup(ctx context.Context) error {
	end := time.Now().UTC()
	start := end.Add(-warmupLookback)

	for idx := range t.cfg.Markets {
		market := t.cfg.Markets[idx]
		candles, err := t.db.FetchCandles(ctx, market, t.cfg.Interval, start, end)
		if err != nil {
			return fmt.Errorf("fetching warmup candles for %s: %w", market, err)
		}

		if len(candles) == 0 {
			t.logger.Info().Msgf("no warmup candles for %s, strategies start cold", market)
			continue
		}

		t.engine.Prime(market, candles)
		t.logger.Info().Msgf("primed %s strategies with %d stored candles", market, len(candles))
	}

	return nil
}

// drainPipeline settles all in-flight work, stage by stage in pipeline
// order. After it returns every tick queued before the call has flowed
// through candles, decisions and order placement.
func (t *Trader) drainPipeline() {
	t.candleManager.Drain()

	done := make(chan struct{})
	t.forwardDrains <- done
	<-done

	t.engine.Drain()
	t.coordinator.Drain()
}

// forwardQueued relays queued candle updates without waiting for new ones.
func (t *Trader) forwardQueued() {
	for {
		select {
		case update := <-t.candleUpdates:
			t.engine.SendMarketUpdate(update)
		default:
			return
		}
	}
}

// logSessionSummary logs the aggregate session statistics.
func logSessionSummary(logger *zerolog.Logger, stats shared.Stats) {
	logger.Info().Msg("--- session summary ---")
	logger.Info().Msgf("total trades: %d", stats.TotalTrades)
	logger.Info().Msgf("winning trades: %d", stats.WinningTrades)
	logger.Info().Msgf("losing trades: %d", stats.LosingTrades)
	logger.Info().Msgf("win rate: %.2f%%", stats.WinRate)
	logger.Info().Msgf("total pnl: %.2f", stats.TotalPNL)
	logger.Info().Msgf("average win: %.2f", stats.AverageWin)
	logger.Info().Msgf("average loss: %.2f", stats.AverageLoss)
	logger.Info().Msgf("profit factor: %.2f", stats.ProfitFactor)
	logger.Info().Msgf("final capital: %.2f", stats.FinalCapital)
}

// logStatus logs a periodic session status line.
func (t *Trader) logStatus() {
	stats := t.riskManager.Stats()
	t.logger.Info().Msgf("session status: %d trades closed, pnl %.2f, capital %.2f",
		stats.TotalTrades, stats.TotalPNL, stats.FinalCapital)
}

// Run handles the lifecycle processes of the trader service.
func (t *Trader) Run(ctx context.Context) {
	var metricsServer *http.Server
	if t.cfg.MetricsAddr != "" {
		metricsServer = metrics.Serve(t.cfg.MetricsAddr)
	}

	t.wg.Add(4)

	go func() {
		t.coordinator.Run(ctx)
		t.wg.Done()
	}()

	go func() {
		t.engine.Run(ctx)
		t.wg.Done()
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				t.wg.Done()
				return
			case update := <-t.candleUpdates:
				t.engine.SendMarketUpdate(update)
			case done := <-t.forwardDrains:
				t.forwardQueued()
				close(done)
			}
		}
	}()

	go func() {
		t.candleManager.Run(ctx)
		t.wg.Done()
	}()

	if t.jobScheduler != nil {
		_, err := t.jobScheduler.Every(statusInterval).Do(t.logStatus)
		if err != nil {
			t.logger.Error().Msgf("scheduling status job: %v", err)
		}

		t.jobScheduler.StartAsync()
		defer t.jobScheduler.Stop()
	}

	t.wg.Add(1)
	go func() {
		// The tick source starts last so the pipeline is fully subscribed
		// before the first tick arrives.
		t.tickSource.Run(ctx)
		t.wg.Done()
	}()

	t.wg.Wait()

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*2)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	if !t.cfg.Replay {
		logSessionSummary(t.logger, t.riskManager.Stats())
	}
}
