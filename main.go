package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/quibex/tradebot/service"
	"github.com/quibex/tradebot/shared"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	interval, err := shared.ParseInterval(cfg.Interval)
	if err != nil {
		log.Printf("parsing interval: %v", err)
		return
	}

	mode, err := shared.ParseMode(cfg.Mode)
	if err != nil {
		log.Printf("parsing mode: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	traderCfg := service.TraderConfig{
		Markets:            cfg.Markets,
		Interval:           interval,
		Quorum:             uint32(cfg.Quorum),
		Mode:               mode,
		StreamURL:          cfg.StreamURL,
		Replay:             cfg.Replay,
		ReplayDataFilepath: cfg.ReplayDataFilepath,
		DBEndpoint:         cfg.DBEndpoint,
		DBUser:             cfg.DBUser,
		DBPass:             cfg.DBPass,
		MetricsAddr:        cfg.MetricsAddr,
		InitialCapital:     cfg.InitialCapital,
		MaxRiskPerTrade:    cfg.MaxRiskPerTrade,
		MaxPortfolioRisk:   cfg.MaxPortfolioRisk,
		StopLossPct:        cfg.StopLossPct,
		TakeProfitPct:      cfg.TakeProfitPct,
		Cancel:             cancel,
	}
	trader, err := service.NewTrader(ctx, &traderCfg)
	if err != nil {
		log.Printf("creating trader service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	trader.Run(ctx)
}
