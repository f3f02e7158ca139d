// Package metrics exposes prometheus instrumentation for the trading
// pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TicksIngested counts market ticks consumed by the candle builder.
	TicksIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_ingested_total", Help: "Count of market ticks ingested"},
		[]string{"market"},
	)
	// CandlesClosed counts candles closed per market.
	CandlesClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "candles_closed_total", Help: "Count of closed candles"},
		[]string{"market"},
	)
	// StrategySignals counts non-hold strategy signals.
	StrategySignals = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "strategy_signals_total", Help: "Strategy signals emitted"},
		[]string{"strategy", "action"},
	)
	// OrdersPlaced counts orders submitted to the order placer.
	OrdersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_placed_total", Help: "Orders submitted"},
		[]string{"market", "side", "mode"},
	)
	// OrdersRejected counts order placements that failed or timed out.
	OrdersRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_rejected_total", Help: "Orders rejected or timed out"},
		[]string{"market", "side", "mode"},
	)
	// TradesClosed counts fully confirmed round trips.
	TradesClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trades_closed_total", Help: "Confirmed closed trades"},
		[]string{"market"},
	)
	// CurrentCapital tracks the session capital after realized pnl.
	CurrentCapital = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "current_capital", Help: "Session capital including realized pnl"},
	)
)

func init() {
	prometheus.MustRegister(TicksIngested, CandlesClosed, StrategySignals,
		OrdersPlaced, OrdersRejected, TradesClosed, CurrentCapital)
}

// Serve exposes the metrics endpoint on the provided address.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
