package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_cycles_total",
		Help: "Evaluation cycles started.",
	})
	CycleFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_cycle_failures_total",
		Help: "Cycles that ended in an unexpected failure.",
	})
	CyclesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_cycles_skipped_total",
		Help: "Cycles skipped for insufficient price data.",
	})
	SignalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_signals_total",
		Help: "Signals detected, by origin and direction.",
	}, []string{"origin", "direction"})
	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_orders_total",
		Help: "Order attempts, by result.",
	}, []string{"result"})
	SuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_signals_suppressed_total",
		Help: "Signals suppressed by the trade state machine.",
	})
	FastMA = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bot_fast_ma",
		Help: "Fast moving average on the current confirmed candle.",
	})
	SlowMA = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bot_slow_ma",
		Help: "Slow moving average on the current confirmed candle.",
	})
	ManagedHolding = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bot_managed_holding",
		Help: "Coin amount the strategy currently manages.",
	})
)

// Serve exposes /metrics on addr in the background.
func Serve(addr string, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", addr).Msg("metrics listener started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics listener stopped")
		}
	}()
}
