package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/perpvault/pvm/internal/types"
)

// Prometheus gauges exported by the live loop, scraped from /metrics.
var (
	navGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pvm_nav_usd",
		Help: "Portfolio NAV in USD after the latest tick.",
	})
	volIndexGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pvm_vol_index",
		Help: "Composite volatility index at the latest tick.",
	})
	leverageGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pvm_leverage_used",
		Help: "Leverage multiplier applied at the latest tick.",
	})
	turnoverCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pvm_turnover_usd_total",
		Help: "Cumulative executed order notional in USD.",
	})
	tickErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pvm_tick_errors_total",
		Help: "Ticks that finished with an error status.",
	})
	positionGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pvm_position_usd",
		Help: "Signed position notional in USD per asset.",
	}, []string{"asset"})
)

// RecordTick publishes one completed tick row to the Prometheus registry.
func RecordTick(row types.TickRow) {
	navGauge.Set(row.NAVAfter)
	volIndexGauge.Set(row.VolIndex)
	leverageGauge.Set(row.LeverageUsed)
	for _, a := range row.Assets {
		positionGauge.WithLabelValues(a.Symbol).Set(a.PosAfter)
		turnoverCounter.Add(a.OrderUSD)
	}
	if row.Status == types.StatusError {
		tickErrors.Inc()
	}
}
