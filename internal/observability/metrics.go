// Package observability holds the prometheus instrumentation for the
// money-movement core.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PayoutDispatches counts payout dispatch attempts by path
	// (withdrawal, reconciler, sweep) and result.
	PayoutDispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casita_payout_dispatches_total",
			Help: "Total payout dispatch attempts",
		},
		[]string{"path", "result"},
	)

	// PayoutDuration tracks how long processor dispatch calls take.
	PayoutDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "casita_payout_dispatch_duration_seconds",
			Help:    "Duration of payout dispatch calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	// BalanceMutations counts atomic wallet balance updates.
	BalanceMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casita_wallet_balance_mutations_total",
			Help: "Total wallet balance mutations",
		},
		[]string{"result"},
	)

	// ReconcilerEvents counts transaction-created events by outcome.
	ReconcilerEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casita_reconciler_events_total",
			Help: "Transaction-created events processed by the reconciler",
		},
		[]string{"outcome"},
	)
)

// InitMetrics registers the collectors. Call once at startup.
func InitMetrics() {
	prometheus.MustRegister(PayoutDispatches, PayoutDuration, BalanceMutations, ReconcilerEvents)
}

// Handler returns the /metrics handler for mounting on the HTTP server.
func Handler() http.Handler {
	return promhttp.Handler()
}
