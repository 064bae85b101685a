// Package metrics defines the Prometheus instrumentation for the service.
// Metrics are registered on the default registry and exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Trading metrics
	TradesExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackcast_trades_executed_total",
			Help: "Total number of executed trades",
		},
		[]string{"outcome"}, // yes, no
	)

	TradeVolumeUSD = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stackcast_trade_volume_usd_total",
			Help: "Cumulative traded volume in USD",
		},
	)

	TradesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackcast_trades_rejected_total",
			Help: "Total number of rejected trades",
		},
		[]string{"reason"}, // not_found, not_tradable, invalid_amount, invalid_input
	)

	// Market lifecycle metrics
	MarketsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stackcast_markets_created_total",
			Help: "Total number of markets created",
		},
	)

	MarketsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackcast_markets_resolved_total",
			Help: "Total number of markets resolved",
		},
		[]string{"outcome"},
	)

	Redemptions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stackcast_redemptions_total",
			Help: "Total number of position redemptions",
		},
	)

	RedemptionPayoutUSD = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stackcast_redemption_payout_usd_total",
			Help: "Cumulative redemption payout in USD",
		},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackcast_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stackcast_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "path"},
	)

	// Archive metrics
	TradesArchived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stackcast_trades_archived_total",
			Help: "Total number of trade records archived to object storage",
		},
	)
)
