// Package metrics registers the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boutique_http_requests_total",
		Help: "HTTP requests by route pattern, method and status code.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "boutique_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern and method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	// UnknownMeasurementPairs counts generic measurements accepted without
	// a range check because the (gender, type) pair has no bounds.
	UnknownMeasurementPairs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boutique_measurements_unchecked_total",
		Help: "Generic measurements stored without a matching range.",
	}, []string{"gender"})

	OrderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boutique_order_status_transitions_total",
		Help: "Order status changes by source and target status.",
	}, []string{"from", "to", "override"})

	PaymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boutique_payments_recorded_total",
		Help: "Payments recorded by method.",
	}, []string{"method"})

	PaymentsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boutique_payments_rejected_total",
		Help: "Payment writes rejected by the balance rules.",
	}, []string{"reason"})

	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "boutique_websocket_clients",
		Help: "Connected websocket clients.",
	})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boutique_cache_lookups_total",
		Help: "Analytics cache lookups by result (hit, miss, error).",
	}, []string{"result"})
)
