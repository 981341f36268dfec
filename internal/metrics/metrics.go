// Package metrics provides Prometheus metrics for the article engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts service operations by outcome.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "innovateink",
			Name:      "article_operations_total",
			Help:      "Total number of article operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// CounterIncrements counts accepted view and like increments.
	CounterIncrements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "innovateink",
			Name:      "article_counter_increments_total",
			Help:      "Total number of view and like increments",
		},
		[]string{"field"},
	)

	// RequestDuration measures HTTP request handling time.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "innovateink",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	// RateLimited counts requests rejected by the rate limiter.
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "innovateink",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by rate limiting",
		},
		[]string{"route"},
	)
)

// RecordOperation records one finished service operation.
func RecordOperation(operation, outcome string) {
	OperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordIncrement records one counter increment.
func RecordIncrement(field string) {
	CounterIncrements.WithLabelValues(field).Inc()
}

// RecordRequest records one HTTP request.
func RecordRequest(route, method, status string, seconds float64) {
	RequestDuration.WithLabelValues(route, method, status).Observe(seconds)
}
