// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartcheck",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "smartcheck",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	TaskTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartcheck",
		Name:      "task_transitions_total",
		Help:      "Task lifecycle transitions by event and outcome.",
	}, []string{"event", "outcome"})

	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartcheck",
		Name:      "confirmation_emails_total",
		Help:      "Confirmation code deliveries by outcome.",
	}, []string{"outcome"})
)

// Outcome labels.
const (
	OK        = "ok"
	Rejected  = "rejected"
	Failed    = "failed"
	Throttled = "throttled"
)
