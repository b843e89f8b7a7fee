// Package metrics holds the Prometheus instruments used across the service.
// All collectors are registered with the global registry, so serving
// promhttp.Handler() is enough to expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SweepRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "websites_domain_sweep_runs_total",
			Help: "Cumulative number of pending domain sweeps.",
		})

	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websites_domain_sweep_duration_seconds",
			Help:    "Duration of pending domain sweeps.",
			Buckets: prometheus.DefBuckets,
		})

	DomainChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websites_domain_checks_total",
			Help: "Domain verification checks by outcome (activated, pending, failed).",
		}, []string{"outcome"})

	PendingDomains = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "websites_pending_domains",
			Help: "Pending domains seen by the most recent sweep.",
		})

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websites_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"})

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "websites_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"})

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websites_events_published_total",
			Help: "Published website events by channel and result.",
		}, []string{"channel", "result"})

	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websites_upstream_requests_total",
			Help: "Requests to upstream APIs by service and result.",
		}, []string{"service", "result"})
)

// Outcome labels for DomainChecksTotal.
const (
	OutcomeActivated = "activated"
	OutcomePending   = "pending"
	OutcomeFailed    = "failed"
)

func init() {
	prometheus.MustRegister(
		SweepRunsTotal,
		SweepDuration,
		DomainChecksTotal,
		PendingDomains,
		HTTPRequestsTotal,
		HTTPRequestDuration,
		EventsPublishedTotal,
		UpstreamRequestsTotal,
	)
}
