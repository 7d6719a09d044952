package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the proxy's Prometheus collectors.
type metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	exchangesTotal  *prometheus.CounterVec
	profileCacheHit *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tunelink",
			Subsystem: "proxy",
			Name:      "http_requests_total",
			Help:      "HTTP requests handled, by route and status code.",
		}, []string{"route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tunelink",
			Subsystem: "proxy",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		exchangesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tunelink",
			Subsystem: "proxy",
			Name:      "token_exchanges_total",
			Help:      "Token exchange attempts, by provider and outcome.",
		}, []string{"provider", "outcome"}),
		profileCacheHit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tunelink",
			Subsystem: "proxy",
			Name:      "profile_cache_total",
			Help:      "Profile lookups, by provider and cache result.",
		}, []string{"provider", "result"}),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.exchangesTotal,
		m.profileCacheHit,
	)
	return m
}

func (m *metrics) observeExchange(provider, outcome string) {
	m.exchangesTotal.WithLabelValues(provider, outcome).Inc()
}
