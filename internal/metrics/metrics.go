// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "taproom_admin"

// Metrics groups the service's collectors. A dedicated registry keeps tests
// independent of the global default registry.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	UpstreamCalls   *prometheus.CounterVec
	UpstreamLatency *prometheus.HistogramVec
	CacheLookups    *prometheus.CounterVec
	PayAttempts     *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		UpstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Calls to the taproom API, by operation and outcome.",
		}, []string{"operation", "status"}),
		UpstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Taproom API call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_cache_lookups_total",
			Help:      "Stock cache lookups, by result.",
		}, []string{"result"}),
		PayAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pay_attempts_total",
			Help:      "Pay submissions, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.UpstreamCalls,
		m.UpstreamLatency,
		m.CacheLookups,
		m.PayAttempts,
	)
	return m
}

// ObserveUpstream records one taproom API call. status is the HTTP status, or
// 0 for transport failures.
func (m *Metrics) ObserveUpstream(operation string, status int, started time.Time) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.UpstreamCalls.WithLabelValues(operation, label).Inc()
	m.UpstreamLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// CacheHit records a stock cache lookup.
func (m *Metrics) CacheHit(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

// PayOutcome records how a pay submission ended.
func (m *Metrics) PayOutcome(outcome string) {
	if m == nil {
		return
	}
	m.PayAttempts.WithLabelValues(outcome).Inc()
}
