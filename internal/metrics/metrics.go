// Package metrics holds the Prometheus collectors for the HTTP surface and
// the climate store.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "surfsup"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by route pattern and status.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP request handling in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	StoreQueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_query_duration_seconds",
		Help:      "Duration of climate store queries in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"query"})

	StoreSessionsOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "store_sessions_open",
		Help:      "Number of store sessions currently holding a pooled connection.",
	})

	registerOnce sync.Once
)

func init() {
	Register()
}

// Register adds every collector to the default registry. Safe to call twice.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			StoreQueryDuration,
			StoreSessionsOpen,
		)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}

// ObserveQuery records the time since start for a named store query.
func ObserveQuery(query string, start time.Time) {
	StoreQueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}

func SessionOpened() { StoreSessionsOpen.Inc() }

func SessionClosed() { StoreSessionsOpen.Dec() }
