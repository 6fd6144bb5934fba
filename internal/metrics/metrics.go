// Package metrics exposes the daemon's Prometheus gauges and histograms,
// grounded on the pack's pkg/metrics package: package-level collectors
// registered at init, plus a Handler for the /metrics endpoint.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PinsCurrent = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_agent_pins_current",
		Help: "Number of CIDs currently present with present_source=pin-root",
	})

	PinRefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_agent_pin_refresh_duration_seconds",
		Help:    "Duration of pin-sync passes",
		Buckets: prometheus.DefBuckets,
	})

	PinRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_agent_pin_refresh_total",
		Help: "Total pin-sync passes by outcome",
	}, []string{"outcome"})

	TypesIndexedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_agent_types_indexed_total",
		Help: "Total CIDs successfully (re-)detected by the type crawler",
	})

	TypeCrawlDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_agent_type_crawl_duration_seconds",
		Help:    "Duration of a single candidate's detect+analyze+synthesize pass",
		Buckets: prometheus.DefBuckets,
	})

	DirsExpandedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_agent_dirs_expanded_total",
		Help: "Total directory candidates successfully expanded",
	})

	DirExpandErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_agent_dir_expand_errors_total",
		Help: "Total directory listing failures",
	})

	RangeIgnoredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_agent_range_ignored_total",
		Help: "Total gateway fetches where the Range header was ignored",
	})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_agent_http_requests_total",
		Help: "Total read-API requests by route and status",
	}, []string{"route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_agent_http_request_duration_seconds",
		Help:    "Read-API request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	TaggerWorkerRestartsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_agent_tagger_worker_restarts_total",
		Help: "Total times the tagger worker process was restarted after a fatal error",
	})
)

func init() {
	prometheus.MustRegister(
		PinsCurrent,
		PinRefreshDuration,
		PinRefreshTotal,
		TypesIndexedTotal,
		TypeCrawlDuration,
		DirsExpandedTotal,
		DirExpandErrorsTotal,
		RangeIgnoredTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
		TaggerWorkerRestartsTotal,
	)
}

// Handler returns the Prometheus scrape handler for GET /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer times an operation and records it to a histogram on completion.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) ObserveDuration(h prometheus.Histogram) {
	h.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) ObserveDurationVec(h prometheus.ObserverVec, labels ...string) {
	h.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}
