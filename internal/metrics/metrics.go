// Package metrics exposes Prometheus instruments for the API and report
// pipeline. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "affiliatedesk"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	reportBuilds    *prometheus.CounterVec
	reportDuration  prometheus.Histogram
	inconsistencies *prometheus.CounterVec
	ingestRecords   *prometheus.CounterVec
}

// New registers every instrument on a fresh registry, plus the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		reportBuilds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "income_reports_total",
			Help:      "Income reports served, by source (cache or computed).",
		}, []string{"source"}),
		reportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "income_report_build_seconds",
			Help:      "Time spent fetching the ledger snapshot and computing a report.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		inconsistencies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "income_inconsistencies_total",
			Help:      "Hierarchy and ledger inconsistencies found while computing reports.",
		}, []string{"kind"}),
		ingestRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_records_total",
			Help:      "Records processed by bulk ingestion, by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveReport records one report served. computed is false for cache hits.
func (m *Metrics) ObserveReport(computed bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	if !computed {
		m.reportBuilds.WithLabelValues("cache").Inc()
		return
	}
	m.reportBuilds.WithLabelValues("computed").Inc()
	m.reportDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveInconsistency(kind string) {
	if m == nil {
		return
	}
	m.inconsistencies.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveIngest(kind string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.ingestRecords.WithLabelValues(kind, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
