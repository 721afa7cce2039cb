// Package metrics exposes Prometheus instruments for corpus loads, search
// and HTTP traffic on a private registry.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FocuswithJustin/Granthalaya/core/corpus"
	"github.com/FocuswithJustin/Granthalaya/internal/logging"
)

const namespace = "granthalaya"

// Metrics holds the registry and every instrument.
type Metrics struct {
	Registry *prometheus.Registry

	CorpusLoads       *prometheus.CounterVec
	CorpusLoadSeconds prometheus.Histogram
	CorpusDiagnostics *prometheus.CounterVec
	CorpusDocuments   prometheus.Gauge
	CorpusVerses      prometheus.Gauge
	SearchRequests    *prometheus.CounterVec
	SearchResults     *prometheus.HistogramVec
	HTTPRequests      *prometheus.CounterVec
}

// New registers all instruments on a fresh registry along with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		CorpusLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corpus_loads_total",
			Help:      "Corpus load attempts by provider and result.",
		}, []string{"provider", "result"}),
		CorpusLoadSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "corpus_load_seconds",
			Help:      "Time spent reading and flattening the corpus.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		CorpusDiagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corpus_diagnostics_total",
			Help:      "Problems found in corpus documents by severity.",
		}, []string{"severity"}),
		CorpusDocuments: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_documents",
			Help:      "Documents in the current snapshot.",
		}),
		CorpusVerses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_verses",
			Help:      "Flattened verses in the current snapshot.",
		}),
		SearchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Search requests by mode.",
		}, []string{"mode"}),
		SearchResults: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Results returned per search.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		}, []string{"mode"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP responses by status code.",
		}, []string{"code"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CorpusLoads,
		m.CorpusLoadSeconds,
		m.CorpusDiagnostics,
		m.CorpusDocuments,
		m.CorpusVerses,
		m.SearchRequests,
		m.SearchResults,
		m.HTTPRequests,
	)
	return m
}

// ObserveLoad records one catalog load event. It is shaped to be passed to
// corpus.Catalog.Subscribe.
func (m *Metrics) ObserveLoad(ev corpus.LoadEvent) {
	m.CorpusLoadSeconds.Observe(ev.Duration.Seconds())
	if ev.Err != nil {
		m.CorpusLoads.WithLabelValues(ev.Provider, "error").Inc()
		return
	}
	m.CorpusLoads.WithLabelValues(ev.Provider, "ok").Inc()
	m.CorpusDocuments.Set(float64(len(ev.Snapshot.Documents)))
	m.CorpusVerses.Set(float64(len(ev.Snapshot.Verses)))

	// Diagnostics repeat on every load of an unchanged corpus.
	if !ev.Changed {
		return
	}
	for _, d := range ev.Snapshot.Diagnostics {
		m.CorpusDiagnostics.WithLabelValues(string(d.Severity)).Inc()
	}
}

// ObserveSearch records one search.
func (m *Metrics) ObserveSearch(mode string, results int) {
	m.SearchRequests.WithLabelValues(mode).Inc()
	m.SearchResults.WithLabelValues(mode).Observe(float64(results))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Middleware counts responses by status code.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := logging.NewStatusRecorder(w)
		next.ServeHTTP(rw, r)
		m.HTTPRequests.WithLabelValues(strconv.Itoa(rw.Status())).Inc()
	})
}
