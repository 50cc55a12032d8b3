// Package metrics exposes Prometheus instruments for the ingestion path.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "article_service"

// Recorder holds every instrument. A nil *Recorder records nothing.
type Recorder struct {
	gatherer prometheus.Gatherer

	uploads      *prometheus.CounterVec
	grobid       *prometheus.HistogramVec
	teiParses    *prometheus.CounterVec
	summarizer   *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	inflight     prometheus.Gauge
}

// New registers the instruments on reg. Pass prometheus.NewRegistry() in
// tests to avoid clashing with the default registry.
func New(reg *prometheus.Registry) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		gatherer: reg,
		uploads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Uploads handled, by HTTP status.",
		}, []string{"status"}),
		grobid: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grobid_request_duration_seconds",
			Help:      "GROBID fulltext request latency, by outcome.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40},
		}, []string{"outcome"}),
		teiParses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tei_parse_total",
			Help:      "TEI documents parsed, by result.",
		}, []string{"result"}),
		summarizer: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summarizer_requests_total",
			Help:      "Summarizer calls, by result.",
		}, []string{"result"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tei_cache_lookups_total",
			Help:      "TEI cache lookups, by result.",
		}, []string{"result"}),
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "parses_in_flight",
			Help:      "Documents currently being processed.",
		}),
	}
}

func (r *Recorder) Upload(status int) {
	if r == nil {
		return
	}
	r.uploads.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (r *Recorder) GrobidRequest(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.grobid.WithLabelValues(outcome).Observe(d.Seconds())
}

func (r *Recorder) TEIParse(result string) {
	if r == nil {
		return
	}
	r.teiParses.WithLabelValues(result).Inc()
}

func (r *Recorder) Summarizer(result string) {
	if r == nil {
		return
	}
	r.summarizer.WithLabelValues(result).Inc()
}

func (r *Recorder) CacheLookup(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// Track increments the in-flight gauge and returns its release.
func (r *Recorder) Track() func() {
	if r == nil {
		return func() {}
	}
	r.inflight.Inc()
	return r.inflight.Dec
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
