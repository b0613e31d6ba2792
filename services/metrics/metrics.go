package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PagesFetched counts review page fetches by HTTP status, or "error" on transport failure
	PagesFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "opinions", Name: "pages_fetched_total", Help: "Review pages fetched, by status."},
		[]string{"status"},
	)
	// RecordsNormalized counts records by normalization outcome
	RecordsNormalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "opinions", Name: "records_total", Help: "Records normalized, by outcome."},
		[]string{"outcome"}, // outcome: ok|malformed|translation|other
	)
	// Translations counts translator calls by outcome
	Translations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "opinions", Name: "translations_total", Help: "Translation calls, by outcome."},
		[]string{"outcome"}, // outcome: ok|error|memo
	)
	// ExtractionDuration observes whole product runs, split by success
	ExtractionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "opinions", Name: "extraction_duration_seconds",
			Help:    "Duration of one product extraction run.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"result"},
	)
)

// NewRegistry returns a registry holding every collector of this package
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(PagesFetched, RecordsNormalized, Translations, ExtractionDuration)
	return reg
}

// Handler serves the registry in the Prometheus text format
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// ObservePage records one page fetch. A zero status means no response was received.
func ObservePage(status int) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	PagesFetched.WithLabelValues(label).Inc()
}

// ObserveRecord records the outcome of normalizing one record
func ObserveRecord(outcome string) {
	RecordsNormalized.WithLabelValues(outcome).Inc()
}

// ObserveTranslation records the outcome of one translation lookup
func ObserveTranslation(outcome string) {
	Translations.WithLabelValues(outcome).Inc()
}

// ObserveExtraction records how long one extraction took and whether it failed
func ObserveExtraction(err error, dur time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ExtractionDuration.WithLabelValues(result).Observe(dur.Seconds())
}
