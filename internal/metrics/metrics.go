// Package metrics exposes Prometheus collectors for scrape runs.
package metrics

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CID outcomes.
const (
	OutcomeFetched       = "fetched"
	OutcomeFetchFailed   = "fetch_failed"
	OutcomeExtractFailed = "extract_failed"
	OutcomeSkipped       = "skipped"
)

// Image outcomes.
const (
	ImageSaved            = "saved"
	ImageFailed           = "failed"
	ImageMissingReference = "missing_reference"
	ImageAbsent           = "absent"
)

var (
	cidsTotal              *prometheus.CounterVec
	imagesTotal            *prometheus.CounterVec
	requestsTotal          *prometheus.CounterVec
	bytesTotal             *prometheus.CounterVec
	runsTotal              *prometheus.CounterVec
	rateLimitDelaysSeconds prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		cidsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rsr_cids_total",
				Help: "Total number of CIDs handled, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		imagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rsr_images_total",
				Help: "Total number of sign images handled, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		requestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rsr_requests_total",
				Help: "Total number of HTTP requests, labeled by kind and status code.",
			},
			[]string{"kind", "code"},
		)

		bytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rsr_bytes_total",
				Help: "Total number of bytes fetched, labeled by kind.",
			},
			[]string{"kind"},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rsr_runs_total",
				Help: "Total number of runs, labeled by mode and status.",
			},
			[]string{"mode", "status"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rsr_rate_limit_delays_seconds",
				Help:    "Histogram of politeness delay wait durations.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		)
	})
}

// ObserveCID increments the CID counter for outcome.
func ObserveCID(outcome string) {
	Init()
	cidsTotal.WithLabelValues(outcome).Inc()
}

// AddSkipped counts CIDs left out of a plan.
func AddSkipped(n int) {
	Init()
	if n > 0 {
		cidsTotal.WithLabelValues(OutcomeSkipped).Add(float64(n))
	}
}

// ObserveImage increments the image counter for outcome.
func ObserveImage(outcome string) {
	Init()
	imagesTotal.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one HTTP exchange. Code 0 means a transport error.
func ObserveRequest(kind string, code int, bytesFetched int) {
	Init()
	requestsTotal.WithLabelValues(kind, strconv.Itoa(code)).Inc()
	if bytesFetched > 0 {
		bytesTotal.WithLabelValues(kind).Add(float64(bytesFetched))
	}
}

// ObserveRun increments the run counter.
func ObserveRun(mode, status string) {
	Init()
	runsTotal.WithLabelValues(mode, status).Inc()
}

// ObserveRateLimitDelay records the duration of a politeness wait.
func ObserveRateLimitDelay(duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.Observe(duration.Seconds())
}

// WriteTextfile dumps the default registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	Init()
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
