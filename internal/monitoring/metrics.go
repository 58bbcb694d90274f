// internal/monitoring/metrics.go
package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes Prometheus metrics for the harvester. Every method is
// safe for concurrent use; the scan, replay, and output layers fan into
// the same instance.
type Metrics struct {
	registry *prometheus.Registry

	scansTotal   *prometheus.CounterVec
	scanDuration *prometheus.HistogramVec
	scansActive  prometheus.Gauge

	emailsFound      prometheus.Counter
	duplicatesMerged prometheus.Counter

	pagesIntercepted prometheus.Counter
	pagesReplayed    prometheus.Counter
	rateLimitHits    prometheus.Counter

	outputWrites   *prometheus.CounterVec
	outputErrors   *prometheus.CounterVec
	outputTime     *prometheus.HistogramVec
	recordsWritten *prometheus.CounterVec
}

// Config holds the metrics endpoint settings.
type Config struct {
	Namespace     string `json:"namespace"`
	MetricsPath   string `json:"metrics_path"`
	ListenAddress string `json:"listen_address"`
}

// NewMetrics builds a metrics set on a private registry so multiple
// instances (tests, restarts) never collide on registration.
func NewMetrics(config Config) *Metrics {
	if config.Namespace == "" {
		config.Namespace = "commentharvester"
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{registry: registry}

	m.scansTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "scans_total",
			Help:      "Scans by terminal state",
		},
		[]string{"state"},
	)
	m.scanDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall-clock scan duration in seconds",
			Buckets:   []float64{30, 60, 120, 300, 600, 1200, 2100},
		},
		[]string{"state"},
	)
	m.scansActive = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "scans_active",
			Help:      "Scans currently running",
		},
	)

	m.emailsFound = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "emails_found_total",
			Help:      "Unique email records merged into result stores",
		},
	)
	m.duplicatesMerged = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "duplicates_merged_total",
			Help:      "Repeat observations merged into existing records",
		},
	)

	m.pagesIntercepted = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "pages_intercepted_total",
			Help:      "Comment payloads captured passively",
		},
	)
	m.pagesReplayed = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "pages_replayed_total",
			Help:      "Comment pages fetched by endpoint replay",
		},
	)
	m.rateLimitHits = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Rate limited responses seen during replay",
		},
	)

	m.outputWrites = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "output_writes_total",
			Help:      "Successful result exports by format",
		},
		[]string{"format"},
	)
	m.outputErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "output_errors_total",
			Help:      "Failed result exports by format",
		},
		[]string{"format"},
	)
	m.outputTime = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "output_duration_seconds",
			Help:      "Export duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"format"},
	)
	m.recordsWritten = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "records_written_total",
			Help:      "Records exported by format",
		},
		[]string{"format"},
	)

	return m
}

// Scan lifecycle. These satisfy the scan package's recorder interface.

func (m *Metrics) ScanStarted() {
	m.scansActive.Inc()
}

func (m *Metrics) ScanFinished(state string, duration time.Duration) {
	m.scansActive.Dec()
	m.scansTotal.WithLabelValues(state).Inc()
	m.scanDuration.WithLabelValues(state).Observe(duration.Seconds())
}

func (m *Metrics) EmailsFound(n int) {
	m.emailsFound.Add(float64(n))
}

func (m *Metrics) DuplicatesMerged(n int) {
	m.duplicatesMerged.Add(float64(n))
}

func (m *Metrics) PagesIntercepted(n int) {
	m.pagesIntercepted.Add(float64(n))
}

func (m *Metrics) PagesReplayed(n int) {
	m.pagesReplayed.Add(float64(n))
}

func (m *Metrics) RateLimitHits(n int) {
	m.rateLimitHits.Add(float64(n))
}

// Output metrics.

func (m *Metrics) RecordOutputSuccess(format string, duration time.Duration, records int) {
	m.outputWrites.WithLabelValues(format).Inc()
	m.outputTime.WithLabelValues(format).Observe(duration.Seconds())
	m.recordsWritten.WithLabelValues(format).Add(float64(records))
}

func (m *Metrics) RecordOutputError(format string) {
	m.outputErrors.WithLabelValues(format).Inc()
}

// Handler returns the scrape handler for this metrics set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve runs the metrics HTTP server until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, address, path string) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	server := &http.Server{
		Addr:    address,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
