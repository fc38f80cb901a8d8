package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shinkan/internal/config"
	"shinkan/internal/logging"
)

// Metrics bundles the Prometheus collectors for scan runs.
type Metrics struct {
	Registry             *prometheus.Registry
	FetchesTotal         *prometheus.CounterVec
	FetchDuration        prometheus.Histogram
	ClassificationsTotal *prometheus.CounterVec
	NewVolumesTotal      prometheus.Counter
	InvalidPagesTotal    prometheus.Counter
	SeriesScannedTotal   prometheus.Counter
}

// New constructs and registers all collectors on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	fetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shinkan_fetches_total",
			Help: "Total catalog pages fetched, by page kind.",
		},
		[]string{"kind"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shinkan_fetch_duration_seconds",
			Help:    "Catalog page fetch latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	classifications := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shinkan_classifications_total",
			Help: "Total discovery classifications, by outcome.",
		},
		[]string{"outcome"},
	)
	newVolumes := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shinkan_new_volumes_total",
			Help: "Total newly detected volumes across runs.",
		},
	)
	invalidPages := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shinkan_invalid_pages_total",
			Help: "Total interstitial or unusable pages served by the catalog.",
		},
	)
	seriesScanned := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shinkan_series_scanned_total",
			Help: "Total series scans completed.",
		},
	)

	registry.MustRegister(fetches, fetchDuration, classifications, newVolumes, invalidPages, seriesScanned)

	return &Metrics{
		Registry:             registry,
		FetchesTotal:         fetches,
		FetchDuration:        fetchDuration,
		ClassificationsTotal: classifications,
		NewVolumesTotal:      newVolumes,
		InvalidPagesTotal:    invalidPages,
		SeriesScannedTotal:   seriesScanned,
	}
}

// IncFetch counts one page fetch by kind.
func (m *Metrics) IncFetch(kind string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(kind).Inc()
}

// ObserveFetch records a page fetch latency.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// IncClassification counts one discovery classification by outcome.
func (m *Metrics) IncClassification(outcome string) {
	if m == nil {
		return
	}
	m.ClassificationsTotal.WithLabelValues(outcome).Inc()
}

// IncNewVolume counts a newly detected volume.
func (m *Metrics) IncNewVolume() {
	if m == nil {
		return
	}
	m.NewVolumesTotal.Inc()
}

// IncInvalidPage counts an unusable page response.
func (m *Metrics) IncInvalidPage() {
	if m == nil {
		return
	}
	m.InvalidPagesTotal.Inc()
}

// IncSeriesScanned counts a completed series scan.
func (m *Metrics) IncSeriesScanned() {
	if m == nil {
		return
	}
	m.SeriesScannedTotal.Inc()
}

// Serve exposes the registry over HTTP until the context is cancelled.
// Returns immediately when metrics are disabled in config.
func Serve(ctx context.Context, cfg *config.Config, m *Metrics, logger *slog.Logger) {
	if m == nil || !cfg.Metrics.Enabled {
		return
	}
	log := logging.WithComponent(logger, "metrics")

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: cfg.Metrics.Bind, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	go func() {
		log.Info("metrics endpoint listening", slog.String("bind", cfg.Metrics.Bind))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics endpoint stopped", slog.Any("error", err))
		}
	}()
}
