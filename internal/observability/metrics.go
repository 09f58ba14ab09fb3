package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/autolink/autolink/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	scansTotal         *prometheus.CounterVec
	matchesTotal       *prometheus.CounterVec
	diagnosticsTotal   *prometheus.CounterVec
	ratelimitHitsTotal prometheus.Counter
	cacheLookupsTotal  *prometheus.CounterVec
	scanDuration       *prometheus.HistogramVec
	textBytes          prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		scansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "autolink_scans_total", Help: "Total scan requests"},
			[]string{"source", "outcome", "code"},
		),
		matchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "autolink_matches_total", Help: "Total match items returned"},
			[]string{"category"},
		),
		diagnosticsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "autolink_diagnostics_total", Help: "Total scan diagnostics"},
			[]string{"code"},
		),
		ratelimitHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "autolink_ratelimit_hits_total", Help: "Total rate limited scan requests"},
		),
		cacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "autolink_cache_lookups_total", Help: "Result cache lookups"},
			[]string{"result"},
		),
		scanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autolink_scan_duration_seconds",
				Help:    "Scan duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
			},
			[]string{"source"},
		),
		textBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "autolink_scan_text_bytes",
				Help:    "Size of scanned text in bytes",
				Buckets: prometheus.ExponentialBuckets(16, 4, 8),
			},
		),
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.scansTotal,
		m.matchesTotal,
		m.diagnosticsTotal,
		m.ratelimitHitsTotal,
		m.cacheLookupsTotal,
		m.scanDuration,
		m.textBytes,
	)

	return m
}

func (m *Metrics) Handler(reg *prometheus.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func (m *Metrics) Observe(record logging.ScanRecord) {
	if m == nil {
		return
	}

	m.scansTotal.WithLabelValues(record.Source, record.Outcome, strconv.Itoa(record.StatusCode)).Inc()
	if record.Outcome == logging.OutcomeRateLimited {
		m.ratelimitHitsTotal.Inc()
	}
	if record.Outcome != logging.OutcomeOK {
		return
	}

	m.scanDuration.WithLabelValues(record.Source).Observe((time.Duration(record.DurationUS) * time.Microsecond).Seconds())
	m.textBytes.Observe(float64(record.TextBytes))

	for category, count := range record.Counts {
		m.matchesTotal.WithLabelValues(category).Add(float64(count))
	}
	for _, code := range record.Diagnostics {
		m.diagnosticsTotal.WithLabelValues(code).Inc()
	}
	if record.CacheHit {
		m.cacheLookupsTotal.WithLabelValues("hit").Inc()
	}
}

// ObserveCacheMiss is separate from Observe because only cache-enabled
// services perform lookups.
func (m *Metrics) ObserveCacheMiss() {
	if m == nil {
		return
	}
	m.cacheLookupsTotal.WithLabelValues("miss").Inc()
}
