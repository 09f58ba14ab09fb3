package observability

import (
	"testing"

	"github.com/autolink/autolink/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	metrics.Observe(logging.ScanRecord{
		Source:      "http",
		Outcome:     logging.OutcomeOK,
		StatusCode:  200,
		Counts:      map[string]int{"hashtag": 2, "url": 1},
		Diagnostics: []string{"custom_pattern_missing"},
		TextBytes:   42,
		DurationUS:  120,
		CacheHit:    true,
	})
	metrics.Observe(logging.ScanRecord{Source: "http", Outcome: logging.OutcomeRateLimited, StatusCode: 429})
	metrics.ObserveCacheMiss()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("expected metrics gather to succeed: %v", err)
	}

	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}
	for _, name := range []string{"autolink_scans_total", "autolink_matches_total", "autolink_ratelimit_hits_total", "autolink_cache_lookups_total"} {
		if !found[name] {
			t.Fatalf("expected metric family %s", name)
		}
	}
}

func TestNilMetricsObserve(t *testing.T) {
	var m *Metrics
	m.Observe(logging.ScanRecord{Outcome: logging.OutcomeOK})
	m.ObserveCacheMiss()
}
