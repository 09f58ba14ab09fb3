package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/autolink/autolink/internal/logging"
)

func sampleRecords() []logging.ScanRecord {
	return []logging.ScanRecord{
		{Timestamp: time.Unix(0, 0), Outcome: logging.OutcomeOK, DurationUS: 10, TextBytes: 12, Counts: map[string]int{"hashtag": 2, "url": 1}},
		{Timestamp: time.Unix(1, 0), Outcome: logging.OutcomeRateLimited, DurationUS: 30, ClientIP: "1.1.1.1"},
		{Timestamp: time.Unix(2, 0), Outcome: logging.OutcomeOK, DurationUS: 20, CacheHit: true, Counts: map[string]int{"hashtag": 1}, Diagnostics: []string{"custom_pattern_missing"}},
		{Timestamp: time.Unix(3, 0), Outcome: logging.OutcomeRejected, DurationUS: 5},
	}
}

func TestSummarize(t *testing.T) {
	summary := Summarize(sampleRecords())
	if summary.Total != 4 {
		t.Fatalf("expected total 4, got %d", summary.Total)
	}
	if summary.OK != 2 || summary.Rejected != 1 || summary.RateLimited != 1 {
		t.Fatalf("unexpected outcome counts %+v", summary)
	}
	if summary.CacheHits != 1 || summary.Matches != 4 || summary.TextBytes != 12 {
		t.Fatalf("unexpected totals %+v", summary)
	}
	if len(summary.TopCategories) != 2 || summary.TopCategories[0].Key != "hashtag" || summary.TopCategories[0].Count != 3 {
		t.Fatalf("expected hashtag first, got %+v", summary.TopCategories)
	}
	if len(summary.TopDiagnostics) != 1 || summary.TopDiagnostics[0].Key != "custom_pattern_missing" {
		t.Fatalf("expected diagnostic count, got %+v", summary.TopDiagnostics)
	}
	if len(summary.TopRateLimit) != 1 || summary.TopRateLimit[0].Key != "1.1.1.1" {
		t.Fatalf("expected rate limited client")
	}
	if summary.Latency.P50 != 10 || summary.Latency.P99 != 20 {
		t.Fatalf("unexpected latency %+v", summary.Latency)
	}
	if !summary.End.Equal(time.Unix(3, 0)) {
		t.Fatalf("unexpected end %v", summary.End)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	if summary.Total != 0 || summary.TopCategories != nil {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
	if !strings.Contains(RenderText(summary), "Top categories: none") {
		t.Fatalf("expected empty sections in text render")
	}
}

func TestReaderSince(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scans.jsonl")
	logger, closeFn, err := logging.OpenScanLog(path)
	if err != nil {
		t.Fatalf("open scan log: %v", err)
	}
	for _, rec := range sampleRecords() {
		if err := logger.Write(rec); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	_ = closeFn()

	records, err := (&Reader{Since: time.Unix(2, 0)}).Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records since cutoff, got %d", len(records))
	}
}

func TestReaderSourceAndTop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scans.jsonl")
	logger, closeFn, err := logging.OpenScanLog(path)
	if err != nil {
		t.Fatalf("open scan log: %v", err)
	}
	records := []logging.ScanRecord{
		{Source: "http", Outcome: logging.OutcomeOK, Counts: map[string]int{"url": 1, "email": 2}},
		{Source: "websocket", Outcome: logging.OutcomeOK, Counts: map[string]int{"hashtag": 5}},
	}
	for _, rec := range records {
		if err := logger.Write(rec); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	_ = closeFn()

	got, err := (&Reader{Source: "http"}).Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected only http records, got %d", len(got))
	}
	summary := SummarizeTop(got, 1)
	if len(summary.TopCategories) != 1 || summary.TopCategories[0].Key != "email" {
		t.Fatalf("expected top category email only, got %+v", summary.TopCategories)
	}
}

func TestReaderRejectsBadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	if err := os.WriteFile(path, []byte("{}\nnot json\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := (&Reader{}).Read(path)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line 2 error, got %v", err)
	}
}

func TestRenderMarkdown(t *testing.T) {
	out := RenderMarkdown(Summarize(sampleRecords()))
	if !strings.HasPrefix(out, "# Autolink Scan Report") {
		t.Fatalf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "- hashtag: 3") {
		t.Fatalf("expected category counts in markdown")
	}
}

func TestRenderJSON(t *testing.T) {
	_, err := RenderJSON(Summary{Total: 1})
	if err != nil {
		t.Fatalf("expected json render ok: %v", err)
	}
}
