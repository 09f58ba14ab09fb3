package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/autolink/autolink/internal/logging"
)

type Summary struct {
	Total          int            `json:"total"`
	OK             int            `json:"ok"`
	Rejected       int            `json:"rejected"`
	RateLimited    int            `json:"rate_limited"`
	CacheHits      int            `json:"cache_hits"`
	Matches        int            `json:"matches"`
	TextBytes      int64          `json:"text_bytes"`
	Start          time.Time      `json:"start"`
	End            time.Time      `json:"end"`
	TopCategories  []CountItem    `json:"top_categories"`
	TopDiagnostics []CountItem    `json:"top_diagnostics"`
	TopRateLimit   []CountItem    `json:"top_rate_limits"`
	Latency        LatencySummary `json:"latency_us"`
}

type CountItem struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type LatencySummary struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

const DefaultTop = 5

// Reader loads scan records, optionally keeping only those newer than Since
// or served through Source.
type Reader struct {
	Since  time.Time
	Source string
}

func (r *Reader) Read(path string) ([]logging.ScanRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return r.decode(file)
}

func (r *Reader) decode(in io.Reader) ([]logging.ScanRecord, error) {
	var records []logging.ScanRecord
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec logging.ScanRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if !r.Since.IsZero() && rec.Timestamp.Before(r.Since) {
			continue
		}
		if r.Source != "" && rec.Source != r.Source {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func Summarize(records []logging.ScanRecord) Summary {
	return SummarizeTop(records, DefaultTop)
}

// SummarizeTop is Summarize with top lists cut to n entries.
func SummarizeTop(records []logging.ScanRecord, n int) Summary {
	if n <= 0 {
		n = DefaultTop
	}
	var summary Summary
	if len(records) == 0 {
		return summary
	}

	summary.Start = records[0].Timestamp
	summary.End = records[0].Timestamp

	categoryCounts := map[string]int{}
	diagnosticCounts := map[string]int{}
	ratelimitCounts := map[string]int{}
	latencies := make([]int64, 0, len(records))

	for _, rec := range records {
		summary.Total++
		if rec.Timestamp.Before(summary.Start) {
			summary.Start = rec.Timestamp
		}
		if rec.Timestamp.After(summary.End) {
			summary.End = rec.Timestamp
		}

		switch rec.Outcome {
		case logging.OutcomeOK:
			summary.OK++
		case logging.OutcomeRejected:
			summary.Rejected++
		case logging.OutcomeRateLimited:
			summary.RateLimited++
			ratelimitCounts[rec.ClientIP]++
		}
		if rec.CacheHit {
			summary.CacheHits++
		}
		summary.TextBytes += int64(rec.TextBytes)

		for category, n := range rec.Counts {
			categoryCounts[category] += n
			summary.Matches += n
		}
		for _, code := range rec.Diagnostics {
			diagnosticCounts[code]++
		}

		latencies = append(latencies, rec.DurationUS)
	}

	summary.TopCategories = topCounts(categoryCounts, n)
	summary.TopDiagnostics = topCounts(diagnosticCounts, n)
	summary.TopRateLimit = topCounts(ratelimitCounts, n)
	summary.Latency = latencySummary(latencies)

	return summary
}

func topCounts(counts map[string]int, n int) []CountItem {
	items := make([]CountItem, 0, len(counts))
	for key, count := range counts {
		if count == 0 {
			continue
		}
		items = append(items, CountItem{Key: key, Count: count})
	}
	if len(items) == 0 {
		return nil
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].Key < items[j].Key
		}
		return items[i].Count > items[j].Count
	})

	if len(items) > n {
		items = items[:n]
	}
	return items
}

func latencySummary(values []int64) LatencySummary {
	if len(values) == 0 {
		return LatencySummary{}
	}
	sorted := make([]int64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return LatencySummary{
		P50: percentile(sorted, 0.50),
		P95: percentile(sorted, 0.95),
		P99: percentile(sorted, 0.99),
	}
}

func percentile(values []int64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	idx := int(float64(len(values)-1) * p)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(values) {
		idx = len(values) - 1
	}
	return float64(values[idx])
}

func RenderText(summary Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scans: %d\n", summary.Total)
	fmt.Fprintf(&b, "OK: %d\n", summary.OK)
	fmt.Fprintf(&b, "Rejected: %d\n", summary.Rejected)
	fmt.Fprintf(&b, "Rate limited: %d\n", summary.RateLimited)
	fmt.Fprintf(&b, "Cache hits: %d\n", summary.CacheHits)
	fmt.Fprintf(&b, "Matches: %d\n", summary.Matches)
	fmt.Fprintf(&b, "Text scanned: %d bytes\n", summary.TextBytes)
	fmt.Fprintf(&b, "Latency p50/p95/p99 (us): %.0f/%.0f/%.0f\n", summary.Latency.P50, summary.Latency.P95, summary.Latency.P99)

	writeCounts(&b, "Top categories", summary.TopCategories)
	writeCounts(&b, "Top diagnostics", summary.TopDiagnostics)
	writeCounts(&b, "Top rate-limited", summary.TopRateLimit)

	return b.String()
}

func RenderMarkdown(summary Summary) string {
	var b strings.Builder
	b.WriteString("# Autolink Scan Report\n\n")
	if !summary.Start.IsZero() {
		fmt.Fprintf(&b, "%s to %s\n\n", summary.Start.UTC().Format(time.RFC3339), summary.End.UTC().Format(time.RFC3339))
	}
	b.WriteString("## Totals\n\n")
	fmt.Fprintf(&b, "- Scans: %d\n", summary.Total)
	fmt.Fprintf(&b, "- OK: %d\n", summary.OK)
	fmt.Fprintf(&b, "- Rejected: %d\n", summary.Rejected)
	fmt.Fprintf(&b, "- Rate limited: %d\n", summary.RateLimited)
	fmt.Fprintf(&b, "- Cache hits: %d\n", summary.CacheHits)
	fmt.Fprintf(&b, "- Matches: %d\n", summary.Matches)
	fmt.Fprintf(&b, "- Text scanned: %d bytes\n", summary.TextBytes)
	fmt.Fprintf(&b, "- Latency p50/p95/p99 (us): %.0f/%.0f/%.0f\n\n", summary.Latency.P50, summary.Latency.P95, summary.Latency.P99)

	writeCountsMarkdown(&b, "Top categories", summary.TopCategories)
	writeCountsMarkdown(&b, "Top diagnostics", summary.TopDiagnostics)
	writeCountsMarkdown(&b, "Top rate-limited", summary.TopRateLimit)

	return b.String()
}

func RenderJSON(summary Summary) ([]byte, error) {
	return json.MarshalIndent(summary, "", "  ")
}

func writeCounts(b *strings.Builder, title string, items []CountItem) {
	if len(items) == 0 {
		fmt.Fprintf(b, "%s: none\n", title)
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s: %d\n", item.Key, item.Count)
	}
}

func writeCountsMarkdown(b *strings.Builder, title string, items []CountItem) {
	b.WriteString("## ")
	b.WriteString(title)
	b.WriteString("\n\n")
	if len(items) == 0 {
		b.WriteString("- none\n\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s: %d\n", item.Key, item.Count)
	}
	b.WriteString("\n")
}

func WriteOutput(path string, content []byte) error {
	if path == "" {
		_, err := io.Copy(os.Stdout, bytes.NewReader(content))
		return err
	}
	return os.WriteFile(path, content, 0o600)
}
