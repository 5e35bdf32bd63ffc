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

	"github.com/chatguard/chatguard/internal/audit"
)

type Summary struct {
	Total          int            `json:"total"`
	Accepted       int            `json:"accepted"`
	Blocked        int            `json:"blocked"`
	Monitored      int            `json:"monitored"`
	Structural     int            `json:"structural"`
	RateLimited    int            `json:"rate_limited"`
	RemoteRejected int            `json:"remote_rejected"`
	Malformed      int            `json:"malformed"`
	Start          time.Time      `json:"start"`
	End            time.Time      `json:"end"`
	TopCategories  []CountItem    `json:"top_categories"`
	TopIdentities  []CountItem    `json:"top_identities"`
	TopKinds       []CountItem    `json:"top_kinds"`
	Latency        LatencySummary `json:"latency"`
}

type CountItem struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// LatencySummary percentiles are in microseconds.
type LatencySummary struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// Reader loads audit records from a JSONL file. Lines that fail to
// parse are skipped and counted in Malformed, so a partially written
// or rotated file still yields a report.
type Reader struct {
	Since     time.Time
	Malformed int
}

func (r *Reader) Read(path string) ([]audit.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var records []audit.Record
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec audit.Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			r.Malformed++
			continue
		}
		if !r.Since.IsZero() && rec.Timestamp.Before(r.Since) {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func Summarize(records []audit.Record) Summary {
	var summary Summary
	if len(records) == 0 {
		return summary
	}

	summary.Start = records[0].Timestamp
	summary.End = records[0].Timestamp

	categoryCounts := map[string]int{}
	identityCounts := map[string]int{}
	kindCounts := map[string]int{}
	latencies := make([]int64, 0, len(records))

	for _, rec := range records {
		summary.Total++
		if rec.Timestamp.Before(summary.Start) {
			summary.Start = rec.Timestamp
		}
		if rec.Timestamp.After(summary.End) {
			summary.End = rec.Timestamp
		}

		rejected := false
		switch rec.Outcome {
		case audit.OutcomeAccepted:
			summary.Accepted++
		case audit.OutcomeBlocked:
			summary.Blocked++
			rejected = true
		case audit.OutcomeMonitored:
			summary.Monitored++
			rejected = true
		case audit.OutcomeStructural:
			summary.Structural++
			rejected = true
		case audit.OutcomeRateLimited:
			summary.RateLimited++
			rejected = true
		case audit.OutcomeRemote:
			summary.RemoteRejected++
			rejected = true
		}

		if rec.Category != "" {
			categoryCounts[rec.Category]++
		}
		if rec.Kind != "" {
			kindCounts[rec.Kind]++
		}
		if rejected && rec.Identity != "" {
			identityCounts[rec.Identity]++
		}

		latencies = append(latencies, rec.DurationUS)
	}

	summary.TopCategories = topCounts(categoryCounts, 5)
	summary.TopIdentities = topCounts(identityCounts, 5)
	summary.TopKinds = topCounts(kindCounts, 5)
	summary.Latency = latencySummary(latencies)

	return summary
}

func topCounts(counts map[string]int, n int) []CountItem {
	items := make([]CountItem, 0, len(counts))
	for key, count := range counts {
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
	fmt.Fprintf(&b, "Total: %d\n", summary.Total)
	fmt.Fprintf(&b, "Accepted: %d\n", summary.Accepted)
	fmt.Fprintf(&b, "Blocked: %d\n", summary.Blocked)
	fmt.Fprintf(&b, "Monitored: %d\n", summary.Monitored)
	fmt.Fprintf(&b, "Structural: %d\n", summary.Structural)
	fmt.Fprintf(&b, "Rate limited: %d\n", summary.RateLimited)
	fmt.Fprintf(&b, "Remote rejected: %d\n", summary.RemoteRejected)
	if summary.Malformed > 0 {
		fmt.Fprintf(&b, "Malformed lines skipped: %d\n", summary.Malformed)
	}
	fmt.Fprintf(&b, "Latency p50/p95/p99 (us): %.0f/%.0f/%.0f\n", summary.Latency.P50, summary.Latency.P95, summary.Latency.P99)

	writeCounts(&b, "Top threat categories", summary.TopCategories)
	writeCounts(&b, "Top offending identities", summary.TopIdentities)
	writeCounts(&b, "Top structural violations", summary.TopKinds)

	return b.String()
}

func RenderMarkdown(summary Summary) string {
	var b strings.Builder
	b.WriteString("# Chatguard Report\n\n")
	b.WriteString("## Totals\n\n")
	fmt.Fprintf(&b, "- Total: %d\n", summary.Total)
	fmt.Fprintf(&b, "- Accepted: %d\n", summary.Accepted)
	fmt.Fprintf(&b, "- Blocked: %d\n", summary.Blocked)
	fmt.Fprintf(&b, "- Monitored: %d\n", summary.Monitored)
	fmt.Fprintf(&b, "- Structural: %d\n", summary.Structural)
	fmt.Fprintf(&b, "- Rate limited: %d\n", summary.RateLimited)
	fmt.Fprintf(&b, "- Remote rejected: %d\n", summary.RemoteRejected)
	if summary.Malformed > 0 {
		fmt.Fprintf(&b, "- Malformed lines skipped: %d\n", summary.Malformed)
	}
	fmt.Fprintf(&b, "- Latency p50/p95/p99 (us): %.0f/%.0f/%.0f\n\n", summary.Latency.P50, summary.Latency.P95, summary.Latency.P99)

	writeCountsMarkdown(&b, "Top threat categories", summary.TopCategories)
	writeCountsMarkdown(&b, "Top offending identities", summary.TopIdentities)
	writeCountsMarkdown(&b, "Top structural violations", summary.TopKinds)

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
