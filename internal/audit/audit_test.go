package audit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLoggerWritesJSONL(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	rec := Record{
		Timestamp:  time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC),
		RequestID:  "req-1",
		Identity:   "visitor-1",
		Outcome:    OutcomeBlocked,
		Category:   "xss",
		Mode:       "enforce",
		DurationUS: 120,
		Preview:    strings.Repeat("a", 300),
	}

	if err := logger.Log(rec); err != nil {
		t.Fatalf("Log error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}

	var parsed Record
	if err := json.Unmarshal([]byte(lines[0]), &parsed); err != nil {
		t.Fatalf("invalid json: %v", err)
	}

	if parsed.Outcome != OutcomeBlocked {
		t.Fatalf("outcome = %q", parsed.Outcome)
	}
	if parsed.Category != "xss" {
		t.Fatalf("category = %q", parsed.Category)
	}
	if len(parsed.Preview) != maxPreview {
		t.Fatalf("expected preview length %d, got %d", maxPreview, len(parsed.Preview))
	}
}

func TestLoggerAppendsLines(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	for _, outcome := range []string{OutcomeAccepted, OutcomeRateLimited, OutcomeStructural} {
		if err := logger.Log(Record{Outcome: outcome}); err != nil {
			t.Fatalf("Log error: %v", err)
		}
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	var parsed Record
	if err := json.Unmarshal([]byte(lines[1]), &parsed); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if parsed.Outcome != OutcomeRateLimited {
		t.Fatalf("outcome = %q", parsed.Outcome)
	}
}

func TestLoggerOmitsEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	if err := logger.Log(Record{Outcome: OutcomeAccepted}); err != nil {
		t.Fatalf("Log error: %v", err)
	}

	line := buf.String()
	for _, field := range []string{"category", "kind", "preview", "threat_level"} {
		if strings.Contains(line, field) {
			t.Fatalf("expected %q omitted, got %s", field, line)
		}
	}
}
