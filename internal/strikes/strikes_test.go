package strikes

import (
	"fmt"
	"testing"
	"time"
)

func TestStrikeLevels(t *testing.T) {
	tr, err := NewTracker(time.Hour, 100)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	wants := []Level{
		LevelMedium, LevelMedium,
		LevelHigh, LevelHigh, LevelHigh,
		LevelCritical, LevelCritical,
	}
	for i, want := range wants {
		got := tr.Strike("visitor-1", now.Add(time.Duration(i)*time.Second))
		if got != want {
			t.Fatalf("strike %d: level = %s, want %s", i+1, got, want)
		}
	}
}

func TestLevelReadOnly(t *testing.T) {
	tr, err := NewTracker(time.Hour, 100)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if got := tr.Level("ghost", now); got != LevelLow {
		t.Fatalf("unknown identity level = %s, want low", got)
	}
	if tr.Size() != 0 {
		t.Fatalf("Level created state for unknown identity")
	}

	tr.Strike("visitor-1", now)
	for i := 0; i < 3; i++ {
		if got := tr.Level("visitor-1", now); got != LevelMedium {
			t.Fatalf("call %d: level = %s, want medium", i, got)
		}
	}
}

func TestStrikesExpire(t *testing.T) {
	tr, err := NewTracker(time.Hour, 100)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tr.Strike("visitor-1", base)
	tr.Strike("visitor-1", base.Add(time.Minute))

	if got := tr.Level("visitor-1", base.Add(30*time.Minute)); got != LevelMedium {
		t.Fatalf("level = %s, want medium", got)
	}
	if got := tr.Level("visitor-1", base.Add(2*time.Hour)); got != LevelLow {
		t.Fatalf("level after expiry = %s, want low", got)
	}

	// A new strike after expiry starts the count over.
	if got := tr.Strike("visitor-1", base.Add(2*time.Hour)); got != LevelMedium {
		t.Fatalf("fresh strike level = %s, want medium", got)
	}
}

func TestTrackerEvictsOldest(t *testing.T) {
	tr, err := NewTracker(time.Hour, 2)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tr.Strike("a", now)
	tr.Strike("b", now)
	tr.Strike("c", now)

	if tr.Size() != 2 {
		t.Fatalf("Size = %d, want 2", tr.Size())
	}
	if got := tr.Level("a", now); got != LevelLow {
		t.Fatalf("evicted identity level = %s, want low", got)
	}
	if got := tr.Level("c", now); got != LevelMedium {
		t.Fatalf("recent identity level = %s, want medium", got)
	}
}

func TestSweep(t *testing.T) {
	tr, err := NewTracker(time.Hour, 100)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		tr.Strike(fmt.Sprintf("stale-%d", i), base)
	}
	tr.Strike("active", base.Add(90*time.Minute))

	if removed := tr.Sweep(base.Add(2 * time.Hour)); removed != 5 {
		t.Fatalf("Sweep removed %d, want 5", removed)
	}
	if tr.Size() != 1 {
		t.Fatalf("Size = %d, want 1", tr.Size())
	}
}
