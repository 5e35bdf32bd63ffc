// Package strikes tracks repeat offenders. Each blocked message adds a
// strike against its identity; the count of strikes inside a trailing
// window maps to a threat level that embedders can use to harden
// responses for known-bad clients.
//
// Identity state lives in an LRU cache so an attacker rotating
// identities cannot grow memory without bound.
package strikes

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Level grades an identity by recent strike count.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

const (
	// DefaultWindow is the period strikes stay countable.
	DefaultWindow = time.Hour

	// DefaultMaxIdentities caps tracked identities.
	DefaultMaxIdentities = 50_000
)

// Tracker records strikes per identity. Safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	window time.Duration
	cache  *lru.Cache[string, []time.Time]
}

// NewTracker builds a tracker. Non-positive arguments fall back to the
// package defaults.
func NewTracker(window time.Duration, maxIdentities int) (*Tracker, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxIdentities <= 0 {
		maxIdentities = DefaultMaxIdentities
	}
	cache, err := lru.New[string, []time.Time](maxIdentities)
	if err != nil {
		return nil, fmt.Errorf("strike cache: %w", err)
	}
	return &Tracker{window: window, cache: cache}, nil
}

// Strike records one offense for identity at now and returns the
// resulting level.
func (t *Tracker) Strike(identity string, now time.Time) Level {
	t.mu.Lock()
	defer t.mu.Unlock()

	ts, _ := t.cache.Get(identity)
	ts = trim(ts, now.Add(-t.window))
	ts = append(ts, now)
	t.cache.Add(identity, ts)
	return levelFor(len(ts))
}

// Level returns the identity's current level without recording a
// strike or refreshing its cache position. Unknown identities are
// LevelLow.
func (t *Tracker) Level(identity string, now time.Time) Level {
	t.mu.Lock()
	defer t.mu.Unlock()

	ts, ok := t.cache.Peek(identity)
	if !ok {
		return LevelLow
	}

	cutoff := now.Add(-t.window)
	count := 0
	for _, s := range ts {
		if s.After(cutoff) {
			count++
		}
	}
	return levelFor(count)
}

// Sweep removes identities whose strikes have all expired and returns
// how many were dropped.
func (t *Tracker) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := now.Add(-t.window)
	removed := 0
	for _, identity := range t.cache.Keys() {
		ts, ok := t.cache.Peek(identity)
		if !ok {
			continue
		}
		if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
			t.cache.Remove(identity)
			removed++
		}
	}
	return removed
}

// Size returns the number of tracked identities.
func (t *Tracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cache.Len()
}

func trim(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}

func levelFor(count int) Level {
	switch {
	case count <= 0:
		return LevelLow
	case count <= 2:
		return LevelMedium
	case count <= 5:
		return LevelHigh
	default:
		return LevelCritical
	}
}
