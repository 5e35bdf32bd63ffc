// Package eventlog keeps a bounded in-memory record of blocked
// messages. The log is a FIFO ring: once capacity is reached the
// oldest event is dropped for each new one, so memory stays flat no
// matter how long the process runs.
//
// Events store a truncated preview of the offending content rather
// than the full text, which keeps attack payloads out of downstream
// sinks.
package eventlog

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chatguard/chatguard/internal/threat"
)

const (
	// DefaultCapacity bounds the ring when no explicit size is given.
	DefaultCapacity = 100

	// maxPreview caps the stored content sample, in runes.
	maxPreview = 100
)

// Event is one recorded rejection.
type Event struct {
	ID             string          `json:"id"`
	Timestamp      time.Time       `json:"timestamp"`
	Category       threat.Category `json:"category"`
	ContentLength  int             `json:"contentLength"`
	ContentPreview string          `json:"contentPreview"`
	Identity       string          `json:"identity,omitempty"`
}

// Summary aggregates the retained events.
type Summary struct {
	Total       int                     `json:"total"`
	RecentCount int                     `json:"recentCount"`
	ByCategory  map[threat.Category]int `json:"byCategory"`
	ByIdentity  map[string]int          `json:"byIdentity"`
	LastEvent   *Event                  `json:"lastEvent,omitempty"`
}

// Log is the bounded event store. Safe for concurrent use.
type Log struct {
	mu       sync.Mutex
	capacity int
	events   []Event
	now      func() time.Time
}

// NewLog builds a log holding at most capacity events. Non-positive
// capacities fall back to DefaultCapacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		capacity: capacity,
		events:   make([]Event, 0, capacity),
		now:      time.Now,
	}
}

// Record appends an event for the given rejection and returns it along
// with whether an older event was evicted to make room.
func (l *Log) Record(category threat.Category, content, identity string) (Event, bool) {
	ev := Event{
		ID:             uuid.NewString(),
		Category:       category,
		ContentLength:  len([]rune(content)),
		ContentPreview: preview(content),
		Identity:       identity,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ev.Timestamp = l.now()

	evicted := false
	if len(l.events) >= l.capacity {
		l.events = l.events[1:]
		evicted = true
	}
	l.events = append(l.events, ev)
	return ev, evicted
}

// Summarize aggregates retained events. RecentCount covers the
// trailing window; a non-positive window defaults to one hour.
func (l *Log) Summarize(window time.Duration) Summary {
	if window <= 0 {
		window = time.Hour
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	s := Summary{
		Total:      len(l.events),
		ByCategory: make(map[threat.Category]int),
		ByIdentity: make(map[string]int),
	}

	cutoff := l.now().Add(-window)
	for _, ev := range l.events {
		if ev.Timestamp.After(cutoff) {
			s.RecentCount++
		}
		s.ByCategory[ev.Category]++
		if ev.Identity != "" {
			s.ByIdentity[ev.Identity]++
		}
	}

	if n := len(l.events); n > 0 {
		last := l.events[n-1]
		s.LastEvent = &last
	}
	return s
}

// ByCategory returns retained events for one category, oldest first.
func (l *Log) ByCategory(category threat.Category) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Event
	for _, ev := range l.events {
		if ev.Category == category {
			out = append(out, ev)
		}
	}
	return out
}

// ByIdentity returns retained events for one identity, oldest first.
func (l *Log) ByIdentity(identity string) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Event
	for _, ev := range l.events {
		if ev.Identity == identity {
			out = append(out, ev)
		}
	}
	return out
}

// Export copies out all retained events, oldest first.
func (l *Log) Export() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Clear drops all retained events.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = l.events[:0]
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// preview returns at most maxPreview runes of content, marking
// truncation with a trailing ellipsis.
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= maxPreview {
		return content
	}
	return string(runes[:maxPreview]) + "..."
}
