// Package ratelimit implements a sliding window limiter keyed by
// caller identity. Each identity owns a list of recent event
// timestamps; an event is admitted while fewer than MaxCount
// timestamps fall inside the trailing window.
//
// Time is always supplied by the caller, which keeps the limiter
// deterministic under test and lets embedders drive it from a frozen
// clock.
package ratelimit

import (
	"sync"
	"time"
)

// Policy bounds events per identity inside a trailing window.
type Policy struct {
	Window   time.Duration
	MaxCount int
}

// DefaultPolicy returns the policy applied to chat messages.
func DefaultPolicy() Policy {
	return Policy{
		Window:   time.Minute,
		MaxCount: 10,
	}
}

// Result describes the state of one identity after a check.
//
// ResetAt is the instant the oldest retained event leaves the window,
// meaning the earliest time a denied caller can retry. It is the zero
// time when the identity has no retained events.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter tracks per-identity event timestamps. Safe for concurrent
// use.
type Limiter struct {
	mu      sync.Mutex
	policy  Policy
	windows map[string][]time.Time
}

// NewLimiter builds a limiter for the given policy. Non-positive
// fields fall back to DefaultPolicy values.
func NewLimiter(policy Policy) *Limiter {
	def := DefaultPolicy()
	if policy.Window <= 0 {
		policy.Window = def.Window
	}
	if policy.MaxCount <= 0 {
		policy.MaxCount = def.MaxCount
	}
	return &Limiter{
		policy:  policy,
		windows: make(map[string][]time.Time),
	}
}

// Policy returns the limiter's effective policy.
func (l *Limiter) Policy() Policy {
	return l.policy
}

// Check records an event for identity at now if the window has room.
// Expired timestamps are evicted first, so a burst of MaxCount events
// locks the identity out only until the oldest one ages past the
// window.
func (l *Limiter) Check(identity string, now time.Time) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.evict(identity, now)

	if len(ts) >= l.policy.MaxCount {
		return Result{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   ts[0].Add(l.policy.Window),
		}
	}

	ts = append(ts, now)
	l.windows[identity] = ts
	return Result{
		Allowed:   true,
		Remaining: l.policy.MaxCount - len(ts),
		ResetAt:   ts[0].Add(l.policy.Window),
	}
}

// Status reports the identity's state without recording an event and
// without creating state for unknown identities.
func (l *Limiter) Status(identity string, now time.Time) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.policy.Window)
	var count int
	var oldest time.Time
	for _, t := range l.windows[identity] {
		if t.After(cutoff) {
			if count == 0 {
				oldest = t
			}
			count++
		}
	}

	res := Result{
		Allowed:   count < l.policy.MaxCount,
		Remaining: l.policy.MaxCount - count,
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if count > 0 {
		res.ResetAt = oldest.Add(l.policy.Window)
	}
	return res
}

// Sweep drops identities whose timestamps have all expired and returns
// how many were removed. Meant to run periodically so idle identities
// do not accumulate.
func (l *Limiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.policy.Window)
	removed := 0
	for identity, ts := range l.windows {
		if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
			delete(l.windows, identity)
			removed++
		}
	}
	return removed
}

// Size returns the number of tracked identities.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// evict removes expired timestamps for identity and returns the
// retained slice. Caller must hold mu.
func (l *Limiter) evict(identity string, now time.Time) []time.Time {
	ts := l.windows[identity]
	cutoff := now.Add(-l.policy.Window)

	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i > 0 {
		ts = ts[i:]
		if len(ts) == 0 {
			delete(l.windows, identity)
		} else {
			l.windows[identity] = ts
		}
	}
	return ts
}
