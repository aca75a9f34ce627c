package tools

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter is a sliding-window limiter on tool executions, keyed by
// session so one runaway session cannot starve the rest.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	max     int
	window  time.Duration
}

// NewRateLimiter caps executions per key within the window. max <= 0
// returns nil (no limiting).
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	if max <= 0 {
		return nil
	}
	if window <= 0 {
		window = time.Hour
	}
	return &RateLimiter{windows: make(map[string][]time.Time), max: max, window: window}
}

// Allow records one execution for key, or reports the limit.
func (rl *RateLimiter) Allow(key string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	entries := rl.windows[key]
	start := 0
	for start < len(entries) && entries[start].Before(cutoff) {
		start++
	}
	entries = entries[start:]

	if len(entries) >= rl.max {
		return fmt.Errorf("tool rate limit exceeded: %d per %s for %s", rl.max, rl.window, key)
	}

	rl.windows[key] = append(entries, now)
	return nil
}

// Cleanup drops keys whose entries all expired. Call periodically.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.window)
	for key, entries := range rl.windows {
		live := entries[:0]
		for _, e := range entries {
			if !e.Before(cutoff) {
				live = append(live, e)
			}
		}
		if len(live) == 0 {
			delete(rl.windows, key)
		} else {
			rl.windows[key] = live
		}
	}
}
