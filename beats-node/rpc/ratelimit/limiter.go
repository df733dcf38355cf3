// Package ratelimit implements the fixed-window request limiter and the
// hash-operation cost budget applied at the HTTP boundary.
package ratelimit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const minKeyCap = 100

var throttledRequests = promauto.NewCounter(prometheus.CounterOpts{
	Name: "beats_rate_limited_requests_total",
	Help: "The number of requests rejected by the fixed-window limiter.",
})

type entry struct {
	count   int
	resetAt int64
}

// Decision is the outcome of one limiter check.
type Decision struct {
	Allowed   bool
	Remaining int
	// ResetAt is the unix-millisecond time the window re-opens.
	ResetAt int64
}

// FixedWindow counts requests per key in fixed windows. Entries expire when
// their window passes; the key table is hard-capped and evicted FIFO so an
// address-spraying client cannot grow it without bound.
type FixedWindow struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   []string
	limit   int
	window  time.Duration
	maxKeys int
	now     func() time.Time
}

// NewFixedWindow builds a limiter allowing limit requests per window.
// maxKeys below the minimum cap is raised to it.
func NewFixedWindow(limit int, window time.Duration, maxKeys int) *FixedWindow {
	if maxKeys < minKeyCap {
		maxKeys = minKeyCap
	}
	return &FixedWindow{
		entries: make(map[string]*entry),
		limit:   limit,
		window:  window,
		maxKeys: maxKeys,
		now:     time.Now,
	}
}

// Check increments the counter for key and reports whether the request is
// within the window's budget.
func (l *FixedWindow) Check(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now().UnixMilli()
	e, ok := l.entries[key]
	if !ok || now >= e.resetAt {
		if !ok {
			l.insertLocked(key)
		}
		e = &entry{count: 0, resetAt: now + l.window.Milliseconds()}
		l.entries[key] = e
	}
	e.count++
	remaining := l.limit - e.count
	if remaining < 0 {
		remaining = 0
	}
	if e.count > l.limit {
		throttledRequests.Inc()
		return Decision{Allowed: false, Remaining: 0, ResetAt: e.resetAt}
	}
	return Decision{Allowed: true, Remaining: remaining, ResetAt: e.resetAt}
}

// insertLocked tracks insertion order and evicts the oldest key once the
// table exceeds its cap. Callers hold l.mu.
func (l *FixedWindow) insertLocked(key string) {
	l.order = append(l.order, key)
	for len(l.entries) >= l.maxKeys && len(l.order) > 0 {
		oldest := l.order[0]
		l.order = l.order[1:]
		delete(l.entries, oldest)
	}
}

// Sweep drops expired entries. Run it on a background timer so idle keys do
// not accumulate between requests.
func (l *FixedWindow) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now().UnixMilli()
	kept := l.order[:0]
	for _, key := range l.order {
		e, ok := l.entries[key]
		if !ok {
			continue
		}
		if now >= e.resetAt {
			delete(l.entries, key)
			continue
		}
		kept = append(kept, key)
	}
	l.order = kept
}

// Size returns the number of tracked keys.
func (l *FixedWindow) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
