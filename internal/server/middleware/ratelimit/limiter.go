package ratelimit

import (
	"sync"
	"time"
)

// Limiter implements per-client sliding-window admission control.
// Each client key keeps a time-ordered slice of recent admissions;
// a call is admitted while fewer than limit admissions fall inside the
// trailing window. State is process-lifetime only: a restart resets all
// counters, which is acceptable for best-effort abuse protection.
type Limiter struct {
	mu      sync.Mutex
	clients map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewLimiter creates a Limiter admitting at most limit calls per client
// within the trailing window.
func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		clients: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Admit decides whether a call from the client should proceed.
// Rejected calls are not recorded, so a client hammering the endpoint
// does not extend its own lockout.
func (l *Limiter) Admit(clientKey string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.window)

	recent := l.clients[clientKey][:0]
	for _, t := range l.clients[clientKey] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= l.limit {
		l.clients[clientKey] = recent
		return false
	}

	l.clients[clientKey] = append(recent, now)
	return true
}

// RetryAfter returns the retry hint handed to rejected clients.
func (l *Limiter) RetryAfter() time.Duration {
	return l.window
}
