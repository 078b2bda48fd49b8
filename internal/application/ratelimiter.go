// Package application contains use-case orchestration services.
package application

import (
	"log/slog"
	"sync"
	"time"
)

// Rate limiting is a soft protection against runaway callers, not a security
// boundary; state is in-memory and resets on restart.
const (
	rateLimitWindow  = 60 * time.Second
	rateLimitCeiling = 10
)

// RateLimiter gates privileged operations per identity with a sliding
// window. It is explicitly constructed and injected rather than living in a
// package-level map, so tests and composition own its lifetime.
type RateLimiter struct {
	window time.Duration
	limit  int
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	requests map[string][]time.Time
}

// NewRateLimiter creates a rate limiter with the standard 10-per-60s policy.
func NewRateLimiter(logger *slog.Logger) *RateLimiter {
	return NewRateLimiterWithClock(logger, time.Now)
}

// NewRateLimiterWithClock creates a rate limiter with an injected clock.
// Intended for tests that need to move time.
func NewRateLimiterWithClock(logger *slog.Logger, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		window:   rateLimitWindow,
		limit:    rateLimitCeiling,
		logger:   logger,
		now:      now,
		requests: make(map[string][]time.Time),
	}
}

// Allow records a request for the identity and reports whether it is within
// the ceiling. Timestamps older than the window are dropped first, so the
// ceiling applies to a sliding window rather than fixed buckets.
func (l *RateLimiter) Allow(identityID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.requests[identityID][:0]
	for _, ts := range l.requests[identityID] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= l.limit {
		l.requests[identityID] = recent
		l.logger.Warn("security event",
			"reason", "rate_limit_exceeded",
			"identity", identityID,
			"window", l.window,
			"ceiling", l.limit,
		)
		return false
	}

	l.requests[identityID] = append(recent, now)
	return true
}
