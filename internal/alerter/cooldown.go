package alerter

import (
	"sync"
	"time"
)

// RateLimiter tracks the last successful notification time per alert
// category and gates re-notification against the cooldown policy. The
// last-sent map grows by one entry per category ever notified and is
// never pruned.
type RateLimiter struct {
	policy   CooldownPolicy
	mu       sync.Mutex
	lastSent map[string]time.Time
	now      func() time.Time
}

// NewRateLimiter creates a rate limiter backed by the given policy.
func NewRateLimiter(policy CooldownPolicy) *RateLimiter {
	return &RateLimiter{
		policy:   policy,
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Check decides whether a notification for the category may be sent
// now. With no prior send recorded it returns (false, zero time).
// Otherwise nextAllowed is lastSent plus the category cooldown and is
// returned regardless of block state so callers can record when a
// suppressed alert becomes eligible. Check never updates the last-sent
// time; call MarkSent after an actual send.
func (r *RateLimiter) Check(category string) (blocked bool, nextAllowed time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	last, ok := r.lastSent[category]
	if !ok {
		return false, time.Time{}
	}

	nextAllowed = last.Add(r.policy.For(category))
	return r.now().Before(nextAllowed), nextAllowed
}

// MarkSent records a successful send for the category. Called once per
// dispatch pass, not per channel.
func (r *RateLimiter) MarkSent(category string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSent[category] = r.now()
}

// LastSent returns the recorded last-send time for a category, if any.
func (r *RateLimiter) LastSent(category string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.lastSent[category]
	return t, ok
}
