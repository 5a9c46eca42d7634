package engine

import (
	"sync"
	"time"

	"github.com/docgate/docgate/internal/core"
)

// RateLimiter admits at most Limit calls per window of duration Window.
//
// The window resets lazily: expiry is only observed by the next Admit call,
// there is no background timer. A single instance must be shared by all
// callers of a process.
type RateLimiter struct {
	mu     sync.Mutex
	state  core.RateLimitState
	window time.Duration
	limit  int
	clock  func() time.Time
}

// Option configures a RateLimiter.
type Option func(*RateLimiter)

// WithClock replaces the time source. Used by tests.
func WithClock(clock func() time.Time) Option {
	return func(r *RateLimiter) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// NewRateLimiter builds a limiter. Both window and limit must be positive.
func NewRateLimiter(window time.Duration, limit int, opts ...Option) (*RateLimiter, error) {
	if window <= 0 {
		return nil, &core.ConfigurationError{Field: "window", Reason: "must be positive"}
	}
	if limit <= 0 {
		return nil, &core.ConfigurationError{Field: "limit", Reason: "must be positive"}
	}

	r := &RateLimiter{
		window: window,
		limit:  limit,
		// time.Now keeps the monotonic reading; window math must not follow
		// wall-clock adjustments.
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.state.WindowStart = r.clock()
	return r, nil
}

// Admit reports whether a call may proceed and reserves a slot if so.
func (r *RateLimiter) Admit() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	if now.Sub(r.state.WindowStart) >= r.window {
		r.state = core.RateLimitState{WindowStart: now}
	}

	if r.state.RequestCount >= r.limit {
		return false
	}
	r.state.RequestCount++
	return true
}

// State returns a consistent snapshot of the current window. An expired
// window is reported as it was stored; only Admit resets it.
func (r *RateLimiter) State() core.RateLimitState {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.state
	snapshot.Limit = r.limit
	snapshot.Window = r.window
	snapshot.ResetAt = r.state.WindowStart.Add(r.window)
	return snapshot
}

// Wait returns how long until the next call could be admitted. Zero means a
// slot is available now.
func (r *RateLimiter) Wait() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	elapsed := now.Sub(r.state.WindowStart)
	if elapsed >= r.window || r.state.RequestCount < r.limit {
		return 0
	}
	return r.window - elapsed
}

// Limit returns the number of calls admitted per window.
func (r *RateLimiter) Limit() int {
	return r.limit
}

// Window returns the window duration.
func (r *RateLimiter) Window() time.Duration {
	return r.window
}
