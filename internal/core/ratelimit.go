package core

import "time"

// RateLimitState captures the admission window.
//
// RequestCount and WindowStart always change together. Limit, Window and
// ResetAt are filled in on snapshots and are informational.
type RateLimitState struct {
	RequestCount int           `json:"request_count"`
	WindowStart  time.Time     `json:"window_start"`
	Limit        int           `json:"limit,omitempty"`
	Window       time.Duration `json:"window,omitempty"`
	ResetAt      time.Time     `json:"reset_at,omitempty"`
}

// Saturated reports whether the window has no free slots left.
func (s RateLimitState) Saturated() bool {
	return s.Limit > 0 && s.RequestCount >= s.Limit
}
