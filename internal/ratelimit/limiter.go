// Package ratelimit implements the per-connection sliding one-second frame
// counter from spec.md §4.7. It is intentionally not a token bucket: the
// spec mandates a hard reset every second and a hard cutoff, not a
// smoothed rate, so golang.org/x/time/rate's burst semantics would change
// observable behavior (see DESIGN.md).
package ratelimit

import "time"

// MaxFramesPerWindow is the limit from spec §4.7 and the invariant in §8.5.
const MaxFramesPerWindow = 1000

const window = time.Second

// Limiter tracks frames_in_window/window_start for a single connection.
// It is not safe for concurrent use; the event loop that owns a
// connection is its only caller (spec §5).
type Limiter struct {
	framesInWindow int
	windowStart    time.Time
}

func New(now time.Time) *Limiter {
	return &Limiter{windowStart: now}
}

// Allow records one delivered frame at time now and reports whether the
// connection stayed within MaxFramesPerWindow. On the first call to exceed
// the limit within a window it returns false; the caller must close the
// connection before invoking the dispatcher, per spec §4.7.
func (l *Limiter) Allow(now time.Time) bool {
	if now.Sub(l.windowStart) > window {
		l.framesInWindow = 0
		l.windowStart = now
	}
	l.framesInWindow++
	return l.framesInWindow <= MaxFramesPerWindow
}
