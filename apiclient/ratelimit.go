package apiclient

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Reset header values at or below this are deltas in seconds, above it unix
// timestamps (one month in seconds).
const resetDeltaThreshold = 2629800

// RateLimitInfo is the last known quota for one API.
type RateLimitInfo struct {
	Limit     int
	Remaining int
	Reset     time.Time
	// Estimated is set when no server headers were seen and the figures are
	// counted client-side.
	Estimated bool
}

// FallbackLimit is the quota assumed for APIs that omit rate-limit headers.
type FallbackLimit struct {
	Limit  int
	Window time.Duration
}

// RateLimiter tracks quota for one client instance.
type RateLimiter struct {
	fallback FallbackLimit
	now      func() time.Time

	mu    sync.Mutex
	info  *RateLimitInfo
	timer *time.Timer
}

// NewRateLimiter returns a tracker that estimates with fallback when headers
// are missing.
func NewRateLimiter(fallback FallbackLimit) *RateLimiter {
	return &RateLimiter{fallback: fallback, now: time.Now}
}

// Track refreshes the quota from a response's headers.
func (r *RateLimiter) Track(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	limit, okLimit := headerInt(h, "x-ratelimit-limit")
	remaining, okRemaining := headerInt(h, "x-ratelimit-remaining")
	reset, okReset := headerInt(h, "x-ratelimit-reset")

	if okLimit && okRemaining && okReset {
		var resetAt time.Time
		if reset <= resetDeltaThreshold {
			resetAt = r.now().Add(time.Duration(reset) * time.Second)
		} else {
			resetAt = time.Unix(int64(reset), 0)
		}
		r.info = &RateLimitInfo{Limit: limit, Remaining: remaining, Reset: resetAt}
		r.scheduleClear(resetAt)
		return
	}

	r.estimate()
}

// estimate counts one request against the client-side window.
func (r *RateLimiter) estimate() {
	if r.fallback.Limit <= 0 {
		return
	}
	now := r.now()
	if r.info == nil || !r.info.Estimated || !now.Before(r.info.Reset) {
		r.info = &RateLimitInfo{
			Limit:     r.fallback.Limit,
			Remaining: r.fallback.Limit,
			Reset:     now.Add(r.fallback.Window),
			Estimated: true,
		}
		r.scheduleClear(r.info.Reset)
	}
	if r.info.Remaining > 0 {
		r.info.Remaining--
	}
}

func (r *RateLimiter) scheduleClear(at time.Time) {
	if r.timer != nil {
		r.timer.Stop()
	}
	wait := at.Sub(r.now())
	if wait < 0 {
		wait = 0
	}
	r.timer = time.AfterFunc(wait, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.info != nil && !r.now().Before(r.info.Reset) {
			r.info = nil
		}
	})
}

// Info returns a copy of the current quota, or nil when nothing is known.
func (r *RateLimiter) Info() *RateLimitInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.info == nil {
		return nil
	}
	info := *r.info
	return &info
}

// SecondsUntilReset is max(0, reset - now), rounded.
func (r *RateLimiter) SecondsUntilReset() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.info == nil {
		return 0
	}
	secs := math.Round(r.info.Reset.Sub(r.now()).Seconds())
	if secs < 0 {
		return 0
	}
	return int(secs)
}

// Stop cancels the pending clear timer.
func (r *RateLimiter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
}

func headerInt(h http.Header, key string) (int, bool) {
	raw := h.Get(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return int(v), true
}
