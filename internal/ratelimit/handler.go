package ratelimit

import (
	"log"
	"net/http"
	"sync"
	"time"
)

// RetryStrategy defines the backoff intervals applied after a tile server
// rate-limits us
type RetryStrategy struct {
	Intervals  []time.Duration
	MaxRetries int
}

// DefaultRetryStrategy returns the default backoff schedule. Public tile
// servers recover quickly, so the schedule is short compared to bulk
// imagery APIs.
func DefaultRetryStrategy() *RetryStrategy {
	return &RetryStrategy{
		Intervals: []time.Duration{
			30 * time.Second,
			1 * time.Minute,
			2 * time.Minute,
			5 * time.Minute,
		},
		MaxRetries: 8,
	}
}

// interval returns the backoff for the given attempt, saturating at the
// last configured interval
func (s *RetryStrategy) interval(attempt int) time.Duration {
	if attempt >= len(s.Intervals) {
		return s.Intervals[len(s.Intervals)-1]
	}
	return s.Intervals[attempt]
}

// Event represents a rate limit occurrence on one tile source
type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	Source      string    `json:"source"`
	StatusCode  int       `json:"statusCode"`
	Attempt     int       `json:"attempt"`
	NextRetryAt time.Time `json:"nextRetryAt"`
	Message     string    `json:"message"`
}

// Handler tracks per-source rate limit state and tells callers when a
// source may be contacted again
type Handler struct {
	mu          sync.RWMutex
	limited     map[string]*Event
	strategy    *RetryStrategy
	onRateLimit func(Event)
	onRecovered func(source string)
}

// NewHandler creates a rate limit handler
func NewHandler(strategy *RetryStrategy) *Handler {
	if strategy == nil {
		strategy = DefaultRetryStrategy()
	}
	return &Handler{
		limited:  make(map[string]*Event),
		strategy: strategy,
	}
}

// SetOnRateLimit sets the callback fired when a source becomes limited
func (h *Handler) SetOnRateLimit(callback func(Event)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRateLimit = callback
}

// SetOnRecovered sets the callback fired when a source's backoff expires
func (h *Handler) SetOnRecovered(callback func(source string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRecovered = callback
}

// IsRateLimited reports whether the source is currently backing off, and if
// so how long until the next attempt is allowed
func (h *Handler) IsRateLimited(source string) (bool, time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	event, ok := h.limited[source]
	if !ok {
		return false, 0
	}

	remaining := time.Until(event.NextRetryAt)
	if remaining <= 0 {
		delete(h.limited, source)
		if h.onRecovered != nil {
			go h.onRecovered(source)
		}
		return false, 0
	}
	return true, remaining
}

// IsRateLimitStatus reports whether an HTTP status code indicates rate
// limiting or access throttling
func IsRateLimitStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode == http.StatusForbidden
}

// Record registers a rate limit response from a source and schedules the
// next allowed attempt
func (h *Handler) Record(source string, statusCode int) Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	attempt := 0
	if prev, ok := h.limited[source]; ok {
		attempt = prev.Attempt + 1
	}

	wait := h.strategy.interval(attempt)
	event := Event{
		Timestamp:   time.Now(),
		Source:      source,
		StatusCode:  statusCode,
		Attempt:     attempt,
		NextRetryAt: time.Now().Add(wait),
		Message:     "Tile server is rate limiting requests, backing off",
	}
	h.limited[source] = &event

	log.Printf("[RateLimit] %s returned %d, attempt %d, next retry in %s",
		source, statusCode, attempt, wait)

	if h.onRateLimit != nil {
		go h.onRateLimit(event)
	}
	return event
}

// Clear resets the state for a source, e.g. after a successful manual retry
func (h *Handler) Clear(source string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.limited, source)
}

// Status returns a snapshot of all currently limited sources
func (h *Handler) Status() []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Event, 0, len(h.limited))
	for _, e := range h.limited {
		out = append(out, *e)
	}
	return out
}
