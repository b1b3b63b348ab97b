package main

import (
	"trackmap-desktop/internal/ratelimit"
)

// Rate Limit Functions (Wails-exported)

// IsSourceRateLimited reports whether a tile source is currently backed
// off, and for how many more seconds.
func (a *App) IsSourceRateLimited(source string) (bool, float64) {
	if a.limiter == nil {
		return false, 0
	}
	limited, wait := a.limiter.IsRateLimited(source)
	return limited, wait.Seconds()
}

// GetRateLimitStatus returns the backoff state of every tracked source
func (a *App) GetRateLimitStatus() []ratelimit.Event {
	if a.limiter == nil {
		return nil
	}
	return a.limiter.Status()
}

// RetryRateLimitedSource clears the backoff for a source so the next tile
// request goes straight to the server
func (a *App) RetryRateLimitedSource(source string) {
	if a.limiter == nil {
		return
	}
	a.limiter.Clear(source)
	a.TrackEvent("rate_limit_manual_retry", map[string]interface{}{
		"source": source,
	})
}
