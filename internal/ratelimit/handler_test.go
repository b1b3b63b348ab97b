package ratelimit

import (
	"net/http"
	"testing"
	"time"
)

func TestIsRateLimitStatus(t *testing.T) {
	if !IsRateLimitStatus(http.StatusTooManyRequests) || !IsRateLimitStatus(http.StatusForbidden) {
		t.Error("429 and 403 are rate limit statuses")
	}
	if IsRateLimitStatus(http.StatusOK) || IsRateLimitStatus(http.StatusNotFound) {
		t.Error("200 and 404 are not rate limit statuses")
	}
}

func TestRecordAndQuery(t *testing.T) {
	h := NewHandler(nil)

	if limited, _ := h.IsRateLimited("osm"); limited {
		t.Fatal("fresh handler must not report limits")
	}

	ev := h.Record("osm", 429)
	if ev.Attempt != 0 {
		t.Errorf("first attempt = %d, want 0", ev.Attempt)
	}

	limited, remaining := h.IsRateLimited("osm")
	if !limited {
		t.Fatal("source must be limited after Record")
	}
	if remaining <= 0 || remaining > 30*time.Second {
		t.Errorf("remaining = %s, want within the first backoff interval", remaining)
	}

	if limited, _ := h.IsRateLimited("carto-light"); limited {
		t.Error("limits are per source")
	}
}

func TestRecordEscalates(t *testing.T) {
	h := NewHandler(nil)

	first := h.Record("osm", 429)
	second := h.Record("osm", 429)
	if second.Attempt != first.Attempt+1 {
		t.Errorf("attempts = %d then %d, want escalation", first.Attempt, second.Attempt)
	}

	firstWait := first.NextRetryAt.Sub(first.Timestamp)
	secondWait := second.NextRetryAt.Sub(second.Timestamp)
	if secondWait <= firstWait {
		t.Errorf("backoff %s then %s, want growth", firstWait, secondWait)
	}
}

func TestIntervalSaturates(t *testing.T) {
	s := DefaultRetryStrategy()
	last := s.Intervals[len(s.Intervals)-1]
	if got := s.interval(100); got != last {
		t.Errorf("interval(100) = %s, want %s", got, last)
	}
}

func TestClear(t *testing.T) {
	h := NewHandler(nil)
	h.Record("osm", 429)
	h.Clear("osm")
	if limited, _ := h.IsRateLimited("osm"); limited {
		t.Error("Clear must lift the limit")
	}
}

func TestStatusSnapshot(t *testing.T) {
	h := NewHandler(nil)
	h.Record("osm", 429)
	h.Record("esri-imagery", 403)

	status := h.Status()
	if len(status) != 2 {
		t.Fatalf("status has %d entries, want 2", len(status))
	}
}
