package render

import (
	"context"
	"time"
)

// ReadinessProbe reports whether asynchronously produced content has
// finished appearing on a render surface. Implementations exist for tile
// loading (pending fetch count) and vector painting (per-shape painted
// evidence); both are polled, optionally woken early by an event channel,
// and bounded by a timeout.
type ReadinessProbe interface {
	// Ready returns (true, nil) once the content is fully present,
	// (false, nil) while work is still outstanding, and a non-nil error
	// to abort the wait immediately.
	Ready() (bool, error)
}

// ProbeFunc adapts a function to the ReadinessProbe interface
type ProbeFunc func() (bool, error)

// Ready implements ReadinessProbe
func (f ProbeFunc) Ready() (bool, error) {
	return f()
}

// WaitOptions bound and tune a readiness wait
type WaitOptions struct {
	Interval time.Duration   // poll period
	Timeout  time.Duration   // total wait bound; exceeding it is a TimeoutError
	Settle   time.Duration   // extra delay after readiness before returning
	Events   <-chan struct{} // optional early-wakeup signals, may be nil
	Stage    string          // labels the TimeoutError
}

// WaitReady blocks until the probe reports ready, then applies the settle
// delay. It returns ErrCancelled if ctx ends first, a TimeoutError if the
// bound elapses, or the probe's own error. All timers are stopped before
// returning regardless of outcome.
func WaitReady(ctx context.Context, probe ReadinessProbe, opts WaitOptions) error {
	if opts.Interval <= 0 {
		opts.Interval = 200 * time.Millisecond
	}

	check := func() (bool, error) {
		ready, err := probe.Ready()
		if err != nil {
			return false, err
		}
		return ready, nil
	}

	// An already-satisfied probe (e.g. zero tiles or zero shapes) must
	// resolve without waiting a full poll interval.
	if ready, err := check(); err != nil {
		return err
	} else if ready {
		return settle(ctx, opts.Settle)
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	var timeoutC <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ErrCancelled
		case <-timeoutC:
			return &TimeoutError{Stage: opts.Stage, Timeout: opts.Timeout}
		case <-opts.Events:
		case <-ticker.C:
		}

		if ready, err := check(); err != nil {
			return err
		} else if ready {
			return settle(ctx, opts.Settle)
		}
	}
}

// settle sleeps for the settle delay, still honoring cancellation
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ErrCancelled
	case <-timer.C:
		return nil
	}
}
