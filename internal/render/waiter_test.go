package render

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestWaitReadyImmediate(t *testing.T) {
	probe := ProbeFunc(func() (bool, error) { return true, nil })

	start := time.Now()
	err := WaitReady(context.Background(), probe, WaitOptions{
		Interval: time.Hour,
		Timeout:  time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}
	// An already-satisfied probe (zero tiles, zero shapes) must not wait
	// for a poll tick.
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("immediate readiness took %v", elapsed)
	}
}

func TestWaitReadyProbeError(t *testing.T) {
	boom := errors.New("tile fetch blew up")
	probe := ProbeFunc(func() (bool, error) { return false, boom })

	err := WaitReady(context.Background(), probe, WaitOptions{Timeout: time.Second})
	if !errors.Is(err, boom) {
		t.Errorf("probe error must be returned verbatim, got %v", err)
	}
}

func TestWaitReadyTimeout(t *testing.T) {
	probe := ProbeFunc(func() (bool, error) { return false, nil })

	err := WaitReady(context.Background(), probe, WaitOptions{
		Interval: 10 * time.Millisecond,
		Timeout:  60 * time.Millisecond,
		Stage:    "tile-load",
	})
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("want TimeoutError, got %v", err)
	}
	if timeout.Stage != "tile-load" {
		t.Errorf("timeout stage = %q", timeout.Stage)
	}
}

func TestWaitReadyEventWakeup(t *testing.T) {
	done := make(chan struct{}, 1)
	var ready atomic.Bool
	probe := ProbeFunc(func() (bool, error) { return ready.Load(), nil })

	go func() {
		time.Sleep(20 * time.Millisecond)
		ready.Store(true)
		done <- struct{}{}
	}()

	start := time.Now()
	err := WaitReady(context.Background(), probe, WaitOptions{
		Interval: time.Hour, // only the event can wake the wait
		Timeout:  5 * time.Second,
		Events:   done,
	})
	if err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("event wakeup took %v, polling fallback must not be needed", elapsed)
	}
}

func TestWaitReadyCancelled(t *testing.T) {
	probe := ProbeFunc(func() (bool, error) { return false, nil })

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := WaitReady(ctx, probe, WaitOptions{
		Interval: time.Hour,
		Timeout:  time.Hour,
	})
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("want ErrCancelled, got %v", err)
	}
}

func TestWaitReadySettleApplied(t *testing.T) {
	probe := ProbeFunc(func() (bool, error) { return true, nil })

	start := time.Now()
	err := WaitReady(context.Background(), probe, WaitOptions{Settle: 50 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("settle delay skipped, returned after %v", elapsed)
	}
}

func TestWaitReadySettleCancellable(t *testing.T) {
	probe := ProbeFunc(func() (bool, error) { return true, nil })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := WaitReady(ctx, probe, WaitOptions{Settle: 5 * time.Second})
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("cancellation during settle must surface, got %v", err)
	}
}
