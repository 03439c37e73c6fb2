package main

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func startController(t *testing.T, state *backlightState, timeout time.Duration) (cancel func()) {
	t.Helper()
	ctx, cancelCtx := context.WithCancel(context.Background())
	c := newBrightnessController(state, timeout, discardLogger())

	done := make(chan error, 1)
	go func() { done <- c.run(ctx) }()

	return func() {
		cancelCtx()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("controller returned %v", err)
			}
		case <-time.After(time.Second):
			t.Fatalf("controller did not stop after cancel")
		}
	}
}

func TestBrightnessController_NoDimBeforeTimeout(t *testing.T) {
	store := newFakeStore(2)
	state := newBacklightState(store, 2, time.Now())

	stop := startController(t, state, time.Hour)
	time.Sleep(100 * time.Millisecond)
	stop()

	if len(store.Writes()) != 0 {
		t.Fatalf("writes = %v, want none", store.Writes())
	}
}

// Scenario A: no input at all; 0 is written exactly once no matter how
// many timeouts pass.
func TestBrightnessController_DimsOnceWhenIdle(t *testing.T) {
	store := newFakeStore(2)
	state := newBacklightState(store, 2, time.Now())

	const timeout = 50 * time.Millisecond
	stop := startController(t, state, timeout)
	defer stop()

	waitUntil(t, time.Second, func() bool { return store.Value() == 0 }, "backlight not dimmed")

	// Several more idle periods.
	time.Sleep(6 * timeout)

	if diff := cmp.Diff([]uint64{0}, store.Writes()); diff != "" {
		t.Fatalf("writes mismatch (-want +got):\n%s", diff)
	}
	if got := state.Snapshot().Original; got != 2 {
		t.Fatalf("original = %d, want 2", got)
	}
}

func TestBrightnessController_ActivityPostponesDim(t *testing.T) {
	store := newFakeStore(2)
	state := newBacklightState(store, 2, time.Now())

	const timeout = 150 * time.Millisecond
	stop := startController(t, state, timeout)
	defer stop()

	end := time.Now().Add(400 * time.Millisecond)
	for time.Now().Before(end) {
		if _, err := state.MarkActivity(time.Now()); err != nil {
			t.Fatalf("MarkActivity: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if len(store.Writes()) != 0 {
		t.Fatalf("dimmed during activity: writes = %v", store.Writes())
	}

	waitUntil(t, time.Second, func() bool { return store.Value() == 0 }, "backlight not dimmed after activity stopped")
}

func TestBrightnessController_RestoreThenDimAgain(t *testing.T) {
	store := newFakeStore(2)
	state := newBacklightState(store, 2, time.Now())

	const timeout = 50 * time.Millisecond
	stop := startController(t, state, timeout)
	defer stop()

	waitUntil(t, time.Second, func() bool { return store.Value() == 0 }, "first dim")
	if _, err := state.MarkActivity(time.Now()); err != nil {
		t.Fatalf("MarkActivity: %v", err)
	}
	if store.Value() != 2 {
		t.Fatalf("value after activity = %d, want 2", store.Value())
	}
	waitUntil(t, time.Second, func() bool { return store.Value() == 0 }, "second dim")

	if diff := cmp.Diff([]uint64{0, 2, 0}, store.Writes()); diff != "" {
		t.Fatalf("writes mismatch (-want +got):\n%s", diff)
	}
}

func TestSleepCtx(t *testing.T) {
	if !sleepCtx(context.Background(), time.Millisecond) {
		t.Fatalf("sleepCtx returned false without cancellation")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if sleepCtx(ctx, time.Hour) {
		t.Fatalf("sleepCtx returned true on canceled context")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("sleepCtx did not return promptly")
	}
}
