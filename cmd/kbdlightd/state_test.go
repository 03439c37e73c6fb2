package main

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestBacklightState_NoDimBeforeTimeout(t *testing.T) {
	store := newFakeStore(2)
	s := newBacklightState(store, 2, t0)

	checked, dimmed, err := s.DimIfIdle(t0.Add(14*time.Second), 15*time.Second)
	if err != nil || checked || dimmed {
		t.Fatalf("DimIfIdle before timeout = (%v, %v, %v), want (false, false, nil)", checked, dimmed, err)
	}
	if len(store.Writes()) != 0 {
		t.Fatalf("writes = %v, want none", store.Writes())
	}
}

func TestBacklightState_DimAtTimeout(t *testing.T) {
	store := newFakeStore(2)
	s := newBacklightState(store, 2, t0)

	now := t0.Add(15 * time.Second)
	checked, dimmed, err := s.DimIfIdle(now, 15*time.Second)
	if err != nil || !checked || !dimmed {
		t.Fatalf("DimIfIdle = (%v, %v, %v), want (true, true, nil)", checked, dimmed, err)
	}

	want := StateSnapshot{Brightness: 0, Original: 2, LastActivity: now}
	if diff := cmp.Diff(want, s.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint64{0}, store.Writes()); diff != "" {
		t.Fatalf("writes mismatch (-want +got):\n%s", diff)
	}
}

func TestBacklightState_DimUsesHardwareValue(t *testing.T) {
	store := newFakeStore(2)
	s := newBacklightState(store, 2, t0)

	// The user raised the level with the firmware hotkey.
	store.set(3)

	if _, _, err := s.DimIfIdle(t0.Add(time.Minute), time.Second); err != nil {
		t.Fatalf("DimIfIdle: %v", err)
	}
	if got := s.Snapshot().Original; got != 3 {
		t.Fatalf("original = %d, want 3", got)
	}

	if _, err := s.MarkActivity(t0.Add(2 * time.Minute)); err != nil {
		t.Fatalf("MarkActivity: %v", err)
	}
	if diff := cmp.Diff([]uint64{0, 3}, store.Writes()); diff != "" {
		t.Fatalf("writes mismatch (-want +got):\n%s", diff)
	}
}

func TestBacklightState_ManualOffIsLeftAlone(t *testing.T) {
	store := newFakeStore(2)
	s := newBacklightState(store, 2, t0)
	store.set(0)

	now := t0.Add(time.Minute)
	checked, dimmed, err := s.DimIfIdle(now, time.Second)
	if err != nil || !checked || dimmed {
		t.Fatalf("DimIfIdle = (%v, %v, %v), want (true, false, nil)", checked, dimmed, err)
	}
	if len(store.Writes()) != 0 {
		t.Fatalf("writes = %v, want none", store.Writes())
	}
	if got := s.IdleFor(now); got != 0 {
		t.Fatalf("clock not reset: idle = %v", got)
	}

	// Activity must not turn the light back on.
	if restored, _ := s.MarkActivity(now.Add(time.Second)); restored {
		t.Fatalf("activity restored a backlight the user turned off")
	}
}

// Scenario B: dimmed backlight, one key press restores the pre-dim value
// and resets the clock; further presses write nothing.
func TestBacklightState_RestoreIsIdempotent(t *testing.T) {
	store := newFakeStore(2)
	s := newBacklightState(store, 2, t0)

	if _, _, err := s.DimIfIdle(t0.Add(20*time.Second), 15*time.Second); err != nil {
		t.Fatalf("DimIfIdle: %v", err)
	}

	press := t0.Add(30 * time.Second)
	restored, err := s.MarkActivity(press)
	if err != nil || !restored {
		t.Fatalf("first MarkActivity = (%v, %v), want (true, nil)", restored, err)
	}
	if got := s.IdleFor(press); got != 0 {
		t.Fatalf("clock not reset by activity: idle = %v", got)
	}

	for i := 0; i < 3; i++ {
		restored, err := s.MarkActivity(press.Add(time.Duration(i+1) * time.Second))
		if err != nil || restored {
			t.Fatalf("repeat MarkActivity = (%v, %v), want (false, nil)", restored, err)
		}
	}

	if diff := cmp.Diff([]uint64{0, 2}, store.Writes()); diff != "" {
		t.Fatalf("writes mismatch (-want +got):\n%s", diff)
	}
}

func TestBacklightState_FailedRestoreIsRetried(t *testing.T) {
	store := newFakeStore(2)
	s := newBacklightState(store, 2, t0)
	if _, _, err := s.DimIfIdle(t0.Add(time.Minute), time.Second); err != nil {
		t.Fatalf("DimIfIdle: %v", err)
	}

	store.setWriteErr(errors.New("EIO"))
	if _, err := s.MarkActivity(t0.Add(2 * time.Minute)); err == nil {
		t.Fatalf("expected restore error")
	}
	if got := s.Snapshot().Brightness; got != 0 {
		t.Fatalf("brightness after failed restore = %d, want 0", got)
	}

	store.setWriteErr(nil)
	restored, err := s.MarkActivity(t0.Add(3 * time.Minute))
	if err != nil || !restored {
		t.Fatalf("retry = (%v, %v), want (true, nil)", restored, err)
	}
	if got := store.Value(); got != 2 {
		t.Fatalf("hardware value = %d, want 2", got)
	}
}

func TestBacklightState_ReadErrorDoesNotDim(t *testing.T) {
	store := newFakeStore(2)
	store.readErr = errors.New("EIO")
	s := newBacklightState(store, 2, t0)

	checked, dimmed, err := s.DimIfIdle(t0.Add(time.Minute), time.Second)
	if err == nil || !checked || dimmed {
		t.Fatalf("DimIfIdle = (%v, %v, %v), want (true, false, error)", checked, dimmed, err)
	}
	if got := s.Snapshot(); got.Brightness != 2 || got.Original != 2 {
		t.Fatalf("state changed after read error: %+v", got)
	}
}

func TestBacklightState_ClockNeverMovesBack(t *testing.T) {
	s := newBacklightState(newFakeStore(1), 1, t0)

	if _, err := s.MarkActivity(t0.Add(-time.Hour)); err != nil {
		t.Fatalf("MarkActivity: %v", err)
	}
	if got := s.Snapshot().LastActivity; !got.Equal(t0) {
		t.Fatalf("lastActivity = %v, want %v", got, t0)
	}
}

func TestBacklightState_Set(t *testing.T) {
	store := newFakeStore(2)
	s := newBacklightState(store, 2, t0)

	if err := s.Set(3, t0.Add(time.Second)); err != nil {
		t.Fatalf("Set(3): %v", err)
	}
	if got := s.Snapshot(); got.Brightness != 3 || got.Original != 3 {
		t.Fatalf("after Set(3): %+v", got)
	}

	// Off keeps the level to restore to.
	if err := s.Set(0, t0.Add(2*time.Second)); err != nil {
		t.Fatalf("Set(0): %v", err)
	}
	if got := s.Snapshot(); got.Brightness != 0 || got.Original != 3 {
		t.Fatalf("after Set(0): %+v", got)
	}

	if restored, _ := s.MarkActivity(t0.Add(3 * time.Second)); !restored {
		t.Fatalf("activity after Set(0) should restore")
	}
	if diff := cmp.Diff([]uint64{3, 0, 3}, store.Writes()); diff != "" {
		t.Fatalf("writes mismatch (-want +got):\n%s", diff)
	}
}

func TestBacklightState_PublishesTransitionsInOrder(t *testing.T) {
	store := newFakeStore(2)
	s := newBacklightState(store, 2, t0)
	ch := make(chan Transition, 8)
	s.SetNotify(ch)

	s.DimIfIdle(t0.Add(time.Minute), time.Second)
	s.MarkActivity(t0.Add(2 * time.Minute))
	s.MarkActivity(t0.Add(3 * time.Minute)) // no-op, no transition
	s.Set(1, t0.Add(4*time.Minute))
	close(ch)

	var got []Transition
	for tr := range ch {
		got = append(got, tr)
	}
	want := []Transition{
		{Brightness: 0, Original: 2, Reason: reasonDim, At: t0.Add(time.Minute)},
		{Brightness: 2, Original: 2, Reason: reasonRestore, At: t0.Add(2 * time.Minute)},
		{Brightness: 1, Original: 1, Reason: reasonSet, At: t0.Add(4 * time.Minute)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("transitions mismatch (-want +got):\n%s", diff)
	}
}

func TestBacklightState_FullNotifyChannelDoesNotBlock(t *testing.T) {
	store := newFakeStore(2)
	s := newBacklightState(store, 2, t0)
	s.SetNotify(make(chan Transition)) // unbuffered, never read

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.DimIfIdle(t0.Add(time.Minute), time.Second)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("DimIfIdle blocked on notify channel")
	}
}
