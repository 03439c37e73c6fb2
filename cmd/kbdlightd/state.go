package main

import (
	"fmt"
	"sync"
	"time"
)

// Transition reasons carried by backlight_changed broadcasts.
const (
	reasonDim     = "dim"
	reasonRestore = "restore"
	reasonSet     = "set"
)

// Transition describes one change of the backlight made by the daemon.
type Transition struct {
	Brightness uint64
	Original   uint64
	Reason     string
	At         time.Time
}

// StateSnapshot is a copy of the shared state, safe to hand to other
// goroutines and to serialize.
type StateSnapshot struct {
	Brightness   uint64    `json:"brightness"`
	Original     uint64    `json:"original"`
	LastActivity time.Time `json:"last_activity"`
}

// backlightState holds the last-activity clock and the (original, current)
// brightness pair behind a single mutex.
//
// Every transition that writes to the hardware does so while holding mu,
// so a restore issued by an input reader and a dim issued by the
// controller can never interleave between deciding and writing. A reader
// restoring the backlight waits at most one attribute read and write.
type backlightState struct {
	store BrightnessStore

	mu           sync.Mutex
	lastActivity time.Time
	original     uint64
	current      uint64

	// notify receives transitions; sends never block.
	notify chan<- Transition
}

// newBacklightState seeds the state with the brightness read at startup.
// The clock starts at now, so the first dim is a full timeout away.
func newBacklightState(store BrightnessStore, initial uint64, now time.Time) *backlightState {
	metricBrightness.Set(float64(initial))
	return &backlightState{
		store:        store,
		lastActivity: now,
		original:     initial,
		current:      initial,
	}
}

// SetNotify installs the transition channel. Call before any goroutine
// starts using the state.
func (s *backlightState) SetNotify(ch chan<- Transition) {
	s.notify = ch
}

// touchLocked moves the clock forward to now. It never moves it back.
func (s *backlightState) touchLocked(now time.Time) {
	if now.After(s.lastActivity) {
		s.lastActivity = now
	}
}

// MarkActivity records counted input activity and restores the backlight
// if it is not at its original value. A failed write leaves current
// untouched so the next event retries.
func (s *backlightState) MarkActivity(now time.Time) (restored bool, err error) {
	s.mu.Lock()
	s.touchLocked(now)
	if s.current == s.original {
		s.mu.Unlock()
		return false, nil
	}
	if err := s.store.Write(s.original); err != nil {
		s.mu.Unlock()
		metricBrightnessErrors.WithLabelValues("write").Inc()
		return false, fmt.Errorf("restore brightness %d: %w", s.original, err)
	}
	s.current = s.original
	s.publishLocked(Transition{Brightness: s.current, Original: s.original, Reason: reasonRestore, At: now})
	s.mu.Unlock()

	metricRestores.Inc()
	return true, nil
}

// IdleFor returns how long it has been since the last counted activity.
func (s *backlightState) IdleFor(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActivity)
}

// DimIfIdle dims the backlight when at least timeout has passed since the
// last activity. The decision is made against the hardware value, not the
// cached one: a non-zero reading becomes the new original and 0 is
// written; a zero reading is left alone. The clock is reset to now in
// every case where the timeout had elapsed.
//
// checked reports whether the timeout had elapsed at all.
func (s *backlightState) DimIfIdle(now time.Time, timeout time.Duration) (checked, dimmed bool, err error) {
	s.mu.Lock()
	if now.Sub(s.lastActivity) < timeout {
		s.mu.Unlock()
		return false, false, nil
	}
	s.touchLocked(now)

	hw, err := s.store.Read()
	if err != nil {
		s.mu.Unlock()
		metricBrightnessErrors.WithLabelValues("read").Inc()
		return true, false, fmt.Errorf("read brightness: %w", err)
	}
	if hw == 0 {
		s.mu.Unlock()
		return true, false, nil
	}
	if err := s.store.Write(0); err != nil {
		s.mu.Unlock()
		metricBrightnessErrors.WithLabelValues("write").Inc()
		return true, false, fmt.Errorf("dim brightness: %w", err)
	}
	s.original = hw
	s.current = 0
	s.publishLocked(Transition{Brightness: 0, Original: hw, Reason: reasonDim, At: now})
	s.mu.Unlock()

	metricDims.Inc()
	return true, true, nil
}

// Set writes an explicit brightness. A non-zero value also becomes the
// original that restores return to. It counts as activity.
func (s *backlightState) Set(v uint64, now time.Time) error {
	s.mu.Lock()
	if err := s.store.Write(v); err != nil {
		s.mu.Unlock()
		metricBrightnessErrors.WithLabelValues("write").Inc()
		return fmt.Errorf("set brightness %d: %w", v, err)
	}
	if v != 0 {
		s.original = v
	}
	s.current = v
	s.touchLocked(now)
	s.publishLocked(Transition{Brightness: v, Original: s.original, Reason: reasonSet, At: now})
	s.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current state.
func (s *backlightState) Snapshot() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StateSnapshot{
		Brightness:   s.current,
		Original:     s.original,
		LastActivity: s.lastActivity,
	}
}

// publishLocked is called with mu held so transitions leave in the order
// they were applied.
func (s *backlightState) publishLocked(t Transition) {
	metricBrightness.Set(float64(t.Brightness))
	if s.notify == nil {
		return
	}
	select {
	case s.notify <- t:
	default:
	}
}
