package main

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory BrightnessStore that records every write.
type fakeStore struct {
	mu       sync.Mutex
	value    uint64
	writes   []uint64
	reads    int
	readErr  error
	writeErr error
}

func newFakeStore(v uint64) *fakeStore {
	return &fakeStore{value: v}
}

func (s *fakeStore) Read() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.readErr != nil {
		return 0, s.readErr
	}
	return s.value, nil
}

func (s *fakeStore) Write(v uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.value = v
	s.writes = append(s.writes, v)
	return nil
}

// set changes the value behind the daemon's back, like a firmware hotkey.
func (s *fakeStore) set(v uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
}

func (s *fakeStore) setWriteErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

func (s *fakeStore) Writes() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.writes...)
}

func (s *fakeStore) Value() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// fakeSource is an eventSource fed from a channel. Closing events acts
// as the device going away.
type fakeSource struct {
	name      string
	events    chan inputEvent
	interrupt chan struct{}
	closed    atomic.Bool
}

func newFakeSource(name string) *fakeSource {
	return &fakeSource{
		name:      name,
		events:    make(chan inputEvent, 16),
		interrupt: make(chan struct{}, 1),
	}
}

func (f *fakeSource) ReadEvent() (inputEvent, error) {
	select {
	case ev, ok := <-f.events:
		if !ok {
			return inputEvent{}, errDeviceGone
		}
		return ev, nil
	case <-f.interrupt:
		return inputEvent{}, errReadInterrupted
	}
}

func (f *fakeSource) Interrupt() error {
	select {
	case f.interrupt <- struct{}{}:
	default:
	}
	return nil
}

func (f *fakeSource) Close() error {
	f.closed.Store(true)
	return nil
}

func (f *fakeSource) Name() string { return f.name }

func scanEvent(code int32) inputEvent {
	return inputEvent{Type: EV_MSC, Code: MSC_SCAN, Value: code}
}

func keyEvent(code uint16, value int32) inputEvent {
	return inputEvent{Type: EV_KEY, Code: code, Value: value}
}

func synEvent() inputEvent {
	return inputEvent{Type: EV_SYN}
}
