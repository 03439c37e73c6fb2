package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

var (
	// errDeviceGone means the device returned EOF or hung up (unplugged).
	errDeviceGone = errors.New("input device gone")
	// errReadInterrupted means Interrupt was called while a read was pending.
	errReadInterrupted = errors.New("input read interrupted")
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// inputEventSize is the size of struct input_event on 64-bit Linux.
var inputEventSize = binary.Size(inputEvent{})

func (ev inputEvent) isScanCode() bool {
	return ev.Type == EV_MSC && ev.Code == MSC_SCAN
}

// decodeInputEvent parses one raw input_event record.
func decodeInputEvent(buf []byte) (inputEvent, error) {
	var ev inputEvent
	if len(buf) < inputEventSize {
		return ev, fmt.Errorf("short input event: %d bytes", len(buf))
	}
	if err := binary.Read(bytes.NewReader(buf[:inputEventSize]), binary.LittleEndian, &ev); err != nil {
		return ev, err
	}
	return ev, nil
}

// packetEvent stands in for a read that was not an input_event record,
// such as a mousedev packet. It is a relative motion event.
func packetEvent() inputEvent {
	return inputEvent{Type: EV_REL}
}

// eventSource is one opened input device.
type eventSource interface {
	// ReadEvent blocks until an event arrives. It returns errDeviceGone
	// on EOF/hangup and errReadInterrupted after Interrupt.
	ReadEvent() (inputEvent, error)
	// Interrupt wakes a pending ReadEvent. Safe to call from any goroutine
	// and after Close.
	Interrupt() error
	Close() error
	Name() string
}

// inputReader turns one device's events into activity on the shared state.
type inputReader struct {
	src      eventSource
	state    *backlightState
	filter   *KeyFilter
	showKeys bool
	keyOut   io.Writer
	logger   *slog.Logger

	suppress scanSuppressor
}

// run reads events until ctx is canceled or the device goes away.
// The device is always closed on return. Device loss is not an error for
// the caller: other readers keep running.
func (r *inputReader) run(ctx context.Context) error {
	defer r.src.Close()
	stop := context.AfterFunc(ctx, func() { _ = r.src.Interrupt() })
	defer stop()

	metricReaders.Inc()
	defer metricReaders.Dec()

	r.logger.Debug("reader started", "device", r.src.Name())
	for {
		if ctx.Err() != nil {
			r.logger.Debug("reader stopping (context canceled)", "device", r.src.Name())
			return nil
		}

		ev, err := r.src.ReadEvent()
		switch {
		case err == nil:
		case errors.Is(err, errReadInterrupted):
			continue
		case errors.Is(err, errDeviceGone), errors.Is(err, io.EOF):
			r.logger.Info("input device removed", "device", r.src.Name())
			return nil
		default:
			r.logger.Warn("input device read failed", "device", r.src.Name(), "error", err)
			return nil
		}

		r.handle(ev, time.Now())
	}
}

// handle classifies one event and applies it. It reports whether the
// event counted as activity.
func (r *inputReader) handle(ev inputEvent, now time.Time) bool {
	if r.showKeys && ev.isScanCode() && r.keyOut != nil {
		fmt.Fprintf(r.keyOut, "Pressed key value: %d\n", ev.Value)
	}

	if !r.suppress.admit(r.filter, ev) {
		metricEvents.WithLabelValues("filtered").Inc()
		return false
	}
	metricEvents.WithLabelValues("counted").Inc()

	restored, err := r.state.MarkActivity(now)
	if err != nil {
		r.logger.Warn("restore failed", "device", r.src.Name(), "error", err)
		return true
	}
	if restored {
		r.logger.Debug("activity, backlight restored", "device", r.src.Name())
	}
	return true
}
